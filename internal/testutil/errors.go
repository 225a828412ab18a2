package testutil

import "errors"

// ErrSimulated is a sentinel error for failure paths (factory, store).
var ErrSimulated = errors.New("simulated error for testing")
