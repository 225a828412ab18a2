package model

import "errors"

// Sentinel errors for spawn entries and their references.
var (
	ErrMalformedEntry     = errors.New("malformed spawn entry")
	ErrInvalidRoomRef     = errors.New("invalid room reference")
	ErrInvalidTemplateRef = errors.New("invalid template reference")
	ErrRoomNotFound       = errors.New("room not found")
	ErrTemplateNotFound   = errors.New("npc template not found")
)
