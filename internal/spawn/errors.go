package spawn

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/udisondev/npcspawn/internal/model"
)

// Sentinel errors for the spawn scheduler.
var (
	ErrUnresolvableRoom = errors.New("room cannot be resolved")
	ErrUnknownTemplate  = errors.New("unknown npc template")
	ErrNoEntries        = errors.New("no spawn entries match")
	ErrEntryNotFound    = errors.New("spawn entry not found")
)

// FactoryError wraps a failed entity construction for one spawn attempt.
type FactoryError struct {
	EntryID  uuid.UUID
	Template model.TemplateRef
	Err      error
}

func (e *FactoryError) Error() string {
	return fmt.Sprintf("spawning %s for entry %s: %v", e.Template, e.EntryID, e.Err)
}

func (e *FactoryError) Unwrap() error {
	return e.Err
}
