package model

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Declaration is one spawn rule as produced by a world-data loader.
type Declaration struct {
	Area         string
	Template     TemplateRef
	Room         RoomRef
	MaxCount     int32
	RespawnDelay time.Duration
}

// Validate checks the declaration for values no entry can be built from.
func (d Declaration) Validate() error {
	if strings.TrimSpace(d.Area) == "" {
		return fmt.Errorf("%w: empty area", ErrMalformedEntry)
	}
	if d.Template.IsZero() {
		return fmt.Errorf("%w: missing template", ErrMalformedEntry)
	}
	if d.Room.IsZero() {
		return fmt.Errorf("%w: missing room", ErrMalformedEntry)
	}
	if d.MaxCount < 0 {
		return fmt.Errorf("%w: negative max_count %d", ErrMalformedEntry, d.MaxCount)
	}
	if d.RespawnDelay < 0 {
		return fmt.Errorf("%w: negative respawn_delay %s", ErrMalformedEntry, d.RespawnDelay)
	}
	return nil
}

// PendingDeath is a tracked death waiting for its respawn delay.
type PendingDeath struct {
	ObjectID uint32    `json:"id"`
	DiedAt   time.Time `json:"died_at"`
}

// ReadyAt returns the instant the slot becomes eligible for refill.
func (p PendingDeath) ReadyAt(delay time.Duration) time.Time {
	return p.DiedAt.Add(delay)
}

// SpawnEntry binds a template to a room with a population cap and a respawn delay.
//
// ActiveIDs is derived from world state on every reconciliation and is never
// persisted. The resolved room handle is memoized in room.
type SpawnEntry struct {
	ID           uuid.UUID
	Area         string
	Template     TemplateRef
	Room         RoomRef
	MaxCount     int32
	RespawnDelay time.Duration

	ActiveIDs     []uint32
	PendingDeaths []PendingDeath
	LastSpawnAt   time.Time
	Disabled      bool // template unknown; cleared by reload

	room Room
}

// NewSpawnEntry builds an entry from a declaration. Area is lowercased.
func NewSpawnEntry(decl Declaration) (*SpawnEntry, error) {
	if err := decl.Validate(); err != nil {
		return nil, err
	}

	e := &SpawnEntry{
		ID:           uuid.New(),
		Area:         strings.ToLower(strings.TrimSpace(decl.Area)),
		Template:     decl.Template,
		Room:         decl.Room,
		MaxCount:     decl.MaxCount,
		RespawnDelay: decl.RespawnDelay,
	}
	return e, nil
}

// ResolvedRoom returns the memoized room handle (nil if not resolved yet).
func (e *SpawnEntry) ResolvedRoom() Room {
	return e.room
}

// SetResolvedRoom memoizes the resolved room handle.
func (e *SpawnEntry) SetResolvedRoom(room Room) {
	e.room = room
}

// ForgetRoom drops the memoized handle so the next resolve goes to the directory.
func (e *SpawnEntry) ForgetRoom() {
	e.room = nil
}

// LiveCount returns the number of NPCs attributed at the last reconciliation.
func (e *SpawnEntry) LiveCount() int {
	return len(e.ActiveIDs)
}

// Owns reports whether objectID is attributed to this entry.
func (e *SpawnEntry) Owns(objectID uint32) bool {
	return slices.Contains(e.ActiveIDs, objectID)
}

// HasPendingDeath reports whether objectID already awaits respawn.
func (e *SpawnEntry) HasPendingDeath(objectID uint32) bool {
	return slices.ContainsFunc(e.PendingDeaths, func(p PendingDeath) bool {
		return p.ObjectID == objectID
	})
}

// Summary returns the diagnostic view of the entry.
func (e *SpawnEntry) Summary() EntrySummary {
	return EntrySummary{
		ID:                  e.ID,
		Area:                e.Area,
		Template:            e.Template.String(),
		Room:                e.Room.String(),
		MaxCount:            e.MaxCount,
		RespawnDelaySeconds: int64(e.RespawnDelay / time.Second),
		Live:                len(e.ActiveIDs),
		Pending:             len(e.PendingDeaths),
		LastSpawnAt:         e.LastSpawnAt,
		Disabled:            e.Disabled,
	}
}

// EntrySummary is the introspection view exposed to administrative tooling.
type EntrySummary struct {
	ID                  uuid.UUID `json:"id"`
	Area                string    `json:"area"`
	Template            string    `json:"template"`
	Room                string    `json:"room"`
	MaxCount            int32     `json:"max_count"`
	RespawnDelaySeconds int64     `json:"respawn_delay"`
	Live                int       `json:"live"`
	Pending             int       `json:"pending"`
	LastSpawnAt         time.Time `json:"last_spawn_at"`
	Disabled            bool      `json:"disabled"`
}
