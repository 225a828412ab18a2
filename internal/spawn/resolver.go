package spawn

import (
	"fmt"
	"log/slog"

	"github.com/udisondev/npcspawn/internal/model"
)

// RoomResolver turns declared room references into room handles.
type RoomResolver struct {
	rooms RoomDirectory
}

// NewRoomResolver creates a resolver backed by the room directory.
func NewRoomResolver(rooms RoomDirectory) *RoomResolver {
	return &RoomResolver{rooms: rooms}
}

// Resolve returns the entry's room, memoizing it on the entry.
// Returns false (and logs a warning) when the room is unknown or deleted;
// callers skip the entry for this tick.
func (r *RoomResolver) Resolve(e *model.SpawnEntry) (model.Room, bool) {
	if room := e.ResolvedRoom(); room != nil {
		return room, true
	}

	room, err := r.ResolveRef(e.Room)
	if err != nil {
		slog.Warn("spawn entry room unresolvable",
			"entryID", e.ID,
			"area", e.Area,
			"room", e.Room.String(),
			"error", err)
		return nil, false
	}

	e.SetResolvedRoom(room)
	return room, true
}

// ResolveRef looks a reference up in the directory without touching any entry.
// Handles are re-validated so a deleted room is never returned.
func (r *RoomResolver) ResolveRef(ref model.RoomRef) (model.Room, error) {
	var (
		room model.Room
		ok   bool
	)

	switch ref.Kind() {
	case model.RoomRefHandle, model.RoomRefID:
		room, ok = r.rooms.RoomByID(ref.ID())
	case model.RoomRefKey:
		room, ok = r.rooms.RoomByKey(ref.Key())
	default:
		return nil, fmt.Errorf("%w: empty reference", ErrUnresolvableRoom)
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvableRoom, ref)
	}
	return room, nil
}
