package world

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/udisondev/npcspawn/internal/model"
)

// ErrNpcNotFound is returned for operations on unknown object IDs.
var ErrNpcNotFound = errors.New("npc not found")

// DeathFunc is notified when an NPC dies.
type DeathFunc func(objectID uint32, at time.Time)

// World is an in-memory room/template/NPC registry.
// It implements the room directory, template directory, entity factory and
// world query the spawn scheduler consumes. All methods are safe for concurrent use.
type World struct {
	mu           sync.RWMutex
	rooms        map[int64]*Room
	roomKeys     map[string]int64
	templates    map[int32]*Template
	templateKeys map[string]int32
	npcs         map[uint32]*Npc
	byRoom       map[int64]map[uint32]*Npc // roomID → objectID → npc

	ids     *ObjectIDGenerator
	onDeath DeathFunc
	now     func() time.Time
}

// New creates an empty world.
func New() *World {
	return &World{
		rooms:        make(map[int64]*Room),
		roomKeys:     make(map[string]int64),
		templates:    make(map[int32]*Template),
		templateKeys: make(map[string]int32),
		npcs:         make(map[uint32]*Npc),
		byRoom:       make(map[int64]map[uint32]*Npc),
		ids:          NewObjectIDGenerator(),
		now:          time.Now,
	}
}

// SetClock overrides the time source (tests).
func (w *World) SetClock(now func() time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.now = now
}

// OnDeath registers the death listener. Only one listener is kept.
func (w *World) OnDeath(fn DeathFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onDeath = fn
}

// AddRoom registers a room. Keys are matched case-insensitively.
func (w *World) AddRoom(id int64, key, area string) *Room {
	w.mu.Lock()
	defer w.mu.Unlock()

	room := &Room{id: id, key: key, area: strings.ToLower(area)}
	w.rooms[id] = room
	if key != "" {
		w.roomKeys[strings.ToLower(key)] = id
	}
	return room
}

// RemoveRoom deletes a room together with every NPC inside it.
func (w *World) RemoveRoom(id int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	room, ok := w.rooms[id]
	if !ok {
		return
	}
	for objectID := range w.byRoom[id] {
		delete(w.npcs, objectID)
	}
	delete(w.byRoom, id)
	delete(w.roomKeys, strings.ToLower(room.key))
	delete(w.rooms, id)
}

// AddTemplate registers an NPC template.
func (w *World) AddTemplate(tmpl Template) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t := tmpl
	w.templates[t.ID] = &t
	if t.Key != "" {
		w.templateKeys[strings.ToLower(t.Key)] = t.ID
	}
}

// RoomByID returns the room with the given ID.
func (w *World) RoomByID(id int64) (model.Room, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	room, ok := w.rooms[id]
	if !ok {
		return nil, false
	}
	return room, true
}

// RoomByKey returns the room with the given key.
func (w *World) RoomByKey(key string) (model.Room, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	id, ok := w.roomKeys[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return nil, false
	}
	return w.rooms[id], true
}

// CanonicalTemplate maps any template ref to its ID form.
func (w *World) CanonicalTemplate(ref model.TemplateRef) (model.TemplateRef, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	id, ok := w.templateID(ref)
	if !ok {
		return model.TemplateRef{}, false
	}
	return model.TemplateByID(id), true
}

// templateID must be called with w.mu held.
func (w *World) templateID(ref model.TemplateRef) (int32, bool) {
	if ref.HasID() {
		_, ok := w.templates[ref.ID()]
		return ref.ID(), ok
	}
	id, ok := w.templateKeys[strings.ToLower(ref.Key())]
	return id, ok
}

// SpawnNpc creates a live NPC of the template in the room.
func (w *World) SpawnNpc(ctx context.Context, tmpl model.TemplateRef, room model.Room) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	templateID, ok := w.templateID(tmpl)
	if !ok {
		return 0, fmt.Errorf("spawning %s: %w", tmpl, model.ErrTemplateNotFound)
	}
	if _, ok := w.rooms[room.RoomID()]; !ok {
		return 0, fmt.Errorf("spawning %s into room %d: %w", tmpl, room.RoomID(), model.ErrRoomNotFound)
	}

	objectID := w.ids.NextNpcID()
	if objectID == 0 {
		return 0, fmt.Errorf("spawning %s: npc object id range exhausted", tmpl)
	}

	npc := &Npc{
		ObjectID:   objectID,
		TemplateID: templateID,
		RoomID:     room.RoomID(),
		SpawnedAt:  w.now(),
	}
	w.npcs[objectID] = npc
	if w.byRoom[npc.RoomID] == nil {
		w.byRoom[npc.RoomID] = make(map[uint32]*Npc)
	}
	w.byRoom[npc.RoomID][objectID] = npc

	slog.Debug("NPC spawned",
		"objectID", objectID,
		"templateID", templateID,
		"roomID", npc.RoomID)

	return objectID, nil
}

// LiveNpcs returns object IDs of live NPCs of the template in the room, ascending.
func (w *World) LiveNpcs(tmpl model.TemplateRef, room model.Room) []uint32 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	templateID, ok := w.templateID(tmpl)
	if !ok {
		return nil
	}

	ids := make([]uint32, 0, len(w.byRoom[room.RoomID()]))
	for objectID, npc := range w.byRoom[room.RoomID()] {
		if npc.TemplateID == templateID {
			ids = append(ids, objectID)
		}
	}
	slices.Sort(ids)
	return ids
}

// Despawn removes an NPC without reporting a death.
func (w *World) Despawn(objectID uint32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.remove(objectID); !ok {
		return fmt.Errorf("despawning %d: %w", objectID, ErrNpcNotFound)
	}
	return nil
}

// Kill removes an NPC and notifies the death listener.
func (w *World) Kill(objectID uint32) error {
	w.mu.Lock()
	_, ok := w.remove(objectID)
	listener := w.onDeath
	at := w.now()
	w.mu.Unlock()

	if !ok {
		return fmt.Errorf("killing %d: %w", objectID, ErrNpcNotFound)
	}
	if listener != nil {
		listener(objectID, at)
	}
	return nil
}

// remove must be called with w.mu held.
func (w *World) remove(objectID uint32) (*Npc, bool) {
	npc, ok := w.npcs[objectID]
	if !ok {
		return nil, false
	}
	delete(w.npcs, objectID)
	if rs, ok := w.byRoom[npc.RoomID]; ok {
		delete(rs, objectID)
		if len(rs) == 0 {
			delete(w.byRoom, npc.RoomID)
		}
	}
	return npc, true
}

// Npc returns the NPC with the given object ID.
func (w *World) Npc(objectID uint32) (Npc, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	npc, ok := w.npcs[objectID]
	if !ok {
		return Npc{}, false
	}
	return *npc, true
}

// NpcCount returns total number of live NPCs.
func (w *World) NpcCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.npcs)
}

// RoomCount returns number of registered rooms.
func (w *World) RoomCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.rooms)
}
