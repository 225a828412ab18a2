package world

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/udisondev/npcspawn/internal/model"
)

func newWorld(t *testing.T) *World {
	t.Helper()
	w := New()
	w.AddRoom(1, "Village_Square", "Talking_Island")
	w.AddRoom(2, "", "gludio")
	w.AddTemplate(Template{ID: 20001, Key: "Wolf", Name: "Wolf"})
	return w
}

func TestWorld_RoomLookup(t *testing.T) {
	w := newWorld(t)

	room, ok := w.RoomByID(1)
	if !ok {
		t.Fatal("RoomByID(1) returned false")
	}
	if room.RoomKey() != "Village_Square" {
		t.Errorf("RoomKey() = %q, want %q", room.RoomKey(), "Village_Square")
	}
	if got := room.(*Room).Area(); got != "talking_island" {
		t.Errorf("Area() = %q, want lowercased %q", got, "talking_island")
	}

	if _, ok := w.RoomByKey("village_square"); !ok {
		t.Error("RoomByKey() should match case-insensitively")
	}
	if _, ok := w.RoomByKey(""); ok {
		t.Error("RoomByKey(\"\") should not match keyless rooms")
	}
	if _, ok := w.RoomByID(99); ok {
		t.Error("RoomByID(99) returned true for unknown room")
	}
	if w.RoomCount() != 2 {
		t.Errorf("RoomCount() = %d, want 2", w.RoomCount())
	}
}

func TestWorld_CanonicalTemplate(t *testing.T) {
	w := newWorld(t)

	tests := []struct {
		name string
		ref  model.TemplateRef
		want model.TemplateRef
		ok   bool
	}{
		{"by id", model.TemplateByID(20001), model.TemplateByID(20001), true},
		{"by key", model.TemplateByKey("WOLF"), model.TemplateByID(20001), true},
		{"unknown id", model.TemplateByID(1), model.TemplateRef{}, false},
		{"unknown key", model.TemplateByKey("bear"), model.TemplateRef{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := w.CanonicalTemplate(tt.ref)
			if ok != tt.ok || got != tt.want {
				t.Errorf("CanonicalTemplate(%s) = %v, %v; want %v, %v", tt.ref, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestWorld_SpawnAndQuery(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	square, _ := w.RoomByID(1)
	gludio, _ := w.RoomByID(2)

	var ids []uint32
	for range 3 {
		id, err := w.SpawnNpc(ctx, model.TemplateByKey("wolf"), square)
		if err != nil {
			t.Fatalf("SpawnNpc() error = %v", err)
		}
		if !IsNpcID(id) {
			t.Errorf("SpawnNpc() id = %#x, outside NPC range", id)
		}
		ids = append(ids, id)
	}
	if _, err := w.SpawnNpc(ctx, model.TemplateByID(20001), gludio); err != nil {
		t.Fatalf("SpawnNpc(gludio) error = %v", err)
	}

	live := w.LiveNpcs(model.TemplateByID(20001), square)
	if len(live) != 3 {
		t.Fatalf("LiveNpcs(square) = %v, want 3 ids", live)
	}
	for i := range live {
		if live[i] != ids[i] {
			t.Errorf("LiveNpcs()[%d] = %d, want %d (ascending)", i, live[i], ids[i])
		}
	}
	if w.NpcCount() != 4 {
		t.Errorf("NpcCount() = %d, want 4", w.NpcCount())
	}

	npc, ok := w.Npc(ids[0])
	if !ok {
		t.Fatal("Npc() returned false for live NPC")
	}
	if npc.RoomID != 1 || npc.TemplateID != 20001 {
		t.Errorf("Npc() = %+v, want room 1 template 20001", npc)
	}
}

func TestWorld_SpawnErrors(t *testing.T) {
	w := newWorld(t)
	square, _ := w.RoomByID(1)

	_, err := w.SpawnNpc(context.Background(), model.TemplateByKey("bear"), square)
	if !errors.Is(err, model.ErrTemplateNotFound) {
		t.Errorf("SpawnNpc(unknown template) error = %v, want ErrTemplateNotFound", err)
	}

	w.RemoveRoom(1)
	_, err = w.SpawnNpc(context.Background(), model.TemplateByID(20001), square)
	if !errors.Is(err, model.ErrRoomNotFound) {
		t.Errorf("SpawnNpc(removed room) error = %v, want ErrRoomNotFound", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gludio, _ := w.RoomByID(2)
	if _, err := w.SpawnNpc(ctx, model.TemplateByID(20001), gludio); !errors.Is(err, context.Canceled) {
		t.Errorf("SpawnNpc(canceled) error = %v, want context.Canceled", err)
	}
}

func TestWorld_KillNotifiesListener(t *testing.T) {
	w := newWorld(t)
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w.SetClock(func() time.Time { return at })

	var gotID uint32
	var gotAt time.Time
	calls := 0
	w.OnDeath(func(objectID uint32, diedAt time.Time) {
		gotID, gotAt = objectID, diedAt
		calls++
	})

	square, _ := w.RoomByID(1)
	id, err := w.SpawnNpc(context.Background(), model.TemplateByID(20001), square)
	if err != nil {
		t.Fatal(err)
	}

	if err := w.Kill(id); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}
	if calls != 1 || gotID != id || !gotAt.Equal(at) {
		t.Errorf("listener got (%d, %v) x%d, want (%d, %v) x1", gotID, gotAt, calls, id, at)
	}

	if err := w.Kill(id); !errors.Is(err, ErrNpcNotFound) {
		t.Errorf("Kill(dead) error = %v, want ErrNpcNotFound", err)
	}
	if calls != 1 {
		t.Errorf("listener called %d times, want 1", calls)
	}
}

func TestWorld_DespawnIsSilent(t *testing.T) {
	w := newWorld(t)
	w.OnDeath(func(uint32, time.Time) {
		t.Error("Despawn() must not report a death")
	})

	square, _ := w.RoomByID(1)
	id, err := w.SpawnNpc(context.Background(), model.TemplateByID(20001), square)
	if err != nil {
		t.Fatal(err)
	}

	if err := w.Despawn(id); err != nil {
		t.Fatalf("Despawn() error = %v", err)
	}
	if _, ok := w.Npc(id); ok {
		t.Error("Npc() still present after Despawn()")
	}
	if err := w.Despawn(id); !errors.Is(err, ErrNpcNotFound) {
		t.Errorf("Despawn(missing) error = %v, want ErrNpcNotFound", err)
	}
}

func TestWorld_RemoveRoomDropsNpcs(t *testing.T) {
	w := newWorld(t)
	square, _ := w.RoomByID(1)
	for range 2 {
		if _, err := w.SpawnNpc(context.Background(), model.TemplateByID(20001), square); err != nil {
			t.Fatal(err)
		}
	}

	w.RemoveRoom(1)

	if w.NpcCount() != 0 {
		t.Errorf("NpcCount() after RemoveRoom = %d, want 0", w.NpcCount())
	}
	if _, ok := w.RoomByKey("village_square"); ok {
		t.Error("RoomByKey() still resolves removed room")
	}
}

func TestObjectIDGenerator(t *testing.T) {
	gen := NewObjectIDGenerator()

	first := gen.NextNpcID()
	second := gen.NextNpcID()
	if first != npcIDBase+1 || second != first+1 {
		t.Errorf("NextNpcID() = %#x, %#x; want %#x, %#x", first, second, npcIDBase+1, npcIDBase+2)
	}

	gen.nextNpcID.Store(npcIDMax)
	if id := gen.NextNpcID(); id != 0 {
		t.Errorf("NextNpcID() after exhaustion = %#x, want 0", id)
	}

	if IsNpcID(1) || IsNpcID(npcIDBase) || !IsNpcID(npcIDMax) {
		t.Error("IsNpcID() range check is wrong")
	}
}
