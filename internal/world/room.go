package world

import "time"

// Room is a location NPCs are placed into.
type Room struct {
	id   int64
	key  string
	area string
}

// RoomID implements model.Room.
func (r *Room) RoomID() int64 { return r.id }

// RoomKey implements model.Room.
func (r *Room) RoomKey() string { return r.key }

// Area returns the area the room belongs to.
func (r *Room) Area() string { return r.area }

// Template describes how an NPC is built. Only identity matters here.
type Template struct {
	ID   int32
	Key  string
	Name string
}

// Npc is a live NPC instance.
type Npc struct {
	ObjectID   uint32
	TemplateID int32
	RoomID     int64
	SpawnedAt  time.Time
}
