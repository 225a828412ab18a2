package world

import "sync/atomic"

// NPC object IDs live in 0x20000000 - 0x2FFFFFFF, leaving the lower ranges
// to players and the upper ones to ground items of the host server.
const (
	npcIDBase = 0x20000000
	npcIDMax  = 0x2FFFFFFF
)

// ObjectIDGenerator generates unique NPC object IDs.
type ObjectIDGenerator struct {
	nextNpcID atomic.Uint32
}

// NewObjectIDGenerator creates a new ID generator.
func NewObjectIDGenerator() *ObjectIDGenerator {
	gen := &ObjectIDGenerator{}
	gen.nextNpcID.Store(npcIDBase)
	return gen
}

// NextNpcID generates next unique NPC object ID.
// Returns 0 once the range is exhausted.
func (g *ObjectIDGenerator) NextNpcID() uint32 {
	id := g.nextNpcID.Add(1)
	if id > npcIDMax {
		return 0
	}
	return id
}

// IsNpcID reports whether objectID belongs to the NPC range.
func IsNpcID(objectID uint32) bool {
	return objectID > npcIDBase && objectID <= npcIDMax
}
