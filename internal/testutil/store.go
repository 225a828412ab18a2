package testutil

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/udisondev/npcspawn/internal/model"
)

// MemStore — in-memory spawn store для unit тестов.
// Не требует PostgreSQL/SQLite. Строки хранятся так же, как в БД:
// без live ID и с сериализуемой ссылкой на комнату.
type MemStore struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]model.SpawnEntry
	saves   int
	saveErr error
}

// NewMemStore создаёт пустой MemStore.
func NewMemStore() *MemStore {
	return &MemStore{rows: make(map[uuid.UUID]model.SpawnEntry)}
}

// LoadAll returns the stored rows ordered by id.
func (m *MemStore) LoadAll(_ context.Context) ([]*model.SpawnEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*model.SpawnEntry, 0, len(m.rows))
	for _, row := range m.rows {
		e := row
		e.Room = e.Room.Persistable()
		e.ActiveIDs = nil
		e.PendingDeaths = slices.Clone(row.PendingDeaths)
		e.ForgetRoom()
		out = append(out, &e)
	}
	slices.SortFunc(out, func(a, b *model.SpawnEntry) int {
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return out, nil
}

// SaveAll upserts entries.
func (m *MemStore) SaveAll(_ context.Context, entries []*model.SpawnEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(entries)
}

// ReplaceAll drops every row and stores entries.
func (m *MemStore) ReplaceAll(_ context.Context, entries []*model.SpawnEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.rows = make(map[uuid.UUID]model.SpawnEntry)
	return m.saveLocked(entries)
}

// Delete removes one row.
func (m *MemStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

// Row returns the stored copy of an entry.
func (m *MemStore) Row(id uuid.UUID) (model.SpawnEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	return row, ok
}

// Len returns the number of stored rows.
func (m *MemStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// Saves returns the number of successful writes.
func (m *MemStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// FailSaves makes every following write return err (nil restores writes).
func (m *MemStore) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

func (m *MemStore) saveLocked(entries []*model.SpawnEntry) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	for _, e := range entries {
		row := *e
		row.PendingDeaths = slices.Clone(e.PendingDeaths)
		m.rows[e.ID] = row
	}
	return nil
}
