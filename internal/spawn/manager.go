package spawn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/udisondev/npcspawn/internal/model"
)

// RoomDirectory looks rooms up by ID or key.
type RoomDirectory interface {
	RoomByID(id int64) (model.Room, bool)
	RoomByKey(key string) (model.Room, bool)
}

// TemplateDirectory maps a template reference of any shape to its ID form.
type TemplateDirectory interface {
	CanonicalTemplate(ref model.TemplateRef) (model.TemplateRef, bool)
}

// EntityFactory constructs a live NPC and returns its object ID.
type EntityFactory interface {
	SpawnNpc(ctx context.Context, tmpl model.TemplateRef, room model.Room) (uint32, error)
}

// WorldQuery exposes the live NPC population.
type WorldQuery interface {
	LiveNpcs(tmpl model.TemplateRef, room model.Room) []uint32
	Despawn(objectID uint32) error
}

// Store persists spawn entries between restarts.
type Store interface {
	LoadAll(ctx context.Context) ([]*model.SpawnEntry, error)
	SaveAll(ctx context.Context, entries []*model.SpawnEntry) error
	ReplaceAll(ctx context.Context, entries []*model.SpawnEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Deps groups the world-side collaborators of the scheduler.
type Deps struct {
	Rooms     RoomDirectory
	Templates TemplateDirectory
	Factory   EntityFactory
	World     WorldQuery
}

// Config controls the scheduler loop.
type Config struct {
	TickInterval time.Duration
	BatchSize    int
}

// ListFilter selects entries for List. Zero value selects everything.
type ListFilter struct {
	Room model.RoomRef
	Area string
}

// Scheduler is the single authority over spawn entries.
//
// Every tick and every administrative call runs under mu, so administrative
// operations never interleave with an in-flight tick.
type Scheduler struct {
	mu      sync.Mutex
	entries []*model.SpawnEntry
	index   map[uuid.UUID]*model.SpawnEntry
	owners  map[uint32]*model.SpawnEntry // objectID → entry
	dirty   map[uuid.UUID]struct{}

	resolver   *RoomResolver
	reconciler *Reconciler
	store      Store
	cfg        Config
	now        func() time.Time

	tickCount uint64
}

// NewScheduler creates a scheduler. store may be nil (no persistence).
func NewScheduler(cfg Config, deps Deps, store Store) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}

	resolver := NewRoomResolver(deps.Rooms)
	return &Scheduler{
		index:      make(map[uuid.UUID]*model.SpawnEntry),
		owners:     make(map[uint32]*model.SpawnEntry),
		dirty:      make(map[uuid.UUID]struct{}),
		resolver:   resolver,
		reconciler: NewReconciler(resolver, deps.Templates, deps.Factory, deps.World),
		store:      store,
		cfg:        cfg,
		now:        time.Now,
	}
}

// SetClock overrides the time source (tests).
func (s *Scheduler) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Load replaces the in-memory entry set with the persisted one.
// Malformed rows are dropped by the store.
func (s *Scheduler) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	entries, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading spawn entries: %w", err)
	}

	s.mu.Lock()
	s.setEntries(entries)
	s.mu.Unlock()

	slog.Info("spawn entries loaded from store", "count", len(entries))
	return nil
}

// Bootstrap fills every entry up to MaxCount, ignoring respawn delays.
// Live NPCs already in the world count towards the cap.
func (s *Scheduler) Bootstrap(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bootstrapLocked(ctx)
}

func (s *Scheduler) bootstrapLocked(ctx context.Context) (int, error) {
	now := s.now()
	total := 0
	var errs []error

	for _, e := range s.entries {
		n, err := s.track(e, func() (int, error) {
			return s.reconciler.Fill(ctx, e, now)
		})
		total += n
		if err != nil {
			errs = append(errs, fmt.Errorf("bootstrapping entry %s: %w", e.ID, err))
		}
		s.markDirty(e)
	}
	s.flush(ctx)

	slog.Info("spawn bootstrap completed",
		"entries", len(s.entries),
		"spawned", total,
		"failed", len(errs))

	return total, errors.Join(errs...)
}

// ForceRespawn tops up every entry bound to the room, bypassing respawn
// delays but never exceeding MaxCount. Entries at capacity are untouched.
func (s *Scheduler) ForceRespawn(ctx context.Context, ref model.RoomRef) (int, error) {
	target, err := s.resolver.ResolveRef(ref)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.entriesInRoom(ref, target)
	if len(matched) == 0 {
		return 0, fmt.Errorf("%w: room %s", ErrNoEntries, ref)
	}

	now := s.now()
	total := 0
	var errs []error
	for _, e := range matched {
		n, err := s.track(e, func() (int, error) {
			return s.reconciler.Fill(ctx, e, now)
		})
		total += n
		if err != nil {
			errs = append(errs, err)
		}
		s.markDirty(e)
	}
	s.flush(ctx)

	slog.Info("forced respawn",
		"room", ref.String(),
		"entries", len(matched),
		"spawned", total)

	return total, errors.Join(errs...)
}

// ResetArea despawns every NPC of the area's entries, drops their pending
// deaths and repopulates them to MaxCount.
func (s *Scheduler) ResetArea(ctx context.Context, area string) (int, error) {
	area = strings.ToLower(strings.TrimSpace(area))

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*model.SpawnEntry
	for _, e := range s.entries {
		if e.Area == area {
			matched = append(matched, e)
		}
	}
	if len(matched) == 0 {
		return 0, fmt.Errorf("%w: area %q", ErrNoEntries, area)
	}

	now := s.now()
	despawned, total := 0, 0
	var errs []error
	for _, e := range matched {
		e.ForgetRoom()
		n, err := s.track(e, func() (int, error) {
			return s.reconciler.Clear(e)
		})
		despawned += n
		if err != nil {
			errs = append(errs, err)
			s.markDirty(e)
			continue
		}

		n, err = s.track(e, func() (int, error) {
			return s.reconciler.Fill(ctx, e, now)
		})
		total += n
		if err != nil {
			errs = append(errs, err)
		}
		s.markDirty(e)
	}
	s.flush(ctx)

	slog.Info("area reset",
		"area", area,
		"entries", len(matched),
		"despawned", despawned,
		"spawned", total)

	return total, errors.Join(errs...)
}

// Reload discards the entry set, rebuilds it from declarations and bootstraps it.
// NPCs of entries that are no longer declared stay in the world unscheduled.
func (s *Scheduler) Reload(ctx context.Context, decls []model.Declaration) (int, error) {
	entries := make([]*model.SpawnEntry, 0, len(decls))
	for i, decl := range decls {
		e, err := model.NewSpawnEntry(decl)
		if err != nil {
			slog.Error("skipping spawn declaration", "index", i, "error", err)
			continue
		}
		entries = append(entries, e)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		if err := s.store.ReplaceAll(ctx, entries); err != nil {
			return 0, fmt.Errorf("replacing stored spawn entries: %w", err)
		}
	}
	s.setEntries(entries)

	slog.Info("spawn entries reloaded", "declared", len(decls), "entries", len(entries))
	return s.bootstrapLocked(ctx)
}

// Register adds one entry and fills it immediately.
func (s *Scheduler) Register(ctx context.Context, decl model.Declaration) (model.EntrySummary, error) {
	e, err := model.NewSpawnEntry(decl)
	if err != nil {
		return model.EntrySummary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, e)
	s.index[e.ID] = e

	_, fillErr := s.track(e, func() (int, error) {
		return s.reconciler.Fill(ctx, e, s.now())
	})
	s.markDirty(e)
	s.flush(ctx)

	slog.Info("spawn entry registered",
		"entryID", e.ID,
		"area", e.Area,
		"template", e.Template.String(),
		"room", e.Room.String(),
		"maxCount", e.MaxCount)

	return e.Summary(), fillErr
}

// Remove drops one entry from scheduling. Its NPCs stay in the world.
func (s *Scheduler) Remove(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	s.untrack(e)
	delete(s.index, id)
	delete(s.dirty, id)
	s.entries = slices.DeleteFunc(s.entries, func(x *model.SpawnEntry) bool { return x == e })

	if s.store != nil {
		if err := s.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("deleting spawn entry %s: %w", id, err)
		}
	}

	slog.Info("spawn entry removed", "entryID", id, "area", e.Area)
	return nil
}

// List returns summaries of the entries matching the filter.
func (s *Scheduler) List(filter ListFilter) []model.EntrySummary {
	var target model.Room
	if !filter.Room.IsZero() {
		target, _ = s.resolver.ResolveRef(filter.Room)
	}
	area := strings.ToLower(strings.TrimSpace(filter.Area))

	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := s.entries
	if !filter.Room.IsZero() {
		candidates = s.entriesInRoom(filter.Room, target)
	}

	out := make([]model.EntrySummary, 0, len(candidates))
	for _, e := range candidates {
		if area != "" && e.Area != area {
			continue
		}
		out = append(out, e.Summary())
	}
	return out
}

// Entry returns the summary of one entry.
func (s *Scheduler) Entry(id uuid.UUID) (model.EntrySummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.index[id]
	if !ok {
		return model.EntrySummary{}, false
	}
	return e.Summary(), true
}

// EntryCount returns number of scheduled entries.
func (s *Scheduler) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// entriesInRoom matches by resolved room when possible, otherwise by declared identity.
// Must be called with s.mu held.
func (s *Scheduler) entriesInRoom(ref model.RoomRef, target model.Room) []*model.SpawnEntry {
	var out []*model.SpawnEntry
	for _, e := range s.entries {
		if target != nil {
			if room, ok := s.resolver.Resolve(e); ok && room.RoomID() == target.RoomID() {
				out = append(out, e)
				continue
			}
		}
		if e.Room.Same(ref) {
			out = append(out, e)
		}
	}
	return out
}

// setEntries must be called with s.mu held.
func (s *Scheduler) setEntries(entries []*model.SpawnEntry) {
	s.entries = entries
	s.index = make(map[uuid.UUID]*model.SpawnEntry, len(entries))
	s.owners = make(map[uint32]*model.SpawnEntry)
	s.dirty = make(map[uuid.UUID]struct{})
	for _, e := range entries {
		s.index[e.ID] = e
		for _, objectID := range e.ActiveIDs {
			s.owners[objectID] = e
		}
	}
}

// track runs op and refreshes the objectID → entry index for e.
// Must be called with s.mu held.
func (s *Scheduler) track(e *model.SpawnEntry, op func() (int, error)) (int, error) {
	s.untrack(e)
	n, err := op()
	for _, objectID := range e.ActiveIDs {
		s.owners[objectID] = e
	}
	return n, err
}

func (s *Scheduler) untrack(e *model.SpawnEntry) {
	for _, objectID := range e.ActiveIDs {
		if s.owners[objectID] == e {
			delete(s.owners, objectID)
		}
	}
}

func (s *Scheduler) markDirty(e *model.SpawnEntry) {
	s.dirty[e.ID] = struct{}{}
}

// flush persists dirty entries. Store failures are logged, never fatal:
// the entries stay dirty and are retried on the next flush.
// Must be called with s.mu held.
func (s *Scheduler) flush(ctx context.Context) {
	if s.store == nil || len(s.dirty) == 0 {
		clear(s.dirty)
		return
	}

	batch := make([]*model.SpawnEntry, 0, len(s.dirty))
	for id := range s.dirty {
		if e, ok := s.index[id]; ok {
			batch = append(batch, e)
		}
	}

	if err := s.store.SaveAll(ctx, batch); err != nil {
		slog.Error("persisting spawn entries", "count", len(batch), "error", err)
		return
	}
	clear(s.dirty)
}
