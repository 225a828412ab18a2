package spawn

import (
	"context"
	"hash/fnv"
	"log/slog"
	"slices"
	"time"

	"github.com/udisondev/npcspawn/internal/model"
)

// TickReport summarizes one scheduler tick.
type TickReport struct {
	Tick     uint64
	Selected int
	Spawned  int
	Failed   int
}

// Run drives Tick on the configured interval (blocks until context is canceled).
// A tick never overlaps the previous one: the loop waits for Tick to return.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	slog.Info("spawn scheduler started",
		"interval", s.cfg.TickInterval,
		"batchSize", s.cfg.BatchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("spawn scheduler stopping")
			return ctx.Err()

		case <-ticker.C:
			report := s.Tick(ctx)
			if report.Spawned > 0 || report.Failed > 0 {
				slog.Debug("spawn tick",
					"tick", report.Tick,
					"selected", report.Selected,
					"spawned", report.Spawned,
					"failed", report.Failed)
			}
		}
	}
}

// Tick reconciles the entries of the current batch and persists them.
// With BatchSize N every entry is reconciled exactly once per N ticks.
func (s *Scheduler) Tick(ctx context.Context) TickReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tickCount++
	report := TickReport{Tick: s.tickCount}
	now := s.now()
	slot := int(s.tickCount % uint64(s.cfg.BatchSize))

	for _, e := range s.entries {
		if s.cfg.BatchSize > 1 && BatchSlot(s.batchRoom(e), s.cfg.BatchSize) != slot {
			continue
		}
		report.Selected++

		n, err := s.track(e, func() (int, error) {
			return s.reconciler.Reconcile(ctx, e, now)
		})
		report.Spawned += n
		if err != nil {
			report.Failed++
		}
		s.markDirty(e)
	}
	s.flush(ctx)

	return report
}

// TickCount returns number of ticks run so far.
func (s *Scheduler) TickCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickCount
}

// OnDeath records the death of an NPC owned by a scheduled entry.
// Unknown and already recorded object IDs are ignored.
func (s *Scheduler) OnDeath(objectID uint32, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.owners[objectID]
	if !ok {
		slog.Debug("death of unscheduled NPC ignored", "objectID", objectID)
		return
	}
	delete(s.owners, objectID)

	if e.HasPendingDeath(objectID) {
		return
	}

	e.PendingDeaths = append(e.PendingDeaths, model.PendingDeath{ObjectID: objectID, DiedAt: at})
	slices.SortStableFunc(e.PendingDeaths, func(a, b model.PendingDeath) int {
		return a.DiedAt.Compare(b.DiedAt)
	})
	e.ActiveIDs = slices.DeleteFunc(e.ActiveIDs, func(id uint32) bool { return id == objectID })
	s.markDirty(e)

	slog.Debug("NPC death recorded",
		"objectID", objectID,
		"entryID", e.ID,
		"respawnAt", at.Add(e.RespawnDelay).Format(time.RFC3339))
}

// BatchSlot returns the batch a room belongs to: a stable FNV-1a hash of
// the room identity modulo size.
func BatchSlot(room model.RoomRef, size int) int {
	if size <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(room.Persistable().String()))
	return int(h.Sum32() % uint32(size))
}

// batchRoom returns the canonical room of an entry for batching: the resolved
// room ID, or the declared reference while the room is unresolvable.
// Must be called with s.mu held.
func (s *Scheduler) batchRoom(e *model.SpawnEntry) model.RoomRef {
	if room := e.ResolvedRoom(); room != nil {
		return model.RoomByID(room.RoomID())
	}
	if room, err := s.resolver.ResolveRef(e.Room); err == nil {
		return model.RoomByID(room.RoomID())
	}
	return e.Room
}
