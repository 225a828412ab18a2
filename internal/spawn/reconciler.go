package spawn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/udisondev/npcspawn/internal/model"
)

// Reconciler closes the gap between an entry's cap and its live population.
type Reconciler struct {
	resolver  *RoomResolver
	templates TemplateDirectory
	factory   EntityFactory
	world     WorldQuery
}

// NewReconciler creates a reconciler.
func NewReconciler(resolver *RoomResolver, templates TemplateDirectory, factory EntityFactory, world WorldQuery) *Reconciler {
	return &Reconciler{
		resolver:  resolver,
		templates: templates,
		factory:   factory,
		world:     world,
	}
}

// Reconcile refreshes the entry from world state and spawns the NPCs whose
// respawn delay has elapsed. Returns the number of NPCs spawned and every
// error met on the way; a failed attempt keeps its slot pending.
//
// Calling it twice at the same instant with no new deaths spawns nothing the
// second time: the deficit is always recomputed from the queried live set.
func (r *Reconciler) Reconcile(ctx context.Context, e *model.SpawnEntry, now time.Time) (int, error) {
	if e.Disabled {
		return 0, nil
	}

	room, tmpl, err := r.prepare(e)
	if err != nil {
		return 0, err
	}

	live := r.observe(e, tmpl, room, now)
	ready, waiting := partitionPending(e.PendingDeaths, e.RespawnDelay, now)

	// Entry below cap with no tracked death behind the gap (cold start,
	// failed bootstrap): one slot per delay period. Waiting deaths already
	// account for their part of the gap.
	synthetic := false
	if len(ready) == 0 &&
		len(live)+len(waiting) < int(e.MaxCount) &&
		e.LastSpawnAt.Before(now) && now.Sub(e.LastSpawnAt) >= e.RespawnDelay {
		ready = []model.PendingDeath{{DiedAt: e.LastSpawnAt}}
		synthetic = true
	}

	toSpawn := min(int(e.MaxCount)-len(live), len(ready))
	consumed := make([]bool, len(ready))
	spawned := 0
	var errs []error

	for i := range max(toSpawn, 0) {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		objectID, err := r.factory.SpawnNpc(ctx, tmpl, room)
		if err != nil {
			errs = append(errs, r.spawnFailed(e, tmpl, err))
			continue
		}

		e.ActiveIDs = append(e.ActiveIDs, objectID)
		e.LastSpawnAt = now
		consumed[i] = true
		spawned++
	}

	pending := waiting
	if !synthetic {
		for i, p := range ready {
			if !consumed[i] {
				pending = append(pending, p)
			}
		}
	}
	slices.SortStableFunc(pending, func(a, b model.PendingDeath) int {
		return a.DiedAt.Compare(b.DiedAt)
	})
	e.PendingDeaths = pending

	if spawned > 0 {
		slog.Info("NPCs respawned",
			"entryID", e.ID,
			"template", e.Template.String(),
			"room", e.Room.String(),
			"spawned", spawned,
			"live", len(e.ActiveIDs),
			"maxCount", e.MaxCount)
	}

	return spawned, errors.Join(errs...)
}

// Fill spawns up to MaxCount immediately, ignoring the respawn delay.
// Each successful spawn consumes the oldest pending death.
func (r *Reconciler) Fill(ctx context.Context, e *model.SpawnEntry, now time.Time) (int, error) {
	if e.Disabled {
		return 0, fmt.Errorf("%w: %s disabled until reload", ErrUnknownTemplate, e.Template)
	}

	room, tmpl, err := r.prepare(e)
	if err != nil {
		return 0, err
	}

	live := r.observe(e, tmpl, room, now)
	deficit := int(e.MaxCount) - len(live)
	spawned := 0
	var errs []error

	for range max(deficit, 0) {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		objectID, err := r.factory.SpawnNpc(ctx, tmpl, room)
		if err != nil {
			errs = append(errs, r.spawnFailed(e, tmpl, err))
			continue
		}

		e.ActiveIDs = append(e.ActiveIDs, objectID)
		e.LastSpawnAt = now
		if len(e.PendingDeaths) > 0 {
			e.PendingDeaths = e.PendingDeaths[1:]
		}
		spawned++
	}

	return spawned, errors.Join(errs...)
}

// Clear despawns every live NPC attributed to the entry and drops its pending deaths.
func (r *Reconciler) Clear(e *model.SpawnEntry) (int, error) {
	room, ok := r.resolver.Resolve(e)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnresolvableRoom, e.Room)
	}

	// Pending deaths are superseded by the reset even if the template is gone.
	e.PendingDeaths = nil

	tmpl, ok := r.templates.CanonicalTemplate(e.Template)
	if !ok {
		e.ActiveIDs = nil
		return 0, fmt.Errorf("%w: %s", ErrUnknownTemplate, e.Template)
	}

	removed := 0
	var errs []error
	for _, objectID := range r.world.LiveNpcs(tmpl, room) {
		if err := r.world.Despawn(objectID); err != nil {
			errs = append(errs, fmt.Errorf("despawning %d for entry %s: %w", objectID, e.ID, err))
			continue
		}
		removed++
	}
	e.ActiveIDs = nil

	return removed, errors.Join(errs...)
}

// prepare resolves the room and canonical template of an entry.
// An unknown template disables the entry until the next reload.
func (r *Reconciler) prepare(e *model.SpawnEntry) (model.Room, model.TemplateRef, error) {
	room, ok := r.resolver.Resolve(e)
	if !ok {
		return nil, model.TemplateRef{}, fmt.Errorf("%w: %s", ErrUnresolvableRoom, e.Room)
	}

	tmpl, ok := r.templates.CanonicalTemplate(e.Template)
	if !ok {
		e.Disabled = true
		slog.Error("spawn entry template unknown, disabled until reload",
			"entryID", e.ID,
			"area", e.Area,
			"template", e.Template.String())
		return nil, model.TemplateRef{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, e.Template)
	}

	return room, tmpl, nil
}

// observe derives ActiveIDs from world state, despawning anything above the cap.
// NPCs attributed at the previous reconciliation that left the world without
// a recorded death are recorded as dead at now.
func (r *Reconciler) observe(e *model.SpawnEntry, tmpl model.TemplateRef, room model.Room, now time.Time) []uint32 {
	live := r.world.LiveNpcs(tmpl, room)
	recordVanished(e, live, now)

	if excess := len(live) - int(e.MaxCount); excess > 0 {
		kept := slices.Clone(live[:e.MaxCount])
		for _, objectID := range live[e.MaxCount:] {
			if err := r.world.Despawn(objectID); err != nil {
				slog.Warn("despawning NPC above cap",
					"entryID", e.ID,
					"objectID", objectID,
					"error", err)
				kept = append(kept, objectID)
			}
		}
		live = kept
	}

	e.ActiveIDs = slices.Clone(live)
	return live
}

// recordVanished turns attributed NPCs missing from live into pending deaths.
// A death notification arriving later for the same NPC is ignored.
func recordVanished(e *model.SpawnEntry, live []uint32, now time.Time) {
	vanished := 0
	for _, objectID := range e.ActiveIDs {
		if slices.Contains(live, objectID) || e.HasPendingDeath(objectID) {
			continue
		}
		e.PendingDeaths = append(e.PendingDeaths, model.PendingDeath{ObjectID: objectID, DiedAt: now})
		vanished++
	}
	if vanished == 0 {
		return
	}

	slices.SortStableFunc(e.PendingDeaths, func(a, b model.PendingDeath) int {
		return a.DiedAt.Compare(b.DiedAt)
	})
	slog.Debug("NPCs gone without death notification",
		"entryID", e.ID,
		"count", vanished,
		"respawnAt", now.Add(e.RespawnDelay).Format(time.RFC3339))
}

func (r *Reconciler) spawnFailed(e *model.SpawnEntry, tmpl model.TemplateRef, err error) error {
	if errors.Is(err, model.ErrRoomNotFound) {
		e.ForgetRoom()
	}

	slog.Error("spawn attempt failed",
		"entryID", e.ID,
		"template", tmpl.String(),
		"room", e.Room.String(),
		"error", err)

	return &FactoryError{EntryID: e.ID, Template: e.Template, Err: err}
}

// partitionPending splits pending deaths into those whose delay elapsed and the rest.
func partitionPending(pending []model.PendingDeath, delay time.Duration, now time.Time) (ready, waiting []model.PendingDeath) {
	for _, p := range pending {
		if !p.ReadyAt(delay).After(now) {
			ready = append(ready, p)
		} else {
			waiting = append(waiting, p)
		}
	}
	slices.SortStableFunc(ready, func(a, b model.PendingDeath) int {
		return a.DiedAt.Compare(b.DiedAt)
	})
	return ready, waiting
}
