// Package admin exposes the spawn scheduler's administrative operations over HTTP.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/udisondev/npcspawn/internal/model"
	"github.com/udisondev/npcspawn/internal/spawn"
	"github.com/udisondev/npcspawn/internal/world"
)

// Scheduler is the administrative surface of *spawn.Scheduler.
type Scheduler interface {
	ReloadFrom(ctx context.Context, src spawn.DeclarationSource) (int, error)
	ForceRespawn(ctx context.Context, ref model.RoomRef) (int, error)
	ResetArea(ctx context.Context, area string) (int, error)
	List(filter spawn.ListFilter) []model.EntrySummary
	Entry(id uuid.UUID) (model.EntrySummary, bool)
	Register(ctx context.Context, decl model.Declaration) (model.EntrySummary, error)
	Remove(ctx context.Context, id uuid.UUID) error
	EntryCount() int
	TickCount() uint64
}

// Killer reports NPC deaths to the world (which notifies the scheduler).
type Killer interface {
	Kill(objectID uint32) error
}

// Handler handles administrative HTTP requests.
type Handler struct {
	scheduler Scheduler
	source    spawn.DeclarationSource
	killer    Killer
}

// NewHandler creates a new HTTP handler. source and killer may be nil;
// the corresponding routes then answer 501.
func NewHandler(scheduler Scheduler, source spawn.DeclarationSource, killer Killer) *Handler {
	return &Handler{scheduler: scheduler, source: source, killer: killer}
}

// RegisterRoutes registers the admin routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/api/v1")
	group.Post("/reload", h.HandleReload)
	group.Post("/rooms/:room/respawn", h.HandleForceRespawn)
	group.Post("/areas/:area/reset", h.HandleResetArea)
	group.Get("/entries", h.HandleListEntries)
	group.Get("/entries/:id", h.HandleGetEntry)
	group.Post("/entries", h.HandleRegisterEntry)
	group.Delete("/entries/:id", h.HandleRemoveEntry)
	group.Post("/npcs/:id/death", h.HandleNpcDeath)
}

// HandleHealth reports liveness and scheduler counters.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"entries": h.scheduler.EntryCount(),
		"ticks":   h.scheduler.TickCount(),
	})
}

// HandleReload re-reads declarations from the configured source.
func (h *Handler) HandleReload(c *fiber.Ctx) error {
	if h.source == nil {
		return fail(c, fiber.StatusNotImplemented, errors.New("no declaration source configured"))
	}

	spawned, err := h.scheduler.ReloadFrom(c.UserContext(), h.source)
	return result(c, spawned, err)
}

// HandleForceRespawn tops up every entry of a room immediately.
func (h *Handler) HandleForceRespawn(c *fiber.Ctx) error {
	ref, err := model.ParseRoomRef(c.Params("room"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}

	spawned, err := h.scheduler.ForceRespawn(c.UserContext(), ref)
	return result(c, spawned, err)
}

// HandleResetArea hard-resets every entry of an area.
func (h *Handler) HandleResetArea(c *fiber.Ctx) error {
	spawned, err := h.scheduler.ResetArea(c.UserContext(), c.Params("area"))
	return result(c, spawned, err)
}

// HandleListEntries lists entries, optionally filtered by ?room= and ?area=.
func (h *Handler) HandleListEntries(c *fiber.Ctx) error {
	var filter spawn.ListFilter
	if room := c.Query("room"); room != "" {
		ref, err := model.ParseRoomRef(room)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, err)
		}
		filter.Room = ref
	}
	filter.Area = c.Query("area")

	return c.JSON(h.scheduler.List(filter))
}

// HandleGetEntry returns one entry.
func (h *Handler) HandleGetEntry(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}

	sum, ok := h.scheduler.Entry(id)
	if !ok {
		return fail(c, fiber.StatusNotFound, spawn.ErrEntryNotFound)
	}
	return c.JSON(sum)
}

// Limits for entries registered over the API.
const (
	MaxRegisterCount   = 10_000
	MaxRespawnDelaySec = 30 * 24 * 60 * 60
)

// RegisterRequest is the body of POST /entries.
type RegisterRequest struct {
	Area         string  `json:"area"`
	Template     any     `json:"template"`
	Room         any     `json:"room"`
	MaxCount     int32   `json:"max_count"`
	RespawnDelay float64 `json:"respawn_delay"` // seconds
}

// HandleRegisterEntry adds one entry and fills it.
func (h *Handler) HandleRegisterEntry(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}

	decl, err := req.declaration()
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}

	sum, err := h.scheduler.Register(c.UserContext(), decl)
	if err != nil && sum.ID == uuid.Nil {
		return fail(c, statusFor(err), err)
	}
	if err != nil {
		// Registered, but the initial fill was incomplete.
		slog.Warn("spawn entry registered with errors", "entryID", sum.ID, "error", err)
	}
	return c.Status(fiber.StatusCreated).JSON(sum)
}

// HandleRemoveEntry drops one entry.
func (h *Handler) HandleRemoveEntry(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}

	if err := h.scheduler.Remove(c.UserContext(), id); err != nil {
		return fail(c, statusFor(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleNpcDeath kills a live NPC; the scheduler records the death.
func (h *Handler) HandleNpcDeath(c *fiber.Ctx) error {
	if h.killer == nil {
		return fail(c, fiber.StatusNotImplemented, errors.New("no world attached"))
	}

	objectID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}

	if err := h.killer.Kill(uint32(objectID)); err != nil {
		return fail(c, statusFor(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (r RegisterRequest) declaration() (model.Declaration, error) {
	tmpl, err := model.ParseTemplateRef(r.Template)
	if err != nil {
		return model.Declaration{}, err
	}
	room, err := model.ParseRoomRef(r.Room)
	if err != nil {
		return model.Declaration{}, err
	}
	if r.MaxCount > MaxRegisterCount {
		return model.Declaration{}, fmt.Errorf("%w: max_count %d above %d", model.ErrMalformedEntry, r.MaxCount, MaxRegisterCount)
	}
	if r.RespawnDelay < 0 {
		return model.Declaration{}, errors.Join(model.ErrMalformedEntry, errors.New("negative respawn_delay"))
	}
	if r.RespawnDelay > MaxRespawnDelaySec {
		return model.Declaration{}, fmt.Errorf("%w: respawn_delay %g above %d seconds", model.ErrMalformedEntry, r.RespawnDelay, MaxRespawnDelaySec)
	}

	return model.Declaration{
		Area:         r.Area,
		Template:     tmpl,
		Room:         room,
		MaxCount:     r.MaxCount,
		RespawnDelay: time.Duration(r.RespawnDelay * float64(time.Second)),
	}, nil
}

// result writes the outcome of a spawning operation. Partial success keeps
// the spawned count in the body next to the error.
func result(c *fiber.Ctx, spawned int, err error) error {
	if err == nil {
		return c.JSON(fiber.Map{"spawned": spawned})
	}
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"spawned": spawned,
		"error":   err.Error(),
	})
}

func fail(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, spawn.ErrNoEntries),
		errors.Is(err, spawn.ErrUnresolvableRoom),
		errors.Is(err, spawn.ErrEntryNotFound),
		errors.Is(err, world.ErrNpcNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, model.ErrMalformedEntry),
		errors.Is(err, model.ErrInvalidRoomRef),
		errors.Is(err, model.ErrInvalidTemplateRef):
		return fiber.StatusBadRequest
	case errors.Is(err, spawn.ErrUnknownTemplate):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
