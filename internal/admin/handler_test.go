package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/npcspawn/internal/model"
	"github.com/udisondev/npcspawn/internal/spawn"
	"github.com/udisondev/npcspawn/internal/testutil"
	"github.com/udisondev/npcspawn/internal/world"
)

const testAPIKey = "secret"

// staticSource — источник деклараций для reload.
type staticSource struct {
	decls []model.Declaration
	err   error
}

func (s *staticSource) Declarations(_ context.Context) ([]model.Declaration, error) {
	return s.decls, s.err
}

type fixture struct {
	app       *fiber.App
	world     *world.World
	scheduler *spawn.Scheduler
	source    *staticSource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	w := testutil.NewWorld(t, nil)

	s := spawn.NewScheduler(spawn.Config{TickInterval: time.Second, BatchSize: 1}, spawn.Deps{
		Rooms:     w,
		Templates: w,
		Factory:   w,
		World:     w,
	}, nil)
	w.OnDeath(s.OnDeath)

	src := &staticSource{decls: []model.Declaration{
		{Area: "talking_island", Template: model.TemplateByID(1000), Room: model.RoomByID(1), MaxCount: 2, RespawnDelay: time.Minute},
		{Area: "talking_island", Template: model.TemplateByKey("wolf"), Room: model.RoomByKey("elven_forest"), MaxCount: 1, RespawnDelay: time.Minute},
	}}

	app := NewApp(NewHandler(s, src, w), testAPIKey)
	return &fixture{app: app, world: w, scheduler: s, source: src}
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(APIKeyHeader, testAPIKey)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decodeOp(t *testing.T, data []byte) OpResult {
	t.Helper()
	var res OpResult
	require.NoError(t, json.Unmarshal(data, &res))
	return res
}

func TestHandler_Health(t *testing.T) {
	f := newFixture(t)

	// Без ключа.
	resp, err := f.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var h Health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, "ok", h.Status)
	assert.Zero(t, h.Entries)
}

func TestHandler_RequiresAPIKey(t *testing.T) {
	f := newFixture(t)

	for _, key := range []string{"", "wrong"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil)
		if key != "" {
			req.Header.Set(APIKeyHeader, key)
		}
		resp, err := f.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "key %q", key)
	}
}

func TestHandler_NoAPIKeyConfigured(t *testing.T) {
	f := newFixture(t)
	app := NewApp(NewHandler(f.scheduler, nil, nil), "")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandler_Reload(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodPost, "/api/v1/reload", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, decodeOp(t, body).Spawned)
	assert.Equal(t, 3, f.world.NpcCount())
	assert.Equal(t, 2, f.scheduler.EntryCount())

	f.source.err = errors.New("bucket unavailable")
	status, body = f.do(t, http.MethodPost, "/api/v1/reload", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, decodeOp(t, body).Error, "bucket unavailable")
	assert.Equal(t, 2, f.scheduler.EntryCount(), "failed reload keeps entries")
}

func TestHandler_Reload_NoSource(t *testing.T) {
	f := newFixture(t)
	app := NewApp(NewHandler(f.scheduler, nil, nil), "")

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/reload", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestHandler_ForceRespawn(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/v1/reload", "")

	ids := f.world.LiveNpcs(model.TemplateByID(1000), mustRoom(t, f.world, 1))
	require.Len(t, ids, 2)
	require.NoError(t, f.world.Kill(ids[0]))

	tests := []struct {
		name        string
		room        string
		wantStatus  int
		wantSpawned int
	}{
		{"by id", "1", http.StatusOK, 1},
		{"by key, nothing missing", "village_square", http.StatusOK, 0},
		{"unknown room", "nowhere", http.StatusNotFound, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.do(t, http.MethodPost, "/api/v1/rooms/"+tt.room+"/respawn", "")
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantSpawned, decodeOp(t, body).Spawned)
		})
	}
}

func TestHandler_ResetArea(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/v1/reload", "")
	before := f.world.LiveNpcs(model.TemplateByID(1000), mustRoom(t, f.world, 1))

	status, body := f.do(t, http.MethodPost, "/api/v1/areas/talking_island/reset", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, decodeOp(t, body).Spawned)

	after := f.world.LiveNpcs(model.TemplateByID(1000), mustRoom(t, f.world, 1))
	assert.Len(t, after, 2)
	assert.NotElementsMatch(t, before, after, "reset replaces NPCs")

	status, _ = f.do(t, http.MethodPost, "/api/v1/areas/gludio/reset", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHandler_Entries(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/v1/reload", "")

	status, body := f.do(t, http.MethodGet, "/api/v1/entries", "")
	require.Equal(t, http.StatusOK, status)
	var all []model.EntrySummary
	require.NoError(t, json.Unmarshal(body, &all))
	assert.Len(t, all, 2)

	status, body = f.do(t, http.MethodGet, "/api/v1/entries?room=elven_forest", "")
	require.Equal(t, http.StatusOK, status)
	var inRoom []model.EntrySummary
	require.NoError(t, json.Unmarshal(body, &inRoom))
	require.Len(t, inRoom, 1)
	assert.Equal(t, 1, inRoom[0].Live)

	status, body = f.do(t, http.MethodGet, "/api/v1/entries/"+inRoom[0].ID.String(), "")
	require.Equal(t, http.StatusOK, status)
	var one model.EntrySummary
	require.NoError(t, json.Unmarshal(body, &one))
	assert.Equal(t, inRoom[0].ID, one.ID)

	status, _ = f.do(t, http.MethodGet, "/api/v1/entries/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodGet, "/api/v1/entries/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandler_RegisterAndRemove(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodPost, "/api/v1/entries",
		`{"area":"talking_island","template":"wolf","room":2,"max_count":3,"respawn_delay":30}`)
	require.Equal(t, http.StatusCreated, status, string(body))

	var sum model.EntrySummary
	require.NoError(t, json.Unmarshal(body, &sum))
	assert.Equal(t, 3, sum.Live)
	assert.EqualValues(t, 30, sum.RespawnDelaySeconds)
	assert.Equal(t, 3, f.world.NpcCount())

	status, _ = f.do(t, http.MethodDelete, "/api/v1/entries/"+sum.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, status)
	assert.Zero(t, f.scheduler.EntryCount())
	assert.Equal(t, 3, f.world.NpcCount(), "removal keeps NPCs")

	status, _ = f.do(t, http.MethodDelete, "/api/v1/entries/"+sum.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHandler_RegisterRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"broken json", `{"area":`, http.StatusBadRequest},
		{"missing template", `{"area":"ti","room":1,"max_count":1}`, http.StatusBadRequest},
		{"fractional room", `{"area":"ti","template":1000,"room":1.5,"max_count":1}`, http.StatusBadRequest},
		{"negative cap", `{"area":"ti","template":1000,"room":1,"max_count":-1}`, http.StatusBadRequest},
		{"negative delay", `{"area":"ti","template":1000,"room":1,"max_count":1,"respawn_delay":-1}`, http.StatusBadRequest},
		{"empty area", `{"area":"","template":1000,"room":1,"max_count":1}`, http.StatusBadRequest},
		{"cap above limit", `{"area":"ti","template":1000,"room":1,"max_count":10001}`, http.StatusBadRequest},
		{"cap overflows int32", `{"area":"ti","template":1000,"room":1,"max_count":3000000000}`, http.StatusBadRequest},
		{"delay above limit", `{"area":"ti","template":1000,"room":1,"max_count":1,"respawn_delay":2592001}`, http.StatusBadRequest},
		{"delay overflows duration", `{"area":"ti","template":1000,"room":1,"max_count":1,"respawn_delay":1e300}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := f.do(t, http.MethodPost, "/api/v1/entries", tt.body)
			assert.Equal(t, tt.want, status)
		})
	}
	assert.Zero(t, f.scheduler.EntryCount())
}

func TestRegisterRequest_DeclarationLimits(t *testing.T) {
	req := RegisterRequest{Area: "ti", Template: 1000, Room: 1, MaxCount: MaxRegisterCount, RespawnDelay: MaxRespawnDelaySec}

	decl, err := req.declaration()
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, decl.RespawnDelay)
	assert.EqualValues(t, MaxRegisterCount, decl.MaxCount)

	req.MaxCount++
	_, err = req.declaration()
	assert.ErrorIs(t, err, model.ErrMalformedEntry)

	req.MaxCount = 1
	req.RespawnDelay = 1e300
	_, err = req.declaration()
	assert.ErrorIs(t, err, model.ErrMalformedEntry)
}

func TestHandler_NpcDeath(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/v1/reload", "")

	ids := f.world.LiveNpcs(model.TemplateByID(1000), mustRoom(t, f.world, 1))
	require.NotEmpty(t, ids)

	status, _ := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/npcs/%d/death", ids[0]), "")
	assert.Equal(t, http.StatusNoContent, status)

	var pending int
	for _, sum := range f.scheduler.List(spawn.ListFilter{}) {
		pending += sum.Pending
	}
	assert.Equal(t, 1, pending)

	status, _ = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/npcs/%d/death", ids[0]), "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodPost, "/api/v1/npcs/abc/death", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", spawn.ErrNoEntries), http.StatusNotFound},
		{spawn.ErrUnresolvableRoom, http.StatusNotFound},
		{world.ErrNpcNotFound, http.StatusNotFound},
		{model.ErrInvalidRoomRef, http.StatusBadRequest},
		{spawn.ErrUnknownTemplate, http.StatusConflict},
		{&spawn.FactoryError{Err: errors.New("boom")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "%v", tt.err)
	}
}

func mustRoom(t *testing.T, w *world.World, id int64) model.Room {
	t.Helper()
	room, ok := w.RoomByID(id)
	require.True(t, ok)
	return room
}
