package db

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/udisondev/npcspawn/internal/model"
)

// entryRow is the persisted form of a spawn entry, shared by every store.
// ActiveIDs are never stored: they are re-derived from the world on bootstrap.
type entryRow struct {
	ID            string `db:"id"`
	Area          string `db:"area"`
	TemplateRef   string `db:"template_ref"`
	RoomRef       string `db:"room_ref"`
	MaxCount      int32  `db:"max_count"`
	RespawnDelay  int64  `db:"respawn_delay"` // seconds
	PendingDeaths []byte `db:"pending_deaths"`
	LastSpawnAt   int64  `db:"last_spawn_at"` // unix millis, 0 = never
	Disabled      bool   `db:"disabled"`
}

func encodeEntry(e *model.SpawnEntry) (entryRow, error) {
	pending := e.PendingDeaths
	if pending == nil {
		pending = []model.PendingDeath{}
	}
	deaths, err := json.Marshal(pending)
	if err != nil {
		return entryRow{}, fmt.Errorf("encoding pending deaths of %s: %w", e.ID, err)
	}

	var lastSpawn int64
	if !e.LastSpawnAt.IsZero() {
		lastSpawn = e.LastSpawnAt.UnixMilli()
	}

	return entryRow{
		ID:            e.ID.String(),
		Area:          e.Area,
		TemplateRef:   e.Template.String(),
		RoomRef:       e.Room.Persistable().String(),
		MaxCount:      e.MaxCount,
		RespawnDelay:  int64(e.RespawnDelay / time.Second),
		PendingDeaths: deaths,
		LastSpawnAt:   lastSpawn,
		Disabled:      e.Disabled,
	}, nil
}

func decodeEntry(row entryRow) (*model.SpawnEntry, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: id %q: %v", model.ErrMalformedEntry, row.ID, err)
	}
	tmpl, err := model.ParseTemplateRef(row.TemplateRef)
	if err != nil {
		return nil, fmt.Errorf("%w: entry %s: %v", model.ErrMalformedEntry, id, err)
	}
	room, err := model.ParseRoomRef(row.RoomRef)
	if err != nil {
		return nil, fmt.Errorf("%w: entry %s: %v", model.ErrMalformedEntry, id, err)
	}

	decl := model.Declaration{
		Area:         row.Area,
		Template:     tmpl,
		Room:         room,
		MaxCount:     row.MaxCount,
		RespawnDelay: time.Duration(row.RespawnDelay) * time.Second,
	}
	if err := decl.Validate(); err != nil {
		return nil, fmt.Errorf("entry %s: %w", id, err)
	}

	var pending []model.PendingDeath
	if len(row.PendingDeaths) > 0 {
		if err := json.Unmarshal(row.PendingDeaths, &pending); err != nil {
			return nil, fmt.Errorf("%w: entry %s pending deaths: %v", model.ErrMalformedEntry, id, err)
		}
	}
	for i := range pending {
		pending[i].DiedAt = pending[i].DiedAt.UTC()
	}

	var lastSpawn time.Time
	if row.LastSpawnAt > 0 {
		lastSpawn = time.UnixMilli(row.LastSpawnAt).UTC()
	}

	return &model.SpawnEntry{
		ID:            id,
		Area:          row.Area,
		Template:      tmpl,
		Room:          room,
		MaxCount:      row.MaxCount,
		RespawnDelay:  decl.RespawnDelay,
		PendingDeaths: pending,
		LastSpawnAt:   lastSpawn,
		Disabled:      row.Disabled,
	}, nil
}

// decodeRows converts rows to entries, dropping malformed ones with an error log.
func decodeRows(store string, rows []entryRow) []*model.SpawnEntry {
	entries := make([]*model.SpawnEntry, 0, len(rows))
	for _, row := range rows {
		e, err := decodeEntry(row)
		if err != nil {
			slog.Error("dropping malformed spawn entry row",
				"store", store,
				"id", row.ID,
				"error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries
}
