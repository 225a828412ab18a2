package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/npcspawn/internal/model"
)

const upsertSpawnEntryPG = `
	INSERT INTO spawn_entries
	 (id, area, template_ref, room_ref, max_count, respawn_delay, pending_deaths, last_spawn_at, disabled)
	 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	 ON CONFLICT (id) DO UPDATE SET
	  area=$2, template_ref=$3, room_ref=$4, max_count=$5, respawn_delay=$6,
	  pending_deaths=$7, last_spawn_at=$8, disabled=$9`

// SpawnRepository stores spawn entries in PostgreSQL.
type SpawnRepository struct {
	pool *pgxpool.Pool
}

// NewSpawnRepository creates a new spawn repository.
func NewSpawnRepository(pool *pgxpool.Pool) *SpawnRepository {
	return &SpawnRepository{pool: pool}
}

// LoadAll loads every spawn entry. Malformed rows are logged and skipped.
func (r *SpawnRepository) LoadAll(ctx context.Context) ([]*model.SpawnEntry, error) {
	query := `
		SELECT id::text, area, template_ref, room_ref, max_count, respawn_delay,
		       pending_deaths, last_spawn_at, disabled
		FROM spawn_entries
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("loading spawn entries: %w", err)
	}
	defer rows.Close()

	result := make([]entryRow, 0, 64)
	for rows.Next() {
		var row entryRow
		if err := rows.Scan(
			&row.ID, &row.Area, &row.TemplateRef, &row.RoomRef, &row.MaxCount,
			&row.RespawnDelay, &row.PendingDeaths, &row.LastSpawnAt, &row.Disabled,
		); err != nil {
			return nil, fmt.Errorf("scanning spawn entry row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating spawn entry rows: %w", err)
	}

	return decodeRows("postgres", result), nil
}

// SaveAll upserts the given entries in a single transaction.
func (r *SpawnRepository) SaveAll(ctx context.Context, entries []*model.SpawnEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := upsertEntries(ctx, tx, entries); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit spawn entries: %w", err)
	}
	return nil
}

// ReplaceAll atomically replaces the stored entry set.
func (r *SpawnRepository) ReplaceAll(ctx context.Context, entries []*model.SpawnEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM spawn_entries`); err != nil {
		return fmt.Errorf("clearing spawn entries: %w", err)
	}
	if err := upsertEntries(ctx, tx, entries); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit spawn entries: %w", err)
	}
	return nil
}

// Delete removes one entry. Deleting a missing entry is not an error.
func (r *SpawnRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM spawn_entries WHERE id = $1`, id.String()); err != nil {
		return fmt.Errorf("deleting spawn entry %s: %w", id, err)
	}
	return nil
}

func upsertEntries(ctx context.Context, tx pgx.Tx, entries []*model.SpawnEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		row, err := encodeEntry(e)
		if err != nil {
			return err
		}
		batch.Queue(upsertSpawnEntryPG,
			row.ID, row.Area, row.TemplateRef, row.RoomRef, row.MaxCount,
			row.RespawnDelay, row.PendingDeaths, row.LastSpawnAt, row.Disabled,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range entries {
		if _, err := br.Exec(); err != nil {
			br.Close() //nolint:errcheck
			return fmt.Errorf("save spawn entry batch: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close spawn entry batch: %w", err)
	}
	return nil
}
