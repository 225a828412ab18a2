package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/udisondev/npcspawn/internal/model"
)

const upsertSpawnEntrySQLite = `
	INSERT INTO spawn_entries
	 (id, area, template_ref, room_ref, max_count, respawn_delay, pending_deaths, last_spawn_at, disabled)
	 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	 ON CONFLICT (id) DO UPDATE SET
	  area=excluded.area, template_ref=excluded.template_ref, room_ref=excluded.room_ref,
	  max_count=excluded.max_count, respawn_delay=excluded.respawn_delay,
	  pending_deaths=excluded.pending_deaths, last_spawn_at=excluded.last_spawn_at,
	  disabled=excluded.disabled`

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLiteSpawnRepository stores spawn entries in an embedded SQLite database.
type SQLiteSpawnRepository struct {
	conn *sqlx.DB
}

// OpenSQLite opens or creates a SQLite database at path and applies migrations.
// ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteSpawnRepository, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Single writer; for :memory: every connection would be a separate database.
	conn.SetMaxOpenConns(1)

	if err := RunSQLiteMigrations(ctx, conn.DB); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
	}

	return NewSQLiteSpawnRepository(conn), nil
}

// NewSQLiteSpawnRepository wraps an already migrated connection.
func NewSQLiteSpawnRepository(conn *sqlx.DB) *SQLiteSpawnRepository {
	return &SQLiteSpawnRepository{conn: conn}
}

// Close closes the database connection.
func (r *SQLiteSpawnRepository) Close() error {
	return r.conn.Close()
}

// LoadAll loads every spawn entry. Malformed rows are logged and skipped.
func (r *SQLiteSpawnRepository) LoadAll(ctx context.Context) ([]*model.SpawnEntry, error) {
	var rows []entryRow
	err := r.conn.SelectContext(ctx, &rows, `
		SELECT id, area, template_ref, room_ref, max_count, respawn_delay,
		       pending_deaths, last_spawn_at, disabled
		FROM spawn_entries
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("loading spawn entries: %w", err)
	}
	return decodeRows("sqlite", rows), nil
}

// SaveAll upserts the given entries in a single transaction.
func (r *SQLiteSpawnRepository) SaveAll(ctx context.Context, entries []*model.SpawnEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := r.upsert(ctx, tx, entries); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit spawn entries: %w", err)
	}
	return nil
}

// ReplaceAll atomically replaces the stored entry set.
func (r *SQLiteSpawnRepository) ReplaceAll(ctx context.Context, entries []*model.SpawnEntry) error {
	tx, err := r.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM spawn_entries`); err != nil {
		return fmt.Errorf("clearing spawn entries: %w", err)
	}
	if err := r.upsert(ctx, tx, entries); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit spawn entries: %w", err)
	}
	return nil
}

// Delete removes one entry. Deleting a missing entry is not an error.
func (r *SQLiteSpawnRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.conn.ExecContext(ctx, `DELETE FROM spawn_entries WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("deleting spawn entry %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteSpawnRepository) upsert(ctx context.Context, tx *sqlx.Tx, entries []*model.SpawnEntry) error {
	if len(entries) == 0 {
		return nil
	}

	stmt, err := tx.PreparexContext(ctx, upsertSpawnEntrySQLite)
	if err != nil {
		return fmt.Errorf("preparing spawn entry upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		row, err := encodeEntry(e)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			row.ID, row.Area, row.TemplateRef, row.RoomRef, row.MaxCount,
			row.RespawnDelay, string(row.PendingDeaths), row.LastSpawnAt, row.Disabled,
		); err != nil {
			return fmt.Errorf("saving spawn entry %s: %w", row.ID, err)
		}
	}
	return nil
}
