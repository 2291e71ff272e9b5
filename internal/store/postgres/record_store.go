// Package postgres provides the Postgres-backed record store.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/faarchive/journaliser/internal/journal"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS journals (
	journal_id    BIGINT PRIMARY KEY,
	is_deleted    BOOLEAN NOT NULL,
	archived_at   TIMESTAMPTZ NOT NULL,
	error_kind    TEXT,
	identity_used TEXT,
	payload_json  JSONB
)`

// StoreConfig controls the Postgres connection pool.
type StoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists one row per journal ID with upsert semantics.
type Store struct {
	pool pgxPool
}

// NewStore connects to Postgres and ensures the journals table exists.
func NewStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := &Store{pool: pool}
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewStoreWithPool(pool pgxPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// EnsureSchema creates the journals table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure journals schema: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// validate enforces the row invariant: a deleted row carries an error
// kind and no payload, a live row the reverse.
func validate(rec journal.PersistedRecord) error {
	hasError := rec.ErrorKind != nil
	hasPayload := rec.PayloadJSON != nil
	if rec.IsDeleted != hasError || hasError == hasPayload {
		return fmt.Errorf(
			"journal %d: invalid record: is_deleted=%v error_kind set=%v payload set=%v",
			rec.JournalID, rec.IsDeleted, hasError, hasPayload,
		)
	}
	return nil
}

// Upsert inserts or replaces the row for rec.JournalID; last write
// wins, no history is kept.
func (s *Store) Upsert(ctx context.Context, rec journal.PersistedRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	query := `
INSERT INTO journals (journal_id, is_deleted, archived_at, error_kind, identity_used, payload_json)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (journal_id) DO UPDATE SET
	is_deleted = EXCLUDED.is_deleted,
	archived_at = EXCLUDED.archived_at,
	error_kind = EXCLUDED.error_kind,
	identity_used = EXCLUDED.identity_used,
	payload_json = EXCLUDED.payload_json`
	args := []any{rec.JournalID, rec.IsDeleted, rec.ArchivedAt, rec.ErrorKind, rec.IdentityUsed, rec.PayloadJSON}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert journal %d: %w", rec.JournalID, err)
	}
	return nil
}

// Update replaces an existing row and errors when the ID is absent.
func (s *Store) Update(ctx context.Context, rec journal.PersistedRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	query := `
UPDATE journals SET
	is_deleted = $2,
	archived_at = $3,
	error_kind = $4,
	identity_used = $5,
	payload_json = $6
WHERE journal_id = $1`
	args := []any{rec.JournalID, rec.IsDeleted, rec.ArchivedAt, rec.ErrorKind, rec.IdentityUsed, rec.PayloadJSON}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update journal %d: %w", rec.JournalID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update journal %d: no such row", rec.JournalID)
	}
	return nil
}

// ListIDsInRange returns the sorted known IDs within [min, max].
func (s *Store) ListIDsInRange(ctx context.Context, min, max int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT journal_id FROM journals WHERE journal_id BETWEEN $1 AND $2 ORDER BY journal_id`,
		min, max,
	)
	if err != nil {
		return nil, fmt.Errorf("list journal ids: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// ListIDsMissingField returns IDs with a payload that lacks the given
// dot-separated JSON path, e.g. "author.registered_at".
func (s *Store) ListIDsMissingField(ctx context.Context, jsonPath string) ([]int64, error) {
	if strings.TrimSpace(jsonPath) == "" {
		return nil, fmt.Errorf("json path is required")
	}
	pathLiteral := "{" + strings.Join(strings.Split(jsonPath, "."), ",") + "}"
	rows, err := s.pool.Query(ctx,
		`SELECT journal_id FROM journals
WHERE payload_json IS NOT NULL AND payload_json #> $1::text[] IS NULL
ORDER BY journal_id`,
		pathLiteral,
	)
	if err != nil {
		return nil, fmt.Errorf("list journals missing %q: %w", jsonPath, err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// Count returns the number of persisted rows.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM journals`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count journals: %w", err)
	}
	return n, nil
}

// Bounds returns the min and max known IDs; ok is false when the
// store is empty.
func (s *Store) Bounds(ctx context.Context) (min, max int64, ok bool, err error) {
	var lo, hi *int64
	if err := s.pool.QueryRow(ctx, `SELECT MIN(journal_id), MAX(journal_id) FROM journals`).Scan(&lo, &hi); err != nil {
		return 0, 0, false, fmt.Errorf("journal bounds: %w", err)
	}
	if lo == nil || hi == nil {
		return 0, 0, false, nil
	}
	return *lo, *hi, true, nil
}

func scanIDs(rows pgx.Rows) ([]int64, error) {
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan journal id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal ids: %w", err)
	}
	return ids, nil
}
