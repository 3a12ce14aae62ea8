package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/okian/shotcoach/internal/domain/model"
	"github.com/okian/shotcoach/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id                 TEXT PRIMARY KEY,
	shot_id            TEXT NOT NULL UNIQUE,
	roast              TEXT NOT NULL,
	form_json          TEXT NOT NULL,
	snapshot_json      TEXT NOT NULL,
	coaching_version   TEXT NOT NULL,
	extraction_version TEXT NOT NULL,
	extraction_json    TEXT NOT NULL,
	saved_at           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_coaching_version ON snapshots(coaching_version);
`

const selectColumns = `id, shot_id, roast, form_json, snapshot_json, extraction_version, extraction_json, saved_at`

// SQLiteStore persists snapshots in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens the database at path and runs migrations. Use ":memory:"
// for a throwaway database.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	o := applyOptions(opts)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db, now: o.now}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) (Record, error) {
	if rec.ShotID == "" {
		return Record{}, ErrInvalidShot
	}
	start := time.Now()
	defer observe("save", start)

	form, err := json.Marshal(rec.Form)
	if err != nil {
		return Record{}, fmt.Errorf("marshal form: %w", err)
	}
	snap, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return Record{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	extraction, err := json.Marshal(rec.Extraction)
	if err != nil {
		return Record{}, fmt.Errorf("marshal extraction: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing string
	switch err := tx.QueryRowContext(ctx, `SELECT id FROM snapshots WHERE shot_id = ?`, rec.ShotID).Scan(&existing); {
	case err == nil:
		rec.ID = existing
	case errors.Is(err, sql.ErrNoRows):
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
	default:
		return Record{}, fmt.Errorf("lookup shot: %w", err)
	}
	rec.SavedAt = s.now().UTC()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (`+selectColumns+`, coaching_version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(shot_id) DO UPDATE SET
			roast = excluded.roast,
			form_json = excluded.form_json,
			snapshot_json = excluded.snapshot_json,
			coaching_version = excluded.coaching_version,
			extraction_version = excluded.extraction_version,
			extraction_json = excluded.extraction_json,
			saved_at = excluded.saved_at`,
		rec.ID, rec.ShotID, string(rec.Roast), string(form), string(snap),
		rec.ExtractionVersion, string(extraction), rec.SavedAt.Format(time.RFC3339Nano),
		rec.Snapshot.Version,
	)
	if err != nil {
		return Record{}, fmt.Errorf("upsert snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("commit: %w", err)
	}

	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateSnapshotsStored(n)
	}
	return rec, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, shotID string) (Record, error) {
	start := time.Now()
	defer observe("get", start)

	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM snapshots WHERE shot_id = ?`, shotID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	start := time.Now()
	defer observe("list", start)

	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM snapshots ORDER BY shot_id`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec                         Record
		roast, form, snap, extr, at string
	)
	if err := row.Scan(&rec.ID, &rec.ShotID, &roast, &form, &snap, &rec.ExtractionVersion, &extr, &at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan snapshot: %w", err)
	}
	rec.Roast = model.RoastLevel(roast)
	if err := json.Unmarshal([]byte(form), &rec.Form); err != nil {
		return Record{}, fmt.Errorf("unmarshal form: %w", err)
	}
	if err := json.Unmarshal([]byte(snap), &rec.Snapshot); err != nil {
		return Record{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(extr), &rec.Extraction); err != nil {
		return Record{}, fmt.Errorf("unmarshal extraction: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return Record{}, fmt.Errorf("parse saved_at: %w", err)
	}
	rec.SavedAt = t
	return rec, nil
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryLatency(op, float64(time.Since(start).Microseconds())/1000)
}
