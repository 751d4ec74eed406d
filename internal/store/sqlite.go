package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/kval/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// The snapshot and policy tables hold one logical row each; the fixed
// slot id makes writes plain upserts.
const currentSlot = "current"

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	slot       TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS policies (
	slot       TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS reports (
	id          TEXT PRIMARY KEY,
	snapshot_id TEXT NOT NULL,
	mode        TEXT NOT NULL,
	payload     TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
CREATE INDEX IF NOT EXISTS idx_reports_snapshot_id ON reports(snapshot_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	return s.saveSlot(ctx, "snapshots", snap)
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context) (*model.Snapshot, error) {
	var snap model.Snapshot
	if err := s.loadSlot(ctx, "snapshots", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *SQLiteStore) SavePolicy(ctx context.Context, pol *model.Policy) error {
	return s.saveSlot(ctx, "policies", pol)
}

func (s *SQLiteStore) GetPolicy(ctx context.Context) (*model.Policy, error) {
	var pol model.Policy
	if err := s.loadSlot(ctx, "policies", &pol); err != nil {
		return nil, err
	}
	return &pol, nil
}

func (s *SQLiteStore) saveSlot(ctx context.Context, table string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "sqlite: marshal %s", table)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO `+table+` (slot, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		currentSlot, string(payload), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert %s", table)
}

func (s *SQLiteStore) loadSlot(ctx context.Context, table string, v any) error {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM `+table+` WHERE slot = ?`, currentSlot,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: load %s", table)
	}
	return eris.Wrapf(json.Unmarshal([]byte(payload), v), "sqlite: unmarshal %s", table)
}

func (s *SQLiteStore) SaveReport(ctx context.Context, report *model.ValidationReport) (string, error) {
	id := uuid.New().String()
	payload, err := json.Marshal(report)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal report")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, snapshot_id, mode, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, report.SnapshotID, report.Mode, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert report")
	}
	return id, nil
}

func (s *SQLiteStore) GetLatestReport(ctx context.Context) (*model.ValidationReport, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM reports ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest report")
	}

	var report model.ValidationReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal report")
	}
	return &report, nil
}

func (s *SQLiteStore) ListReports(ctx context.Context, limit int) ([]StoredReport, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload, created_at FROM reports ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reports")
	}
	defer rows.Close()

	var out []StoredReport
	for rows.Next() {
		var (
			sr      StoredReport
			payload string
		)
		if err := rows.Scan(&sr.ID, &payload, &sr.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan report")
		}
		if err := json.Unmarshal([]byte(payload), &sr.Report); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal report")
		}
		out = append(out, sr)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate reports")
}
