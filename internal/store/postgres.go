package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/kval/internal/model"
)

// Pool abstracts the subset of pgxpool.Pool the store uses, so unit tests
// can substitute pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	slot       TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS policies (
	slot       TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS reports (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	snapshot_id TEXT NOT NULL,
	mode        TEXT NOT NULL,
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
CREATE INDEX IF NOT EXISTS idx_reports_snapshot_id ON reports(snapshot_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	return s.saveSlot(ctx, "snapshots", snap)
}

func (s *PostgresStore) GetSnapshot(ctx context.Context) (*model.Snapshot, error) {
	var snap model.Snapshot
	if err := s.loadSlot(ctx, "snapshots", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *PostgresStore) SavePolicy(ctx context.Context, pol *model.Policy) error {
	return s.saveSlot(ctx, "policies", pol)
}

func (s *PostgresStore) GetPolicy(ctx context.Context) (*model.Policy, error) {
	var pol model.Policy
	if err := s.loadSlot(ctx, "policies", &pol); err != nil {
		return nil, err
	}
	return &pol, nil
}

func (s *PostgresStore) saveSlot(ctx context.Context, table string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "postgres: marshal %s", table)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+table+` (slot, payload, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (slot) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		currentSlot, payload, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert %s", table)
}

func (s *PostgresStore) loadSlot(ctx context.Context, table string, v any) error {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM `+table+` WHERE slot = $1`, currentSlot,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: load %s", table)
	}
	return eris.Wrapf(json.Unmarshal(payload, v), "postgres: unmarshal %s", table)
}

func (s *PostgresStore) SaveReport(ctx context.Context, report *model.ValidationReport) (string, error) {
	id := uuid.New().String()
	payload, err := json.Marshal(report)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal report")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO reports (id, snapshot_id, mode, payload, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, report.SnapshotID, report.Mode, payload, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert report")
	}
	return id, nil
}

func (s *PostgresStore) GetLatestReport(ctx context.Context) (*model.ValidationReport, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM reports ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest report")
	}

	var report model.ValidationReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal report")
	}
	return &report, nil
}

func (s *PostgresStore) ListReports(ctx context.Context, limit int) ([]StoredReport, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, payload, created_at FROM reports ORDER BY created_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reports")
	}
	defer rows.Close()

	var out []StoredReport
	for rows.Next() {
		var (
			sr      StoredReport
			payload []byte
		)
		if err := rows.Scan(&sr.ID, &payload, &sr.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan report")
		}
		if err := json.Unmarshal(payload, &sr.Report); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal report")
		}
		out = append(out, sr)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate reports")
}
