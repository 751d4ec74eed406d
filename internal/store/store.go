// Package store persists the current snapshot, the current policy, and the
// report history. The validation engine never touches this package; callers
// load inputs here, run the engine, and write the result back.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/kval/internal/config"
	"github.com/sells-group/kval/internal/model"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = eris.New("store: not found")

// StoredReport pairs a persisted report with its storage metadata.
type StoredReport struct {
	ID        string                 `json:"id"`
	CreatedAt time.Time              `json:"created_at"`
	Report    model.ValidationReport `json:"report"`
}

// Store defines the persistence interface for the validator service.
type Store interface {
	// Current snapshot and policy (single logical slot each).
	SaveSnapshot(ctx context.Context, snap *model.Snapshot) error
	GetSnapshot(ctx context.Context) (*model.Snapshot, error)
	SavePolicy(ctx context.Context, pol *model.Policy) error
	GetPolicy(ctx context.Context) (*model.Policy, error)

	// Report history.
	SaveReport(ctx context.Context, report *model.ValidationReport) (string, error)
	GetLatestReport(ctx context.Context) (*model.ValidationReport, error)
	ListReports(ctx context.Context, limit int) ([]StoredReport, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
