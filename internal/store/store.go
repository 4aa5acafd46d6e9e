package store

import (
	"context"

	pgx "github.com/jackc/pgx/v5"

	"github.com/wxrouter/wxrouter/internal/models"
)

// Store defines the persistence interface for alerts, outlook features and
// ingest status rows.
type Store interface {
	UpsertAlerts(ctx context.Context, alerts []models.Alert) error
	QueryAlerts(ctx context.Context, q models.AlertQuery) ([]models.Alert, error)
	GetAlert(ctx context.Context, id string) (*models.Alert, error)

	UpsertOutlookFeature(ctx context.Context, kind models.OutlookKind, f *models.OutlookFeature) error
	OutlookCounts(ctx context.Context) (convective, fire int64, err error)

	UpsertIngestStatus(ctx context.Context, st models.IngestStatus) error
	GetIngestStatus(ctx context.Context, source string) (*models.IngestStatus, error)

	Health(ctx context.Context) error
}

// Database is the connection surface the Postgres store needs, kept as an
// interface for dependency injection in tests.
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Health(ctx context.Context) error
	IsConfigured() bool
}

// New returns a Postgres-backed store when the database is configured and
// an in-memory store otherwise.
func New(db Database) Store {
	if db.IsConfigured() {
		return NewPostgresStore(db)
	}
	return NewInMemoryStore()
}
