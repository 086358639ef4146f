// Package store persists archive indexes, run summaries and confirmed depths.
package store

import (
	"context"
	"time"

	"sigrank/internal/store/model"
)

// UnitOfWork defines a transaction scope.
type UnitOfWork interface {
	Commit() error
	Rollback() error

	// Archives indexes raw snapshot payloads written to disk.
	Archives() ArchiveRepository
	// Runs records one summary row per pipeline run.
	Runs() RunRepository
	// Depths holds the last depth confirmed per account and asset.
	Depths() DepthRepository
}

// Store is the entry point for database access.
type Store interface {
	Begin(ctx context.Context) (UnitOfWork, error)
	Close() error
}

type ArchiveRepository interface {
	Save(ctx context.Context, rec *model.ArchiveModel) error
	Latest(ctx context.Context) (*model.ArchiveModel, error)
	List(ctx context.Context, limit int) ([]model.ArchiveModel, error)
}

type RunRepository interface {
	Save(ctx context.Context, run *model.RunModel) error
	Latest(ctx context.Context) (*model.RunModel, error)
	List(ctx context.Context, limit int) ([]model.RunModel, error)
}

type DepthRepository interface {
	Upsert(ctx context.Context, account, symbol string, depth float64, at time.Time) error
	ListByAccount(ctx context.Context, account string) (map[string]float64, error)
}
