package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for database access.
type Driver interface {
	GetDB() *sql.DB
	Migrate(ctx context.Context) error
	Close() error

	// CatalogEntryStore.
	CreateCatalogEntry(ctx context.Context, create *CatalogEntry) (*CatalogEntry, error)
	GetCatalogEntry(ctx context.Context, id string) (*CatalogEntry, error)
	ListCatalogEntries(ctx context.Context, find *FindCatalogEntry) ([]*CatalogEntry, error)
	UpdateCatalogEntry(ctx context.Context, update *UpdateCatalogEntry) (*CatalogEntry, error)
	DeleteCatalogEntry(ctx context.Context, id string) error

	// SearchJobStore. UpdateSearchJob must refuse to modify a job that has
	// already reached a terminal status; implementations return
	// ErrJobTerminal in that case.
	CreateSearchJob(ctx context.Context, create *SearchJob) (*SearchJob, error)
	GetSearchJob(ctx context.Context, id string) (*SearchJob, error)
	ListSearchJobs(ctx context.Context, find *FindSearchJob) ([]*SearchJob, error)
	UpdateSearchJob(ctx context.Context, update *UpdateSearchJob) (*SearchJob, error)
	CountSearchJobsByStatus(ctx context.Context) (map[JobStatus]int, error)
}
