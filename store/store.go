// Package store provides database access to all persistent objects: the
// product catalog and the search job queue.
package store

import (
	"context"

	"github.com/hrygo/shelfsight/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateCatalogEntry(ctx context.Context, create *CatalogEntry) (*CatalogEntry, error) {
	return s.driver.CreateCatalogEntry(ctx, create)
}

func (s *Store) GetCatalogEntry(ctx context.Context, id string) (*CatalogEntry, error) {
	return s.driver.GetCatalogEntry(ctx, id)
}

func (s *Store) ListCatalogEntries(ctx context.Context, find *FindCatalogEntry) ([]*CatalogEntry, error) {
	return s.driver.ListCatalogEntries(ctx, find)
}

func (s *Store) UpdateCatalogEntry(ctx context.Context, update *UpdateCatalogEntry) (*CatalogEntry, error) {
	return s.driver.UpdateCatalogEntry(ctx, update)
}

func (s *Store) DeleteCatalogEntry(ctx context.Context, id string) error {
	return s.driver.DeleteCatalogEntry(ctx, id)
}

func (s *Store) CreateSearchJob(ctx context.Context, create *SearchJob) (*SearchJob, error) {
	return s.driver.CreateSearchJob(ctx, create)
}

func (s *Store) GetSearchJob(ctx context.Context, id string) (*SearchJob, error) {
	return s.driver.GetSearchJob(ctx, id)
}

func (s *Store) ListSearchJobs(ctx context.Context, find *FindSearchJob) ([]*SearchJob, error) {
	return s.driver.ListSearchJobs(ctx, find)
}

// UpdateSearchJob applies an update subject to the job lifecycle rules; see
// Driver.UpdateSearchJob.
func (s *Store) UpdateSearchJob(ctx context.Context, update *UpdateSearchJob) (*SearchJob, error) {
	return s.driver.UpdateSearchJob(ctx, update)
}

func (s *Store) CountSearchJobsByStatus(ctx context.Context) (map[JobStatus]int, error) {
	return s.driver.CountSearchJobsByStatus(ctx)
}
