// Package job runs asynchronous similarity searches: submission creates a
// PENDING row and a worker pool drives each job through the pipeline to a
// terminal SUCCESS or FAILURE.
package job

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/shelfsight/extractor"
	"github.com/hrygo/shelfsight/imaging"
	"github.com/hrygo/shelfsight/internal/profile"
	"github.com/hrygo/shelfsight/metrics"
	"github.com/hrygo/shelfsight/search"
	"github.com/hrygo/shelfsight/store"
)

// RegistryFactory builds a fresh ModelRegistry. Each worker calls it once
// so no model client is shared across workers.
type RegistryFactory func() (*extractor.ModelRegistry, error)

// Service accepts search jobs and owns the worker pool processing them.
type Service struct {
	profile     *profile.Profile
	store       *store.Store
	index       *search.Index
	lookup      search.TextLookup
	normalizer  *imaging.Normalizer
	newRegistry RegistryFactory
	exporter    *metrics.Exporter

	queue chan string
	wg    sync.WaitGroup
}

// NewService creates a Service. exporter may be nil.
func NewService(p *profile.Profile, s *store.Store, index *search.Index, lookup search.TextLookup, normalizer *imaging.Normalizer, newRegistry RegistryFactory, exporter *metrics.Exporter) *Service {
	return &Service{
		profile:     p,
		store:       s,
		index:       index,
		lookup:      lookup,
		normalizer:  normalizer,
		newRegistry: newRegistry,
		exporter:    exporter,
		queue:       make(chan string, 1024),
	}
}

// Submit stores the query image, creates the job row and queues it. The
// returned job is PENDING; callers poll Status for the outcome.
func (s *Service) Submit(ctx context.Context, imageData []byte) (*store.SearchJob, error) {
	if len(imageData) == 0 {
		return nil, errors.New("empty image upload")
	}

	id := shortuuid.New()
	imagePath, err := s.saveQueryImage(id, imageData)
	if err != nil {
		return nil, err
	}

	job, err := s.store.CreateSearchJob(ctx, &store.SearchJob{
		ID:        id,
		ImagePath: imagePath,
	})
	if err != nil {
		_ = os.Remove(imagePath)
		return nil, errors.Wrap(err, "failed to create search job")
	}

	select {
	case s.queue <- id:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return job, nil
}

// Status fetches the current state of a job, nil when unknown.
func (s *Service) Status(ctx context.Context, id string) (*store.SearchJob, error) {
	return s.store.GetSearchJob(ctx, id)
}

// Start recovers interrupted jobs and launches the worker pool. It returns
// immediately; Wait blocks until the pool has drained after ctx is
// canceled.
func (s *Service) Start(ctx context.Context) error {
	if err := s.recover(ctx); err != nil {
		return err
	}

	workers := s.profile.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		registry, err := s.newRegistry()
		if err != nil {
			return errors.Wrapf(err, "failed to build model registry for worker %d", i)
		}
		s.wg.Add(1)
		go s.runWorker(ctx, i, registry)
	}
	slog.Info("job worker pool started", "workers", workers)
	return nil
}

// Wait blocks until every worker has exited.
func (s *Service) Wait() {
	s.wg.Wait()
}

// recover re-queues jobs that never reached a terminal status, which
// happens after a crash or restart. PROCESSING jobs are included: their
// worker is gone, and reprocessing a search is harmless.
func (s *Service) recover(ctx context.Context) error {
	stuck, err := s.store.ListSearchJobs(ctx, &store.FindSearchJob{
		Statuses: []store.JobStatus{store.JobPending, store.JobProcessing},
	})
	if err != nil {
		return errors.Wrap(err, "failed to list unfinished jobs")
	}
	for _, job := range stuck {
		select {
		case s.queue <- job.ID:
		default:
			slog.Warn("job queue full during recovery, job stays pending", "id", job.ID)
		}
	}
	if len(stuck) > 0 {
		slog.Info("recovered unfinished search jobs", "count", len(stuck))
	}
	return nil
}

func (s *Service) runWorker(ctx context.Context, id int, registry *extractor.ModelRegistry) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-s.queue:
			timeout := time.Duration(s.profile.JobTimeout) * time.Second
			jobCtx, cancel := context.WithTimeout(ctx, timeout)
			s.process(jobCtx, registry, jobID)
			cancel()
		}
	}
}

func (s *Service) saveQueryImage(id string, data []byte) (string, error) {
	dir := filepath.Join(s.profile.Data, "queries")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", errors.Wrap(err, "failed to create query image dir")
	}
	path := filepath.Join(dir, id+".jpg")
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", errors.Wrap(err, "failed to write query image")
	}
	return path, nil
}
