package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Rebuilder serializes index rebuilds behind an event channel. Catalog
// writers call Notify after committing changes; a single background loop
// coalesces bursts of notifications into one rebuild, rate limited so a
// stream of ingests cannot thrash the index.
type Rebuilder struct {
	index   *Index
	limiter *rate.Limiter

	// OnRebuilt, when set, observes every successfully published snapshot.
	OnRebuilt func(snapshot *Snapshot, elapsed time.Duration)

	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewRebuilder creates a rebuilder with at most one rebuild per minInterval.
func NewRebuilder(index *Index, minInterval time.Duration) *Rebuilder {
	if minInterval <= 0 {
		minInterval = 5 * time.Second
	}
	return &Rebuilder{
		index:   index,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Notify schedules a rebuild. It never blocks; notifications arriving while
// a rebuild is already pending are coalesced into it.
func (r *Rebuilder) Notify() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Run drives rebuilds until the context is canceled. It is intended to be
// started once per process.
func (r *Rebuilder) Run(ctx context.Context) {
	defer r.once.Do(func() { close(r.done) })

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.notify:
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return
		}
		start := time.Now()
		snapshot, err := r.index.Rebuild(ctx)
		if err != nil {
			slog.Error("index rebuild failed", "err", err)
			continue
		}
		if r.OnRebuilt != nil {
			r.OnRebuilt(snapshot, time.Since(start))
		}
	}
}

// Done is closed once the rebuild loop has exited.
func (r *Rebuilder) Done() <-chan struct{} {
	return r.done
}
