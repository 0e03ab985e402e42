// Package search implements the color-sharded vector index and the hybrid
// visual+textual ranking of its candidates.
//
// The index partitions catalog feature vectors by color category so a query
// only scans the shards that are color-plausible for it. Shards are exact:
// every stored vector is compared with L2 distance. The whole shard set is
// published as an immutable snapshot that rebuilds replace atomically, so
// readers never block and never observe a half-built shard.
package search

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/shelfsight/imaging/colorclass"
)

// Entry is a catalog row as the index sees it: an identifier, the color
// shard it belongs to, and its visual feature vector.
type Entry struct {
	ID            string
	ColorCategory colorclass.Category
	Vector        []float32
}

// Candidate is one nearest-neighbor hit.
type Candidate struct {
	ID                string
	Distance          float64
	ColorCategory     colorclass.Category
	IsExactColorMatch bool
}

// CatalogSource supplies the full catalog during a rebuild.
type CatalogSource interface {
	ListEntriesWithFeatures(ctx context.Context) ([]Entry, error)
}

// shard holds the vectors of one color category as a packed matrix. It is
// append-only during a rebuild and immutable afterwards.
type shard struct {
	ids    []string
	matrix []float32 // len(ids) rows of dimensions values each
}

func (s *shard) add(id string, vec []float32) {
	s.ids = append(s.ids, id)
	s.matrix = append(s.matrix, vec...)
}

func (s *shard) len() int {
	return len(s.ids)
}

// Snapshot is one immutable generation of the index.
type Snapshot struct {
	shards     map[colorclass.Category]*shard
	dimensions int
	builtAt    time.Time
	entries    int
}

// BuiltAt returns when this snapshot was constructed.
func (s *Snapshot) BuiltAt() time.Time {
	return s.builtAt
}

// Len returns the total number of indexed entries.
func (s *Snapshot) Len() int {
	return s.entries
}

// ShardSizes returns the entry count per color category.
func (s *Snapshot) ShardSizes() map[colorclass.Category]int {
	sizes := make(map[colorclass.Category]int, len(s.shards))
	for c, sh := range s.shards {
		sizes[c] = sh.len()
	}
	return sizes
}

// Index is the color-sharded nearest-neighbor index.
type Index struct {
	dimensions int
	source     CatalogSource
	snapshot   atomic.Pointer[Snapshot]
}

// NewIndex creates an empty index over vectors of the given dimension.
func NewIndex(dimensions int, source CatalogSource) *Index {
	idx := &Index{
		dimensions: dimensions,
		source:     source,
	}
	idx.snapshot.Store(newSnapshot(dimensions))
	return idx
}

func newSnapshot(dimensions int) *Snapshot {
	shards := make(map[colorclass.Category]*shard, len(colorclass.Categories))
	for _, c := range colorclass.Categories {
		shards[c] = &shard{}
	}
	return &Snapshot{shards: shards, dimensions: dimensions, builtAt: time.Now()}
}

// Snapshot returns the currently published snapshot. Searches against it
// remain valid even if a rebuild swaps in a newer generation.
func (i *Index) Snapshot() *Snapshot {
	return i.snapshot.Load()
}

// Rebuild reads the full catalog, constructs fresh shards from scratch and
// atomically publishes the new snapshot. On failure the previous snapshot
// stays active.
func (i *Index) Rebuild(ctx context.Context) (*Snapshot, error) {
	if i.source == nil {
		return nil, errors.New("index has no catalog source")
	}

	entries, err := i.source.ListEntriesWithFeatures(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list catalog entries")
	}

	next := newSnapshot(i.dimensions)
	for _, e := range entries {
		next.add(e)
	}
	i.snapshot.Store(next)

	slog.Info("vector index rebuilt",
		"entries", next.entries,
		"shards", len(next.shards))
	return next, nil
}

// Search runs a k-nearest search over the current snapshot. See
// Snapshot.Search for semantics.
func (i *Index) Search(query []float32, categories []colorclass.Category, k int) []Candidate {
	return i.Snapshot().Search(query, categories, k)
}

// add appends an entry to the shard matching its color category, falling
// back to the unknown shard for unrecognized categories. Vectors whose
// dimensionality does not match are conformed to the expected dimension
// (truncated or zero-padded) rather than rejected; the event is logged
// since it usually indicates an upstream extraction bug.
func (s *Snapshot) add(e Entry) {
	if len(e.Vector) == 0 {
		return
	}

	vec := e.Vector
	if len(vec) != s.dimensions {
		slog.Warn("conforming mismatched feature vector dimension",
			"id", e.ID,
			"got", len(vec),
			"want", s.dimensions)
		vec = conformDimension(vec, s.dimensions)
	}

	category := e.ColorCategory
	if !category.Valid() {
		category = colorclass.Unknown
	}
	s.shards[category].add(e.ID, vec)
	s.entries++
}

// Search computes exact L2 distances between the query and every vector of
// the requested shards, probing them in the order given. Results are merged
// across shards, de-duplicated by id keeping the smallest distance, sorted
// ascending by distance and truncated to k. IsExactColorMatch is set only
// for hits from the first requested category.
func (s *Snapshot) Search(query []float32, categories []colorclass.Category, k int) []Candidate {
	if k <= 0 || len(categories) == 0 {
		return nil
	}
	if len(query) != s.dimensions {
		query = conformDimension(query, s.dimensions)
	}

	primary := categories[0]
	best := make(map[string]Candidate)
	seen := make(map[colorclass.Category]bool, len(categories))

	for _, category := range categories {
		if seen[category] {
			continue
		}
		seen[category] = true

		sh, ok := s.shards[category]
		if !ok || sh.len() == 0 {
			continue
		}

		for _, hit := range sh.nearest(query, s.dimensions, k) {
			hit.ColorCategory = category
			// An unknown primary means classification failed, so no hit
			// can claim an exact color match.
			hit.IsExactColorMatch = category == primary && primary != colorclass.Unknown
			if prev, ok := best[hit.ID]; !ok || hit.Distance < prev.Distance {
				best[hit.ID] = hit
			}
		}
	}

	merged := make([]Candidate, 0, len(best))
	for _, c := range best {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(a, b int) bool {
		if merged[a].Distance != merged[b].Distance {
			return merged[a].Distance < merged[b].Distance
		}
		return merged[a].ID < merged[b].ID
	})
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged
}

// nearest returns up to k smallest-distance hits from this shard.
func (sh *shard) nearest(query []float32, dimensions, k int) []Candidate {
	hits := make([]Candidate, 0, sh.len())
	for row := 0; row < sh.len(); row++ {
		offset := row * dimensions
		hits = append(hits, Candidate{
			ID:       sh.ids[row],
			Distance: l2Distance(query, sh.matrix[offset:offset+dimensions]),
		})
	}
	sort.Slice(hits, func(a, b int) bool {
		return hits[a].Distance < hits[b].Distance
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// l2Distance is the Euclidean distance between two equal-length vectors.
func l2Distance(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// conformDimension truncates or zero-pads a vector to the given dimension.
func conformDimension(vec []float32, dimensions int) []float32 {
	out := make([]float32, dimensions)
	copy(out, vec)
	return out
}
