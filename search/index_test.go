package search

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/shelfsight/imaging/colorclass"
)

type staticSource struct {
	entries []Entry
	err     error
}

func (s *staticSource) ListEntriesWithFeatures(_ context.Context) ([]Entry, error) {
	return s.entries, s.err
}

func vec(dims int, fill float32) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = fill
	}
	return v
}

func TestRebuildAndExactMatch(t *testing.T) {
	ctx := context.Background()
	source := &staticSource{entries: []Entry{
		{ID: "red-1", ColorCategory: colorclass.Red, Vector: vec(4, 1.0)},
		{ID: "red-2", ColorCategory: colorclass.Red, Vector: vec(4, 5.0)},
		{ID: "blue-1", ColorCategory: colorclass.Blue, Vector: vec(4, 1.0)},
	}}

	idx := NewIndex(4, source)
	snap, err := idx.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Len())

	// A query identical to a stored red vector must come back first with
	// distance zero and the exact-color flag set.
	hits := idx.Search(vec(4, 1.0), []colorclass.Category{colorclass.Red}, 1)
	require.Len(t, hits, 1)
	assert.Equal(t, "red-1", hits[0].ID)
	assert.Zero(t, hits[0].Distance)
	assert.True(t, hits[0].IsExactColorMatch)
}

func TestSearchSortedNoDuplicatesAtMostK(t *testing.T) {
	ctx := context.Background()
	entries := []Entry{
		{ID: "a", ColorCategory: colorclass.Red, Vector: vec(4, 3.0)},
		{ID: "b", ColorCategory: colorclass.Red, Vector: vec(4, 1.0)},
		{ID: "c", ColorCategory: colorclass.Red, Vector: vec(4, 7.0)},
		{ID: "d", ColorCategory: colorclass.Pink, Vector: vec(4, 2.0)},
		{ID: "e", ColorCategory: colorclass.Orange, Vector: vec(4, 4.0)},
	}
	idx := NewIndex(4, &staticSource{entries: entries})
	_, err := idx.Rebuild(ctx)
	require.NoError(t, err)

	probe := ProbeOrder(colorclass.Red, colorclass.Unknown)
	hits := idx.Search(vec(4, 0.0), probe, 3)
	require.Len(t, hits, 3)

	seen := map[string]bool{}
	for i, h := range hits {
		assert.False(t, seen[h.ID], "duplicate id %s", h.ID)
		seen[h.ID] = true
		if i > 0 {
			assert.GreaterOrEqual(t, h.Distance, hits[i-1].Distance)
		}
	}
	assert.Equal(t, "b", hits[0].ID)
}

func TestSearchNeighborShardNotExactMatch(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex(4, &staticSource{entries: []Entry{
		{ID: "pink-1", ColorCategory: colorclass.Pink, Vector: vec(4, 1.0)},
	}})
	_, err := idx.Rebuild(ctx)
	require.NoError(t, err)

	hits := idx.Search(vec(4, 1.0), ProbeOrder(colorclass.Red, ""), 5)
	require.Len(t, hits, 1)
	assert.Equal(t, colorclass.Pink, hits[0].ColorCategory)
	assert.False(t, hits[0].IsExactColorMatch)
}

func TestSearchEmptyIndex(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex(4, &staticSource{})
	_, err := idx.Rebuild(ctx)
	require.NoError(t, err)

	hits := idx.Search(vec(4, 1.0), ProbeOrder(colorclass.Red, ""), 5)
	assert.Empty(t, hits)
}

func TestRebuildIdempotent(t *testing.T) {
	ctx := context.Background()
	source := &staticSource{entries: []Entry{
		{ID: "a", ColorCategory: colorclass.Green, Vector: vec(4, 1.0)},
		{ID: "b", ColorCategory: colorclass.Green, Vector: vec(4, 2.0)},
	}}
	idx := NewIndex(4, source)

	first, err := idx.Rebuild(ctx)
	require.NoError(t, err)
	second, err := idx.Rebuild(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Len(), second.Len())
	assert.Equal(t, first.ShardSizes(), second.ShardSizes())

	a := idx.Search(vec(4, 1.5), []colorclass.Category{colorclass.Green}, 2)
	b := idx.Search(vec(4, 1.5), []colorclass.Category{colorclass.Green}, 2)
	assert.Equal(t, a, b)
}

func TestRebuildFailureKeepsOldSnapshot(t *testing.T) {
	ctx := context.Background()
	source := &staticSource{entries: []Entry{
		{ID: "a", ColorCategory: colorclass.Blue, Vector: vec(4, 1.0)},
	}}
	idx := NewIndex(4, source)
	_, err := idx.Rebuild(ctx)
	require.NoError(t, err)

	source.err = errors.New("database unreachable")
	_, err = idx.Rebuild(ctx)
	require.Error(t, err)

	assert.Equal(t, 1, idx.Snapshot().Len())
}

func TestDimensionConforming(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex(4, &staticSource{entries: []Entry{
		{ID: "short", ColorCategory: colorclass.Red, Vector: []float32{1, 2}},
		{ID: "long", ColorCategory: colorclass.Red, Vector: []float32{1, 2, 3, 4, 5, 6}},
		{ID: "empty", ColorCategory: colorclass.Red, Vector: nil},
	}})
	snap, err := idx.Rebuild(ctx)
	require.NoError(t, err)

	// Empty vectors are skipped, mismatched ones are conformed.
	assert.Equal(t, 2, snap.Len())

	hits := idx.Search([]float32{1, 2, 0, 0}, []colorclass.Category{colorclass.Red}, 2)
	require.Len(t, hits, 2)
	assert.Equal(t, "short", hits[0].ID)
	assert.Zero(t, hits[0].Distance)
}

func TestInvalidCategoryGoesToUnknownShard(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex(4, &staticSource{entries: []Entry{
		{ID: "odd", ColorCategory: colorclass.Category("magenta"), Vector: vec(4, 1.0)},
	}})
	snap, err := idx.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ShardSizes()[colorclass.Unknown])
}

func TestUnknownPrimaryNeverClaimsExactMatch(t *testing.T) {
	ctx := context.Background()
	idx := NewIndex(4, &staticSource{entries: []Entry{
		{ID: "uncat", ColorCategory: colorclass.Unknown, Vector: vec(4, 1.0)},
	}})
	_, err := idx.Rebuild(ctx)
	require.NoError(t, err)

	hits := idx.Search(vec(4, 1.0), ProbeOrder(colorclass.Unknown, ""), 3)
	require.Len(t, hits, 1)
	assert.Zero(t, hits[0].Distance)
	assert.False(t, hits[0].IsExactColorMatch)
}
