package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapLookup map[string][]float32

func (m mapLookup) TextEmbedding(id string) []float32 { return m[id] }

func TestRankScoreBounds(t *testing.T) {
	lookup := mapLookup{
		"near": {1, 0},
		"far":  {0, 1},
	}
	candidates := []Candidate{
		{ID: "near", Distance: 0},
		{ID: "far", Distance: 500},
	}

	results := Rank(candidates, []float32{1, 0}, "chocolate bar 100g", lookup)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.HybridScore, 0.0)
		assert.LessOrEqual(t, r.HybridScore, 100.0)
		assert.GreaterOrEqual(t, r.VisualSimilarity, 0.0)
		assert.LessOrEqual(t, r.VisualSimilarity, 1.0)
	}
	assert.Equal(t, "near", results[0].ID)
	assert.Zero(t, results[1].VisualSimilarity)
}

func TestRankMonotonicInVisualSimilarity(t *testing.T) {
	// Hold text similarity fixed and sweep distances; the score must never
	// increase as the distance grows, including across the boost ramp.
	lookup := mapLookup{"x": {1, 1}}
	query := []float32{1, 1}

	prev := -1.0
	for d := 150.0; d >= 0; d -= 0.5 {
		results := Rank([]Candidate{{ID: "x", Distance: d}}, query, "some product text", lookup)
		require.Len(t, results, 1)
		if prev >= 0 {
			assert.GreaterOrEqual(t, results[0].HybridScore, prev,
				"score regressed at distance %.1f", d)
		}
		prev = results[0].HybridScore
	}
}

func TestRankMonotonicInTextSimilarity(t *testing.T) {
	query := []float32{1, 0}
	prev := -1.0
	for i := 0; i <= 10; i++ {
		// Rotate the candidate text vector toward the query.
		frac := float32(i) / 10
		lookup := mapLookup{"x": {frac, 1 - frac}}
		results := Rank([]Candidate{{ID: "x", Distance: 75}}, query, "some product text", lookup)
		require.Len(t, results, 1)
		if prev >= 0 {
			assert.GreaterOrEqual(t, results[0].HybridScore, prev)
		}
		prev = results[0].HybridScore
	}
}

func TestRankEmptyOCRDiscountsText(t *testing.T) {
	lookup := mapLookup{"x": {1, 0}}
	candidates := []Candidate{{ID: "x", Distance: 75}}
	query := []float32{1, 0}

	confident := Rank(candidates, query, "sutas yogurt 1000g natural", lookup)
	empty := Rank(candidates, query, "", lookup)

	// Same perfect text match, but with no recognized text the text weight
	// shrinks and the visual term dominates.
	require.Len(t, confident, 1)
	require.Len(t, empty, 1)
	assert.Greater(t, confident[0].HybridScore, empty[0].HybridScore)
}

func TestRankNilLookupZeroText(t *testing.T) {
	results := Rank([]Candidate{{ID: "x", Distance: 0}}, []float32{1}, "text", nil)
	require.Len(t, results, 1)
	assert.Zero(t, results[0].TextSimilarity)
	assert.InDelta(t, 100.0, results[0].HybridScore, 1e-9)
}

func TestRankVisualBoostNearExactMatch(t *testing.T) {
	// Identical text similarity, visual above the ramp start: the boosted
	// weighting must rank the near-exact visual match higher than the base
	// weighting would by itself.
	lookup := mapLookup{"hi": {0, 1}, "lo": {0, 1}}
	query := []float32{0, 1}

	results := Rank([]Candidate{
		{ID: "hi", Distance: 3},   // visual 0.98
		{ID: "lo", Distance: 30},  // visual 0.80
	}, query, "label text here", lookup)
	require.Len(t, results, 2)
	assert.Equal(t, "hi", results[0].ID)

	wvHi, _ := adjustedWeights(0.98, 1.0)
	wvLo, _ := adjustedWeights(0.80, 1.0)
	assert.Greater(t, wvHi, wvLo)
}

func TestOCRConfidenceFactor(t *testing.T) {
	cases := []struct {
		text string
		min  float64
		max  float64
	}{
		{"", 0.1, 0.1},
		{"x", 0.3, 0.3},
		{"milk", 0.4, 0.4},
		{"whole milk", 0.7, 0.7},
		{"whole milk 1000 ml fresh", 1.0, 1.0},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%q", c.text), func(t *testing.T) {
			f := ocrConfidenceFactor(c.text)
			assert.GreaterOrEqual(t, f, c.min)
			assert.LessOrEqual(t, f, c.max)
		})
	}
}

func TestCosineSimilarityZeroNorm(t *testing.T) {
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Zero(t, cosineSimilarity(nil, []float32{1}))
	assert.Zero(t, cosineSimilarity([]float32{1, 2}, []float32{1}))
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
}
