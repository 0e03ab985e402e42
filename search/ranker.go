package search

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

const (
	// MaxVisualDistance is the empirical working ceiling of L2 distances in
	// the feature embedding space; distances at or beyond it map to zero
	// visual similarity.
	MaxVisualDistance = 150.0

	baseVisualWeight = 0.6
	baseTextWeight   = 0.4

	// Visual similarity above which the visual weight is ramped up: a
	// near-exact visual match should dominate a noisy text comparison.
	visualBoostStart = 0.9
	visualBoostMax   = 1.25
)

// HybridResult is one ranked search hit.
type HybridResult struct {
	ID               string  `json:"id"`
	VisualSimilarity float64 `json:"visual_similarity"`
	TextSimilarity   float64 `json:"text_similarity"`
	HybridScore      float64 `json:"hybrid_score"`

	distance float64
}

// TextLookup resolves the stored text embedding of a catalog entry. A nil
// or empty return means the entry carries no text embedding.
type TextLookup interface {
	TextEmbedding(id string) []float32
}

// Rank merges visual distance and textual similarity into a single ranked
// list. The score is a confidence-adaptive weighted combination: the text
// weight is scaled by how trustworthy the recognized text looks, and the
// visual weight grows for near-exact visual matches. Scores are in [0, 100]
// and the ordering is descending, ties broken by smaller raw distance.
func Rank(candidates []Candidate, queryText []float32, ocrText string, lookup TextLookup) []HybridResult {
	textFactor := ocrConfidenceFactor(ocrText)

	results := make([]HybridResult, 0, len(candidates))
	for _, cand := range candidates {
		visual := math.Max(0, 1.0-cand.Distance/MaxVisualDistance)

		text := 0.0
		if lookup != nil {
			text = cosineSimilarity(queryText, lookup.TextEmbedding(cand.ID))
			if text < 0 {
				text = 0
			}
		}

		wv, wt := adjustedWeights(visual, textFactor)
		results = append(results, HybridResult{
			ID:               cand.ID,
			VisualSimilarity: visual,
			TextSimilarity:   text,
			HybridScore:      100.0 * (visual*wv + text*wt),
			distance:         cand.Distance,
		})
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].HybridScore != results[b].HybridScore {
			return results[a].HybridScore > results[b].HybridScore
		}
		return results[a].distance < results[b].distance
	})
	return results
}

// adjustedWeights derives the final visual/text weights, renormalized to
// sum to 1. The visual boost is a continuous ramp so the score stays
// monotonic in the visual similarity.
func adjustedWeights(visual, textFactor float64) (wv, wt float64) {
	wv = baseVisualWeight
	if visual > visualBoostStart {
		ramp := (visual - visualBoostStart) / (1.0 - visualBoostStart)
		wv *= 1.0 + (visualBoostMax-1.0)*ramp
	}
	wt = baseTextWeight * textFactor

	total := wv + wt
	return wv / total, wt / total
}

// ocrConfidenceFactor estimates how much the recognized packaging text can
// be trusted, in (0, 1]. Non-trivial word count and the presence of digits
// (weights, percentages, volumes) raise confidence; empty or single-token
// text is heavily discounted.
func ocrConfidenceFactor(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0.1
	}

	words := 0
	for _, f := range strings.Fields(trimmed) {
		if len([]rune(f)) >= 2 {
			words++
		}
	}
	hasDigit := strings.ContainsFunc(trimmed, unicode.IsDigit)

	factor := 0.3
	switch {
	case words >= 4:
		factor = 0.9
	case words >= 2:
		factor = 0.7
	case words == 1:
		factor = 0.4
	}
	if hasDigit {
		factor = math.Min(1.0, factor+0.1)
	}
	return factor
}

// cosineSimilarity returns 0 when either vector is missing or has zero
// norm; it never divides by zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
