package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/shelfsight/internal/cache"
	"github.com/hrygo/shelfsight/search"
	"github.com/hrygo/shelfsight/store"
)

// Source adapts the catalog store to the index and the ranker: it feeds
// feature vectors to rebuilds and resolves text embeddings for re-ranking.
// Text embeddings sit behind an LRU so re-ranking the same popular products
// does not hammer the database.
type Source struct {
	store     *store.Store
	textCache *cache.LRU[string, []float32]
}

func NewSource(s *store.Store) *Source {
	return &Source{
		store:     s,
		textCache: cache.NewLRU[string, []float32](2048, 10*time.Minute),
	}
}

// ListEntriesWithFeatures returns every entry carrying a visual embedding.
// A listing also refreshes the text embedding cache, since a rebuild means
// the catalog changed.
func (s *Source) ListEntriesWithFeatures(ctx context.Context) ([]search.Entry, error) {
	entries, err := s.store.ListCatalogEntries(ctx, &store.FindCatalogEntry{OnlyWithFeatures: true})
	if err != nil {
		return nil, err
	}

	s.textCache.Clear()
	out := make([]search.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, search.Entry{
			ID:            e.ID,
			ColorCategory: e.ColorCategory,
			Vector:        e.VisualEmbedding,
		})
		if len(e.TextEmbedding) > 0 {
			s.textCache.Set(e.ID, e.TextEmbedding)
		}
	}
	return out, nil
}

// TextEmbedding resolves the stored text embedding for one entry. Lookup
// failures degrade to no embedding; the hit then ranks on visuals alone.
func (s *Source) TextEmbedding(id string) []float32 {
	if vec, ok := s.textCache.Get(id); ok {
		return vec
	}

	entry, err := s.store.GetCatalogEntry(context.Background(), id)
	if err != nil {
		slog.Warn("text embedding lookup failed", "id", id, "err", err)
		return nil
	}
	if entry == nil {
		return nil
	}
	if len(entry.TextEmbedding) > 0 {
		s.textCache.Set(entry.ID, entry.TextEmbedding)
	}
	return entry.TextEmbedding
}
