package extractor

import (
	"github.com/pkg/errors"
)

// ModelRegistry bundles the model service clients one worker uses. Each
// worker constructs its own registry instead of sharing process globals, so
// client state (HTTP connections, provider sessions) never crosses worker
// boundaries.
type ModelRegistry struct {
	Features  FeatureService
	Text      TextService
	Embedding EmbeddingService
}

// RegistryConfig aggregates the client configurations for one registry.
type RegistryConfig struct {
	Feature   FeatureConfig
	Text      TextConfig
	Embedding EmbeddingConfig
}

// NewModelRegistry builds a registry from scratch. The feature service URL
// is mandatory; recognition and embedding degrade gracefully at call time
// when their backends are missing, but construction still validates what it
// can.
func NewModelRegistry(cfg *RegistryConfig) (*ModelRegistry, error) {
	if cfg.Feature.BaseURL == "" {
		return nil, errors.New("feature service URL is required")
	}

	embedding, err := NewEmbeddingService(&cfg.Embedding)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create embedding service")
	}

	return &ModelRegistry{
		Features:  NewFeatureService(&cfg.Feature),
		Text:      NewTextService(&cfg.Text),
		Embedding: embedding,
	}, nil
}
