package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hrygo/shelfsight/imaging/colorclass"
)

// EmbeddingService turns recognized product text into an embedding vector.
type EmbeddingService interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedWithColor prefixes the text with a color hint before embedding,
	// so entries of the same product family in different colors separate in
	// the text space too.
	EmbedWithColor(ctx context.Context, text string, color colorclass.Category) ([]float32, error)

	// Dimensions returns the vector dimension.
	Dimensions() int
}

// EmbeddingConfig configures an OpenAI-compatible embedding provider.
type EmbeddingConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

type embeddingService struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewEmbeddingService creates an EmbeddingService. Any OpenAI-compatible
// provider works: openai, siliconflow, ollama and friends.
func NewEmbeddingService(cfg *EmbeddingConfig) (EmbeddingService, error) {
	if cfg.Model == "" {
		return nil, errors.New("embedding model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &embeddingService{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

func (s *embeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("no text provided for embedding")
	}

	req := openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(s.model),
		Dimensions: s.dimensions,
	}
	resp, err := s.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "create embeddings failed")
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

func (s *embeddingService) EmbedWithColor(ctx context.Context, text string, color colorclass.Category) ([]float32, error) {
	if color != "" && color != colorclass.Unknown {
		text = fmt.Sprintf("color:%s | %s", color, text)
	}
	return s.Embed(ctx, text)
}

func (s *embeddingService) Dimensions() int {
	return s.dimensions
}
