// Package extractor holds the clients for the external model services the
// pipeline depends on: visual feature extraction, text recognition and text
// embedding. Each worker owns its own set of clients through a ModelRegistry.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// FeatureService extracts a visual feature vector from a normalized image.
type FeatureService interface {
	// ExtractFeatures returns the feature vector for an encoded image.
	ExtractFeatures(ctx context.Context, imageData []byte) ([]float32, error)

	// Dimensions returns the vector dimension the service produces.
	Dimensions() int
}

// FeatureConfig configures the feature extraction HTTP client.
type FeatureConfig struct {
	BaseURL    string
	Dimensions int
	Timeout    time.Duration
}

type featureService struct {
	baseURL    string
	dimensions int
	httpClient *http.Client
}

// NewFeatureService creates a FeatureService backed by the extraction HTTP
// API. The service exposes an accelerated endpoint and a slower CPU-only
// one; extraction tries the accelerated path once and falls back to the
// degraded path on failure.
func NewFeatureService(cfg *FeatureConfig) FeatureService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &featureService{
		baseURL:    cfg.BaseURL,
		dimensions: cfg.Dimensions,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *featureService) Dimensions() int {
	return s.dimensions
}

func (s *featureService) ExtractFeatures(ctx context.Context, imageData []byte) ([]float32, error) {
	vec, err := s.extract(ctx, "/extract", imageData)
	if err == nil {
		return vec, nil
	}

	slog.Warn("accelerated feature extraction failed, retrying on cpu path", "err", err)
	vec, cpuErr := s.extract(ctx, "/extract_cpu", imageData)
	if cpuErr != nil {
		return nil, errors.Wrap(cpuErr, "feature extraction failed on both paths")
	}
	return vec, nil
}

type featureResponse struct {
	Features []float32 `json:"features"`
	Error    string    `json:"error,omitempty"`
}

func (s *featureService) extract(ctx context.Context, path string, imageData []byte) ([]float32, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "image.jpg")
	if err != nil {
		return nil, errors.Wrap(err, "failed to build multipart request")
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, errors.Wrap(err, "failed to write image payload")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to finalize multipart request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, &body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build extraction request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "extraction request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Errorf("extraction service returned %d: %s", resp.StatusCode, snippet)
	}

	var parsed featureResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(err, "failed to decode extraction response")
	}
	if parsed.Error != "" {
		return nil, errors.Errorf("extraction service error: %s", parsed.Error)
	}
	if len(parsed.Features) == 0 {
		return nil, errors.New("extraction service returned no features")
	}
	if len(parsed.Features) != s.dimensions {
		return nil, errors.Errorf("unexpected feature dimension: got %d, want %d",
			len(parsed.Features), s.dimensions)
	}
	return parsed.Features, nil
}
