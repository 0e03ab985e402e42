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

// TextResult is the outcome of text recognition on a product image.
type TextResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// TextService recognizes packaging text. Recognition is best effort: a
// failed or disabled service yields an empty result, never an error, so a
// search can always fall back to pure visual matching.
type TextService interface {
	RecognizeText(ctx context.Context, imageData []byte) TextResult
}

// TextConfig configures the recognition HTTP client.
type TextConfig struct {
	BaseURL   string
	Languages string
	Enabled   bool
	Timeout   time.Duration
}

type textService struct {
	baseURL    string
	languages  string
	enabled    bool
	httpClient *http.Client
}

// NewTextService creates a TextService backed by the recognition HTTP API.
func NewTextService(cfg *TextConfig) TextService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &textService{
		baseURL:    cfg.BaseURL,
		languages:  cfg.Languages,
		enabled:    cfg.Enabled,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *textService) RecognizeText(ctx context.Context, imageData []byte) TextResult {
	if !s.enabled || s.baseURL == "" {
		return TextResult{}
	}

	result, err := s.recognize(ctx, imageData)
	if err != nil {
		slog.Warn("text recognition failed, continuing without text", "err", err)
		return TextResult{}
	}
	return result
}

func (s *textService) recognize(ctx context.Context, imageData []byte) (TextResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "image.jpg")
	if err != nil {
		return TextResult{}, errors.Wrap(err, "failed to build multipart request")
	}
	if _, err := part.Write(imageData); err != nil {
		return TextResult{}, errors.Wrap(err, "failed to write image payload")
	}
	if s.languages != "" {
		if err := writer.WriteField("languages", s.languages); err != nil {
			return TextResult{}, errors.Wrap(err, "failed to write languages field")
		}
	}
	if err := writer.Close(); err != nil {
		return TextResult{}, errors.Wrap(err, "failed to finalize multipart request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/ocr", &body)
	if err != nil {
		return TextResult{}, errors.Wrap(err, "failed to build recognition request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return TextResult{}, errors.Wrap(err, "recognition request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return TextResult{}, errors.Errorf("recognition service returned %d: %s", resp.StatusCode, snippet)
	}

	var parsed TextResult
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return TextResult{}, errors.Wrap(err, "failed to decode recognition response")
	}
	return parsed, nil
}
