package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func featureServer(t *testing.T, gpuFails bool, dims int) *httptest.Server {
	t.Helper()
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = float32(i)
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("image")
		require.NoError(t, err)

		switch r.URL.Path {
		case "/extract":
			if gpuFails {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"features": vec})
		case "/extract_cpu":
			json.NewEncoder(w).Encode(map[string]any{"features": vec})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestExtractFeaturesAcceleratedPath(t *testing.T) {
	srv := featureServer(t, false, 8)
	defer srv.Close()

	svc := NewFeatureService(&FeatureConfig{BaseURL: srv.URL, Dimensions: 8})
	vec, err := svc.ExtractFeatures(context.Background(), []byte("jpeg bytes"))
	require.NoError(t, err)
	assert.Len(t, vec, 8)
}

func TestExtractFeaturesFallsBackToCPU(t *testing.T) {
	srv := featureServer(t, true, 8)
	defer srv.Close()

	svc := NewFeatureService(&FeatureConfig{BaseURL: srv.URL, Dimensions: 8})
	vec, err := svc.ExtractFeatures(context.Background(), []byte("jpeg bytes"))
	require.NoError(t, err)
	assert.Len(t, vec, 8)
}

func TestExtractFeaturesBothPathsDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewFeatureService(&FeatureConfig{BaseURL: srv.URL, Dimensions: 8})
	_, err := svc.ExtractFeatures(context.Background(), []byte("jpeg bytes"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both paths")
}

func TestExtractFeaturesDimensionMismatch(t *testing.T) {
	srv := featureServer(t, false, 4)
	defer srv.Close()

	svc := NewFeatureService(&FeatureConfig{BaseURL: srv.URL, Dimensions: 8})
	_, err := svc.ExtractFeatures(context.Background(), []byte("jpeg bytes"))
	require.Error(t, err)
}

func TestRecognizeTextSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "tur+eng", r.FormValue("languages"))
		json.NewEncoder(w).Encode(TextResult{Text: "sutas yogurt 1000g", Confidence: 0.91})
	}))
	defer srv.Close()

	svc := NewTextService(&TextConfig{BaseURL: srv.URL, Languages: "tur+eng", Enabled: true})
	res := svc.RecognizeText(context.Background(), []byte("jpeg bytes"))
	assert.Equal(t, "sutas yogurt 1000g", res.Text)
	assert.InDelta(t, 0.91, res.Confidence, 1e-9)
}

func TestRecognizeTextNeverErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := NewTextService(&TextConfig{BaseURL: srv.URL, Enabled: true, Timeout: time.Second})
	res := svc.RecognizeText(context.Background(), []byte("jpeg bytes"))
	assert.Empty(t, res.Text)
	assert.Zero(t, res.Confidence)
}

func TestRecognizeTextDisabled(t *testing.T) {
	svc := NewTextService(&TextConfig{Enabled: false})
	res := svc.RecognizeText(context.Background(), []byte("jpeg bytes"))
	assert.Empty(t, res.Text)
}

func TestNewModelRegistryValidation(t *testing.T) {
	_, err := NewModelRegistry(&RegistryConfig{
		Embedding: EmbeddingConfig{Model: "text-embedding-3-small"},
	})
	require.Error(t, err)

	reg, err := NewModelRegistry(&RegistryConfig{
		Feature:   FeatureConfig{BaseURL: "http://localhost:5000", Dimensions: 2048},
		Embedding: EmbeddingConfig{Model: "text-embedding-3-small", Dimensions: 512},
	})
	require.NoError(t, err)
	assert.NotNil(t, reg.Features)
	assert.NotNil(t, reg.Text)
	assert.NotNil(t, reg.Embedding)
	assert.Equal(t, 2048, reg.Features.Dimensions())
	assert.Equal(t, 512, reg.Embedding.Dimensions())
}
