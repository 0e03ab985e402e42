package profile

import (
	"os"
	"testing"
)

func TestProfileDefaults(t *testing.T) {
	clearEnvVars()

	profile := &Profile{}
	profile.FromEnv()

	tests := []struct {
		name     string
		expected string
		actual   string
	}{
		{"EmbeddingProvider default", "siliconflow", profile.EmbeddingProvider},
		{"EmbeddingModel default", "BAAI/bge-m3", profile.EmbeddingModel},
		{"EmbeddingBaseURL default", "https://api.siliconflow.cn/v1", profile.EmbeddingBaseURL},
		{"FeatureServiceURL default", "http://localhost:8500", profile.FeatureServiceURL},
		{"OCRLanguages default", "tur+eng", profile.OCRLanguages},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, tt.actual)
			}
		})
	}

	if profile.FeatureDimensions != 2048 {
		t.Errorf("FeatureDimensions: expected 2048, got %d", profile.FeatureDimensions)
	}
	if profile.Workers != 4 {
		t.Errorf("Workers: expected 4, got %d", profile.Workers)
	}
	if !profile.OCREnabled {
		t.Error("OCREnabled: expected true by default")
	}
}

func TestProfileFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		envValue string
		field    func(*Profile) string
		expected string
	}{
		{
			name:     "embedding API key",
			envVar:   "SHELFSIGHT_EMBEDDING_API_KEY",
			envValue: "test-key",
			field:    func(p *Profile) string { return p.EmbeddingAPIKey },
			expected: "test-key",
		},
		{
			name:     "feature service URL",
			envVar:   "SHELFSIGHT_FEATURE_URL",
			envValue: "http://inference:9000",
			field:    func(p *Profile) string { return p.FeatureServiceURL },
			expected: "http://inference:9000",
		},
		{
			name:     "OCR service URL",
			envVar:   "SHELFSIGHT_OCR_URL",
			envValue: "http://ocr:8884",
			field:    func(p *Profile) string { return p.OCRServiceURL },
			expected: "http://ocr:8884",
		},
		{
			name:     "embedding provider override",
			envVar:   "SHELFSIGHT_EMBEDDING_PROVIDER",
			envValue: "openai",
			field:    func(p *Profile) string { return p.EmbeddingProvider },
			expected: "openai",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()
			t.Setenv(tt.envVar, tt.envValue)

			profile := &Profile{}
			profile.FromEnv()

			if got := tt.field(profile); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestProfileUnknownEmbeddingProviderFallsBack(t *testing.T) {
	clearEnvVars()
	t.Setenv("SHELFSIGHT_EMBEDDING_PROVIDER", "bogus")

	profile := &Profile{}
	profile.FromEnv()

	if profile.EmbeddingProvider != "siliconflow" {
		t.Errorf("expected fallback provider siliconflow, got %q", profile.EmbeddingProvider)
	}
}

func TestProfileValidate(t *testing.T) {
	clearEnvVars()

	profile := &Profile{
		Mode:   "dev",
		Data:   t.TempDir(),
		Driver: "sqlite",
	}
	profile.FromEnv()

	if err := profile.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
	if profile.DSN == "" {
		t.Error("expected sqlite DSN to be derived from data dir")
	}
}

func TestProfileValidateRejectsZeroDimensions(t *testing.T) {
	clearEnvVars()

	profile := &Profile{
		Mode:              "dev",
		Data:              t.TempDir(),
		Driver:            "sqlite",
		FeatureDimensions: 0,
	}

	if err := profile.Validate(); err == nil {
		t.Error("expected error for zero feature dimensions")
	}
}

func clearEnvVars() {
	vars := []string{
		"SHELFSIGHT_FEATURE_URL",
		"SHELFSIGHT_FEATURE_DIMENSIONS",
		"SHELFSIGHT_FEATURE_TIMEOUT_SECONDS",
		"SHELFSIGHT_OCR_ENABLED",
		"SHELFSIGHT_OCR_URL",
		"SHELFSIGHT_OCR_LANGUAGES",
		"SHELFSIGHT_EMBEDDING_PROVIDER",
		"SHELFSIGHT_EMBEDDING_MODEL",
		"SHELFSIGHT_EMBEDDING_API_KEY",
		"SHELFSIGHT_EMBEDDING_BASE_URL",
		"SHELFSIGHT_EMBEDDING_DIMENSIONS",
		"SHELFSIGHT_WORKERS",
		"SHELFSIGHT_JOB_TIMEOUT_SECONDS",
		"SHELFSIGHT_SEARCH_TOP_K",
		"SHELFSIGHT_RESULT_LIMIT",
		"SHELFSIGHT_DEBUG_CAPTURE",
		"SHELFSIGHT_DEBUG_CAPTURE_DIR",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}
