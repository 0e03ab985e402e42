package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Feature extraction service (visual embedding inference)
	FeatureServiceURL string // base URL of the feature extraction service
	FeatureDimensions int    // dimension of visual feature vectors
	FeatureTimeout    int    // feature request timeout in seconds

	// OCR service configuration
	OCRServiceURL string // base URL of the OCR service
	OCRLanguages  string // comma-separated language hints passed to the OCR service
	OCREnabled    bool

	// Text embedding configuration (OpenAI-compatible protocol)
	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string
	EmbeddingDimensions int

	// Search pipeline configuration
	Workers         int // number of concurrent search workers
	JobTimeout      int // per-job hard timeout in seconds
	SearchTopK      int // candidates fetched per shard probe
	ResultLimit     int // ranked results persisted per job
	DebugCapture    bool
	DebugCaptureDir string // directory for normalizer stage dumps

	// Other configurations
	Mode        string
	Addr        string
	Port        int
	UNIXSock    string
	Data        string
	Driver      string
	DSN         string
	InstanceURL string
	Version     string
}

// Embedding provider default configurations.
// Used when SHELFSIGHT_EMBEDDING_BASE_URL is not explicitly set.
var embeddingProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "text-embedding-3-small",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "BAAI/bge-m3",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "nomic-embed-text",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	// Feature extraction service
	p.FeatureServiceURL = getEnvOrDefault("SHELFSIGHT_FEATURE_URL", "http://localhost:8500")
	p.FeatureDimensions = getEnvOrDefaultInt("SHELFSIGHT_FEATURE_DIMENSIONS", 2048)
	p.FeatureTimeout = getEnvOrDefaultInt("SHELFSIGHT_FEATURE_TIMEOUT_SECONDS", 30)

	// OCR service
	p.OCREnabled = getEnvOrDefault("SHELFSIGHT_OCR_ENABLED", "true") == "true"
	p.OCRServiceURL = getEnvOrDefault("SHELFSIGHT_OCR_URL", "http://localhost:8884")
	p.OCRLanguages = getEnvOrDefault("SHELFSIGHT_OCR_LANGUAGES", "tur+eng")

	// Text embedding
	p.EmbeddingProvider = getEnvOrDefault("SHELFSIGHT_EMBEDDING_PROVIDER", "siliconflow")
	p.EmbeddingModel = getEnvOrDefault("SHELFSIGHT_EMBEDDING_MODEL", "")
	p.EmbeddingAPIKey = getEnvOrDefault("SHELFSIGHT_EMBEDDING_API_KEY", "")
	p.EmbeddingBaseURL = getEnvOrDefault("SHELFSIGHT_EMBEDDING_BASE_URL", "")
	p.EmbeddingDimensions = getEnvOrDefaultInt("SHELFSIGHT_EMBEDDING_DIMENSIONS", 512)

	if p.EmbeddingProvider != "" {
		if _, ok := embeddingProviderDefaults[p.EmbeddingProvider]; !ok {
			slog.Warn("unknown embedding provider, using default: siliconflow", "provider", p.EmbeddingProvider)
			p.EmbeddingProvider = "siliconflow"
		}
	}
	if defaults, ok := embeddingProviderDefaults[p.EmbeddingProvider]; ok {
		if p.EmbeddingBaseURL == "" {
			p.EmbeddingBaseURL = defaults.BaseURL
		}
		if p.EmbeddingModel == "" {
			p.EmbeddingModel = defaults.Model
		}
	}

	// Search pipeline
	p.Workers = getEnvOrDefaultInt("SHELFSIGHT_WORKERS", 4)
	p.JobTimeout = getEnvOrDefaultInt("SHELFSIGHT_JOB_TIMEOUT_SECONDS", 120)
	p.SearchTopK = getEnvOrDefaultInt("SHELFSIGHT_SEARCH_TOP_K", 20)
	p.ResultLimit = getEnvOrDefaultInt("SHELFSIGHT_RESULT_LIMIT", 5)
	p.DebugCapture = getEnvOrDefault("SHELFSIGHT_DEBUG_CAPTURE", "false") == "true"
	p.DebugCaptureDir = getEnvOrDefault("SHELFSIGHT_DEBUG_CAPTURE_DIR", "")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "shelfsight")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/shelfsight"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("shelfsight_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile) + "?_loc=auto"
	}

	if p.DebugCapture && p.DebugCaptureDir == "" {
		p.DebugCaptureDir = filepath.Join(dataDir, "debug_preprocessing")
	}

	if p.Workers <= 0 {
		p.Workers = 1
	}
	if p.FeatureDimensions <= 0 {
		return errors.Errorf("invalid feature dimensions: %d", p.FeatureDimensions)
	}
	if p.EmbeddingDimensions <= 0 {
		return errors.Errorf("invalid embedding dimensions: %d", p.EmbeddingDimensions)
	}

	return nil
}
