package infra

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider selector values accepted from the environment.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderRunware    = "runware"
)

// Config represents application configuration loaded from environment variables.
// It is built once at startup and passed by reference into the handler layer;
// request handling never reads the environment directly.
type Config struct {
	AppEnv string
	Host   string
	Port   string

	Provider string

	GeminiAPIKey        string
	GeminiModel         string
	GeminiFallbackModel string
	GeminiBaseURL       string
	GeminiTimeout       time.Duration

	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterBaseURL string

	RunwareAPIKey  string
	RunwareModel   string
	RunwareBaseURL string
	RunwareTimeout time.Duration

	ResultsCount int
	MaxBodyBytes int64
	UploadDir    string
	StaticDir    string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. Variable names are a compatibility contract with
// deployed .env files and must not change.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Host:   getEnv("HOST", "0.0.0.0"),
		Port:   getEnv("PORT", "8080"),

		Provider: normalizeProvider(os.Getenv("PROVIDER")),

		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.5-flash-image-preview"),
		GeminiFallbackModel: strings.TrimSpace(os.Getenv("GEMINI_FALLBACK_MODEL")),
		GeminiBaseURL:       getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiTimeout:       time.Millisecond * time.Duration(getEnvInt("GEMINI_TIMEOUT_MS", 15000)),

		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:   getEnv("OPENROUTER_MODEL", "google/gemini-2.0-flash-exp"),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),

		RunwareAPIKey:  os.Getenv("RUNWARE_API_KEY"),
		RunwareModel:   getEnv("RUNWARE_MODEL", "runware:101@1"),
		RunwareBaseURL: getEnv("RUNWARE_BASE_URL", "https://api.runware.ai/v1"),
		RunwareTimeout: time.Millisecond * time.Duration(getEnvInt("RUNWARE_TIMEOUT_MS", 60000)),

		ResultsCount: clampResults(getEnvInt("RESULTS_COUNT", 1)),
		MaxBodyBytes: int64(getEnvInt("MAX_BODY_MB", 25)) * 1024 * 1024,
		UploadDir:    getEnv("UPLOAD_DIR", "uploads"),
		StaticDir:    getEnv("STATIC_DIR", "public"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 60)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	return cfg, nil
}

func normalizeProvider(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case ProviderOpenRouter:
		return ProviderOpenRouter
	case ProviderRunware:
		return ProviderRunware
	default:
		return ProviderGemini
	}
}

func clampResults(n int) int {
	if n < 1 {
		return 1
	}
	if n > 4 {
		return 4
	}
	return n
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
