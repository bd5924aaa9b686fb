package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	StoragePath    string
	StorageBaseURL string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIOrg     string
	SmartModel    string
	EconomyModel  string
	ImageModel    string
	VoiceModel    string
	DefaultVoice  string

	AcceptThreshold        int
	HighPotentialThreshold int
	MaxRetries             int
	PartialScoreFloor      int
	StageTimeout           time.Duration
	StageRetries           int
	WorkerConcurrency      int64

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	AllowedOrigins   []string

	// Generation requests allowed per client IP per minute. Zero disables
	// the limiter.
	GenerateRateLimit int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		StoragePath:    getEnv("STORAGE_PATH", "./dane/wideo"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:     os.Getenv("OPENAI_ORG"),
		SmartModel:    getEnv("SMART_MODEL", "gpt-4o"),
		EconomyModel:  getEnv("ECONOMY_MODEL", "gpt-4o-mini"),
		ImageModel:    getEnv("IMAGE_MODEL", "dall-e-3"),
		VoiceModel:    getEnv("VOICE_MODEL", "tts-1"),
		DefaultVoice:  getEnv("DEFAULT_VOICE", "nova"),

		AcceptThreshold:        getEnvInt("ACCEPT_THRESHOLD", 60),
		HighPotentialThreshold: getEnvInt("HIGH_POTENTIAL_THRESHOLD", 85),
		MaxRetries:             getEnvInt("MAX_RETRIES", 3),
		PartialScoreFloor:      getEnvInt("PARTIAL_SCORE_FLOOR", 40),
		StageTimeout:           time.Second * time.Duration(getEnvInt("STAGE_TIMEOUT_SECONDS", 90)),
		StageRetries:           getEnvInt("STAGE_RETRIES", 1),
		WorkerConcurrency:      int64(getEnvInt("WORKER_CONCURRENCY", 4)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		AllowedOrigins:   []string{getEnv("ALLOWED_ORIGIN", "http://localhost:3000")},

		GenerateRateLimit: getEnvInt("GENERATE_RATE_LIMIT", 10),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.AcceptThreshold < 0 || cfg.AcceptThreshold > 100 {
		return nil, fmt.Errorf("ACCEPT_THRESHOLD must be within [0,100], got %d", cfg.AcceptThreshold)
	}

	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("MAX_RETRIES must be at least 1, got %d", cfg.MaxRetries)
	}

	return cfg, nil
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
