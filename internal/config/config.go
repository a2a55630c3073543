package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHistoryCap  = 20
	defaultPacingDelay = time.Second
)

// Config holds the application configuration
type Config struct {
	// Environment
	Environment string
	Port        string
	CORSOrigins []string // Allowed browser origins; empty reflects any origin

	// Generative API keys and models
	GeminiAPIKey     string // Google Gemini API key (image + default text provider)
	OpenAIAPIKey     string // OpenAI API key (optional text provider)
	TextProvider     string // "gemini" or "openai"
	GeminiImageModel string
	GeminiTextModel  string
	OpenAITextModel  string

	// Orchestration
	PacingDelay time.Duration // Gap between successive variation requests

	// Storage
	DatabaseURL    string        // Postgres DSN; empty runs in guest mode
	RedisURL       string        // Redis URL for the history backend
	HistoryBackend string        // "memory", "file" or "redis"
	HistoryDir     string        // Directory for the file backend
	HistoryCap     int           // Maximum history entries per user
	HistoryTTL     time.Duration // Expiry for redis history keys (0 = none)

	// Auth mode
	// - "none": guest identity (local dev)
	// - "jwt": verify access tokens issued by the external identity provider
	// - "gateway": trust X-User-* headers from an upstream gateway
	AuthMode    string
	JWTSecret   string
	JWTAudience string

	// Observability
	SentryDSN           string // Sentry DSN for error tracking
	LangfusePublicKey   string // Langfuse public key
	LangfuseSecretKey   string // Langfuse secret key
	LangfuseHost        string // Langfuse host URL (cloud or self-hosted)
	LangfuseEnabled     bool   // Feature flag for Langfuse
	CloudWatchNamespace string
}

func Load() *Config {
	return &Config{
		Environment:         getEnv("ENVIRONMENT", "development"),
		Port:                getEnv("PORT", "8080"),
		CORSOrigins:         getEnvList("CORS_ORIGINS"),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		TextProvider:        getEnv("TEXT_PROVIDER", "gemini"),
		GeminiImageModel:    getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiTextModel:     getEnv("GEMINI_TEXT_MODEL", "gemini-3-flash-preview"),
		OpenAITextModel:     getEnv("OPENAI_TEXT_MODEL", "gpt-4o-mini"),
		PacingDelay:         getEnvDuration("PACING_DELAY", defaultPacingDelay),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		HistoryBackend:      getEnv("HISTORY_BACKEND", "file"),
		HistoryDir:          getEnv("HISTORY_DIR", "./data/history"),
		HistoryCap:          getEnvInt("HISTORY_CAP", defaultHistoryCap),
		HistoryTTL:          getEnvDuration("HISTORY_TTL", 0),
		AuthMode:            getEnv("AUTH_MODE", "none"), // Default to guest mode for local dev
		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTAudience:         getEnv("JWT_AUDIENCE", "authenticated"),
		SentryDSN:           getEnv("SENTRY_DSN", ""),
		LangfusePublicKey:   getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey:   getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:        getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:     getEnv("LANGFUSE_ENABLED", "false") == "true",
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "Thumbforge/API"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil || value < 1 {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value < 0 {
		return defaultValue
	}
	return value
}

// IsGatewayMode returns true if running behind a trusted gateway
func (c *Config) IsGatewayMode() bool {
	return c.AuthMode == "gateway"
}

// IsJWTMode returns true if access tokens are verified locally
func (c *Config) IsJWTMode() bool {
	return c.AuthMode == "jwt"
}

// IsGuestMode returns true when no profile database is configured
func (c *Config) IsGuestMode() bool {
	return c.DatabaseURL == ""
}
