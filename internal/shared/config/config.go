package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	RecordStoreType string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	DatabaseURL     string

	LLMProvider     string
	LLMModel        string
	OpenAIAPIKey    string
	OpenAITimeout   time.Duration
	FeedbackRetries int
	SchemaStrict    bool

	RasterDPI float64

	LogLevel  string
	LogFormat string
	JWTSecret string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             normalizeEnv(getEnv("ENV", "dev")),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),

		ObjectStoreType: normalizeChoice(getEnv("OBJECT_STORE", "local"), "local", "s3"),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),

		RecordStoreType: normalizeChoice(getEnv("RECORD_STORE", "memory"), "memory", "redis", "postgres"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		DatabaseURL:     getEnv("DATABASE_URL", ""),

		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		LLMModel:        getEnv("LLM_MODEL", "gpt-4o-mini"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAITimeout:   time.Duration(getEnvInt("OPENAI_TIMEOUT_SECONDS", 120)) * time.Second,
		FeedbackRetries: getEnvInt("FEEDBACK_RETRIES", 0),
		SchemaStrict:    getEnvBool("FEEDBACK_SCHEMA_STRICT", false),

		RasterDPI: getEnvFloat("RASTER_DPI", 288),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		JWTSecret: getEnv("JWT_SECRET", ""),
	}
}

// Validate reports settings that are required for the selected backends.
// Only production treats them as fatal; callers decide.
func (c Config) Validate() error {
	var missing []string
	if c.ObjectStoreType == "s3" && c.S3Bucket == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if c.RecordStoreType == "postgres" && c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.RecordStoreType == "redis" && c.RedisAddr == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	if c.LLMProvider == "openai" && c.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.Env == "production" && strings.TrimSpace(c.JWTSecret) == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// IsDevLike reports whether fallbacks to local backends are acceptable.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}

func getEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil && v > 0 {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

// normalizeChoice returns raw lower-cased when it is one of allowed, else the
// first allowed value.
func normalizeChoice(raw string, allowed ...string) string {
	clean := strings.ToLower(strings.TrimSpace(raw))
	if clean == "pg" {
		clean = "postgres"
	}
	for _, a := range allowed {
		if clean == a {
			return a
		}
	}
	return allowed[0]
}
