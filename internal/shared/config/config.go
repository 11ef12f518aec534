package config

import (
	"log"
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
	DatabaseURL     string
	JWTSecret       string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	GCSBucket       string
	GCSPrefix       string
	GCSEndpoint     string

	ExtractServiceURL  string
	ExtractMaxAttempts int

	CategorizeProvider    string
	CategorizeServiceURL  string
	CategorizeMaxAttempts int
	LLMModel              string
	OpenAIAPIKey          string
	GCPProjectID          string
	GCPRegion             string

	UsageStore       string
	UsageServiceURL  string
	RedisURL         string
	RedisPassword    string
	TokenBudgetLimit int

	ProfileStore string

	ReplaceStrategy      string
	PipelineTickInterval time.Duration
	PipelineRunTTL       time.Duration
	PipelineEventsQueue  string

	HTTPTimeout time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:     dbURL,
		JWTSecret:       getEnv("JWT_SECRET", ""),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		GCSBucket:       getEnv("GCS_BUCKET", ""),
		GCSPrefix:       getEnv("GCS_PREFIX", ""),
		GCSEndpoint:     getEnv("GCS_ENDPOINT", ""),

		ExtractServiceURL:  getEnv("EXTRACT_SERVICE_URL", ""),
		ExtractMaxAttempts: getEnvInt("EXTRACT_MAX_ATTEMPTS", 1),

		CategorizeProvider:    normalizeProvider(getEnv("CATEGORIZE_PROVIDER", "remote")),
		CategorizeServiceURL:  getEnv("CATEGORIZE_SERVICE_URL", ""),
		CategorizeMaxAttempts: getEnvInt("CATEGORIZE_MAX_ATTEMPTS", 1),
		LLMModel:              getEnv("LLM_MODEL", ""),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		GCPProjectID:          getEnv("GCP_PROJECT_ID", ""),
		GCPRegion:             getEnv("GCP_REGION", "us-central1"),

		UsageStore:       normalizeBackend(getEnv("USAGE_STORE", ""), "redis"),
		UsageServiceURL:  getEnv("USAGE_SERVICE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		TokenBudgetLimit: getEnvInt("TOKEN_BUDGET_LIMIT", 10000),

		ProfileStore: normalizeBackend(getEnv("PROFILE_STORE", ""), "firestore"),

		ReplaceStrategy:      normalizeReplaceStrategy(getEnv("REPLACE_STRATEGY", "upload-first")),
		PipelineTickInterval: getEnvDuration("PIPELINE_TICK_INTERVAL", 400*time.Millisecond),
		PipelineRunTTL:       getEnvDuration("PIPELINE_RUN_TTL", 15*time.Minute),
		PipelineEventsQueue:  getEnv("PIPELINE_EVENTS_QUEUE_URL", ""),

		HTTPTimeout: time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 60)) * time.Second,
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config %s invalid duration: %v", key, err)
		return def
	}
	return val
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

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "gcs":
		return "gcs"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "vertex", "gemini":
		return "vertex"
	default:
		return "remote"
	}
}

// normalizeBackend maps a store selector to memory, postgres, or the given extra backend.
// An empty value means "follow DATABASE_URL" and is resolved by bootstrap.
func normalizeBackend(raw, extra string) string {
	switch v := strings.ToLower(strings.TrimSpace(raw)); v {
	case "memory", "postgres":
		return v
	case "pg":
		return "postgres"
	case extra:
		return extra
	default:
		return ""
	}
}

func normalizeReplaceStrategy(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "delete-first":
		return "delete-first"
	default:
		return "upload-first"
	}
}
