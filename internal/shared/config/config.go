package config

import (
	"errors"
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
	DatabaseURL     string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	Synthesis SynthesisConfig
	Queue     QueueConfig
	Cache     CacheConfig
	Sweep     SweepConfig
}

// SynthesisConfig selects and tunes the report synthesis provider.
type SynthesisConfig struct {
	Provider        string
	Model           string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	GeminiAPIKey    string
	Temperature     float64
	Timeout         time.Duration
	MaxAttempts     int
	RetryBaseDelay  time.Duration
}

// QueueConfig selects the asynchronous processing backend.
type QueueConfig struct {
	Backend           string
	SQSQueueURL       string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	WorkerConcurrency int
}

// CacheConfig configures the order view cache.
type CacheConfig struct {
	Backend string
	TTL     time.Duration
	Size    int
}

// SweepConfig configures the stale processing sweep.
type SweepConfig struct {
	StaleAfter time.Duration
	Schedule   string
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderStub      = "stub"

	QueueNone  = "none"
	QueueSQS   = "sqs"
	QueueAsynq = "asynq"

	MaxSynthesisAttempts = 10

	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             normalizeEnv(getEnv("ENV", "dev")),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		ObjectStoreType: normalizeChoice(getEnv("OBJECT_STORE", "local"), "local", "s3"),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		Synthesis: SynthesisConfig{
			Provider:        normalizeChoice(getEnv("SYNTHESIS_PROVIDER", ProviderOpenAI), ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderStub),
			Model:           getEnv("SYNTHESIS_MODEL", ""),
			OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
			AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
			GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
			Temperature:     getFloat("SYNTHESIS_TEMPERATURE", 0.7),
			Timeout:         time.Duration(getInt("SYNTHESIS_TIMEOUT_SECONDS", 120)) * time.Second,
			MaxAttempts:     getInt("SYNTHESIS_MAX_ATTEMPTS", 3),
			RetryBaseDelay:  getDuration("SYNTHESIS_RETRY_BASE_DELAY", time.Second),
		},
		Queue: QueueConfig{
			Backend:           normalizeChoice(getEnv("QUEUE_BACKEND", QueueNone), QueueNone, QueueSQS, QueueAsynq),
			SQSQueueURL:       getEnv("SQS_QUEUE_URL", ""),
			RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword:     getEnv("REDIS_PASSWORD", ""),
			RedisDB:           getInt("REDIS_DB", 0),
			WorkerConcurrency: getInt("WORKER_CONCURRENCY", 4),
		},
		Cache: CacheConfig{
			Backend: normalizeChoice(getEnv("CACHE_BACKEND", CacheMemory), CacheMemory, CacheNone, CacheRedis),
			TTL:     getDuration("CACHE_TTL", 30*time.Second),
			Size:    getInt("CACHE_SIZE", 1024),
		},
		Sweep: SweepConfig{
			StaleAfter: getDuration("STALE_PROCESSING_AFTER", 15*time.Minute),
			Schedule:   getEnv("SWEEP_SCHEDULE", "@every 5m"),
		},
	}
}

// Validate reports configuration that would fail at first use.
func (c Config) Validate() error {
	var errs []error
	if c.Env == "production" && strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required in production"))
	}
	switch c.Synthesis.Provider {
	case ProviderOpenAI:
		if c.Synthesis.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for SYNTHESIS_PROVIDER=openai"))
		}
	case ProviderAnthropic:
		if c.Synthesis.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY is required for SYNTHESIS_PROVIDER=anthropic"))
		}
	case ProviderGemini:
		if c.Synthesis.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for SYNTHESIS_PROVIDER=gemini"))
		}
	case ProviderStub:
		if c.Env == "production" {
			errs = append(errs, errors.New("SYNTHESIS_PROVIDER=stub is not allowed in production"))
		}
	}
	if c.Synthesis.MaxAttempts <= 0 || c.Synthesis.MaxAttempts > MaxSynthesisAttempts {
		errs = append(errs, fmt.Errorf("SYNTHESIS_MAX_ATTEMPTS must be between 1 and %d, got %d", MaxSynthesisAttempts, c.Synthesis.MaxAttempts))
	}
	if c.Synthesis.RetryBaseDelay < 0 {
		errs = append(errs, fmt.Errorf("SYNTHESIS_RETRY_BASE_DELAY must not be negative"))
	}
	if c.Queue.Backend == QueueSQS && c.Queue.SQSQueueURL == "" {
		errs = append(errs, errors.New("SQS_QUEUE_URL is required for QUEUE_BACKEND=sqs"))
	}
	if c.ObjectStoreType == "s3" && c.S3Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET is required for OBJECT_STORE=s3"))
	}
	if c.Sweep.StaleAfter <= 0 {
		errs = append(errs, errors.New("STALE_PROCESSING_AFTER must be positive"))
	}
	return errors.Join(errs...)
}

// IsDevLike reports whether in-memory fallbacks are acceptable.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}

func getEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}

func getFloat(key string, def float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return val
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
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
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

// normalizeChoice lowercases raw and falls back to the first choice when it
// is not one of choices.
func normalizeChoice(raw string, choices ...string) string {
	clean := strings.ToLower(strings.TrimSpace(raw))
	for _, c := range choices {
		if clean == c {
			return c
		}
	}
	return choices[0]
}
