package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64
	RateLimitRPS   int
	RateLimitBurst int

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	PostgresMaxConns int

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
	ResultTTL     time.Duration

	// Kafka
	KafkaBrokers    []string
	CompletionTopic string

	// Catalogs (empty path = compiled-in defaults)
	ModalityProfilePath string
	ModelRegistryPath   string

	// Pipeline
	CanonicalRate      float64
	UncertaintyPasses  int
	UncertaintyDropout float64
	UncertaintyEnabled bool

	// Orchestrator
	MaxConcurrentJobs int
	QueueCapacity     int
	ValidateTimeout   time.Duration
	PreprocessTimeout time.Duration
	ExtractTimeout    time.Duration
	FuseTimeout       time.Duration
	PredictTimeout    time.Duration
	StageRetries      int
	RetryBackoffBase  time.Duration
	JobRetention      time.Duration
	JanitorSchedule   string
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 32*1024*1024)),
		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 100),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "vitalpath"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "vitalpath123"),
		PostgresDB:       getEnv("POSTGRES_DB", "vitalpath"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresMaxConns: getIntEnv("POSTGRES_MAX_CONNS", 16),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		RedisPoolSize: getIntEnv("REDIS_POOL_SIZE", 10),
		ResultTTL:     getDuration("RESULT_TTL", 24*time.Hour),

		KafkaBrokers:    getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		CompletionTopic: getEnv("KAFKA_COMPLETION_TOPIC", "assessment-events"),

		ModalityProfilePath: getEnv("MODALITY_PROFILE_PATH", ""),
		ModelRegistryPath:   getEnv("MODEL_REGISTRY_PATH", ""),

		CanonicalRate:      getFloatEnv("CANONICAL_RATE_HZ", 100),
		UncertaintyPasses:  getIntEnv("UNCERTAINTY_PASSES", 10),
		UncertaintyDropout: getFloatEnv("UNCERTAINTY_DROPOUT", 0.2),
		UncertaintyEnabled: getBoolEnv("UNCERTAINTY_ENABLED", true),

		MaxConcurrentJobs: getIntEnv("MAX_CONCURRENT_JOBS", 4),
		QueueCapacity:     getIntEnv("JOB_QUEUE_CAPACITY", 256),
		ValidateTimeout:   getDuration("VALIDATE_TIMEOUT", 30*time.Second),
		PreprocessTimeout: getDuration("PREPROCESS_TIMEOUT", 5*time.Minute),
		ExtractTimeout:    getDuration("EXTRACT_TIMEOUT", 2*time.Minute),
		FuseTimeout:       getDuration("FUSE_TIMEOUT", 30*time.Second),
		PredictTimeout:    getDuration("PREDICT_TIMEOUT", 1*time.Minute),
		StageRetries:      getIntEnv("STAGE_RETRIES", 2),
		RetryBackoffBase:  getDuration("RETRY_BACKOFF_BASE", 500*time.Millisecond),
		JobRetention:      getDuration("JOB_RETENTION", 7*24*time.Hour),
		JanitorSchedule:   getEnv("JANITOR_SCHEDULE", "@hourly"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.EqualFold(value, "true") || value == "1"
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
