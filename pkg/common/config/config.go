package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerHost string

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers []string

	// Pipeline topics
	TopicRawBundles  string
	TopicAnonymized  string
	TopicFeatures    string
	TopicRiskScores  string

	// De-identification
	DeidSalt           string
	PseudonymCacheSize int

	// Feature extraction
	ConceptCatalogPath string
	FeatureCachePrefix string
	FeatureCacheTTL    time.Duration

	// Risk model
	ModelArtifactDir string
}

func Load() *Config {
	return &Config{
		ServerHost: getEnv("SERVER_HOST", "0.0.0.0"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "healthflow"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "healthflow123"),
		PostgresDB:       getEnv("POSTGRES_DB", "healthflow"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),

		TopicRawBundles: getEnv("TOPIC_RAW_BUNDLES", "fhir.data.raw"),
		TopicAnonymized: getEnv("TOPIC_ANONYMIZED", "fhir.data.anonymized"),
		TopicFeatures:   getEnv("TOPIC_FEATURES", "features.patient.ready"),
		TopicRiskScores: getEnv("TOPIC_RISK_SCORES", "risk.score.calculated"),

		DeidSalt:           getEnv("DEID_SALT", "healthflow-deid-salt-2024"),
		PseudonymCacheSize: getIntEnv("PSEUDONYM_CACHE_SIZE", 4096),

		ConceptCatalogPath: getEnv("CONCEPT_CATALOG_PATH", ""),
		FeatureCachePrefix: getEnv("FEATURE_CACHE_PREFIX", "features"),
		FeatureCacheTTL:    getDuration("FEATURE_CACHE_TTL", 15*time.Minute),

		ModelArtifactDir: getEnv("MODEL_ARTIFACT_DIR", "/app/model"),
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
