package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv string

	// Kafka
	KafkaBrokers  []string
	IssuesTopic   string
	ConsumerGroup string
	PollInterval  time.Duration
	BatchSize     int

	// Firestore
	FirestoreProject  string
	GoogleCredentials string

	// Redis - empty disables the recency cache
	RedisURL string
	CacheTTL time.Duration

	// Meilisearch - empty disables search indexing
	MeiliURL       string
	MeiliMasterKey string

	// MinIO - empty endpoint disables attachment storage
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

func Load() Config {
	return Config{
		AppEnv: getenv("APP_ENV", "development"),

		KafkaBrokers:  splitList(getenv("KAFKA_BROKERS", "localhost:9092")),
		IssuesTopic:   getenv("KAFKA_ISSUES_TOPIC", "issuetracker.issues"),
		ConsumerGroup: getenv("KAFKA_CONSUMER_GROUP", "issuetracker-consumer"),
		PollInterval:  time.Duration(getenvInt("CONSUMER_POLL_MS", 1000)) * time.Millisecond,
		BatchSize:     getenvInt("CONSUMER_BATCH_SIZE", 10),

		FirestoreProject:  getenv("FIRESTORE_PROJECT", "issuetracker-dev"),
		GoogleCredentials: getenv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		RedisURL: getenv("REDIS_URL", "redis://localhost:6379/0"),
		CacheTTL: time.Duration(getenvInt("CACHE_TTL_SECONDS", 3600)) * time.Second,

		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),

		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "issuetracker-attachments"),
		MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
