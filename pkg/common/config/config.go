package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort   string
	ServerHost   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Database
	DatabaseDriver   string
	SQLitePath       string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Unit of work retry policy
	TxMaxAttempts  int
	TxRetryBackoff time.Duration

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers       []string
	KafkaGroupID       string
	RawRowsTopic       string
	IncidentTopic      string
	IncidentAlertTTL   time.Duration
	NotificationSource string

	// Handler attempts per raw-row event before it is abandoned; <= 0 retries forever
	ConsumerMaxAttempts int

	// Genomics
	SettingsPath          string
	BiobankIDPrefix       string
	IncidentMaxMessageLen int
	InformingLoopBatch    int
	IngestionBatchSize    int

	// Worker schedule
	ReconcileInterval time.Duration
	PastDueInterval   time.Duration
}

func Load() *Config {
	return &Config{
		ServerPort:   getEnv("SERVER_PORT", "8090"),
		ServerHost:   getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),

		DatabaseDriver:   getEnv("DATABASE_DRIVER", "postgres"),
		SQLitePath:       getEnv("SQLITE_PATH", "genomics.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "genomics"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "genomics"),
		PostgresDB:       getEnv("POSTGRES_DB", "genomics"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		TxMaxAttempts:  getIntEnv("TX_MAX_ATTEMPTS", 3),
		TxRetryBackoff: getDuration("TX_RETRY_BACKOFF", 100*time.Millisecond),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:       getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "genomic-worker"),
		RawRowsTopic:       getEnv("RAW_ROWS_TOPIC", "genomic.raw-manifest-rows"),
		IncidentTopic:      getEnv("INCIDENT_TOPIC", "genomic.notifications"),
		IncidentAlertTTL:   getDuration("INCIDENT_ALERT_TTL", 6*time.Hour),
		NotificationSource: getEnv("NOTIFICATION_SOURCE", "genomic-pipeline"),

		ConsumerMaxAttempts: getIntEnv("CONSUMER_MAX_ATTEMPTS", 5),

		SettingsPath:          getEnv("GENOMICS_SETTINGS_PATH", ""),
		BiobankIDPrefix:       getEnv("BIOBANK_ID_PREFIX", "A"),
		IncidentMaxMessageLen: getIntEnv("INCIDENT_MAX_MESSAGE_LENGTH", 512),
		InformingLoopBatch:    getIntEnv("INFORMING_LOOP_BATCH", 1000),
		IngestionBatchSize:    getIntEnv("INGESTION_BATCH_SIZE", 500),

		ReconcileInterval: getDuration("RECONCILE_INTERVAL", time.Hour),
		PastDueInterval:   getDuration("PAST_DUE_INTERVAL", 24*time.Hour),
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
		return out
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
