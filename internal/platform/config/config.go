package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr     string
	LogLevel string

	// ServiceTokenKey signs the bearer tokens chat backends present.
	ServiceTokenKey      string
	ServiceTokenIssuer   string
	ServiceTokenAudience string

	// PatternsFile optionally extends the built-in detection tables.
	PatternsFile string

	// LockBackend selects per-user serialisation: "memory", "redis" or "postgres".
	LockBackend string

	// TracesExporter selects where gate spans go: "none" or "stdout".
	TracesExporter string

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// PostgresConfig holds connection pool settings for the ledger and user directory.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds settings for the distributed lock backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds settings for the notice dispatcher.
type KafkaConfig struct {
	Brokers     []string
	NoticeTopic string
	ClientID    string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	jwtKey := os.Getenv("SERVICE_TOKEN_KEY")
	if jwtKey == "" {
		// Use a default for development - should be overridden in production
		jwtKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:                 envOr("CHATGUARD_ADDR", ":8080"),
		LogLevel:             envOr("LOG_LEVEL", "info"),
		ServiceTokenKey:      jwtKey,
		ServiceTokenIssuer:   envOr("SERVICE_TOKEN_ISSUER", "chatguard"),
		ServiceTokenAudience: envOr("SERVICE_TOKEN_AUDIENCE", "chatguard-internal"),
		PatternsFile:         os.Getenv("MODERATION_PATTERNS_FILE"),
		LockBackend:          envOr("LOCK_BACKEND", "memory"),
		TracesExporter:       envOr("OTEL_TRACES_EXPORTER", "none"),
		Postgres: PostgresConfig{
			DSN:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(os.Getenv("KAFKA_BROKERS")),
			NoticeTopic: envOr("KAFKA_NOTICE_TOPIC", "moderation.notices"),
			ClientID:    envOr("KAFKA_CLIENT_ID", "chatguard"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
