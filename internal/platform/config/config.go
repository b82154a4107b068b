// Package config builds runtime configuration from the environment so main
// stays lean. Every value has a development default; production deployments
// override them.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// AdminTokenHash is the bcrypt hash of the X-Admin-Token value that
	// gates the event log endpoints. Empty disables them.
	AdminTokenHash string

	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
}

// Postgres configures the primary store. An empty URL selects the in-memory
// stores (useful for development and tests).
type Postgres struct {
	URL string
}

// Redis configures the unit read cache. An empty URL disables caching.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// Kafka configures the event publisher. Empty brokers disable publishing and
// the outbox relay.
type Kafka struct {
	Brokers      []string
	Topic        string
	PollInterval time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:           envOr("CROPTRACE_ADDR", ":8080"),
		JWTSigningKey:  envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:      envOr("JWT_ISSUER", "croptrace"),
		JWTAudience:    envOr("JWT_AUDIENCE", "croptrace-api"),
		AdminTokenHash: os.Getenv("ADMIN_TOKEN_HASH"),
		Postgres: Postgres{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     envDuration("UNIT_CACHE_TTL", 30*time.Second),
		},
		Kafka: Kafka{
			Topic:        envOr("KAFKA_EVENTS_TOPIC", "croptrace.custody.events"),
			PollInterval: envDuration("OUTBOX_POLL_INTERVAL", time.Second),
		},
	}
	for _, broker := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			cfg.Kafka.Brokers = append(cfg.Kafka.Brokers, broker)
		}
	}
	return cfg
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
