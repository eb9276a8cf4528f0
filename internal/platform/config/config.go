package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. Verification policy knobs live
// here too so main stays lean and services receive plain values.
type Server struct {
	Addr          string
	DatabaseURL   string
	Redis         RedisConfig
	JWTSigningKey string

	// AdminTokenHash is a bcrypt hash of the back-office token. AdminToken is
	// the plain-text fallback for development.
	AdminTokenHash string
	AdminToken     string

	KafkaBrokers []string
	AuditTopic   string

	// AllowReverify permits a new submission while the current record is
	// approved, demoting the user back to pending review.
	AllowReverify bool

	MaxImageBytes  int
	StatusCacheTTL time.Duration
}

// RedisConfig holds connection settings for the status cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultMaxImageBytes bounds a single captured image (data URI form).
const DefaultMaxImageBytes = 5 << 20

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:           envOr("TRUSTBADGE_ADDR", ":8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSigningKey:  envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdminTokenHash: os.Getenv("ADMIN_TOKEN_HASH"),
		AdminToken:     os.Getenv("ADMIN_TOKEN"),
		AuditTopic:     envOr("AUDIT_TOPIC", "trustbadge.audit"),
		AllowReverify:  os.Getenv("ALLOW_REVERIFY") == "true",
		MaxImageBytes:  envInt("MAX_IMAGE_BYTES", DefaultMaxImageBytes),
		StatusCacheTTL: envDuration("STATUS_CACHE_TTL", 3*time.Second),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
