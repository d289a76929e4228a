// Package config loads process configuration from the environment so main
// stays lean. Every dependency is optional in development: when its URL is
// empty the wiring falls back to the in-memory implementation.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	strutil "datapass/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	Postgres     Postgres
	Redis        Redis
	Kafka        Kafka
	TokenManager TokenManager
	CompanyAPI   CompanyAPI
}

// Postgres configures the relational store.
type Postgres struct {
	URL string
}

// Redis configures the role-grant store.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the follow-up job queue.
type Kafka struct {
	Brokers []string
}

// TokenManager configures the external token-management system certain
// providers register validated requests with.
type TokenManager struct {
	Host   string
	APIKey string
}

// CompanyAPI configures the company-registry lookup used to resolve an
// organization's legal name from its SIRET.
type CompanyAPI struct {
	Host string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:          envOr("DATAPASS_ADDR", ":8080"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     envOr("JWT_ISSUER", "datapass"),
		JWTAudience:   envOr("JWT_AUDIENCE", "datapass-api"),
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
		},
		Kafka: Kafka{
			Brokers: envList("KAFKA_BROKERS"),
		},
		TokenManager: TokenManager{
			Host:   os.Getenv("TOKEN_MANAGER_HOST"),
			APIKey: os.Getenv("TOKEN_MANAGER_API_KEY"),
		},
		CompanyAPI: CompanyAPI{
			Host: os.Getenv("COMPANY_API_HOST"),
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

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	// A repeated broker in KAFKA_BROKERS would make the client dial it twice.
	return strutil.DedupeAndTrim(strings.Split(v, ","))
}
