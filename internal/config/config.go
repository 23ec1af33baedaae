package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Env   string
	Port  int
	DBURL string
	Store string

	JWTSecret     string
	JWTTTLMinutes int // 0 disables token expiry

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PublicCacheTTLSeconds int
	CORSOrigins           []string
	OTLPEndpoint          string
	MaxBodyBytes          int64
}

func Load() Config {
	// .env is optional; real env vars always win.
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")

	// only dev gets a built-in secret; elsewhere JWT_SECRET must be set.
	secret := ""
	if env == "dev" {
		secret = "dev-secret-change-me"
	}

	return Config{
		Env:                   env,
		Port:                  getEnvInt("PORT", 5000),
		DBURL:                 buildDBURL(),
		Store:                 getEnv("STORE", StorePostgres),
		JWTSecret:             getEnv("JWT_SECRET", secret),
		JWTTTLMinutes:         getEnvInt("JWT_TTL_MINUTES", 0),
		RedisAddr:             getEnv("REDIS_ADDR", ""),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		RedisDB:               getEnvInt("REDIS_DB", 0),
		PublicCacheTTLSeconds: getEnvInt("PUBLIC_CACHE_TTL_SECONDS", 30),
		CORSOrigins:           getEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),
		OTLPEndpoint:          getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		MaxBodyBytes:          int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
	}
}

func (c Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

func (c Config) PublicCacheTTL() time.Duration {
	return time.Duration(c.PublicCacheTTLSeconds) * time.Second
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "wellness")
	pass := getEnv("DB_PASSWORD", "wellness")
	name := getEnv("DB_NAME", "wellness")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}

	return out
}
