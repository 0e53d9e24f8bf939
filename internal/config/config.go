// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every runtime setting of the room service. Values come from the
// environment (optionally seeded from a .env file by godotenv/autoload in main).
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RoomTTL       time.Duration

	// RoomStore selects the durable room record backend: "postgres", "mongo" or "memory".
	RoomStore     string
	PostgresURL   string
	MongoURL      string
	MongoDatabase string

	KakaoRestKey        string
	KakaoBaseURL        string
	KakaoPlaceURL       string
	ProviderRPS         float64
	ProviderConcurrency int

	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool
	CORSOrigins   []string
}

// Load reads the configuration from the environment, falling back to defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RoomTTL:       getEnvDuration("ROOM_TTL", 24*time.Hour),

		RoomStore:     getEnv("ROOM_STORE", "postgres"),
		PostgresURL:   postgresURL(),
		MongoURL:      getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "menupick"),

		KakaoRestKey:        os.Getenv("KAKAO_REST_KEY"),
		KakaoBaseURL:        getEnv("KAKAO_BASE_URL", "https://dapi.kakao.com"),
		KakaoPlaceURL:       getEnv("KAKAO_PLACE_URL", "https://place.map.kakao.com"),
		ProviderRPS:         getEnvFloat("PROVIDER_RPS", 20),
		ProviderConcurrency: getEnvInt("PROVIDER_CONCURRENCY", 8),

		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionTTL:    getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		CookieSecure:  getEnvBool("COOKIE_SECURE", false),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
	}

	switch cfg.RoomStore {
	case "postgres", "mongo", "memory":
	default:
		return nil, fmt.Errorf("unsupported ROOM_STORE %q (want postgres, mongo or memory)", cfg.RoomStore)
	}
	if cfg.RoomTTL <= 0 {
		return nil, fmt.Errorf("ROOM_TTL must be positive, got %s", cfg.RoomTTL)
	}
	if cfg.ProviderRPS <= 0 {
		return nil, fmt.Errorf("PROVIDER_RPS must be positive, got %v", cfg.ProviderRPS)
	}
	return cfg, nil
}

// postgresURL builds the connection string the same way database.ConnectDB always has,
// unless DATABASE_URL overrides it.
func postgresURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		getEnv("PG_HOST", "localhost"),
		getEnv("PG_PORT", "5432"),
		getEnv("PG_DATABASE", "menupick"),
	)
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvFloat(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getEnvDuration accepts Go durations ("90m", "24h").
func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
