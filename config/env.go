package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Analytics AnalyticsConfig
	Redis     RedisConfig
	LLM       LLMConfig
	Auth      AuthConfig
	Seed      SeedConfig
	RateLimit RateLimitConfig
	LogLevel  string
}

type ServerConfig struct {
	Port string
}

type DBConfig struct {
	Driver string
	DSN    string
}

type AnalyticsConfig struct {
	Path string
}

type LLMConfig struct {
	APIKey   string
	Model    string
	BaseURL  string
	MaxSteps int
}

type AuthConfig struct {
	JWTSecret string
}

type SeedConfig struct {
	InventoryPath         string
	InventoryFallbackPath string
	BatchSize             int
}

type RateLimitConfig struct {
	Chat string
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		logg.Debug("No .env file found, using environment variables")
	}

	cfg := Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8000"),
		},
		DB: DBConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			DSN:    getEnv("DATABASE_URL", "file:sous.db?_busy_timeout=5000"),
		},
		Analytics: AnalyticsConfig{
			Path: analyticsPath(getEnv("DUCKDB_PATH", ":memory:")),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		LLM: LLMConfig{
			APIKey:   getEnv("OPENAI_API_KEY", ""),
			Model:    getEnv("OPENAI_MODEL", "gpt-4o"),
			BaseURL:  getEnv("OPENAI_BASE_URL", ""),
			MaxSteps: getEnvInt("AGENT_MAX_STEPS", 5),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		},
		Seed: SeedConfig{
			InventoryPath:         getEnv("INVENTORY_SEED_PATH", "data/inventory.csv"),
			InventoryFallbackPath: getEnv("INVENTORY_SEED_FALLBACK_PATH", "backend/data/inventory.csv"),
			BatchSize:             getEnvInt("POS_BATCH_SIZE", 20),
		},
		RateLimit: RateLimitConfig{
			Chat: getEnv("RATE_LIMIT_CHAT", "10-M"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	SetLogLevel(cfg.LogLevel)
	return cfg
}

// analyticsPath maps the conventional ":memory:" marker to the empty DSN the
// DuckDB driver uses for an in-process database.
func analyticsPath(p string) string {
	if p == ":memory:" {
		return ""
	}
	return p
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}
