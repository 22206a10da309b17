package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the server needs to start. Values come from
// the environment, with a .env file loaded first if one is present.
type Config struct {
	Addr        string
	DBPath      string
	JWTSecret   string
	TokenTTL    time.Duration
	LockTimeout time.Duration
	LogLevel    string
	SeedDemo    bool
}

// New loads and validates configuration from environment variables.
// CAMPUSPAY_JWT_SECRET is the only hard requirement; everything else
// has a sensible default for local development.
func New() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:        getEnv("CAMPUSPAY_ADDR", ":8080"),
		DBPath:      getEnv("CAMPUSPAY_DB_PATH", "campuspay.db"),
		JWTSecret:   os.Getenv("CAMPUSPAY_JWT_SECRET"),
		TokenTTL:    getEnvDuration("CAMPUSPAY_TOKEN_TTL", 24*time.Hour),
		LockTimeout: getEnvDuration("CAMPUSPAY_LOCK_TIMEOUT", 3*time.Second),
		LogLevel:    getEnv("CAMPUSPAY_LOG_LEVEL", "info"),
		SeedDemo:    os.Getenv("CAMPUSPAY_SEED_DEMO") == "true",
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env: CAMPUSPAY_JWT_SECRET")
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("CAMPUSPAY_TOKEN_TTL must be positive")
	}
	if cfg.LockTimeout <= 0 {
		return nil, fmt.Errorf("CAMPUSPAY_LOCK_TIMEOUT must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
