package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime settings read from the environment (.env is loaded by
// the entrypoint with godotenv before Load is called).
type Config struct {
	AppEnv string
	Port   string

	DBDriver    string // postgres | sqlite
	SQLitePath  string
	JWTSecret   string
	StoreName   string
	UploadDir   string
	DefaultPass string

	AdminEmail    string
	AdminPassword string

	FonnteToken  string
	WAGatewayURL string
	WATimeout    time.Duration

	NotifyWorkers     int
	NotifyMaxAttempts int
	NotifyRetrySpec   string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:            strings.ToLower(getenv("APP_ENV", "development")),
		Port:              getenv("PORT", "3000"),
		DBDriver:          strings.ToLower(getenv("DB_DRIVER", "postgres")),
		SQLitePath:        getenv("SQLITE_PATH", "ijaplastik.db"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		StoreName:         getenv("STORE_NAME", "TOKO IJA PLASTIK"),
		UploadDir:         getenv("UPLOAD_DIR", "./uploads"),
		DefaultPass:       getenv("DEFAULT_USER_PASSWORD", "123456789"),
		AdminEmail:        strings.ToLower(getenv("ADMIN_EMAIL", "admin@ijaplastik.local")),
		AdminPassword:     getenv("ADMIN_PASSWORD", "admin123"),
		FonnteToken:       os.Getenv("FONNTE_TOKEN"),
		WAGatewayURL:      getenv("WA_GATEWAY_URL", "https://api.fonnte.com/send"),
		WATimeout:         getDuration("WA_TIMEOUT", 15*time.Second),
		NotifyWorkers:     getInt("NOTIFY_WORKERS", 2),
		NotifyMaxAttempts: getInt("NOTIFY_MAX_ATTEMPTS", 3),
		NotifyRetrySpec:   getenv("NOTIFY_RETRY_SPEC", "@every 1m"),
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = "dev_secret_key_change_me"
		// pkg/jwt reads the secret from the environment
		os.Setenv("JWT_SECRET", cfg.JWTSecret)
	}
	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		return nil, errors.New("DB_DRIVER must be postgres or sqlite")
	}
	if cfg.NotifyWorkers < 1 {
		cfg.NotifyWorkers = 1
	}
	if cfg.NotifyMaxAttempts < 1 {
		cfg.NotifyMaxAttempts = 1
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
