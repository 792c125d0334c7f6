package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProviderShape selects how a provider's successful response is decoded.
type ProviderShape string

const (
	// ShapeJSON expects a JSON envelope carrying a base64 image field.
	ShapeJSON ProviderShape = "json"
	// ShapeBinary expects the raw image bytes as the response body.
	ShapeBinary ProviderShape = "binary"
)

// ProviderConfig describes one image generation backend. Providers are tried
// in the order they appear in the PROVIDERS list.
type ProviderConfig struct {
	Name   string
	URL    string
	APIKey string
	Shape  ProviderShape
}

// Config aggregates runtime configuration for the API server and supporting
// services.
type Config struct {
	ListenAddr      string
	MySQLDSN        string
	LogLevel        string
	SessionSecret   string
	SessionTTL      time.Duration
	ExchangeSecret  string
	MaxDailyCredits int
	RefillPeriod    time.Duration
	ProviderTimeout time.Duration
	Providers       []ProviderConfig
	StorageBackend  string
	LocalImageDir   string
	LocalBaseURL    string
	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3PublicBaseURL string
	S3UsePathStyle  bool
	S3Prefix        string
	TelegramToken   string
	TelegramChatID  int64
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	loadEnvFile()

	cfg := Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		SessionTTL:      time.Hour * time.Duration(getInt("SESSION_TTL_HOURS", 72)),
		MaxDailyCredits: getInt("MAX_DAILY_CREDITS", 3),
		RefillPeriod:    time.Hour * time.Duration(getInt("CREDIT_REFILL_HOURS", 24)),
		ProviderTimeout: time.Second * time.Duration(getInt("PROVIDER_TIMEOUT_SECONDS", 120)),
		StorageBackend:  strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
		LocalImageDir:   getEnv("LOCAL_IMAGE_DIR", "generated_images"),
		LocalBaseURL:    getEnv("LOCAL_IMAGE_BASE_URL", "/generated_images"),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3Region:        os.Getenv("S3_REGION"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:  getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:        getEnv("S3_PREFIX", "generated"),
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:  getInt64("TELEGRAM_ADMIN_CHAT_ID", 0),
	}

	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	cfg.ExchangeSecret = os.Getenv("AUTH_EXCHANGE_SECRET")

	providers, err := loadProviders()
	if err != nil {
		return Config{}, err
	}
	cfg.Providers = providers

	var missing []string
	if cfg.MySQLDSN == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if cfg.ExchangeSecret == "" {
		missing = append(missing, "AUTH_EXCHANGE_SECRET")
	}
	if cfg.StorageBackend == "s3" {
		if cfg.S3Region == "" {
			missing = append(missing, "S3_REGION")
		}
		if cfg.S3AccessKey == "" {
			missing = append(missing, "S3_ACCESS_KEY")
		}
		if cfg.S3SecretKey == "" {
			missing = append(missing, "S3_SECRET_KEY")
		}
		if cfg.S3Bucket == "" {
			missing = append(missing, "S3_BUCKET")
		}
		if cfg.S3PublicBaseURL == "" {
			missing = append(missing, "S3_PUBLIC_BASE_URL")
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}
	if cfg.StorageBackend != "s3" && cfg.StorageBackend != "local" {
		return Config{}, fmt.Errorf("unknown STORAGE_BACKEND %q (want local or s3)", cfg.StorageBackend)
	}
	if cfg.MaxDailyCredits <= 0 {
		return Config{}, fmt.Errorf("MAX_DAILY_CREDITS must be positive, got %d", cfg.MaxDailyCredits)
	}

	return cfg, nil
}

// loadProviders parses the ordered PROVIDERS list. Each name N maps to
// PROVIDER_<N>_URL, PROVIDER_<N>_API_KEY and optional PROVIDER_<N>_SHAPE.
func loadProviders() ([]ProviderConfig, error) {
	names := strings.Split(getEnv("PROVIDERS", "stability"), ",")

	var out []ProviderConfig
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		prefix := "PROVIDER_" + strings.ToUpper(name)

		p := ProviderConfig{
			Name:   name,
			URL:    os.Getenv(prefix + "_URL"),
			APIKey: os.Getenv(prefix + "_API_KEY"),
			Shape:  ProviderShape(strings.ToLower(getEnv(prefix+"_SHAPE", string(ShapeJSON)))),
		}
		if p.URL == "" {
			return nil, fmt.Errorf("provider %q: %s_URL is required", name, prefix)
		}
		if p.APIKey == "" {
			return nil, fmt.Errorf("provider %q: %s_API_KEY is required", name, prefix)
		}
		if p.Shape != ShapeJSON && p.Shape != ShapeBinary {
			return nil, fmt.Errorf("provider %q: unknown shape %q (want json or binary)", name, p.Shape)
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, errors.New("at least one provider must be configured via PROVIDERS")
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// loadEnvFile overlays variables from the first .env file found. A missing
// file is fine; the environment may already be fully populated.
func loadEnvFile() {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates, filepath.Join("configs", ".env"), ".env")

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		_ = godotenv.Overload(path)
		return
	}
}
