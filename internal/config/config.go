// Package config loads runtime configuration from the environment.
// A .env file, when present, is loaded first so local development does
// not need exported variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the process needs to run.
type Config struct {
	ServiceName string
	HTTPAddr    string
	SQLitePath  string
	RedisAddr   string

	// SiteURL is the public storefront origin, used for checkout
	// redirect URLs and asset links.
	SiteURL string

	StripeSecretKey     string
	StripeWebhookSecret string

	ResendAPIKey string
	MailFrom     string

	Minio MinioConfig
	Lulu  LuluConfig

	// TaxRatePercent is the initial VAT rate applied to finance
	// reports; admins can change it at runtime.
	TaxRatePercent float64
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type LuluConfig struct {
	BaseURL      string
	ClientKey    string
	ClientSecret string
}

// Load reads the environment (and .env, if one exists) into a Config.
// Only the payment credentials are mandatory; everything else has a
// sensible local default.
func Load() (*Config, error) {
	// Missing .env is fine: production passes real env vars.
	_ = godotenv.Load()

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "bookstore"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		SQLitePath:  getEnv("SQLITE_PATH", "./data/bookstore.db"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		SiteURL:     getEnv("SITE_URL", "http://localhost:3000"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		MailFrom:     getEnv("MAIL_FROM", "Inkpress <books@inkpress.example>"),

		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "bookstore-assets"),
			UseSSL:    getBool("MINIO_USE_SSL", false),
		},
		Lulu: LuluConfig{
			BaseURL:      getEnv("LULU_BASE_URL", "https://api.sandbox.lulu.com"),
			ClientKey:    os.Getenv("LULU_CLIENT_KEY"),
			ClientSecret: os.Getenv("LULU_CLIENT_SECRET"),
		},

		TaxRatePercent: getFloat("TAX_RATE_PERCENT", 20),
	}

	if cfg.StripeSecretKey == "" {
		return nil, fmt.Errorf("config: STRIPE_SECRET_KEY is required")
	}
	if cfg.StripeWebhookSecret == "" {
		return nil, fmt.Errorf("config: STRIPE_WEBHOOK_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
