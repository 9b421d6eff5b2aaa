// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string

	TelegramToken   string
	AnthropicAPIKey string

	DBDriver string
	DBDSN    string

	WebhookURL  string
	WebhookAddr string

	CacheCapacity int
	CacheTTL      time.Duration

	AnalyzeTimeout time.Duration

	RiskKeyword      string
	PotentialKeyword string

	OTLPEndpoint string
}

// Load reads .env if present, then the process environment. Missing bot
// token or API key is a fatal startup condition surfaced as an error for
// main to log and exit on.
func Load() (Config, error) {
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}

	c := Config{
		AppEnv:           env("APP_ENV", "prod"),
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		DBDriver:         env("DB_DRIVER", "sqlite"),
		DBDSN:            env("DB_DSN", "data/analyses.db"),
		WebhookURL:       os.Getenv("WEBHOOK_URL"),
		WebhookAddr:      ":" + env("PORT", "5000"),
		CacheCapacity:    atoi("CACHE_CAPACITY", 100),
		CacheTTL:         time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		AnalyzeTimeout:   time.Duration(atoi("ANALYZE_TIMEOUT_SECONDS", 60)) * time.Second,
		RiskKeyword:      env("GRADE_RISK_KEYWORD", "риск"),
		PotentialKeyword: env("GRADE_POTENTIAL_KEYWORD", "потенциал"),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if c.TelegramToken == "" {
		return Config{}, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}
	if c.AnthropicAPIKey == "" {
		return Config{}, fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}
	return c, nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
