package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port          int
	NatsURL       string
	NatsToken     string
	DatabaseURL   string
	LogLevel      string
	CatalogPath   string
	SlackBotToken string
	SlackChannel  string
	APIToken      string
	MaxBodyBytes  int
}

func Load() Config {
	return Config{
		Port:          envInt("ONCALLKB_PORT", 8760),
		NatsURL:       envStr("NATS_URL", ""),
		NatsToken:     envStr("NATS_TOKEN", ""),
		DatabaseURL:   envStr("DATABASE_URL", ""),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		CatalogPath:   envStr("ONCALLKB_CATALOG", ""),
		SlackBotToken: envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:  envStr("SLACK_DIGEST_CHANNEL", ""),
		APIToken:      envStr("ONCALLKB_API_TOKEN", ""),
		MaxBodyBytes:  envInt("ONCALLKB_MAX_BODY_BYTES", 10<<20),
	}
}

func envStr(key, fallback string) string {
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
