package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"parsec/internal/economy"
)

type APIConfig struct {
	Addr                string
	DatabaseURL         string
	ServiceToken        string
	StartupMigrate      bool
	DividendPayoutEvery time.Duration
	TaxSweepEvery       time.Duration
	DiscordBotToken     string
	DiscordAlertChannel string
	Engine              economy.Config
}

type CLIConfig struct {
	APIBaseURL   string
	ServiceToken string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("PARSEC_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:                addr,
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		ServiceToken:        strings.TrimSpace(os.Getenv("PARSEC_SERVICE_TOKEN")),
		StartupMigrate:      envBoolDefault("PARSEC_STARTUP_MIGRATE", true),
		DividendPayoutEvery: envDurationDefault("PARSEC_DIVIDEND_PAYOUT_EVERY", 10*time.Minute),
		TaxSweepEvery:       envDurationDefault("PARSEC_TAX_SWEEP_EVERY", 24*time.Hour),
		DiscordBotToken:     strings.TrimSpace(os.Getenv("PARSEC_DISCORD_BOT_TOKEN")),
		DiscordAlertChannel: strings.TrimSpace(os.Getenv("PARSEC_DISCORD_ALERT_CHANNEL")),
		Engine:              engineFromEnv(),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ServiceToken == "" {
		return cfg, fmt.Errorf("PARSEC_SERVICE_TOKEN is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL:   strings.TrimRight(envDefault("PSC_API_BASE_URL", "http://localhost:8080"), "/"),
		ServiceToken: strings.TrimSpace(os.Getenv("PARSEC_SERVICE_TOKEN")),
	}
}

func engineFromEnv() economy.Config {
	cfg := economy.DefaultConfig()
	cfg.MaxTxAttempts = envIntDefault("PARSEC_MAX_TX_ATTEMPTS", cfg.MaxTxAttempts)
	cfg.RetryBackoff = envDurationDefault("PARSEC_TX_RETRY_BACKOFF", cfg.RetryBackoff)
	cfg.DefaultAlertThreshold = envInt64Default("PARSEC_ALERT_THRESHOLD", cfg.DefaultAlertThreshold)
	cfg.TaxRateBps = envInt64Default("PARSEC_TAX_RATE_BPS", cfg.TaxRateBps)
	cfg.GovOwnerID = envInt64Default("PARSEC_GOV_OWNER_ID", cfg.GovOwnerID)
	cfg.MinIPORating = envInt64Default("PARSEC_MIN_IPO_RATING", cfg.MinIPORating)
	return cfg
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envInt64Default(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
