package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port            int
	AppName         string
	CORSAllowOrigin string
	WebhookURL      string

	// Quote provider
	AlphaVantageAPIKey  string
	AlphaVantageBaseURL string
	QuoteTimeoutSeconds int
	QuoteMaxAttempts    int

	// Provider budget
	MaxFetchesPerMinute int
	MaxFetchesPerDay    int

	// Series cache (Postgres)
	CacheEnabled     bool
	CacheMaxAgeHours int
	DBHost           string
	DBPort           int
	DBName           string
	DBUser           string
	DBPassword       string

	// Sessions
	SessionIdleMinutes int
	SweepSchedule      string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            envInt("PORT", 3001),
		AppName:         envStr("APP_NAME", "TickerGuess"),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),
		WebhookURL:      envStr("WEBHOOK_URL", ""),

		AlphaVantageAPIKey:  envStr("ALPHAVANTAGE_API_KEY", "demo"),
		AlphaVantageBaseURL: envStr("ALPHAVANTAGE_BASE_URL", "https://www.alphavantage.co/query"),
		QuoteTimeoutSeconds: envInt("QUOTE_TIMEOUT_SECONDS", 15),
		QuoteMaxAttempts:    envInt("QUOTE_MAX_ATTEMPTS", 1),

		MaxFetchesPerMinute: envInt("MAX_FETCHES_PER_MINUTE", 5),
		MaxFetchesPerDay:    envInt("MAX_FETCHES_PER_DAY", 25),

		CacheEnabled:     envBool("CACHE_ENABLED", false),
		CacheMaxAgeHours: envInt("CACHE_MAX_AGE_HOURS", 12),
		DBHost:           envStr("DB_HOST", "localhost"),
		DBPort:           envInt("DB_PORT", 5432),
		DBName:           envStr("DB_NAME", "tickerguess"),
		DBUser:           envStr("DB_USER", ""),
		DBPassword:       envStr("DB_PASSWORD", ""),

		SessionIdleMinutes: envInt("SESSION_IDLE_MINUTES", 30),
		SweepSchedule:      envStr("SWEEP_SCHEDULE", "@every 5m"),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.QuoteTimeoutSeconds <= 0 {
		errs = append(errs, "QUOTE_TIMEOUT_SECONDS must be positive")
	}
	if c.QuoteMaxAttempts <= 0 {
		errs = append(errs, "QUOTE_MAX_ATTEMPTS must be at least 1")
	}
	if c.SessionIdleMinutes <= 0 {
		errs = append(errs, "SESSION_IDLE_MINUTES must be positive")
	}
	if c.CacheEnabled {
		if c.DBUser == "" {
			errs = append(errs, "DB_USER is required when CACHE_ENABLED is set")
		}
		if c.CacheMaxAgeHours <= 0 {
			errs = append(errs, "CACHE_MAX_AGE_HOURS must be positive")
		}
	}

	if c.AlphaVantageAPIKey == "demo" {
		fmt.Println("[WARN] ALPHAVANTAGE_API_KEY not set, using the demo key (only a few tickers such as IBM will load)")
	}
	if c.MaxFetchesPerMinute == 0 && c.MaxFetchesPerDay == 0 {
		fmt.Println("[WARN] MAX_FETCHES_PER_MINUTE and MAX_FETCHES_PER_DAY are both 0, provider calls are not rationed")
	}
	if !c.CacheEnabled {
		fmt.Println("[WARN] CACHE_ENABLED is off, every new game fetches from the provider")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Printf("=== %s Configuration ===\n", c.AppName)
	fmt.Printf("Port: %d\n", c.Port)
	fmt.Printf("CORS Origin: %s\n", c.CORSAllowOrigin)
	fmt.Println("--------------------------------------")
	fmt.Println("Quote Provider:")
	fmt.Printf("  Endpoint: %s\n", c.AlphaVantageBaseURL)
	fmt.Printf("  API Key: %s\n", maskKey(c.AlphaVantageAPIKey))
	fmt.Printf("  Timeout: %ds, Attempts: %d\n", c.QuoteTimeoutSeconds, c.QuoteMaxAttempts)
	fmt.Printf("  Budget: %d/min, %d/day\n", c.MaxFetchesPerMinute, c.MaxFetchesPerDay)
	fmt.Println("--------------------------------------")
	fmt.Println("Series Cache:")
	if c.CacheEnabled {
		fmt.Printf("  Postgres: %s:%d/%s\n", c.DBHost, c.DBPort, c.DBName)
		fmt.Printf("  Max Age: %d hours\n", c.CacheMaxAgeHours)
	} else {
		fmt.Println("  disabled")
	}
	fmt.Println("--------------------------------------")
	fmt.Printf("Session Idle Timeout: %d min (sweep %s)\n", c.SessionIdleMinutes, c.SweepSchedule)
	fmt.Printf("Webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "not set"))
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func (c *Config) QuoteTimeout() time.Duration {
	return time.Duration(c.QuoteTimeoutSeconds) * time.Second
}

func (c *Config) CacheMaxAge() time.Duration {
	return time.Duration(c.CacheMaxAgeHours) * time.Hour
}

func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// --- helpers ---

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

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

func maskKey(key string) string {
	if len(key) <= 4 {
		return key
	}
	return key[:2] + strings.Repeat("*", len(key)-4) + key[len(key)-2:]
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
