package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string

	// Market data
	Symbols     string // comma-separated, e.g. "AAPL,MSFT,GOOG"
	CandleDir   string // directory of candle files, one per symbol
	BarInterval string // candle interval requested from the feed
	SeriesLimit int    // candles fetched per evaluation

	// Evaluation
	EvalInterval        time.Duration
	ConfidenceThreshold float64

	// Paper trading
	PortfolioID  string
	StartingCash float64
	TradeQty     float64

	// Alerting (all optional)
	WebhookURL       string
	TelegramBotToken string
	TelegramChatID   string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/quant.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		Symbols:     getEnv("SYMBOLS", "AAPL,MSFT,GOOG"),
		CandleDir:   getEnv("CANDLE_DIR", "data/candles"),
		BarInterval: getEnv("BAR_INTERVAL", "1d"),
		SeriesLimit: getEnvInt("SERIES_LIMIT", 250),

		EvalInterval:        getEnvDuration("EVAL_INTERVAL", 60*time.Second),
		ConfidenceThreshold: getEnvFloat("CONFIDENCE_THRESHOLD", 70),

		PortfolioID:  getEnv("PORTFOLIO_ID", "paper"),
		StartingCash: getEnvFloat("STARTING_CASH", 100000),
		TradeQty:     getEnvFloat("TRADE_QTY", 1),

		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
	}
}

// ParseSymbols parses the Symbols string into a clean slice.
func (c *Config) ParseSymbols() []string {
	parts := strings.Split(c.Symbols, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		symbols = append(symbols, p)
	}
	return symbols
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[config] invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
