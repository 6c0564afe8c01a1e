// cmd/sigengine runs the signal engine: it evaluates the configured
// strategies against candle series on a schedule, persists actionable
// signals to SQLite and publishes them to Redis.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"quant-corev1/config"
	"quant-corev1/internal/feed"
	"quant-corev1/internal/logger"
	"quant-corev1/internal/metrics"
	"quant-corev1/internal/notification"
	"quant-corev1/internal/sigengine"
	redisstore "quant-corev1/internal/store/redis"
	sqlitestore "quant-corev1/internal/store/sqlite"
	"quant-corev1/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	if err := godotenv.Load(); err != nil {
		log.Println("[sigengine] no .env file, using environment")
	}

	cfg := config.Load()
	logger.Init("sigengine", slog.LevelInfo)
	symbols := cfg.ParseSymbols()
	if len(symbols) == 0 {
		log.Fatal("[sigengine] no symbols configured")
	}
	log.Printf("[sigengine] symbols: %v, eval interval: %s", symbols, cfg.EvalInterval)

	// ---- Open SQLite ----
	os.MkdirAll("data", 0o755)
	store, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[sigengine] sqlite open failed: %v", err)
	}
	defer store.Close()

	// ---- Connect to Redis ----
	var pub sigengine.Publisher
	rds, err := redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Printf("[sigengine] WARNING: redis unavailable: %v (continuing without publishing)", err)
	} else {
		pub = rds
		defer rds.Close()
	}

	// ---- Metrics and health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetSymbols(symbols)
	srv := metrics.NewServer(cfg.MetricsAddr, health)
	srv.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if rds != nil {
		health.StartLivenessChecker(ctx, rds.Client(), store.DB(), 15*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, store.DB(), 15*time.Second)
	}

	// ---- Build the pipeline ----
	svc := sigengine.New(sigengine.Config{
		Symbols:             symbols,
		BarInterval:         cfg.BarInterval,
		SeriesLimit:         cfg.SeriesLimit,
		EvalInterval:        cfg.EvalInterval,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
	},
		feed.NewFileFeed(cfg.CandleDir),
		[]strategy.Strategy{
			strategy.NewRSIStrategy(),
			strategy.NewMACDStrategy(),
			strategy.NewMACrossover(),
		},
		store, pub, prom, health,
	)

	// ---- Optional alert channels ----
	var notifiers notification.Multi
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if len(notifiers) > 0 {
		svc.SetNotifier(notifiers)
		log.Printf("[sigengine] alerts enabled on %d channels", len(notifiers))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := svc.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("[sigengine] fatal: %v", err)
	}

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutCancel()
	srv.Stop(shutCtx)
}
