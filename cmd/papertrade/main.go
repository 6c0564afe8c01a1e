// cmd/papertrade follows the engine's combined signals and executes
// them as market orders against a paper ledger. Fills and portfolio
// snapshots land in the same SQLite database the engine writes to.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"quant-corev1/config"
	"quant-corev1/internal/ledger"
	"quant-corev1/internal/logger"
	"quant-corev1/internal/metrics"
	"quant-corev1/internal/model"
	"quant-corev1/internal/risk"
	redisstore "quant-corev1/internal/store/redis"
	sqlitestore "quant-corev1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	if err := godotenv.Load(); err != nil {
		log.Println("[papertrade] no .env file, using environment")
	}

	cfg := config.Load()
	logger.Init("papertrade", slog.LevelInfo)

	// ---- Open SQLite ----
	os.MkdirAll("data", 0o755)
	store, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[papertrade] sqlite open failed: %v", err)
	}
	defer store.Close()

	// ---- Connect to Redis (required: prices and the signal feed) ----
	rds, err := redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatalf("[papertrade] redis connect failed: %v", err)
	}
	defer rds.Close()

	book := ledger.NewManager(ledger.Config{
		StartingCash: cfg.StartingCash,
		Prices:       rds,
		Trades:       store,
		Portfolios:   store,
	})

	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	srv := metrics.NewServer(cfg.MetricsAddr, health)
	srv.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	health.StartLivenessChecker(ctx, rds.Client(), store.DB(), 15*time.Second)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	log.Printf("[papertrade] following signals into portfolio %q (qty %.4f per trade)", cfg.PortfolioID, cfg.TradeQty)
	for agg := range rds.SubscribeAggregates(ctx) {
		execute(ctx, book, rds, prom, cfg.PortfolioID, cfg.TradeQty, agg)
		if sum, err := book.Summary(ctx, cfg.PortfolioID); err == nil {
			prom.PortfolioValue.WithLabelValues(cfg.PortfolioID).Set(sum.TotalValue)
		}
	}

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutCancel()
	srv.Stop(shutCtx)
	log.Println("[papertrade] shutdown complete")
}

// execute turns one combined signal into a market order. Rejections
// are expected operating conditions, not faults.
func execute(ctx context.Context, book *ledger.Manager, rds *redisstore.Store, prom *metrics.Metrics, portfolioID string, qty float64, agg model.AggregatedSignal) {
	var trade model.Trade
	var err error

	switch agg.Action {
	case model.ActionBuy, model.ActionStrongBuy:
		trade, err = book.ExecuteBuy(ctx, portfolioID, agg.Symbol, qty, 0)
	case model.ActionSell, model.ActionStrongSell:
		trade, err = book.ExecuteSell(ctx, portfolioID, agg.Symbol, qty, 0)
	default:
		return
	}

	if err != nil {
		prom.TradesRejected.WithLabelValues(rejectReason(err)).Inc()
		slog.Info("trade rejected",
			slog.String("symbol", agg.Symbol),
			slog.String("action", string(agg.Action)),
			slog.Any("err", err),
		)
		return
	}

	prom.TradesExecuted.WithLabelValues(string(trade.Action)).Inc()
	score, level := scoreFill(ctx, book, rds, portfolioID, agg)
	slog.Info("trade executed",
		slog.String("trade_id", trade.ID),
		slog.String("symbol", trade.Symbol),
		slog.String("action", string(trade.Action)),
		slog.Float64("qty", trade.Quantity),
		slog.Float64("price", trade.Price),
		slog.Float64("risk_score", score),
		slog.String("risk_level", string(level)),
	)
}

// scoreFill rates the resulting position from the signal's confidence,
// the symbol's recent volatility and its share of the portfolio.
func scoreFill(ctx context.Context, book *ledger.Manager, rds *redisstore.Store, portfolioID string, agg model.AggregatedSignal) (float64, model.RiskLevel) {
	vol, err := rds.GetVolatility(ctx, agg.Symbol)
	if err != nil {
		vol = 0
	}

	var pct float64
	if sum, err := book.Summary(ctx, portfolioID); err == nil && sum.TotalValue > 0 {
		for _, pos := range sum.Positions {
			if pos.Symbol == agg.Symbol {
				pct = pos.CurrentValue() / sum.TotalValue * 100
				break
			}
		}
	}

	score := risk.PositionRisk(agg.Confidence, vol, pct)
	return score, risk.Level(score)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ledger.ErrInsufficientAssets):
		return "insufficient_assets"
	case errors.Is(err, model.ErrMarketDataUnavailable):
		return "market_data_unavailable"
	case errors.Is(err, ledger.ErrInvalidTrade):
		return "invalid_request"
	default:
		return "other"
	}
}
