// Package sigengine is the top-level orchestrator: it pulls candle
// series from the feed, computes indicators, runs the strategies, and
// routes surviving signals to storage and Redis.
package sigengine

import (
	"context"
	"log"
	"log/slog"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"quant-corev1/internal/aggregator"
	"quant-corev1/internal/indicator"
	"quant-corev1/internal/logger"
	"quant-corev1/internal/metrics"
	"quant-corev1/internal/model"
	"quant-corev1/internal/notification"
	"quant-corev1/internal/strategy"
)

// Publisher fans evaluated results out to live subscribers.
type Publisher interface {
	SetPrice(ctx context.Context, symbol string, price float64) error
	SetVolatility(ctx context.Context, symbol string, vol float64) error
	PublishSignal(ctx context.Context, sig model.Signal) error
	PublishAggregate(ctx context.Context, agg model.AggregatedSignal) error
}

// Config configures the signal engine service.
type Config struct {
	Symbols             []string
	BarInterval         string
	SeriesLimit         int
	EvalInterval        time.Duration
	ConfidenceThreshold float64
}

// Service wires the evaluation pipeline and manages its lifecycle.
type Service struct {
	cfg Config

	feed       model.MarketDataFeed
	engine     *indicator.Engine
	strategies []strategy.Strategy
	signals    model.SignalStore
	pub        Publisher
	prom       *metrics.Metrics
	health     *metrics.HealthStatus
	notify     notification.Notifier
}

// SetNotifier attaches an alert channel for actionable signals.
func (svc *Service) SetNotifier(n notification.Notifier) { svc.notify = n }

// New creates a Service. signals, pub, prom and health may be nil,
// which disables the corresponding concern.
func New(cfg Config, feed model.MarketDataFeed, strategies []strategy.Strategy, signals model.SignalStore, pub Publisher, prom *metrics.Metrics, health *metrics.HealthStatus) *Service {
	if cfg.SeriesLimit <= 0 {
		cfg.SeriesLimit = 250
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = aggregator.DefaultConfidenceThreshold
	}
	return &Service{
		cfg:        cfg,
		feed:       feed,
		engine:     indicator.NewEngine(indicator.DefaultConfig()),
		strategies: strategies,
		signals:    signals,
		pub:        pub,
		prom:       prom,
		health:     health,
	}
}

// Run evaluates immediately, then on every tick until ctx is cancelled.
func (svc *Service) Run(ctx context.Context) error {
	log.Printf("[sigengine] starting: %d symbols, %d strategies, interval %s",
		len(svc.cfg.Symbols), len(svc.strategies), svc.cfg.EvalInterval)

	ticker := time.NewTicker(svc.cfg.EvalInterval)
	defer ticker.Stop()

	svc.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("[sigengine] shutdown")
			return ctx.Err()
		case <-ticker.C:
			svc.RunCycle(ctx)
		}
	}
}

// RunCycle evaluates every configured symbol once. Symbols evaluate in
// parallel; a failing symbol never blocks the others.
func (svc *Service) RunCycle(ctx context.Context) {
	start := time.Now()

	var (
		mu  sync.Mutex
		raw []model.Signal
	)
	var wg sync.WaitGroup
	feedOK := true
	for _, symbol := range svc.cfg.Symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			symCtx := logger.WithTraceID(ctx, logger.GenerateTraceID(symbol, start))
			signals, err := svc.evaluateSymbol(symCtx, symbol)
			if err != nil {
				slog.Warn("symbol evaluation failed",
					append(logger.LogWithTrace(symCtx), slog.String("symbol", symbol), slog.Any("err", err))...)
				mu.Lock()
				feedOK = false
				mu.Unlock()
				return
			}
			mu.Lock()
			raw = append(raw, signals...)
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	svc.dispatch(ctx, raw)

	if svc.prom != nil {
		svc.prom.EvalCycleDur.Observe(time.Since(start).Seconds())
	}
	if svc.health != nil {
		svc.health.SetFeedOK(feedOK)
		svc.health.SetLastEvalTime(time.Now())
	}
}

// evaluateSymbol fetches the series, computes indicators and collects
// each strategy's verdict.
func (svc *Service) evaluateSymbol(ctx context.Context, symbol string) ([]model.Signal, error) {
	series, err := svc.feed.GetOHLCV(ctx, symbol, svc.cfg.BarInterval, svc.cfg.SeriesLimit)
	if err != nil {
		if svc.prom != nil {
			svc.prom.FeedErrors.Inc()
		}
		return nil, err
	}
	if err := series.Validate(); err != nil {
		if svc.prom != nil {
			svc.prom.SeriesRejected.Inc()
		}
		return nil, err
	}

	computeStart := time.Now()
	sets := svc.engine.Compute(series)
	if svc.prom != nil {
		svc.prom.IndicatorComputeDur.Observe(time.Since(computeStart).Seconds())
	}

	// Publish the last close and recent volatility so market orders and
	// risk scoring downstream work against fresh data.
	if svc.pub != nil && len(series) > 0 {
		last := series[len(series)-1]
		if err := svc.pub.SetPrice(ctx, symbol, last.Close); err != nil {
			log.Printf("[sigengine] price publish failed for %s: %v", symbol, err)
		}
		if returns := series.Returns(); len(returns) > 1 {
			if err := svc.pub.SetVolatility(ctx, symbol, stat.StdDev(returns, nil)); err != nil {
				log.Printf("[sigengine] volatility publish failed for %s: %v", symbol, err)
			}
		}
	}

	var signals []model.Signal
	for _, strat := range svc.strategies {
		sig := strat.Evaluate(series, sets)
		if sig == nil {
			continue
		}
		if svc.prom != nil {
			svc.prom.SignalsGenerated.WithLabelValues(strat.Name()).Inc()
		}
		signals = append(signals, *sig)
	}
	return signals, nil
}

// dispatch filters the cycle's raw signals, persists and publishes the
// survivors, and publishes the combined per-symbol view.
func (svc *Service) dispatch(ctx context.Context, raw []model.Signal) {
	if len(raw) == 0 {
		return
	}

	filtered := aggregator.FilterDedupe(raw, svc.cfg.ConfidenceThreshold)
	if svc.prom != nil {
		svc.prom.SignalsFiltered.Add(float64(len(filtered)))
	}

	midnight := midnightUTC(time.Now())
	for _, sig := range filtered {
		if svc.signals != nil {
			seen, err := svc.signals.HasSignalSince(ctx, sig.Symbol, sig.Strategy, midnight)
			if err != nil {
				log.Printf("[sigengine] dedupe lookup failed for %s/%s: %v", sig.Symbol, sig.Strategy, err)
			} else if seen {
				// One actionable call per strategy per symbol per day.
				if svc.prom != nil {
					svc.prom.SignalsDeduped.Inc()
				}
				continue
			}
			if err := svc.signals.SaveSignal(ctx, sig); err != nil {
				log.Printf("[sigengine] signal persist failed for %s/%s: %v", sig.Symbol, sig.Strategy, err)
			} else if svc.prom != nil {
				svc.prom.SignalsPersisted.Inc()
			}
		}
		if svc.pub != nil {
			if err := svc.pub.PublishSignal(ctx, sig); err != nil {
				log.Printf("[sigengine] signal publish failed for %s: %v", sig.Symbol, err)
			}
		}
		if svc.notify != nil {
			if err := svc.notify.Send(ctx, notification.FromSignal(sig)); err != nil {
				log.Printf("[sigengine] alert send failed for %s: %v", sig.Symbol, err)
			}
		}
		slog.Info("signal",
			slog.String("symbol", sig.Symbol),
			slog.String("strategy", sig.Strategy),
			slog.String("action", string(sig.Action)),
			slog.Float64("confidence", sig.Confidence),
			slog.String("risk", string(sig.RiskLevel)),
		)
	}

	if svc.pub != nil {
		for _, agg := range aggregator.Combine(raw) {
			if err := svc.pub.PublishAggregate(ctx, agg); err != nil {
				log.Printf("[sigengine] aggregate publish failed for %s: %v", agg.Symbol, err)
				continue
			}
			if svc.prom != nil {
				svc.prom.AggregatesPublished.Inc()
			}
		}
	}
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
