// Package metrics exposes Prometheus instrumentation and the health
// endpoint for the signal engine.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal engine.
type Metrics struct {
	// Evaluation pipeline
	SignalsGenerated    *prometheus.CounterVec // labels: strategy
	SignalsFiltered     prometheus.Counter
	SignalsPersisted    prometheus.Counter
	SignalsDeduped      prometheus.Counter
	AggregatesPublished prometheus.Counter
	EvalCycleDur        prometheus.Histogram
	IndicatorComputeDur prometheus.Histogram
	SeriesRejected      prometheus.Counter
	FeedErrors          prometheus.Counter

	// Ledger
	TradesExecuted *prometheus.CounterVec // labels: action
	TradesRejected *prometheus.CounterVec // labels: reason
	PortfolioValue *prometheus.GaugeVec   // labels: portfolio
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		SignalsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_signals_generated_total",
			Help: "Signals emitted by strategies before filtering (by strategy)",
		}, []string{"strategy"}),
		SignalsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_signals_filtered_total",
			Help: "Signals surviving confidence filter and per-symbol dedupe",
		}),
		SignalsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_signals_persisted_total",
			Help: "Signals written to durable storage",
		}),
		SignalsDeduped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_signals_deduped_total",
			Help: "Signals skipped because the strategy already fired today",
		}),
		AggregatesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_aggregates_published_total",
			Help: "Combined per-symbol signals published to Redis",
		}),
		EvalCycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigengine_eval_cycle_duration_seconds",
			Help:    "Full evaluation cycle latency across all symbols",
			Buckets: prometheus.DefBuckets,
		}),
		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigengine_indicator_compute_duration_seconds",
			Help:    "Indicator computation latency per symbol series",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		SeriesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_series_rejected_total",
			Help: "Candle series rejected by validation (ordering, symbol mix)",
		}),
		FeedErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_feed_errors_total",
			Help: "Market data feed fetch failures",
		}),

		TradesExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_trades_executed_total",
			Help: "Trades committed to the ledger (by action)",
		}, []string{"action"}),
		TradesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_trades_rejected_total",
			Help: "Trades rejected by the ledger (by reason)",
		}, []string{"reason"}),
		PortfolioValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sigengine_portfolio_value",
			Help: "Mark-to-market portfolio value (cash + positions)",
		}, []string{"portfolio"}),
	}

	prometheus.MustRegister(
		m.SignalsGenerated,
		m.SignalsFiltered,
		m.SignalsPersisted,
		m.SignalsDeduped,
		m.AggregatesPublished,
		m.EvalCycleDur,
		m.IndicatorComputeDur,
		m.SeriesRejected,
		m.FeedErrors,
		m.TradesExecuted,
		m.TradesRejected,
		m.PortfolioValue,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	FeedOK         bool      `json:"feed_ok"`
	LastEvalTime   time.Time `json:"last_eval_time"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	Symbols        []string  `json:"symbols"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetFeedOK(v bool) {
	h.mu.Lock()
	h.FeedOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastEvalTime(t time.Time) {
	h.mu.Lock()
	h.LastEvalTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetSymbols(symbols []string) {
	h.mu.Lock()
	h.Symbols = symbols
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.FeedOK || !h.RedisConnected || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.RedisConnected && !h.SQLiteOK {
		overallStatus = "unhealthy"
	}

	evalAge := ""
	if !h.LastEvalTime.IsZero() {
		evalAge = time.Since(h.LastEvalTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string   `json:"status"`
		Uptime          string   `json:"uptime"`
		FeedOK          bool     `json:"feed_ok"`
		LastEvalTime    string   `json:"last_eval_time"`
		EvalAge         string   `json:"eval_age"`
		RedisConnected  bool     `json:"redis_connected"`
		RedisLatencyMs  float64  `json:"redis_latency_ms"`
		SQLiteOK        bool     `json:"sqlite_ok"`
		SQLiteLatencyMs float64  `json:"sqlite_latency_ms"`
		Symbols         []string `json:"symbols"`
		LastCheckAt     string   `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		FeedOK:          h.FeedOK,
		LastEvalTime:    h.LastEvalTime.Format(time.RFC3339),
		EvalAge:         evalAge,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		Symbols:         h.Symbols,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
