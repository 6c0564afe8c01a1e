package model

import (
	"context"
	"errors"
	"time"
)

// ── Collaborator Port Interfaces ──
// These interfaces decouple the signal and ledger core from concrete
// market-data and storage implementations (Redis, SQLite, exchange
// adapters). Each implementation satisfies one or more of these ports.

// ErrMarketDataUnavailable is returned when a price or series lookup
// failed or returned nothing usable. Callers must abort the dependent
// operation rather than substitute a default value. Retrying with
// backoff is the collaborator's concern, never this core's.
var ErrMarketDataUnavailable = errors.New("market data unavailable")

// PriceSource provides live quote lookups. Fetching may block or fail
// on I/O; unavailability surfaces as ErrMarketDataUnavailable.
type PriceSource interface {
	// GetCurrentPrice returns the latest known price for a symbol.
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// MarketDataFeed retrieves historical OHLCV bars.
type MarketDataFeed interface {
	// GetOHLCV returns up to limit bars for symbol at the given bar
	// interval (e.g. "1h"), oldest first. An empty series is valid
	// "no data", not an error.
	GetOHLCV(ctx context.Context, symbol, interval string, limit int) (Series, error)
}

// SignalStore persists accepted signals.
type SignalStore interface {
	// SaveSignal appends one signal record.
	SaveSignal(ctx context.Context, sig Signal) error

	// HasSignalSince reports whether a signal with the same symbol and
	// strategy was already stored at or after the given time. Used to
	// suppress duplicate emissions within an evaluation day.
	HasSignalSince(ctx context.Context, symbol, strategy string, since time.Time) (bool, error)
}

// TradeStore persists executed trade records.
type TradeStore interface {
	// SaveTrade appends one trade record.
	SaveTrade(ctx context.Context, t Trade) error
}

// PortfolioStore persists portfolio snapshots and their positions.
type PortfolioStore interface {
	// SavePortfolio upserts a portfolio and replaces its positions.
	SavePortfolio(ctx context.Context, pf *Portfolio) error

	// LoadPortfolio loads a portfolio by id. Returns nil, nil when no
	// portfolio with that id exists.
	LoadPortfolio(ctx context.Context, id string) (*Portfolio, error)
}
