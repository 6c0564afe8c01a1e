// Package sqlite persists signals, trades and portfolio snapshots to a
// single SQLite database opened in WAL mode.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"quant-corev1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/quant.db"
}

// Store is the durable backend for the signal and accounting ports.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens (or creates) the database, enables WAL and applies the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer keeps WAL contention out of the picture.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol      TEXT    NOT NULL,
			strategy    TEXT    NOT NULL,
			action      TEXT    NOT NULL,
			confidence  REAL    NOT NULL,
			reason      TEXT,
			risk_level  TEXT    NOT NULL,
			ts          INTEGER NOT NULL,
			created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_signals_symbol_strategy ON signals(symbol, strategy, ts);

		CREATE TABLE IF NOT EXISTS trades (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			trade_id     TEXT    NOT NULL,
			portfolio_id TEXT    NOT NULL,
			symbol       TEXT    NOT NULL,
			action       TEXT    NOT NULL,
			qty          REAL    NOT NULL,
			price        REAL    NOT NULL,
			total_cost   REAL    NOT NULL,
			executed_at  INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_trades_portfolio ON trades(portfolio_id, executed_at);

		CREATE TABLE IF NOT EXISTS portfolios (
			id           TEXT PRIMARY KEY,
			cash_balance REAL    NOT NULL,
			positions    TEXT    NOT NULL,
			updated_at   INTEGER NOT NULL
		);
	`)
	return err
}

// SaveSignal appends one signal row.
func (s *Store) SaveSignal(ctx context.Context, sig model.Signal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO signals (symbol, strategy, action, confidence, reason, risk_level, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sig.Symbol, sig.Strategy, string(sig.Action), sig.Confidence, sig.Reason,
		string(sig.RiskLevel), sig.TS.Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite insert signal: %w", err)
	}
	return nil
}

// HasSignalSince reports whether the strategy already emitted a signal
// for the symbol at or after since.
func (s *Store) HasSignalSince(ctx context.Context, symbol, strategy string, since time.Time) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM signals WHERE symbol = ? AND strategy = ? AND ts >= ?`,
		symbol, strategy, since.Unix(),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite query signals: %w", err)
	}
	return n > 0, nil
}

// SignalRecord represents a row from the signals table.
type SignalRecord struct {
	ID         int64   `json:"id"`
	Symbol     string  `json:"symbol"`
	Strategy   string  `json:"strategy"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	RiskLevel  string  `json:"risk_level"`
	TS         int64   `json:"ts"`
}

// RecentSignals returns the last N signals, newest first.
func (s *Store) RecentSignals(ctx context.Context, limit int) ([]SignalRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, strategy, action, confidence, reason, risk_level, ts
		 FROM signals ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query signals: %w", err)
	}
	defer rows.Close()

	var out []SignalRecord
	for rows.Next() {
		var r SignalRecord
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Strategy, &r.Action, &r.Confidence,
			&r.Reason, &r.RiskLevel, &r.TS); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveTrade appends one trade row to the audit journal.
func (s *Store) SaveTrade(ctx context.Context, trade model.Trade) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trades (trade_id, portfolio_id, symbol, action, qty, price, total_cost, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.ID, trade.PortfolioID, trade.Symbol, string(trade.Action),
		trade.Quantity, trade.Price, trade.TotalCost, trade.ExecutedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite insert trade: %w", err)
	}
	return nil
}

// TradesFor returns a portfolio's last N trades, newest first.
func (s *Store) TradesFor(ctx context.Context, portfolioID string, limit int) ([]model.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT trade_id, portfolio_id, symbol, action, qty, price, total_cost, executed_at
		 FROM trades WHERE portfolio_id = ? ORDER BY id DESC LIMIT ?`, portfolioID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trades: %w", err)
	}
	defer rows.Close()

	var out []model.Trade
	for rows.Next() {
		var t model.Trade
		var action string
		var executed int64
		if err := rows.Scan(&t.ID, &t.PortfolioID, &t.Symbol, &action,
			&t.Quantity, &t.Price, &t.TotalCost, &executed); err != nil {
			continue
		}
		t.Action = model.Action(action)
		t.ExecutedAt = time.Unix(executed, 0).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

// SavePortfolio upserts the full snapshot. Positions travel as JSON so
// the row stays self-contained across schema generations.
func (s *Store) SavePortfolio(ctx context.Context, pf *model.Portfolio) error {
	positions, err := json.Marshal(pf.Positions)
	if err != nil {
		return fmt.Errorf("marshal positions: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO portfolios (id, cash_balance, positions, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   cash_balance = excluded.cash_balance,
		   positions    = excluded.positions,
		   updated_at   = excluded.updated_at`,
		pf.ID, pf.CashBalance, string(positions), pf.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite upsert portfolio: %w", err)
	}
	return nil
}

// LoadPortfolio returns the stored snapshot, or (nil, nil) when the
// portfolio has never been saved.
func (s *Store) LoadPortfolio(ctx context.Context, id string) (*model.Portfolio, error) {
	var cash float64
	var positions string
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT cash_balance, positions, updated_at FROM portfolios WHERE id = ?`, id,
	).Scan(&cash, &positions, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite query portfolio: %w", err)
	}

	pf := model.NewPortfolio(id, cash)
	pf.UpdatedAt = time.Unix(updated, 0).UTC()
	if err := json.Unmarshal([]byte(positions), &pf.Positions); err != nil {
		return nil, fmt.Errorf("unmarshal positions for %s: %w", id, err)
	}
	if pf.Positions == nil {
		pf.Positions = make(map[string]*model.Position)
	}
	return pf, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
