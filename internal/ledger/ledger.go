// Package ledger maintains cash balances and open positions as trades
// execute, with weighted-average cost accounting.
//
// The ledger is the one component with mutable shared state: every
// mutating operation on a portfolio runs inside that portfolio's own
// critical section, so concurrent trades against one portfolio can
// never interleave a balance read with another trade's write.
// Different portfolios mutate fully in parallel — there is no global
// lock. Trades never touch two portfolios at once, so no lock
// ordering exists to violate.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"quant-corev1/internal/model"
)

// DefaultStartingCash is the cash balance a portfolio opens with on
// first access.
const DefaultStartingCash = 100000.0

var (
	// ErrInsufficientFunds rejects a BUY whose cost exceeds the cash
	// balance. Never retried internally: retrying without new
	// information is meaningless.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientAssets rejects a SELL for more quantity than held.
	ErrInsufficientAssets = errors.New("insufficient assets")

	// ErrInvalidTrade rejects structurally bad requests (non-positive
	// quantity or price) before any state is touched.
	ErrInvalidTrade = errors.New("invalid trade request")
)

// Config wires the manager's collaborators. All stores are optional;
// a nil store disables that persistence concern. A nil price source
// makes market orders and mark-to-market summaries fail with
// ErrMarketDataUnavailable rather than guessing a price.
type Config struct {
	StartingCash float64
	Prices       model.PriceSource
	Trades       model.TradeStore
	Portfolios   model.PortfolioStore
}

// account pairs one portfolio with its exclusive critical section.
type account struct {
	mu sync.Mutex
	pf *model.Portfolio
}

// Manager owns all portfolios, keyed by portfolio id.
type Manager struct {
	mu       sync.Mutex // guards the accounts map only
	accounts map[string]*account

	startingCash float64
	prices       model.PriceSource
	trades       model.TradeStore
	portfolios   model.PortfolioStore

	tradeSeq atomic.Int64
}

// NewManager creates a ledger manager.
func NewManager(cfg Config) *Manager {
	if cfg.StartingCash <= 0 {
		cfg.StartingCash = DefaultStartingCash
	}
	return &Manager{
		accounts:     make(map[string]*account),
		startingCash: cfg.StartingCash,
		prices:       cfg.Prices,
		trades:       cfg.Trades,
		portfolios:   cfg.Portfolios,
	}
}

// account returns the account for id, creating it on first access.
// A persisted portfolio is restored when a portfolio store is wired;
// otherwise a fresh portfolio opens with the starting cash balance.
func (m *Manager) account(ctx context.Context, id string) (*account, error) {
	m.mu.Lock()
	acct, ok := m.accounts[id]
	m.mu.Unlock()
	if ok {
		return acct, nil
	}

	var pf *model.Portfolio
	if m.portfolios != nil {
		loaded, err := m.portfolios.LoadPortfolio(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("ledger: load portfolio %s: %w", id, err)
		}
		pf = loaded
	}
	if pf == nil {
		pf = model.NewPortfolio(id, m.startingCash)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.accounts[id]; ok {
		// Lost the creation race; the winner's state is authoritative.
		return existing, nil
	}
	acct = &account{pf: pf}
	m.accounts[id] = acct
	return acct, nil
}

// resolvePrice returns price when the caller supplied one, otherwise a
// live quote. Unavailability aborts the trade — the ledger never
// substitutes a stale or default price.
func (m *Manager) resolvePrice(ctx context.Context, symbol string, price float64) (float64, error) {
	if price > 0 {
		return price, nil
	}
	if m.prices == nil {
		return 0, fmt.Errorf("%w: no price source configured", model.ErrMarketDataUnavailable)
	}
	p, err := m.prices.GetCurrentPrice(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", model.ErrMarketDataUnavailable, symbol, err)
	}
	if p <= 0 {
		return 0, fmt.Errorf("%w: %s: non-positive quote %.6f", model.ErrMarketDataUnavailable, symbol, p)
	}
	return p, nil
}

// ExecuteBuy debits cash and opens or extends a position at the
// quantity-weighted average cost. price 0 requests a market order
// resolved through the price source. Returns the immutable trade
// record on success.
func (m *Manager) ExecuteBuy(ctx context.Context, portfolioID, symbol string, quantity, price float64) (model.Trade, error) {
	if quantity <= 0 {
		return model.Trade{}, fmt.Errorf("%w: quantity %.6f", ErrInvalidTrade, quantity)
	}
	if price < 0 {
		return model.Trade{}, fmt.Errorf("%w: price %.6f", ErrInvalidTrade, price)
	}
	price, err := m.resolvePrice(ctx, symbol, price)
	if err != nil {
		return model.Trade{}, err
	}
	acct, err := m.account(ctx, portfolioID)
	if err != nil {
		return model.Trade{}, err
	}

	acct.mu.Lock()
	defer acct.mu.Unlock()

	pf := acct.pf
	cost := quantity * price
	if pf.CashBalance < cost {
		return model.Trade{}, fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientFunds, cost, pf.CashBalance)
	}

	pf.CashBalance -= cost
	if pos, ok := pf.Positions[symbol]; ok {
		newQty := pos.Quantity + quantity
		pos.AvgPrice = (pos.Quantity*pos.AvgPrice + quantity*price) / newQty
		pos.Quantity = newQty
		pos.CurrentPrice = price
	} else {
		pf.Positions[symbol] = &model.Position{
			Symbol:       symbol,
			Quantity:     quantity,
			AvgPrice:     price,
			CurrentPrice: price,
		}
	}

	trade := m.record(ctx, pf, symbol, model.ActionBuy, quantity, price)
	return trade, nil
}

// ExecuteSell credits cash and reduces the position. The average price
// is untouched — cost basis only moves on buys. A remaining quantity
// at or below the closure epsilon deletes the position entirely.
func (m *Manager) ExecuteSell(ctx context.Context, portfolioID, symbol string, quantity, price float64) (model.Trade, error) {
	if quantity <= 0 {
		return model.Trade{}, fmt.Errorf("%w: quantity %.6f", ErrInvalidTrade, quantity)
	}
	if price < 0 {
		return model.Trade{}, fmt.Errorf("%w: price %.6f", ErrInvalidTrade, price)
	}
	price, err := m.resolvePrice(ctx, symbol, price)
	if err != nil {
		return model.Trade{}, err
	}
	acct, err := m.account(ctx, portfolioID)
	if err != nil {
		return model.Trade{}, err
	}

	acct.mu.Lock()
	defer acct.mu.Unlock()

	pf := acct.pf
	pos, ok := pf.Positions[symbol]
	if !ok {
		return model.Trade{}, fmt.Errorf("%w: no position in %s", ErrInsufficientAssets, symbol)
	}
	if quantity > pos.Quantity+model.PositionEpsilon {
		return model.Trade{}, fmt.Errorf("%w: hold %.6f %s, requested %.6f", ErrInsufficientAssets, pos.Quantity, symbol, quantity)
	}

	pf.CashBalance += quantity * price
	pos.Quantity -= quantity
	pos.CurrentPrice = price
	if pos.Quantity <= model.PositionEpsilon {
		delete(pf.Positions, symbol)
	}

	trade := m.record(ctx, pf, symbol, model.ActionSell, quantity, price)
	return trade, nil
}

// record builds the trade audit entry and persists the committed state.
// Persistence failures are logged, not propagated: the in-memory ledger
// already committed and the audit trail is best-effort by design of the
// storage port.
func (m *Manager) record(ctx context.Context, pf *model.Portfolio, symbol string, action model.Action, quantity, price float64) model.Trade {
	now := time.Now().UTC()
	pf.UpdatedAt = now

	trade := model.Trade{
		ID:          fmt.Sprintf("T-%d-%d", now.Unix(), m.tradeSeq.Add(1)),
		PortfolioID: pf.ID,
		Symbol:      symbol,
		Action:      action,
		Quantity:    quantity,
		Price:       price,
		TotalCost:   quantity * price,
		ExecutedAt:  now,
	}

	if m.trades != nil {
		if err := m.trades.SaveTrade(ctx, trade); err != nil {
			log.Printf("[ledger] trade persist failed for %s: %v", trade.ID, err)
		}
	}
	if m.portfolios != nil {
		if err := m.portfolios.SavePortfolio(ctx, pf); err != nil {
			log.Printf("[ledger] portfolio persist failed for %s: %v", pf.ID, err)
		}
	}
	return trade
}

// Deposit credits cash to a portfolio.
func (m *Manager) Deposit(ctx context.Context, portfolioID string, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: deposit amount %.6f", ErrInvalidTrade, amount)
	}
	acct, err := m.account(ctx, portfolioID)
	if err != nil {
		return err
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()
	acct.pf.CashBalance += amount
	acct.pf.UpdatedAt = time.Now().UTC()
	m.persist(ctx, acct.pf)
	return nil
}

// Withdraw debits cash from a portfolio.
func (m *Manager) Withdraw(ctx context.Context, portfolioID string, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: withdraw amount %.6f", ErrInvalidTrade, amount)
	}
	acct, err := m.account(ctx, portfolioID)
	if err != nil {
		return err
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()
	if acct.pf.CashBalance < amount {
		return fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientFunds, amount, acct.pf.CashBalance)
	}
	acct.pf.CashBalance -= amount
	acct.pf.UpdatedAt = time.Now().UTC()
	m.persist(ctx, acct.pf)
	return nil
}

// UpdatePrice marks a held position to market. Unheld symbols are a
// no-op, matching how price ticks fan out across portfolios.
func (m *Manager) UpdatePrice(ctx context.Context, portfolioID, symbol string, price float64) error {
	if price <= 0 {
		return fmt.Errorf("%w: price %.6f", ErrInvalidTrade, price)
	}
	acct, err := m.account(ctx, portfolioID)
	if err != nil {
		return err
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()
	if pos, ok := acct.pf.Positions[symbol]; ok {
		pos.CurrentPrice = price
	}
	return nil
}

func (m *Manager) persist(ctx context.Context, pf *model.Portfolio) {
	if m.portfolios == nil {
		return
	}
	if err := m.portfolios.SavePortfolio(ctx, pf); err != nil {
		log.Printf("[ledger] portfolio persist failed for %s: %v", pf.ID, err)
	}
}

// Summary is a consistent snapshot of one portfolio.
type Summary struct {
	PortfolioID   string           `json:"portfolio_id"`
	CashBalance   float64          `json:"cash_balance"`
	TotalValue    float64          `json:"total_value"`
	TotalPnL      float64          `json:"total_pnl"`
	PositionCount int              `json:"position_count"`
	Positions     []model.Position `json:"positions"`
}

// Summary refreshes held positions against the price source (symbols
// without a live quote keep their last mark) and returns a snapshot.
// Positions are ordered by symbol.
func (m *Manager) Summary(ctx context.Context, portfolioID string) (Summary, error) {
	acct, err := m.account(ctx, portfolioID)
	if err != nil {
		return Summary{}, err
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()

	pf := acct.pf
	if m.prices != nil {
		for symbol, pos := range pf.Positions {
			p, err := m.prices.GetCurrentPrice(ctx, symbol)
			if err != nil || p <= 0 {
				continue // keep the last mark rather than fail the whole summary
			}
			pos.CurrentPrice = p
		}
	}

	positions := make([]model.Position, 0, len(pf.Positions))
	for _, pos := range pf.Positions {
		positions = append(positions, *pos)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })

	return Summary{
		PortfolioID:   pf.ID,
		CashBalance:   pf.CashBalance,
		TotalValue:    pf.TotalValue(),
		TotalPnL:      pf.TotalPnL(),
		PositionCount: len(positions),
		Positions:     positions,
	}, nil
}

// Weights returns the held symbols (sorted) and each position's share
// of the total position market value, for portfolio risk scoring.
// An all-cash portfolio yields empty slices.
func (m *Manager) Weights(ctx context.Context, portfolioID string) ([]string, []float64, error) {
	acct, err := m.account(ctx, portfolioID)
	if err != nil {
		return nil, nil, err
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()

	pf := acct.pf
	symbols := make([]string, 0, len(pf.Positions))
	var total float64
	for symbol, pos := range pf.Positions {
		symbols = append(symbols, symbol)
		total += pos.CurrentValue()
	}
	if total == 0 {
		return nil, nil, nil
	}
	sort.Strings(symbols)

	weights := make([]float64, len(symbols))
	for i, symbol := range symbols {
		weights[i] = pf.Positions[symbol].CurrentValue() / total
	}
	return symbols, weights, nil
}
