package model

import "time"

// PositionEpsilon is the closure tolerance for position quantities.
// A position whose quantity falls to or below this value is deleted
// rather than kept at zero, absorbing floating-point drift.
const PositionEpsilon = 1e-6

// Position is one open holding inside a portfolio. Positions exist
// only while Quantity > PositionEpsilon.
type Position struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	AvgPrice     float64 `json:"avg_price"`     // weighted-average cost basis
	CurrentPrice float64 `json:"current_price"` // latest mark-to-market price
}

// CurrentValue returns the mark-to-market value of the position.
func (p *Position) CurrentValue() float64 {
	return p.Quantity * p.CurrentPrice
}

// PnL returns the unrealized profit/loss against the cost basis.
func (p *Position) PnL() float64 {
	return p.CurrentValue() - p.Quantity*p.AvgPrice
}

// PnLPercent returns the unrealized P&L as a percentage of cost.
func (p *Position) PnLPercent() float64 {
	cost := p.Quantity * p.AvgPrice
	if cost == 0 {
		return 0
	}
	return p.PnL() / cost * 100
}

// Portfolio owns the cash balance and the symbol-keyed position map
// for one account. The map is the single owner of positions; there is
// no back-reference from Position to Portfolio.
type Portfolio struct {
	ID          string               `json:"id"`
	CashBalance float64              `json:"cash_balance"`
	Positions   map[string]*Position `json:"positions"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// NewPortfolio creates an empty portfolio with the given starting cash.
func NewPortfolio(id string, startingCash float64) *Portfolio {
	return &Portfolio{
		ID:          id,
		CashBalance: startingCash,
		Positions:   make(map[string]*Position),
	}
}

// TotalValue returns cash plus the mark-to-market value of all positions.
func (pf *Portfolio) TotalValue() float64 {
	total := pf.CashBalance
	for _, p := range pf.Positions {
		total += p.CurrentValue()
	}
	return total
}

// TotalPnL returns the sum of unrealized P&L across all positions.
func (pf *Portfolio) TotalPnL() float64 {
	var total float64
	for _, p := range pf.Positions {
		total += p.PnL()
	}
	return total
}

// Trade is an immutable audit record of one executed ledger mutation.
type Trade struct {
	ID          string    `json:"id"`
	PortfolioID string    `json:"portfolio_id"`
	Symbol      string    `json:"symbol"`
	Action      Action    `json:"action"` // BUY or SELL only
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price"`
	TotalCost   float64   `json:"total_cost"` // Quantity * Price
	ExecutedAt  time.Time `json:"executed_at"`
}
