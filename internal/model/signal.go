package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Action represents a trading action recommended by a strategy.
type Action string

const (
	ActionBuy        Action = "BUY"
	ActionSell       Action = "SELL"
	ActionHold       Action = "HOLD"
	ActionStrongBuy  Action = "STRONG_BUY"
	ActionStrongSell Action = "STRONG_SELL"
)

// Actions lists all valid actions in their canonical order. The order
// is also the deterministic tie-break order for majority voting.
var Actions = []Action{ActionBuy, ActionSell, ActionHold, ActionStrongBuy, ActionStrongSell}

// Valid reports whether a is a member of the allowed action set.
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// RiskLevel classifies the risk of acting on a signal or position.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// ErrInvalidSignal is returned when a signal fails structural validation.
// Such signals are rejected before entering the aggregator.
var ErrInvalidSignal = errors.New("invalid signal")

// Signal is a single strategy's recommendation for one symbol. It is
// produced by exactly one strategy evaluation and never mutated.
type Signal struct {
	Symbol     string    `json:"symbol"`
	Strategy   string    `json:"strategy"`
	Action     Action    `json:"action"`
	Confidence float64   `json:"confidence"` // 0..100
	Reason     string    `json:"reason"`
	RiskLevel  RiskLevel `json:"risk_level"`
	TS         time.Time `json:"ts"`
}

// Validate checks the structural invariants of a signal.
func (s *Signal) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("%w: missing symbol", ErrInvalidSignal)
	}
	if s.Strategy == "" {
		return fmt.Errorf("%w: missing strategy", ErrInvalidSignal)
	}
	if !s.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidSignal, s.Action)
	}
	if s.Confidence < 0 || s.Confidence > 100 {
		return fmt.Errorf("%w: confidence %.2f outside [0,100]", ErrInvalidSignal, s.Confidence)
	}
	return nil
}

// JSON returns the JSON-encoded signal (ignoring errors for hot-path usage).
func (s *Signal) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}

// AggregatedSignal combines several strategies' signals for one symbol
// within a single evaluation cycle.
type AggregatedSignal struct {
	Symbol      string    `json:"symbol"`
	Action      Action    `json:"action"`
	Confidence  float64   `json:"confidence"` // mean of contributing confidences
	Strategies  []string  `json:"strategies"` // sorted, unique contributing strategy names
	SignalCount int       `json:"signal_count"`
	TS          time.Time `json:"ts"`
}

// JSON returns the JSON-encoded aggregated signal.
func (a *AggregatedSignal) JSON() []byte {
	b, _ := json.Marshal(a)
	return b
}
