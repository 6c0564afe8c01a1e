package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Candle represents one OHLCV bar for a single symbol.
type Candle struct {
	Symbol string    `json:"symbol"`
	TS     time.Time `json:"ts"` // bar open time (UTC)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// Series is an ordered sequence of bars for one symbol.
// Timestamps must be strictly increasing; the series is immutable once built.
type Series []Candle

// Closes returns the close prices in bar order.
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, c := range s {
		closes[i] = c.Close
	}
	return closes
}

// Symbol returns the symbol of the series, or "" for an empty series.
func (s Series) Symbol() string {
	if len(s) == 0 {
		return ""
	}
	return s[0].Symbol
}

// Validate checks that timestamps are strictly increasing and all bars
// belong to the same symbol.
func (s Series) Validate() error {
	for i := 1; i < len(s); i++ {
		if !s[i].TS.After(s[i-1].TS) {
			return fmt.Errorf("series: bar %d timestamp %s not after bar %d timestamp %s",
				i, s[i].TS.Format(time.RFC3339), i-1, s[i-1].TS.Format(time.RFC3339))
		}
		if s[i].Symbol != s[0].Symbol {
			return fmt.Errorf("series: bar %d symbol %q differs from %q", i, s[i].Symbol, s[0].Symbol)
		}
	}
	return nil
}

// Returns computes simple bar-over-bar returns from close prices.
// A series of N bars yields at most N-1 returns; bars with a zero
// previous close are skipped.
func (s Series) Returns() []float64 {
	if len(s) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(s)-1)
	for i := 1; i < len(s); i++ {
		prev := s[i-1].Close
		if prev == 0 {
			continue
		}
		rets = append(rets, (s[i].Close-prev)/prev)
	}
	return rets
}
