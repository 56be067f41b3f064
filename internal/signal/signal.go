// Package signal standardizes payloads shared between the strategy, backtest,
// and broker layers.
package signal

import "time"

// Side enumerates position directions.
type Side string

const (
	// Long indicates a bought position.
	Long Side = "LONG"
	// Short indicates a sold position.
	Short Side = "SHORT"
)

// Opposite returns the closing side for a held position.
func (s Side) Opposite() Side {
	if s == Long {
		return Short
	}
	return Long
}

// Signal expresses the position a symbol should hold right now, not a delta.
type Signal struct {
	Symbol   string
	Side     Side
	Notional float64 // target position value in account currency, > 0
}

// CorrelatedPair records two symbols whose return series move together.
type CorrelatedPair struct {
	A           string
	B           string
	Correlation float64 // in [-1, 1]
}

// Quote models a single live price observation consumed by the broker loop.
type Quote struct {
	Symbol string
	Price  float64
	Ts     time.Time
}
