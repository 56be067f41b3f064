package backtest

import (
	"math"
	"time"

	"statarb-go/internal/stats"
)

const periodsPerYear = 252

// Result is the reduced output of one simulation run: headline statistics
// plus the full trade log and equity curve, so reporting and export never
// need to re-derive state.
type Result struct {
	TotalReturn  float64
	AnnualReturn float64
	Sharpe       float64
	MaxDrawdown  float64
	WinRate      float64
	NumTrades    int

	Trades []Trade
	Equity []float64 // seeded with the initial capital as sample zero
	Times  []time.Time
}

func newResult(initial float64, equity []float64, times []time.Time, trades []Trade) *Result {
	r := &Result{
		NumTrades: len(trades),
		Trades:    trades,
		Equity:    equity,
		Times:     times,
	}

	final := equity[len(equity)-1]
	r.TotalReturn = final/initial - 1

	returns := stats.PctChange(equity)
	if n := len(returns); n > 0 {
		r.AnnualReturn = math.Pow(1+r.TotalReturn, periodsPerYear/float64(n)) - 1
	}

	sd := stats.StdDev(returns)
	if !math.IsNaN(sd) && sd > 0 {
		r.Sharpe = math.Sqrt(periodsPerYear) * stats.Mean(returns) / sd
	}

	r.MaxDrawdown = maxDrawdown(equity)
	r.WinRate = winRate(trades)
	return r
}

// maxDrawdown returns the deepest peak-to-trough decline as a fraction of the
// running peak.
func maxDrawdown(equity []float64) float64 {
	var peak, worst float64
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// winRate is the share of closing trades whose realized PnL was positive.
// Opening trades carry no PnL and are excluded from the denominator;
// breakeven closes fall out with them.
func winRate(trades []Trade) float64 {
	var closed, wins int
	for _, t := range trades {
		if t.PnL == 0 {
			continue
		}
		closed++
		if t.PnL > 0 {
			wins++
		}
	}
	if closed == 0 {
		return 0
	}
	return float64(wins) / float64(closed)
}
