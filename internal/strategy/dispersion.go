// Package strategy implements the dispersion stat-arb signal engine: find
// highly correlated pairs, watch their return spread, and fade divergences.
package strategy

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"statarb-go/internal/marketdata"
	"statarb-go/internal/metrics"
	"statarb-go/internal/signal"
	"statarb-go/internal/stats"
)

// ErrBadConfig reports invalid strategy parameters at construction.
var ErrBadConfig = errors.New("strategy: invalid configuration")

const (
	defaultLookback        = 20
	defaultMinCorrelation  = 0.7
	defaultMaxPositionSize = 0.1

	// entryZ is the spread z-score beyond which a pair is considered diverged.
	entryZ = 2.0
)

// Config holds the tunable knobs for the dispersion strategy. Zero values take
// the documented defaults; explicitly out-of-range values are rejected.
type Config struct {
	Lookback        int     // informational window length, > 0
	MinCorrelation  float64 // pair admission threshold, in (0, 1]
	MaxPositionSize float64 // per-symbol weight cap, in (0, 1]
}

// Dispersion generates pair-divergence signals from a price panel. It holds no
// state beyond configuration, so repeated calls with the same inputs produce
// the same output.
type Dispersion struct {
	cfg Config
}

// New validates the configuration and builds the strategy.
func New(cfg Config) (*Dispersion, error) {
	if cfg.Lookback == 0 {
		cfg.Lookback = defaultLookback
	}
	if cfg.MinCorrelation == 0 {
		cfg.MinCorrelation = defaultMinCorrelation
	}
	if cfg.MaxPositionSize == 0 {
		cfg.MaxPositionSize = defaultMaxPositionSize
	}
	if cfg.Lookback < 0 {
		return nil, fmt.Errorf("%w: lookback %d", ErrBadConfig, cfg.Lookback)
	}
	if cfg.MinCorrelation < 0 || cfg.MinCorrelation > 1 {
		return nil, fmt.Errorf("%w: min correlation %.4f", ErrBadConfig, cfg.MinCorrelation)
	}
	if cfg.MaxPositionSize < 0 || cfg.MaxPositionSize > 1 {
		return nil, fmt.Errorf("%w: max position size %.4f", ErrBadConfig, cfg.MaxPositionSize)
	}
	return &Dispersion{cfg: cfg}, nil
}

// Name returns the configured identifier for logging.
func (d *Dispersion) Name() string { return "Dispersion" }

// DispersionSeries returns the cross-sectional standard deviation of returns
// per timestamp. It is a diagnostic, exposed for reporting and future gating;
// signal generation does not filter on it.
func (d *Dispersion) DispersionSeries(panel marketdata.PricePanel) []float64 {
	symbols := panel.Symbols()
	returns := returnColumns(panel, symbols)
	if len(returns) == 0 {
		return nil
	}
	n := panel.Len() - 1
	out := make([]float64, n)
	cross := make([]float64, 0, len(symbols))
	for i := 0; i < n; i++ {
		cross = cross[:0]
		for _, sym := range symbols {
			if v := returns[sym][i]; !math.IsNaN(v) {
				cross = append(cross, v)
			}
		}
		out[i] = stats.StdDev(cross)
	}
	return out
}

// Pairs scans the pairwise correlation matrix of full-history returns and
// keeps every unordered pair at or above minCorr in absolute value, sorted
// descending by |correlation|. A non-positive minCorr falls back to the
// configured threshold.
func (d *Dispersion) Pairs(panel marketdata.PricePanel, minCorr float64) []signal.CorrelatedPair {
	if minCorr <= 0 {
		minCorr = d.cfg.MinCorrelation
	}
	symbols := panel.Symbols()
	returns := returnColumns(panel, symbols)

	var pairs []signal.CorrelatedPair
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			corr := stats.Correlation(returns[symbols[i]], returns[symbols[j]])
			if math.IsNaN(corr) || math.Abs(corr) < minCorr {
				continue
			}
			pairs = append(pairs, signal.CorrelatedPair{A: symbols[i], B: symbols[j], Correlation: corr})
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		return math.Abs(pairs[a].Correlation) > math.Abs(pairs[b].Correlation)
	})
	return pairs
}

// PositionSizes maps every panel symbol to its target notional: inverse-
// volatility weights normalized to sum to one, capped at the configured
// maximum, renormalized, then scaled by portfolio value. Symbols without a
// usable volatility get zero.
func (d *Dispersion) PositionSizes(panel marketdata.PricePanel, portfolioValue float64) map[string]float64 {
	symbols := panel.Symbols()
	returns := returnColumns(panel, symbols)

	weights := make(map[string]float64, len(symbols))
	var total float64
	for _, sym := range symbols {
		sd := stats.StdDev(returns[sym])
		if math.IsNaN(sd) || sd <= 0 {
			continue
		}
		w := 1 / sd
		weights[sym] = w
		total += w
	}

	sizes := make(map[string]float64, len(symbols))
	if total == 0 {
		for _, sym := range symbols {
			sizes[sym] = 0
		}
		return sizes
	}

	var capped float64
	for sym, w := range weights {
		w /= total
		if w > d.cfg.MaxPositionSize {
			w = d.cfg.MaxPositionSize
		}
		weights[sym] = w
		capped += w
	}
	for _, sym := range symbols {
		if w, ok := weights[sym]; ok {
			sizes[sym] = w / capped * portfolioValue
		} else {
			sizes[sym] = 0
		}
	}
	return sizes
}

// Signals runs the full pipeline for one step: returns, pair discovery,
// sizing, then a left-to-right fold of pair decisions into the signal map.
// Pairs are visited in descending |correlation| order and later writes win, so
// the overwrite order is reproducible. A panel with fewer than two rows, a
// single symbol, or all-degenerate spreads yields an empty map, never an
// error.
func (d *Dispersion) Signals(panel marketdata.PricePanel, portfolioValue float64) map[string]signal.Signal {
	signals := make(map[string]signal.Signal)
	if panel.Len() < 2 {
		return signals
	}

	pairs := d.Pairs(panel, 0)
	if len(pairs) == 0 {
		return signals
	}
	sizes := d.PositionSizes(panel, portfolioValue)
	returns := returnColumns(panel, panel.Symbols())

	for _, pair := range pairs {
		spread := stats.Sub(returns[pair.A], returns[pair.B])
		zs := stats.ZScores(spread)
		if len(zs) == 0 {
			continue
		}
		z := zs[len(zs)-1]
		if math.IsNaN(z) {
			// zero-variance spread, nothing to fade
			continue
		}
		switch {
		case z > entryZ:
			emit(signals, pair.A, signal.Short, sizes[pair.A])
			emit(signals, pair.B, signal.Long, sizes[pair.B])
		case z < -entryZ:
			emit(signals, pair.A, signal.Long, sizes[pair.A])
			emit(signals, pair.B, signal.Short, sizes[pair.B])
		}
	}

	for _, s := range signals {
		metrics.SignalsTotal.WithLabelValues(s.Symbol, string(s.Side)).Inc()
	}
	return signals
}

func emit(signals map[string]signal.Signal, symbol string, side signal.Side, notional float64) {
	if notional <= 0 || math.IsNaN(notional) {
		return
	}
	signals[symbol] = signal.Signal{Symbol: symbol, Side: side, Notional: notional}
}

// returnColumns computes the full-history percentage-change series per symbol.
func returnColumns(panel marketdata.PricePanel, symbols []string) map[string][]float64 {
	out := make(map[string][]float64, len(symbols))
	for _, sym := range symbols {
		out[sym] = stats.PctChange(panel.Column(sym))
	}
	return out
}
