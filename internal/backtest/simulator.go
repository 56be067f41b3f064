// Package backtest owns the time-stepped portfolio simulation: it feeds
// history into the signal engine, reconciles simulated positions, applies
// trade frictions, and reduces the recorded history into summary statistics.
package backtest

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"statarb-go/internal/marketdata"
	"statarb-go/internal/metrics"
	"statarb-go/internal/signal"
)

var (
	// ErrNoData reports an empty panel after date filtering.
	ErrNoData = errors.New("backtest: no rows in requested range")
	// ErrMissingPrice reports a held position that cannot be marked because
	// its symbol vanished from the price row. A corrupted equity curve
	// invalidates the whole result, so this is fatal to the run.
	ErrMissingPrice = errors.New("backtest: missing price for held position")
)

// SignalEngine is the strategy contract the simulator drives: the desired
// position set given all history observed so far and the current portfolio
// value.
type SignalEngine interface {
	Signals(panel marketdata.PricePanel, portfolioValue float64) map[string]signal.Signal
}

// Config holds simulation parameters. Friction rates are taken literally so
// zero-cost runs stay expressible; DefaultConfig carries the usual rates.
type Config struct {
	InitialCapital  float64 // defaults to 100_000 when non-positive
	TransactionCost float64 // fraction per trade
	Slippage        float64 // fraction per trade
}

// DefaultConfig returns the standard simulation parameters.
func DefaultConfig() Config {
	return Config{
		InitialCapital:  100_000,
		TransactionCost: 0.001,
		Slippage:        0.0005,
	}
}

// Position is a simulated holding. It is never adjusted in place: any change
// closes it and opens a fresh one.
type Position struct {
	Symbol     string
	Side       signal.Side
	Quantity   float64
	EntryPrice float64
	EntryTime  time.Time
}

// Trade is an immutable log record appended whenever a position opens or
// closes. PnL is populated on closing trades only.
type Trade struct {
	Time     time.Time   `json:"time"`
	Symbol   string      `json:"symbol"`
	Side     signal.Side `json:"side"`
	Quantity float64     `json:"quantity"`
	Price    float64     `json:"price"`
	Cost     float64     `json:"cost"`
	PnL      float64     `json:"pnl,omitempty"`
}

// Simulator replays a price panel through a signal engine, one timestamp at a
// time. All state is owned by the instance; a single Run is strictly
// sequential because each step's valuation depends on the previous one.
type Simulator struct {
	cfg    Config
	engine SignalEngine
	log    zerolog.Logger

	positions map[string]Position
	trades    []Trade
	equity    []float64
	times     []time.Time
}

// NewSimulator builds a simulator around the given engine.
func NewSimulator(engine SignalEngine, cfg Config, log zerolog.Logger) *Simulator {
	if cfg.InitialCapital <= 0 {
		cfg.InitialCapital = 100_000
	}
	if cfg.TransactionCost < 0 {
		cfg.TransactionCost = 0
	}
	if cfg.Slippage < 0 {
		cfg.Slippage = 0
	}
	return &Simulator{cfg: cfg, engine: engine, log: log}
}

// Run replays the panel between the optional bounds (inclusive, treated as
// UTC) and returns the reduced result. An empty range is an error, never a
// degenerate one-sample curve.
func (s *Simulator) Run(panel marketdata.PricePanel, start, end *time.Time) (*Result, error) {
	sub := panel.Between(start, end)
	if sub.Len() == 0 {
		return nil, ErrNoData
	}

	s.positions = make(map[string]Position)
	s.trades = nil
	s.equity = []float64{s.cfg.InitialCapital}
	s.times = nil

	s.log.Info().
		Int("rows", sub.Len()).
		Strs("symbols", sub.Symbols()).
		Time("from", sub.Time(0)).
		Time("to", sub.Time(sub.Len()-1)).
		Msg("starting backtest")

	for i := 0; i < sub.Len(); i++ {
		now := sub.Time(i)
		s.times = append(s.times, now)

		prev := s.equity[len(s.equity)-1]
		signals := s.engine.Signals(sub.UpTo(i), prev)

		row := sub.Row(i)
		s.reconcile(signals, row, now)

		value, err := s.markToMarket(prev, row)
		if err != nil {
			return nil, err
		}
		s.equity = append(s.equity, value)

		metrics.StepsTotal.Inc()
		if (i+1)%50 == 0 {
			s.log.Debug().Int("step", i+1).Float64("equity", value).Msg("backtest progress")
		}
	}

	s.log.Info().
		Float64("final_equity", s.equity[len(s.equity)-1]).
		Int("trades", len(s.trades)).
		Msg("backtest complete")
	return newResult(s.cfg.InitialCapital, s.equity, s.times, s.trades), nil
}

// reconcile aligns held positions with the desired signal set. Closing is
// driven solely by a symbol's absence from the signal map: a held position
// whose signal flips side stays open, which mirrors the simulated (not the
// live) reconciliation rule. Signaled symbols without a price this step are
// skipped and retried naturally on the next one.
func (s *Simulator) reconcile(signals map[string]signal.Signal, row map[string]float64, now time.Time) {
	held := make([]string, 0, len(s.positions))
	for sym := range s.positions {
		held = append(held, sym)
	}
	sort.Strings(held)

	for _, sym := range held {
		if _, wanted := signals[sym]; wanted {
			continue
		}
		pos := s.positions[sym]
		price, ok := row[sym]
		if !ok {
			s.log.Warn().Str("symbol", sym).Msg("no price to close position")
			continue
		}
		s.trades = append(s.trades, Trade{
			Time:     now,
			Symbol:   sym,
			Side:     pos.Side.Opposite(),
			Quantity: pos.Quantity,
			Price:    price,
			Cost:     s.tradeCost(pos.Quantity, price),
			PnL:      realized(pos, price),
		})
		delete(s.positions, sym)
	}

	opened := make([]string, 0, len(signals))
	for sym := range signals {
		opened = append(opened, sym)
	}
	sort.Strings(opened)

	for _, sym := range opened {
		if _, already := s.positions[sym]; already {
			// same symbol stays held untouched, whatever the side
			continue
		}
		sig := signals[sym]
		price, ok := row[sym]
		if !ok {
			s.log.Warn().Str("symbol", sym).Msg("no price for signal, skipping this step")
			continue
		}
		quantity := sig.Notional / price
		s.trades = append(s.trades, Trade{
			Time:     now,
			Symbol:   sym,
			Side:     sig.Side,
			Quantity: quantity,
			Price:    price,
			Cost:     s.tradeCost(quantity, price),
		})
		s.positions[sym] = Position{
			Symbol:     sym,
			Side:       sig.Side,
			Quantity:   quantity,
			EntryPrice: price,
			EntryTime:  now,
		}
	}
}

// tradeCost applies the friction formula: notional scaled by one plus the
// transaction cost and slippage rates.
func (s *Simulator) tradeCost(quantity, price float64) float64 {
	return quantity * price * (1 + s.cfg.TransactionCost + s.cfg.Slippage)
}

// markToMarket carries the previous portfolio value forward plus the full
// unrealized PnL of every held position against its entry price. The
// recurrence intentionally re-applies the entry-anchored PnL each step rather
// than only the increment since the last mark; it reproduces the accounting
// the result statistics are calibrated against.
func (s *Simulator) markToMarket(prev float64, row map[string]float64) (float64, error) {
	value := prev
	for sym, pos := range s.positions {
		price, ok := row[sym]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrMissingPrice, sym)
		}
		if pos.Side == signal.Long {
			value += pos.Quantity * (price - pos.EntryPrice)
		} else {
			value += pos.Quantity * (pos.EntryPrice - price)
		}
	}
	return value, nil
}

func realized(pos Position, exitPrice float64) float64 {
	if pos.Side == signal.Long {
		return pos.Quantity * (exitPrice - pos.EntryPrice)
	}
	return pos.Quantity * (pos.EntryPrice - exitPrice)
}
