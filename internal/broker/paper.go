package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"statarb-go/internal/metrics"
	"statarb-go/internal/signal"
)

const epsilon = 1e-9

type paperPosition struct {
	Side    signal.Side
	Qty     float64
	AvgCost float64
}

// Paper is an in-memory gateway for dry runs: virtual cash, side-aware
// per-symbol positions, realized PnL, and marks fed from a quote source.
type Paper struct {
	mu           sync.Mutex
	log          zerolog.Logger
	startingCash float64
	cash         float64
	realizedPnL  float64
	nextOrderID  int
	positions    map[string]paperPosition
	marks        map[string]float64
	connected    bool
}

// NewPaper constructs a paper gateway with the given starting cash.
func NewPaper(startingCash float64, log zerolog.Logger) *Paper {
	return &Paper{
		log:          log,
		startingCash: startingCash,
		cash:         startingCash,
		positions:    make(map[string]paperPosition),
		marks:        make(map[string]float64),
	}
}

// Connect marks the gateway ready. Paper trading has no transport to open.
func (p *Paper) Connect(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	return nil
}

// Disconnect drops readiness; subsequent orders soft-fail.
func (p *Paper) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
}

// SetMark records the latest observed price for a symbol.
func (p *Paper) SetMark(symbol string, price float64) {
	if price <= 0 {
		return
	}
	p.mu.Lock()
	p.marks[symbol] = price
	p.mu.Unlock()
}

// ApplyQuote folds a live quote into the mark table.
func (p *Paper) ApplyQuote(q signal.Quote) { p.SetMark(q.Symbol, q.Price) }

// LastPrice returns the most recent mark for symbol.
func (p *Paper) LastPrice(symbol string) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	px, ok := p.marks[symbol]
	return px, ok
}

// PlaceOrder fills immediately at the last mark. Unknown prices, disconnected
// state, and insufficient cash for longs are soft failures.
func (p *Paper) PlaceOrder(symbol string, quantity float64, side signal.Side) (string, bool) {
	if quantity <= 0 {
		return "", false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return "", false
	}
	price, ok := p.marks[symbol]
	if !ok {
		p.log.Warn().Str("symbol", symbol).Msg("no mark for order")
		return "", false
	}

	state, held := p.positions[symbol]
	if held && state.Side != side {
		// flips go through ClosePosition first
		p.log.Warn().Str("symbol", symbol).Msg("opposite-side order against held position rejected")
		return "", false
	}

	notional := quantity * price
	if side == signal.Long {
		if notional > p.cash+epsilon {
			p.log.Warn().Str("symbol", symbol).Float64("notional", notional).Msg("insufficient cash")
			return "", false
		}
		p.cash -= notional
	} else {
		p.cash += notional
	}

	newQty := state.Qty + quantity
	newAvg := price
	if held && newQty > 0 {
		newAvg = (state.AvgCost*state.Qty + notional) / newQty
	}
	p.positions[symbol] = paperPosition{Side: side, Qty: newQty, AvgCost: newAvg}

	p.nextOrderID++
	id := fmt.Sprintf("PAPER-%d", p.nextOrderID)
	metrics.OrdersTotal.WithLabelValues(symbol, string(side)).Inc()
	p.log.Info().Str("id", id).Str("sym", symbol).Str("side", string(side)).
		Float64("qty", quantity).Float64("px", price).Msg("paper fill")
	return id, true
}

// ClosePosition flattens the named position at the last mark.
func (p *Paper) ClosePosition(symbol string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return false
	}
	state, held := p.positions[symbol]
	if !held {
		return false
	}
	price, ok := p.marks[symbol]
	if !ok {
		p.log.Warn().Str("symbol", symbol).Msg("no mark to close position")
		return false
	}

	notional := state.Qty * price
	var realized float64
	if state.Side == signal.Long {
		realized = (price - state.AvgCost) * state.Qty
		p.cash += notional
	} else {
		realized = (state.AvgCost - price) * state.Qty
		p.cash -= notional
	}
	p.realizedPnL += realized
	delete(p.positions, symbol)

	metrics.OrdersTotal.WithLabelValues(symbol, string(state.Side.Opposite())).Inc()
	p.log.Info().Str("sym", symbol).Float64("pnl", realized).Msg("paper close")
	return true
}

// PortfolioValue returns cash plus side-aware marked position value.
func (p *Paper) PortfolioValue() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	value := p.cash
	for sym, state := range p.positions {
		mark, ok := p.marks[sym]
		if !ok {
			continue
		}
		if state.Side == signal.Long {
			value += state.Qty * mark
		} else {
			value -= state.Qty * mark
		}
	}
	return value
}

// RealizedPnL returns total closed-trade profit and loss.
func (p *Paper) RealizedPnL() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.realizedPnL
}

// StartingCash returns the initial bankroll used to compute drawdown.
func (p *Paper) StartingCash() float64 { return p.startingCash }

// PositionSide reports the held side for symbol, if any.
func (p *Paper) PositionSide(symbol string) (signal.Side, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.positions[symbol]
	return state.Side, ok
}
