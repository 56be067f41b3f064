package broker

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"statarb-go/internal/marketdata"
	"statarb-go/internal/risk"
	"statarb-go/internal/signal"
)

// Interval is the rebalance cadence, modeled as an explicit scheduling policy
// rather than wall-clock state inside the strategy.
type Interval string

const (
	Daily  Interval = "1D"
	Weekly Interval = "1W"
	Hourly Interval = "1H"
)

// Duration maps the cadence to a sleep duration, defaulting to hourly for
// unknown values.
func (i Interval) Duration() time.Duration {
	switch i {
	case Daily:
		return 24 * time.Hour
	case Weekly:
		return 7 * 24 * time.Hour
	default:
		return time.Hour
	}
}

// ErrKillSwitch reports that the drawdown kill switch stopped the loop.
var ErrKillSwitch = errors.New("broker: drawdown kill switch tripped")

// SignalEngine is the strategy contract the live loop drives.
type SignalEngine interface {
	Signals(panel marketdata.PricePanel, portfolioValue float64) map[string]signal.Signal
}

// RunnerConfig tunes the live loop.
type RunnerConfig struct {
	Symbols      []string
	Interval     Interval
	History      time.Duration // how much history each cycle fetches
	ErrorBackoff time.Duration // wait after a failed cycle
	Limits       risk.Limits
	Preprocess   marketdata.PreprocessOptions
}

// Runner drives one strategy against a gateway on a rebalance schedule. Unlike
// the backtest reconciliation, a held position whose signal flips side IS
// closed here; the re-entry happens naturally on the next cycle.
type Runner struct {
	cfg      RunnerConfig
	engine   SignalEngine
	gateway  Gateway
	provider marketdata.Provider
	log      zerolog.Logger

	held map[string]signal.Side
	peak float64
}

// NewRunner wires the live loop together.
func NewRunner(engine SignalEngine, gateway Gateway, provider marketdata.Provider, cfg RunnerConfig, log zerolog.Logger) *Runner {
	if cfg.Interval == "" {
		cfg.Interval = Daily
	}
	if cfg.History <= 0 {
		cfg.History = 60 * 24 * time.Hour
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = time.Minute
	}
	return &Runner{
		cfg:      cfg,
		engine:   engine,
		gateway:  gateway,
		provider: provider,
		log:      log,
		held:     make(map[string]signal.Side),
	}
}

// Run executes rebalance cycles until the context is canceled or the kill
// switch trips. Cycle errors are logged and retried after a backoff; they
// never abort the loop.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.gateway.Connect(ctx); err != nil {
		return err
	}
	defer r.gateway.Disconnect()

	for {
		wait := r.cfg.Interval.Duration()
		if err := r.cycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if errors.Is(err, ErrKillSwitch) {
				return err
			}
			r.log.Error().Err(err).Msg("rebalance cycle failed, backing off")
			wait = r.cfg.ErrorBackoff
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// cycle runs a single rebalance: fetch, clean, signal, reconcile.
func (r *Runner) cycle(ctx context.Context) error {
	end := time.Now().UTC()
	start := end.Add(-r.cfg.History)

	panel, err := r.provider.Fetch(ctx, r.cfg.Symbols, start, end)
	if err != nil {
		return err
	}
	panel = marketdata.Preprocess(panel, r.cfg.Preprocess)

	value := r.gateway.PortfolioValue()
	if value > r.peak {
		r.peak = value
	}
	if r.cfg.Limits.Breached(value, r.peak) {
		r.log.Error().Float64("equity", value).Float64("peak", r.peak).Msg("kill switch drawdown reached")
		return ErrKillSwitch
	}

	signals := r.engine.Signals(panel, value)
	r.reconcile(signals)
	return nil
}

// reconcile applies the live reconciliation rule from the signal map: open
// what is signaled and not held, close what is held on the opposite side.
// Soft gateway failures leave state untouched and retry next cycle.
func (r *Runner) reconcile(signals map[string]signal.Signal) {
	symbols := make([]string, 0, len(signals))
	for sym := range signals {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		sig := signals[sym]
		side, held := r.held[sym]
		switch {
		case !held:
			if !r.cfg.Limits.Allow(sig.Notional) {
				r.log.Warn().Str("symbol", sym).Float64("notional", sig.Notional).Msg("order blocked by risk limits")
				continue
			}
			price, ok := r.gateway.LastPrice(sym)
			if !ok || price <= 0 {
				r.log.Warn().Str("symbol", sym).Msg("no live price, retrying next cycle")
				continue
			}
			quantity := sig.Notional / price
			if id, ok := r.gateway.PlaceOrder(sym, quantity, sig.Side); ok {
				r.held[sym] = sig.Side
				r.log.Info().Str("symbol", sym).Str("order", id).Str("side", string(sig.Side)).Msg("opened position")
			}
		case side != sig.Side:
			if r.gateway.ClosePosition(sym) {
				delete(r.held, sym)
				r.log.Info().Str("symbol", sym).Msg("closed position on side flip")
			}
		}
	}
}
