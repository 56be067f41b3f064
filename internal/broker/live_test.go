package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"statarb-go/internal/marketdata"
	"statarb-go/internal/risk"
	"statarb-go/internal/signal"
)

type fixedEngine struct {
	signals map[string]signal.Signal
}

func (e *fixedEngine) Signals(_ marketdata.PricePanel, _ float64) map[string]signal.Signal {
	return e.signals
}

type fakeProvider struct {
	err error
}

func (f *fakeProvider) Fetch(_ context.Context, symbols []string, start, _ time.Time) (marketdata.PricePanel, error) {
	if f.err != nil {
		return marketdata.PricePanel{}, f.err
	}
	var panel marketdata.PricePanel
	for i := 0; i < 3; i++ {
		row := make(map[string]float64, len(symbols))
		for _, sym := range symbols {
			row[sym] = 100 + float64(i)
		}
		panel.Append(start.AddDate(0, 0, i), row)
	}
	return panel, nil
}

func newTestRunner(engine SignalEngine, gateway Gateway, provider marketdata.Provider, limits risk.Limits) *Runner {
	return NewRunner(engine, gateway, provider, RunnerConfig{
		Symbols:      []string{"AAA", "BBB"},
		Interval:     Daily,
		ErrorBackoff: time.Millisecond,
		Limits:       limits,
	}, zerolog.Nop())
}

func TestRunnerOpensSignaledPositions(t *testing.T) {
	gateway := connectedPaper(t, 100_000)
	gateway.SetMark("AAA", 100)
	gateway.SetMark("BBB", 50)
	engine := &fixedEngine{signals: map[string]signal.Signal{
		"AAA": {Symbol: "AAA", Side: signal.Short, Notional: 1000},
		"BBB": {Symbol: "BBB", Side: signal.Long, Notional: 1000},
	}}

	runner := newTestRunner(engine, gateway, &fakeProvider{}, risk.Limits{})
	if err := runner.cycle(context.Background()); err != nil {
		t.Fatalf("cycle returned error: %v", err)
	}

	if side, held := gateway.PositionSide("AAA"); !held || side != signal.Short {
		t.Fatalf("expected short AAA held")
	}
	if side, held := gateway.PositionSide("BBB"); !held || side != signal.Long {
		t.Fatalf("expected long BBB held")
	}
}

func TestRunnerClosesOnSideFlip(t *testing.T) {
	gateway := connectedPaper(t, 100_000)
	gateway.SetMark("AAA", 100)
	engine := &fixedEngine{signals: map[string]signal.Signal{
		"AAA": {Symbol: "AAA", Side: signal.Long, Notional: 1000},
	}}

	runner := newTestRunner(engine, gateway, &fakeProvider{}, risk.Limits{})
	if err := runner.cycle(context.Background()); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if _, held := gateway.PositionSide("AAA"); !held {
		t.Fatalf("expected position after first cycle")
	}

	engine.signals = map[string]signal.Signal{
		"AAA": {Symbol: "AAA", Side: signal.Short, Notional: 1000},
	}
	if err := runner.cycle(context.Background()); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if _, held := gateway.PositionSide("AAA"); held {
		t.Fatalf("expected side flip to close the position")
	}
	// re-entry on the following cycle
	if err := runner.cycle(context.Background()); err != nil {
		t.Fatalf("third cycle: %v", err)
	}
	if side, held := gateway.PositionSide("AAA"); !held || side != signal.Short {
		t.Fatalf("expected short re-entry, got %v %v", side, held)
	}
}

func TestRunnerRespectsRiskLimits(t *testing.T) {
	gateway := connectedPaper(t, 100_000)
	gateway.SetMark("AAA", 100)
	engine := &fixedEngine{signals: map[string]signal.Signal{
		"AAA": {Symbol: "AAA", Side: signal.Long, Notional: 5000},
	}}

	runner := newTestRunner(engine, gateway, &fakeProvider{}, risk.Limits{MaxNotionalPerTrade: 1000})
	if err := runner.cycle(context.Background()); err != nil {
		t.Fatalf("cycle returned error: %v", err)
	}
	if _, held := gateway.PositionSide("AAA"); held {
		t.Fatalf("expected oversized order to be blocked")
	}
}

func TestRunnerSoftFailureRetries(t *testing.T) {
	gateway := connectedPaper(t, 100_000)
	// no mark for AAA yet: first cycle soft-fails
	engine := &fixedEngine{signals: map[string]signal.Signal{
		"AAA": {Symbol: "AAA", Side: signal.Long, Notional: 1000},
	}}

	runner := newTestRunner(engine, gateway, &fakeProvider{}, risk.Limits{})
	if err := runner.cycle(context.Background()); err != nil {
		t.Fatalf("cycle returned error: %v", err)
	}
	if _, held := gateway.PositionSide("AAA"); held {
		t.Fatalf("expected no position without a live price")
	}

	gateway.SetMark("AAA", 100)
	if err := runner.cycle(context.Background()); err != nil {
		t.Fatalf("retry cycle returned error: %v", err)
	}
	if _, held := gateway.PositionSide("AAA"); !held {
		t.Fatalf("expected retry to open the position")
	}
}

func TestRunnerPropagatesFetchError(t *testing.T) {
	gateway := connectedPaper(t, 100_000)
	engine := &fixedEngine{signals: map[string]signal.Signal{}}
	provider := &fakeProvider{err: marketdata.ErrConnectivity}

	runner := newTestRunner(engine, gateway, provider, risk.Limits{})
	if err := runner.cycle(context.Background()); !errors.Is(err, marketdata.ErrConnectivity) {
		t.Fatalf("expected connectivity error, got %v", err)
	}
}

func TestRunnerKillSwitch(t *testing.T) {
	gateway := connectedPaper(t, 100_000)
	gateway.SetMark("AAA", 100)
	engine := &fixedEngine{signals: map[string]signal.Signal{}}

	runner := newTestRunner(engine, gateway, &fakeProvider{}, risk.Limits{KillSwitchDrawdown: 0.1})
	runner.peak = 200_000 // simulate a prior peak far above current equity
	if err := runner.cycle(context.Background()); !errors.Is(err, ErrKillSwitch) {
		t.Fatalf("expected kill switch, got %v", err)
	}
}

func TestIntervalDuration(t *testing.T) {
	if Daily.Duration() != 24*time.Hour {
		t.Fatalf("unexpected daily duration")
	}
	if Weekly.Duration() != 7*24*time.Hour {
		t.Fatalf("unexpected weekly duration")
	}
	if Interval("5m").Duration() != time.Hour {
		t.Fatalf("unknown cadence should default to hourly")
	}
}
