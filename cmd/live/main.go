package main

import (
	"context"
	"errors"
	"os"
	ossignal "os/signal"
	"syscall"

	"statarb-go/internal/broker"
	"statarb-go/internal/config"
	"statarb-go/internal/marketdata"
	"statarb-go/internal/metrics"
	"statarb-go/internal/risk"
	sig "statarb-go/internal/signal"
	"statarb-go/internal/strategy"
	"statarb-go/internal/util"
)

func main() {
	log := util.NewLogger("info")

	path := "configs/config.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log = util.NewLogger(cfg.App.LogLevel)
	cfg.Broker.ApplyEnv()

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	gateway := broker.NewPaper(cfg.Broker.Cash, log)
	quotes := make(chan sig.Quote, 1024)
	stream := marketdata.NewQuoteStream(cfg.Data.Symbols, log)

	go func() {
		if err := stream.Run(ctx, quotes); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("quote stream stopped")
			cancel()
		}
	}()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case q := <-quotes:
				gateway.ApplyQuote(q)
			}
		}
	}()

	strat, err := strategy.New(strategy.Config{
		Lookback:        cfg.Strategy.Lookback,
		MinCorrelation:  cfg.Strategy.MinCorrelation,
		MaxPositionSize: cfg.Strategy.MaxPositionSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build strategy")
	}

	provider := marketdata.NewProvider(cfg.Data.Provider, log)
	runner := broker.NewRunner(strat, gateway, provider, broker.RunnerConfig{
		Symbols:  cfg.Data.Symbols,
		Interval: broker.Interval(cfg.Strategy.Rebalance),
		Limits: risk.Limits{
			MaxNotionalPerTrade: cfg.Risk.MaxNotionalPerTrade,
			MaxDailyLoss:        cfg.Risk.MaxDailyLoss,
			KillSwitchDrawdown:  cfg.Risk.KillSwitchDrawdown,
		},
		Preprocess: marketdata.PreprocessOptions{
			Fill:        marketdata.FillMethod(cfg.Data.FillMethod),
			MinCoverage: cfg.Data.MinCoverage,
		},
	}, log)

	log.Info().Str("rebalance", cfg.Strategy.Rebalance).Msg("live engine started")
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("live loop stopped")
	}
	log.Info().Msg("shutting down")
}
