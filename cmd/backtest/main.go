package main

import (
	"context"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"statarb-go/internal/backtest"
	"statarb-go/internal/config"
	"statarb-go/internal/marketdata"
	"statarb-go/internal/metrics"
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

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	start, err := time.Parse("2006-01-02", cfg.Data.Start)
	if err != nil {
		log.Fatal().Err(err).Msg("parse start date")
	}
	end, err := time.Parse("2006-01-02", cfg.Data.End)
	if err != nil {
		log.Fatal().Err(err).Msg("parse end date")
	}

	provider := marketdata.NewProvider(cfg.Data.Provider, log)
	panel, err := provider.Fetch(ctx, cfg.Data.Symbols, start, end)
	if err != nil {
		log.Fatal().Err(err).Msg("fetch prices")
	}
	panel = marketdata.Preprocess(panel, marketdata.PreprocessOptions{
		Fill:        marketdata.FillMethod(cfg.Data.FillMethod),
		MinCoverage: cfg.Data.MinCoverage,
	})
	log.Info().Int("rows", panel.Len()).Strs("symbols", panel.Symbols()).Msg("panel ready")

	strat, err := strategy.New(strategy.Config{
		Lookback:        cfg.Strategy.Lookback,
		MinCorrelation:  cfg.Strategy.MinCorrelation,
		MaxPositionSize: cfg.Strategy.MaxPositionSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build strategy")
	}

	sim := backtest.NewSimulator(strat, backtest.Config{
		InitialCapital:  cfg.Backtest.InitialCapital,
		TransactionCost: cfg.Backtest.TransactionCost,
		Slippage:        cfg.Backtest.Slippage,
	}, log)

	res, err := sim.Run(panel, nil, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("backtest failed")
	}

	log.Info().
		Float64("total_return", res.TotalReturn).
		Float64("annual_return", res.AnnualReturn).
		Float64("sharpe", res.Sharpe).
		Float64("max_drawdown", res.MaxDrawdown).
		Float64("win_rate", res.WinRate).
		Int("trades", res.NumTrades).
		Msg("backtest results")

	if cfg.Backtest.TradesPath != "" {
		recorder, err := backtest.NewJSONLRecorder(cfg.Backtest.TradesPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open trades file")
		}
		recorder.RecordAll(res.Trades)
		if err := recorder.Close(); err != nil {
			log.Error().Err(err).Msg("close trades file")
		}
		log.Info().Str("path", cfg.Backtest.TradesPath).Msg("trade log written")
	}
}
