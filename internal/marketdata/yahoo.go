package marketdata

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/rs/zerolog"

	"statarb-go/internal/metrics"
)

// Yahoo fetches daily closing prices from Yahoo Finance.
type Yahoo struct {
	log      zerolog.Logger
	interval datetime.Interval
}

// YahooOption configures Yahoo construction parameters.
type YahooOption func(*Yahoo)

// WithInterval overrides the default daily bar interval.
func WithInterval(interval datetime.Interval) YahooOption {
	return func(y *Yahoo) {
		if interval != "" {
			y.interval = interval
		}
	}
}

// NewYahoo constructs a Yahoo Finance historical provider.
func NewYahoo(log zerolog.Logger, opts ...YahooOption) *Yahoo {
	y := &Yahoo{log: log, interval: datetime.OneDay}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// Fetch downloads closes for every symbol and aligns them into one panel.
// Symbols that fail or come back empty are dropped with a warning; the call
// fails only when nothing at all was retrieved.
func (y *Yahoo) Fetch(ctx context.Context, symbols []string, start, end time.Time) (PricePanel, error) {
	closes := make(map[string]map[int64]float64)
	var lastErr error

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return PricePanel{}, err
		}
		series, err := y.fetchSymbol(symbol, start, end)
		if err != nil {
			y.log.Warn().Err(err).Str("symbol", symbol).Msg("dropping symbol from panel")
			lastErr = err
			continue
		}
		if len(series) == 0 {
			y.log.Warn().Str("symbol", symbol).Msg("no rows for symbol")
			continue
		}
		closes[symbol] = series
	}

	if len(closes) == 0 {
		if lastErr != nil {
			return PricePanel{}, fmt.Errorf("%w: %v", ErrConnectivity, lastErr)
		}
		return PricePanel{}, ErrNoData
	}

	stamps := make(map[int64]struct{})
	for _, series := range closes {
		for ts := range series {
			stamps[ts] = struct{}{}
		}
	}
	ordered := make([]int64, 0, len(stamps))
	for ts := range stamps {
		ordered = append(ordered, ts)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	var panel PricePanel
	for _, ts := range ordered {
		row := make(map[string]float64)
		for symbol, series := range closes {
			if px, ok := series[ts]; ok {
				row[symbol] = px
			}
		}
		panel.Append(time.Unix(ts, 0).UTC(), row)
	}
	return panel, nil
}

func (y *Yahoo) fetchSymbol(symbol string, start, end time.Time) (map[int64]float64, error) {
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: y.interval,
	}
	iter := chart.Get(params)

	series := make(map[int64]float64)
	for iter.Next() {
		bar := iter.Bar()
		px := bar.Close.InexactFloat64()
		if px <= 0 {
			continue
		}
		series[int64(bar.Timestamp)] = px
		metrics.BarsTotal.WithLabelValues(symbol).Inc()
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	return series, nil
}
