package marketdata

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// ProviderSynthetic emits deterministic correlated random walks (useful
	// for tests/offline work).
	ProviderSynthetic = "synthetic"
	// ProviderYahoo fetches historical daily closes from Yahoo Finance.
	ProviderYahoo = "yahoo"
)

var (
	// ErrNoData reports that no symbol produced any usable rows.
	ErrNoData = errors.New("marketdata: no data for requested symbols")
	// ErrConnectivity reports a transport failure, as opposed to the venue
	// having nothing for the requested range.
	ErrConnectivity = errors.New("marketdata: provider unreachable")
)

// Provider produces historical price panels for a symbol universe.
type Provider interface {
	Fetch(ctx context.Context, symbols []string, start, end time.Time) (PricePanel, error)
}

// NewProvider constructs a provider by name, defaulting to the synthetic one.
func NewProvider(name string, log zerolog.Logger) Provider {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderYahoo:
		return NewYahoo(log)
	default:
		return NewSynthetic(log, 0)
	}
}
