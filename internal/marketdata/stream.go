package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"statarb-go/internal/metrics"
	"statarb-go/internal/signal"
)

// QuoteStream pushes live trade prices for a symbol universe onto a channel.
// It backs the live loop's marks between rebalances.
type QuoteStream struct {
	url     string
	symbols []string
	log     zerolog.Logger
}

const defaultStreamURL = "wss://stream.binance.com:9443/stream"

// StreamOption configures QuoteStream construction parameters.
type StreamOption func(*QuoteStream)

// WithStreamURL overrides the combined-stream endpoint (used by tests).
func WithStreamURL(url string) StreamOption {
	return func(s *QuoteStream) {
		if url != "" {
			s.url = url
		}
	}
}

// NewQuoteStream constructs a stream for the given symbols.
func NewQuoteStream(symbols []string, log zerolog.Logger, opts ...StreamOption) *QuoteStream {
	s := &QuoteStream{url: defaultStreamURL, symbols: symbols, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type streamEnvelope struct {
	Stream string      `json:"stream"`
	Data   streamTrade `json:"data"`
}

type streamTrade struct {
	Price     string `json:"p"`
	TradeTime int64  `json:"T"`
}

// Run consumes the stream until the context is canceled, reconnecting with
// multiplicative backoff on transport failures.
func (s *QuoteStream) Run(ctx context.Context, out chan<- signal.Quote) error {
	if len(s.symbols) == 0 {
		return fmt.Errorf("quote stream requires at least one symbol")
	}

	streams := make([]string, len(s.symbols))
	for i, sym := range s.symbols {
		streams[i] = strings.ToLower(sym) + "@trade"
	}
	url := fmt.Sprintf("%s?streams=%s", s.url, strings.Join(streams, "/"))

	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.consume(ctx, url, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn().Err(err).Msg("quote stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (s *QuoteStream) consume(ctx context.Context, url string, out chan<- signal.Quote) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.log.Info().Strs("symbols", s.symbols).Msg("connected quote stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					s.log.Warn().Err(err).Msg("quote stream ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env streamEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			s.log.Warn().Err(err).Msg("failed to decode stream message")
			continue
		}
		px, err := strconv.ParseFloat(env.Data.Price, 64)
		if err != nil {
			s.log.Warn().Err(err).Msg("invalid price on stream")
			continue
		}

		quote := signal.Quote{
			Symbol: parseStreamSymbol(env.Stream),
			Price:  px,
			Ts:     time.UnixMilli(env.Data.TradeTime),
		}
		select {
		case out <- quote:
			metrics.QuotesTotal.WithLabelValues(quote.Symbol).Inc()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func parseStreamSymbol(stream string) string {
	parts := strings.Split(stream, "@")
	if len(parts) == 0 || parts[0] == "" {
		return strings.ToUpper(stream)
	}
	return strings.ToUpper(parts[0])
}
