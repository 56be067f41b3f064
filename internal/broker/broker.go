// Package broker handles order lifecycle and the live trading loop behind an
// abstract gateway, keeping venue I/O out of the strategy core.
package broker

import (
	"context"

	"statarb-go/internal/signal"
)

// Gateway is the order-execution contract the live loop drives. A false or
// empty return is a soft failure to retry on the next cycle, not a fatal
// condition.
type Gateway interface {
	Connect(ctx context.Context) error
	Disconnect()
	// PlaceOrder submits a market order sized in units. It returns the venue
	// order id, or ok=false when the venue rejected or dropped it.
	PlaceOrder(symbol string, quantity float64, side signal.Side) (orderID string, ok bool)
	// ClosePosition flattens the named position, reporting success.
	ClosePosition(symbol string) bool
	// LastPrice returns the most recent trade price for symbol, if known.
	LastPrice(symbol string) (float64, bool)
	// PortfolioValue returns cash plus marked positions.
	PortfolioValue() float64
}
