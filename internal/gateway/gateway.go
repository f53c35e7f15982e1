// Package gateway defines the venue capability set consumed by the position
// lifecycle and provides the Binance implementation.
package gateway

import (
	"context"

	"github.com/nightowl-labs/signal-trader/internal/types"
	"github.com/shopspring/decimal"
)

// Gateway is the venue capability set the core consumes. Every call may fail
// with a gateway error carrying the underlying cause; the core never retries,
// retry policy belongs to the implementation if anywhere.
type Gateway interface {
	// Quote returns the last traded price for the symbol's trading pair.
	Quote(ctx context.Context, symbol types.Symbol) (types.Quote, error)
	// PlaceMarketOrder places a market order for the given quantity.
	PlaceMarketOrder(ctx context.Context, symbol types.Symbol, side types.Side, quantity decimal.Decimal) (types.Order, error)
	// PlaceLimitOrder places a good-till-cancelled limit order.
	PlaceLimitOrder(ctx context.Context, symbol types.Symbol, side types.Side, quantity, price decimal.Decimal) (types.Order, error)
	// CancelOrder cancels a standing order by id.
	CancelOrder(ctx context.Context, symbol types.Symbol, orderID string) error
	// Balance returns the free balance of a single asset.
	Balance(ctx context.Context, asset string) (decimal.Decimal, error)
}
