// Package stoploss places and releases the protective limit sell that guards
// an open position while it is being held.
package stoploss

import (
	"context"

	"github.com/nightowl-labs/signal-trader/internal/gateway"
	"github.com/nightowl-labs/signal-trader/internal/logger"
	"github.com/nightowl-labs/signal-trader/internal/store"
	"github.com/nightowl-labs/signal-trader/internal/types"
	"github.com/nightowl-labs/signal-trader/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Manager owns the protective order of each position. At most one protective
// order exists per symbol at a time, recorded in the position store.
type Manager struct {
	gateway        gateway.Gateway
	store          *store.Store
	pricePrecision int32
	logger         *logger.Logger
}

// NewManager creates a stoploss manager. pricePrecision is the number of
// decimal places the venue accepts on limit prices.
func NewManager(gw gateway.Gateway, st *store.Store, pricePrecision int32, log *logger.Logger) *Manager {
	return &Manager{
		gateway:        gw,
		store:          st,
		pricePrecision: pricePrecision,
		logger:         log,
	}
}

// Protect places a limit sell for the held quantity at refPrice scaled by
// fraction and records it on the position. fraction must be inside (0, 1).
func (m *Manager) Protect(ctx context.Context, symbol types.Symbol, heldQuantity, refPrice, fraction decimal.Decimal) (types.Order, error) {
	if fraction.LessThanOrEqual(decimal.Zero) || fraction.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return types.Order{}, errors.Newf(errors.ErrCodeStoplossPlacement, "stoploss fraction %s outside (0, 1)", fraction)
	}

	if heldQuantity.LessThanOrEqual(decimal.Zero) {
		return types.Order{}, errors.Newf(errors.ErrCodeStoplossPlacement, "nothing to protect for %s", symbol)
	}

	stopPrice := refPrice.Mul(fraction).Round(m.pricePrecision)

	order, err := m.gateway.PlaceLimitOrder(ctx, symbol, types.SideSell, heldQuantity, stopPrice)
	if err != nil {
		return types.Order{}, errors.Wrapf(errors.ErrCodeStoplossPlacement, err, "placing stoploss for %s", symbol)
	}

	if err := m.store.RecordStoploss(symbol, order); err != nil {
		return types.Order{}, err
	}

	m.logger.Info("stoploss placed",
		zap.String("symbol", string(symbol)),
		zap.String("order_id", order.ID),
		zap.String("price", stopPrice.String()),
		zap.String("quantity", heldQuantity.String()))

	return order, nil
}

// Release cancels the standing protective order, if any. When the venue
// refuses the cancel, the order is re-filed into the position's history with
// status CANCEL_FAILED so the dangling order stays visible in snapshots, and
// the error is returned for the caller to surface.
func (m *Manager) Release(ctx context.Context, symbol types.Symbol) error {
	order, ok := m.store.StoplossOrder(symbol)
	if !ok {
		return nil
	}

	if err := m.gateway.CancelOrder(ctx, symbol, order.ID); err != nil {
		order.Status = types.OrderStatusCancelFailed

		m.store.ClearStoploss(symbol)

		if appendErr := m.store.AppendOrder(symbol, order); appendErr != nil {
			m.logger.Error("recording failed cancel",
				zap.String("symbol", string(symbol)),
				zap.Error(appendErr))
		}

		m.logger.Error("stoploss cancel failed, order may still be live",
			zap.String("symbol", string(symbol)),
			zap.String("order_id", order.ID),
			zap.Error(err))

		return errors.Wrapf(errors.ErrCodeStoplossRelease, err, "cancelling stoploss %s for %s", order.ID, symbol)
	}

	m.store.ClearStoploss(symbol)

	m.logger.Info("stoploss released",
		zap.String("symbol", string(symbol)),
		zap.String("order_id", order.ID))

	return nil
}
