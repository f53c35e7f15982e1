// Package sizer converts a price and a notional budget into a tradeable
// order quantity.
package sizer

import (
	"github.com/nightowl-labs/signal-trader/pkg/errors"
	"github.com/shopspring/decimal"
)

// Quantity computes floor(budget/price) at the venue lot precision.
// lotPrecision is the number of decimal places the venue accepts for order
// quantities; 0 means whole units only. Flooring guarantees the notional
// value of the result never exceeds the budget.
func Quantity(price, budget decimal.Decimal, lotPrecision int32) (decimal.Decimal, error) {
	if lotPrecision < 0 {
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidLot, "lot precision must be non-negative, got %d", lotPrecision)
	}

	if price.Sign() <= 0 {
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidPrice, "price must be positive, got %s", price)
	}

	if budget.Sign() < 0 {
		return decimal.Zero, errors.Newf(errors.ErrCodeZeroQuantity, "budget must be non-negative, got %s", budget)
	}

	quantity := budget.Div(price).RoundFloor(lotPrecision)
	if quantity.Sign() == 0 {
		return decimal.Zero, errors.Newf(errors.ErrCodeZeroQuantity,
			"budget %s buys no tradeable quantity at price %s", budget, price)
	}

	return quantity, nil
}
