package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/nightowl-labs/signal-trader/pkg/errors"
	"github.com/shopspring/decimal"
)

type Side string

type OrderKind string

type OrderStatus string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	OrderKindMarket OrderKind = "MARKET"
	OrderKindLimit  OrderKind = "LIMIT"
)

const (
	OrderStatusNew       OrderStatus = "NEW"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	// OrderStatusCancelFailed marks a protective order whose cancellation was
	// rejected by the venue. The order may still execute independently; it is
	// kept in the order history so the persisted record shows the gap.
	OrderStatusCancelFailed OrderStatus = "CANCEL_FAILED"
	OrderStatusRejected     OrderStatus = "REJECTED"
)

// Order is a single order as acknowledged by the venue. Immutable once created
// except for Status transitions reported by the gateway.
type Order struct {
	ID       string          `yaml:"id" json:"id" validate:"required"`
	Symbol   Symbol          `yaml:"symbol" json:"symbol" validate:"required"`
	Side     Side            `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Kind     OrderKind       `yaml:"kind" json:"kind" validate:"required,oneof=MARKET LIMIT"`
	Quantity decimal.Decimal `yaml:"quantity" json:"quantity"`
	// Price is absent for market orders.
	Price     optional.Option[decimal.Decimal] `yaml:"price" json:"price"`
	Status    OrderStatus                      `yaml:"status" json:"status" validate:"required,oneof=NEW FILLED CANCELLED CANCEL_FAILED REJECTED"`
	CreatedAt time.Time                        `yaml:"created_at" json:"created_at"`
}

// Validate validates the Order struct. Decimal fields are checked explicitly
// since validator cannot compare decimal.Decimal values.
func (o *Order) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid order", err)
	}

	if o.Quantity.Sign() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidLot, "order quantity must be positive, got %s", o.Quantity)
	}

	if o.Kind == OrderKindLimit {
		if o.Price.IsNone() {
			return errors.New(errors.ErrCodeInvalidPrice, "limit order requires a price")
		}

		if o.Price.Unwrap().Sign() <= 0 {
			return errors.Newf(errors.ErrCodeInvalidPrice, "limit order price must be positive, got %s", o.Price.Unwrap())
		}
	}

	return nil
}
