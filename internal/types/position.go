package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// Position represents the current holdings of a single symbol together with
// the full order history for that symbol. Amount returns to zero when the
// position closes; the record itself is kept for snapshotting.
type Position struct {
	Symbol Symbol          `yaml:"symbol" json:"symbol"`
	Amount decimal.Decimal `yaml:"amount" json:"amount"`
	// Orders is append-only and records every order ever associated with the
	// symbol, buys and sells alike, in execution order.
	Orders []Order `yaml:"orders" json:"orders"`
	// Stoploss is the protective order currently standing at the venue, if any.
	Stoploss optional.Option[Order]     `yaml:"stoploss_order" json:"stoploss_order"`
	OpenedAt time.Time                  `yaml:"opened_at" json:"opened_at"`
	ClosedAt optional.Option[time.Time] `yaml:"closed_at" json:"closed_at"`
}

// Open reports whether the position currently holds a non-zero amount.
func (p *Position) Open() bool {
	return p.Amount.Sign() > 0
}

// Clone returns a deep copy of the position. Callers outside the store only
// ever see clones, never the stored instance.
func (p *Position) Clone() Position {
	clone := *p
	clone.Orders = make([]Order, len(p.Orders))
	copy(clone.Orders, p.Orders)

	return clone
}
