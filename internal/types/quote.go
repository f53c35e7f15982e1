package types

import (
	"time"

	"github.com/nightowl-labs/signal-trader/pkg/errors"
	"github.com/shopspring/decimal"
)

// Symbol is an uppercase asset ticker, independent of its pairing currency.
type Symbol string

// Pair returns the venue trading pair for the symbol, e.g. "FOO".Pair("BTC") == "FOOBTC".
func (s Symbol) Pair(pairing string) string {
	return string(s) + pairing
}

// Quote is the last observed price for a trading pair.
type Quote struct {
	Symbol     Symbol          `yaml:"symbol" json:"symbol"`
	Price      decimal.Decimal `yaml:"price" json:"price"`
	ObservedAt time.Time       `yaml:"observed_at" json:"observed_at"`
}

// Validate checks that the quote carries a usable price. A non-positive price
// is an error, not a valid quote.
func (q *Quote) Validate() error {
	if q.Symbol == "" {
		return errors.New(errors.ErrCodeInvalidPrice, "quote has no symbol")
	}

	if q.Price.Sign() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPrice, "quote price must be positive, got %s", q.Price)
	}

	return nil
}
