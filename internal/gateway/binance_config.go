package gateway

import (
	"github.com/go-playground/validator/v10"
	"github.com/nightowl-labs/signal-trader/pkg/errors"
)

const (
	// DefaultLotPrecision is the quantity precision used when the venue's
	// LOT_SIZE filter is not looked up. Whole units match the pump-cycle
	// sizing convention.
	DefaultLotPrecision = 0
	// DefaultPricePrecision is the price precision for limit orders.
	DefaultPricePrecision = 6
)

// BinanceConfig contains credentials and precision settings for the Binance
// gateway.
type BinanceConfig struct {
	ApiKey    string `yaml:"api_key" json:"api_key" validate:"required"`
	SecretKey string `yaml:"secret_key" json:"secret_key" validate:"required"`
	// Testnet routes all calls to the Binance spot testnet.
	Testnet bool `yaml:"testnet" json:"testnet"`
	// BaseURL overrides the API endpoint; takes precedence over Testnet.
	BaseURL string `yaml:"base_url" json:"base_url"`
	// Pairing is the currency every trading pair is quoted against.
	Pairing string `yaml:"pairing" json:"pairing" validate:"required,uppercase"`
	// LotPrecision is the number of decimals accepted for order quantities.
	LotPrecision int32 `yaml:"lot_precision" json:"lot_precision" validate:"gte=0"`
	// PricePrecision is the number of decimals accepted for limit prices.
	PricePrecision int32 `yaml:"price_precision" json:"price_precision" validate:"gte=0"`
}

// Validate validates the BinanceConfig struct.
func (c *BinanceConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid binance gateway config", err)
	}

	return nil
}
