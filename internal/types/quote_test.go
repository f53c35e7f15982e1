package types

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSymbolPair(t *testing.T) {
	assert.Equal(t, "FOOBTC", Symbol("FOO").Pair("BTC"))
	assert.Equal(t, "ETHUSDT", Symbol("ETH").Pair("USDT"))
}

func TestQuoteValidate(t *testing.T) {
	tests := []struct {
		name        string
		quote       Quote
		shouldError bool
	}{
		{
			name: "valid quote",
			quote: Quote{
				Symbol:     "FOO",
				Price:      decimal.NewFromInt(10),
				ObservedAt: time.Now(),
			},
			shouldError: false,
		},
		{
			name: "zero price",
			quote: Quote{
				Symbol:     "FOO",
				Price:      decimal.Zero,
				ObservedAt: time.Now(),
			},
			shouldError: true,
		},
		{
			name: "negative price",
			quote: Quote{
				Symbol:     "FOO",
				Price:      decimal.NewFromInt(-1),
				ObservedAt: time.Now(),
			},
			shouldError: true,
		},
		{
			name: "missing symbol",
			quote: Quote{
				Symbol:     "",
				Price:      decimal.NewFromInt(10),
				ObservedAt: time.Now(),
			},
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.quote.Validate()
			if tt.shouldError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
