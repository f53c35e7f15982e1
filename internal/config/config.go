// Package config loads and validates the bot's YAML configuration.
package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/nightowl-labs/signal-trader/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// SafeModeFraction is the share of the configured budget actually committed
// per buy when safe mode is on.
const SafeModeFraction = "0.75"

// Environment variables consulted when credentials are absent from the file.
const (
	EnvAPIKey    = "BINANCE_API_KEY"
	EnvSecretKey = "BINANCE_SECRET_KEY"
)

// SinkKind selects the snapshot persistence backend.
type SinkKind string

const (
	SinkKindFile     SinkKind = "file"
	SinkKindPostgres SinkKind = "postgres"
)

// StoplossConfig controls the protective limit sell placed after each buy.
type StoplossConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled" jsonschema:"description=Place a protective limit sell after each buy"`
	// Fraction scales the entry price to the stop price, must be inside (0 and 1).
	Fraction string `yaml:"fraction" json:"fraction" jsonschema:"description=Stop price as a fraction of the entry price,example=0.9"`
}

// TradingConfig holds the per-cycle trading parameters.
type TradingConfig struct {
	// Pairing is the quote asset appended to every signalled ticker, e.g. USDT.
	Pairing string `yaml:"pairing" json:"pairing" validate:"required,uppercase" jsonschema:"description=Quote asset paired with every ticker,example=USDT"`
	// Budget is the notional amount of the pairing asset spent per buy.
	Budget string `yaml:"budget" json:"budget" validate:"required" jsonschema:"description=Notional budget per buy in the pairing asset,example=50"`
	// SafeMode commits only a fraction of the budget per buy.
	SafeMode bool `yaml:"safe_mode" json:"safe_mode" jsonschema:"description=Commit only a fraction of the budget per buy,default=false"`
	// HoldDuration is how long a position is held before the market sell.
	HoldDuration string         `yaml:"hold_duration" json:"hold_duration" validate:"required" jsonschema:"description=How long to hold before selling,example=3m"`
	Stoploss     StoplossConfig `yaml:"stoploss" json:"stoploss" jsonschema:"description=Protective order settings"`
	// LotPrecision is the number of decimal places allowed on order quantities.
	LotPrecision int32 `yaml:"lot_precision" json:"lot_precision" validate:"gte=0" jsonschema:"description=Decimal places allowed on quantities,default=0"`
	// PricePrecision is the number of decimal places allowed on limit prices.
	PricePrecision int32 `yaml:"price_precision" json:"price_precision" validate:"gte=0" jsonschema:"description=Decimal places allowed on prices,default=6"`
}

// BinanceConfig holds venue credentials and endpoint selection.
type BinanceConfig struct {
	// ApiKey falls back to the BINANCE_API_KEY environment variable.
	ApiKey string `yaml:"api_key" json:"api_key" jsonschema:"description=API key. Falls back to BINANCE_API_KEY"`
	// SecretKey falls back to the BINANCE_SECRET_KEY environment variable.
	SecretKey string `yaml:"secret_key" json:"secret_key" jsonschema:"description=Secret key. Falls back to BINANCE_SECRET_KEY"`
	Testnet   bool   `yaml:"testnet" json:"testnet" jsonschema:"description=Use the Binance testnet,default=false"`
	// BaseURL overrides the venue endpoint, mainly for tests.
	BaseURL string `yaml:"base_url" json:"base_url" jsonschema:"description=Endpoint override"`
}

// SourceConfig holds the chat-signal source settings.
type SourceConfig struct {
	// URL is the websocket endpoint delivering chat messages.
	URL string `yaml:"url" json:"url" validate:"required,url" jsonschema:"description=Websocket endpoint delivering chat messages"`
	// MessageTemplate filters incoming messages, only ones containing it are parsed.
	MessageTemplate string `yaml:"message_template" json:"message_template" jsonschema:"description=Substring a message must contain to be parsed"`
	ReconnectDelay  string `yaml:"reconnect_delay" json:"reconnect_delay" jsonschema:"description=Delay between reconnect attempts,example=5s"`
}

// SinkConfig selects and configures snapshot persistence.
type SinkConfig struct {
	Kind SinkKind `yaml:"kind" json:"kind" validate:"required,oneof=file postgres" jsonschema:"description=Snapshot backend,enum=file,enum=postgres"`
	// Dir is the snapshot directory for the file sink.
	Dir string `yaml:"dir" json:"dir" jsonschema:"description=Snapshot directory (file sink),example=snapshots"`
	// DatabaseURL is the connection string for the postgres sink.
	DatabaseURL string `yaml:"database_url" json:"database_url" jsonschema:"description=Connection string (postgres sink)"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn error" jsonschema:"description=Log level,enum=debug,enum=info,enum=warn,enum=error,default=info"`
	// Path additionally writes log entries to a file when set.
	Path string `yaml:"path" json:"path" jsonschema:"description=Optional log file path"`
}

// Config is the root of the YAML configuration file.
type Config struct {
	Trading TradingConfig `yaml:"trading" json:"trading" validate:"required"`
	Binance BinanceConfig `yaml:"binance" json:"binance"`
	Source  SourceConfig  `yaml:"source" json:"source" validate:"required"`
	Sink    SinkConfig    `yaml:"sink" json:"sink" validate:"required"`
	Log     LogConfig     `yaml:"log" json:"log"`

	budget           decimal.Decimal
	stoplossFraction decimal.Decimal
	holdDuration     time.Duration
	reconnectDelay   time.Duration
}

// Load reads, validates and resolves the configuration at path. Credentials
// missing from the file are taken from the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "reading config %s", path)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "parsing config %s", path)
	}

	if config.Binance.ApiKey == "" {
		config.Binance.ApiKey = os.Getenv(EnvAPIKey)
	}

	if config.Binance.SecretKey == "" {
		config.Binance.SecretKey = os.Getenv(EnvSecretKey)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the configuration and parses the numeric and duration
// fields. The typed accessors are only meaningful after Validate succeeds.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	if c.Binance.ApiKey == "" || c.Binance.SecretKey == "" {
		return errors.New(errors.ErrCodeMissingCredentials, "binance api_key and secret_key are required")
	}

	budget, err := decimal.NewFromString(c.Trading.Budget)
	if err != nil || budget.LessThanOrEqual(decimal.Zero) {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "budget %q must be a positive number", c.Trading.Budget)
	}

	c.budget = budget

	holdDuration, err := time.ParseDuration(c.Trading.HoldDuration)
	if err != nil || holdDuration <= 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "hold_duration %q must be a positive duration", c.Trading.HoldDuration)
	}

	c.holdDuration = holdDuration

	if c.Trading.Stoploss.Enabled {
		fraction, err := decimal.NewFromString(c.Trading.Stoploss.Fraction)
		if err != nil || fraction.LessThanOrEqual(decimal.Zero) || fraction.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "stoploss fraction %q must be inside (0, 1)", c.Trading.Stoploss.Fraction)
		}

		c.stoplossFraction = fraction
	}

	c.reconnectDelay = 0

	if c.Source.ReconnectDelay != "" {
		delay, err := time.ParseDuration(c.Source.ReconnectDelay)
		if err != nil || delay < 0 {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "reconnect_delay %q must be a duration", c.Source.ReconnectDelay)
		}

		c.reconnectDelay = delay
	}

	switch c.Sink.Kind {
	case SinkKindFile:
		if c.Sink.Dir == "" {
			return errors.New(errors.ErrCodeInvalidConfiguration, "file sink requires dir")
		}
	case SinkKindPostgres:
		if c.Sink.DatabaseURL == "" {
			return errors.New(errors.ErrCodeInvalidConfiguration, "postgres sink requires database_url")
		}
	}

	return nil
}

// Budget returns the raw configured budget.
func (c *Config) Budget() decimal.Decimal {
	return c.budget
}

// EffectiveBudget returns the budget actually committed per buy, scaled down
// when safe mode is on.
func (c *Config) EffectiveBudget() decimal.Decimal {
	if c.Trading.SafeMode {
		return c.budget.Mul(decimal.RequireFromString(SafeModeFraction))
	}

	return c.budget
}

// StoplossFraction returns the parsed stop fraction. Zero when disabled.
func (c *Config) StoplossFraction() decimal.Decimal {
	return c.stoplossFraction
}

// HoldDuration returns the parsed hold duration.
func (c *Config) HoldDuration() time.Duration {
	return c.holdDuration
}

// ReconnectDelay returns the parsed source reconnect delay. Zero means the
// source default.
func (c *Config) ReconnectDelay() time.Duration {
	return c.reconnectDelay
}

// ZapLevel maps the configured log level onto a zap level, defaulting to info.
func (c *Config) ZapLevel() zapcore.Level {
	switch c.Log.Level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Schema returns the JSON schema of the configuration file.
func Schema() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(&Config{})

	data, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(data), nil
}
