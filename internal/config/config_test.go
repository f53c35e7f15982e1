package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nightowl-labs/signal-trader/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zapcore"
)

const validConfig = `
trading:
  pairing: USDT
  budget: "50"
  hold_duration: 3m
  stoploss:
    enabled: true
    fraction: "0.9"
  price_precision: 6
binance:
  api_key: key
  secret_key: secret
  testnet: true
source:
  url: wss://chat.example.com/feed
  message_template: "Signal:"
  reconnect_delay: 5s
sink:
  kind: file
  dir: snapshots
log:
  level: debug
`

type ConfigTestSuite struct {
	suite.Suite
	dir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
}

func (suite *ConfigTestSuite) writeConfig(content string) string {
	path := filepath.Join(suite.dir, "config.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o644))

	return path
}

func (suite *ConfigTestSuite) TestLoadValid() {
	config, err := Load(suite.writeConfig(validConfig))
	suite.Require().NoError(err)

	suite.Equal("USDT", config.Trading.Pairing)
	suite.True(config.Budget().Equal(decimal.NewFromInt(50)))
	suite.Equal(3*time.Minute, config.HoldDuration())
	suite.True(config.StoplossFraction().Equal(decimal.RequireFromString("0.9")))
	suite.Equal(5*time.Second, config.ReconnectDelay())
	suite.Equal(zapcore.DebugLevel, config.ZapLevel())
	suite.Equal(SinkKindFile, config.Sink.Kind)
}

func (suite *ConfigTestSuite) TestEffectiveBudgetSafeMode() {
	config, err := Load(suite.writeConfig(validConfig))
	suite.Require().NoError(err)

	suite.True(config.EffectiveBudget().Equal(decimal.NewFromInt(50)))

	config.Trading.SafeMode = true
	suite.True(config.EffectiveBudget().Equal(decimal.RequireFromString("37.5")))
}

func (suite *ConfigTestSuite) TestCredentialsFromEnvironment() {
	suite.T().Setenv(EnvAPIKey, "env-key")
	suite.T().Setenv(EnvSecretKey, "env-secret")

	content := `
trading:
  pairing: USDT
  budget: "50"
  hold_duration: 3m
source:
  url: wss://chat.example.com/feed
sink:
  kind: file
  dir: snapshots
`

	config, err := Load(suite.writeConfig(content))
	suite.Require().NoError(err)
	suite.Equal("env-key", config.Binance.ApiKey)
	suite.Equal("env-secret", config.Binance.SecretKey)
}

func (suite *ConfigTestSuite) TestMissingCredentials() {
	content := `
trading:
  pairing: USDT
  budget: "50"
  hold_duration: 3m
source:
  url: wss://chat.example.com/feed
sink:
  kind: file
  dir: snapshots
`
	suite.T().Setenv(EnvAPIKey, "")
	suite.T().Setenv(EnvSecretKey, "")

	_, err := Load(suite.writeConfig(content))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingCredentials))
}

func (suite *ConfigTestSuite) TestInvalidValues() {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		message string
	}{
		{
			name:   "zero budget",
			mutate: func(c *Config) { c.Trading.Budget = "0" },
		},
		{
			name:   "malformed budget",
			mutate: func(c *Config) { c.Trading.Budget = "fifty" },
		},
		{
			name:   "lowercase pairing",
			mutate: func(c *Config) { c.Trading.Pairing = "usdt" },
		},
		{
			name:   "zero hold duration",
			mutate: func(c *Config) { c.Trading.HoldDuration = "0s" },
		},
		{
			name:   "stoploss fraction at one",
			mutate: func(c *Config) { c.Trading.Stoploss.Fraction = "1" },
		},
		{
			name:   "file sink without dir",
			mutate: func(c *Config) { c.Sink.Dir = "" },
		},
		{
			name: "postgres sink without url",
			mutate: func(c *Config) {
				c.Sink.Kind = SinkKindPostgres
				c.Sink.DatabaseURL = ""
			},
		},
		{
			name:   "unknown sink kind",
			mutate: func(c *Config) { c.Sink.Kind = "s3" },
		},
		{
			name:   "unknown log level",
			mutate: func(c *Config) { c.Log.Level = "verbose" },
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			config, err := Load(suite.writeConfig(validConfig))
			suite.Require().NoError(err)

			tc.mutate(config)

			err = config.Validate()
			suite.Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
		})
	}
}

func (suite *ConfigTestSuite) TestLoadMissingFile() {
	_, err := Load(filepath.Join(suite.dir, "absent.yaml"))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestSchema() {
	schema, err := Schema()
	suite.Require().NoError(err)
	suite.Contains(schema, "hold_duration")
	suite.Contains(schema, "message_template")
}
