package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nightowl-labs/signal-trader/internal/config"
	"github.com/nightowl-labs/signal-trader/internal/gateway"
	"github.com/nightowl-labs/signal-trader/internal/lifecycle"
	"github.com/nightowl-labs/signal-trader/internal/logger"
	"github.com/nightowl-labs/signal-trader/internal/persistence"
	chatsignal "github.com/nightowl-labs/signal-trader/internal/signal"
	"github.com/nightowl-labs/signal-trader/internal/stoploss"
	"github.com/nightowl-labs/signal-trader/internal/store"
	"github.com/nightowl-labs/signal-trader/internal/version"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// runAction wires every component from the configuration file and runs the
// bot until SIGINT or SIGTERM.
func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	log, err := logger.NewLoggerWithLevel(cfg.ZapLevel(), cfg.Log.Path)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	gw, err := gateway.NewBinanceGateway(gateway.BinanceConfig{
		ApiKey:         cfg.Binance.ApiKey,
		SecretKey:      cfg.Binance.SecretKey,
		Testnet:        cfg.Binance.Testnet,
		BaseURL:        cfg.Binance.BaseURL,
		Pairing:        cfg.Trading.Pairing,
		LotPrecision:   cfg.Trading.LotPrecision,
		PricePrecision: cfg.Trading.PricePrecision,
	})
	if err != nil {
		return err
	}

	sink, err := newSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = sink.Close()
	}()

	positions := store.NewStore()
	protector := stoploss.NewManager(gw, positions, cfg.Trading.PricePrecision, log)

	orchestrator := lifecycle.NewOrchestrator(lifecycle.Config{
		Budget:           cfg.EffectiveBudget(),
		HoldDuration:     cfg.HoldDuration(),
		StoplossEnabled:  cfg.Trading.Stoploss.Enabled,
		StoplossFraction: cfg.StoplossFraction(),
		LotPrecision:     cfg.Trading.LotPrecision,
	}, gw, positions, protector, sink, log, lifecycle.Callbacks{})

	source := chatsignal.NewWebSocketSource(chatsignal.WebSocketSourceConfig{
		URL:             cfg.Source.URL,
		MessageTemplate: cfg.Source.MessageTemplate,
		ReconnectDelay:  cfg.ReconnectDelay(),
	}, log)
	defer func() {
		_ = source.Close()
	}()

	runCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("trader starting",
		zap.String("pairing", cfg.Trading.Pairing),
		zap.String("budget", cfg.EffectiveBudget().String()),
		zap.Bool("safe_mode", cfg.Trading.SafeMode),
		zap.Bool("testnet", cfg.Binance.Testnet))

	if err := orchestrator.Run(runCtx, source); err != nil {
		return err
	}

	log.Info("trader stopped")

	return nil
}

func newSink(ctx context.Context, cfg *config.Config) (persistence.Sink, error) {
	switch cfg.Sink.Kind {
	case config.SinkKindPostgres:
		return persistence.NewPostgresSink(ctx, cfg.Sink.DatabaseURL)
	default:
		return persistence.NewFileSink(cfg.Sink.Dir)
	}
}

// schemaAction prints the JSON schema of the configuration file.
func schemaAction(_ context.Context, _ *cli.Command) error {
	schema, err := config.Schema()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "trader",
		Usage:   "Buy tickers signalled in chat messages, hold, then sell",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the bot against the configured venue",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the YAML configuration file",
						Value:   "config.yaml",
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the configuration file",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
