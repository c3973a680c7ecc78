package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/meridian-quant/meridian-trading/internal/broker"
	"github.com/meridian-quant/meridian-trading/internal/live"
	"github.com/meridian-quant/meridian-trading/internal/live/statestore"
	"github.com/meridian-quant/meridian-trading/internal/logger"
	"github.com/meridian-quant/meridian-trading/internal/strategy"
	"github.com/meridian-quant/meridian-trading/internal/version"
	"github.com/meridian-quant/meridian-trading/pkg/marketdata"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func tradeAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	content, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to read live config: %w", err)
	}

	config, err := live.ParseConfig(string(content))
	if err != nil {
		return err
	}

	brokerContent, err := os.ReadFile(cmd.String("broker-config"))
	if err != nil {
		return fmt.Errorf("failed to read broker config: %w", err)
	}

	brokerConfig, err := broker.ParseBinanceConfig(string(brokerContent))
	if err != nil {
		return err
	}

	venue, err := broker.NewBinanceBroker(brokerConfig)
	if err != nil {
		return err
	}

	provider, err := marketdata.NewProvider(
		marketdata.ProviderType(cmd.String("provider")),
		os.Getenv("POLYGON_API_KEY"),
	)
	if err != nil {
		return err
	}

	strategyConfig := ""

	if configPath := cmd.String("strategy-config"); configPath != "" {
		strategyContent, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to read strategy config: %w", err)
		}

		strategyConfig = string(strategyContent)
	}

	registry := strategy.NewRegistry()

	strat, err := registry.Create(cmd.String("strategy"), strategyConfig)
	if err != nil {
		return err
	}

	store, err := statestore.NewStore(config.StateDir)
	if err != nil {
		return err
	}

	engine, err := live.NewEngine(config, strat, provider, venue, store, log)
	if err != nil {
		return err
	}

	log.Info("Starting live trading",
		zap.String("symbol", config.Symbol),
		zap.String("strategy", strat.Name()),
		zap.String("interval", string(config.Interval)),
	)

	return engine.Run(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:    "trading",
		Usage:   "Run a strategy live against a venue on a fixed bar cadence",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the live loop YAML config",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "broker-config",
				Aliases:  []string{"b"},
				Usage:    "Path to the Binance broker YAML config",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "strategy",
				Aliases:  []string{"s"},
				Usage:    "Strategy name (e.g. ma_crossover, rsi_threshold)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "strategy-config",
				Usage: "Path to the strategy's YAML parameter file",
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   fmt.Sprintf("Market data provider (%s, %s)", marketdata.ProviderBinance, marketdata.ProviderPolygon),
				Value:   string(marketdata.ProviderBinance),
			},
		},
		Action: tradeAction,
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
