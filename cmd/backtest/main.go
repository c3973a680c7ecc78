package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/meridian-quant/meridian-trading/internal/backtest"
	"github.com/meridian-quant/meridian-trading/internal/backtest/datasource"
	"github.com/meridian-quant/meridian-trading/internal/logger"
	"github.com/meridian-quant/meridian-trading/internal/strategy"
	"github.com/meridian-quant/meridian-trading/internal/types"
	"github.com/meridian-quant/meridian-trading/internal/version"
	"github.com/meridian-quant/meridian-trading/pkg/marketdata"
	"github.com/meridian-quant/meridian-trading/pkg/schema"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	config := backtest.DefaultConfig()

	if configPath := cmd.String("config"); configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to read backtest config: %w", err)
		}

		config, err = backtest.ParseConfig(string(content))
		if err != nil {
			return err
		}
	}

	strategyConfig := ""

	if configPath := cmd.String("strategy-config"); configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to read strategy config: %w", err)
		}

		strategyConfig = string(content)
	}

	registry := strategy.NewRegistry()

	strat, err := registry.Create(cmd.String("strategy"), strategyConfig)
	if err != nil {
		return err
	}

	bars, err := loadBars(ctx, cmd)
	if err != nil {
		return err
	}

	simulator, err := backtest.NewSimulator(config, log)
	if err != nil {
		return err
	}

	result, err := simulator.Run(strat, bars)
	if err != nil {
		return err
	}

	report := result.Report

	log.Info("Backtest finished",
		zap.String("strategy", report.StrategyName),
		zap.String("symbol", report.Symbol),
		zap.Float64("final_equity", report.FinalEquity),
		zap.Float64("total_return", report.TotalReturn),
		zap.Float64("max_drawdown", report.MaxDrawdown),
		zap.Int("trades", report.TradeCount),
		zap.Float64("win_rate", report.WinRate),
	)

	if output := cmd.String("output"); output != "" {
		if err := types.WritePerformanceReport(output, report); err != nil {
			return err
		}

		log.Info("Report written", zap.String("path", output))
	}

	return nil
}

// loadBars reads bars from the CSV file when --data is set, otherwise
// downloads them from the configured provider.
func loadBars(ctx context.Context, cmd *cli.Command) ([]types.Bar, error) {
	symbol := cmd.String("symbol")

	if dataPath := cmd.String("data"); dataPath != "" {
		source := datasource.NewCSVSource(dataPath, symbol)

		return source.LoadRange(cmd.Timestamp("start"), cmd.Timestamp("end"))
	}

	interval, err := marketdata.ParseInterval(cmd.String("interval"))
	if err != nil {
		return nil, err
	}

	provider, err := marketdata.NewProvider(
		marketdata.ProviderType(cmd.String("provider")),
		os.Getenv("POLYGON_API_KEY"),
	)
	if err != nil {
		return nil, err
	}

	return provider.GetHistorical(ctx, symbol, interval, cmd.Timestamp("start"), cmd.Timestamp("end"))
}

func schemaAction(ctx context.Context, cmd *cli.Command) error {
	document, err := schema.ToJSONSchema(backtest.Config{})
	if err != nil {
		return err
	}

	fmt.Println(document)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "backtest",
		Usage:   "Replay a strategy over historical bars and report performance",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "symbol",
				Aliases:  []string{"S"},
				Usage:    "Symbol to backtest",
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
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the backtest YAML config",
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Path to a CSV bar file; omit to download from the provider",
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   fmt.Sprintf("Market data provider (%s, %s)", marketdata.ProviderBinance, marketdata.ProviderPolygon),
				Value:   string(marketdata.ProviderBinance),
			},
			&cli.StringFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Bar interval for provider downloads",
				Value:   string(marketdata.IntervalFifteenMinutes),
			},
			&cli.TimestampFlag{
				Name:  "start",
				Usage: "Start date in `YYYY-MM-DD` format",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:  "end",
				Usage: "End date in `YYYY-MM-DD` format. Defaults to today.",
				Value: time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Path for the YAML performance report",
			},
		},
		Action: runAction,
		Commands: []*cli.Command{
			{
				Name:   "schema",
				Usage:  "Print the JSON schema for the backtest config",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
