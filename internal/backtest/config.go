package backtest

import (
	"github.com/go-playground/validator/v10"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FillTiming selects which bar's price a synthesized fill uses.
type FillTiming string

const (
	// FillTimingNextBarOpen fills a signal at the next bar's open price.
	// This is the default: filling at the signal bar's own close would let
	// the strategy act on a price it could not have traded.
	FillTimingNextBarOpen FillTiming = "next_bar_open"
	// FillTimingSameBarClose fills a signal at the signal bar's close
	// price. Opt-in only.
	FillTimingSameBarClose FillTiming = "same_bar_close"
)

// Config holds the simulator parameters.
type Config struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,minimum=0" validate:"required,gt=0"`
	// OrderQuantity is the quantity held for a full long or short position.
	OrderQuantity float64 `yaml:"order_quantity" json:"order_quantity" jsonschema:"title=Order Quantity,minimum=0" validate:"required,gt=0"`
	// FeeBps is the proportional fee per fill in basis points.
	FeeBps float64 `yaml:"fee_bps" json:"fee_bps" jsonschema:"title=Fee (bps),minimum=0" validate:"gte=0"`
	// SlippageBps shifts the fill price against the order in basis points.
	SlippageBps float64 `yaml:"slippage_bps" json:"slippage_bps" jsonschema:"title=Slippage (bps),minimum=0" validate:"gte=0"`
	FillTiming  FillTiming `yaml:"fill_timing" json:"fill_timing" jsonschema:"title=Fill Timing" validate:"required,oneof=next_bar_open same_bar_close"`
	// PeriodsPerYear is the annualization factor for Sharpe and Sortino.
	PeriodsPerYear float64 `yaml:"periods_per_year" json:"periods_per_year" jsonschema:"title=Periods Per Year,minimum=1" validate:"required,gte=1"`
}

// DefaultConfig returns the simulator defaults: fee and slippage of the
// reference account (10 bps fee, 5 bps slippage), one unit per full
// position, next-bar-open fills, daily annualization.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 50000,
		OrderQuantity:  1,
		FeeBps:         10,
		SlippageBps:    5,
		FillTiming:     FillTimingNextBarOpen,
		PeriodsPerYear: 252,
	}
}

// ParseConfig parses a YAML simulator config, filling unset fields with
// defaults.
func ParseConfig(content string) (Config, error) {
	config := DefaultConfig()

	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse backtest config", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks the config invariants.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid backtest config", err)
	}

	return nil
}
