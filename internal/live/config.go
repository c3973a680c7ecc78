package live

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
	"github.com/meridian-quant/meridian-trading/pkg/marketdata"
	"gopkg.in/yaml.v3"
)

// Config holds the live execution loop parameters for a single symbol.
type Config struct {
	Symbol   string              `yaml:"symbol" json:"symbol" jsonschema:"title=Symbol" validate:"required"`
	Interval marketdata.Interval `yaml:"interval" json:"interval" jsonschema:"title=Bar Interval" validate:"required"`
	// HistoryBars is how many closed bars are handed to the strategy each
	// cycle. It must cover the strategy's longest lookback.
	HistoryBars int `yaml:"history_bars" json:"history_bars" jsonschema:"title=History Bars,minimum=1" validate:"required,gte=1"`
	// OrderQuantity is the quantity held for a full long position.
	OrderQuantity float64 `yaml:"order_quantity" json:"order_quantity" jsonschema:"title=Order Quantity,minimum=0" validate:"required,gt=0"`
	// MinNotional skips orders whose value at the latest close is below
	// the venue minimum. Zero disables the check.
	MinNotional float64 `yaml:"min_notional" json:"min_notional" jsonschema:"title=Minimum Notional,minimum=0" validate:"gte=0"`
	// StateDir is where per-symbol loop state is persisted.
	StateDir string `yaml:"state_dir" json:"state_dir" jsonschema:"title=State Directory" validate:"required"`
	// BarCloseGrace is how long after a bar boundary to wait before
	// fetching, giving the venue time to finalize the bar.
	BarCloseGrace time.Duration `yaml:"bar_close_grace" json:"bar_close_grace"`
	// SubmitRetries is how many times a transient submission failure is
	// retried before the cycle is abandoned.
	SubmitRetries uint `yaml:"submit_retries" json:"submit_retries"`
	// ReconcilePolls bounds how many times an in-flight order is polled
	// for a terminal status each cycle.
	ReconcilePolls int           `yaml:"reconcile_polls" json:"reconcile_polls"`
	PollInterval   time.Duration `yaml:"poll_interval" json:"poll_interval"`
}

// DefaultConfig returns the live loop defaults: 15 minute bars, 200 bars of
// history, one unit per position.
func DefaultConfig() Config {
	return Config{
		Symbol:         "",
		Interval:       marketdata.IntervalFifteenMinutes,
		HistoryBars:    200,
		OrderQuantity:  1,
		MinNotional:    0,
		StateDir:       "live-state",
		BarCloseGrace:  5 * time.Second,
		SubmitRetries:  3,
		ReconcilePolls: 10,
		PollInterval:   2 * time.Second,
	}
}

// ParseConfig parses a YAML live loop config, filling unset fields with
// defaults.
func ParseConfig(content string) (Config, error) {
	config := DefaultConfig()

	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse live config", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks the config invariants.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid live config", err)
	}

	if _, err := marketdata.ParseInterval(string(c.Interval)); err != nil {
		return err
	}

	return nil
}
