package strategy

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/meridian-quant/meridian-trading/internal/indicator"
	"github.com/meridian-quant/meridian-trading/internal/types"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
	"gopkg.in/yaml.v3"
)

// RSIThresholdName is the registry name of the RSI threshold strategy.
const RSIThresholdName = "rsi_threshold"

// RSIThresholdConfig holds the immutable parameters of the strategy.
type RSIThresholdConfig struct {
	Period int `yaml:"period" json:"period" jsonschema:"title=RSI Period,minimum=1" validate:"required,gt=0"`
	// Oversold is the RSI level below which the strategy goes long.
	Oversold float64 `yaml:"oversold" json:"oversold" jsonschema:"title=Oversold Threshold" validate:"required,gt=0"`
	// Overbought is the RSI level above which the strategy goes short.
	Overbought float64 `yaml:"overbought" json:"overbought" jsonschema:"title=Overbought Threshold" validate:"required,gtfield=Oversold,lt=100"`
}

// RSIThreshold goes long when RSI drops below the oversold threshold, short
// when it rises above the overbought threshold, and stays flat in between.
type RSIThreshold struct {
	config RSIThresholdConfig
}

// NewRSIThreshold creates an uninitialized RSI threshold strategy.
func NewRSIThreshold() Strategy {
	return &RSIThreshold{}
}

// Name implements Strategy.
func (s *RSIThreshold) Name() string {
	return RSIThresholdName
}

// Initialize implements Strategy.
func (s *RSIThreshold) Initialize(config string) error {
	var cfg RSIThresholdConfig
	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse rsi_threshold config", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid rsi_threshold config", err)
	}

	s.config = cfg

	return nil
}

// OnBar implements Strategy.
func (s *RSIThreshold) OnBar(history []types.Bar) (types.Signal, error) {
	if err := requireHistory(history); err != nil {
		return types.Signal{}, err
	}

	value, err := indicator.RSI(indicator.Closes(history), s.config.Period)
	if err != nil {
		if errors.IsInsufficientDataError(err) {
			return signalAt(history, types.DirectionFlat, s.Name(), "warming up"), nil
		}

		return types.Signal{}, err
	}

	switch {
	case value < s.config.Oversold:
		return signalAt(history, types.DirectionLong, s.Name(),
			fmt.Sprintf("RSI oversold (value=%.2f)", value)), nil
	case value > s.config.Overbought:
		return signalAt(history, types.DirectionShort, s.Name(),
			fmt.Sprintf("RSI overbought (value=%.2f)", value)), nil
	default:
		return signalAt(history, types.DirectionFlat, s.Name(),
			fmt.Sprintf("RSI neutral (value=%.2f)", value)), nil
	}
}
