package strategy

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/meridian-quant/meridian-trading/internal/indicator"
	"github.com/meridian-quant/meridian-trading/internal/types"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
	"gopkg.in/yaml.v3"
)

// MACDCrossName is the registry name of the MACD crossover strategy.
const MACDCrossName = "macd_cross"

// MACDCrossConfig holds the immutable parameters of the strategy.
type MACDCrossConfig struct {
	FastPeriod   int `yaml:"fast_period" json:"fast_period" jsonschema:"title=Fast EMA Period,minimum=1" validate:"required,gt=0"`
	SlowPeriod   int `yaml:"slow_period" json:"slow_period" jsonschema:"title=Slow EMA Period,minimum=2" validate:"required,gtfield=FastPeriod"`
	SignalPeriod int `yaml:"signal_period" json:"signal_period" jsonschema:"title=Signal EMA Period,minimum=1" validate:"required,gt=0"`
}

// MACDCross goes long while the MACD line is above its signal line and
// short while it is below.
type MACDCross struct {
	config MACDCrossConfig
}

// NewMACDCross creates an uninitialized MACD crossover strategy.
func NewMACDCross() Strategy {
	return &MACDCross{}
}

// Name implements Strategy.
func (s *MACDCross) Name() string {
	return MACDCrossName
}

// Initialize implements Strategy.
func (s *MACDCross) Initialize(config string) error {
	var cfg MACDCrossConfig
	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse macd_cross config", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid macd_cross config", err)
	}

	s.config = cfg

	return nil
}

// OnBar implements Strategy.
func (s *MACDCross) OnBar(history []types.Bar) (types.Signal, error) {
	if err := requireHistory(history); err != nil {
		return types.Signal{}, err
	}

	value, err := indicator.MACD(indicator.Closes(history),
		s.config.FastPeriod, s.config.SlowPeriod, s.config.SignalPeriod)
	if err != nil {
		if errors.IsInsufficientDataError(err) {
			return signalAt(history, types.DirectionFlat, s.Name(), "warming up"), nil
		}

		return types.Signal{}, err
	}

	switch {
	case value.Histogram > 0:
		return signalAt(history, types.DirectionLong, s.Name(),
			fmt.Sprintf("MACD %.4f above signal %.4f", value.MACD, value.Signal)), nil
	case value.Histogram < 0:
		return signalAt(history, types.DirectionShort, s.Name(),
			fmt.Sprintf("MACD %.4f below signal %.4f", value.MACD, value.Signal)), nil
	default:
		return signalAt(history, types.DirectionFlat, s.Name(), "MACD on signal line"), nil
	}
}
