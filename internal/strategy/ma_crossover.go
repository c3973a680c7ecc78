package strategy

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/meridian-quant/meridian-trading/internal/indicator"
	"github.com/meridian-quant/meridian-trading/internal/types"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
	"gopkg.in/yaml.v3"
)

// MACrossoverName is the registry name of the moving-average crossover
// strategy.
const MACrossoverName = "ma_crossover"

// MACrossoverConfig holds the immutable parameters of the strategy.
type MACrossoverConfig struct {
	// Fast is the short moving average window in bars.
	Fast int `yaml:"fast" json:"fast" jsonschema:"title=Fast Period,minimum=1" validate:"required,gt=0"`
	// Slow is the long moving average window in bars. Must be longer than
	// Fast.
	Slow int `yaml:"slow" json:"slow" jsonschema:"title=Slow Period,minimum=2" validate:"required,gtfield=Fast"`
}

// MACrossover goes long while the fast moving average is above the slow one
// and short while it is below.
type MACrossover struct {
	config MACrossoverConfig
}

// NewMACrossover creates an uninitialized moving-average crossover strategy.
func NewMACrossover() Strategy {
	return &MACrossover{}
}

// Name implements Strategy.
func (s *MACrossover) Name() string {
	return MACrossoverName
}

// Initialize implements Strategy.
func (s *MACrossover) Initialize(config string) error {
	var cfg MACrossoverConfig
	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse ma_crossover config", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid ma_crossover config", err)
	}

	s.config = cfg

	return nil
}

// OnBar implements Strategy.
func (s *MACrossover) OnBar(history []types.Bar) (types.Signal, error) {
	if err := requireHistory(history); err != nil {
		return types.Signal{}, err
	}

	closes := indicator.Closes(history)

	slow, err := indicator.SMA(closes, s.config.Slow)
	if err != nil {
		if errors.IsInsufficientDataError(err) {
			return signalAt(history, types.DirectionFlat, s.Name(), "warming up"), nil
		}

		return types.Signal{}, err
	}

	fast, err := indicator.SMA(closes, s.config.Fast)
	if err != nil {
		return types.Signal{}, err
	}

	switch {
	case fast > slow:
		return signalAt(history, types.DirectionLong, s.Name(),
			fmt.Sprintf("fast MA %.4f above slow MA %.4f", fast, slow)), nil
	case fast < slow:
		return signalAt(history, types.DirectionShort, s.Name(),
			fmt.Sprintf("fast MA %.4f below slow MA %.4f", fast, slow)), nil
	default:
		return signalAt(history, types.DirectionFlat, s.Name(), "moving averages equal"), nil
	}
}
