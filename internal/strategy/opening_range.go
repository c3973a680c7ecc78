package strategy

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/meridian-quant/meridian-trading/internal/indicator"
	"github.com/meridian-quant/meridian-trading/internal/types"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
	"gopkg.in/yaml.v3"
)

// OpeningRangeName is the registry name of the opening-range breakout
// strategy.
const OpeningRangeName = "opening_range"

// OpeningRangeConfig holds the immutable parameters of the strategy.
type OpeningRangeConfig struct {
	// LookbackBars is how many bars at the start of each UTC session define
	// the opening range.
	LookbackBars int `yaml:"lookback_bars" json:"lookback_bars" jsonschema:"title=Opening Range Bars,minimum=1" validate:"required,gt=0"`
	ATRPeriod    int `yaml:"atr_period" json:"atr_period" jsonschema:"title=ATR Period,minimum=1" validate:"required,gt=0"`
	// ATRMultiplier scales the ATR buffer added to the range before a
	// breakout counts.
	ATRMultiplier float64 `yaml:"atr_multiplier" json:"atr_multiplier" jsonschema:"title=ATR Multiplier" validate:"gte=0"`
}

// OpeningRange goes long when the close breaks above the session's opening
// range plus an ATR buffer, and short when it breaks below the range minus
// the buffer.
type OpeningRange struct {
	config OpeningRangeConfig
}

// NewOpeningRange creates an uninitialized opening-range breakout strategy.
func NewOpeningRange() Strategy {
	return &OpeningRange{}
}

// Name implements Strategy.
func (s *OpeningRange) Name() string {
	return OpeningRangeName
}

// Initialize implements Strategy.
func (s *OpeningRange) Initialize(config string) error {
	var cfg OpeningRangeConfig
	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse opening_range config", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid opening_range config", err)
	}

	s.config = cfg

	return nil
}

// OnBar implements Strategy.
func (s *OpeningRange) OnBar(history []types.Bar) (types.Signal, error) {
	if err := requireHistory(history); err != nil {
		return types.Signal{}, err
	}

	current := history[len(history)-1]

	// Locate the first bar of the current UTC session.
	sessionStart := len(history) - 1
	currentDate := current.Time.UTC().Truncate(24 * 3600e9)

	for sessionStart > 0 {
		prev := history[sessionStart-1]
		if !prev.Time.UTC().Truncate(24 * 3600e9).Equal(currentDate) {
			break
		}

		sessionStart--
	}

	session := history[sessionStart:]
	if len(session) <= s.config.LookbackBars {
		// Still inside (or immediately after) the opening range.
		return signalAt(history, types.DirectionFlat, s.Name(), "opening range forming"), nil
	}

	openingRange := session[:s.config.LookbackBars]

	upper := openingRange[0].High
	lower := openingRange[0].Low

	for _, bar := range openingRange[1:] {
		if bar.High > upper {
			upper = bar.High
		}

		if bar.Low < lower {
			lower = bar.Low
		}
	}

	buffer := 0.0

	if s.config.ATRMultiplier > 0 {
		atr, err := indicator.ATR(history, s.config.ATRPeriod)
		if err != nil {
			if errors.IsInsufficientDataError(err) {
				return signalAt(history, types.DirectionFlat, s.Name(), "warming up"), nil
			}

			return types.Signal{}, err
		}

		buffer = s.config.ATRMultiplier * atr
	}

	switch {
	case current.Close > upper+buffer:
		return signalAt(history, types.DirectionLong, s.Name(),
			fmt.Sprintf("close %.4f broke above range high %.4f", current.Close, upper)), nil
	case current.Close < lower-buffer:
		return signalAt(history, types.DirectionShort, s.Name(),
			fmt.Sprintf("close %.4f broke below range low %.4f", current.Close, lower)), nil
	default:
		return signalAt(history, types.DirectionFlat, s.Name(), "inside opening range"), nil
	}
}
