package strategy

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/meridian-quant/meridian-trading/internal/indicator"
	"github.com/meridian-quant/meridian-trading/internal/types"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
	"gopkg.in/yaml.v3"
)

// MeanReversionName is the registry name of the mean reversion strategy.
const MeanReversionName = "mean_reversion"

// MeanReversionConfig holds the immutable parameters of the strategy.
type MeanReversionConfig struct {
	Window int `yaml:"window" json:"window" jsonschema:"title=Rolling Window,minimum=2" validate:"required,gt=1"`
	// ZScoreThreshold is the number of standard deviations the close must
	// deviate from the rolling mean before the strategy takes a position.
	ZScoreThreshold float64 `yaml:"z_score_threshold" json:"z_score_threshold" jsonschema:"title=Z-Score Threshold" validate:"required,gt=0"`
}

// MeanReversion goes long when the close falls more than the configured
// number of standard deviations below its rolling mean, short when it rises
// that far above, and stays flat in between. The bands are the Bollinger
// bands with the threshold as the multiplier, so the band comparison is the
// z-score comparison.
type MeanReversion struct {
	config MeanReversionConfig
}

// NewMeanReversion creates an uninitialized mean reversion strategy.
func NewMeanReversion() Strategy {
	return &MeanReversion{}
}

// Name implements Strategy.
func (s *MeanReversion) Name() string {
	return MeanReversionName
}

// Initialize implements Strategy.
func (s *MeanReversion) Initialize(config string) error {
	var cfg MeanReversionConfig
	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to parse mean_reversion config", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid mean_reversion config", err)
	}

	s.config = cfg

	return nil
}

// OnBar implements Strategy.
func (s *MeanReversion) OnBar(history []types.Bar) (types.Signal, error) {
	if err := requireHistory(history); err != nil {
		return types.Signal{}, err
	}

	closes := indicator.Closes(history)

	bands, err := indicator.Bollinger(closes, s.config.Window, s.config.ZScoreThreshold)
	if err != nil {
		if errors.IsInsufficientDataError(err) {
			return signalAt(history, types.DirectionFlat, s.Name(), "warming up"), nil
		}

		return types.Signal{}, err
	}

	// A zero-variance window collapses all bands onto the close; the
	// strict comparisons keep the strategy flat in that case.
	close := closes[len(closes)-1]

	switch {
	case close < bands.Lower:
		return signalAt(history, types.DirectionLong, s.Name(),
			fmt.Sprintf("close %.2f below lower band %.2f", close, bands.Lower)), nil
	case close > bands.Upper:
		return signalAt(history, types.DirectionShort, s.Name(),
			fmt.Sprintf("close %.2f above upper band %.2f", close, bands.Upper)), nil
	default:
		return signalAt(history, types.DirectionFlat, s.Name(),
			fmt.Sprintf("close %.2f within bands [%.2f, %.2f]", close, bands.Lower, bands.Upper)), nil
	}
}
