package types

import (
	"time"

	"github.com/meridian-quant/meridian-trading/pkg/errors"
)

// Bar is a single OHLCV sample for a fixed time interval. Bars are immutable
// once produced; a bar sequence fed to any driver must be strictly
// increasing in time with no duplicate timestamps.
type Bar struct {
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// ValidateBarSequence checks that bars are strictly increasing in time with
// no duplicate timestamps and no non-positive prices. Violations are fatal
// input errors for whichever driver consumed the sequence.
func ValidateBarSequence(bars []Bar) error {
	for i, bar := range bars {
		if bar.Open <= 0 || bar.High <= 0 || bar.Low <= 0 || bar.Close <= 0 {
			return errors.Newf(errors.ErrCodeInputDataMalformed,
				"bar %d at %s has non-positive price", i, bar.Time.Format(time.RFC3339))
		}

		if i == 0 {
			continue
		}

		prev := bars[i-1]
		if bar.Time.Equal(prev.Time) {
			return errors.Newf(errors.ErrCodeInputDataDuplicate,
				"duplicate bar timestamp %s at index %d", bar.Time.Format(time.RFC3339), i)
		}

		if bar.Time.Before(prev.Time) {
			return errors.Newf(errors.ErrCodeInputDataOutOfOrder,
				"bar at index %d (%s) precedes previous bar (%s)",
				i, bar.Time.Format(time.RFC3339), prev.Time.Format(time.RFC3339))
		}
	}

	return nil
}
