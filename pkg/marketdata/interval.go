// Package marketdata fetches historical and latest bars from external
// providers and validates them before any driver sees them.
package marketdata

import (
	"time"

	"github.com/meridian-quant/meridian-trading/pkg/errors"
	"github.com/polygon-io/client-go/rest/models"
)

// Interval is a bar interval in the provider-neutral shorthand shared by
// Binance-style APIs.
type Interval string

const (
	IntervalOneMinute      Interval = "1m"
	IntervalThreeMinutes   Interval = "3m"
	IntervalFiveMinutes    Interval = "5m"
	IntervalFifteenMinutes Interval = "15m"
	IntervalThirtyMinutes  Interval = "30m"
	IntervalOneHour        Interval = "1h"
	IntervalTwoHours       Interval = "2h"
	IntervalFourHours      Interval = "4h"
	IntervalSixHours       Interval = "6h"
	IntervalTwelveHours    Interval = "12h"
	IntervalOneDay         Interval = "1d"
	IntervalOneWeek        Interval = "1w"
)

// ParseInterval validates an interval string.
func ParseInterval(value string) (Interval, error) {
	interval := Interval(value)
	if interval.Duration() == 0 {
		return "", errors.Newf(errors.ErrCodeInvalidInterval, "unsupported bar interval: %s", value)
	}

	return interval, nil
}

// Duration returns the bar length, or zero for an unknown interval.
func (i Interval) Duration() time.Duration {
	switch i {
	case IntervalOneMinute:
		return time.Minute
	case IntervalThreeMinutes:
		return 3 * time.Minute
	case IntervalFiveMinutes:
		return 5 * time.Minute
	case IntervalFifteenMinutes:
		return 15 * time.Minute
	case IntervalThirtyMinutes:
		return 30 * time.Minute
	case IntervalOneHour:
		return time.Hour
	case IntervalTwoHours:
		return 2 * time.Hour
	case IntervalFourHours:
		return 4 * time.Hour
	case IntervalSixHours:
		return 6 * time.Hour
	case IntervalTwelveHours:
		return 12 * time.Hour
	case IntervalOneDay:
		return 24 * time.Hour
	case IntervalOneWeek:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// PeriodsPerYear returns the annualization factor for the interval,
// assuming continuous trading.
func (i Interval) PeriodsPerYear() float64 {
	duration := i.Duration()
	if duration == 0 {
		return 0
	}

	return float64(365*24*time.Hour) / float64(duration)
}

// Multiplier returns the Polygon aggregate multiplier for the interval.
func (i Interval) Multiplier() int {
	switch i {
	case IntervalThreeMinutes:
		return 3
	case IntervalFiveMinutes:
		return 5
	case IntervalFifteenMinutes:
		return 15
	case IntervalThirtyMinutes:
		return 30
	case IntervalTwoHours:
		return 2
	case IntervalFourHours:
		return 4
	case IntervalSixHours:
		return 6
	case IntervalTwelveHours:
		return 12
	default:
		return 1
	}
}

// Timespan returns the Polygon aggregate timespan unit for the interval.
func (i Interval) Timespan() models.Timespan {
	switch i {
	case IntervalOneMinute, IntervalThreeMinutes, IntervalFiveMinutes,
		IntervalFifteenMinutes, IntervalThirtyMinutes:
		return models.Minute
	case IntervalOneHour, IntervalTwoHours, IntervalFourHours,
		IntervalSixHours, IntervalTwelveHours:
		return models.Hour
	case IntervalOneWeek:
		return models.Week
	default:
		return models.Day
	}
}
