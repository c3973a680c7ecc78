// Package indicator provides stateless transforms over a price series.
// Every function is a pure function of its inputs: given the same history
// it returns the same value, which is what lets the backtest simulator and
// the live execution loop share strategy logic.
package indicator

import (
	"math"

	"github.com/meridian-quant/meridian-trading/internal/types"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
)

// Closes extracts the close prices of a bar history, oldest first.
func Closes(bars []types.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}

	return closes
}

// SMA returns the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be positive, got %d", period)
	}

	if len(values) < period {
		return 0, errors.NewInsufficientDataErrorf(period, len(values), "",
			"SMA requires %d values, have %d", period, len(values))
	}

	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}

	return sum / float64(period), nil
}

// EMASeries returns the exponential moving average series of the values.
// The first period-1 entries are zero; the series is seeded with the SMA of
// the first period values.
func EMASeries(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be positive, got %d", period)
	}

	if len(values) < period {
		return nil, errors.NewInsufficientDataErrorf(period, len(values), "",
			"EMA requires %d values, have %d", period, len(values))
	}

	series := make([]float64, len(values))
	multiplier := 2.0 / (float64(period) + 1.0)

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}

	series[period-1] = seed / float64(period)

	for i := period; i < len(values); i++ {
		series[i] = (values[i]-series[i-1])*multiplier + series[i-1]
	}

	return series, nil
}

// EMA returns the latest exponential moving average of the values.
func EMA(values []float64, period int) (float64, error) {
	series, err := EMASeries(values, period)
	if err != nil {
		return 0, err
	}

	return series[len(series)-1], nil
}

// RSI returns the relative strength index over the last period price
// changes, using rolling-mean average gains and losses. 100 when there are
// no losses in the window.
func RSI(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be positive, got %d", period)
	}

	if len(values) < period+1 {
		return 0, errors.NewInsufficientDataErrorf(period+1, len(values), "",
			"RSI requires %d values, have %d", period+1, len(values))
	}

	window := values[len(values)-period-1:]

	avgGain := 0.0
	avgLoss := 0.0

	for i := 1; i < len(window); i++ {
		change := window[i] - window[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)

	if avgLoss == 0 {
		return 100, nil
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs)), nil
}

// MACDValue holds the MACD line, its signal line, and the histogram.
type MACDValue struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD returns the moving average convergence divergence of the values with
// the given fast, slow, and signal periods.
func MACD(values []float64, fastPeriod, slowPeriod, signalPeriod int) (MACDValue, error) {
	if fastPeriod <= 0 || slowPeriod <= 0 || signalPeriod <= 0 {
		return MACDValue{}, errors.New(errors.ErrCodeInvalidPeriod, "MACD periods must be positive")
	}

	if fastPeriod >= slowPeriod {
		return MACDValue{}, errors.Newf(errors.ErrCodeInvalidParameter,
			"fast period %d must be shorter than slow period %d", fastPeriod, slowPeriod)
	}

	required := slowPeriod + signalPeriod - 1
	if len(values) < required {
		return MACDValue{}, errors.NewInsufficientDataErrorf(required, len(values), "",
			"MACD requires %d values, have %d", required, len(values))
	}

	fastSeries, err := EMASeries(values, fastPeriod)
	if err != nil {
		return MACDValue{}, err
	}

	slowSeries, err := EMASeries(values, slowPeriod)
	if err != nil {
		return MACDValue{}, err
	}

	macdSeries := make([]float64, 0, len(values)-slowPeriod+1)
	for i := slowPeriod - 1; i < len(values); i++ {
		macdSeries = append(macdSeries, fastSeries[i]-slowSeries[i])
	}

	signalSeries, err := EMASeries(macdSeries, signalPeriod)
	if err != nil {
		return MACDValue{}, err
	}

	macd := macdSeries[len(macdSeries)-1]
	signal := signalSeries[len(signalSeries)-1]

	return MACDValue{
		MACD:      macd,
		Signal:    signal,
		Histogram: macd - signal,
	}, nil
}

// BollingerValue holds the three Bollinger bands.
type BollingerValue struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger returns the Bollinger bands over the last period values with
// the given standard deviation multiplier.
func Bollinger(values []float64, period int, stdDevMultiplier float64) (BollingerValue, error) {
	middle, err := SMA(values, period)
	if err != nil {
		return BollingerValue{}, err
	}

	window := values[len(values)-period:]

	variance := 0.0
	for _, v := range window {
		diff := v - middle
		variance += diff * diff
	}

	stdDev := math.Sqrt(variance / float64(period))

	return BollingerValue{
		Upper:  middle + stdDevMultiplier*stdDev,
		Middle: middle,
		Lower:  middle - stdDevMultiplier*stdDev,
	}, nil
}

// ATR returns the average true range over the last period bars.
func ATR(bars []types.Bar, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be positive, got %d", period)
	}

	if len(bars) < period+1 {
		return 0, errors.NewInsufficientDataErrorf(period+1, len(bars), "",
			"ATR requires %d bars, have %d", period+1, len(bars))
	}

	window := bars[len(bars)-period-1:]

	sum := 0.0
	for i := 1; i < len(window); i++ {
		highLow := window[i].High - window[i].Low
		highClose := math.Abs(window[i].High - window[i-1].Close)
		lowClose := math.Abs(window[i].Low - window[i-1].Close)
		sum += math.Max(highLow, math.Max(highClose, lowClose))
	}

	return sum / float64(period), nil
}
