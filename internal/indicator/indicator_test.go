package indicator

import (
	"testing"
	"time"

	"github.com/meridian-quant/meridian-trading/internal/types"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type IndicatorTestSuite struct {
	suite.Suite
}

func TestIndicatorSuite(t *testing.T) {
	suite.Run(t, new(IndicatorTestSuite))
}

func (suite *IndicatorTestSuite) TestSMA() {
	value, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
	suite.NoError(err)
	suite.InDelta(4.0, value, 1e-9)
}

func (suite *IndicatorTestSuite) TestSMAInsufficientData() {
	_, err := SMA([]float64{1, 2}, 3)
	suite.Error(err)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *IndicatorTestSuite) TestSMAInvalidPeriod() {
	_, err := SMA([]float64{1, 2, 3}, 0)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))
}

func (suite *IndicatorTestSuite) TestEMASeries() {
	series, err := EMASeries([]float64{10, 10, 10, 10, 20}, 3)
	suite.NoError(err)
	suite.Len(series, 5)
	// SMA seed over first 3 values.
	suite.InDelta(10.0, series[2], 1e-9)
	suite.InDelta(10.0, series[3], 1e-9)
	// multiplier = 2/(3+1) = 0.5 -> (20-10)*0.5 + 10 = 15
	suite.InDelta(15.0, series[4], 1e-9)
}

func (suite *IndicatorTestSuite) TestEMAConvergesAboveSMAInUptrend() {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	ema, err := EMA(values, 5)
	suite.NoError(err)

	sma, err := SMA(values, 5)
	suite.NoError(err)
	suite.Greater(ema, sma)
}

func (suite *IndicatorTestSuite) TestRSIAllGains() {
	value, err := RSI([]float64{1, 2, 3, 4, 5}, 4)
	suite.NoError(err)
	suite.InDelta(100.0, value, 1e-9)
}

func (suite *IndicatorTestSuite) TestRSIBalanced() {
	// Alternating +1/-1 changes: avg gain == avg loss -> RSI 50.
	value, err := RSI([]float64{10, 11, 10, 11, 10}, 4)
	suite.NoError(err)
	suite.InDelta(50.0, value, 1e-9)
}

func (suite *IndicatorTestSuite) TestRSIInsufficientData() {
	_, err := RSI([]float64{1, 2, 3}, 14)
	suite.Error(err)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *IndicatorTestSuite) TestMACDFlatSeriesIsZero() {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100
	}

	value, err := MACD(values, 12, 26, 9)
	suite.NoError(err)
	suite.InDelta(0.0, value.MACD, 1e-9)
	suite.InDelta(0.0, value.Signal, 1e-9)
	suite.InDelta(0.0, value.Histogram, 1e-9)
}

func (suite *IndicatorTestSuite) TestMACDPositiveInUptrend() {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100 + float64(i)
	}

	value, err := MACD(values, 12, 26, 9)
	suite.NoError(err)
	suite.Greater(value.MACD, 0.0)
}

func (suite *IndicatorTestSuite) TestMACDFastMustBeShorter() {
	values := make([]float64, 60)
	_, err := MACD(values, 26, 12, 9)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *IndicatorTestSuite) TestBollinger() {
	value, err := Bollinger([]float64{10, 10, 10, 10}, 4, 2)
	suite.NoError(err)
	suite.InDelta(10.0, value.Middle, 1e-9)
	suite.InDelta(10.0, value.Upper, 1e-9)
	suite.InDelta(10.0, value.Lower, 1e-9)
}

func (suite *IndicatorTestSuite) TestBollingerSpread() {
	value, err := Bollinger([]float64{8, 12, 8, 12}, 4, 2)
	suite.NoError(err)
	suite.InDelta(10.0, value.Middle, 1e-9)
	suite.InDelta(14.0, value.Upper, 1e-9)
	suite.InDelta(6.0, value.Lower, 1e-9)
}

func (suite *IndicatorTestSuite) TestATR() {
	bars := []types.Bar{
		{Time: time.Unix(0, 0), Open: 10, High: 12, Low: 9, Close: 11},
		{Time: time.Unix(60, 0), Open: 11, High: 13, Low: 10, Close: 12},
		{Time: time.Unix(120, 0), Open: 12, High: 14, Low: 11, Close: 13},
	}

	// TR per bar: max(high-low, |high-prevClose|, |low-prevClose|) = 3, 3
	value, err := ATR(bars, 2)
	suite.NoError(err)
	suite.InDelta(3.0, value, 1e-9)
}

func (suite *IndicatorTestSuite) TestCloses() {
	bars := []types.Bar{
		{Close: 100}, {Close: 110},
	}
	suite.Equal([]float64{100, 110}, Closes(bars))
}
