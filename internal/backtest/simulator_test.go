package backtest

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/meridian-quant/meridian-trading/internal/strategy"
	"github.com/meridian-quant/meridian-trading/internal/types"
	"github.com/meridian-quant/meridian-trading/mocks"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// scriptedStrategy returns a fixed direction per bar index, failing at a
// chosen index when failAt is non-negative.
type scriptedStrategy struct {
	directions []types.Direction
	failAt     int
}

func newScripted(directions ...types.Direction) *scriptedStrategy {
	return &scriptedStrategy{directions: directions, failAt: -1}
}

func (s *scriptedStrategy) Name() string {
	return "scripted"
}

func (s *scriptedStrategy) Initialize(config string) error {
	return nil
}

func (s *scriptedStrategy) OnBar(history []types.Bar) (types.Signal, error) {
	index := len(history) - 1
	if s.failAt >= 0 && index == s.failAt {
		return types.Signal{}, fmt.Errorf("scripted failure at index %d", index)
	}

	direction := types.DirectionFlat
	if index < len(s.directions) {
		direction = s.directions[index]
	}

	bar := history[index]

	return types.Signal{
		Time:      bar.Time,
		Symbol:    bar.Symbol,
		Direction: direction,
		Name:      s.Name(),
	}, nil
}

type SimulatorTestSuite struct {
	suite.Suite
}

func TestSimulatorSuite(t *testing.T) {
	suite.Run(t, new(SimulatorTestSuite))
}

// frictionlessConfig disables fees and slippage so fill arithmetic can be
// checked exactly.
func frictionlessConfig() Config {
	config := DefaultConfig()
	config.FeeBps = 0
	config.SlippageBps = 0

	return config
}

func (suite *SimulatorTestSuite) newSimulator(config Config) *Simulator {
	simulator, err := NewSimulator(config, nil)
	suite.Require().NoError(err)

	return simulator
}

func simBar(index int, open, close float64) types.Bar {
	return types.Bar{
		Symbol: "BTCUSDT",
		Time:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).Add(time.Duration(index) * 24 * time.Hour),
		Open:   open,
		High:   math.Max(open, close),
		Low:    math.Min(open, close),
		Close:  close,
		Volume: 1000,
	}
}

// fourBars is the canonical round-trip fixture: a long entered on the first
// bar's signal fills at the second bar's open (102) and a flat signal on
// the third bar exits at the fourth bar's open (112).
func fourBars() []types.Bar {
	return []types.Bar{
		simBar(0, 100, 100),
		simBar(1, 102, 110),
		simBar(2, 108, 105),
		simBar(3, 112, 120),
	}
}

func (suite *SimulatorTestSuite) TestLongRoundTripNextBarOpen() {
	simulator := suite.newSimulator(frictionlessConfig())
	strat := newScripted(types.DirectionLong, types.DirectionLong, types.DirectionFlat, types.DirectionFlat)

	result, err := simulator.Run(strat, fourBars())
	suite.Require().NoError(err)

	suite.Require().Len(result.EquityCurve, 4)
	suite.InDelta(50000.0, result.EquityCurve[0].Equity, 1e-9)
	suite.InDelta(50008.0, result.EquityCurve[1].Equity, 1e-9)
	suite.InDelta(50003.0, result.EquityCurve[2].Equity, 1e-9)
	suite.InDelta(50010.0, result.EquityCurve[3].Equity, 1e-9)

	suite.InDelta(50010.0, result.Report.FinalEquity, 1e-9)
	suite.InDelta((112.0-102.0)/50000.0, result.Report.TotalReturn, 1e-12)

	suite.Require().Len(result.Report.Trades, 1)
	trade := result.Report.Trades[0]
	suite.Equal(types.DirectionLong, trade.Direction)
	suite.InDelta(102.0, trade.EntryPrice, 1e-9)
	suite.InDelta(112.0, trade.ExitPrice, 1e-9)
	suite.InDelta(10.0, trade.PnL, 1e-9)
	suite.Equal(fourBars()[1].Time, trade.EntryTime)
	suite.Equal(fourBars()[3].Time, trade.ExitTime)

	suite.Equal(1, result.Report.TradeCount)
	suite.Equal(1, result.Report.WinningTrades)
	suite.InDelta(1.0, result.Report.WinRate, 1e-12)
}

func (suite *SimulatorTestSuite) TestShortRoundTrip() {
	simulator := suite.newSimulator(frictionlessConfig())
	strat := newScripted(types.DirectionShort, types.DirectionShort, types.DirectionFlat, types.DirectionFlat)

	result, err := simulator.Run(strat, fourBars())
	suite.Require().NoError(err)

	suite.InDelta(49990.0, result.Report.FinalEquity, 1e-9)

	suite.Require().Len(result.Report.Trades, 1)
	trade := result.Report.Trades[0]
	suite.Equal(types.DirectionShort, trade.Direction)
	suite.InDelta(-10.0, trade.PnL, 1e-9)
	suite.Equal(1, result.Report.LosingTrades)
	suite.InDelta(0.0, result.Report.WinRate, 1e-12)
}

func (suite *SimulatorTestSuite) TestReversalClosesAndReopens() {
	simulator := suite.newSimulator(frictionlessConfig())
	strat := newScripted(types.DirectionLong, types.DirectionShort, types.DirectionFlat, types.DirectionFlat)

	result, err := simulator.Run(strat, fourBars())
	suite.Require().NoError(err)

	// Buy 1 at 102, sell 2 at 108 (closes the long, opens a short), buy 1
	// at 112 to flatten.
	suite.Require().Len(result.Fills, 3)
	suite.InDelta(2.0, result.Fills[1].Quantity, 1e-9)

	suite.Require().Len(result.Report.Trades, 2)
	suite.InDelta(6.0, result.Report.Trades[0].PnL, 1e-9)
	suite.InDelta(-4.0, result.Report.Trades[1].PnL, 1e-9)
	suite.InDelta(108.0, result.Report.Trades[1].EntryPrice, 1e-9)

	suite.InDelta(50002.0, result.Report.FinalEquity, 1e-9)
}

func (suite *SimulatorTestSuite) TestSameBarCloseFillTiming() {
	config := frictionlessConfig()
	config.FillTiming = FillTimingSameBarClose
	simulator := suite.newSimulator(config)

	strat := newScripted(types.DirectionLong, types.DirectionLong, types.DirectionFlat, types.DirectionFlat)

	result, err := simulator.Run(strat, fourBars())
	suite.Require().NoError(err)

	// Entry at the first bar's close (100), exit at the third bar's close
	// (105): one bar earlier on each leg than next-bar-open.
	suite.Require().Len(result.Fills, 2)
	suite.InDelta(100.0, result.Fills[0].Price, 1e-9)
	suite.InDelta(105.0, result.Fills[1].Price, 1e-9)
	suite.InDelta(50005.0, result.Report.FinalEquity, 1e-9)
}

func (suite *SimulatorTestSuite) TestOpenPositionLiquidatedAtEnd() {
	simulator := suite.newSimulator(frictionlessConfig())
	strat := newScripted(types.DirectionLong, types.DirectionLong, types.DirectionLong, types.DirectionLong)

	result, err := simulator.Run(strat, fourBars())
	suite.Require().NoError(err)

	// Entry at 102, forced exit at the final close 120.
	suite.Require().Len(result.Report.Trades, 1)
	suite.InDelta(120.0, result.Report.Trades[0].ExitPrice, 1e-9)
	suite.InDelta(18.0, result.Report.Trades[0].PnL, 1e-9)
	suite.InDelta(50018.0, result.Report.FinalEquity, 1e-9)
	suite.InDelta(50018.0, result.EquityCurve[3].Equity, 1e-9)
}

func (suite *SimulatorTestSuite) TestFinalBarSignalNotFilled() {
	simulator := suite.newSimulator(frictionlessConfig())
	strat := newScripted(types.DirectionFlat, types.DirectionFlat, types.DirectionFlat, types.DirectionLong)

	result, err := simulator.Run(strat, fourBars())
	suite.Require().NoError(err)

	suite.Empty(result.Fills)
	suite.Equal(0, result.Report.TradeCount)
	suite.InDelta(50000.0, result.Report.FinalEquity, 1e-9)
}

func (suite *SimulatorTestSuite) TestEmptyInputYieldsEmptyReport() {
	simulator := suite.newSimulator(frictionlessConfig())

	result, err := simulator.Run(newScripted(), nil)
	suite.Require().NoError(err)

	suite.Empty(result.EquityCurve)
	suite.Empty(result.Fills)
	suite.Equal(0, result.Report.TradeCount)
	suite.InDelta(0.0, result.Report.WinRate, 1e-12)
	suite.InDelta(50000.0, result.Report.FinalEquity, 1e-9)
	suite.InDelta(0.0, result.Report.TotalReturn, 1e-12)
	suite.True(result.Report.SharpeRatio.IsNone())
}

func (suite *SimulatorTestSuite) TestZeroTradesZeroWinRate() {
	simulator := suite.newSimulator(frictionlessConfig())
	strat := newScripted(types.DirectionFlat, types.DirectionFlat, types.DirectionFlat, types.DirectionFlat)

	result, err := simulator.Run(strat, fourBars())
	suite.Require().NoError(err)

	suite.Equal(0, result.Report.TradeCount)
	suite.InDelta(0.0, result.Report.WinRate, 1e-12)

	for _, point := range result.EquityCurve {
		suite.InDelta(50000.0, point.Equity, 1e-9)
	}
}

func (suite *SimulatorTestSuite) TestFeesAndSlippageReduceEquity() {
	frictionless := suite.newSimulator(frictionlessConfig())

	config := frictionlessConfig()
	config.FeeBps = 10
	config.SlippageBps = 5
	withFriction := suite.newSimulator(config)

	directions := []types.Direction{types.DirectionLong, types.DirectionLong, types.DirectionFlat, types.DirectionFlat}

	freeResult, err := frictionless.Run(newScripted(directions...), fourBars())
	suite.Require().NoError(err)

	paidResult, err := withFriction.Run(newScripted(directions...), fourBars())
	suite.Require().NoError(err)

	suite.Less(paidResult.Report.FinalEquity, freeResult.Report.FinalEquity)
	suite.Greater(paidResult.Report.TotalFees, 0.0)
}

func (suite *SimulatorTestSuite) TestSlippageMovesPriceAgainstOrder() {
	config := frictionlessConfig()
	config.SlippageBps = 100
	simulator := suite.newSimulator(config)

	strat := newScripted(types.DirectionLong, types.DirectionFlat, types.DirectionFlat, types.DirectionFlat)

	result, err := simulator.Run(strat, fourBars())
	suite.Require().NoError(err)

	suite.Require().Len(result.Fills, 2)
	suite.InDelta(102.0*1.01, result.Fills[0].Price, 1e-9)
	suite.InDelta(108.0*0.99, result.Fills[1].Price, 1e-9)
}

func (suite *SimulatorTestSuite) TestStrategyErrorAbortsWithBarTimestamp() {
	simulator := suite.newSimulator(frictionlessConfig())

	strat := newScripted(types.DirectionLong, types.DirectionLong, types.DirectionLong, types.DirectionLong)
	strat.failAt = 2

	bars := fourBars()

	_, err := simulator.Run(strat, bars)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyRuntimeError))
	suite.Contains(err.Error(), bars[2].Time.Format(time.RFC3339))
}

func (suite *SimulatorTestSuite) TestOutOfOrderBarsFatal() {
	simulator := suite.newSimulator(frictionlessConfig())

	bars := fourBars()
	bars[1], bars[2] = bars[2], bars[1]

	_, err := simulator.Run(newScripted(), bars)
	suite.Require().Error(err)
	suite.True(errors.IsInputData(err))
}

func (suite *SimulatorTestSuite) TestNilStrategyRejected() {
	simulator := suite.newSimulator(frictionlessConfig())

	_, err := simulator.Run(nil, fourBars())
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestInitFailed))
}

// TestDeterministicReplay runs the same strategy over the same bars twice
// with fresh instances and expects identical outcomes.
func (suite *SimulatorTestSuite) TestDeterministicReplay() {
	bars := make([]types.Bar, 0, 60)
	for i := 0; i < 60; i++ {
		price := 100 + 10*math.Sin(float64(i)/5)
		bars = append(bars, simBar(i, price, price+0.5))
	}

	registry := strategy.NewRegistry()
	config := DefaultConfig()

	run := func() Result {
		strat, err := registry.Create(strategy.MACrossoverName, "fast: 5\nslow: 20\n")
		suite.Require().NoError(err)

		result, err := suite.newSimulator(config).Run(strat, bars)
		suite.Require().NoError(err)

		return result
	}

	first := run()
	second := run()

	suite.Equal(first.EquityCurve, second.EquityCurve)
	suite.Equal(first.Report.FinalEquity, second.Report.FinalEquity)
	suite.Equal(first.Report.TotalReturn, second.Report.TotalReturn)
	suite.Equal(first.Report.MaxDrawdown, second.Report.MaxDrawdown)
	suite.Equal(first.Report.SharpeRatio, second.Report.SharpeRatio)
	suite.Equal(first.Report.TradeCount, second.Report.TradeCount)
	suite.Equal(first.Report.WinRate, second.Report.WinRate)
	suite.Greater(first.Report.TradeCount, 0)
}

func (suite *SimulatorTestSuite) TestGeneratedSeries() {
	bars := mocks.Generate10K("BTCUSDT")

	registry := strategy.NewRegistry()

	strat, err := registry.Create(strategy.MACrossoverName, "fast: 10\nslow: 50\n")
	suite.Require().NoError(err)

	result, err := suite.newSimulator(DefaultConfig()).Run(strat, bars)
	suite.Require().NoError(err)

	suite.Len(result.EquityCurve, len(bars))
	suite.Equal(result.Report.TradeCount, result.Report.WinningTrades+result.Report.LosingTrades)
	suite.GreaterOrEqual(result.Report.MaxDrawdown, 0.0)
}

func BenchmarkSimulatorRun(b *testing.B) {
	bars := mocks.Generate10K("BTCUSDT")
	registry := strategy.NewRegistry()
	config := DefaultConfig()

	simulator, err := NewSimulator(config, nil)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		strat, err := registry.Create(strategy.MACrossoverName, "fast: 10\nslow: 50\n")
		if err != nil {
			b.Fatal(err)
		}

		if _, err := simulator.Run(strat, bars); err != nil {
			b.Fatal(err)
		}
	}
}
