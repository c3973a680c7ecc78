package types

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type ReportTestSuite struct {
	suite.Suite
}

func TestReportSuite(t *testing.T) {
	suite.Run(t, new(ReportTestSuite))
}

func (suite *ReportTestSuite) TestMarshalNullableRatios() {
	report := PerformanceReport{
		ID:             "run-1",
		Timestamp:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Symbol:         "BTCUSDT",
		StrategyName:   "ma_crossover",
		InitialCapital: 50000,
		FinalEquity:    50000,
		SharpeRatio:    optional.None[float64](),
		SortinoRatio:   optional.Some(1.25),
	}

	data, err := yaml.Marshal(report)
	suite.NoError(err)

	var decoded map[string]any

	suite.NoError(yaml.Unmarshal(data, &decoded))
	suite.Nil(decoded["sharpe_ratio"])
	suite.InDelta(1.25, decoded["sortino_ratio"].(float64), 1e-9)
}

func (suite *ReportTestSuite) TestWritePerformanceReport() {
	dir := suite.T().TempDir()
	path := filepath.Join(dir, "report.yaml")

	report := PerformanceReport{
		ID:           "run-2",
		Timestamp:    time.Now(),
		Symbol:       "ETHUSDT",
		StrategyName: "rsi",
		TotalReturn:  0.12,
		TradeCount:   3,
	}

	suite.NoError(WritePerformanceReport(path, report))

	data, err := os.ReadFile(path)
	suite.NoError(err)
	suite.Contains(string(data), "total_return: 0.12")
	suite.Contains(string(data), "trade_count: 3")
}

func (suite *ReportTestSuite) TestTradeIsWin() {
	suite.True(Trade{PnL: 0.5}.IsWin())
	suite.False(Trade{PnL: 0}.IsWin())
	suite.False(Trade{PnL: -0.5}.IsWin())
}
