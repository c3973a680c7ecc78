package backtest

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/meridian-quant/meridian-trading/internal/types"
	"github.com/moznion/go-optional"
)

// computeReport derives the performance report from a finished run. Metric
// definitions:
//
//	total_return = final_equity/initial_equity - 1
//	max_drawdown = max over t of (peak_t - equity_t)/peak_t
//	sharpe       = mean(returns)/stdev(returns) * sqrt(periods_per_year)
//
// Ratio metrics that are undefined (fewer than two return observations,
// zero deviation, zero elapsed time) are reported as None, never as an
// error.
func computeReport(config Config, symbol, strategyName string, curve []types.EquityPoint, trades []types.Trade, finalEquity float64) types.PerformanceReport {
	report := types.PerformanceReport{
		ID:               uuid.NewString(),
		Timestamp:        time.Now().UTC(),
		Symbol:           symbol,
		StrategyName:     strategyName,
		InitialCapital:   config.InitialCapital,
		FinalEquity:      config.InitialCapital,
		SharpeRatio:      optional.None[float64](),
		SortinoRatio:     optional.None[float64](),
		CalmarRatio:      optional.None[float64](),
		AnnualizedReturn: optional.None[float64](),
		Trades:           trades,
	}

	for _, trade := range trades {
		report.TradeCount++
		report.TotalFees += trade.Fees

		if trade.IsWin() {
			report.WinningTrades++
		} else {
			report.LosingTrades++
		}
	}

	if report.TradeCount > 0 {
		report.WinRate = float64(report.WinningTrades) / float64(report.TradeCount)
	}

	if len(curve) == 0 {
		return report
	}

	report.FinalEquity = finalEquity
	report.TotalReturn = finalEquity/config.InitialCapital - 1

	// Max drawdown over the equity curve.
	peak := curve[0].Equity
	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}

		if peak > 0 {
			drawdown := (peak - point.Equity) / peak
			if drawdown > report.MaxDrawdown {
				report.MaxDrawdown = drawdown
			}
		}
	}

	// Per-period returns between consecutive equity points.
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1].Equity != 0 {
			returns = append(returns, curve[i].Equity/curve[i-1].Equity-1)
		}
	}

	report.SharpeRatio = sharpe(returns, config.PeriodsPerYear)
	report.SortinoRatio = sortino(returns, config.PeriodsPerYear)

	days := curve[len(curve)-1].Time.Sub(curve[0].Time).Hours() / 24
	if days > 0 {
		annualized := math.Pow(1+report.TotalReturn, 365/days) - 1
		report.AnnualizedReturn = optional.Some(annualized)

		if report.MaxDrawdown > 0 {
			report.CalmarRatio = optional.Some(annualized / report.MaxDrawdown)
		}
	}

	return report
}

func sharpe(returns []float64, periodsPerYear float64) optional.Option[float64] {
	if len(returns) < 2 {
		return optional.None[float64]()
	}

	mean := meanOf(returns)
	stdev := sampleStdev(returns, mean)

	if stdev == 0 {
		return optional.None[float64]()
	}

	return optional.Some(mean / stdev * math.Sqrt(periodsPerYear))
}

func sortino(returns []float64, periodsPerYear float64) optional.Option[float64] {
	if len(returns) < 2 {
		return optional.None[float64]()
	}

	downside := make([]float64, 0, len(returns))
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}

	if len(downside) < 2 {
		return optional.None[float64]()
	}

	downsideStdev := sampleStdev(downside, meanOf(downside))
	if downsideStdev == 0 {
		return optional.None[float64]()
	}

	return optional.Some(meanOf(returns) / downsideStdev * math.Sqrt(periodsPerYear))
}

func meanOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// sampleStdev is the n-1 denominator standard deviation, matching the
// period-return deviation used for Sharpe.
func sampleStdev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		diff := v - mean
		sum += diff * diff
	}

	return math.Sqrt(sum / float64(len(values)-1))
}
