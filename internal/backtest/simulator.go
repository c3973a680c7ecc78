// Package backtest replays a strategy over a fixed historical bar sequence
// and produces an equity curve and performance report. The replay is
// single-threaded, purely sequential, and does no I/O: identical inputs
// always produce identical results.
package backtest

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/meridian-quant/meridian-trading/internal/backtest/commission"
	"github.com/meridian-quant/meridian-trading/internal/logger"
	"github.com/meridian-quant/meridian-trading/internal/strategy"
	"github.com/meridian-quant/meridian-trading/internal/types"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
	"go.uber.org/zap"
)

// quantityEpsilon is the threshold below which a position delta is treated
// as no change.
const quantityEpsilon = 1e-9

// Simulator replays a strategy over historical bars. A Simulator instance
// holds no run state; independent backtests can run on separate instances
// in parallel.
type Simulator struct {
	config     Config
	commission commission.Model
	log        *logger.Logger
}

// Result is the outcome of a single backtest run.
type Result struct {
	Report      types.PerformanceReport
	EquityCurve []types.EquityPoint
	Fills       []types.Fill
}

// NewSimulator creates a simulator with the given config.
func NewSimulator(config Config, log *logger.Logger) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	var model commission.Model
	if config.FeeBps > 0 {
		model = commission.NewFixedRate(config.FeeBps)
	} else {
		model = commission.NewZero()
	}

	return &Simulator{
		config:     config,
		commission: model,
		log:        log,
	}, nil
}

// runState is the mutable state of one replay. It is local to a single Run
// call and never shared.
type runState struct {
	cash     float64
	position types.Position
	pending  *types.OrderIntent

	fills  []types.Fill
	trades []types.Trade
	curve  []types.EquityPoint

	entryTime time.Time
	entryFees float64
}

// Run replays the strategy over the bars, oldest first. An empty bar
// sequence yields an empty report, not an error. A strategy error aborts
// the run with the triggering bar's timestamp attached; a malformed bar
// sequence is a fatal input error.
func (s *Simulator) Run(strat strategy.Strategy, bars []types.Bar) (Result, error) {
	if strat == nil {
		return Result{}, errors.New(errors.ErrCodeBacktestInitFailed, "no strategy loaded")
	}

	if len(bars) == 0 {
		return Result{
			Report: computeReport(s.config, "", strat.Name(), nil, nil, s.config.InitialCapital),
		}, nil
	}

	if err := types.ValidateBarSequence(bars); err != nil {
		return Result{}, err
	}

	st := &runState{cash: s.config.InitialCapital}

	for i, bar := range bars {
		// A signal from the previous bar fills at this bar's open.
		if st.pending != nil {
			if err := s.execute(st, *st.pending, bar.Open, bar.Time); err != nil {
				return Result{}, err
			}

			st.pending = nil
		}

		signal, err := strat.OnBar(bars[: i+1 : i+1])
		if err != nil {
			return Result{}, errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err,
				"strategy %s failed at bar %s", strat.Name(), bar.Time.Format(time.RFC3339))
		}

		desired := signal.Direction.Sign() * s.config.OrderQuantity

		delta := desired - st.position.Quantity
		if math.Abs(delta) > quantityEpsilon {
			intent := s.buildIntent(strat.Name(), bar, delta)

			if s.config.FillTiming == FillTimingSameBarClose {
				if err := s.execute(st, intent, bar.Close, bar.Time); err != nil {
					return Result{}, err
				}
			} else {
				st.pending = &intent
			}
		}

		st.curve = append(st.curve, types.EquityPoint{
			Time:   bar.Time,
			Equity: st.cash + st.position.MarketValue(bar.Close),
		})
	}

	// A signal on the final bar has no next bar to fill on; its pending
	// intent is dropped. Any open position is closed at the final bar's
	// close and the last equity point reflects the liquidation.
	final := bars[len(bars)-1]

	if !st.position.IsFlat() {
		intent := s.buildIntent(strat.Name(), final, -st.position.Quantity)
		if err := s.execute(st, intent, final.Close, final.Time); err != nil {
			return Result{}, err
		}

		st.curve[len(st.curve)-1].Equity = st.cash
	}

	finalEquity := st.curve[len(st.curve)-1].Equity
	report := computeReport(s.config, final.Symbol, strat.Name(), st.curve, st.trades, finalEquity)

	s.log.Debug("Backtest run finished",
		zap.String("strategy", strat.Name()),
		zap.Int("bars", len(bars)),
		zap.Int("trades", report.TradeCount),
		zap.Float64("total_return", report.TotalReturn),
	)

	return Result{
		Report:      report,
		EquityCurve: st.curve,
		Fills:       st.fills,
	}, nil
}

func (s *Simulator) buildIntent(strategyName string, bar types.Bar, delta float64) types.OrderIntent {
	side := types.SideBuy
	if delta < 0 {
		side = types.SideSell
	}

	return types.OrderIntent{
		ID:           uuid.NewString(),
		Symbol:       bar.Symbol,
		Side:         side,
		Quantity:     math.Abs(delta),
		Type:         types.OrderTypeMarket,
		StrategyName: strategyName,
		CreatedAt:    bar.Time,
	}
}

// execute synthesizes a fill for the intent at the given bar price,
// applying slippage against the order and the configured fee, then updates
// cash, position, and the trade log.
func (s *Simulator) execute(st *runState, intent types.OrderIntent, price float64, at time.Time) error {
	if err := intent.Validate(); err != nil {
		return err
	}

	slip := s.config.SlippageBps / 10000.0
	if intent.Side == types.SideBuy {
		price *= 1 + slip
	} else {
		price *= 1 - slip
	}

	fee := s.commission.Calculate(intent.Quantity, price)

	fill := types.Fill{
		OrderID:  intent.ID,
		Symbol:   intent.Symbol,
		Side:     intent.Side,
		Quantity: intent.Quantity,
		Price:    price,
		Time:     at,
		Fee:      fee,
	}

	if intent.Side == types.SideBuy {
		st.cash -= intent.Quantity*price + fee
	} else {
		st.cash += intent.Quantity*price - fee
	}

	previous := st.position
	realized := st.position.ApplyFill(fill)

	closing := !previous.IsFlat() &&
		((previous.Quantity > 0 && intent.Side == types.SideSell) ||
			(previous.Quantity < 0 && intent.Side == types.SideBuy))

	if closing {
		closedQty := math.Min(intent.Quantity, math.Abs(previous.Quantity))
		st.trades = append(st.trades, types.Trade{
			Symbol:       intent.Symbol,
			Direction:    previous.Direction(),
			EntryTime:    st.entryTime,
			ExitTime:     at,
			EntryPrice:   previous.AverageEntryPrice,
			ExitPrice:    price,
			Quantity:     closedQty,
			Fees:         st.entryFees + fee,
			PnL:          realized,
			StrategyName: intent.StrategyName,
		})

		st.entryFees = 0

		// A fill that crossed through zero opened the remainder in the new
		// direction; its fee was attributed to the closing trade.
		if !st.position.IsFlat() {
			st.entryTime = at
		}
	} else {
		if previous.IsFlat() {
			st.entryTime = at
			st.entryFees = 0
		}

		st.entryFees += fee
	}

	st.fills = append(st.fills, fill)

	return nil
}
