// Package live runs a strategy against a venue on a fixed bar cadence. Each
// cycle fetches closed bars, evaluates the strategy once, submits at most
// one order, reconciles against the venue, and persists its state so a
// restart resumes without double-processing bars or duplicating orders.
package live

import (
	"context"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/meridian-quant/meridian-trading/internal/broker"
	"github.com/meridian-quant/meridian-trading/internal/live/statestore"
	"github.com/meridian-quant/meridian-trading/internal/logger"
	"github.com/meridian-quant/meridian-trading/internal/strategy"
	"github.com/meridian-quant/meridian-trading/internal/types"
	"github.com/meridian-quant/meridian-trading/internal/utils"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
	"github.com/meridian-quant/meridian-trading/pkg/marketdata"
	"go.uber.org/zap"
)

// quantityEpsilon is the threshold below which a position delta is treated
// as no change.
const quantityEpsilon = 1e-9

// Phase names the stages of one trading cycle, used in log fields.
type Phase string

const (
	PhaseWaitForBar     Phase = "WAIT_FOR_BAR"
	PhaseEvaluateSignal Phase = "EVALUATE_SIGNAL"
	PhaseNoAction       Phase = "NO_ACTION"
	PhaseSubmitOrder    Phase = "SUBMIT_ORDER"
	PhaseReconcile      Phase = "RECONCILE"
)

// Engine is the live execution loop for a single symbol.
type Engine struct {
	config   Config
	strategy strategy.Strategy
	provider marketdata.Provider
	broker   broker.Broker
	store    *statestore.Store
	log      *logger.Logger

	state statestore.State

	// Injection points for tests.
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
	newBackOff func() backoff.BackOff
}

// NewEngine creates a live loop and loads any persisted state for the
// symbol. A state file written by a different strategy is rejected rather
// than silently reused.
func NewEngine(config Config, strat strategy.Strategy, provider marketdata.Provider, brk broker.Broker, store *statestore.Store, log *logger.Logger) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if strat == nil || provider == nil || brk == nil || store == nil {
		return nil, errors.New(errors.ErrCodeLiveInitFailed, "strategy, provider, broker and store are all required")
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	state, found, err := store.Load(config.Symbol)
	if err != nil {
		return nil, err
	}

	if found && state.StrategyName != strat.Name() {
		return nil, errors.Newf(errors.ErrCodeLiveInitFailed,
			"state for %s belongs to strategy %s, not %s", config.Symbol, state.StrategyName, strat.Name())
	}

	if !found {
		state = statestore.State{
			Symbol:       config.Symbol,
			StrategyName: strat.Name(),
		}
	}

	return &Engine{
		config:     config,
		strategy:   strat,
		provider:   provider,
		broker:     brk,
		store:      store,
		log:        log,
		state:      state,
		now:        time.Now,
		sleep:      sleepContext,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}, nil
}

// Run executes trading cycles until the context is canceled. A persistence
// failure is fatal: continuing without durable state could double-submit
// orders after a restart. Any other cycle error is logged and the loop
// moves on to the next bar.
func (e *Engine) Run(ctx context.Context) error {
	// An order left in flight by a previous run is reconciled before any
	// new bar is acted on.
	if e.state.PendingOrderID != "" || e.state.PendingIntent != nil {
		e.log.Info("Recovering in-flight order from previous run",
			zap.String("symbol", e.config.Symbol),
			zap.String("order_id", e.state.PendingOrderID),
		)

		if err := e.reconcile(ctx); err != nil {
			return err
		}
	}

	for {
		if err := e.waitForNextBar(ctx); err != nil {
			return nil
		}

		if err := e.runCycle(ctx); err != nil {
			if errors.HasCode(err, errors.ErrCodePersistence) {
				return err
			}

			if ctx.Err() != nil {
				return nil
			}

			e.log.Error("Trading cycle failed",
				zap.String("symbol", e.config.Symbol),
				zap.Error(err),
			)
		}
	}
}

// runCycle executes one pass of the state machine for the newest closed
// bar.
func (e *Engine) runCycle(ctx context.Context) error {
	bars, err := e.provider.GetLatest(ctx, e.config.Symbol, e.config.Interval, e.config.HistoryBars)
	if err != nil {
		return errors.Wrap(errors.ErrCodeCycleFailed, "failed to fetch bars", err)
	}

	if len(bars) == 0 {
		return nil
	}

	last := bars[len(bars)-1]

	// Restart safety: a bar already acted on is never processed twice.
	if !last.Time.After(e.state.LastProcessedBar) {
		e.log.Debug("Bar already processed",
			zap.String("symbol", e.config.Symbol),
			zap.Time("bar", last.Time),
		)

		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	signal, err := e.strategy.OnBar(bars)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err,
			"strategy %s failed at bar %s", e.strategy.Name(), last.Time.Format(time.RFC3339))
	}

	e.log.Info("Signal evaluated",
		zap.String("phase", string(PhaseEvaluateSignal)),
		zap.String("symbol", e.config.Symbol),
		zap.Time("bar", last.Time),
		zap.String("direction", string(signal.Direction)),
		zap.String("reason", signal.Reason),
	)

	// The venue's position is authoritative; the cached one may be stale
	// if orders were placed outside this loop.
	position, err := e.broker.GetPosition(ctx, e.config.Symbol)
	if err != nil {
		return errors.Wrap(errors.ErrCodeCycleFailed, "failed to fetch position", err)
	}

	e.state.Position = position

	desired := signal.Direction.Sign() * e.config.OrderQuantity
	delta := desired - position.Quantity

	if math.Abs(delta) <= quantityEpsilon ||
		!utils.MeetsMinNotional(math.Abs(delta), last.Close, e.config.MinNotional) {
		e.log.Info("No order needed",
			zap.String("phase", string(PhaseNoAction)),
			zap.String("symbol", e.config.Symbol),
			zap.Float64("position", position.Quantity),
			zap.Float64("desired", desired),
		)

		e.state.LastProcessedBar = last.Time

		return e.store.Save(e.state)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	intent := e.buildIntent(last, delta)

	// The intent is persisted before submission so a crash in the window
	// between submit and reconcile can be recovered.
	e.state.PendingIntent = &intent
	if err := e.store.Save(e.state); err != nil {
		return err
	}

	e.log.Info("Submitting order",
		zap.String("phase", string(PhaseSubmitOrder)),
		zap.String("symbol", e.config.Symbol),
		zap.String("side", string(intent.Side)),
		zap.Float64("quantity", intent.Quantity),
	)

	orderID, err := e.submitWithRetry(ctx, intent)
	if err != nil {
		// The order never reached the venue. The bar is consumed either
		// way: re-evaluating it later would act on stale prices.
		e.state.PendingIntent = nil
		e.state.LastProcessedBar = last.Time

		if saveErr := e.store.Save(e.state); saveErr != nil {
			return saveErr
		}

		if errors.IsRejected(err) {
			e.log.Warn("Order rejected by venue",
				zap.String("symbol", e.config.Symbol),
				zap.Error(err),
			)

			return nil
		}

		return errors.Wrap(errors.ErrCodeCycleFailed, "order submission failed after retries", err)
	}

	e.state.PendingOrderID = orderID
	if err := e.store.Save(e.state); err != nil {
		return err
	}

	if err := e.reconcile(ctx); err != nil {
		return err
	}

	e.state.LastProcessedBar = last.Time

	return e.store.Save(e.state)
}

// submitWithRetry submits the intent, retrying transient failures with
// exponential backoff. Venue rejections are never retried.
func (e *Engine) submitWithRetry(ctx context.Context, intent types.OrderIntent) (string, error) {
	var orderID string

	operation := func() error {
		id, err := e.broker.SubmitOrder(ctx, intent)
		if err != nil {
			if errors.IsTransient(err) {
				return err
			}

			return backoff.Permanent(err)
		}

		orderID = id

		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(e.newBackOff(), uint64(e.config.SubmitRetries)), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		return "", err
	}

	return orderID, nil
}

// reconcile brings local state back in line with the venue: polls the
// in-flight order to a terminal status, refreshes the position, clears the
// pending markers, and persists.
func (e *Engine) reconcile(ctx context.Context) error {
	if e.state.PendingOrderID != "" {
		e.pollOrder(ctx)
	}

	position, err := e.broker.GetPosition(ctx, e.config.Symbol)
	if err != nil {
		// Pending markers stay set so the next attempt reconciles again.
		return errors.Wrap(errors.ErrCodeCycleFailed, "failed to fetch position during reconcile", err)
	}

	e.log.Info("Reconciled with venue",
		zap.String("phase", string(PhaseReconcile)),
		zap.String("symbol", e.config.Symbol),
		zap.Float64("position", position.Quantity),
	)

	e.state.Position = position
	e.state.PendingOrderID = ""
	e.state.PendingIntent = nil

	return e.store.Save(e.state)
}

// pollOrder waits for the pending order to reach a terminal status, bounded
// by the configured poll budget. A still-pending order after the budget is
// left to the position fetch: the venue's balance is authoritative.
func (e *Engine) pollOrder(ctx context.Context) {
	for i := 0; i < e.config.ReconcilePolls; i++ {
		state, err := e.broker.GetOrderStatus(ctx, e.config.Symbol, e.state.PendingOrderID)
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeBrokerOrderNotFound) {
				e.log.Warn("Pending order unknown to venue",
					zap.String("order_id", e.state.PendingOrderID),
				)

				return
			}

			e.log.Warn("Order status fetch failed",
				zap.String("order_id", e.state.PendingOrderID),
				zap.Error(err),
			)
		} else if state.Status != types.OrderStatusPending {
			e.log.Info("Order reached terminal status",
				zap.String("order_id", e.state.PendingOrderID),
				zap.String("status", string(state.Status)),
				zap.Float64("filled", state.FilledQuantity),
				zap.Float64("avg_price", state.AvgFillPrice),
			)

			return
		}

		if err := e.sleep(ctx, e.config.PollInterval); err != nil {
			return
		}
	}
}

// waitForNextBar sleeps until just after the next bar boundary.
func (e *Engine) waitForNextBar(ctx context.Context) error {
	now := e.now()
	duration := e.config.Interval.Duration()
	next := now.Truncate(duration).Add(duration).Add(e.config.BarCloseGrace)

	e.log.Debug("Waiting for next bar",
		zap.String("phase", string(PhaseWaitForBar)),
		zap.String("symbol", e.config.Symbol),
		zap.Time("next", next),
	)

	return e.sleep(ctx, next.Sub(now))
}

func (e *Engine) buildIntent(bar types.Bar, delta float64) types.OrderIntent {
	side := types.SideBuy
	if delta < 0 {
		side = types.SideSell
	}

	return types.OrderIntent{
		ID:           uuid.NewString(),
		Symbol:       e.config.Symbol,
		Side:         side,
		Quantity:     math.Abs(delta),
		Type:         types.OrderTypeMarket,
		StrategyName: e.strategy.Name(),
		CreatedAt:    bar.Time,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
