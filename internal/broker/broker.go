// Package broker abstracts order submission and account state for the live
// execution loop.
package broker

import (
	"context"

	"github.com/meridian-quant/meridian-trading/internal/types"
)

// OrderState is the broker's view of a previously submitted order.
type OrderState struct {
	// ID is the broker-assigned order identifier.
	ID string
	// ClientOrderID is the caller-assigned intent identifier, used to
	// correlate orders across restarts.
	ClientOrderID  string
	Status         types.OrderStatus
	FilledQuantity float64
	// AvgFillPrice is the volume-weighted fill price; zero until the first
	// partial fill.
	AvgFillPrice float64
}

// Broker is the venue capability the live loop is written against. Errors
// returned by implementations are classified: errors.IsTransient means the
// call may be retried, errors.IsRejected means the venue refused the order
// and retrying the same order is pointless.
type Broker interface {
	// SubmitOrder places the order described by the intent and returns the
	// broker-assigned order identifier.
	SubmitOrder(ctx context.Context, intent types.OrderIntent) (string, error)
	// GetOrderStatus fetches the current state of a submitted order.
	GetOrderStatus(ctx context.Context, symbol, orderID string) (OrderState, error)
	// GetPosition returns the venue's authoritative position for the
	// symbol. The live loop trusts this over its own cached state.
	GetPosition(ctx context.Context, symbol string) (types.Position, error)
}
