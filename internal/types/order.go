package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
)

type Side string

type OrderType string

type OrderStatus string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusRejected OrderStatus = "REJECTED"
	OrderStatusFailed   OrderStatus = "FAILED"
)

// OrderIntent is the required position delta derived from a signal
// transition. It is ephemeral: produced by a driver, consumed by the
// simulator's fill synthesizer or a broker.
type OrderIntent struct {
	ID           string    `yaml:"id" json:"id" validate:"required,uuid"`
	Symbol       string    `yaml:"symbol" json:"symbol" validate:"required"`
	Side         Side      `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Quantity     float64   `yaml:"quantity" json:"quantity" validate:"required,gt=0"`
	Type         OrderType `yaml:"type" json:"type" validate:"required,oneof=MARKET LIMIT"`
	StrategyName string    `yaml:"strategy_name" json:"strategy_name" validate:"required"`
	// CreatedAt is the timestamp of the bar whose signal produced the intent.
	CreatedAt time.Time `yaml:"created_at" json:"created_at" validate:"required"`
}

// Validate validates the OrderIntent struct.
func (oi *OrderIntent) Validate() error {
	validate := validator.New()
	if err := validate.Struct(oi); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrderIntent, "invalid order intent", err)
	}

	return nil
}

// Fill is the recorded execution of an order at a price and time. Fills are
// produced synthetically by the backtest simulator or reported by the
// broker. A fill's timestamp is never earlier than the intent that
// produced it.
type Fill struct {
	OrderID  string    `yaml:"order_id" json:"order_id"`
	Symbol   string    `yaml:"symbol" json:"symbol"`
	Side     Side      `yaml:"side" json:"side"`
	Quantity float64   `yaml:"quantity" json:"quantity"`
	Price    float64   `yaml:"price" json:"price"`
	Time     time.Time `yaml:"time" json:"time"`
	Fee      float64   `yaml:"fee" json:"fee"`
}
