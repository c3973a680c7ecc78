package types

import (
	"math"

	"github.com/shopspring/decimal"
)

// Position represents the current holdings of a single symbol. Quantity is
// signed: positive for long, negative for short, zero for flat. A position
// is owned exclusively by whichever driver currently runs the strategy.
type Position struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	// Quantity is the signed held quantity.
	Quantity float64 `yaml:"quantity" json:"quantity"`
	// AverageEntryPrice is the fee-inclusive average entry price of the
	// currently open quantity. Zero when flat.
	AverageEntryPrice float64 `yaml:"average_entry_price" json:"average_entry_price"`
}

// IsFlat reports whether the position holds no quantity.
func (p Position) IsFlat() bool {
	return p.Quantity == 0
}

// Direction returns the direction implied by the position's sign.
func (p Position) Direction() Direction {
	switch {
	case p.Quantity > 0:
		return DirectionLong
	case p.Quantity < 0:
		return DirectionShort
	default:
		return DirectionFlat
	}
}

// MarketValue returns the signed value of the position at the given price.
func (p Position) MarketValue(price float64) float64 {
	value := decimal.NewFromFloat(p.Quantity).Mul(decimal.NewFromFloat(price))

	result, _ := value.Float64()

	return result
}

// ApplyFill updates the position with an executed fill and returns the
// realized PnL of any closed quantity, net of the closing fill's fee.
// Buys add quantity, sells remove it; a fill that crosses through zero
// closes the open quantity and opens the remainder in the new direction at
// the fill price.
func (p *Position) ApplyFill(fill Fill) float64 {
	delta := fill.Quantity
	if fill.Side == SideSell {
		delta = -fill.Quantity
	}

	// Opening or adding to a position in the same direction: fold the fill
	// and its fee into the average entry price.
	if p.Quantity == 0 || sameSign(p.Quantity, delta) {
		heldAbs := decimal.NewFromFloat(math.Abs(p.Quantity))
		fillAbs := decimal.NewFromFloat(math.Abs(delta))

		cost := heldAbs.Mul(decimal.NewFromFloat(p.AverageEntryPrice)).
			Add(fillAbs.Mul(decimal.NewFromFloat(fill.Price))).
			Add(decimal.NewFromFloat(fill.Fee))

		total := heldAbs.Add(fillAbs)
		p.AverageEntryPrice, _ = cost.Div(total).Float64()
		p.Quantity += delta
		p.Symbol = fill.Symbol

		return 0
	}

	// Reducing or reversing.
	closedAbs := math.Min(math.Abs(delta), math.Abs(p.Quantity))
	closed := decimal.NewFromFloat(closedAbs)
	entry := decimal.NewFromFloat(p.AverageEntryPrice)
	exit := decimal.NewFromFloat(fill.Price)

	var pnl decimal.Decimal
	if p.Quantity > 0 {
		pnl = exit.Sub(entry).Mul(closed)
	} else {
		pnl = entry.Sub(exit).Mul(closed)
	}

	pnl = pnl.Sub(decimal.NewFromFloat(fill.Fee))

	remaining := p.Quantity + delta
	switch {
	case remaining == 0:
		p.Quantity = 0
		p.AverageEntryPrice = 0
	case sameSign(remaining, p.Quantity):
		// Partial close keeps the original entry price.
		p.Quantity = remaining
	default:
		// Crossed through zero: the remainder opens at the fill price.
		p.Quantity = remaining
		p.AverageEntryPrice = fill.Price
	}

	result, _ := pnl.Float64()

	return result
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
