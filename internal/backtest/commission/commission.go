// Package commission provides fee models for synthetic fills.
package commission

// Model calculates the fee in quote currency for a fill of the given
// quantity at the given price.
type Model interface {
	Calculate(quantity float64, price float64) float64
}

// Zero implements Model with no fees.
type Zero struct{}

// NewZero creates a zero-fee model.
func NewZero() Model {
	return &Zero{}
}

// Calculate returns 0 for any fill.
func (z *Zero) Calculate(quantity float64, price float64) float64 {
	return 0.0
}

// FixedRate charges a proportional fee on the fill notional, expressed in
// basis points.
type FixedRate struct {
	bps float64
}

// NewFixedRate creates a fixed-rate fee model with the given basis points.
func NewFixedRate(bps float64) Model {
	return &FixedRate{bps: bps}
}

// Calculate returns quantity * price * bps/10000.
func (f *FixedRate) Calculate(quantity float64, price float64) float64 {
	return quantity * price * f.bps / 10000.0
}
