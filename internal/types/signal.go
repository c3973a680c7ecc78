package types

import "time"

// Direction is a strategy's per-bar trading decision.
type Direction string

const (
	// DirectionLong tells the driver to hold a long position.
	DirectionLong Direction = "LONG"
	// DirectionShort tells the driver to hold a short position.
	DirectionShort Direction = "SHORT"
	// DirectionFlat tells the driver to hold no position.
	DirectionFlat Direction = "FLAT"
)

// Sign returns the position sign implied by the direction: +1 for long,
// -1 for short, 0 for flat.
func (d Direction) Sign() float64 {
	switch d {
	case DirectionLong:
		return 1
	case DirectionShort:
		return -1
	default:
		return 0
	}
}

// Signal is a strategy's decision for a single bar. It is a pure function of
// the price history up to and including that bar plus the strategy's own
// prior state.
type Signal struct {
	// Time is the timestamp of the bar that produced the signal.
	Time time.Time
	// Symbol is the traded symbol the signal applies to.
	Symbol string
	// Direction is the desired position direction after this bar.
	Direction Direction
	// Name is the name of the strategy that produced the signal.
	Name string
	// Reason is a human-readable explanation of the decision.
	Reason string
}
