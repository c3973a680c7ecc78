// Package strategy defines the contract shared by the backtest simulator
// and the live execution loop, and the built-in strategy implementations.
//
// A Strategy must be a pure function of the bar history it is given plus
// its own private state: it never consults bars beyond the last element of
// history (no lookahead), and replaying the same history from scratch must
// produce the same signals. Parameters are fixed at Initialize and
// immutable afterwards.
package strategy

import (
	"sort"
	"sync"

	"github.com/meridian-quant/meridian-trading/internal/types"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
)

// Strategy is the single capability both drivers are written against.
type Strategy interface {
	// Name returns the identifier of the strategy instance.
	Name() string
	// Initialize parses and validates the YAML parameter set. Parameters
	// are immutable after Initialize returns.
	Initialize(config string) error
	// OnBar returns the desired position direction after the last bar of
	// history. history is ordered oldest first and always contains at
	// least one bar; the last element is the current bar.
	OnBar(history []types.Bar) (types.Signal, error)
}

// Constructor builds an uninitialized strategy instance.
type Constructor func() Strategy

// Registry maps strategy names to constructors.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry creates a registry with all built-in strategies registered.
func NewRegistry() *Registry {
	r := &Registry{
		constructors: make(map[string]Constructor),
	}

	r.Register(MACrossoverName, NewMACrossover)
	r.Register(RSIThresholdName, NewRSIThreshold)
	r.Register(MACDCrossName, NewMACDCross)
	r.Register(MeanReversionName, NewMeanReversion)
	r.Register(OpeningRangeName, NewOpeningRange)

	return r
}

// Register adds a constructor under the given name, replacing any existing
// registration.
func (r *Registry) Register(name string, constructor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.constructors[name] = constructor
}

// Create instantiates and initializes the named strategy with the given
// YAML config.
func (r *Registry) Create(name string, config string) (Strategy, error) {
	r.mu.RLock()
	constructor, ok := r.constructors[name]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "unknown strategy: %s", name)
	}

	s := constructor()
	if err := s.Initialize(config); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err,
			"failed to initialize strategy %s", name)
	}

	return s, nil
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// signalAt builds a signal for the last bar of history.
func signalAt(history []types.Bar, direction types.Direction, name, reason string) types.Signal {
	current := history[len(history)-1]

	return types.Signal{
		Time:      current.Time,
		Symbol:    current.Symbol,
		Direction: direction,
		Name:      name,
		Reason:    reason,
	}
}

// requireHistory validates that OnBar was called with a non-empty history.
func requireHistory(history []types.Bar) error {
	if len(history) == 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "OnBar requires a non-empty history")
	}

	return nil
}
