// Package statestore persists live loop state between restarts. One JSON
// file per symbol; writes go through a temp file and rename so a crash
// mid-write never leaves a torn state file.
package statestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/meridian-quant/meridian-trading/internal/types"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
)

// State is everything the live loop must remember across restarts: the
// last bar it acted on, its view of the position, and any order that was
// in flight when it stopped.
type State struct {
	Symbol       string `json:"symbol"`
	StrategyName string `json:"strategy_name"`
	// LastProcessedBar is the timestamp of the newest bar whose signal has
	// been fully handled. On restart, bars at or before it are skipped.
	LastProcessedBar time.Time      `json:"last_processed_bar"`
	Position         types.Position `json:"position"`
	// PendingOrderID is the broker order id of an unreconciled submission,
	// empty when no order is in flight.
	PendingOrderID string             `json:"pending_order_id,omitempty"`
	PendingIntent  *types.OrderIntent `json:"pending_intent,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Store reads and writes per-symbol state files under a directory.
type Store struct {
	dir string
}

// NewStore creates the directory if needed and returns a store over it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(errors.ErrCodePersistence, err, "failed to create state dir %s", dir)
	}

	return &Store{dir: dir}, nil
}

func (s *Store) path(symbol string) string {
	return filepath.Join(s.dir, symbol+".json")
}

// Save atomically replaces the symbol's state file.
func (s *Store) Save(state State) error {
	state.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodePersistence, "failed to marshal state", err)
	}

	target := s.path(state.Symbol)
	temp := target + ".tmp"

	if err := os.WriteFile(temp, data, 0644); err != nil {
		return errors.Wrapf(errors.ErrCodePersistence, err, "failed to write state file %s", temp)
	}

	if err := os.Rename(temp, target); err != nil {
		return errors.Wrapf(errors.ErrCodePersistence, err, "failed to replace state file %s", target)
	}

	return nil
}

// Load reads the symbol's state. The second return value is false when no
// state has been persisted yet.
func (s *Store) Load(symbol string) (State, bool, error) {
	data, err := os.ReadFile(s.path(symbol))
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, false, nil
		}

		return State{}, false, errors.Wrapf(errors.ErrCodePersistence, err, "failed to read state file for %s", symbol)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, false, errors.Wrapf(errors.ErrCodePersistence, err, "corrupt state file for %s", symbol)
	}

	return state, true, nil
}
