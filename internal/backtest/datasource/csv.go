// Package datasource loads historical bar sequences for the backtest
// simulator.
package datasource

import (
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/meridian-quant/meridian-trading/internal/types"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
)

// CSVSource reads bars from a CSV file with an RFC 3339 time column and
// open/high/low/close/volume columns. The symbol column is optional; rows
// without one take the source's symbol.
type CSVSource struct {
	FilePath string
	Symbol   string
}

// NewCSVSource creates a CSV bar source for the given file and symbol.
func NewCSVSource(filePath, symbol string) *CSVSource {
	return &CSVSource{
		FilePath: filePath,
		Symbol:   symbol,
	}
}

// Load reads and validates the full bar sequence. The file must be ordered
// oldest first; an out-of-order or duplicate timestamp is a fatal input
// error.
func (s *CSVSource) Load() ([]types.Bar, error) {
	file, err := os.Open(s.FilePath)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err,
			"failed to open bar file %s", s.FilePath)
	}
	defer file.Close()

	var bars []types.Bar
	if err := gocsv.UnmarshalFile(file, &bars); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInputDataMalformed, err,
			"failed to parse bar file %s", s.FilePath)
	}

	for i := range bars {
		if bars[i].Symbol == "" {
			bars[i].Symbol = s.Symbol
		}
	}

	if err := types.ValidateBarSequence(bars); err != nil {
		return nil, err
	}

	return bars, nil
}

// LoadRange loads the sequence and keeps only bars within [start, end],
// inclusive on both ends. A zero start or end leaves that side unbounded.
func (s *CSVSource) LoadRange(start, end time.Time) ([]types.Bar, error) {
	bars, err := s.Load()
	if err != nil {
		return nil, err
	}

	filtered := make([]types.Bar, 0, len(bars))
	for _, bar := range bars {
		if !start.IsZero() && bar.Time.Before(start) {
			continue
		}

		if !end.IsZero() && bar.Time.After(end) {
			continue
		}

		filtered = append(filtered, bar)
	}

	return filtered, nil
}
