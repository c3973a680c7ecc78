package marketdata

import (
	"context"
	"time"

	"github.com/meridian-quant/meridian-trading/internal/types"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
)

// ProviderType selects a market data provider implementation.
type ProviderType string

const (
	ProviderBinance ProviderType = "binance"
	ProviderPolygon ProviderType = "polygon"
)

// Provider fetches bar sequences from an external venue. Implementations
// return bars ordered oldest first and already validated; a sequence that
// fails validation is an input data error, never silently repaired.
type Provider interface {
	// GetHistorical fetches all closed bars for [start, end].
	GetHistorical(ctx context.Context, symbol string, interval Interval, start, end time.Time) ([]types.Bar, error)
	// GetLatest fetches the most recent count closed bars, excluding the
	// bar still in progress.
	GetLatest(ctx context.Context, symbol string, interval Interval, count int) ([]types.Bar, error)
}

// NewProvider creates a provider of the given type. The config string is
// provider-specific: the Polygon provider requires an API key, the Binance
// provider ignores it (klines are public).
func NewProvider(providerType ProviderType, config string) (Provider, error) {
	switch providerType {
	case ProviderBinance:
		return NewBinanceProvider(), nil
	case ProviderPolygon:
		return NewPolygonProvider(config)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}
}
