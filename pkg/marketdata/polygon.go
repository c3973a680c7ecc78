package marketdata

import (
	"context"
	"time"

	"github.com/meridian-quant/meridian-trading/internal/types"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
)

// polygonPageSize is the aggregate page limit per request.
const polygonPageSize = 50000

// PolygonProvider fetches aggregate bars from the Polygon REST API.
type PolygonProvider struct {
	client *polygon.Client
}

// NewPolygonProvider creates a provider with the given API key.
func NewPolygonProvider(apiKey string) (*PolygonProvider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "polygon provider requires an api key")
	}

	return &PolygonProvider{client: polygon.New(apiKey)}, nil
}

// GetHistorical fetches all aggregates for [start, end] in ascending order.
func (p *PolygonProvider) GetHistorical(ctx context.Context, symbol string, interval Interval, start, end time.Time) ([]types.Bar, error) {
	if _, err := ParseInterval(string(interval)); err != nil {
		return nil, err
	}

	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: interval.Multiplier(),
		Timespan:   interval.Timespan(),
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(polygonPageSize).WithOrder(models.Asc)

	aggs := p.client.ListAggs(ctx, params)

	var bars []types.Bar
	for aggs.Next() {
		bars = append(bars, barFromAgg(symbol, aggs.Item()))
	}

	if err := aggs.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err,
			"failed to fetch %s aggregates from polygon", symbol)
	}

	if err := types.ValidateBarSequence(bars); err != nil {
		return nil, err
	}

	return bars, nil
}

// GetLatest fetches the most recent count closed bars. Bars whose interval
// has not yet elapsed are still forming and are excluded.
func (p *PolygonProvider) GetLatest(ctx context.Context, symbol string, interval Interval, count int) ([]types.Bar, error) {
	if count <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "bar count must be positive, got %d", count)
	}

	duration := interval.Duration()
	now := time.Now().UTC()

	// Over-fetch a little so dropping the forming bar still leaves count.
	start := now.Add(-duration * time.Duration(count+2))

	bars, err := p.GetHistorical(ctx, symbol, interval, start, now)
	if err != nil {
		return nil, err
	}

	closed := make([]types.Bar, 0, len(bars))

	for _, bar := range bars {
		if bar.Time.Add(duration).After(now) {
			continue
		}

		closed = append(closed, bar)
	}

	if len(closed) > count {
		closed = closed[len(closed)-count:]
	}

	return closed, nil
}

func barFromAgg(symbol string, agg models.Agg) types.Bar {
	return types.Bar{
		Symbol: symbol,
		Time:   time.Time(agg.Timestamp).UTC(),
		Open:   agg.Open,
		High:   agg.High,
		Low:    agg.Low,
		Close:  agg.Close,
		Volume: agg.Volume,
	}
}
