package marketdata

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/meridian-quant/meridian-trading/internal/types"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
)

// binancePageSize is the maximum klines per request accepted by the API.
const binancePageSize = 1000

// KlinesService is the slice of the Binance klines API the provider uses.
type KlinesService interface {
	Symbol(symbol string) KlinesService
	Interval(interval string) KlinesService
	StartTime(startTime int64) KlinesService
	EndTime(endTime int64) KlinesService
	Limit(limit int) KlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// KlinesClient abstracts the Binance client for testing.
type KlinesClient interface {
	NewKlinesService() KlinesService
}

type realKlinesClient struct {
	client *binance.Client
}

func (r *realKlinesClient) NewKlinesService() KlinesService {
	return &realKlinesService{service: r.client.NewKlinesService()}
}

type realKlinesService struct {
	service *binance.KlinesService
}

func (s *realKlinesService) Symbol(symbol string) KlinesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realKlinesService) Interval(interval string) KlinesService {
	s.service = s.service.Interval(interval)

	return s
}

func (s *realKlinesService) StartTime(startTime int64) KlinesService {
	s.service = s.service.StartTime(startTime)

	return s
}

func (s *realKlinesService) EndTime(endTime int64) KlinesService {
	s.service = s.service.EndTime(endTime)

	return s
}

func (s *realKlinesService) Limit(limit int) KlinesService {
	s.service = s.service.Limit(limit)

	return s
}

func (s *realKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

// BinanceProvider fetches klines from the public Binance REST API.
type BinanceProvider struct {
	client KlinesClient
}

// NewBinanceProvider creates a provider backed by the public klines
// endpoint. No credentials are needed.
func NewBinanceProvider() *BinanceProvider {
	return &BinanceProvider{
		client: &realKlinesClient{client: binance.NewClient("", "")},
	}
}

// newBinanceProviderWithClient is used by tests to inject a mock client.
func newBinanceProviderWithClient(client KlinesClient) *BinanceProvider {
	return &BinanceProvider{client: client}
}

// GetHistorical pages through klines for the date range. Pagination resumes
// from the close time of the last kline of each page to avoid duplicates.
func (p *BinanceProvider) GetHistorical(ctx context.Context, symbol string, interval Interval, start, end time.Time) ([]types.Bar, error) {
	if _, err := ParseInterval(string(interval)); err != nil {
		return nil, err
	}

	endMillis := end.UnixMilli()
	currentStart := start.UnixMilli()

	var bars []types.Bar

	for {
		klines, err := p.client.NewKlinesService().
			Symbol(symbol).
			Interval(string(interval)).
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(binancePageSize).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err,
				"failed to fetch %s klines from binance", symbol)
		}

		for _, kline := range klines {
			bar, err := barFromKline(symbol, kline)
			if err != nil {
				return nil, err
			}

			bars = append(bars, bar)
		}

		if len(klines) < binancePageSize {
			break
		}

		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	if err := types.ValidateBarSequence(bars); err != nil {
		return nil, err
	}

	return bars, nil
}

// GetLatest fetches the most recent count closed bars. The newest kline
// returned by the API is still forming and is dropped.
func (p *BinanceProvider) GetLatest(ctx context.Context, symbol string, interval Interval, count int) ([]types.Bar, error) {
	if _, err := ParseInterval(string(interval)); err != nil {
		return nil, err
	}

	if count <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "bar count must be positive, got %d", count)
	}

	klines, err := p.client.NewKlinesService().
		Symbol(symbol).
		Interval(string(interval)).
		Limit(count + 1).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err,
			"failed to fetch %s klines from binance", symbol)
	}

	if len(klines) > 0 {
		klines = klines[:len(klines)-1]
	}

	bars := make([]types.Bar, 0, len(klines))

	for _, kline := range klines {
		bar, err := barFromKline(symbol, kline)
		if err != nil {
			return nil, err
		}

		bars = append(bars, bar)
	}

	if err := types.ValidateBarSequence(bars); err != nil {
		return nil, err
	}

	return bars, nil
}

// barFromKline converts a Binance kline to a bar, using the open time as
// the bar timestamp.
func barFromKline(symbol string, kline *binance.Kline) (types.Bar, error) {
	open, err := strconv.ParseFloat(kline.Open, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid kline open price", err)
	}

	high, err := strconv.ParseFloat(kline.High, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid kline high price", err)
	}

	low, err := strconv.ParseFloat(kline.Low, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid kline low price", err)
	}

	closePrice, err := strconv.ParseFloat(kline.Close, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid kline close price", err)
	}

	volume, err := strconv.ParseFloat(kline.Volume, 64)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid kline volume", err)
	}

	return types.Bar{
		Symbol: symbol,
		Time:   time.UnixMilli(kline.OpenTime).UTC(),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}
