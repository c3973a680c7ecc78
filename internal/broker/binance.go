package broker

import (
	"context"
	stderrors "errors"
	"strconv"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/go-playground/validator/v10"
	"github.com/meridian-quant/meridian-trading/internal/types"
	"github.com/meridian-quant/meridian-trading/internal/utils"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultDecimalPrecision is the quantity precision used when the config
// does not set one. 8 decimals covers satoshi-level lots on BTC-like
// assets; production configs should carry the symbol's LOT_SIZE precision.
const DefaultDecimalPrecision = 8

// CreateOrderService is the slice of the Binance order API the broker uses.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	NewClientOrderID(id string) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// GetOrderService fetches a single order.
type GetOrderService interface {
	Symbol(symbol string) GetOrderService
	OrderID(orderID int64) GetOrderService
	Do(ctx context.Context) (*binance.Order, error)
}

// GetAccountService fetches account balances.
type GetAccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

// BinanceClient abstracts the Binance client for testing.
type BinanceClient interface {
	NewCreateOrderService() CreateOrderService
	NewGetOrderService() GetOrderService
	NewGetAccountService() GetAccountService
}

type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewGetOrderService() GetOrderService {
	return &realGetOrderService{service: r.client.NewGetOrderService()}
}

func (r *realBinanceClient) NewGetAccountService() GetAccountService {
	return &realGetAccountService{service: r.client.NewGetAccountService()}
}

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	s.service = s.service.NewClientOrderID(id)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetOrderService struct {
	service *binance.GetOrderService
}

func (s *realGetOrderService) Symbol(symbol string) GetOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realGetOrderService) OrderID(orderID int64) GetOrderService {
	s.service = s.service.OrderID(orderID)

	return s
}

func (s *realGetOrderService) Do(ctx context.Context) (*binance.Order, error) {
	return s.service.Do(ctx)
}

type realGetAccountService struct {
	service *binance.GetAccountService
}

func (s *realGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

// BinanceConfig configures a spot Binance broker for a single symbol.
type BinanceConfig struct {
	APIKey    string `yaml:"api_key" json:"api_key" validate:"required"`
	SecretKey string `yaml:"secret_key" json:"secret_key" validate:"required"`
	// BaseAsset is the asset whose balance backs the symbol's position,
	// e.g. BTC for BTCUSDT.
	BaseAsset string `yaml:"base_asset" json:"base_asset" validate:"required"`
	// BaseURL overrides the endpoint; takes precedence over UseTestnet.
	BaseURL    string `yaml:"base_url" json:"base_url"`
	UseTestnet bool   `yaml:"use_testnet" json:"use_testnet"`
	// DecimalPrecision is the quantity precision for the symbol's lot step.
	DecimalPrecision int `yaml:"decimal_precision" json:"decimal_precision" validate:"gte=0,lte=8"`
}

// Validate checks the config invariants.
func (c *BinanceConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid binance broker config", err)
	}

	return nil
}

// ParseBinanceConfig parses a YAML Binance broker config.
func ParseBinanceConfig(content string) (BinanceConfig, error) {
	var config BinanceConfig
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return BinanceConfig{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse binance broker config", err)
	}

	if err := config.Validate(); err != nil {
		return BinanceConfig{}, err
	}

	return config, nil
}

// BinanceBroker submits spot orders through the Binance REST API. It is
// stateless: positions and order states are always fetched from the venue.
type BinanceBroker struct {
	client           BinanceClient
	baseAsset        string
	decimalPrecision int
}

// NewBinanceBroker creates a broker from the config.
func NewBinanceBroker(config BinanceConfig) (*BinanceBroker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.UseTestnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(config.APIKey, config.SecretKey)
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	precision := config.DecimalPrecision
	if precision == 0 {
		precision = DefaultDecimalPrecision
	}

	return &BinanceBroker{
		client:           &realBinanceClient{client: client},
		baseAsset:        config.BaseAsset,
		decimalPrecision: precision,
	}, nil
}

// newBinanceBrokerWithClient is used by tests to inject a mock client.
func newBinanceBrokerWithClient(client BinanceClient, baseAsset string, decimalPrecision int) *BinanceBroker {
	return &BinanceBroker{
		client:           client,
		baseAsset:        baseAsset,
		decimalPrecision: decimalPrecision,
	}
}

// SubmitOrder places a market order for the intent. The intent's ID is
// forwarded as the client order ID so a restarted loop can correlate the
// order with its persisted state.
func (b *BinanceBroker) SubmitOrder(ctx context.Context, intent types.OrderIntent) (string, error) {
	if err := intent.Validate(); err != nil {
		return "", err
	}

	var side binance.SideType

	switch intent.Side {
	case types.SideBuy:
		side = binance.SideTypeBuy
	case types.SideSell:
		side = binance.SideTypeSell
	default:
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported order side: %s", intent.Side)
	}

	if intent.Type != types.OrderTypeMarket {
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported order type: %s", intent.Type)
	}

	rounded := utils.RoundToDecimalPrecision(intent.Quantity, b.decimalPrecision)
	if rounded <= 0 {
		return "", errors.Newf(errors.ErrCodeInvalidParameter,
			"order quantity %.8f is too small after rounding to %d decimal places",
			intent.Quantity, b.decimalPrecision)
	}

	response, err := b.client.NewCreateOrderService().
		Symbol(intent.Symbol).
		Side(side).
		Type(binance.OrderTypeMarket).
		Quantity(strconv.FormatFloat(rounded, 'f', b.decimalPrecision, 64)).
		NewClientOrderID(intent.ID).
		Do(ctx)
	if err != nil {
		return "", classifySubmitError(err)
	}

	return strconv.FormatInt(response.OrderID, 10), nil
}

// GetOrderStatus fetches the state of a previously submitted order.
func (b *BinanceBroker) GetOrderStatus(ctx context.Context, symbol, orderID string) (OrderState, error) {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return OrderState{}, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid binance order id %q", orderID)
	}

	order, err := b.client.NewGetOrderService().
		Symbol(symbol).
		OrderID(id).
		Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if stderrors.As(err, &apiErr) && apiErr.Code == -2013 {
			return OrderState{}, errors.Wrapf(errors.ErrCodeBrokerOrderNotFound, err, "order %s not found", orderID)
		}

		return OrderState{}, errors.Wrap(errors.ErrCodeBrokerTransient, "failed to fetch order status", err)
	}

	executed, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)
	quoteQty, _ := strconv.ParseFloat(order.CummulativeQuoteQuantity, 64)

	state := OrderState{
		ID:             orderID,
		ClientOrderID:  order.ClientOrderID,
		Status:         mapOrderStatus(order.Status),
		FilledQuantity: executed,
	}

	if executed > 0 {
		state.AvgFillPrice = quoteQty / executed
	}

	return state, nil
}

// GetPosition derives the position from the base asset's spot balance.
func (b *BinanceBroker) GetPosition(ctx context.Context, symbol string) (types.Position, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return types.Position{}, errors.Wrap(errors.ErrCodeBrokerTransient, "failed to fetch account balances", err)
	}

	position := types.Position{Symbol: symbol}

	for _, balance := range account.Balances {
		if balance.Asset != b.baseAsset {
			continue
		}

		free, _ := strconv.ParseFloat(balance.Free, 64)
		locked, _ := strconv.ParseFloat(balance.Locked, 64)
		position.Quantity = free + locked

		break
	}

	return position, nil
}

func mapOrderStatus(status binance.OrderStatusType) types.OrderStatus {
	switch status {
	case binance.OrderStatusTypeNew, binance.OrderStatusTypePartiallyFilled:
		return types.OrderStatusPending
	case binance.OrderStatusTypeFilled:
		return types.OrderStatusFilled
	case binance.OrderStatusTypeRejected, binance.OrderStatusTypeExpired:
		return types.OrderStatusRejected
	default:
		return types.OrderStatusFailed
	}
}

// classifySubmitError maps a Binance error to a retryable or terminal
// broker error. API errors whose codes indicate the venue refused the
// order are terminal; everything else, including transport failures, is
// retryable.
func classifySubmitError(err error) error {
	var apiErr *common.APIError
	if stderrors.As(err, &apiErr) && isRejectionCode(apiErr.Code) {
		return errors.Wrap(errors.ErrCodeBrokerRejected, "order rejected by binance", err)
	}

	return errors.Wrap(errors.ErrCodeBrokerTransient, "failed to place order on binance", err)
}

// isRejectionCode reports whether the Binance API error code means the
// order itself was refused: bad lot size or notional, insufficient
// balance, duplicate or malformed parameters.
func isRejectionCode(code int64) bool {
	switch code {
	case -1013, -1102, -1111, -1121, -2010, -2011, -2019:
		return true
	default:
		return false
	}
}
