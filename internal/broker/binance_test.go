package broker

import (
	"context"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/google/uuid"
	"github.com/meridian-quant/meridian-trading/internal/types"
	"github.com/meridian-quant/meridian-trading/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type mockBinanceClient struct {
	createOrderService *mockCreateOrderService
	getOrderService    *mockGetOrderService
	getAccountService  *mockGetAccountService
}

func newMockBinanceClient() *mockBinanceClient {
	return &mockBinanceClient{
		createOrderService: &mockCreateOrderService{},
		getOrderService:    &mockGetOrderService{},
		getAccountService:  &mockGetAccountService{},
	}
}

func (m *mockBinanceClient) NewCreateOrderService() CreateOrderService {
	return m.createOrderService
}

func (m *mockBinanceClient) NewGetOrderService() GetOrderService {
	return m.getOrderService
}

func (m *mockBinanceClient) NewGetAccountService() GetAccountService {
	return m.getAccountService
}

type mockCreateOrderService struct {
	response      *binance.CreateOrderResponse
	err           error
	symbol        string
	side          binance.SideType
	orderType     binance.OrderType
	quantity      string
	clientOrderID string
}

func (m *mockCreateOrderService) Symbol(symbol string) CreateOrderService {
	m.symbol = symbol

	return m
}

func (m *mockCreateOrderService) Side(side binance.SideType) CreateOrderService {
	m.side = side

	return m
}

func (m *mockCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	m.orderType = orderType

	return m
}

func (m *mockCreateOrderService) Quantity(quantity string) CreateOrderService {
	m.quantity = quantity

	return m
}

func (m *mockCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	m.clientOrderID = id

	return m
}

func (m *mockCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return m.response, m.err
}

type mockGetOrderService struct {
	order *binance.Order
	err   error
}

func (m *mockGetOrderService) Symbol(symbol string) GetOrderService {
	return m
}

func (m *mockGetOrderService) OrderID(orderID int64) GetOrderService {
	return m
}

func (m *mockGetOrderService) Do(ctx context.Context) (*binance.Order, error) {
	return m.order, m.err
}

type mockGetAccountService struct {
	account *binance.Account
	err     error
}

func (m *mockGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return m.account, m.err
}

type BinanceBrokerTestSuite struct {
	suite.Suite
	client *mockBinanceClient
	broker *BinanceBroker
}

func TestBinanceBrokerSuite(t *testing.T) {
	suite.Run(t, new(BinanceBrokerTestSuite))
}

func (suite *BinanceBrokerTestSuite) SetupTest() {
	suite.client = newMockBinanceClient()
	suite.broker = newBinanceBrokerWithClient(suite.client, "BTC", 5)
}

func (suite *BinanceBrokerTestSuite) intent(side types.Side, quantity float64) types.OrderIntent {
	return types.OrderIntent{
		ID:           uuid.NewString(),
		Symbol:       "BTCUSDT",
		Side:         side,
		Quantity:     quantity,
		Type:         types.OrderTypeMarket,
		StrategyName: "ma_crossover",
		CreatedAt:    time.Now(),
	}
}

func (suite *BinanceBrokerTestSuite) TestSubmitOrder() {
	suite.client.createOrderService.response = &binance.CreateOrderResponse{OrderID: 12345}

	intent := suite.intent(types.SideBuy, 0.123456789)

	orderID, err := suite.broker.SubmitOrder(context.Background(), intent)
	suite.Require().NoError(err)
	suite.Equal("12345", orderID)

	suite.Equal("BTCUSDT", suite.client.createOrderService.symbol)
	suite.Equal(binance.SideTypeBuy, suite.client.createOrderService.side)
	suite.Equal(binance.OrderTypeMarket, suite.client.createOrderService.orderType)
	suite.Equal("0.12345", suite.client.createOrderService.quantity)
	suite.Equal(intent.ID, suite.client.createOrderService.clientOrderID)
}

func (suite *BinanceBrokerTestSuite) TestSubmitOrderQuantityTooSmall() {
	_, err := suite.broker.SubmitOrder(context.Background(), suite.intent(types.SideBuy, 0.0000001))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *BinanceBrokerTestSuite) TestSubmitOrderRejection() {
	suite.client.createOrderService.err = &common.APIError{Code: -2010, Message: "Account has insufficient balance"}

	_, err := suite.broker.SubmitOrder(context.Background(), suite.intent(types.SideBuy, 1))
	suite.Require().Error(err)
	suite.True(errors.IsRejected(err))
	suite.False(errors.IsTransient(err))
}

func (suite *BinanceBrokerTestSuite) TestSubmitOrderTransientFailure() {
	suite.client.createOrderService.err = &common.APIError{Code: -1003, Message: "Too many requests"}

	_, err := suite.broker.SubmitOrder(context.Background(), suite.intent(types.SideSell, 1))
	suite.Require().Error(err)
	suite.True(errors.IsTransient(err))
	suite.False(errors.IsRejected(err))
}

func (suite *BinanceBrokerTestSuite) TestGetOrderStatusFilled() {
	suite.client.getOrderService.order = &binance.Order{
		OrderID:                  12345,
		ClientOrderID:            "abc",
		Status:                   binance.OrderStatusTypeFilled,
		ExecutedQuantity:         "2",
		CummulativeQuoteQuantity: "200",
	}

	state, err := suite.broker.GetOrderStatus(context.Background(), "BTCUSDT", "12345")
	suite.Require().NoError(err)
	suite.Equal(types.OrderStatusFilled, state.Status)
	suite.Equal("abc", state.ClientOrderID)
	suite.InDelta(2.0, state.FilledQuantity, 1e-9)
	suite.InDelta(100.0, state.AvgFillPrice, 1e-9)
}

func (suite *BinanceBrokerTestSuite) TestGetOrderStatusNotFound() {
	suite.client.getOrderService.err = &common.APIError{Code: -2013, Message: "Order does not exist"}

	_, err := suite.broker.GetOrderStatus(context.Background(), "BTCUSDT", "12345")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeBrokerOrderNotFound))
}

func (suite *BinanceBrokerTestSuite) TestGetOrderStatusInvalidID() {
	_, err := suite.broker.GetOrderStatus(context.Background(), "BTCUSDT", "not-a-number")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *BinanceBrokerTestSuite) TestGetPosition() {
	suite.client.getAccountService.account = &binance.Account{
		Balances: []binance.Balance{
			{Asset: "USDT", Free: "1000", Locked: "0"},
			{Asset: "BTC", Free: "0.5", Locked: "0.25"},
		},
	}

	position, err := suite.broker.GetPosition(context.Background(), "BTCUSDT")
	suite.Require().NoError(err)
	suite.Equal("BTCUSDT", position.Symbol)
	suite.InDelta(0.75, position.Quantity, 1e-9)
}

func (suite *BinanceBrokerTestSuite) TestGetPositionNoBalance() {
	suite.client.getAccountService.account = &binance.Account{
		Balances: []binance.Balance{{Asset: "USDT", Free: "1000", Locked: "0"}},
	}

	position, err := suite.broker.GetPosition(context.Background(), "BTCUSDT")
	suite.Require().NoError(err)
	suite.True(position.IsFlat())
}

func (suite *BinanceBrokerTestSuite) TestParseBinanceConfig() {
	config, err := ParseBinanceConfig("api_key: k\nsecret_key: s\nbase_asset: BTC\nuse_testnet: true\n")
	suite.Require().NoError(err)
	suite.Equal("BTC", config.BaseAsset)
	suite.True(config.UseTestnet)
}

func (suite *BinanceBrokerTestSuite) TestParseBinanceConfigMissingKey() {
	_, err := ParseBinanceConfig("api_key: k\n")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}
