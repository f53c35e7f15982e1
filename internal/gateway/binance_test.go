package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/adshao/go-binance/v2"
	"github.com/nightowl-labs/signal-trader/internal/types"
	pkgerrors "github.com/nightowl-labs/signal-trader/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// Mock implementations for testing

type mockBinanceClient struct {
	createOrderService *mockCreateOrderService
	cancelOrderService *mockCancelOrderService
	getAccountService  *mockGetAccountService
	listPricesService  *mockListPricesService
}

func newMockBinanceClient() *mockBinanceClient {
	return &mockBinanceClient{
		createOrderService: &mockCreateOrderService{},
		cancelOrderService: &mockCancelOrderService{},
		getAccountService:  &mockGetAccountService{},
		listPricesService:  &mockListPricesService{},
	}
}

func (m *mockBinanceClient) NewCreateOrderService() CreateOrderService {
	return m.createOrderService
}

func (m *mockBinanceClient) NewCancelOrderService() CancelOrderService {
	return m.cancelOrderService
}

func (m *mockBinanceClient) NewGetAccountService() GetAccountService {
	return m.getAccountService
}

func (m *mockBinanceClient) NewListPricesService() ListPricesService {
	return m.listPricesService
}

// mockCreateOrderService implements CreateOrderService
type mockCreateOrderService struct {
	response *binance.CreateOrderResponse
	err      error
	symbol   string
	side     binance.SideType
	orderTyp binance.OrderType
	quantity string
	price    string
	tif      binance.TimeInForceType
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
	m.orderTyp = orderType
	return m
}

func (m *mockCreateOrderService) Quantity(quantity string) CreateOrderService {
	m.quantity = quantity
	return m
}

func (m *mockCreateOrderService) Price(price string) CreateOrderService {
	m.price = price
	return m
}

func (m *mockCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	m.tif = tif
	return m
}

func (m *mockCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return m.response, m.err
}

// mockCancelOrderService implements CancelOrderService
type mockCancelOrderService struct {
	response *binance.CancelOrderResponse
	err      error
	symbol   string
	orderID  int64
}

func (m *mockCancelOrderService) Symbol(symbol string) CancelOrderService {
	m.symbol = symbol
	return m
}

func (m *mockCancelOrderService) OrderID(orderID int64) CancelOrderService {
	m.orderID = orderID
	return m
}

func (m *mockCancelOrderService) Do(ctx context.Context) (*binance.CancelOrderResponse, error) {
	return m.response, m.err
}

// mockGetAccountService implements GetAccountService
type mockGetAccountService struct {
	account *binance.Account
	err     error
}

func (m *mockGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return m.account, m.err
}

// mockListPricesService implements ListPricesService
type mockListPricesService struct {
	prices []*binance.SymbolPrice
	err    error
	symbol string
}

func (m *mockListPricesService) Symbol(symbol string) ListPricesService {
	m.symbol = symbol
	return m
}

func (m *mockListPricesService) Do(ctx context.Context) ([]*binance.SymbolPrice, error) {
	return m.prices, m.err
}

type BinanceGatewayTestSuite struct {
	suite.Suite
	client  *mockBinanceClient
	gateway *BinanceGateway
}

func TestBinanceGatewaySuite(t *testing.T) {
	suite.Run(t, new(BinanceGatewayTestSuite))
}

func (suite *BinanceGatewayTestSuite) SetupTest() {
	suite.client = newMockBinanceClient()
	suite.gateway = newBinanceGatewayWithClient(suite.client, "BTC", 0, 6)
}

func (suite *BinanceGatewayTestSuite) TestConfigValidate() {
	config := BinanceConfig{
		ApiKey:    "key",
		SecretKey: "secret",
		Pairing:   "BTC",
	}
	suite.NoError(config.Validate())
}

func (suite *BinanceGatewayTestSuite) TestConfigValidateMissingCredentials() {
	config := BinanceConfig{
		Pairing: "BTC",
	}
	suite.Error(config.Validate())
}

func (suite *BinanceGatewayTestSuite) TestConfigValidateLowercasePairing() {
	config := BinanceConfig{
		ApiKey:    "key",
		SecretKey: "secret",
		Pairing:   "btc",
	}
	suite.Error(config.Validate())
}

func (suite *BinanceGatewayTestSuite) TestQuote() {
	suite.client.listPricesService.prices = []*binance.SymbolPrice{
		{Symbol: "FOOBTC", Price: "10.5"},
	}

	quote, err := suite.gateway.Quote(context.Background(), "FOO")
	suite.NoError(err)
	suite.Equal(types.Symbol("FOO"), quote.Symbol)
	suite.True(quote.Price.Equal(decimal.RequireFromString("10.5")))
	suite.Equal("FOOBTC", suite.client.listPricesService.symbol)
	suite.False(quote.ObservedAt.IsZero())
}

func (suite *BinanceGatewayTestSuite) TestQuoteTransportError() {
	suite.client.listPricesService.err = errors.New("connection refused")

	_, err := suite.gateway.Quote(context.Background(), "FOO")
	suite.Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeQuoteFailed))
	suite.True(pkgerrors.IsGateway(err))
}

func (suite *BinanceGatewayTestSuite) TestQuoteNoPrice() {
	suite.client.listPricesService.prices = []*binance.SymbolPrice{}

	_, err := suite.gateway.Quote(context.Background(), "FOO")
	suite.Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeQuoteFailed))
}

func (suite *BinanceGatewayTestSuite) TestQuoteNonPositivePrice() {
	suite.client.listPricesService.prices = []*binance.SymbolPrice{
		{Symbol: "FOOBTC", Price: "0"},
	}

	_, err := suite.gateway.Quote(context.Background(), "FOO")
	suite.Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeInvalidPrice))
}

func (suite *BinanceGatewayTestSuite) TestPlaceMarketOrder() {
	suite.client.createOrderService.response = &binance.CreateOrderResponse{
		OrderID:          12345,
		ExecutedQuantity: "5",
		Status:           binance.OrderStatusTypeFilled,
		TransactTime:     1700000000000,
	}

	order, err := suite.gateway.PlaceMarketOrder(context.Background(), "FOO", types.SideBuy, decimal.NewFromInt(5))
	suite.NoError(err)
	suite.Equal("12345", order.ID)
	suite.Equal(types.Symbol("FOO"), order.Symbol)
	suite.Equal(types.SideBuy, order.Side)
	suite.Equal(types.OrderKindMarket, order.Kind)
	suite.Equal(types.OrderStatusFilled, order.Status)
	suite.True(order.Quantity.Equal(decimal.NewFromInt(5)))
	suite.True(order.Price.IsNone())

	suite.Equal("FOOBTC", suite.client.createOrderService.symbol)
	suite.Equal(binance.SideTypeBuy, suite.client.createOrderService.side)
	suite.Equal(binance.OrderTypeMarket, suite.client.createOrderService.orderTyp)
	suite.Equal("5", suite.client.createOrderService.quantity)
}

func (suite *BinanceGatewayTestSuite) TestPlaceMarketOrderFloorsQuantity() {
	suite.client.createOrderService.response = &binance.CreateOrderResponse{
		OrderID: 1,
		Status:  binance.OrderStatusTypeFilled,
	}

	_, err := suite.gateway.PlaceMarketOrder(context.Background(), "FOO", types.SideBuy, decimal.RequireFromString("5.9"))
	suite.NoError(err)
	suite.Equal("5", suite.client.createOrderService.quantity)
}

func (suite *BinanceGatewayTestSuite) TestPlaceMarketOrderQuantityTooSmall() {
	_, err := suite.gateway.PlaceMarketOrder(context.Background(), "FOO", types.SideBuy, decimal.RequireFromString("0.4"))
	suite.Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeInvalidLot))
}

func (suite *BinanceGatewayTestSuite) TestPlaceMarketOrderZeroQuantity() {
	_, err := suite.gateway.PlaceMarketOrder(context.Background(), "FOO", types.SideBuy, decimal.Zero)
	suite.Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeInvalidLot))
}

func (suite *BinanceGatewayTestSuite) TestPlaceMarketOrderVenueError() {
	suite.client.createOrderService.err = errors.New("insufficient balance")

	_, err := suite.gateway.PlaceMarketOrder(context.Background(), "FOO", types.SideBuy, decimal.NewFromInt(5))
	suite.Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeOrderFailed))
}

func (suite *BinanceGatewayTestSuite) TestPlaceMarketOrderInvalidSide() {
	_, err := suite.gateway.PlaceMarketOrder(context.Background(), "FOO", "HOLD", decimal.NewFromInt(5))
	suite.Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeGatewayError))
}

func (suite *BinanceGatewayTestSuite) TestPlaceLimitOrder() {
	suite.client.createOrderService.response = &binance.CreateOrderResponse{
		OrderID: 777,
		Status:  binance.OrderStatusTypeNew,
	}

	order, err := suite.gateway.PlaceLimitOrder(context.Background(), "FOO", types.SideSell,
		decimal.NewFromInt(5), decimal.RequireFromString("9.1234567"))
	suite.NoError(err)
	suite.Equal("777", order.ID)
	suite.Equal(types.OrderKindLimit, order.Kind)
	suite.Equal(types.OrderStatusNew, order.Status)
	suite.True(order.Price.IsSome())
	suite.True(order.Price.Unwrap().Equal(decimal.RequireFromString("9.123457")))

	suite.Equal(binance.OrderTypeLimit, suite.client.createOrderService.orderTyp)
	suite.Equal("9.123457", suite.client.createOrderService.price)
	suite.Equal(binance.TimeInForceTypeGTC, suite.client.createOrderService.tif)
}

func (suite *BinanceGatewayTestSuite) TestPlaceLimitOrderNonPositivePrice() {
	_, err := suite.gateway.PlaceLimitOrder(context.Background(), "FOO", types.SideSell,
		decimal.NewFromInt(5), decimal.Zero)
	suite.Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeInvalidPrice))
}

func (suite *BinanceGatewayTestSuite) TestCancelOrder() {
	suite.client.cancelOrderService.response = &binance.CancelOrderResponse{}

	err := suite.gateway.CancelOrder(context.Background(), "FOO", "12345")
	suite.NoError(err)
	suite.Equal("FOOBTC", suite.client.cancelOrderService.symbol)
	suite.Equal(int64(12345), suite.client.cancelOrderService.orderID)
}

func (suite *BinanceGatewayTestSuite) TestCancelOrderInvalidID() {
	err := suite.gateway.CancelOrder(context.Background(), "FOO", "not-a-number")
	suite.Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeCancelFailed))
}

func (suite *BinanceGatewayTestSuite) TestCancelOrderVenueError() {
	suite.client.cancelOrderService.err = errors.New("unknown order")

	err := suite.gateway.CancelOrder(context.Background(), "FOO", "12345")
	suite.Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeCancelFailed))
}

func (suite *BinanceGatewayTestSuite) TestBalance() {
	suite.client.getAccountService.account = &binance.Account{
		Balances: []binance.Balance{
			{Asset: "BTC", Free: "0.5", Locked: "0.1"},
			{Asset: "FOO", Free: "100", Locked: "0"},
		},
	}

	balance, err := suite.gateway.Balance(context.Background(), "FOO")
	suite.NoError(err)
	suite.True(balance.Equal(decimal.NewFromInt(100)))
}

func (suite *BinanceGatewayTestSuite) TestBalanceMissingAsset() {
	suite.client.getAccountService.account = &binance.Account{
		Balances: []binance.Balance{},
	}

	balance, err := suite.gateway.Balance(context.Background(), "FOO")
	suite.NoError(err)
	suite.True(balance.IsZero())
}

func (suite *BinanceGatewayTestSuite) TestBalanceTransportError() {
	suite.client.getAccountService.err = errors.New("connection refused")

	_, err := suite.gateway.Balance(context.Background(), "FOO")
	suite.Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeBalanceFailed))
}
