package gateway

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/moznion/go-optional"
	"github.com/nightowl-labs/signal-trader/internal/types"
	"github.com/nightowl-labs/signal-trader/pkg/errors"
	"github.com/shopspring/decimal"
)

// Service interfaces for mocking the Binance API

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	Price(price string) CreateOrderService
	TimeInForce(tif binance.TimeInForceType) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// CancelOrderService interface for canceling orders.
type CancelOrderService interface {
	Symbol(symbol string) CancelOrderService
	OrderID(orderID int64) CancelOrderService
	Do(ctx context.Context) (*binance.CancelOrderResponse, error)
}

// GetAccountService interface for getting account info.
type GetAccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

// ListPricesService interface for fetching last traded prices.
type ListPricesService interface {
	Symbol(symbol string) ListPricesService
	Do(ctx context.Context) ([]*binance.SymbolPrice, error)
}

// BinanceClient interface abstracts the Binance client for testing.
type BinanceClient interface {
	NewCreateOrderService() CreateOrderService
	NewCancelOrderService() CancelOrderService
	NewGetAccountService() GetAccountService
	NewListPricesService() ListPricesService
}

// realBinanceClient wraps the actual binance.Client.
type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewCancelOrderService() CancelOrderService {
	return &realCancelOrderService{service: r.client.NewCancelOrderService()}
}

func (r *realBinanceClient) NewGetAccountService() GetAccountService {
	return &realGetAccountService{service: r.client.NewGetAccountService()}
}

func (r *realBinanceClient) NewListPricesService() ListPricesService {
	return &realListPricesService{service: r.client.NewListPricesService()}
}

// Real service wrappers

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

func (s *realCreateOrderService) Price(price string) CreateOrderService {
	s.service = s.service.Price(price)

	return s
}

func (s *realCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	s.service = s.service.TimeInForce(tif)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realCancelOrderService struct {
	service *binance.CancelOrderService
}

func (s *realCancelOrderService) Symbol(symbol string) CancelOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCancelOrderService) OrderID(orderID int64) CancelOrderService {
	s.service = s.service.OrderID(orderID)

	return s
}

func (s *realCancelOrderService) Do(ctx context.Context) (*binance.CancelOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetAccountService struct {
	service *binance.GetAccountService
}

func (s *realGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

type realListPricesService struct {
	service *binance.ListPricesService
}

func (s *realListPricesService) Symbol(symbol string) ListPricesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realListPricesService) Do(ctx context.Context) ([]*binance.SymbolPrice, error) {
	return s.service.Do(ctx)
}

// BinanceGateway implements Gateway against the Binance spot API. It is
// stateless; position bookkeeping lives in the store, not here.
type BinanceGateway struct {
	client         BinanceClient
	pairing        string
	lotPrecision   int32
	pricePrecision int32
}

// NewBinanceGateway creates a Binance gateway from the given config.
// If config.Testnet is true, calls go to the Binance spot testnet; a
// non-empty config.BaseURL takes precedence.
func NewBinanceGateway(config BinanceConfig) (*BinanceGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Testnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(config.ApiKey, config.SecretKey)
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return &BinanceGateway{
		client:         &realBinanceClient{client: client},
		pairing:        config.Pairing,
		lotPrecision:   config.LotPrecision,
		pricePrecision: config.PricePrecision,
	}, nil
}

// newBinanceGatewayWithClient creates a gateway with a custom client.
// This is used for testing with mock clients.
func newBinanceGatewayWithClient(client BinanceClient, pairing string, lotPrecision, pricePrecision int32) *BinanceGateway {
	return &BinanceGateway{
		client:         client,
		pairing:        pairing,
		lotPrecision:   lotPrecision,
		pricePrecision: pricePrecision,
	}
}

// Quote returns the last traded price for the symbol's pair.
func (g *BinanceGateway) Quote(ctx context.Context, symbol types.Symbol) (types.Quote, error) {
	pair := symbol.Pair(g.pairing)

	prices, err := g.client.NewListPricesService().Symbol(pair).Do(ctx)
	if err != nil {
		return types.Quote{}, errors.Wrapf(errors.ErrCodeQuoteFailed, err, "failed to fetch price for %s", pair)
	}

	if len(prices) == 0 {
		return types.Quote{}, errors.Newf(errors.ErrCodeQuoteFailed, "no price returned for %s", pair)
	}

	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return types.Quote{}, errors.Wrapf(errors.ErrCodeQuoteFailed, err, "unparseable price %q for %s", prices[0].Price, pair)
	}

	quote := types.Quote{
		Symbol:     symbol,
		Price:      price,
		ObservedAt: time.Now(),
	}
	if err := quote.Validate(); err != nil {
		return types.Quote{}, err
	}

	return quote, nil
}

// PlaceMarketOrder places a market order and returns the acknowledged order.
func (g *BinanceGateway) PlaceMarketOrder(ctx context.Context, symbol types.Symbol, side types.Side, quantity decimal.Decimal) (types.Order, error) {
	return g.placeOrder(ctx, symbol, side, types.OrderKindMarket, quantity, decimal.Zero)
}

// PlaceLimitOrder places a good-till-cancelled limit order.
func (g *BinanceGateway) PlaceLimitOrder(ctx context.Context, symbol types.Symbol, side types.Side, quantity, price decimal.Decimal) (types.Order, error) {
	if price.Sign() <= 0 {
		return types.Order{}, errors.Newf(errors.ErrCodeInvalidPrice, "limit price must be positive, got %s", price)
	}

	return g.placeOrder(ctx, symbol, side, types.OrderKindLimit, quantity, price)
}

func (g *BinanceGateway) placeOrder(ctx context.Context, symbol types.Symbol, side types.Side, kind types.OrderKind, quantity, price decimal.Decimal) (types.Order, error) {
	binanceSide, err := mapSide(side)
	if err != nil {
		return types.Order{}, err
	}

	if quantity.Sign() <= 0 {
		return types.Order{}, errors.Newf(errors.ErrCodeInvalidLot, "order quantity must be positive, got %s", quantity)
	}

	quantity = quantity.RoundFloor(g.lotPrecision)
	if quantity.Sign() == 0 {
		return types.Order{}, errors.Newf(errors.ErrCodeInvalidLot,
			"order quantity is too small after flooring to %d decimal places", g.lotPrecision)
	}

	service := g.client.NewCreateOrderService().
		Symbol(symbol.Pair(g.pairing)).
		Side(binanceSide).
		Type(mapKind(kind)).
		Quantity(quantity.StringFixed(g.lotPrecision))

	if kind == types.OrderKindLimit {
		price = price.Round(g.pricePrecision)
		service = service.
			Price(price.StringFixed(g.pricePrecision)).
			TimeInForce(binance.TimeInForceTypeGTC)
	}

	response, err := service.Do(ctx)
	if err != nil {
		return types.Order{}, errors.Wrapf(errors.ErrCodeOrderFailed, err,
			"failed to place %s %s order for %s", side, kind, symbol)
	}

	return orderFromResponse(symbol, side, kind, quantity, price, response), nil
}

// CancelOrder cancels a standing order by id.
func (g *BinanceGateway) CancelOrder(ctx context.Context, symbol types.Symbol, orderID string) error {
	binanceOrderID, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeCancelFailed, err, "invalid order id %q", orderID)
	}

	_, err = g.client.NewCancelOrderService().
		Symbol(symbol.Pair(g.pairing)).
		OrderID(binanceOrderID).
		Do(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeCancelFailed, err, "failed to cancel order %s for %s", orderID, symbol)
	}

	return nil
}

// Balance returns the free balance of a single asset.
func (g *BinanceGateway) Balance(ctx context.Context, asset string) (decimal.Decimal, error) {
	account, err := g.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrap(errors.ErrCodeBalanceFailed, "failed to fetch account info", err)
	}

	for _, balance := range account.Balances {
		if balance.Asset != asset {
			continue
		}

		free, err := decimal.NewFromString(balance.Free)
		if err != nil {
			return decimal.Zero, errors.Wrapf(errors.ErrCodeBalanceFailed, err, "unparseable balance %q for %s", balance.Free, asset)
		}

		return free, nil
	}

	return decimal.Zero, nil
}

func mapSide(side types.Side) (binance.SideType, error) {
	switch side {
	case types.SideBuy:
		return binance.SideTypeBuy, nil
	case types.SideSell:
		return binance.SideTypeSell, nil
	default:
		return "", errors.Newf(errors.ErrCodeGatewayError, "unsupported order side: %s", side)
	}
}

func mapKind(kind types.OrderKind) binance.OrderType {
	if kind == types.OrderKindLimit {
		return binance.OrderTypeLimit
	}

	return binance.OrderTypeMarket
}

func mapStatus(status binance.OrderStatusType) types.OrderStatus {
	switch status {
	case binance.OrderStatusTypeFilled, binance.OrderStatusTypePartiallyFilled:
		return types.OrderStatusFilled
	case binance.OrderStatusTypeCanceled:
		return types.OrderStatusCancelled
	case binance.OrderStatusTypeRejected:
		return types.OrderStatusRejected
	default:
		return types.OrderStatusNew
	}
}

func orderFromResponse(symbol types.Symbol, side types.Side, kind types.OrderKind, requestedQty, price decimal.Decimal, response *binance.CreateOrderResponse) types.Order {
	quantity := requestedQty
	if executed, err := decimal.NewFromString(response.ExecutedQuantity); err == nil && executed.Sign() > 0 {
		quantity = executed
	}

	orderPrice := optional.None[decimal.Decimal]()
	if kind == types.OrderKindLimit {
		orderPrice = optional.Some(price)
	}

	return types.Order{
		ID:        strconv.FormatInt(response.OrderID, 10),
		Symbol:    symbol,
		Side:      side,
		Kind:      kind,
		Quantity:  quantity,
		Price:     orderPrice,
		Status:    mapStatus(response.Status),
		CreatedAt: time.UnixMilli(response.TransactTime),
	}
}
