// Package pacifica adapts the Pacifica REST and price feed to venue.Client.
//
// Pacifica exposes no position endpoint. OpenPosition probes with a
// one-lot reduce-only market order on each side: the venue accepts it only
// when a position it can reduce exists. An accepted probe trims the
// position by one lot, which the close buffer absorbs.
package pacifica

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dual-dex-bot/internal/pacifica/rest"
	"dual-dex-bot/internal/venue"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const noPositionMessage = "no position found"

type OrderAPI interface {
	CreateMarketOrder(ctx context.Context, order rest.MarketOrder) (rest.OrderResponse, error)
	AccountInfo(ctx context.Context) (rest.Account, error)
}

type PriceFeed interface {
	FetchPrice(ctx context.Context, symbol string) (float64, error)
}

type Client struct {
	orders          OrderAPI
	prices          PriceFeed
	lots            map[string]float64
	slippagePercent string
	log             *zap.Logger
}

func New(orders OrderAPI, prices PriceFeed, lots map[string]float64, slippagePercent float64, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	normalized := make(map[string]float64, len(lots))
	for sym, lot := range lots {
		normalized[strings.ToUpper(sym)] = lot
	}
	return &Client{
		orders:          orders,
		prices:          prices,
		lots:            normalized,
		slippagePercent: decimal.NewFromFloat(slippagePercent).String(),
		log:             log,
	}
}

func (c *Client) ID() venue.ID { return venue.Pacifica }

func (c *Client) Init(ctx context.Context) error {
	acct, err := c.orders.AccountInfo(ctx)
	if err != nil {
		return fmt.Errorf("pacifica account: %w: %v", venue.ErrConnectivity, err)
	}
	c.log.Info("pacifica account reachable", zap.String("equity", acct.Equity.String()))
	return nil
}

// Quote returns the oracle price. The feed does not distinguish sides.
func (c *Client) Quote(ctx context.Context, symbol string, side venue.Side) (float64, error) {
	return c.prices.FetchPrice(ctx, strings.ToUpper(symbol))
}

func (c *Client) PlaceOrder(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
	symbol := strings.ToUpper(req.Symbol)
	lot, ok := c.LotSize(symbol)
	if !ok {
		return venue.OrderResult{}, fmt.Errorf("%w: no pacifica lot size for %s", venue.ErrConfiguration, symbol)
	}
	size := venue.RoundToLot(req.Size, lot)
	if req.ReduceOnly {
		size = venue.CeilToLot(req.Size, lot)
	}
	cloid := req.ClientOrderID
	if cloid == "" {
		cloid = uuid.NewString()
	}
	resp, err := c.orders.CreateMarketOrder(ctx, rest.MarketOrder{
		Symbol:          symbol,
		Side:            wireSide(req.Side),
		Amount:          venue.FormatSize(size),
		SlippagePercent: c.slippagePercent,
		ReduceOnly:      req.ReduceOnly,
		ClientOrderID:   cloid,
	})
	if err != nil {
		return venue.OrderResult{}, classify(err)
	}
	return venue.OrderResult{OrderID: resp.OrderID, ClientOrderID: cloid, FilledSize: size}, nil
}

// OpenPosition probes ask then bid. Side is inferred from which probe the
// venue accepted; Size is always zero because the venue cannot tell.
func (c *Client) OpenPosition(ctx context.Context, symbol string) (venue.PositionReport, error) {
	symbol = strings.ToUpper(symbol)
	lot, ok := c.LotSize(symbol)
	if !ok {
		return venue.PositionReport{Status: venue.StatusIndeterminate}, fmt.Errorf("%w: no pacifica lot size for %s", venue.ErrConfiguration, symbol)
	}
	for _, probe := range []struct {
		side   venue.Side
		holder venue.Side
	}{
		{side: venue.Sell, holder: venue.Buy},
		{side: venue.Buy, holder: venue.Sell},
	} {
		_, err := c.PlaceOrder(ctx, venue.OrderRequest{Symbol: symbol, Side: probe.side, Size: lot, ReduceOnly: true})
		switch {
		case err == nil:
			c.log.Debug("pacifica probe accepted", zap.String("symbol", symbol), zap.String("side", string(probe.side)))
			return venue.PositionReport{Status: venue.StatusPresent, Side: probe.holder}, nil
		case errors.Is(err, venue.ErrNoPosition):
			continue
		default:
			c.log.Debug("pacifica probe inconclusive", zap.String("symbol", symbol), zap.Error(err))
			return venue.PositionReport{Status: venue.StatusIndeterminate}, nil
		}
	}
	return venue.PositionReport{Status: venue.StatusAbsent}, nil
}

func (c *Client) AccountEquity(ctx context.Context) (float64, error) {
	acct, err := c.orders.AccountInfo(ctx)
	if err != nil {
		return 0, err
	}
	equity, _ := acct.Equity.Float64()
	return equity, nil
}

func (c *Client) LotSize(symbol string) (float64, bool) {
	lot, ok := c.lots[strings.ToUpper(symbol)]
	return lot, ok && lot > 0
}

func (c *Client) Close() error { return nil }

func wireSide(side venue.Side) string {
	if side == venue.Buy {
		return "bid"
	}
	return "ask"
}

func classify(err error) error {
	var apiErr *rest.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	if strings.Contains(strings.ToLower(apiErr.Message), noPositionMessage) {
		return fmt.Errorf("%w: %v", venue.ErrNoPosition, apiErr)
	}
	if apiErr.Status >= 500 || apiErr.Status == 429 {
		return err
	}
	return fmt.Errorf("%w: %v", venue.ErrOrderRejected, apiErr)
}
