// Package hyperliquid adapts the Hyperliquid info and exchange APIs to
// venue.Client.
package hyperliquid

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"dual-dex-bot/internal/hl/exchange"
	"dual-dex-bot/internal/httpx"
	"dual-dex-bot/internal/venue"

	"go.uber.org/zap"
)

// InfoAPI is the read side, served by hl/rest.
type InfoAPI interface {
	Meta(ctx context.Context) (map[string]any, error)
	L2Book(ctx context.Context, coin string) (map[string]any, error)
	ClearinghouseState(ctx context.Context, user string) (map[string]any, error)
}

// OrderAPI is the signed write side, served by hl/exchange.
type OrderAPI interface {
	PlaceOrder(ctx context.Context, order exchange.OrderWire) (exchange.OrderStatus, error)
}

type Client struct {
	info   InfoAPI
	orders OrderAPI
	user   string
	lots   map[string]float64
	log    *zap.Logger

	mu     sync.RWMutex
	assets map[string]assetMeta
}

func New(info InfoAPI, orders OrderAPI, user string, lots map[string]float64, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	normalized := make(map[string]float64, len(lots))
	for sym, lot := range lots {
		normalized[strings.ToUpper(sym)] = lot
	}
	return &Client{info: info, orders: orders, user: user, lots: normalized, log: log}
}

func (c *Client) ID() venue.ID { return venue.Hyperliquid }

// Init loads the perp universe. Every symbol with a configured lot must be
// listed.
func (c *Client) Init(ctx context.Context) error {
	payload, err := c.info.Meta(ctx)
	if err != nil {
		return fmt.Errorf("hyperliquid meta: %w: %v", venue.ErrConnectivity, err)
	}
	assets, err := parseUniverse(payload)
	if err != nil {
		return fmt.Errorf("hyperliquid meta: %w: %v", venue.ErrConnectivity, err)
	}
	for sym := range c.lots {
		if _, ok := assets[sym]; !ok {
			return fmt.Errorf("%w: %s is not a hyperliquid perp", venue.ErrConfiguration, sym)
		}
	}
	c.mu.Lock()
	c.assets = assets
	c.mu.Unlock()
	c.log.Info("hyperliquid universe loaded", zap.Int("assets", len(assets)))
	return nil
}

func (c *Client) Quote(ctx context.Context, symbol string, side venue.Side) (float64, error) {
	book, err := c.info.L2Book(ctx, strings.ToUpper(symbol))
	if err != nil {
		return 0, fmt.Errorf("l2Book %s: %w", symbol, err)
	}
	px, ok := bestLevel(book, side == venue.Buy)
	if !ok {
		return 0, fmt.Errorf("%w: empty %s book for %s", venue.ErrQuoteUnavailable, side, symbol)
	}
	return px, nil
}

// PlaceOrder sends an IOC limit at req.Price. Reduce-only sizes round up so
// a buffered close never undershoots the position.
func (c *Client) PlaceOrder(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
	symbol := strings.ToUpper(req.Symbol)
	asset, ok := c.asset(symbol)
	if !ok {
		return venue.OrderResult{}, fmt.Errorf("%w: unknown hyperliquid asset %s", venue.ErrConfiguration, symbol)
	}
	if req.Price <= 0 {
		return venue.OrderResult{}, fmt.Errorf("%w: limit price required for %s", venue.ErrOrderRejected, symbol)
	}
	lot, _ := c.LotSize(symbol)
	size := venue.RoundToLot(req.Size, lot)
	if req.ReduceOnly {
		size = venue.CeilToLot(req.Size, lot)
	}
	size = exchange.RoundSize(size, asset.SzDecimals)
	price := exchange.NormalizePerpPrice(req.Price, asset.SzDecimals)
	wire, err := exchange.LimitOrderWire(asset.Index, req.Side == venue.Buy, size, price, req.ReduceOnly, exchange.TifIoc, exchange.CloidFromString(req.ClientOrderID))
	if err != nil {
		return venue.OrderResult{}, fmt.Errorf("%w: %v", venue.ErrOrderRejected, err)
	}
	status, err := c.orders.PlaceOrder(ctx, wire)
	if err != nil {
		return venue.OrderResult{}, classify(err)
	}
	return venue.OrderResult{
		OrderID:       status.OrderID,
		ClientOrderID: req.ClientOrderID,
		FilledSize:    status.FilledSize,
	}, nil
}

func (c *Client) OpenPosition(ctx context.Context, symbol string) (venue.PositionReport, error) {
	state, err := c.info.ClearinghouseState(ctx, c.user)
	if err != nil {
		return venue.PositionReport{Status: venue.StatusIndeterminate}, fmt.Errorf("clearinghouseState: %w", err)
	}
	szi, ok := signedPosition(state, symbol)
	if !ok || szi == 0 {
		return venue.PositionReport{Status: venue.StatusAbsent}, nil
	}
	side := venue.Buy
	if szi < 0 {
		side = venue.Sell
	}
	return venue.PositionReport{Status: venue.StatusPresent, Side: side, Size: math.Abs(szi)}, nil
}

func (c *Client) AccountEquity(ctx context.Context) (float64, error) {
	state, err := c.info.ClearinghouseState(ctx, c.user)
	if err != nil {
		return 0, fmt.Errorf("clearinghouseState: %w", err)
	}
	value, ok := accountValue(state)
	if !ok {
		return 0, errors.New("clearinghouseState missing accountValue")
	}
	return value, nil
}

// LotSize prefers the configured lot and falls back to 10^-szDecimals.
func (c *Client) LotSize(symbol string) (float64, bool) {
	symbol = strings.ToUpper(symbol)
	if lot, ok := c.lots[symbol]; ok && lot > 0 {
		return lot, true
	}
	if asset, ok := c.asset(symbol); ok {
		return math.Pow10(-asset.SzDecimals), true
	}
	return 0, false
}

func (c *Client) Close() error { return nil }

func (c *Client) asset(symbol string) (assetMeta, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.assets[symbol]
	return a, ok
}

// classify maps exchange answers onto the venue taxonomy. Transport and
// 5xx errors stay unwrapped so the executor retries them.
func classify(err error) error {
	var actionErr *exchange.ActionError
	if errors.As(err, &actionErr) {
		msg := strings.ToLower(actionErr.Message)
		if strings.Contains(msg, "reduce only order would increase position") || strings.Contains(msg, "no position") {
			return fmt.Errorf("%w: %s", venue.ErrNoPosition, actionErr.Message)
		}
		return fmt.Errorf("%w: %s", venue.ErrOrderRejected, actionErr.Message)
	}
	var statusErr *httpx.StatusError
	if errors.As(err, &statusErr) && statusErr.Status >= 400 && statusErr.Status < 500 && statusErr.Status != 429 {
		return fmt.Errorf("%w: %v", venue.ErrOrderRejected, statusErr)
	}
	return err
}
