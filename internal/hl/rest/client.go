package rest

import (
	"context"
	"net/http"
	"strings"

	"dual-dex-bot/internal/httpx"

	"go.uber.org/zap"
)

// Client talks to the public /info endpoint.
type Client struct {
	baseURL   string
	requester *httpx.Requester
	log       *zap.Logger
}

func New(baseURL string, requester *httpx.Requester, log *zap.Logger) *Client {
	if requester == nil {
		requester = &httpx.Requester{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		requester: requester,
		log:       log,
	}
}

type InfoRequest struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
	Coin string `json:"coin,omitempty"`
}

func (c *Client) Info(ctx context.Context, req InfoRequest) (map[string]any, error) {
	var data map[string]any
	if err := c.requester.Do(ctx, http.MethodPost, c.baseURL+"/info", req, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// Meta returns the perp universe: name, szDecimals and maxLeverage per asset.
func (c *Client) Meta(ctx context.Context) (map[string]any, error) {
	return c.Info(ctx, InfoRequest{Type: "meta"})
}

// L2Book returns levels[0] as bids and levels[1] as asks, best first.
func (c *Client) L2Book(ctx context.Context, coin string) (map[string]any, error) {
	return c.Info(ctx, InfoRequest{Type: "l2Book", Coin: coin})
}

func (c *Client) ClearinghouseState(ctx context.Context, user string) (map[string]any, error) {
	return c.Info(ctx, InfoRequest{Type: "clearinghouseState", User: user})
}
