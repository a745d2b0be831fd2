package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dual-dex-bot/internal/httpx"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL      = "https://api.pacifica.fi/api/v1"
	DefaultExpiryWindow = 5 * time.Second

	typeCreateMarketOrder = "create_market_order"
)

// MarketOrder is the signed payload of POST /orders/create_market.
type MarketOrder struct {
	Symbol          string `json:"symbol"`
	Side            string `json:"side"`
	Amount          string `json:"amount"`
	SlippagePercent string `json:"slippage_percent"`
	ReduceOnly      bool   `json:"reduce_only"`
	ClientOrderID   string `json:"client_order_id"`
}

type OrderResponse struct {
	OrderID string
}

type Account struct {
	Balance decimal.Decimal
	Equity  decimal.Decimal
}

// APIError carries the exchange's own error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("pacifica %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("pacifica %d: %s", e.Status, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   any             `json:"error"`
	Code    any             `json:"code"`
}

type Client struct {
	baseURL   string
	requester *httpx.Requester
	signer    *Signer
	expiry    time.Duration
	now       func() time.Time
	log       *zap.Logger
}

func New(baseURL string, requester *httpx.Requester, signer *Signer, expiry time.Duration, log *zap.Logger) (*Client, error) {
	if signer == nil {
		return nil, errors.New("signer is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if requester == nil {
		requester = &httpx.Requester{}
	}
	if expiry <= 0 {
		expiry = DefaultExpiryWindow
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		requester: requester,
		signer:    signer,
		expiry:    expiry,
		now:       time.Now,
		log:       log,
	}, nil
}

func (c *Client) Account() string {
	return c.signer.Account()
}

func (c *Client) CreateMarketOrder(ctx context.Context, order MarketOrder) (OrderResponse, error) {
	header := Header{
		Type:         typeCreateMarketOrder,
		Timestamp:    c.now().UnixMilli(),
		ExpiryWindow: c.expiry.Milliseconds(),
	}
	_, sig, err := c.signer.Sign(header, order)
	if err != nil {
		return OrderResponse{}, err
	}
	body := map[string]any{
		"account":          c.signer.Account(),
		"signature":        sig,
		"timestamp":        header.Timestamp,
		"expiry_window":    header.ExpiryWindow,
		"symbol":           order.Symbol,
		"side":             order.Side,
		"amount":           order.Amount,
		"slippage_percent": order.SlippagePercent,
		"reduce_only":      order.ReduceOnly,
		"client_order_id":  order.ClientOrderID,
	}
	var data struct {
		OrderID json.RawMessage `json:"order_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/orders/create_market", body, &data); err != nil {
		return OrderResponse{}, err
	}
	id := strings.Trim(string(data.OrderID), `"`)
	if id == "" || id == "null" {
		id = order.ClientOrderID
	}
	return OrderResponse{OrderID: id}, nil
}

func (c *Client) AccountInfo(ctx context.Context) (Account, error) {
	var data struct {
		Balance       string `json:"balance"`
		AccountEquity string `json:"account_equity"`
	}
	path := "/account?account=" + url.QueryEscape(c.signer.Account())
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return Account{}, err
	}
	var acct Account
	var err error
	if data.Balance != "" {
		if acct.Balance, err = decimal.NewFromString(data.Balance); err != nil {
			return Account{}, fmt.Errorf("parse balance: %w", err)
		}
	}
	if data.AccountEquity != "" {
		if acct.Equity, err = decimal.NewFromString(data.AccountEquity); err != nil {
			return Account{}, fmt.Errorf("parse account equity: %w", err)
		}
	} else {
		acct.Equity = acct.Balance
	}
	return acct, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var env envelope
	err := c.requester.Do(ctx, method, c.baseURL+path, body, &env)
	var statusErr *httpx.StatusError
	if errors.As(err, &statusErr) {
		return apiErrorFromBody(statusErr.Status, statusErr.Body)
	}
	if err != nil {
		return err
	}
	if !env.Success {
		return &APIError{Status: http.StatusOK, Code: textOf(env.Code), Message: textOf(env.Error)}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func apiErrorFromBody(status int, body string) *APIError {
	var env envelope
	if err := json.Unmarshal([]byte(body), &env); err == nil && env.Error != nil {
		return &APIError{Status: status, Code: textOf(env.Code), Message: textOf(env.Error)}
	}
	return &APIError{Status: status, Message: body}
}

func textOf(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
