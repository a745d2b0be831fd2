package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const DefaultURL = "wss://ws.pacifica.fi/ws"

var ErrSymbolNotFound = errors.New("symbol not in price update")

var pricesSubscription = map[string]any{
	"method": "subscribe",
	"params": map[string]any{"source": "prices"},
}

// Feed fetches one oracle price per call over a fresh connection. The caller
// bounds the call with its context.
type Feed struct {
	url  string
	http *http.Client
	log  *zap.Logger
}

func New(url string, httpClient *http.Client, log *zap.Logger) *Feed {
	if strings.TrimSpace(url) == "" {
		url = DefaultURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{url: url, http: httpClient, log: log}
}

type priceUpdate struct {
	Channel string       `json:"channel"`
	Data    []priceEntry `json:"data"`
}

type priceEntry struct {
	Symbol string `json:"symbol"`
	Oracle any    `json:"oracle"`
}

// FetchPrice dials, subscribes to prices, skips the confirmation and reads
// the first update.
func (f *Feed) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	conn, _, err := websocket.Dial(ctx, f.url, &websocket.DialOptions{HTTPClient: f.http})
	if err != nil {
		return 0, fmt.Errorf("dial prices feed: %w", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "done") }()

	if err := writeJSON(ctx, conn, pricesSubscription); err != nil {
		return 0, fmt.Errorf("subscribe prices: %w", err)
	}
	_, confirm, err := conn.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("read subscription confirm: %w", err)
	}
	f.log.Debug("prices subscription confirmed", zap.ByteString("message", confirm))
	_, data, err := conn.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("read price update: %w", err)
	}
	return parseOracle(data, symbol)
}

func parseOracle(data []byte, symbol string) (float64, error) {
	var update priceUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return 0, fmt.Errorf("decode price update: %w", err)
	}
	for _, entry := range update.Data {
		if !strings.EqualFold(entry.Symbol, symbol) {
			continue
		}
		price, ok := positiveFloat(entry.Oracle)
		if !ok {
			return 0, fmt.Errorf("invalid oracle price for %s: %v", symbol, entry.Oracle)
		}
		return price, nil
	}
	return 0, fmt.Errorf("%s: %w", symbol, ErrSymbolNotFound)
}

func positiveFloat(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	return f, f > 0
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
