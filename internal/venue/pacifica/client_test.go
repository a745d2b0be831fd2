package pacifica

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"dual-dex-bot/internal/pacifica/rest"
	"dual-dex-bot/internal/venue"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type stubOrders struct {
	placed  []rest.MarketOrder
	results []error
	account rest.Account
	acctErr error
}

func (s *stubOrders) CreateMarketOrder(ctx context.Context, order rest.MarketOrder) (rest.OrderResponse, error) {
	s.placed = append(s.placed, order)
	idx := len(s.placed) - 1
	if idx < len(s.results) && s.results[idx] != nil {
		return rest.OrderResponse{}, s.results[idx]
	}
	return rest.OrderResponse{OrderID: "po-1"}, nil
}

func (s *stubOrders) AccountInfo(ctx context.Context) (rest.Account, error) {
	return s.account, s.acctErr
}

type stubFeed struct {
	price float64
	err   error
}

func (s stubFeed) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	return s.price, s.err
}

var noPosition = &rest.APIError{Status: http.StatusBadRequest, Message: "No position found for reduce-only order"}

func newClient(orders *stubOrders) *Client {
	return New(orders, stubFeed{price: 65000}, map[string]float64{"BTC": 0.00001, "ETH": 0.0001}, 1, nil)
}

func TestPlaceOrderPayload(t *testing.T) {
	orders := &stubOrders{}
	c := newClient(orders)

	res, err := c.PlaceOrder(context.Background(), venue.OrderRequest{Symbol: "btc", Side: venue.Sell, Size: 0.00615, ClientOrderID: "cid-1"})
	require.NoError(t, err)
	require.Equal(t, "po-1", res.OrderID)
	require.Equal(t, "cid-1", res.ClientOrderID)
	require.Equal(t, rest.MarketOrder{
		Symbol:          "BTC",
		Side:            "ask",
		Amount:          "0.00615",
		SlippagePercent: "1",
		ClientOrderID:   "cid-1",
	}, orders.placed[0])
}

func TestPlaceOrderReduceOnlyCeil(t *testing.T) {
	orders := &stubOrders{}
	c := newClient(orders)

	_, err := c.PlaceOrder(context.Background(), venue.OrderRequest{Symbol: "BTC", Side: venue.Buy, Size: 0.00615 * 1.01, ReduceOnly: true})
	require.NoError(t, err)
	placed := orders.placed[0]
	require.Equal(t, "bid", placed.Side)
	require.Equal(t, "0.00622", placed.Amount)
	require.True(t, placed.ReduceOnly)
	require.NotEmpty(t, placed.ClientOrderID)
}

func TestPlaceOrderMissingLot(t *testing.T) {
	c := newClient(&stubOrders{})
	_, err := c.PlaceOrder(context.Background(), venue.OrderRequest{Symbol: "SOL", Side: venue.Buy, Size: 1})
	require.ErrorIs(t, err, venue.ErrConfiguration)
}

func TestPlaceOrderClassification(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		want      error
		permanent bool
	}{
		{name: "no position", err: noPosition, want: venue.ErrNoPosition, permanent: true},
		{name: "rejected", err: &rest.APIError{Status: http.StatusBadRequest, Message: "Insufficient margin"}, want: venue.ErrOrderRejected, permanent: true},
		{name: "server", err: &rest.APIError{Status: http.StatusBadGateway, Message: "upstream"}},
		{name: "transport", err: errors.New("connection reset")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newClient(&stubOrders{results: []error{tc.err}})
			_, err := c.PlaceOrder(context.Background(), venue.OrderRequest{Symbol: "ETH", Side: venue.Buy, Size: 0.1})
			require.Error(t, err)
			if tc.want != nil {
				require.ErrorIs(t, err, tc.want)
			}
			require.Equal(t, tc.permanent, venue.Permanent(err))
		})
	}
}

func TestOpenPositionProbe(t *testing.T) {
	cases := []struct {
		name    string
		results []error
		want    venue.PositionReport
		orders  int
	}{
		{name: "long", results: nil, want: venue.PositionReport{Status: venue.StatusPresent, Side: venue.Buy}, orders: 1},
		{name: "short", results: []error{noPosition, nil}, want: venue.PositionReport{Status: venue.StatusPresent, Side: venue.Sell}, orders: 2},
		{name: "flat", results: []error{noPosition, noPosition}, want: venue.PositionReport{Status: venue.StatusAbsent}, orders: 2},
		{name: "unreachable", results: []error{errors.New("timeout")}, want: venue.PositionReport{Status: venue.StatusIndeterminate}, orders: 1},
		{name: "mixed", results: []error{noPosition, &rest.APIError{Status: http.StatusBadRequest, Message: "Market closed"}}, want: venue.PositionReport{Status: venue.StatusIndeterminate}, orders: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			orders := &stubOrders{results: tc.results}
			c := newClient(orders)
			report, err := c.OpenPosition(context.Background(), "BTC")
			require.NoError(t, err)
			require.Equal(t, tc.want, report)
			require.Len(t, orders.placed, tc.orders)
			for i, order := range orders.placed {
				require.True(t, order.ReduceOnly)
				require.Equal(t, "0.00001", order.Amount)
				if i == 0 {
					require.Equal(t, "ask", order.Side)
				} else {
					require.Equal(t, "bid", order.Side)
				}
			}
		})
	}
}

func TestQuoteAndEquity(t *testing.T) {
	orders := &stubOrders{account: rest.Account{Equity: decimal.RequireFromString("512.5")}}
	c := newClient(orders)

	price, err := c.Quote(context.Background(), "BTC", venue.Sell)
	require.NoError(t, err)
	require.Equal(t, 65000.0, price)

	equity, err := c.AccountEquity(context.Background())
	require.NoError(t, err)
	require.Equal(t, 512.5, equity)
	require.NoError(t, c.Init(context.Background()))
}

func TestInitConnectivity(t *testing.T) {
	c := newClient(&stubOrders{acctErr: errors.New("dial tcp: refused")})
	require.ErrorIs(t, c.Init(context.Background()), venue.ErrConnectivity)
}
