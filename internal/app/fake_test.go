package app

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"dual-dex-bot/internal/config"
	"dual-dex-bot/internal/exec"
	"dual-dex-bot/internal/market"
	"dual-dex-bot/internal/state"
	"dual-dex-bot/internal/state/sqlite"
	"dual-dex-bot/internal/venue"

	"github.com/stretchr/testify/require"
)

// fakeVenue accepts every order unless told otherwise and replays scripted
// position reports; the last report repeats once the script runs out.
type fakeVenue struct {
	mu          sync.Mutex
	id          venue.ID
	price       float64
	quoteErr    error
	openErr     error
	equity      float64
	panicEquity bool
	panicOpen   bool
	orders      []venue.OrderRequest
	reports     []venue.PositionReport
}

func newFakeVenue(id venue.ID) *fakeVenue {
	return &fakeVenue{id: id, price: 65000, equity: 1000}
}

func (f *fakeVenue) ID() venue.ID                   { return f.id }
func (f *fakeVenue) Init(ctx context.Context) error { return nil }
func (f *fakeVenue) Close() error                   { return nil }

func (f *fakeVenue) Quote(ctx context.Context, symbol string, side venue.Side) (float64, error) {
	if f.quoteErr != nil {
		return 0, f.quoteErr
	}
	return f.price, nil
}

func (f *fakeVenue) PlaceOrder(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, req)
	if !req.ReduceOnly && f.panicOpen {
		panic("order signer exploded")
	}
	if !req.ReduceOnly && f.openErr != nil {
		return venue.OrderResult{}, f.openErr
	}
	return venue.OrderResult{OrderID: fmt.Sprintf("%s-%d", f.id, len(f.orders))}, nil
}

func (f *fakeVenue) OpenPosition(ctx context.Context, symbol string) (venue.PositionReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reports) == 0 {
		return venue.PositionReport{Status: venue.StatusAbsent}, nil
	}
	report := f.reports[0]
	if len(f.reports) > 1 {
		f.reports = f.reports[1:]
	}
	return report, nil
}

func (f *fakeVenue) AccountEquity(ctx context.Context) (float64, error) {
	if f.panicEquity {
		panic("equity feed exploded")
	}
	return f.equity, nil
}

func (f *fakeVenue) LotSize(symbol string) (float64, bool) { return 0.00001, true }

func (f *fakeVenue) opens() []venue.OrderRequest  { return f.filter(false) }
func (f *fakeVenue) closes() []venue.OrderRequest { return f.filter(true) }

func (f *fakeVenue) filter(reduceOnly bool) []venue.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []venue.OrderRequest
	for _, o := range f.orders {
		if o.ReduceOnly == reduceOnly {
			out = append(out, o)
		}
	}
	return out
}

type recordingAlerts struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingAlerts) Send(ctx context.Context, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

type recordingJournal struct {
	records []state.CycleRecord
}

func (r *recordingJournal) EnqueueCycle(record state.CycleRecord) {
	r.records = append(r.records, record)
}

type harness struct {
	ctrl    *Controller
	a       *fakeVenue
	b       *fakeVenue
	store   *sqlite.Store
	alerts  *recordingAlerts
	journal *recordingJournal
	sleeps  []time.Duration
	onSleep func(d time.Duration)
}

func testStrategy() config.StrategyConfig {
	return config.StrategyConfig{
		AccountBalance: 500,
		MinRiskPct:     60,
		MaxRiskPct:     60,
		MinHold:        time.Second,
		MaxHold:        2 * time.Second,
		MinCycleWait:   10 * time.Second,
		MaxCycleWait:   20 * time.Second,
		Symbols:        []string{"BTC"},
		Leverage:       map[string]float64{"BTC": 5},
	}
}

func newHarness(t *testing.T, fallbackB map[string]float64) *harness {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	h := &harness{
		a:       newFakeVenue(venue.Hyperliquid),
		b:       newFakeVenue(venue.Pacifica),
		store:   store,
		alerts:  &recordingAlerts{},
		journal: &recordingJournal{},
	}
	provider := market.NewProvider(0, nil, nil)
	provider.Register(h.a, market.FeedOptions{})
	provider.Register(h.b, market.FeedOptions{Fallback: fallbackB})
	retrier := exec.NewRetrier(provider, exec.RetrierConfig{Retries: 2, CloseBuffer: 0.01}, nil).
		WithSleep(func(ctx context.Context, d time.Duration) {})

	h.ctrl = NewController(testStrategy(), 1.0, Deps{
		VenueA:  h.a,
		VenueB:  h.b,
		Prices:  provider,
		Closer:  retrier,
		Store:   store,
		Journal: h.journal,
		Alerts:  h.alerts,
		Rand:    rand.New(rand.NewPCG(1, 2)),
		Sleep: func(ctx context.Context, d time.Duration) {
			h.sleeps = append(h.sleeps, d)
			if h.onSleep != nil {
				h.onSleep(d)
			}
		},
	}, nil)
	return h
}

type panicPrices struct{}

func (panicPrices) ExecutionPrice(ctx context.Context, id venue.ID, symbol string, side venue.Side) (venue.Quote, error) {
	panic("price feed exploded")
}
