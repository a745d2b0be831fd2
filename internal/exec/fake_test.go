package exec

import (
	"context"
	"fmt"
	"sync"

	"dual-dex-bot/internal/venue"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	return val, ok, nil
}

func (m *memoryStore) Set(ctx context.Context, key, value string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryStore) Close() error { return nil }

// fakeVenue replays scripted order errors and position reports.
type fakeVenue struct {
	mu        sync.Mutex
	id        venue.ID
	orders    []venue.OrderRequest
	orderErrs []error
	reports   []venue.PositionReport
	polls     int
}

func (f *fakeVenue) ID() venue.ID { return f.id }
func (f *fakeVenue) Init(ctx context.Context) error { return nil }
func (f *fakeVenue) Close() error { return nil }

func (f *fakeVenue) Quote(ctx context.Context, symbol string, side venue.Side) (float64, error) {
	return 100, nil
}

func (f *fakeVenue) PlaceOrder(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, req)
	idx := len(f.orders) - 1
	if idx < len(f.orderErrs) && f.orderErrs[idx] != nil {
		return venue.OrderResult{}, f.orderErrs[idx]
	}
	return venue.OrderResult{OrderID: fmt.Sprintf("oid-%d", idx+1), ClientOrderID: req.ClientOrderID}, nil
}

func (f *fakeVenue) OpenPosition(ctx context.Context, symbol string) (venue.PositionReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if len(f.reports) == 0 {
		return venue.PositionReport{Status: venue.StatusAbsent}, nil
	}
	report := f.reports[0]
	if len(f.reports) > 1 {
		f.reports = f.reports[1:]
	}
	return report, nil
}

func (f *fakeVenue) AccountEquity(ctx context.Context) (float64, error) { return 1000, nil }

func (f *fakeVenue) LotSize(symbol string) (float64, bool) { return 0.00001, true }

type fixedPrices struct{}

func (fixedPrices) ExecutionPrice(ctx context.Context, id venue.ID, symbol string, side venue.Side) (venue.Quote, error) {
	return venue.Quote{Venue: id, Symbol: symbol, Side: side, Raw: 100, Price: 100, Source: venue.SourceLive}, nil
}
