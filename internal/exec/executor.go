package exec

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dual-dex-bot/internal/metrics"
	"dual-dex-bot/internal/state"
	"dual-dex-bot/internal/venue"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxAttempts    = 5
	initialBackoff = 200 * time.Millisecond
)

// Executor wraps a venue client with idempotent, retried order placement.
// Every other capability is passed through untouched.
type Executor struct {
	venue.Client
	store   state.Store
	metrics *metrics.Metrics
	log     *zap.Logger
	backoff time.Duration

	mu    sync.Mutex
	cache map[string]string
}

func New(client venue.Client, store state.Store, m *metrics.Metrics, log *zap.Logger) *Executor {
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Executor{
		Client:  client,
		store:   store,
		metrics: m,
		log:     log,
		backoff: initialBackoff,
		cache:   make(map[string]string),
	}
}

func (e *Executor) PlaceOrder(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}
	cacheKey := "cloid:" + string(e.ID()) + ":" + req.ClientOrderID
	e.mu.Lock()
	if oid, ok := e.cache[cacheKey]; ok {
		e.mu.Unlock()
		return venue.OrderResult{OrderID: oid, ClientOrderID: req.ClientOrderID}, nil
	}
	e.mu.Unlock()
	if e.store != nil {
		if oid, ok, err := e.store.Get(ctx, cacheKey); err != nil {
			return venue.OrderResult{}, err
		} else if ok {
			e.mu.Lock()
			e.cache[cacheKey] = oid
			e.mu.Unlock()
			return venue.OrderResult{OrderID: oid, ClientOrderID: req.ClientOrderID}, nil
		}
	}
	res, err := e.placeWithRetry(ctx, req)
	if err != nil {
		e.metrics.OrdersFailed.Inc()
		return venue.OrderResult{}, err
	}
	e.metrics.OrdersPlaced.Inc()
	if e.store != nil {
		if err := e.store.Set(ctx, cacheKey, res.OrderID); err != nil {
			e.log.Warn("failed to persist order id", zap.String("venue", string(e.ID())), zap.Error(err))
		}
	}
	e.mu.Lock()
	e.cache[cacheKey] = res.OrderID
	e.mu.Unlock()
	return res, nil
}

func (e *Executor) placeWithRetry(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
	var res venue.OrderResult
	err := e.retry(ctx, func() error {
		var err error
		res, err = e.Client.PlaceOrder(ctx, req)
		return err
	})
	if err != nil {
		return venue.OrderResult{}, err
	}
	if res.OrderID == "" {
		return venue.OrderResult{}, errors.New("empty order id")
	}
	if res.ClientOrderID == "" {
		res.ClientOrderID = req.ClientOrderID
	}
	return res, nil
}

// retry stops early on answers the venue will repeat.
func (e *Executor) retry(ctx context.Context, fn func() error) error {
	backoff := e.backoff
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if venue.Permanent(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			return fmt.Errorf("retry failed: %w", err)
		}
		e.log.Debug("order attempt failed", zap.String("venue", string(e.ID())), zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil
}
