package exec

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"dual-dex-bot/internal/venue"

	"go.uber.org/zap"
)

func TestExecutorIdempotentPlacement(t *testing.T) {
	store := newMemoryStore()
	client := &fakeVenue{id: venue.Hyperliquid}
	logger := zap.NewNop()
	executor := New(client, store, nil, logger)

	ctx := context.Background()
	req := venue.OrderRequest{Symbol: "BTC", Side: venue.Buy, Size: 0.001, Price: 65000, ClientOrderID: "abc"}

	r1, err := executor.PlaceOrder(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r2, err := executor.PlaceOrder(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r1.OrderID != r2.OrderID {
		t.Fatalf("expected same order id, got %s and %s", r1.OrderID, r2.OrderID)
	}
	if len(client.orders) != 1 {
		t.Fatalf("expected 1 venue call, got %d", len(client.orders))
	}

	client2 := &fakeVenue{id: venue.Hyperliquid}
	executor2 := New(client2, store, nil, logger)
	r3, err := executor2.PlaceOrder(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r3.OrderID != r1.OrderID {
		t.Fatalf("expected stored order id %s, got %s", r1.OrderID, r3.OrderID)
	}
	if len(client2.orders) != 0 {
		t.Fatalf("expected no venue calls on restart, got %d", len(client2.orders))
	}
}

func TestExecutorAssignsClientOrderID(t *testing.T) {
	client := &fakeVenue{id: venue.Pacifica}
	executor := New(client, nil, nil, zap.NewNop())
	res, err := executor.PlaceOrder(context.Background(), venue.OrderRequest{Symbol: "ETH", Side: venue.Sell, Size: 0.01})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ClientOrderID == "" || client.orders[0].ClientOrderID != res.ClientOrderID {
		t.Fatalf("expected generated client order id to reach the venue, got %+v", res)
	}
}

func TestExecutorRetriesTransientErrors(t *testing.T) {
	client := &fakeVenue{id: venue.Hyperliquid, orderErrs: []error{errors.New("http 502"), errors.New("timeout")}}
	executor := New(client, nil, nil, zap.NewNop())
	executor.backoff = time.Millisecond
	res, err := executor.PlaceOrder(context.Background(), venue.OrderRequest{Symbol: "BTC", Side: venue.Buy, Size: 0.001})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if res.OrderID != "oid-3" || len(client.orders) != 3 {
		t.Fatalf("expected third attempt to succeed, got %s after %d calls", res.OrderID, len(client.orders))
	}
}

func TestExecutorDoesNotRetryRejections(t *testing.T) {
	client := &fakeVenue{id: venue.Pacifica, orderErrs: []error{fmt.Errorf("insufficient margin: %w", venue.ErrOrderRejected)}}
	executor := New(client, nil, nil, zap.NewNop())
	executor.backoff = time.Millisecond
	_, err := executor.PlaceOrder(context.Background(), venue.OrderRequest{Symbol: "BTC", Side: venue.Buy, Size: 0.001})
	if !errors.Is(err, venue.ErrOrderRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if len(client.orders) != 1 {
		t.Fatalf("expected a single attempt for a rejection, got %d", len(client.orders))
	}
}

func TestExecutorGivesUpAfterMaxAttempts(t *testing.T) {
	errs := make([]error, maxAttempts)
	for i := range errs {
		errs[i] = errors.New("connection reset")
	}
	client := &fakeVenue{id: venue.Hyperliquid, orderErrs: errs}
	executor := New(client, nil, nil, zap.NewNop())
	executor.backoff = time.Millisecond
	if _, err := executor.PlaceOrder(context.Background(), venue.OrderRequest{Symbol: "BTC", Side: venue.Buy, Size: 0.001}); err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if len(client.orders) != maxAttempts {
		t.Fatalf("expected %d attempts, got %d", maxAttempts, len(client.orders))
	}
}
