// Package market turns raw venue prices into slippage-adjusted execution
// quotes, falling back to static reference prices when a feed is down.
package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dual-dex-bot/internal/metrics"
	"dual-dex-bot/internal/venue"

	"go.uber.org/zap"
)

// Quoter is the slice of venue.Client the provider needs.
type Quoter interface {
	ID() venue.ID
	Quote(ctx context.Context, symbol string, side venue.Side) (float64, error)
}

type FeedOptions struct {
	// Timeout bounds the whole quote call, handshake included.
	Timeout  time.Duration
	Fallback map[string]float64
}

type feed struct {
	quoter Quoter
	opts   FeedOptions
}

type Provider struct {
	slippage float64
	log      *zap.Logger
	metrics  *metrics.Metrics

	mu    sync.RWMutex
	feeds map[venue.ID]feed
}

func NewProvider(slippage float64, m *metrics.Metrics, log *zap.Logger) *Provider {
	if m == nil {
		m = metrics.NewNoop()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{
		slippage: slippage,
		log:      log,
		metrics:  m,
		feeds:    make(map[venue.ID]feed),
	}
}

func (p *Provider) Register(q Quoter, opts FeedOptions) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.feeds[q.ID()] = feed{quoter: q, opts: opts}
}

// ExecutionPrice returns the price an order on side should be sent at. Buys
// pay up by the slippage tolerance and sells give it away, whatever the
// open or close intent of the order.
func (p *Provider) ExecutionPrice(ctx context.Context, id venue.ID, symbol string, side venue.Side) (venue.Quote, error) {
	p.mu.RLock()
	f, ok := p.feeds[id]
	p.mu.RUnlock()
	if !ok {
		return venue.Quote{}, fmt.Errorf("%s not registered: %w", id, venue.ErrQuoteUnavailable)
	}
	if !side.Valid() {
		return venue.Quote{}, fmt.Errorf("invalid side %q: %w", side, venue.ErrQuoteUnavailable)
	}
	quote := venue.Quote{Venue: id, Symbol: symbol, Side: side, Source: venue.SourceLive}
	raw, err := p.fetch(ctx, f, symbol, side)
	if err != nil || raw <= 0 {
		ref, hasRef := f.opts.Fallback[symbol]
		if !hasRef || ref <= 0 {
			if err == nil {
				err = errors.New("non-positive price")
			}
			return venue.Quote{}, fmt.Errorf("%s %s %s: %v: %w", id, symbol, side, err, venue.ErrQuoteUnavailable)
		}
		p.metrics.DegradedQuotes.Inc()
		p.log.Warn("using fallback price",
			zap.String("venue", string(id)),
			zap.String("symbol", symbol),
			zap.String("side", string(side)),
			zap.Float64("price", ref),
			zap.Error(err),
		)
		raw = ref
		quote.Source = venue.SourceFallback
		quote.Degraded = true
	}
	quote.Raw = raw
	quote.Price = Adjust(raw, side, p.slippage)
	return quote, nil
}

func (p *Provider) fetch(ctx context.Context, f feed, symbol string, side venue.Side) (float64, error) {
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}
	return f.quoter.Quote(ctx, symbol, side)
}

// Adjust applies slippage against the trader for the book side consumed.
func Adjust(raw float64, side venue.Side, slippage float64) float64 {
	if side == venue.Buy {
		return raw * (1 + slippage)
	}
	return raw * (1 - slippage)
}
