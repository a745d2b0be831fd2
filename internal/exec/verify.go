package exec

import (
	"context"
	"errors"
	"math"
	"time"

	"dual-dex-bot/internal/venue"

	"go.uber.org/zap"
)

type Outcome string

const (
	Closed    Outcome = "closed"
	StillOpen Outcome = "still_open"
	GaveUp    Outcome = "gave_up"
)

type CloseResult struct {
	Venue     venue.ID
	Symbol    string
	Outcome   Outcome
	Attempts  int
	OrderIDs  []string
	Remaining float64
}

// PriceSource is satisfied by market.Provider.
type PriceSource interface {
	ExecutionPrice(ctx context.Context, id venue.ID, symbol string, side venue.Side) (venue.Quote, error)
}

type RetrierConfig struct {
	Retries     int
	Delay       time.Duration
	Epsilon     float64
	CloseBuffer float64
}

// Retrier closes a leg and checks the venue agrees it is flat, with a single
// reversed-direction retry when it does not.
type Retrier struct {
	prices PriceSource
	cfg    RetrierConfig
	log    *zap.Logger
	sleep  func(ctx context.Context, d time.Duration)
}

func NewRetrier(prices PriceSource, cfg RetrierConfig, log *zap.Logger) *Retrier {
	if cfg.Retries < 1 {
		cfg.Retries = 1
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = 1e-6
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Retrier{prices: prices, cfg: cfg, log: log, sleep: sleepFor}
}

// WithSleep replaces the verification wait, for tests.
func (r *Retrier) WithSleep(sleep func(ctx context.Context, d time.Duration)) *Retrier {
	r.sleep = sleep
	return r
}

// Close never places more than two orders for pos. Every order is
// reduce-only.
func (r *Retrier) Close(ctx context.Context, client venue.Client, pos venue.Position) CloseResult {
	res := CloseResult{Venue: pos.Venue, Symbol: pos.Symbol}
	closeSide := pos.Side.Opposite()
	log := r.log.With(
		zap.String("venue", string(pos.Venue)),
		zap.String("symbol", pos.Symbol),
		zap.String("side", string(pos.Side)),
		zap.Float64("size", pos.Size),
	)

	// A "no position" rejection is side-specific on both venues, so it only
	// ends the close once the position check agrees.
	err := r.submit(ctx, client, pos.Symbol, closeSide, pos.Size, &res)
	switch {
	case errors.Is(err, venue.ErrNoPosition):
		log.Info("close rejected as nothing to reduce, verifying venue state", zap.Error(err))
	case err != nil:
		log.Warn("close order failed, verifying venue state", zap.Error(err))
	}

	report := r.verify(ctx, client, pos.Symbol)
	if r.flat(report) {
		res.Outcome = Closed
		return res
	}
	if report.Status == venue.StatusIndeterminate {
		log.Warn("close could not be verified")
		res.Outcome = StillOpen
		return res
	}

	flipSide := closeSide.Opposite()
	flipSize := pos.Size
	if report.Size > 0 {
		flipSize = report.Size
	}
	log.Warn("position remains after close, flipping direction",
		zap.Float64("remaining", report.Size),
		zap.String("flip_side", string(flipSide)),
		zap.Error(venue.ErrVerificationMismatch),
	)
	if err := r.submit(ctx, client, pos.Symbol, flipSide, flipSize, &res); err != nil && !errors.Is(err, venue.ErrNoPosition) {
		log.Warn("flip close order failed", zap.Error(err))
	}

	report = r.verify(ctx, client, pos.Symbol)
	switch {
	case r.flat(report):
		res.Outcome = Closed
	case report.Status == venue.StatusPresent:
		res.Outcome = GaveUp
		res.Remaining = report.Size
		log.Error("close gave up, manual intervention required", zap.Float64("remaining", report.Size))
	default:
		res.Outcome = StillOpen
		log.Warn("flip close could not be verified")
	}
	return res
}

func (r *Retrier) submit(ctx context.Context, client venue.Client, symbol string, side venue.Side, size float64, res *CloseResult) error {
	quote, err := r.prices.ExecutionPrice(ctx, client.ID(), symbol, side)
	if err != nil {
		return err
	}
	res.Attempts++
	out, err := client.PlaceOrder(ctx, venue.OrderRequest{
		Symbol:     symbol,
		Side:       side,
		Size:       size * (1 + r.cfg.CloseBuffer),
		Price:      quote.Price,
		ReduceOnly: true,
	})
	if err != nil {
		return err
	}
	res.OrderIDs = append(res.OrderIDs, out.OrderID)
	return nil
}

// verify polls until the venue gives a determinate answer or retries run out.
func (r *Retrier) verify(ctx context.Context, client venue.Client, symbol string) venue.PositionReport {
	for i := 0; i < r.cfg.Retries; i++ {
		r.sleep(ctx, r.cfg.Delay)
		report, err := client.OpenPosition(ctx, symbol)
		if err != nil {
			r.log.Debug("position check failed", zap.String("venue", string(client.ID())), zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		if report.Status != venue.StatusIndeterminate {
			return report
		}
	}
	return venue.PositionReport{Status: venue.StatusIndeterminate}
}

func (r *Retrier) flat(report venue.PositionReport) bool {
	if report.Status == venue.StatusAbsent {
		return true
	}
	return report.Status == venue.StatusPresent && report.Size > 0 && math.Abs(report.Size) < r.cfg.Epsilon
}

func sleepFor(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
