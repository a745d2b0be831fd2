package app

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"dual-dex-bot/internal/alerts"
	"dual-dex-bot/internal/config"
	"dual-dex-bot/internal/exec"
	"dual-dex-bot/internal/ledger"
	"dual-dex-bot/internal/metrics"
	"dual-dex-bot/internal/state"
	"dual-dex-bot/internal/stats"
	"dual-dex-bot/internal/strategy"
	"dual-dex-bot/internal/venue"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	outcomeSuccess = "success"
	outcomeFailed  = "failed"
)

// Journal receives every finished cycle. *timescale.Writer satisfies it.
type Journal interface {
	EnqueueCycle(record state.CycleRecord)
}

type Alerter interface {
	Send(ctx context.Context, message string) error
}

// Closer is satisfied by *exec.Retrier.
type Closer interface {
	Close(ctx context.Context, client venue.Client, pos venue.Position) exec.CloseResult
}

type Deps struct {
	VenueA  venue.Client
	VenueB  venue.Client
	Prices  exec.PriceSource
	Closer  Closer
	Store   state.Store
	Journal Journal
	Alerts  Alerter
	Metrics *metrics.Metrics
	Rand    *rand.Rand
	Sleep   func(ctx context.Context, d time.Duration)
	Now     func() time.Time
}

// Controller runs hedge cycles one at a time. It owns the ledger and the
// stats collector; nothing else writes them.
type Controller struct {
	cfg       config.StrategyConfig
	sweepSize float64

	venueA  venue.Client
	venueB  venue.Client
	clients map[venue.ID]venue.Client
	prices  exec.PriceSource
	closer  Closer
	store   state.Store
	journal Journal
	alerts  Alerter
	metrics *metrics.Metrics
	log     *zap.Logger

	machine *strategy.StateMachine
	chooser *strategy.Chooser
	sizer   *strategy.Sizer
	ledger  *ledger.Ledger
	stats   *stats.Collector
	sleep   func(ctx context.Context, d time.Duration)
	now     func() time.Time
}

// NewController wires a controller. sweepSize is the close size used when a
// venue reports a position without a size.
func NewController(cfg config.StrategyConfig, sweepSize float64, deps Deps, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	if deps.Sleep == nil {
		deps.Sleep = sleepCtx
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Controller{
		cfg:       cfg,
		sweepSize: sweepSize,
		venueA:    deps.VenueA,
		venueB:    deps.VenueB,
		clients: map[venue.ID]venue.Client{
			deps.VenueA.ID(): deps.VenueA,
			deps.VenueB.ID(): deps.VenueB,
		},
		prices:  deps.Prices,
		closer:  deps.Closer,
		store:   deps.Store,
		journal: deps.Journal,
		alerts:  deps.Alerts,
		metrics: deps.Metrics,
		log:     log,
		machine: strategy.NewStateMachine(),
		chooser: strategy.NewChooser(deps.Rand),
		sizer:   strategy.NewSizer(deps.Rand),
		ledger:  ledger.New(),
		stats:   stats.New(deps.Now),
		sleep:   deps.Sleep,
		now:     deps.Now,
	}
}

func (c *Controller) Stats() *stats.Collector { return c.stats }

func (c *Controller) State() strategy.State { return c.machine.Current() }

// leg is one venue's half of a cycle, filled in as the cycle advances.
type leg struct {
	client  venue.Client
	side    venue.Side
	quote   venue.Quote
	size    float64
	opened  bool
	orderID string
	err     error
	closed  exec.Outcome
}

// RunCycle runs one complete cycle and always returns to IDLE with an empty
// ledger. Callers pass a context that is not cancelled by shutdown so the
// hold and close phases run to the end.
func (c *Controller) RunCycle(ctx context.Context) (record state.CycleRecord) {
	started := c.now()
	record = state.CycleRecord{ID: uuid.NewString(), Outcome: outcomeFailed, StartedAtMS: started.UnixMilli()}
	log := c.log.With(zap.String("cycle_id", record.ID))
	var legs [2]*leg

	defer func() {
		if r := recover(); r != nil {
			log.Error("cycle panicked", zap.Any("panic", r), zap.Stack("stack"))
			record.Outcome = outcomeFailed
			c.compensate(ctx, log, legs)
		}
		c.finish(ctx, log, &record, legs)
	}()

	c.machine.Apply(strategy.EventStart)
	pick := c.chooser.Assign(c.cfg.Symbols)
	record.Symbol = pick.Symbol
	legs = [2]*leg{
		{client: c.venueA, side: pick.SideA},
		{client: c.venueB, side: pick.SideB},
	}
	log = log.With(zap.String("symbol", pick.Symbol))
	log.Info("cycle started",
		zap.String(string(c.venueA.ID()), string(pick.SideA)),
		zap.String(string(c.venueB.ID()), string(pick.SideB)),
	)
	c.machine.Apply(strategy.EventSelected)

	if err := c.quote(ctx, pick.Symbol, legs); err != nil {
		log.Warn("quote failed", zap.Error(err))
		c.compensate(ctx, log, legs)
		return record
	}
	c.machine.Apply(strategy.EventQuoted)

	sizing := c.size(ctx, log, pick.Symbol, legs)
	record.RiskPct = sizing.RiskPct
	record.CappedNotional = sizing.CappedNotional
	record.SizingFallback = sizing.Fallback
	c.machine.Apply(strategy.EventSized)

	if err := c.open(ctx, log, record.ID, pick.Symbol, legs); err != nil {
		c.compensate(ctx, log, legs)
		return record
	}
	c.machine.Apply(strategy.EventOpened)

	hold := c.chooser.Duration(c.cfg.MinHold, c.cfg.MaxHold)
	log.Info("holding hedge", zap.Duration("hold", hold))
	c.sleep(ctx, hold)
	c.machine.Apply(strategy.EventHeld)

	c.closeAll(ctx, log, legs)
	record.Outcome = outcomeSuccess
	return record
}

// quote fetches both venues' execution prices concurrently. Both calls run
// to completion even when one fails.
func (c *Controller) quote(ctx context.Context, symbol string, legs [2]*leg) error {
	var g errgroup.Group
	for _, l := range legs {
		g.Go(func() error {
			return guard(func() error {
				q, err := c.prices.ExecutionPrice(ctx, l.client.ID(), symbol, l.side)
				if err != nil {
					return fmt.Errorf("%s quote: %w", l.client.ID(), err)
				}
				l.quote = q
				return nil
			})
		})
	}
	return g.Wait()
}

func (c *Controller) size(ctx context.Context, log *zap.Logger, symbol string, legs [2]*leg) strategy.SizingResult {
	in := strategy.SizingInput{
		Symbol:     symbol,
		Balance:    c.cfg.AccountBalance,
		MinRiskPct: c.cfg.MinRiskPct,
		MaxRiskPct: c.cfg.MaxRiskPct,
		Leverage:   c.cfg.Leverage,
		PriceA:     legs[0].quote.Price,
		PriceB:     legs[1].quote.Price,
	}
	in.LotA, _ = c.venueA.LotSize(symbol)
	in.LotB, _ = c.venueB.LotSize(symbol)

	equityCtx := ctx
	if c.cfg.EquityTimeout > 0 {
		var cancel context.CancelFunc
		equityCtx, cancel = context.WithTimeout(ctx, c.cfg.EquityTimeout)
		defer cancel()
	}
	if equity, err := c.venueB.AccountEquity(equityCtx); err != nil {
		log.Warn("venue equity unavailable, capping by balance", zap.String("venue", string(c.venueB.ID())), zap.Error(err))
	} else {
		in.EquityB, in.EquityOK = equity, true
	}

	res := c.sizer.Compute(in)
	legs[0].size, legs[1].size = res.SizeA, res.SizeB
	fields := []zap.Field{
		zap.Float64("risk_pct", res.RiskPct),
		zap.Float64("target_notional", res.TargetNotional),
		zap.Float64("capped_notional", res.CappedNotional),
		zap.Float64("size_a", res.SizeA),
		zap.Float64("size_b", res.SizeB),
	}
	if res.Fallback {
		log.Warn("sizing fell back to one lot", append(fields, zap.String("reason", res.FallbackReason))...)
	} else {
		log.Info("hedge sized", fields...)
	}
	return res
}

// open places both legs concurrently and records each accepted one. The
// ledger is written only after both calls have returned.
func (c *Controller) open(ctx context.Context, log *zap.Logger, cycleID, symbol string, legs [2]*leg) error {
	var g errgroup.Group
	for _, l := range legs {
		g.Go(func() error {
			l.err = guard(func() error {
				res, err := l.client.PlaceOrder(ctx, venue.OrderRequest{
					Symbol: symbol,
					Side:   l.side,
					Size:   l.size,
					Price:  l.quote.Price,
				})
				if err != nil {
					return err
				}
				l.opened, l.orderID = true, res.OrderID
				return nil
			})
			return l.err
		})
	}
	err := g.Wait()

	var opened, failed *leg
	for _, l := range legs {
		id := l.client.ID()
		c.stats.RecordTrade(id, l.opened)
		fields := []zap.Field{
			zap.String("venue", string(id)),
			zap.String("side", string(l.side)),
			zap.Float64("size", l.size),
			zap.Float64("price", l.quote.Price),
		}
		if !l.opened {
			failed = l
			log.Warn("open order failed", append(fields, zap.Error(l.err))...)
			continue
		}
		opened = l
		log.Info("leg opened", append(fields, zap.String("order_id", l.orderID))...)
		if recErr := c.ledger.Record(venue.Position{
			Venue:    id,
			Symbol:   symbol,
			Side:     l.side,
			Size:     l.size,
			OrderID:  l.orderID,
			OpenedAt: c.now(),
		}); recErr != nil {
			log.Error("ledger rejected leg", append(fields, zap.Error(recErr))...)
		}
	}
	if err == nil {
		return nil
	}
	if opened != nil && failed != nil {
		c.metrics.PartialFills.Inc()
		log.Error("partial fill, closing lone leg",
			zap.String("opened", string(opened.client.ID())),
			zap.String("failed", string(failed.client.ID())),
			zap.Error(failed.err),
		)
		c.alert(ctx, log, alerts.PartialFill(cycleID, symbol, string(opened.client.ID()), string(failed.client.ID()), failed.err))
	}
	return err
}

// compensate drives FAILED -> CLOSING and closes whatever the ledger holds.
func (c *Controller) compensate(ctx context.Context, log *zap.Logger, legs [2]*leg) {
	c.machine.Apply(strategy.EventFail)
	c.machine.Apply(strategy.EventCompensate)
	c.closeAll(ctx, log, legs)
}

// closeAll closes every ledger position concurrently, then clears the
// ledger whatever the outcomes.
func (c *Controller) closeAll(ctx context.Context, log *zap.Logger, legs [2]*leg) {
	positions := c.ledger.Positions()
	results := make([]exec.CloseResult, len(positions))
	var g errgroup.Group
	for i, pos := range positions {
		// A close that panics counts as unresolved.
		results[i] = exec.CloseResult{Venue: pos.Venue, Symbol: pos.Symbol, Outcome: exec.StillOpen}
		g.Go(func() error {
			if err := guard(func() error {
				results[i] = c.closer.Close(ctx, c.clients[pos.Venue], pos)
				return nil
			}); err != nil {
				log.Error("close panicked", zap.String("venue", string(pos.Venue)), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		c.recordClose(ctx, log, res)
		for _, l := range legs {
			if l != nil && l.client.ID() == res.Venue {
				l.closed = res.Outcome
			}
		}
	}
	c.ledger.Clear()
	c.machine.Apply(strategy.EventClosed)
}

func (c *Controller) recordClose(ctx context.Context, log *zap.Logger, res exec.CloseResult) {
	fields := []zap.Field{
		zap.String("venue", string(res.Venue)),
		zap.String("symbol", res.Symbol),
		zap.String("outcome", string(res.Outcome)),
		zap.Int("attempts", res.Attempts),
		zap.Strings("order_ids", res.OrderIDs),
	}
	c.stats.RecordClose(res.Venue, res.Outcome)
	switch res.Outcome {
	case exec.Closed:
		c.metrics.ClosesConfirmed.Inc()
		log.Info("leg closed", fields...)
		return
	case exec.GaveUp:
		c.metrics.ClosesGaveUp.Inc()
	default:
		c.metrics.ClosesUnknown.Inc()
	}
	log.Error("close unresolved", append(fields, zap.Float64("remaining", res.Remaining))...)
	c.alert(ctx, log, alerts.CloseUnresolved(string(res.Venue), res.Symbol, string(res.Outcome), res.Attempts, res.Remaining))
}

// finish counts the cycle and writes its record. The state machine is back
// at IDLE by the time it runs.
func (c *Controller) finish(ctx context.Context, log *zap.Logger, record *state.CycleRecord, legs [2]*leg) {
	if c.machine.Current() != strategy.StateIdle {
		log.Warn("cycle ended outside idle, resetting", zap.String("state", string(c.machine.Current())))
		c.machine.Reset()
	}
	if c.ledger.Len() > 0 {
		log.Error("ledger not empty after cycle", zap.Int("positions", c.ledger.Len()))
		c.ledger.Clear()
	}
	record.FinalState = string(c.machine.Current())
	record.FinishedAtMS = c.now().UnixMilli()
	for _, l := range legs {
		if l != nil {
			record.Legs = append(record.Legs, legRecord(l))
		}
	}

	ok := record.Outcome == outcomeSuccess
	c.stats.RecordCycle(ok)
	c.metrics.CyclesTotal.Inc()
	if !ok {
		c.metrics.CyclesFailed.Inc()
	}
	log.Info("cycle finished",
		zap.String("outcome", record.Outcome),
		zap.Duration("elapsed", time.Duration(record.FinishedAtMS-record.StartedAtMS)*time.Millisecond),
	)

	if err := state.SaveLastCycle(ctx, c.store, *record); err != nil {
		log.Warn("failed to persist cycle record", zap.Error(err))
	}
	if c.journal != nil {
		c.journal.EnqueueCycle(*record)
	}
}

func legRecord(l *leg) state.LegRecord {
	rec := state.LegRecord{
		Venue:        string(l.client.ID()),
		Side:         string(l.side),
		Size:         l.size,
		Price:        l.quote.Price,
		Degraded:     l.quote.Degraded,
		Opened:       l.opened,
		OrderID:      l.orderID,
		CloseOutcome: string(l.closed),
	}
	if l.err != nil {
		rec.Error = l.err.Error()
	}
	return rec
}

// guard runs fn and turns a panic into an error. The deferred recover in
// RunCycle cannot see panics raised on errgroup goroutines.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (c *Controller) alert(ctx context.Context, log *zap.Logger, message string) {
	if c.alerts == nil {
		return
	}
	if err := c.alerts.Send(ctx, message); err != nil {
		log.Warn("alert failed", zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
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
