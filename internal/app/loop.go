package app

import (
	"context"
	"fmt"

	"dual-dex-bot/internal/alerts"
	"dual-dex-bot/internal/exec"
	"dual-dex-bot/internal/venue"

	"go.uber.org/zap"
)

// Run repeats cycles until ctx is done. Shutdown is only observed between
// cycles; a started cycle holds and closes on a detached context.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		c.RunCycle(context.WithoutCancel(ctx))

		wait := c.chooser.Duration(c.cfg.MinCycleWait, c.cfg.MaxCycleWait)
		c.log.Info("waiting for next cycle", zap.Duration("wait", wait))
		c.sleep(ctx, wait)
		c.log.Info("run stats\n" + c.stats.Summary())
	}
}

// SweepResult lists the venue/symbol pairs a sweep found open.
type SweepResult struct {
	Closed     []string
	Unresolved []string
}

// Sweep closes any position either venue reports for the configured
// symbols. The ledger is not consulted and stays empty.
func (c *Controller) Sweep(ctx context.Context) SweepResult {
	var out SweepResult
	for _, symbol := range c.cfg.Symbols {
		for _, client := range []venue.Client{c.venueA, c.venueB} {
			log := c.log.With(zap.String("venue", string(client.ID())), zap.String("symbol", symbol))
			report, err := client.OpenPosition(ctx, symbol)
			if err != nil {
				log.Warn("sweep position check failed", zap.Error(err))
			}
			if report.Status != venue.StatusPresent {
				if report.Status == venue.StatusIndeterminate {
					log.Warn("sweep could not determine position")
				}
				continue
			}
			size := report.Size
			if size <= 0 {
				size = c.sweepSize
			}
			log.Warn("closing pre-existing position", zap.String("side", string(report.Side)), zap.Float64("size", size))
			res := c.closer.Close(ctx, client, venue.Position{
				Venue:  client.ID(),
				Symbol: symbol,
				Side:   report.Side,
				Size:   size,
			})
			label := fmt.Sprintf("%s %s", client.ID(), symbol)
			c.recordClose(ctx, log, res)
			if res.Outcome == exec.Closed {
				out.Closed = append(out.Closed, label)
			} else {
				out.Unresolved = append(out.Unresolved, label)
			}
		}
	}
	if len(out.Closed)+len(out.Unresolved) > 0 {
		c.alert(ctx, c.log, alerts.SweepSummary(out.Closed, out.Unresolved))
	}
	c.log.Info("startup sweep finished", zap.Int("closed", len(out.Closed)), zap.Int("unresolved", len(out.Unresolved)))
	return out
}
