// Package stats accumulates run counters for the hedge loop. Collector is
// not safe for concurrent use; only the controller goroutine touches it.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"dual-dex-bot/internal/exec"
	"dual-dex-bot/internal/venue"

	"github.com/olekukonko/tablewriter"
)

type VenueCounters struct {
	Trades     int
	Successful int
	Failed     int
	Closed     int
	GaveUp     int
	Unknown    int
}

type Collector struct {
	venues           map[venue.ID]*VenueCounters
	cyclesTotal      int
	cyclesSuccessful int
	cyclesFailed     int
	startedAt        time.Time
	now              func() time.Time
}

func New(now func() time.Time) *Collector {
	if now == nil {
		now = time.Now
	}
	return &Collector{
		venues:    make(map[venue.ID]*VenueCounters),
		startedAt: now(),
		now:       now,
	}
}

func (c *Collector) venue(id venue.ID) *VenueCounters {
	v, ok := c.venues[id]
	if !ok {
		v = &VenueCounters{}
		c.venues[id] = v
	}
	return v
}

// RecordTrade counts one open attempt on a venue.
func (c *Collector) RecordTrade(id venue.ID, ok bool) {
	v := c.venue(id)
	v.Trades++
	if ok {
		v.Successful++
	} else {
		v.Failed++
	}
}

// RecordClose counts a finished close sequence by outcome. Anything other
// than closed or gave up is counted as unknown.
func (c *Collector) RecordClose(id venue.ID, outcome exec.Outcome) {
	v := c.venue(id)
	switch outcome {
	case exec.Closed:
		v.Closed++
	case exec.GaveUp:
		v.GaveUp++
	default:
		v.Unknown++
	}
}

func (c *Collector) RecordCycle(ok bool) {
	c.cyclesTotal++
	if ok {
		c.cyclesSuccessful++
	} else {
		c.cyclesFailed++
	}
}

func (c *Collector) Venue(id venue.ID) VenueCounters {
	if v, ok := c.venues[id]; ok {
		return *v
	}
	return VenueCounters{}
}

func (c *Collector) Cycles() (total, successful, failed int) {
	return c.cyclesTotal, c.cyclesSuccessful, c.cyclesFailed
}

func (c *Collector) Uptime() time.Duration {
	return c.now().Sub(c.startedAt)
}

func (c *Collector) SuccessRate() float64 {
	if c.cyclesTotal == 0 {
		return 0
	}
	return float64(c.cyclesSuccessful) / float64(c.cyclesTotal) * 100
}

// Summary renders the counters as a text table.
func (c *Collector) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "uptime %s, cycles %d (%d ok, %d failed, %.1f%% success)\n",
		c.Uptime().Truncate(time.Second), c.cyclesTotal, c.cyclesSuccessful, c.cyclesFailed, c.SuccessRate())
	ids := make([]string, 0, len(c.venues))
	for id := range c.venues {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	table := tablewriter.NewWriter(&b)
	table.Header("Venue", "Trades", "Successful", "Failed", "Closed", "Gave up", "Unknown")
	for _, id := range ids {
		v := c.venues[venue.ID(id)]
		table.Append(id, v.Trades, v.Successful, v.Failed, v.Closed, v.GaveUp, v.Unknown)
	}
	table.Render()
	return b.String()
}
