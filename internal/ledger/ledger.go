// Package ledger tracks the legs the engine believes are open, at most one
// per venue. A Ledger belongs to a single controller and takes no locks.
package ledger

import (
	"fmt"
	"sort"

	"dual-dex-bot/internal/venue"
)

type Ledger struct {
	positions map[venue.ID]venue.Position
}

func New() *Ledger {
	return &Ledger{positions: make(map[venue.ID]venue.Position)}
}

// Record stores an accepted leg. A venue that already holds a leg is an error.
func (l *Ledger) Record(pos venue.Position) error {
	if existing, ok := l.positions[pos.Venue]; ok {
		return fmt.Errorf("ledger already holds %s %s on %s", existing.Side, existing.Symbol, pos.Venue)
	}
	l.positions[pos.Venue] = pos
	return nil
}

func (l *Ledger) Get(id venue.ID) (venue.Position, bool) {
	pos, ok := l.positions[id]
	return pos, ok
}

// Positions returns the open legs ordered by venue id.
func (l *Ledger) Positions() []venue.Position {
	out := make([]venue.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Venue < out[j].Venue })
	return out
}

func (l *Ledger) Remove(id venue.ID) {
	delete(l.positions, id)
}

func (l *Ledger) Clear() {
	for id := range l.positions {
		delete(l.positions, id)
	}
}

func (l *Ledger) Len() int {
	return len(l.positions)
}
