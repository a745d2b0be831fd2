package strategy

import (
	"math/rand/v2"
	"time"

	"dual-dex-bot/internal/venue"
)

// Assignment is the randomized part of a cycle: which symbol, and which
// side each venue takes. SideB is always the opposite of SideA.
type Assignment struct {
	Symbol string
	SideA  venue.Side
	SideB  venue.Side
}

type Chooser struct {
	rng *rand.Rand
}

func NewChooser(rng *rand.Rand) *Chooser {
	return &Chooser{rng: rng}
}

func (c *Chooser) Assign(symbols []string) Assignment {
	symbol := symbols[c.rng.IntN(len(symbols))]
	sideA := venue.Buy
	if c.rng.IntN(2) == 1 {
		sideA = venue.Sell
	}
	return Assignment{Symbol: symbol, SideA: sideA, SideB: sideA.Opposite()}
}

// Duration draws uniformly from [lo, hi].
func (c *Chooser) Duration(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(c.rng.Int64N(int64(hi-lo)+1))
}
