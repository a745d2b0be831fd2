package strategy

import (
	"math/rand/v2"
	"testing"
	"time"

	"dual-dex-bot/internal/venue"

	"github.com/stretchr/testify/require"
)

func TestAssignAlwaysOppositeSides(t *testing.T) {
	c := NewChooser(rand.New(rand.NewPCG(1, 2)))
	symbols := []string{"BTC", "ETH", "SOL"}
	seenSymbols := map[string]bool{}
	seenSides := map[venue.Side]bool{}
	for i := 0; i < 500; i++ {
		a := c.Assign(symbols)
		require.NotEqual(t, a.SideA, a.SideB)
		require.Equal(t, a.SideA.Opposite(), a.SideB)
		require.Contains(t, symbols, a.Symbol)
		seenSymbols[a.Symbol] = true
		seenSides[a.SideA] = true
	}
	require.Len(t, seenSymbols, 3)
	require.Len(t, seenSides, 2)
}

func TestAssignReproducibleForSeed(t *testing.T) {
	a := NewChooser(rand.New(rand.NewPCG(9, 9)))
	b := NewChooser(rand.New(rand.NewPCG(9, 9)))
	for i := 0; i < 20; i++ {
		require.Equal(t, a.Assign([]string{"BTC", "ETH"}), b.Assign([]string{"BTC", "ETH"}))
	}
}

func TestDurationWithinBounds(t *testing.T) {
	c := NewChooser(rand.New(rand.NewPCG(3, 4)))
	for i := 0; i < 200; i++ {
		d := c.Duration(2*time.Minute, 5*time.Minute)
		require.GreaterOrEqual(t, d, 2*time.Minute)
		require.LessOrEqual(t, d, 5*time.Minute)
	}
	require.Equal(t, time.Second, c.Duration(time.Second, time.Second))
}
