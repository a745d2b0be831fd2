package strategy

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSizer(seed uint64) *Sizer {
	return NewSizer(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

func TestComputeBTCScenario(t *testing.T) {
	s := newTestSizer(1)
	res := s.Compute(SizingInput{
		Symbol:     "BTC",
		Balance:    500,
		MinRiskPct: 60,
		MaxRiskPct: 60,
		Leverage:   map[string]float64{"BTC": 5},
		PriceA:     65000,
		PriceB:     65000,
		LotA:       0.00001,
		LotB:       0.00001,
	})
	require.False(t, res.Fallback)
	require.Equal(t, 60.0, res.RiskPct)
	require.InDelta(t, 300, res.RiskAmount, 1e-9)
	require.InDelta(t, 1500, res.TargetNotional, 1e-9)
	require.InDelta(t, 2500, res.AffordableCap, 1e-9)
	require.InDelta(t, 400, res.CappedNotional, 1e-9)
	require.Equal(t, 0.00615, res.SizeA)
	require.Equal(t, 0.00615, res.SizeB)
}

func TestComputeUsesEquityCap(t *testing.T) {
	s := newTestSizer(2)
	res := s.Compute(SizingInput{
		Symbol:     "ETH",
		Balance:    500,
		MinRiskPct: 10,
		MaxRiskPct: 10,
		Leverage:   map[string]float64{"ETH": 2},
		PriceA:     3500,
		PriceB:     3500,
		EquityB:    20,
		EquityOK:   true,
		LotA:       0.0001,
		LotB:       0.01,
	})
	require.InDelta(t, 36, res.AffordableCap, 1e-9)
	require.InDelta(t, 36, res.CappedNotional, 1e-9)
	require.Equal(t, 0.0103, res.SizeA)
	require.Equal(t, 0.01, res.SizeB)
}

func TestComputeMissingLeverageFallsBack(t *testing.T) {
	s := newTestSizer(3)
	res := s.Compute(SizingInput{
		Symbol:     "DOGE",
		Balance:    500,
		MinRiskPct: 50,
		MaxRiskPct: 80,
		Leverage:   map[string]float64{"BTC": 5},
		PriceA:     1,
		PriceB:     1,
		LotA:       1,
	})
	require.True(t, res.Fallback)
	require.Contains(t, res.FallbackReason, "leverage")
	require.Equal(t, 1.0, res.SizeA)
	require.Equal(t, 0.001, res.SizeB)
}

func TestComputeZeroPriceFallsBack(t *testing.T) {
	s := newTestSizer(4)
	res := s.Compute(SizingInput{
		Symbol:     "SOL",
		Balance:    500,
		MinRiskPct: 50,
		MaxRiskPct: 80,
		Leverage:   map[string]float64{"SOL": 3},
		PriceA:     0,
		PriceB:     150,
		LotA:       0.01,
		LotB:       0.01,
	})
	require.True(t, res.Fallback)
	require.Equal(t, 0.01, res.SizeA)
	require.Equal(t, 0.01, res.SizeB)
}

func TestComputeProperties(t *testing.T) {
	s := newTestSizer(5)
	rng := rand.New(rand.NewPCG(7, 11))
	lots := []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1}
	for i := 0; i < 2000; i++ {
		balance := 10 + rng.Float64()*10000
		lo := 1 + rng.Float64()*50
		hi := lo + rng.Float64()*49
		lev := 1 + rng.Float64()*20
		priceA := 0.1 + rng.Float64()*100000
		priceB := priceA * (0.98 + rng.Float64()*0.04)
		lotA := lots[rng.IntN(len(lots))]
		lotB := lots[rng.IntN(len(lots))]
		in := SizingInput{
			Symbol:     "X",
			Balance:    balance,
			MinRiskPct: lo,
			MaxRiskPct: hi,
			Leverage:   map[string]float64{"X": lev},
			PriceA:     priceA,
			PriceB:     priceB,
			EquityB:    rng.Float64() * balance * 2,
			EquityOK:   rng.IntN(2) == 0,
			LotA:       lotA,
			LotB:       lotB,
		}
		res := s.Compute(in)
		require.False(t, res.Fallback)
		require.GreaterOrEqual(t, res.RiskPct, lo)
		require.LessOrEqual(t, res.RiskPct, hi)
		require.LessOrEqual(t, res.CappedNotional, balance*0.8+1e-9)
		require.LessOrEqual(t, res.CappedNotional, res.AffordableCap+1e-9)

		// Each leg deviates from the shared notional by at most one lot.
		devA := math.Abs(res.SizeA*priceA - res.CappedNotional)
		devB := math.Abs(res.SizeB*priceB - res.CappedNotional)
		require.LessOrEqual(t, devA, lotA*priceA*(1+1e-9)+1e-9)
		require.LessOrEqual(t, devB, lotB*priceB*(1+1e-9)+1e-9)
		require.GreaterOrEqual(t, res.SizeA, lotA)
		require.GreaterOrEqual(t, res.SizeB, lotB)
	}
}
