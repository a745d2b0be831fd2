package strategy

import (
	"math"
	"math/rand/v2"

	"dual-dex-bot/internal/venue"
)

const (
	equityCapFraction = 0.9
	exposureCeiling   = 0.8
	minOrderSize      = 1e-6
	fallbackLotSize   = 0.001
)

type SizingInput struct {
	Symbol     string
	Balance    float64
	MinRiskPct float64
	MaxRiskPct float64
	Leverage   map[string]float64
	PriceA     float64
	PriceB     float64
	// EquityB is venue B's live equity; EquityOK is false when it could not
	// be fetched.
	EquityB  float64
	EquityOK bool
	LotA     float64
	LotB     float64
}

type SizingResult struct {
	RiskPct        float64
	RiskAmount     float64
	Leverage       float64
	TargetNotional float64
	AffordableCap  float64
	CappedNotional float64
	SizeA          float64
	SizeB          float64
	Fallback       bool
	FallbackReason string
}

// Sizer turns risk settings and prices into matched per-venue sizes.
type Sizer struct {
	rng *rand.Rand
}

func NewSizer(rng *rand.Rand) *Sizer {
	return &Sizer{rng: rng}
}

// Compute never fails: degenerate inputs produce a one-lot fallback so the
// loop can still run its close path.
func (s *Sizer) Compute(in SizingInput) SizingResult {
	pct := uniform(s.rng, in.MinRiskPct, in.MaxRiskPct)
	res := SizingResult{RiskPct: pct}
	lev, ok := in.Leverage[in.Symbol]
	switch {
	case !ok || lev <= 0:
		return fallbackSizing(res, in, "leverage missing for "+in.Symbol)
	case in.PriceA <= 0 || in.PriceB <= 0:
		return fallbackSizing(res, in, "non-positive price")
	}
	res.Leverage = lev
	res.RiskAmount = pct / 100 * in.Balance
	res.TargetNotional = res.RiskAmount * lev
	if in.EquityOK && in.EquityB > 0 {
		res.AffordableCap = equityCapFraction * in.EquityB * lev
	} else {
		res.AffordableCap = in.Balance * lev
	}
	res.CappedNotional = math.Min(res.TargetNotional, res.AffordableCap)
	res.CappedNotional = math.Min(res.CappedNotional, in.Balance*exposureCeiling)
	res.SizeA = math.Max(venue.RoundToLot(res.CappedNotional/in.PriceA, in.LotA), minOrderSize)
	res.SizeB = math.Max(venue.RoundToLot(res.CappedNotional/in.PriceB, in.LotB), minOrderSize)
	return res
}

func fallbackSizing(res SizingResult, in SizingInput, reason string) SizingResult {
	res.Fallback = true
	res.FallbackReason = reason
	res.SizeA = fallbackLot(in.LotA)
	res.SizeB = fallbackLot(in.LotB)
	return res
}

func fallbackLot(lot float64) float64 {
	if lot > 0 {
		return lot
	}
	return fallbackLotSize
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}
