// Package venue defines the capability surface the hedge engine consumes
// from each exchange, together with the value types that cross it.
package venue

import (
	"context"
	"time"
)

type ID string

const (
	Hyperliquid ID = "hyperliquid"
	Pacifica    ID = "pacifica"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Opposite returns the side that offsets s.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// Position is an accepted open leg. Values are never mutated after the
// venue acknowledges the order.
type Position struct {
	Venue    ID
	Symbol   string
	Side     Side
	Size     float64
	OrderID  string
	OpenedAt time.Time
}

type QuoteSource string

const (
	SourceLive     QuoteSource = "live"
	SourceFallback QuoteSource = "fallback"
)

// Quote is a slippage-adjusted execution price for one side of one symbol.
type Quote struct {
	Venue    ID
	Symbol   string
	Side     Side
	Raw      float64
	Price    float64
	Source   QuoteSource
	Degraded bool
}

type OrderRequest struct {
	Symbol        string
	Side          Side
	Size          float64
	Price         float64
	ReduceOnly    bool
	ClientOrderID string
}

type OrderResult struct {
	OrderID       string
	ClientOrderID string
	FilledSize    float64
}

type PositionStatus int

const (
	StatusIndeterminate PositionStatus = iota
	StatusAbsent
	StatusPresent
)

func (s PositionStatus) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusPresent:
		return "present"
	default:
		return "indeterminate"
	}
}

// PositionReport is what a venue can say about a symbol. Size is zero when
// the venue confirms a position exists but cannot report how large it is.
type PositionReport struct {
	Status PositionStatus
	Side   Side
	Size   float64
}

// Client is implemented once per exchange.
type Client interface {
	ID() ID
	Init(ctx context.Context) error
	Quote(ctx context.Context, symbol string, side Side) (float64, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	OpenPosition(ctx context.Context, symbol string) (PositionReport, error)
	AccountEquity(ctx context.Context) (float64, error)
	LotSize(symbol string) (float64, bool)
	Close() error
}
