package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	CyclesTotal     Counter
	CyclesFailed    Counter
	PartialFills    Counter
	OrdersPlaced    Counter
	OrdersFailed    Counter
	DegradedQuotes  Counter
	ClosesConfirmed Counter
	ClosesGaveUp    Counter
	ClosesUnknown   Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		CyclesTotal:     n,
		CyclesFailed:    n,
		PartialFills:    n,
		OrdersPlaced:    n,
		OrdersFailed:    n,
		DegradedQuotes:  n,
		ClosesConfirmed: n,
		ClosesGaveUp:    n,
		ClosesUnknown:   n,
	}
}
