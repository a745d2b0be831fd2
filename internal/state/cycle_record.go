package state

import (
	"context"
	"encoding/json"
	"strings"
)

const LastCycleKey = "cycle:last"

// LegRecord is one venue's part of a finished cycle.
type LegRecord struct {
	Venue        string  `json:"venue"`
	Side         string  `json:"side"`
	Size         float64 `json:"size"`
	Price        float64 `json:"price"`
	Degraded     bool    `json:"degraded"`
	Opened       bool    `json:"opened"`
	OrderID      string  `json:"order_id,omitempty"`
	CloseOutcome string  `json:"close_outcome,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// CycleRecord is written after every cycle for operators. It is never read
// back into the ledger.
type CycleRecord struct {
	ID             string      `json:"id"`
	Symbol         string      `json:"symbol"`
	Outcome        string      `json:"outcome"`
	FinalState     string      `json:"final_state"`
	RiskPct        float64     `json:"risk_pct"`
	CappedNotional float64     `json:"capped_notional"`
	SizingFallback bool        `json:"sizing_fallback"`
	Legs           []LegRecord `json:"legs"`
	StartedAtMS    int64       `json:"started_at_ms"`
	FinishedAtMS   int64       `json:"finished_at_ms"`
}

func LoadLastCycle(ctx context.Context, store Store) (CycleRecord, bool, error) {
	if store == nil {
		return CycleRecord{}, false, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	raw, ok, err := store.Get(ctx, LastCycleKey)
	if err != nil {
		return CycleRecord{}, false, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return CycleRecord{}, false, nil
	}
	var record CycleRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return CycleRecord{}, false, err
	}
	return record, true, nil
}

func SaveLastCycle(ctx context.Context, store Store, record CycleRecord) error {
	if store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return store.Set(ctx, LastCycleKey, string(payload))
}
