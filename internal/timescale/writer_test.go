package timescale

import (
	"context"
	"strings"
	"testing"
	"time"

	"dual-dex-bot/internal/config"
	"dual-dex-bot/internal/state"

	"go.uber.org/zap"
)

func TestNewDisabledReturnsNil(t *testing.T) {
	w, err := New(config.TimescaleConfig{Enabled: false}, zap.NewNop())
	if err != nil || w != nil {
		t.Fatalf("expected nil writer for disabled journal, got %v err=%v", w, err)
	}
	w.EnqueueCycle(state.CycleRecord{ID: "c-1"})
	w.Start(context.Background())
	if err := w.Close(); err != nil {
		t.Fatalf("nil writer close: %v", err)
	}
	if w.Dropped() != 0 {
		t.Fatalf("nil writer should report no drops")
	}
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(config.TimescaleConfig{Enabled: true}, zap.NewNop()); err == nil {
		t.Fatalf("expected error for missing dsn")
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	w := newWriter(nil, "", 1, nil)
	w.EnqueueCycle(state.CycleRecord{ID: "c-1"})
	w.EnqueueCycle(state.CycleRecord{ID: "c-2"})
	w.EnqueueCycle(state.CycleRecord{ID: "c-3"})
	if got := w.Dropped(); got != 2 {
		t.Fatalf("expected 2 dropped records, got %d", got)
	}
}

func TestRunDrainsOnShutdown(t *testing.T) {
	w := newWriter(nil, "journal", 4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	w.EnqueueCycle(state.CycleRecord{ID: "c-1"})
	w.Start(ctx)
	cancel()

	done := make(chan error, 1)
	go func() { done <- w.Close() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("close: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("writer did not stop after cancel")
	}
	if len(w.cycles) != 0 {
		t.Fatalf("expected queue to be drained, %d left", len(w.cycles))
	}
}

func TestInsertSQLUsesSchema(t *testing.T) {
	w := newWriter(nil, "journal", 0, nil)
	if cap(w.cycles) != defaultQueueSize {
		t.Fatalf("expected default queue size %d, got %d", defaultQueueSize, cap(w.cycles))
	}
	if q := w.cycleInsertSQL(); !strings.Contains(q, "INSERT INTO journal.hedge_cycles") || !strings.Contains(q, "$9") {
		t.Fatalf("unexpected cycle insert: %s", q)
	}
	if q := w.legInsertSQL(); !strings.Contains(q, "INSERT INTO journal.hedge_legs") || !strings.Contains(q, "$11") {
		t.Fatalf("unexpected leg insert: %s", q)
	}
}
