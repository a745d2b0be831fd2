// Package timescale journals finished hedge cycles to Postgres/TimescaleDB.
package timescale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"dual-dex-bot/internal/config"
	"dual-dex-bot/internal/state"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const (
	writeTimeout     = 3 * time.Second
	defaultQueueSize = 256

	cyclesTable = "hedge_cycles"
	legsTable   = "hedge_legs"
)

// Writer drains an in-memory queue on its own goroutine. Enqueue never
// blocks the trading loop; overflow is counted and dropped.
type Writer struct {
	db      *sql.DB
	log     *zap.Logger
	schema  string
	cycles  chan state.CycleRecord
	started atomic.Bool
	dropped atomic.Uint64
	done    chan struct{}
}

// New returns a nil writer when the journal is disabled. A nil *Writer is
// safe to use.
func New(cfg config.TimescaleConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("timescale dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	w := newWriter(db, cfg.Schema, cfg.QueueSize, log)
	if err := w.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func newWriter(db *sql.DB, schema string, queueSize int, log *zap.Logger) *Writer {
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = "public"
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{
		db:     db,
		log:    log,
		schema: schema,
		cycles: make(chan state.CycleRecord, queueSize),
		done:   make(chan struct{}),
	}
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil || !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

// Close waits for the drain goroutine to stop (its context must be done)
// and closes the pool.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	if w.started.Load() {
		<-w.done
	}
	if w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *Writer) EnqueueCycle(record state.CycleRecord) {
	if w == nil {
		return
	}
	select {
	case w.cycles <- record:
	default:
		if w.dropped.Add(1) == 1 {
			w.log.Warn("timescale cycle queue full", zap.String("cycle_id", record.ID))
		}
	}
}

func (w *Writer) Dropped() uint64 {
	if w == nil {
		return 0
	}
	return w.dropped.Load()
}

func (w *Writer) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case record := <-w.cycles:
			w.writeCycle(ctx, record)
		}
	}
}

// drain flushes whatever is queued at shutdown on a fresh context.
func (w *Writer) drain() {
	for {
		select {
		case record := <-w.cycles:
			w.writeCycle(context.Background(), record)
		default:
			return
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		cycle_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		outcome TEXT NOT NULL,
		final_state TEXT NOT NULL,
		risk_pct DOUBLE PRECISION NOT NULL,
		capped_notional DOUBLE PRECISION NOT NULL,
		sizing_fallback BOOLEAN NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (ts, cycle_id)
	)`, w.table(cyclesTable))); err != nil {
		return err
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		cycle_id TEXT NOT NULL,
		venue TEXT NOT NULL,
		side TEXT NOT NULL,
		size DOUBLE PRECISION NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		degraded BOOLEAN NOT NULL,
		opened BOOLEAN NOT NULL,
		order_id TEXT NOT NULL DEFAULT '',
		close_outcome TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT ''
	)`, w.table(legsTable))); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		w.log.Warn("timescale extension ensure failed", zap.Error(err))
		return nil
	}
	for _, table := range []string{cyclesTable, legsTable} {
		if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table(table))); err != nil {
			w.log.Warn("timescale hypertable create failed", zap.String("table", table), zap.Error(err))
		}
	}
	return nil
}

func (w *Writer) writeCycle(ctx context.Context, record state.CycleRecord) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := w.insertCycle(ctx, record); err != nil {
		w.log.Warn("timescale cycle insert failed", zap.String("cycle_id", record.ID), zap.Error(err))
	}
}

func (w *Writer) insertCycle(ctx context.Context, record state.CycleRecord) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	finished := time.UnixMilli(record.FinishedAtMS).UTC()
	if _, err := tx.ExecContext(ctx, w.cycleInsertSQL(),
		finished,
		record.ID,
		record.Symbol,
		record.Outcome,
		record.FinalState,
		record.RiskPct,
		record.CappedNotional,
		record.SizingFallback,
		time.UnixMilli(record.StartedAtMS).UTC(),
	); err != nil {
		return err
	}
	for _, leg := range record.Legs {
		if _, err := tx.ExecContext(ctx, w.legInsertSQL(),
			finished,
			record.ID,
			leg.Venue,
			leg.Side,
			leg.Size,
			leg.Price,
			leg.Degraded,
			leg.Opened,
			leg.OrderID,
			leg.CloseOutcome,
			leg.Error,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (w *Writer) cycleInsertSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (
		ts, cycle_id, symbol, outcome, final_state, risk_pct, capped_notional, sizing_fallback, started_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	ON CONFLICT (ts, cycle_id) DO NOTHING`, w.table(cyclesTable))
}

func (w *Writer) legInsertSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (
		ts, cycle_id, venue, side, size, price, degraded, opened, order_id, close_outcome, error
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`, w.table(legsTable))
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}
