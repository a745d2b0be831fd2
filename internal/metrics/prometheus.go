package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const promNamespace = "dual_dex_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry *prometheus.Registry
	counters map[string]prometheus.Counter
}

var counterHelp = []struct {
	name string
	help string
}{
	{"cycles_total", "Total number of hedge cycles run."},
	{"cycles_failed_total", "Total number of hedge cycles that ended failed."},
	{"partial_fills_total", "Total number of cycles where only one leg opened."},
	{"orders_placed_total", "Total number of orders accepted by a venue."},
	{"orders_failed_total", "Total number of orders refused or errored."},
	{"degraded_quotes_total", "Total number of quotes served from fallback prices."},
	{"closes_confirmed_total", "Total number of closes verified flat."},
	{"closes_gave_up_total", "Total number of closes abandoned after the flip retry."},
	{"closes_unknown_total", "Total number of closes whose venue state stayed indeterminate."},
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	counters := make(map[string]prometheus.Counter, len(counterHelp))
	for _, c := range counterHelp {
		counter := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      c.name,
			Help:      c.help,
		})
		registry.MustRegister(counter)
		counters[c.name] = counter
	}
	m := &Metrics{
		CyclesTotal:     promCounter{counters["cycles_total"]},
		CyclesFailed:    promCounter{counters["cycles_failed_total"]},
		PartialFills:    promCounter{counters["partial_fills_total"]},
		OrdersPlaced:    promCounter{counters["orders_placed_total"]},
		OrdersFailed:    promCounter{counters["orders_failed_total"]},
		DegradedQuotes:  promCounter{counters["degraded_quotes_total"]},
		ClosesConfirmed: promCounter{counters["closes_confirmed_total"]},
		ClosesGaveUp:    promCounter{counters["closes_gave_up_total"]},
		ClosesUnknown:   promCounter{counters["closes_unknown_total"]},
	}
	return &Prometheus{
		Metrics:  m,
		registry: registry,
		counters: counters,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Serve exposes the registry on addr until ctx is done.
func (p *Prometheus) Serve(ctx context.Context, addr, path string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle(path, p.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", zap.String("address", addr), zap.Error(err))
		}
	}()
}
