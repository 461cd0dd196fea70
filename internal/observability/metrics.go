// Package observability exposes Prometheus instrumentation for a tally run.
package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 2 * time.Second
)

// Metrics instruments one ownership run. Each instance carries an
// independent registry to avoid collector conflicts across runs. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	filesWalked     prometheus.Counter
	partialsFolded  prometheus.Counter
	blameErrors     prometheus.Counter
	partialsDropped prometheus.Counter
	blameDuration   prometheus.Histogram
}

// NewMetrics creates a metrics set on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		filesWalked: factory.NewCounter(prometheus.CounterOpts{
			Name: "blametally_files_walked_total",
			Help: "Blob entries emitted by the tree walk.",
		}),
		partialsFolded: factory.NewCounter(prometheus.CounterOpts{
			Name: "blametally_partials_folded_total",
			Help: "Per-file attributions folded into the global tally.",
		}),
		blameErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "blametally_blame_errors_total",
			Help: "Files skipped because blame failed.",
		}),
		partialsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "blametally_partials_dropped_total",
			Help: "Results abandoned after exhausting the delivery retry budget.",
		}),
		blameDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "blametally_blame_duration_seconds",
			Help:    "Wall time of single-file blame computations.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// IncFileWalked records one emitted work item.
func (m *Metrics) IncFileWalked() {
	if m == nil {
		return
	}

	m.filesWalked.Inc()
}

// IncPartialFolded records one attribution folded into the tally.
func (m *Metrics) IncPartialFolded() {
	if m == nil {
		return
	}

	m.partialsFolded.Inc()
}

// IncBlameError records one skipped file.
func (m *Metrics) IncBlameError() {
	if m == nil {
		return
	}

	m.blameErrors.Inc()
}

// IncPartialDropped records one fail-open drop.
func (m *Metrics) IncPartialDropped() {
	if m == nil {
		return
	}

	m.partialsDropped.Inc()
}

// ObserveBlame records the duration of one blame computation.
func (m *Metrics) ObserveBlame(elapsed time.Duration) {
	if m == nil {
		return
	}

	m.blameDuration.Observe(elapsed.Seconds())
}

// Handler returns the /metrics scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until stop is called. The returned stop
// function shuts the listener down and reports any serve failure.
func (m *Metrics) Serve(addr string) (stop func() error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)

	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("serve metrics: %w", err)
		}

		close(serveErr)
	}()

	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdownErr := server.Shutdown(ctx)
		if err := <-serveErr; err != nil {
			return err
		}

		return shutdownErr
	}
}
