// Package prometheus exposes pipeline progress metrics for long batch runs.
// The listener is optional; when disabled the metrics still aggregate
// in-process and cost nothing observable.
package prometheus

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/logging"
)

// PipelineMetrics holds all batch-run metrics.
type PipelineMetrics struct {
	registry *prometheus.Registry

	// Classification progress.
	PatentsProcessed prometheus.Counter
	PatentsSkipped   prometheus.Counter
	PatentsErrored   prometheus.Counter
	PatentsNoData    prometheus.Counter

	// Citation classes, labeled competitor|affiliate|neutral.
	CitationsClassified *prometheus.CounterVec

	// Upstream fetch behavior.
	FetchRequests prometheus.Counter
	FetchRetries  prometheus.Counter
	FetchDuration prometheus.Histogram

	PatentProcessDuration prometheus.Histogram
}

// NewPipelineMetrics registers all metrics on a fresh registry.
func NewPipelineMetrics() *PipelineMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PipelineMetrics{
		registry: reg,
		PatentsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ipsignal", Subsystem: "classify", Name: "patents_processed_total",
			Help: "Patents classified in this run.",
		}),
		PatentsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ipsignal", Subsystem: "classify", Name: "patents_skipped_total",
			Help: "Patents skipped because a classification record already existed.",
		}),
		PatentsErrored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ipsignal", Subsystem: "classify", Name: "patents_errored_total",
			Help: "Patents whose classification failed.",
		}),
		PatentsNoData: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ipsignal", Subsystem: "classify", Name: "patents_no_data_total",
			Help: "Patents with no fetched citation data.",
		}),
		CitationsClassified: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ipsignal", Subsystem: "classify", Name: "citations_classified_total",
			Help: "Forward citations classified, by class.",
		}, []string{"class"}),
		FetchRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ipsignal", Subsystem: "fetch", Name: "requests_total",
			Help: "Upstream citation fetch requests.",
		}),
		FetchRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ipsignal", Subsystem: "fetch", Name: "retries_total",
			Help: "Upstream citation fetch retries.",
		}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ipsignal", Subsystem: "fetch", Name: "request_duration_seconds",
			Help:    "Upstream citation fetch latency.",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		PatentProcessDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ipsignal", Subsystem: "classify", Name: "patent_duration_seconds",
			Help:    "Per-patent classification latency.",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		}),
	}
}

// Serve starts the /metrics listener on addr and blocks until ctx is done.
// Intended to run in its own goroutine alongside a batch command.
func (m *PipelineMetrics) Serve(ctx context.Context, addr string, log logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listener started", logging.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Warn("metrics listener stopped", logging.Err(err))
	}
}

// Registry exposes the underlying registry for tests.
func (m *PipelineMetrics) Registry() *prometheus.Registry {
	return m.registry
}
