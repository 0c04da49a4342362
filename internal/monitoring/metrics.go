package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the application. Collectors are
// registered on a dedicated registry so tests can construct Metrics freely.
type Metrics struct {
	Registry      *prometheus.Registry
	FetchesTotal  *prometheus.CounterVec
	PagesParsed   prometheus.Counter
	RecordsTotal  prometheus.Counter
	ErrorsTotal   *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	ReplacesTotal prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_fetches_total",
		Help: "Fetch attempts by outcome.",
	}, []string{"outcome"}) // 'success', 'retry', 'failure'
	pages := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scraper_pages_parsed_total",
		Help: "Result pages parsed.",
	})
	records := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scraper_records_total",
		Help: "Product records accumulated across runs.",
	})
	errorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_errors_total",
		Help: "Errors by type.",
	}, []string{"type"}) // e.g. 'fetch_failed', 'store_failed'
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scraper_run_duration_seconds",
		Help:    "Wall time of one search run.",
		Buckets: prometheus.DefBuckets,
	})
	replaces := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scraper_store_replaces_total",
		Help: "Replace operations against the product store.",
	})

	registry.MustRegister(fetches, pages, records, errorsTotal, runDuration, replaces)

	return &Metrics{
		Registry:      registry,
		FetchesTotal:  fetches,
		PagesParsed:   pages,
		RecordsTotal:  records,
		ErrorsTotal:   errorsTotal,
		RunDuration:   runDuration,
		ReplacesTotal: replaces,
	}
}

// IncFetch counts one fetch attempt with the given outcome.
func (m *Metrics) IncFetch(outcome string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(outcome).Inc()
}

// IncPageParsed counts one parsed page.
func (m *Metrics) IncPageParsed() {
	if m == nil {
		return
	}
	m.PagesParsed.Inc()
}

// AddRecords counts records accumulated by a run.
func (m *Metrics) AddRecords(n int) {
	if m == nil {
		return
	}
	m.RecordsTotal.Add(float64(n))
}

// IncError counts one error with a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// ObserveRun records the duration of one search run.
func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(d.Seconds())
}

// IncReplace counts one storage replace operation.
func (m *Metrics) IncReplace() {
	if m == nil {
		return
	}
	m.ReplacesTotal.Inc()
}
