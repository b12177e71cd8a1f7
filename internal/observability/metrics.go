package observability

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "newsharvest"

// Metrics tracks fetch, scrape and validation counters.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FetchSteps      *prometheus.CounterVec
	Escalations     prometheus.Counter
	BlockedPages    *prometheus.CounterVec
	FetchDuration   *prometheus.HistogramVec
	ArticlesScraped *prometheus.CounterVec
	ItemsSkipped    *prometheus.CounterVec
	Validations     *prometheus.CounterVec

	logger *slog.Logger
}

// NewMetrics creates a Metrics instance backed by its own registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FetchSteps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_steps_total",
			Help:      "Browser fetch steps by mode and outcome",
		}, []string{"mode", "outcome"}),
		Escalations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_escalations_total",
			Help:      "Headless to non-headless escalations",
		}),
		BlockedPages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocked_pages_total",
			Help:      "Blocking pages detected by indicator",
		}, []string{"indicator"}),
		FetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of complete fetch calls",
			Buckets:   []float64{1, 2, 5, 10, 20, 40, 80, 160},
		}, []string{"fetcher"}),
		ArticlesScraped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_scraped_total",
			Help:      "Articles emitted per site",
		}, []string{"site"}),
		ItemsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_skipped_total",
			Help:      "Listing items skipped per site and reason",
		}, []string{"site", "reason"}),
		Validations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Validated articles by status",
		}, []string{"status"}),
		logger: logger.With("component", "metrics"),
	}
}

// Registry exposes the underlying registry for tests and custom handlers.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// FetchStep records one (attempt, mode) outcome.
func (m *Metrics) FetchStep(mode, outcome string) {
	if m == nil {
		return
	}
	m.FetchSteps.WithLabelValues(mode, outcome).Inc()
}

// Escalated records a headless to non-headless escalation.
func (m *Metrics) Escalated() {
	if m == nil {
		return
	}
	m.Escalations.Inc()
}

// Blocked records a detected blocking page.
func (m *Metrics) Blocked(indicator string) {
	if m == nil {
		return
	}
	m.BlockedPages.WithLabelValues(indicator).Inc()
}

// ObserveFetch records the duration of a whole fetch call.
func (m *Metrics) ObserveFetch(fetcher string, seconds float64) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(fetcher).Observe(seconds)
}

// Scraped adds n emitted articles for a site.
func (m *Metrics) Scraped(site string, n int) {
	if m == nil {
		return
	}
	m.ArticlesScraped.WithLabelValues(site).Add(float64(n))
}

// Skipped records a dropped listing item.
func (m *Metrics) Skipped(site, reason string) {
	if m == nil {
		return
	}
	m.ItemsSkipped.WithLabelValues(site, reason).Inc()
}

// Validated records one validator verdict.
func (m *Metrics) Validated(status int) {
	if m == nil {
		return
	}
	m.Validations.WithLabelValues(fmt.Sprint(status)).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server in the background.
func (m *Metrics) StartServer(addr, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return srv
}
