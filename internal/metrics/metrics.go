// Package metrics exposes Prometheus instrumentation for the sync cycle.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle outcomes used as the "outcome" label.
const (
	OutcomePublished = "published"
	OutcomeUnchanged = "unchanged"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "publish_failed"
)

// Recorder receives cycle measurements.
type Recorder interface {
	ObserveCycle(outcome string, duration time.Duration)
	IncFetchErrors()
	IncPublishErrors()
	AddNewItems(n int)
	SetLibraryItems(section string, count int)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Provider records metrics into its own registry.
type Provider struct {
	health        HealthCheck
	registry      *prometheus.Registry
	cyclesTotal   *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	fetchErrors   prometheus.Counter
	publishErrors prometheus.Counter
	newItemsTotal prometheus.Counter
	libraryItems  *prometheus.GaugeVec
}

// NewProvider registers the bot metrics on a fresh registry.
func NewProvider() *Provider {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Provider{
		registry: reg,
		cyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "plexbot_cycles_total",
			Help: "Sync cycles by outcome",
		}, []string{"outcome"}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "plexbot_cycle_duration_seconds",
			Help:    "Duration of sync cycles in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		fetchErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "plexbot_fetch_errors_total",
			Help: "Failed reads of the Plex catalog",
		}),
		publishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "plexbot_publish_errors_total",
			Help: "Failed Discord publishes",
		}),
		newItemsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "plexbot_new_items_total",
			Help: "Items detected as newly added",
		}),
		libraryItems: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "plexbot_library_items",
			Help: "Items in the last fetched catalog per section",
		}, []string{"section"}),
	}
}

func (p *Provider) ObserveCycle(outcome string, duration time.Duration) {
	p.cyclesTotal.WithLabelValues(outcome).Inc()
	p.cycleDuration.Observe(duration.Seconds())
}

func (p *Provider) IncFetchErrors() {
	p.fetchErrors.Inc()
}

func (p *Provider) IncPublishErrors() {
	p.publishErrors.Inc()
}

func (p *Provider) AddNewItems(n int) {
	if n > 0 {
		p.newItemsTotal.Add(float64(n))
	}
}

func (p *Provider) SetLibraryItems(section string, count int) {
	p.libraryItems.WithLabelValues(section).Set(float64(count))
}

// Gatherer exposes the registry for scraping and tests.
func (p *Provider) Gatherer() prometheus.Gatherer {
	return p.registry
}

// SetHealthCheck makes /healthz fail while check returns an error.
func (p *Provider) SetHealthCheck(check HealthCheck) {
	p.health = check
}

// Handler serves /metrics and /healthz.
func (p *Provider) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", p.healthz)
	return mux
}

func (p *Provider) healthz(w http.ResponseWriter, r *http.Request) {
	if p.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := p.health(ctx); err != nil {
			http.Error(w, "unhealthy: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

const healthTimeout = 2 * time.Second

// Serve runs the metrics listener on addr until ctx is cancelled.
func (p *Provider) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	log := logger.With("component", "metrics")
	srv := &http.Server{
		Addr:              addr,
		Handler:           p.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Metrics listener started", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down metrics listener", "error", err)
		}
		log.Info("Metrics listener stopped")
		return nil
	}
}

// Noop discards every measurement. It is used when metrics are disabled.
type Noop struct{}

func (Noop) ObserveCycle(string, time.Duration) {}
func (Noop) IncFetchErrors()                    {}
func (Noop) IncPublishErrors()                  {}
func (Noop) AddNewItems(int)                    {}
func (Noop) SetLibraryItems(string, int)        {}
