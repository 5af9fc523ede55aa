// Package metrics exposes Prometheus instrumentation for the ippi server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the instrumentation surface used by the HTTP layer and the services.
type Recorder interface {
	IncRequestsTotal(route string, status int)
	ObserveRequestDuration(route string, duration time.Duration)

	IncStatsUpdates(op string)
	IncStatsRetries(op string)
	IncStatsConflicts(op string)
	IncAchievementsAwarded(category string)
	IncAwardFailures()
	IncActivitiesPublished(activityType string)
	IncActivityPublishFailures()
	AddStreaksDecayed(n int)

	IncCacheHits()
	IncCacheMisses()

	// Handler serves the exposition endpoint.
	Handler() http.Handler
}

// Prometheus records to a dedicated registry so multiple instances can coexist in tests.
type Prometheus struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	statsUpdates        *prometheus.CounterVec
	statsRetries        *prometheus.CounterVec
	statsConflicts      *prometheus.CounterVec
	achievementsAwarded *prometheus.CounterVec
	awardFailures       prometheus.Counter
	activitiesPublished *prometheus.CounterVec
	publishFailures     prometheus.Counter
	streaksDecayed      prometheus.Counter

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// New returns a Prometheus recorder when enabled, otherwise a no-op recorder.
func New(enabled bool) Recorder {
	if !enabled {
		return Noop{}
	}
	return NewPrometheus(prometheus.NewRegistry())
}

// NewPrometheus registers the ippi collectors on reg.
func NewPrometheus(reg *prometheus.Registry) *Prometheus {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Prometheus{
		registry: reg,

		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ippi_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "status"}),

		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ippi_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		statsUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ippi_stats_updates_total",
			Help: "Committed stats updates by operation",
		}, []string{"op"}),

		statsRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ippi_stats_retries_total",
			Help: "Stats transactions retried after database contention",
		}, []string{"op"}),

		statsConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ippi_stats_conflicts_total",
			Help: "Stats operations that exhausted their retries",
		}, []string{"op"}),

		achievementsAwarded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ippi_achievements_awarded_total",
			Help: "Achievements awarded by category",
		}, []string{"category"}),

		awardFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "ippi_achievement_award_failures_total",
			Help: "Achievement evaluations that failed after the stats commit",
		}),

		activitiesPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ippi_activities_published_total",
			Help: "Feed activities published by type",
		}, []string{"type"}),

		publishFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "ippi_activity_publish_failures_total",
			Help: "Feed activities that could not be stored",
		}),

		streaksDecayed: f.NewCounter(prometheus.CounterOpts{
			Name: "ippi_streaks_decayed_total",
			Help: "Streaks reset to zero by decay checks",
		}),

		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "ippi_cache_hits_total",
			Help: "Total number of stats cache hits",
		}),

		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "ippi_cache_misses_total",
			Help: "Total number of stats cache misses",
		}),
	}
}

func (m *Prometheus) IncRequestsTotal(route string, status int) {
	m.requestsTotal.WithLabelValues(route, httpStatusBucket(status)).Inc()
}

func (m *Prometheus) ObserveRequestDuration(route string, duration time.Duration) {
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *Prometheus) IncStatsUpdates(op string)   { m.statsUpdates.WithLabelValues(op).Inc() }
func (m *Prometheus) IncStatsRetries(op string)   { m.statsRetries.WithLabelValues(op).Inc() }
func (m *Prometheus) IncStatsConflicts(op string) { m.statsConflicts.WithLabelValues(op).Inc() }

func (m *Prometheus) IncAchievementsAwarded(category string) {
	m.achievementsAwarded.WithLabelValues(category).Inc()
}

func (m *Prometheus) IncAwardFailures() { m.awardFailures.Inc() }

func (m *Prometheus) IncActivitiesPublished(activityType string) {
	m.activitiesPublished.WithLabelValues(activityType).Inc()
}

func (m *Prometheus) IncActivityPublishFailures() { m.publishFailures.Inc() }

func (m *Prometheus) AddStreaksDecayed(n int) { m.streaksDecayed.Add(float64(n)) }

func (m *Prometheus) IncCacheHits()   { m.cacheHits.Inc() }
func (m *Prometheus) IncCacheMisses() { m.cacheMisses.Inc() }

// Handler serves the registry in the Prometheus text format.
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Prometheus) Registry() *prometheus.Registry {
	return m.registry
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Noop is the recorder used when metrics are disabled.
type Noop struct{}

func (Noop) IncRequestsTotal(_ string, _ int)                 {}
func (Noop) ObserveRequestDuration(_ string, _ time.Duration) {}
func (Noop) IncStatsUpdates(_ string)                         {}
func (Noop) IncStatsRetries(_ string)                         {}
func (Noop) IncStatsConflicts(_ string)                       {}
func (Noop) IncAchievementsAwarded(_ string)                  {}
func (Noop) IncAwardFailures()                                {}
func (Noop) IncActivitiesPublished(_ string)                  {}
func (Noop) IncActivityPublishFailures()                      {}
func (Noop) AddStreaksDecayed(_ int)                          {}
func (Noop) IncCacheHits()                                    {}
func (Noop) IncCacheMisses()                                  {}

// Handler reports that metrics are disabled.
func (Noop) Handler() http.Handler {
	return http.NotFoundHandler()
}
