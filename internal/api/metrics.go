package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"quartermaster/internal/engine"
	"quartermaster/internal/zkillboard"
)

// Metrics are the server's Prometheus collectors.
type Metrics struct {
	RequestDuration  *prometheus.HistogramVec
	RouteSuggestions *prometheus.CounterVec
	DangerRatings    *prometheus.CounterVec
	DangerFetchFails prometheus.Counter
}

// NewMetrics registers the collectors on reg. A nil reg gets a private
// registry so tests can build servers freely.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quartermaster_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route", "status"}),

		RouteSuggestions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "quartermaster_route_suggestions_total",
			Help: "Route suggestions by outcome.",
		}, []string{"outcome"}), // ok, alternative, error

		DangerRatings: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "quartermaster_system_danger_ratings_total",
			Help: "Systems rated, by danger level.",
		}, []string{"rating"}),

		DangerFetchFails: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "quartermaster_danger_fetch_failures_total",
			Help: "Systems whose kill data could not be fetched and were rated low.",
		}),
	}
}

func (m *Metrics) observeDangers(dangers []*zkillboard.SystemDanger) {
	for _, d := range dangers {
		if d == nil {
			continue
		}
		m.DangerRatings.WithLabelValues(string(d.DangerRating)).Inc()
		if d.FetchFailed {
			m.DangerFetchFails.Inc()
		}
	}
}

func (m *Metrics) observeSuggestion(s *engine.RouteSuggestion, err error) {
	switch {
	case err != nil:
		m.RouteSuggestions.WithLabelValues("error").Inc()
	case len(s.AlternativeRoutes) > 0:
		m.RouteSuggestions.WithLabelValues("alternative").Inc()
	default:
		m.RouteSuggestions.WithLabelValues("ok").Inc()
	}
}

// instrument records request latency labelled by chi's route pattern.
func (m *Metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
