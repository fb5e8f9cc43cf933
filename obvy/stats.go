package tempora

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsInternal holds the engine's own metrics on a private registry,
// so several engines (and tests) never collide on the default one.
type StatsInternal struct {
	Registry *prometheus.Registry

	Collisions     *prometheus.CounterVec
	RipplesCreated *prometheus.CounterVec
	RipplesExpired prometheus.Counter
	RipplesLive    prometheus.Gauge
	Transitions    *prometheus.CounterVec
	TickDuration   prometheus.Histogram
	OutputErrors   *prometheus.CounterVec
	WWW            *prometheus.CounterVec
}

func NewStatsInternal() *StatsInternal {
	reg := prometheus.NewRegistry()

	s := &StatsInternal{
		Registry: reg,
		Collisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tempora_collisions_total",
			Help: "Collision events by detection mode and glyph category",
		}, []string{"mode", "category"}),
		RipplesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tempora_ripples_created_total",
			Help: "Ripples created, primary and secondary",
		}, []string{"kind"}),
		RipplesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tempora_ripples_expired_total",
			Help: "Ripples retired after their lifetime",
		}),
		RipplesLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tempora_ripples_live",
			Help: "Ripples currently alive",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tempora_scale_transitions_total",
			Help: "Scale transition requests by outcome",
		}, []string{"from", "to", "result"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tempora_tick_duration_seconds",
			Help:    "Time spent inside one engine tick",
			Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.016},
		}),
		OutputErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tempora_output_errors_total",
			Help: "Failed writes to an output adapter",
		}, []string{"output"}),
		WWW: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tempora_www_requests_total",
			Help: "API requests by status code and method",
		}, []string{"code", "method"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		s.Collisions,
		s.RipplesCreated,
		s.RipplesExpired,
		s.RipplesLive,
		s.Transitions,
		s.TickDuration,
		s.OutputErrors,
		s.WWW,
	)

	return s
}

// Handler serves this registry for /metrics
func (s *StatsInternal) Handler() http.Handler {
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{Registry: s.Registry})
}

func (s *StatsInternal) RecCollision(mode, category string) {
	if category == "" {
		category = "none"
	}
	s.Collisions.WithLabelValues(mode, category).Inc()
}

func (s *StatsInternal) RecRippleCreated(secondary bool) {
	kind := "primary"
	if secondary {
		kind = "secondary"
	}
	s.RipplesCreated.WithLabelValues(kind).Inc()
	s.RipplesLive.Inc()
}

func (s *StatsInternal) RecRippleExpired() {
	s.RipplesExpired.Inc()
	s.RipplesLive.Dec()
}

// RecTransition counts a scale request; result is accepted, rejected or completed
func (s *StatsInternal) RecTransition(from, to, result string) {
	s.Transitions.WithLabelValues(from, to, result).Inc()
}

func (s *StatsInternal) RecTickTimer(d time.Duration) {
	s.TickDuration.Observe(d.Seconds())
}

func (s *StatsInternal) RecOutputError(output string) {
	s.OutputErrors.WithLabelValues(output).Inc()
}

func (s *StatsInternal) RecWWW(code, method string) {
	s.WWW.WithLabelValues(code, method).Inc()
}
