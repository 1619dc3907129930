package chirp

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	SuccessfulRequests  *prometheus.CounterVec
	BadRequests         *prometheus.CounterVec
	UnreachableRequests *prometheus.CounterVec
	LikeRequests        *prometheus.CounterVec
	FollowRequests      *prometheus.CounterVec
	UnfollowRequests    *prometheus.CounterVec
	ProbeAttempts       prometheus.Counter
	StaleResponses      *prometheus.CounterVec
	CachePatches        *prometheus.CounterVec
}

func InitMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SuccessfulRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "successful_request",
				Help: "Total number of successful (2xx) HTTP requests",
			},
			[]string{"path"},
		),
		BadRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unsuccessful_request",
				Help: "Total number of unsuccessful (4xx/5xx) HTTP requests",
			},
			[]string{"path"},
		),
		UnreachableRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unreachable_request",
				Help: "Total number of requests that got no response at all",
			},
			[]string{"path"},
		),
		LikeRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "successful_likes",
				Help: "Total number of confirmed like toggles",
			},
			[]string{"path"},
		),
		FollowRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "successful_follows",
				Help: "Total number of confirmed follow requests",
			},
			[]string{"path"},
		),
		UnfollowRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "successful_unfollows",
				Help: "Total number of confirmed unfollow requests",
			},
			[]string{"path"},
		),
		ProbeAttempts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "status_probe_attempts",
				Help: "Total number of availability probes issued",
			},
		),
		StaleResponses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stale_responses_dropped",
				Help: "Total number of feed responses discarded for arriving out of order",
			},
			[]string{"scope"},
		),
		CachePatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_patches",
				Help: "Total number of optimistic in-place cache patches",
			},
			[]string{"scope"},
		),
	}

	// Each Metrics owns its registry so independent instances never collide.
	m.registry.MustRegister(m.SuccessfulRequests)
	m.registry.MustRegister(m.BadRequests)
	m.registry.MustRegister(m.UnreachableRequests)
	m.registry.MustRegister(m.LikeRequests)
	m.registry.MustRegister(m.FollowRequests)
	m.registry.MustRegister(m.UnfollowRequests)
	m.registry.MustRegister(m.ProbeAttempts)
	m.registry.MustRegister(m.StaleResponses)
	m.registry.MustRegister(m.CachePatches)

	return m
}

// ServeMetrics exposes the registry on addr for dev builds. It blocks, so
// run it from a goroutine.
func (m *Metrics) ServeMetrics(addr string) error {
	handler := http.NewServeMux()
	handler.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, handler)
}
