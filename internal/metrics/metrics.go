// Package metrics provides Prometheus metrics for the voting service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Custom registry to avoid default Go metrics.
var registry = prometheus.NewRegistry()

var (
	votesTotal = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "campusvote",
		Name:      "votes_total",
		Help:      "Votes successfully recorded.",
	})
	votesDuplicate = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "campusvote",
		Name:      "votes_duplicate_total",
		Help:      "Vote submissions rejected as duplicates of an existing (voter, candidate) vote.",
	})
	votesRateLimited = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "campusvote",
		Name:      "votes_rate_limited_total",
		Help:      "Vote submissions rejected client-side by the cooldown.",
	})
	pairScanFallback = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "campusvote",
		Name:      "pair_scan_fallback_total",
		Help:      "Pair generations that exhausted random sampling and fell back to the exhaustive scan.",
	})
	sessionsActive = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: "campusvote",
		Name:      "sessions_active",
		Help:      "Mounted voting sessions.",
	})
	sessionsExhausted = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "campusvote",
		Name:      "sessions_exhausted_total",
		Help:      "Sessions that reached pair exhaustion.",
	})
	httpRequests = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "campusvote",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, path and status.",
	}, []string{"method", "path", "status"})
)

func IncVote()              { votesTotal.Inc() }
func IncDuplicateVote()     { votesDuplicate.Inc() }
func IncRateLimited()       { votesRateLimited.Inc() }
func IncPairScanFallback()  { pairScanFallback.Inc() }
func IncActiveSessions()    { sessionsActive.Inc() }
func DecActiveSessions()    { sessionsActive.Dec() }
func IncExhaustedSessions() { sessionsExhausted.Inc() }

func ObserveHTTPRequest(method, path, status string) {
	httpRequests.WithLabelValues(method, path, status).Inc()
}

// Handler serves the custom registry, for mounting at /metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
