package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "thumbforge"

// Cycle outcomes
const (
	OutcomeCompleted           = "completed"
	OutcomeFailed              = "failed"
	OutcomeInsufficientCredits = "insufficient_credits"
	OutcomeRejected            = "rejected"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: promNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	generationCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "generation_cycles_total",
			Help:      "Generation cycles by outcome",
		},
		[]string{"outcome"},
	)

	generationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: promNamespace,
			Name:      "generation_cycle_duration_seconds",
			Help:      "Duration of completed generation cycles",
			Buckets:   []float64{5, 10, 20, 30, 45, 60, 90, 120, 180},
		},
	)

	variationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "variations_total",
			Help:      "Generated variations by status",
		},
		[]string{"status"},
	)

	suggestionFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "suggestion_fallbacks_total",
			Help:      "Cycles that used placeholder titles",
		},
	)

	editsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "edits_total",
			Help:      "Editor commits by outcome",
		},
		[]string{"outcome"},
	)
)

// totals mirrors the domain counters for the JSON metrics endpoint
var totals = struct {
	mu     sync.Mutex
	counts map[string]int64
}{counts: make(map[string]int64)}

func tally(key string, n int64) {
	totals.mu.Lock()
	totals.counts[key] += n
	totals.mu.Unlock()
}

// Snapshot returns the domain counts recorded since start, keyed
// "<series>.<label>" (e.g. "generation_cycles.completed")
func Snapshot() map[string]int64 {
	totals.mu.Lock()
	defer totals.mu.Unlock()

	out := make(map[string]int64, len(totals.counts))
	for k, v := range totals.counts {
		out[k] = v
	}
	return out
}

func HttpRequest(method, path string, code int, duration time.Duration) {
	httpRequestsTotal.With(prometheus.Labels{
		"method": method,
		"path":   path,
		"code":   strconv.Itoa(code),
	}).Inc()
	httpRequestDuration.With(prometheus.Labels{
		"method": method,
		"path":   path,
	}).Observe(duration.Seconds())
}

func GenerationCycle(outcome string, duration time.Duration) {
	generationCyclesTotal.WithLabelValues(outcome).Inc()
	tally("generation_cycles."+outcome, 1)
	if outcome == OutcomeCompleted {
		generationDuration.Observe(duration.Seconds())
	}
}

func Variations(status string, n int) {
	if n > 0 {
		variationsTotal.WithLabelValues(status).Add(float64(n))
		tally("variations."+status, int64(n))
	}
}

func SuggestionFallback() {
	suggestionFallbacksTotal.Inc()
	tally("suggestion_fallbacks", 1)
}

func Edit(outcome string) {
	editsTotal.WithLabelValues(outcome).Inc()
	tally("edits."+outcome, 1)
}

// Handler serves the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.Handler()
}
