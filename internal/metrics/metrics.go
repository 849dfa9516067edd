package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tripplanner"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "status"},
	)

	storeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_requests_total",
			Help:      "Record store calls by collection, operation and outcome.",
		},
		[]string{"collection", "op", "outcome"},
	)

	storeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_request_duration_seconds",
			Help:      "Record store call latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"collection", "op"},
	)

	storeCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_cache_total",
			Help:      "Read cache lookups by collection and result.",
		},
		[]string{"collection", "result"},
	)

	staleResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_discarded_total",
			Help:      "Fetch results dropped because the identity changed mid-flight.",
		},
		[]string{"collection"},
	)

	ratingSyncs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rating_syncs_total",
			Help:      "Trip rating write-backs by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	ratingDivergence = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rating_divergence_total",
			Help:      "Review posts where the running average differed from the mean.",
		},
	)

	sessionFailover = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_failover_active",
			Help:      "1 while the session repository is served by its fallback.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			storeRequests,
			storeLatency,
			storeCache,
			staleResponses,
			ratingSyncs,
			ratingDivergence,
			sessionFailover,
		)
	})
}

// IncHTTP increments the counter for an endpoint and status code.
func IncHTTP(endpoint string, status int) {
	httpRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

// ObserveStore records one record store call.
func ObserveStore(collection, op string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	storeRequests.WithLabelValues(collection, op, outcome).Inc()
	storeLatency.WithLabelValues(collection, op).Observe(time.Since(started).Seconds())
}

func IncCache(collection string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	storeCache.WithLabelValues(collection, result).Inc()
}

func IncStale(collection string) {
	staleResponses.WithLabelValues(collection).Inc()
}

func IncRatingSync(mode string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ratingSyncs.WithLabelValues(mode, outcome).Inc()
}

func IncRatingDivergence() {
	ratingDivergence.Inc()
}

// SetSessionFailover flips the failover gauge.
func SetSessionFailover(active bool) {
	if active {
		sessionFailover.Set(1)
		return
	}
	sessionFailover.Set(0)
}
