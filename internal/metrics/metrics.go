// Package metrics exposes Prometheus counters for the board.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Password check outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeUnauthorized = "unauthorized"
	OutcomeForbidden    = "forbidden"
	OutcomeRateLimited  = "rate_limited"
	OutcomeError        = "error"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collabboard_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collabboard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	passwordChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collabboard_password_checks_total",
			Help: "Password checks against posts and the admin credential",
		},
		[]string{"action", "outcome"},
	)

	postsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collabboard_posts_created_total",
			Help: "Posts created, split by whether they carry a password",
		},
		[]string{"protected"},
	)

	createThrottledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collabboard_create_throttled_total",
			Help: "Post creations rejected by the per-client throttle",
		},
	)

	feedSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "collabboard_feed_subscribers",
			Help: "Connected live feed subscribers",
		},
	)

	feedDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collabboard_feed_dropped_total",
			Help: "Live feed events dropped for slow subscribers",
		},
	)
)

// RecordHTTPRequest records one served request. route is the mux pattern
// that matched, not the raw path.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordPasswordCheck records the outcome of a password gate.
func RecordPasswordCheck(action, outcome string) {
	passwordChecksTotal.WithLabelValues(action, outcome).Inc()
}

// RecordPostCreated counts a stored post.
func RecordPostCreated(protected bool) {
	postsCreatedTotal.WithLabelValues(strconv.FormatBool(protected)).Inc()
}

// RecordCreateThrottled counts a creation rejected by the throttle.
func RecordCreateThrottled() {
	createThrottledTotal.Inc()
}

// FeedSubscriberConnected and FeedSubscriberDisconnected track the live feed
// subscriber gauge.
func FeedSubscriberConnected()    { feedSubscribers.Inc() }
func FeedSubscriberDisconnected() { feedSubscribers.Dec() }

// RecordFeedDropped counts an event not delivered to a slow subscriber.
func RecordFeedDropped() {
	feedDroppedTotal.Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
