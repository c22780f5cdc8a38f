package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	apiRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tixclient_api_requests_total",
			Help: "Remote API requests by method, resource and status class",
		},
		[]string{"method", "resource", "status"},
	)

	apiDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tixclient_api_request_duration_seconds",
			Help:    "Remote API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "resource"},
	)

	inflight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tixclient_loading_inflight",
			Help: "Tracked requests currently in flight",
		},
	)

	cartOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tixclient_cart_operations_total",
			Help: "Cart mutations by operation and result",
		},
		[]string{"operation", "result"},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tixclient_notifications_total",
			Help: "Notifications shown by type",
		},
		[]string{"type"},
	)
)

// ObserveRequest records one completed remote call. status 0 means no response.
func ObserveRequest(method, resource string, status int, took time.Duration) {
	apiRequests.WithLabelValues(method, resource, statusClass(status)).Inc()
	apiDuration.WithLabelValues(method, resource).Observe(took.Seconds())
}

// SetInflight publishes the loading counter value.
func SetInflight(n int) {
	inflight.Set(float64(n))
}

func CartOperation(op string, ok bool) {
	result := "ok"
	if !ok {
		result = "rejected"
	}
	cartOperations.WithLabelValues(op, result).Inc()
}

func Notification(kind string) {
	notifications.WithLabelValues(kind).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func statusClass(status int) string {
	if status <= 0 {
		return "network"
	}
	return strconv.Itoa(status/100) + "xx"
}
