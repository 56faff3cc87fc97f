package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DirectionRx = "rx"
	DirectionTx = "tx"
)

var (
	registerOnce sync.Once

	frames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paramwire",
			Name:      "frames_total",
			Help:      "Frames sent or received.",
		},
		[]string{"node", "direction", "type"},
	)
	framesMalformed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paramwire",
			Name:      "frames_malformed_total",
			Help:      "Inbound frame candidates dropped by the decoder.",
		},
		[]string{"node"},
	)
	paramRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paramwire",
			Subsystem: "param",
			Name:      "requests_total",
			Help:      "Parameter requests by outcome.",
		},
		[]string{"node", "kind", "result"},
	)
	paramDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paramwire",
			Subsystem: "param",
			Name:      "request_duration_seconds",
			Help:      "Parameter request round trip in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "kind", "result"},
	)
	handshakeAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paramwire",
			Name:      "handshake_attempts_total",
			Help:      "Hello frames sent.",
		},
		[]string{"node"},
	)
	connectionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "paramwire",
			Name:      "connection_state",
			Help:      "Session state: 0 disconnected, 1 handshaking, 2 connected.",
		},
		[]string{"node"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(frames, framesMalformed, paramRequests, paramDuration, handshakeAttempts, connectionState)
	})
}

// MetricsHandler serves the default registry.
func MetricsHandler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordFrame(node, direction, msgType string) {
	RegisterMetrics()
	frames.WithLabelValues(node, direction, msgType).Inc()
}

func RecordMalformed(node string) {
	RegisterMetrics()
	framesMalformed.WithLabelValues(node).Inc()
}

func RecordParamRequest(node, kind, result string, duration time.Duration) {
	RegisterMetrics()
	paramRequests.WithLabelValues(node, kind, result).Inc()
	paramDuration.WithLabelValues(node, kind, result).Observe(duration.Seconds())
}

func RecordHandshakeAttempt(node string) {
	RegisterMetrics()
	handshakeAttempts.WithLabelValues(node).Inc()
}

func SetConnectionState(node string, state int) {
	RegisterMetrics()
	connectionState.WithLabelValues(node).Set(float64(state))
}
