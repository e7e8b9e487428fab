// File: internal/infra/metrics/http.go
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(httpRequestsTotal, httpLatencyMs, streamClientsGauge) }

var httpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route, method and status class.",
	},
	[]string{"route", "method", "status"},
)

var httpLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_latency_ms",
		Help:    "HTTP request latency distribution in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000, 30000},
	},
	[]string{"route", "method"},
)

var streamClientsGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "stream_clients",
		Help: "Currently connected streaming clients.",
	},
)

func ObserveHTTPRequest(route, method string, status, latencyMs int) {
	httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpLatencyMs.WithLabelValues(route, method).Observe(float64(latencyMs))
}

func IncStreamClients() { streamClientsGauge.Inc() }
func DecStreamClients() { streamClientsGauge.Dec() }
