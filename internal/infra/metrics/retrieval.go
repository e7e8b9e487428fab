// File: internal/infra/metrics/retrieval.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(retrievalRequestsTotal, retrievalLatencyMs, indexedChunks) }

var retrievalRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "retrieval_requests_total",
		Help: "Context retrieval calls by backend and outcome.",
	},
	[]string{"backend", "status"}, // backend: 'documents' | 'web'
)

var retrievalLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "retrieval_latency_ms",
		Help:    "Retrieval latency distribution in milliseconds.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	},
	[]string{"backend"},
)

var indexedChunks = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "indexed_chunks",
		Help: "Number of chunks held by the in-memory index per collection.",
	},
	[]string{"collection"},
)

func IncRetrieval(backend, status string) {
	retrievalRequestsTotal.WithLabelValues(norm(backend), norm(status)).Inc()
}

func ObserveRetrievalLatency(backend string, ms int) {
	retrievalLatencyMs.WithLabelValues(norm(backend)).Observe(float64(ms))
}

func SetIndexedChunks(collection string, n int) {
	indexedChunks.WithLabelValues(collection).Set(float64(n))
}
