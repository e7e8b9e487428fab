// File: internal/infra/metrics/ai.go
package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiTokensIn,
		aiTokensOut,
		aiStreamsTotal,
		aiStreamLatencyMs,
		aiFirstFragmentMs,
	)
}

var (
	aiTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_in",
			Help: "Sum of prompt (input) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_out",
			Help: "Sum of completion (output) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiStreamsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_streams_total",
			Help: "Streamed turns by provider/model and outcome.",
		},
		[]string{"provider", "model", "status"}, // 'completed', 'failed', 'aborted'
	)

	aiStreamLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_stream_latency_ms",
			Help:    "Full stream duration distribution in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000, 30000, 60000},
		},
		[]string{"provider", "model", "success"},
	)

	aiFirstFragmentMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_first_fragment_ms",
			Help:    "Time to first streamed fragment in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"provider", "model"},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncStream(provider, model, status string) {
	aiStreamsTotal.WithLabelValues(norm(provider), norm(model), norm(status)).Inc()
}

func ObserveStreamUsage(provider, model string, tokensIn, tokensOut, latencyMs int, success bool) {
	lbl := []string{norm(provider), norm(model)}
	aiTokensIn.WithLabelValues(lbl...).Add(float64(tokensIn))
	aiTokensOut.WithLabelValues(lbl...).Add(float64(tokensOut))
	aiStreamLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func ObserveFirstFragment(provider, model string, ms int) {
	aiFirstFragmentMs.WithLabelValues(norm(provider), norm(model)).Observe(float64(ms))
}
