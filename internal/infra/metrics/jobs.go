// File: internal/infra/metrics/jobs.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(remindersFiredTotal, sweepRunsTotal, ingestJobsTotal) }

var remindersFiredTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "reminders_fired_total",
		Help: "Total reminders promoted into notifications by the sweep.",
	},
)

var sweepRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reminder_sweep_runs_total",
		Help: "Sweep ticks by status.",
	},
	[]string{"status"}, // 'ok', 'failed', 'skipped'
)

var ingestJobsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ingest_jobs_total",
		Help: "Document ingestion jobs by status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

func AddRemindersFired(n int) {
	remindersFiredTotal.Add(float64(n))
}

func IncSweepRun(status string) {
	sweepRunsTotal.WithLabelValues(norm(status)).Inc()
}

func IncIngestJob(status string) {
	ingestJobsTotal.WithLabelValues(norm(status)).Inc()
}
