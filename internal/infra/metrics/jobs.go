package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobRunsTotal, alertsTotal) }

var (
	jobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_job_runs_total",
			Help: "Background job runs, labeled by job and result.",
		},
		[]string{"job", "result"}, // job: expiry_sweep|pending_audit
	)

	alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ops_alerts_total",
			Help: "Operator alerts by delivery status.",
		},
		[]string{"status"}, // sent|error|dropped
	)
)

func IncJobRun(job string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	jobRunsTotal.WithLabelValues(norm(job), result).Inc()
}

func IncAlert(status string) {
	alertsTotal.WithLabelValues(norm(status)).Inc()
}
