package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		reconcileOutcomes,
		verifyDuration,
		webhookEvents,
		signatureFailures,
		manualReviewTotal,
		providerRequests,
		providerDuration,
	)
}

var (
	// path: client|webhook; outcome: activated|already_active|pending_manual_review|rejected
	reconcileOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_outcomes_total",
			Help: "Confirmation outcomes by entry path.",
		},
		[]string{"path", "outcome"},
	)

	verifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_verify_duration_seconds",
			Help:    "Duration of client-path payment verification in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"outcome"},
	)

	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Authenticated webhook events by event name and action taken.",
		},
		[]string{"event", "action"},
	)

	// path: client|webhook; reason: missing|mismatch
	signatureFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_signature_failures_total",
			Help: "Rejected signatures by entry path.",
		},
		[]string{"path", "reason"},
	)

	// stage: mark_completed|activate|orphan_order
	manualReviewTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_manual_review_total",
			Help: "Post-payment failures that need a human.",
		},
		[]string{"stage"},
	)

	providerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_provider_requests_total",
			Help: "Calls to the payment provider by operation and result.",
		},
		[]string{"op", "result"},
	)

	providerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_provider_request_duration_seconds",
			Help:    "Latency of payment provider calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func IncReconcileOutcome(path, outcome string) {
	reconcileOutcomes.WithLabelValues(norm(path), norm(outcome)).Inc()
}

func ObserveVerify(outcome string, d time.Duration) {
	verifyDuration.WithLabelValues(norm(outcome)).Observe(d.Seconds())
}

func IncWebhookEvent(event, action string) {
	webhookEvents.WithLabelValues(norm(event), norm(action)).Inc()
}

func IncSignatureFailure(path, reason string) {
	signatureFailures.WithLabelValues(norm(path), norm(reason)).Inc()
}

func IncManualReview(stage string) {
	manualReviewTotal.WithLabelValues(norm(stage)).Inc()
}

func ObserveProvider(op string, err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	providerRequests.WithLabelValues(norm(op), result).Inc()
	providerDuration.WithLabelValues(norm(op)).Observe(d.Seconds())
}
