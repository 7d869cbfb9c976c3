package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		stalePendingPayments,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment status transitions (pending/completed/failed/refunded).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_minor_total",
			Help: "Completed payment value in minor units, labeled by currency.",
		},
		[]string{"currency"},
	)

	stalePendingPayments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "payments_stale_pending",
			Help: "PENDING payments older than the audit threshold at the last scan.",
		},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}

func SetStalePending(n int) {
	stalePendingPayments.Set(float64(n))
}
