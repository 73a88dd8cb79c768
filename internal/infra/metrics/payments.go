package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(paymentsTotal, paymentsRevenueTotal) }

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payments by status (pending/success/failed/canceled).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "Total monetary value of successful payments, labeled by tariff.",
		},
		[]string{"tariff"},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(tariff string, amount float64) {
	paymentsRevenueTotal.WithLabelValues(norm(tariff)).Add(amount)
}
