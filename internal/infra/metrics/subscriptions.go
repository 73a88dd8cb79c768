package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(subscriptionsTotal, subscriptionsCreatedTotal, subscriptionsExtendedTotal, subscriptionsDeactivatedTotal)
}

var (
	subscriptionsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "subscriptions_total",
			Help: "Current number of subscriptions by active state.",
		},
		[]string{"state"}, // "active", "inactive"
	)

	subscriptionsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_created_total",
			Help: "Total number of subscriptions created from a NONE state (paid, trial, or referral).",
		},
	)

	subscriptionsExtendedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_extended_total",
			Help: "Total number of subscriptions extended or reactivated.",
		},
	)

	subscriptionsDeactivatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_deactivated_total",
			Help: "Total number of subscriptions moved to INACTIVE by the deactivate job.",
		},
	)
)

func SetSubscriptionsTotal(active, inactive int) {
	subscriptionsTotal.WithLabelValues("active").Set(float64(active))
	subscriptionsTotal.WithLabelValues("inactive").Set(float64(inactive))
}

func IncSubscriptionCreated()      { subscriptionsCreatedTotal.Inc() }
func IncSubscriptionExtended()     { subscriptionsExtendedTotal.Inc() }
func IncSubscriptionDeactivated()  { subscriptionsDeactivatedTotal.Inc() }
