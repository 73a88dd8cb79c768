package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(vpnCallsTotal, vpnCallLatencyMs) }

var (
	vpnCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpn_provisioner_calls_total",
			Help: "VPN Provisioner calls, labeled by operation and outcome.",
		},
		[]string{"op", "outcome"}, // op: create_key|delete_key, outcome: success|transport_error
	)

	vpnCallLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vpn_provisioner_call_latency_ms",
			Help:    "VPN Provisioner call latency in milliseconds, including internal retries.",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 5000, 15000, 30000, 60000},
		},
		[]string{"op"},
	)
)

func ObserveVPNCall(op, outcome string, latencyMs float64) {
	vpnCallsTotal.WithLabelValues(norm(op), norm(outcome)).Inc()
	vpnCallLatencyMs.WithLabelValues(norm(op)).Observe(latencyMs)
}
