package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		paymentsAmountTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payments by gateway and status (initiated/failed).",
		},
		[]string{"gateway", "status"},
	)

	paymentsAmountTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_initiated_amount_total",
			Help: "The total value of initiated payments, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncPayment(gateway, status string) {
	paymentsTotal.WithLabelValues(norm(gateway), norm(status)).Inc()
}

func AddPaymentAmount(currency string, amount int) {
	paymentsAmountTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}
