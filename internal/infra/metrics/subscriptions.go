package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		expiryNotificationsTotal,
		subscriptionsScanned,
	)
}

var (
	expiryNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expiry_notifications_total",
			Help: "Expiry warnings by threshold and result.",
		},
		[]string{"threshold_hours", "result"}, // result: 'sent', 'failed', 'duplicate'
	)

	subscriptionsScanned = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "subscriptions_scanned",
			Help: "Subscriptions with an assigned resource seen by the last expiry scan.",
		},
	)
)

func IncExpiryNotification(thresholdHours int, result string) {
	expiryNotificationsTotal.WithLabelValues(itoa(thresholdHours), norm(result)).Inc()
}

func SetSubscriptionsScanned(n int) {
	subscriptionsScanned.Set(float64(n))
}
