package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(adminCommandTotal, promocodeActionsTotal) }

var (
	adminCommandTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_command_total",
			Help: "Tracks attempts to use admin commands.",
		},
		[]string{"command", "status"}, // status: 'authorized', 'unauthorized'
	)

	promocodeActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promocode_actions_total",
			Help: "Promocode editor outcomes by action.",
		},
		[]string{"action", "result"}, // action: create|delete|edit, result: success|failure
	)
)

func IncAdminCommand(command, status string) {
	adminCommandTotal.WithLabelValues(norm(command), norm(status)).Inc()
}

func IncPromocodeAction(action string, ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	promocodeActionsTotal.WithLabelValues(norm(action), result).Inc()
}
