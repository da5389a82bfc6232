package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		telegramUpdatesTotal,
		telegramCommandsReceivedTotal,
		telegramRateLimitTriggeredTotal,
		telegramPresentFallbackTotal,
		telegramChannelGateTotal,
	)
}

var (
	telegramUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_updates_total",
			Help: "Inbound Telegram updates by kind and outcome.",
		},
		[]string{"kind", "result"}, // kind: 'message', 'callback'
	)

	telegramCommandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_commands_received_total",
			Help: "Counts incoming messages and commands from users.",
		},
		[]string{"command"},
	)

	telegramRateLimitTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_rate_limit_triggered_total",
			Help: "Total number of times users have been rate-limited.",
		},
	)

	telegramPresentFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_present_fallback_total",
			Help: "Screens sent as a new message because editing the anchor failed.",
		},
	)

	telegramChannelGateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_channel_gate_total",
			Help: "Channel membership checks by outcome.",
		},
		[]string{"result"}, // 'member', 'not_member', 'lookup_failed'
	)
)

func IncTelegramUpdate(kind, result string) {
	telegramUpdatesTotal.WithLabelValues(norm(kind), norm(result)).Inc()
}

func IncTelegramCommand(command string) {
	telegramCommandsReceivedTotal.WithLabelValues(norm(command)).Inc()
}

func IncRateLimitTriggered() {
	telegramRateLimitTriggeredTotal.Inc()
}

func IncPresentFallback() {
	telegramPresentFallbackTotal.Inc()
}

func IncChannelGate(result string) {
	telegramChannelGateTotal.WithLabelValues(norm(result)).Inc()
}
