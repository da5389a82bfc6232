package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(flowTransitionsTotal) }

var flowTransitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "conversation_transitions_total",
		Help: "Conversation flow transitions by flow, operation and result.",
	},
	[]string{"flow", "op", "result"}, // result: 'ok', 'precondition', 'invalid_input', 'business', 'error'
)

func IncFlowTransition(flow, op, result string) {
	flowTransitionsTotal.WithLabelValues(norm(flow), norm(op), norm(result)).Inc()
}

func itoa(n int) string { return strconv.Itoa(n) }
