// Package obs holds the process-wide observability surface.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the Prometheus collectors the backend exposes. All
// methods are safe on a nil receiver so tests can skip instrumentation.
type Metrics struct {
	activeSessions prometheus.Gauge
	turns          prometheus.Counter
	toolCalls      *prometheus.CounterVec
	wsMessages     *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voicesoul_active_sessions",
			Help: "Number of currently active voice sessions.",
		}),
		turns: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicesoul_turns_total",
			Help: "Total completed conversation turns.",
		}),
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicesoul_tool_calls_total",
			Help: "Tool call outcomes by terminal state.",
		}, []string{"outcome"}),
		wsMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicesoul_ws_messages_total",
			Help: "Inbound WebSocket messages by type.",
		}, []string{"type"}),
	}
}

// SessionStarted increments the active session gauge.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

// SessionEnded decrements the active session gauge.
func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

// TurnCompleted counts one finished conversation turn.
func (m *Metrics) TurnCompleted() {
	if m == nil {
		return
	}
	m.turns.Inc()
}

// ToolCall counts one tool call reaching a terminal state
// (executed, pending, denied, blocked or error).
func (m *Metrics) ToolCall(outcome string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(outcome).Inc()
}

// WSMessage counts one inbound transport message.
func (m *Metrics) WSMessage(msgType string) {
	if m == nil {
		return
	}
	m.wsMessages.WithLabelValues(msgType).Inc()
}
