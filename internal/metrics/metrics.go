package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectionState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "walink_connection_connected",
		Help: "1 while the instance is connected, 0 otherwise.",
	}, []string{"instance"})

	ReconnectAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "walink_reconnect_attempts_total",
		Help: "Total reconnect attempts scheduled.",
	}, []string{"instance"})
	ReconnectExhausted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "walink_reconnect_exhausted_total",
		Help: "Total times the reconnect attempt cap was reached.",
	}, []string{"instance"})
	SessionPurges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "walink_session_purges_total",
		Help: "Total credential purges after logout.",
	}, []string{"instance"})

	EventsProjected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "walink_events_projected_total",
		Help: "Transport events folded into the stores, by event class.",
	}, []string{"instance", "class"})
	EventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "walink_events_dropped_total",
		Help: "Malformed transport events skipped by the projector.",
	}, []string{"instance"})

	IdentityMappings = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "walink_identity_mappings",
		Help: "Current privacy-id mappings held in the identity cache.",
	}, []string{"instance"})

	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "walink_commands_total",
		Help: "Control API calls by method and outcome.",
	}, []string{"method", "outcome"})
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		ConnectionState,
		ReconnectAttempts, ReconnectExhausted, SessionPurges,
		EventsProjected, EventsDropped,
		IdentityMappings,
		CommandsTotal,
	)
}
