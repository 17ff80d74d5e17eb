package notify

import "github.com/prometheus/client_golang/prometheus"

var (
	// deliveries counts notification attempts by kind and outcome
	// (sent, failed, skipped, duplicate).
	deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_notifications_total",
			Help: "Owner notifications by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// sweepSlots counts booked slots found by reminder sweeps.
	sweepSlots = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_reminder_sweep_slots_total",
			Help: "Booked slots found in the reminder window.",
		},
	)

	// published counts booking events handed to the message broker.
	published = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_events_published_total",
			Help: "Booking events published to the broker by routing key and outcome.",
		},
		[]string{"routing_key", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(deliveries, sweepSlots, published)
}
