package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// slotTransitions counts committed slot writes by booking transition
	// (booked, canceled, none).
	slotTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_slot_transitions_total",
			Help: "Committed slot writes by booking transition.",
		},
		[]string{"transition"},
	)

	// slotConflicts counts writes rejected because the slot changed underneath.
	slotConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_slot_conflicts_total",
			Help: "Slot writes rejected by the optimistic version check.",
		},
	)

	// linkCollisions counts public link regenerations after a unique violation.
	linkCollisions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_public_link_collisions_total",
			Help: "Public link generations that collided with an existing link.",
		},
	)
)

func init() {
	prometheus.MustRegister(slotTransitions, slotConflicts, linkCollisions)
}
