package notify

import (
	"context"

	"github.com/tbourn/go-booking-backend/internal/booking"
	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/services"
)

// Multi fans one transition out to several observers, in order.
type Multi []services.TransitionObserver

// OnTransition calls every non-nil observer.
func (m Multi) OnTransition(ctx context.Context, old, new booking.State, slot domain.TimeSlot) {
	for _, o := range m {
		if o != nil {
			o.OnTransition(ctx, old, new, slot)
		}
	}
}
