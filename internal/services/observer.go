package services

import (
	"context"

	"github.com/tbourn/go-booking-backend/internal/booking"
	"github.com/tbourn/go-booking-backend/internal/domain"
)

// TransitionObserver is told about every committed slot write, with the
// booking state before and after it. Implementations must not fail the
// caller: delivery problems are theirs to log.
type TransitionObserver interface {
	OnTransition(ctx context.Context, old, new booking.State, slot domain.TimeSlot)
}

// ObserverFunc adapts a plain function to TransitionObserver.
type ObserverFunc func(ctx context.Context, old, new booking.State, slot domain.TimeSlot)

// OnTransition calls f.
func (f ObserverFunc) OnTransition(ctx context.Context, old, new booking.State, slot domain.TimeSlot) {
	f(ctx, old, new, slot)
}
