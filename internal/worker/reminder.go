// Package worker runs the periodic background jobs of the service. The
// reminder loop stands in for an external scheduler: it calls the sweep on a
// fixed interval until its context ends.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper is the job run on every tick. notify.Dispatcher implements it.
type Sweeper interface {
	SweepUpcoming(ctx context.Context, now time.Time) (int, error)
}

// Reminder drives a Sweeper on a ticker.
type Reminder struct {
	Sweeper  Sweeper
	Interval time.Duration
	// Now is the clock handed to the sweep. Defaults to time.Now.
	Now func() time.Time
}

// Run sweeps once immediately and then on every Interval until ctx is done.
// A failing sweep is logged and retried on the next tick.
func (r *Reminder) Run(ctx context.Context) {
	now := r.Now
	if now == nil {
		now = time.Now
	}
	interval := r.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		r.sweep(ctx, now())
		select {
		case <-ctx.Done():
			log.Info().Msg("reminder worker stopped")
			return
		case <-t.C:
		}
	}
}

func (r *Reminder) sweep(ctx context.Context, now time.Time) {
	n, err := r.Sweeper.SweepUpcoming(ctx, now)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Msg("reminder sweep failed")
		}
		return
	}
	log.Debug().Int("slots", n).Msg("reminder sweep done")
}
