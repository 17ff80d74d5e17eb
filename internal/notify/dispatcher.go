package notify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/booking"
	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/repo"
)

// Reminder window relative to the sweep time.
const (
	ReminderWindowFrom = 23*time.Hour + 30*time.Minute
	ReminderWindowTo   = 24*time.Hour + 30*time.Minute
)

// Sender delivers one message to a recipient. TelegramClient implements it.
type Sender interface {
	Send(ctx context.Context, recipientID, text, format string) error
}

// Dispatcher turns booking transitions and upcoming slots into owner
// messages. Delivery problems are logged and counted, never returned to the
// writer that triggered them.
type Dispatcher struct {
	DB     *gorm.DB
	Sender Sender
	// Ledger suppresses duplicate reminders across overlapping sweeps. Nil
	// means every sweep reminds about every slot in its window.
	Ledger ReminderLedger
	// Timeout bounds each send. Zero means DefaultSendTimeout.
	Timeout time.Duration
	// Location renders slot times in messages. Nil means UTC.
	Location *time.Location
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// NewDispatcher wires a Dispatcher with the given sender and ledger.
func NewDispatcher(db *gorm.DB, sender Sender, ledger ReminderLedger, timeout time.Duration) *Dispatcher {
	return &Dispatcher{DB: db, Sender: sender, Ledger: ledger, Timeout: timeout}
}

func (d *Dispatcher) logger() *zerolog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return &log.Logger
}

// OnTransition sends the booking message on free→booked and the
// cancellation message on booked→free. Other writes are ignored. The write
// is already committed, so the caller going away does not cancel the send.
func (d *Dispatcher) OnTransition(ctx context.Context, old, new booking.State, slot domain.TimeSlot) {
	ctx = context.WithoutCancel(ctx)
	tr := booking.Classify(old, new)
	var text string
	switch tr {
	case booking.TransitionBooked:
		text = BookingMessage(slot, d.sessionTitle(ctx, slot), d.Location)
	case booking.TransitionCanceled:
		text = CancellationMessage(slot, d.Location)
	default:
		return
	}
	d.deliver(ctx, tr.String(), slot, text)
}

// SweepUpcoming reminds owners of booked slots starting within
// [now+23h30m, now+24h30m] and returns how many slots were found. Slots are
// only read. With a Ledger, a slot already reminded about is skipped.
func (d *Dispatcher) SweepUpcoming(ctx context.Context, now time.Time) (int, error) {
	from := now.UTC().Add(ReminderWindowFrom)
	to := now.UTC().Add(ReminderWindowTo)

	slots, err := repo.ListBookedBetween(ctx, d.DB, from, to)
	if err != nil {
		return 0, err
	}
	sweepSlots.Add(float64(len(slots)))

	for _, slot := range slots {
		if d.Ledger != nil {
			// Keep the mark until the slot has started.
			ttl := slot.StartTime.Sub(now) + time.Hour
			first, err := d.Ledger.Claim(ctx, slot.ID, slot.StartTime, ttl)
			if err != nil {
				d.logger().Warn().Err(err).Str("slot_id", slot.ID).Msg("reminder ledger unavailable, sending anyway")
			} else if !first {
				deliveries.WithLabelValues("reminder", "duplicate").Inc()
				continue
			}
		}
		d.deliver(ctx, "reminder", slot, ReminderMessage(slot, d.Location))
	}
	return len(slots), nil
}

// deliver looks up the owner's endpoint and sends text, logging the outcome.
func (d *Dispatcher) deliver(ctx context.Context, kind string, slot domain.TimeSlot, text string) {
	lg := d.logger().With().Str("kind", kind).Str("slot_id", slot.ID).Str("owner_id", slot.OwnerID).Logger()

	if d.Sender == nil {
		deliveries.WithLabelValues(kind, "skipped").Inc()
		return
	}
	profile, err := repo.GetProfile(ctx, d.DB, slot.OwnerID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		lg.Error().Err(err).Msg("load owner profile")
		deliveries.WithLabelValues(kind, "failed").Inc()
		return
	}
	if profile == nil || profile.TelegramID == nil || *profile.TelegramID == "" {
		lg.Debug().Msg("owner has no telegram id, notification skipped")
		deliveries.WithLabelValues(kind, "skipped").Inc()
		return
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := d.Sender.Send(sendCtx, *profile.TelegramID, text, FormatHTML); err != nil {
		lg.Error().Err(err).Msg("notification delivery failed")
		deliveries.WithLabelValues(kind, "failed").Inc()
		return
	}
	lg.Info().Msg("notification sent")
	deliveries.WithLabelValues(kind, "sent").Inc()
}

// sessionTitle returns the slot's session title, or "" when it has none or
// the lookup fails.
func (d *Dispatcher) sessionTitle(ctx context.Context, slot domain.TimeSlot) string {
	if slot.Session != nil {
		return slot.Session.Title
	}
	if slot.SessionID == nil {
		return ""
	}
	sess, err := repo.GetSession(ctx, d.DB, *slot.SessionID, slot.OwnerID)
	if err != nil {
		return ""
	}
	return sess.Title
}
