package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-booking-backend/internal/booking"
	"github.com/tbourn/go-booking-backend/internal/domain"
)

// Routing keys of published booking events.
const (
	RoutingSlotBooked   = "slot.booked"
	RoutingSlotCanceled = "slot.canceled"
)

// SlotEvent is the JSON body of a published booking event.
type SlotEvent struct {
	Event      string     `json:"event"`
	SlotID     string     `json:"slot_id"`
	OwnerID    string     `json:"owner_id"`
	SessionID  *string    `json:"session_id,omitempty"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    time.Time  `json:"end_time"`
	BookedBy   *string    `json:"booked_by,omitempty"`
	GuestName  *string    `json:"guest_name,omitempty"`
	BookedAt   *time.Time `json:"booked_at,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// amqpChannel is the subset of *amqp.Channel the publisher uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// EventPublisher publishes booked/canceled transitions to a topic exchange.
// Publishing is best effort: failures are logged and counted.
type EventPublisher struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
	timeout  time.Duration
}

// DialEventPublisher connects to url and declares a durable topic exchange.
func DialEventPublisher(url, exchange string) (*EventPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &EventPublisher{conn: conn, ch: ch, exchange: exchange, timeout: 5 * time.Second}, nil
}

// OnTransition publishes slot.booked or slot.canceled; other writes are ignored.
func (p *EventPublisher) OnTransition(ctx context.Context, old, new booking.State, slot domain.TimeSlot) {
	var key string
	switch booking.Classify(old, new) {
	case booking.TransitionBooked:
		key = RoutingSlotBooked
	case booking.TransitionCanceled:
		key = RoutingSlotCanceled
	default:
		return
	}
	ev := SlotEvent{
		Event:      key,
		SlotID:     slot.ID,
		OwnerID:    slot.OwnerID,
		SessionID:  slot.SessionID,
		StartTime:  slot.StartTime,
		EndTime:    slot.EndTime,
		BookedBy:   old.BookedBy,
		GuestName:  old.GuestName,
		BookedAt:   old.BookedAt,
		OccurredAt: time.Now().UTC(),
	}
	if key == RoutingSlotBooked {
		ev.BookedBy, ev.GuestName, ev.BookedAt = new.BookedBy, new.GuestName, new.BookedAt
	}

	if err := p.publishJSON(ctx, key, ev); err != nil {
		log.Warn().Err(err).Str("routing_key", key).Str("slot_id", slot.ID).Msg("publish booking event")
		published.WithLabelValues(key, "failed").Inc()
		return
	}
	published.WithLabelValues(key, "sent").Inc()
}

func (p *EventPublisher) publishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         b,
	})
}

// Close releases the channel and connection.
func (p *EventPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
