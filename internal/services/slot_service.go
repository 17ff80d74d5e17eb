// Package services – SlotService
//
// This file implements SlotService, the slot store: owners create, list, and
// cancel time slots; guests and registered users book them through a
// session's public link. Every write goes through the same path:
//
//  1. load the slot inside a transaction and snapshot its booking state
//  2. apply the mutation and run booking.Normalize
//  3. write with a versioned conditional update (stale version → ErrConflict)
//  4. after commit, hand old/new state to the TransitionObserver
//
// Observability: public methods are OpenTelemetry-instrumented and committed
// transitions are counted in Prometheus.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/booking"
	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/repo"
)

// defaultSessionTitleLayout renders the creation time in the title of the
// session made for slots created without one.
const defaultSessionTitleLayout = "02.01.2006 15:04"

// SlotInput carries the owner-supplied fields of a new slot.
type SlotInput struct {
	SessionID *string
	StartTime time.Time
	EndTime   time.Time
}

// SlotQuery narrows an owner's slot list. Nil fields do not filter.
type SlotQuery struct {
	SessionID *string
	Booked    *bool
	From      *time.Time
	To        *time.Time
}

// SlotService coordinates slot persistence, booking transitions, and
// transition notification.
type SlotService struct {
	DB       *gorm.DB
	Sessions *SessionService
	Observer TransitionObserver

	// Now is the clock used for booked_at stamps and "future" checks.
	Now func() time.Time
}

// NewSlotService wires a SlotService with the wall clock.
func NewSlotService(db *gorm.DB, sessions *SessionService, obs TransitionObserver) *SlotService {
	return &SlotService{DB: db, Sessions: sessions, Observer: obs, Now: time.Now}
}

func (s *SlotService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Create stores a new free slot for ownerID. Without a session id the slot
// goes to the owner's most recent session, or to a new session titled
// "Session from <date>" when the owner has none. An invalid range is rejected
// before anything is written.
func (s *SlotService) Create(ctx context.Context, ownerID string, in SlotInput) (*domain.TimeSlot, error) {
	tr := otel.Tracer("services/SlotService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(attribute.String("user.id", ownerID)))
	defer span.End()

	now := s.now()
	slot := &domain.TimeSlot{
		OwnerID:   ownerID,
		StartTime: in.StartTime.UTC(),
		EndTime:   in.EndTime.UTC(),
	}
	if err := booking.Normalize(slot, now); err != nil {
		return nil, err
	}

	sessionID, err := s.resolveSession(ctx, ownerID, in.SessionID, now)
	if err != nil {
		return nil, err
	}
	slot.SessionID = &sessionID

	if err := repo.CreateSlot(ctx, s.DB, slot); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("slot.id", slot.ID))
	return slot, nil
}

func (s *SlotService) resolveSession(ctx context.Context, ownerID string, sessionID *string, now time.Time) (string, error) {
	if sessionID != nil && strings.TrimSpace(*sessionID) != "" {
		sess, err := repo.GetSession(ctx, s.DB, strings.TrimSpace(*sessionID), ownerID)
		if err != nil {
			return "", mapNotFound(err, ErrSessionNotFound)
		}
		return sess.ID, nil
	}

	latest, err := repo.LatestSession(ctx, s.DB, ownerID)
	if err == nil {
		return latest.ID, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return "", err
	}
	created, err := s.Sessions.Create(ctx, ownerID, "Session from "+now.Format(defaultSessionTitleLayout), nil)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// Get returns one of the owner's slots.
func (s *SlotService) Get(ctx context.Context, ownerID, id string) (*domain.TimeSlot, error) {
	slot, err := repo.GetOwnedSlot(ctx, s.DB, id, ownerID)
	if err != nil {
		return nil, mapNotFound(err, ErrSlotNotFound)
	}
	return slot, nil
}

// List returns a page of the owner's slots, latest start first, and the total.
func (s *SlotService) List(ctx context.Context, ownerID string, q SlotQuery, page, pageSize int) ([]domain.TimeSlot, int64, error) {
	tr := otel.Tracer("services/SlotService")
	ctx, span := tr.Start(ctx, "List", trace.WithAttributes(
		attribute.String("user.id", ownerID),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	))
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	f := repo.SlotFilter{OwnerID: ownerID, SessionID: q.SessionID, Booked: q.Booked, From: q.From, To: q.To}

	total, err := repo.CountSlots(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.TimeSlot{}, 0, nil
	}
	items, err := repo.ListSlots(ctx, s.DB, f, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Delete removes one of the owner's slots.
func (s *SlotService) Delete(ctx context.Context, ownerID, id string) error {
	if err := repo.DeleteSlot(ctx, s.DB, id, ownerID); err != nil {
		return mapNotFound(err, ErrSlotNotFound)
	}
	return nil
}

// Save persists a caller-modified slot. The slot is normalized first, then
// written only if the stored version still equals slot.Version; otherwise
// ErrConflict is returned and nothing changes. On success slot reflects the
// stored row and the observer has been told about the transition.
func (s *SlotService) Save(ctx context.Context, slot *domain.TimeSlot) error {
	tr := otel.Tracer("services/SlotService")
	ctx, span := tr.Start(ctx, "Save", trace.WithAttributes(attribute.String("slot.id", slot.ID)))
	defer span.End()

	saved, err := s.mutate(ctx,
		func(tx *gorm.DB) (*domain.TimeSlot, error) {
			cur, err := repo.GetSlot(ctx, tx, slot.ID)
			if err != nil {
				return nil, err
			}
			if cur.Version != slot.Version {
				return nil, repo.ErrStale
			}
			return cur, nil
		},
		func(cur *domain.TimeSlot) error {
			cur.SessionID = slot.SessionID
			cur.StartTime = slot.StartTime.UTC()
			cur.EndTime = slot.EndTime.UTC()
			cur.IsBooked = slot.IsBooked
			cur.BookedBy = slot.BookedBy
			cur.GuestName = slot.GuestName
			cur.BookedAt = slot.BookedAt
			return nil
		},
	)
	if err != nil {
		return err
	}
	*slot = *saved
	return nil
}

// Book claims a free slot of the session behind link. A non-empty userID
// books as that registered user; otherwise guestName is required.
func (s *SlotService) Book(ctx context.Context, link, slotID, userID, guestName string) (*domain.TimeSlot, error) {
	tr := otel.Tracer("services/SlotService")
	ctx, span := tr.Start(ctx, "Book", trace.WithAttributes(
		attribute.String("slot.id", slotID),
		attribute.Bool("user.authenticated", strings.TrimSpace(userID) != ""),
	))
	defer span.End()

	userID = strings.TrimSpace(userID)
	guestName = strings.TrimSpace(guestName)
	if userID == "" && guestName == "" {
		return nil, ErrGuestNameRequired
	}

	sess, err := s.Sessions.GetByLink(ctx, link)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx,
		func(tx *gorm.DB) (*domain.TimeSlot, error) {
			return repo.GetSessionSlot(ctx, tx, slotID, sess.ID)
		},
		func(slot *domain.TimeSlot) error {
			if slot.IsBooked {
				return ErrSlotAlreadyBooked
			}
			if userID != "" {
				slot.BookedBy = &userID
			} else {
				slot.GuestName = &guestName
			}
			return nil
		},
	)
}

// Cancel frees one of the owner's slots, clearing booker, guest name, and
// booked_at. Canceling a free slot is a no-op write.
func (s *SlotService) Cancel(ctx context.Context, ownerID, slotID string) (*domain.TimeSlot, error) {
	tr := otel.Tracer("services/SlotService")
	ctx, span := tr.Start(ctx, "Cancel", trace.WithAttributes(
		attribute.String("slot.id", slotID),
		attribute.String("user.id", ownerID),
	))
	defer span.End()

	return s.mutate(ctx,
		func(tx *gorm.DB) (*domain.TimeSlot, error) {
			return repo.GetOwnedSlot(ctx, tx, slotID, ownerID)
		},
		func(slot *domain.TimeSlot) error {
			booking.Clear(slot)
			return nil
		},
	)
}

// ListFree returns the session behind link and its free slots that start
// after now, earliest first.
func (s *SlotService) ListFree(ctx context.Context, link string) (*domain.BookingSession, []domain.TimeSlot, error) {
	sess, err := s.Sessions.GetByLink(ctx, link)
	if err != nil {
		return nil, nil, err
	}
	slots, err := repo.ListFreeSlots(ctx, s.DB, sess.ID, s.now())
	if err != nil {
		return nil, nil, err
	}
	return sess, slots, nil
}

// Dashboard returns the owner's session, slot, and booked-slot totals.
func (s *SlotService) Dashboard(ctx context.Context, ownerID string) (repo.DashboardCounts, error) {
	return repo.OwnerCounts(ctx, s.DB, ownerID)
}

// mutate runs load → change → Normalize → versioned update in one
// transaction, then notifies the observer outside of it.
func (s *SlotService) mutate(
	ctx context.Context,
	load func(tx *gorm.DB) (*domain.TimeSlot, error),
	change func(slot *domain.TimeSlot) error,
) (*domain.TimeSlot, error) {
	var (
		slot *domain.TimeSlot
		old  booking.State
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := load(tx)
		if err != nil {
			return err
		}
		old = booking.StateOf(*cur)
		if err := change(cur); err != nil {
			return err
		}
		if err := booking.Normalize(cur, s.now()); err != nil {
			return err
		}
		if err := repo.UpdateSlotVersioned(ctx, tx, cur); err != nil {
			return err
		}
		slot = cur
		return nil
	})
	switch {
	case err == nil:
	case repo.IsStale(err):
		slotConflicts.Inc()
		return nil, ErrConflict
	case errors.Is(err, ErrSlotAlreadyBooked):
		slotConflicts.Inc()
		return nil, err
	default:
		return nil, mapNotFound(err, ErrSlotNotFound)
	}

	next := booking.StateOf(*slot)
	slotTransitions.WithLabelValues(booking.Classify(old, next).String()).Inc()
	if s.Observer != nil {
		s.Observer.OnTransition(ctx, old, next, *slot)
	}
	return slot, nil
}
