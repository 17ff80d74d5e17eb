// Public HTTP handlers.
//
// Guests reach a session only through its public link; session and owner ids
// are never part of these responses.
//   - GET  /public/{link}                       (session + free future slots)
//   - POST /public/{link}/slots/{slot_id}/book  (book, Idempotency-Key aware)
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/http/middleware"
	"github.com/tbourn/go-booking-backend/internal/repo"
)

// PublicSlot is the guest-facing view of a slot.
type PublicSlot struct {
	ID        string     `json:"id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	IsBooked  bool       `json:"is_booked"`
	GuestName *string    `json:"guest_name,omitempty"`
	BookedAt  *time.Time `json:"booked_at,omitempty"`
}

// PublicSession is the guest-facing view of a session and its free slots.
type PublicSession struct {
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	PublicLink  string       `json:"public_link"`
	Slots       []PublicSlot `json:"slots"`
}

// BookSlotRequest is the JSON payload for booking a slot. GuestName is
// required unless the caller is identified.
type BookSlotRequest struct {
	GuestName string `json:"guest_name" example:"Alice"`
}

func toPublicSlot(s domain.TimeSlot) PublicSlot {
	return PublicSlot{
		ID:        s.ID,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		IsBooked:  s.IsBooked,
		GuestName: s.GuestName,
		BookedAt:  s.BookedAt,
	}
}

// validLink cheaply rejects links that can never match.
func validLink(link string) bool {
	return len(link) == domain.PublicLinkLen
}

// GetPublicSession godoc
// @ID          getPublicSession
// @Summary     View a session by public link
// @Description Returns the session title, description, and its free slots that start in the future, earliest first.
// @Tags        Public
// @Produce     json
//
// @Param       link  path  string  true  "Public link (12 hex chars)"  example(3f9a0c12be47)
//
// @Success     200  {object} handlers.PublicSession
// @Failure     404  {object} handlers.ErrorResponse "Session not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /public/{link} [get]
func (h *Handlers) GetPublicSession(c *gin.Context) {
	link := strings.ToLower(c.Param("link"))
	if !validLink(link) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}

	sess, slots, err := h.slotSvc.ListFree(c.Request.Context(), link)
	if err != nil {
		serviceError(c, err, ErrCodeListFailed)
		return
	}
	out := PublicSession{
		Title:       sess.Title,
		Description: sess.Description,
		PublicLink:  sess.PublicLink,
		Slots:       make([]PublicSlot, 0, len(slots)),
	}
	for _, s := range slots {
		out.Slots = append(out.Slots, toPublicSlot(s))
	}
	ok(c, http.StatusOK, out)
}

// BookSlot godoc
// @ID          bookSlot
// @Summary     Book a slot
// @Description Books a free slot of the session behind the public link. Identified callers book as themselves; anonymous callers must give guest_name.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Public
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "Booker ID (omit for guest booking)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"    example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       link             path    string  true  "Public link (12 hex chars)"          example(3f9a0c12be47)
// @Param       slot_id          path    string  true  "Slot ID (UUID)"                      format(uuid)
// @Param       body             body    handlers.BookSlotRequest  false  "Guest details"
//
// @Success     200  {object}  handlers.PublicSlot
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request or guest name missing"
// @Failure     404  {object}  handlers.ErrorResponse  "Session or slot not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Slot already booked"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /public/{link}/slots/{slot_id}/book [post]
func (h *Handlers) BookSlot(c *gin.Context) {
	ctx := c.Request.Context()
	link := strings.ToLower(c.Param("link"))
	slotID := c.Param("slot_id")
	if !validLink(link) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
		return
	}
	if _, err := uuid.Parse(slotID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "slot id must be a UUID")
		return
	}

	var req BookSlotRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}

	caller := middleware.CallerID(c)
	db := dbOf(h.slotSvc)

	// Idempotency (replay path).
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && db != nil {
		if rec, err := repo.GetIdempotency(ctx, db, caller, slotID, idemKey, time.Now().UTC()); err == nil && rec != nil {
			if prev, err := repo.GetSlot(ctx, db, slotID); err == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, rec.Status, toPublicSlot(*prev))
				return
			}
		}
	}

	slot, err := h.slotSvc.Book(ctx, link, slotID, userID(c), req.GuestName)
	if err != nil {
		serviceError(c, err, ErrCodeBookFailed)
		return
	}

	// Idempotency (store path), best effort.
	if idemKey != "" && db != nil {
		_, _ = repo.CreateIdempotency(ctx, db, caller, slotID, idemKey, http.StatusOK, h.IdempotencyTTL)
	}

	ok(c, http.StatusOK, toPublicSlot(*slot))
}
