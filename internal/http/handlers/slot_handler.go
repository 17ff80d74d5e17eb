// Slot HTTP handlers (owner side).
//
//   - POST   /slots             (create; picks or creates a session when none given)
//   - GET    /slots             (list with filters, paginated, ETag support)
//   - DELETE /slots/{id}        (delete)
//   - POST   /slots/{id}/cancel (free a booked slot)
package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/repo"
	"github.com/tbourn/go-booking-backend/internal/services"
)

// CreateSlotRequest is the JSON payload for creating a slot.
type CreateSlotRequest struct {
	// SessionID optionally attaches the slot to one of the owner's sessions.
	// When omitted the latest session is used, or a dated one is created.
	SessionID *string `json:"session_id,omitempty" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	// StartTime and EndTime are RFC 3339 timestamps; end must be after start.
	StartTime time.Time `json:"start_time" binding:"required" example:"2030-03-02T09:00:00Z"`
	EndTime   time.Time `json:"end_time"   binding:"required" example:"2030-03-02T09:30:00Z"`
}

// ListSlotsResponse wraps a page of slots and pagination information.
type ListSlotsResponse struct {
	Slots      []domain.TimeSlot `json:"slots"`
	Pagination Pagination        `json:"pagination"`
}

// slotID validates the :id path parameter.
func slotID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "slot id must be a UUID")
		return "", false
	}
	return id, true
}

// parseSlotQuery reads the optional session_id, booked, from, and to filters.
func parseSlotQuery(c *gin.Context) (services.SlotQuery, bool) {
	var q services.SlotQuery
	if v := strings.TrimSpace(c.Query("session_id")); v != "" {
		if _, err := uuid.Parse(v); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session_id must be a UUID")
			return q, false
		}
		q.SessionID = &v
	}
	if v := c.Query("booked"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "booked must be true or false")
			return q, false
		}
		q.Booked = &b
	}
	for _, f := range []struct {
		name string
		dst  **time.Time
	}{{"from", &q.From}, {"to", &q.To}} {
		v := c.Query(f.name)
		if v == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, f.name+" must be an RFC 3339 timestamp")
			return q, false
		}
		ts = ts.UTC()
		*f.dst = &ts
	}
	return q, true
}

// CreateSlot godoc
// @ID          createSlot
// @Summary     Create a time slot
// @Description Creates a free slot. Without session_id the owner's latest session is used, or a new dated one is created.
// @Tags        Slots
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Owner ID"  example(user123)
// @Param       body       body    handlers.CreateSlotRequest  true  "Slot payload"
//
// @Success     201  {object}  domain.TimeSlot
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid range or payload"
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /slots [post]
func (h *Handlers) CreateSlot(c *gin.Context) {
	var req CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "start_time and end_time required (RFC 3339)")
		return
	}
	if req.SessionID != nil {
		if _, err := uuid.Parse(*req.SessionID); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session_id must be a UUID")
			return
		}
	}

	slot, err := h.slotSvc.Create(c.Request.Context(), userID(c), services.SlotInput{
		SessionID: req.SessionID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		serviceError(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, slot)
}

// ListSlots godoc
// @ID          listSlots
// @Summary     List slots (paginated)
// @Description Returns the owner's slots, latest start first. Supports weak ETag via If-None-Match.
// @Tags        Slots
// @Produce     json
//
// @Param       X-User-ID      header  string  true  "Owner ID"                       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       session_id     query   string  false "Only slots of this session"     format(uuid)
// @Param       booked         query   bool    false "Filter by booking state"
// @Param       from           query   string  false "Start time lower bound (RFC 3339, inclusive)"
// @Param       to             query   string  false "Start time upper bound (RFC 3339, exclusive)"
// @Param       page           query   int     false "Page number"                    minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"                 minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListSlotsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /slots [get]
func (h *Handlers) ListSlots(c *gin.Context) {
	uid := userID(c)
	q, valid := parseSlotQuery(c)
	if !valid {
		return
	}
	page, pageSize := clampPagination(c)

	// Filtered views share the owner-wide ETag only when unfiltered.
	if q == (services.SlotQuery{}) && checkETag(c, dbOf(h.slotSvc), "slots", uid, repo.SlotsStats) {
		return
	}

	items, total, err := h.slotSvc.List(c.Request.Context(), uid, q, page, pageSize)
	if err != nil {
		serviceError(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListSlotsResponse{
		Slots:      items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// DeleteSlot godoc
// @ID          deleteSlot
// @Summary     Delete a slot
// @Tags        Slots
//
// @Param       X-User-ID  header  string  true  "Owner ID"       example(user123)
// @Param       id         path    string  true  "Slot ID (UUID)" format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Slot not found"
// @Router      /slots/{id} [delete]
func (h *Handlers) DeleteSlot(c *gin.Context) {
	id, valid := slotID(c)
	if !valid {
		return
	}
	if err := h.slotSvc.Delete(c.Request.Context(), userID(c), id); err != nil {
		serviceError(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// CancelSlot godoc
// @ID          cancelSlot
// @Summary     Cancel a booking
// @Description Frees the slot, clearing booker, guest name, and booked_at. The owner is notified when it was booked.
// @Tags        Slots
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Owner ID"       example(user123)
// @Param       id         path    string  true  "Slot ID (UUID)" format(uuid)
//
// @Success     200  {object} domain.TimeSlot
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Slot not found"
// @Failure     409  {object} handlers.ErrorResponse "Concurrent modification"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /slots/{id}/cancel [post]
func (h *Handlers) CancelSlot(c *gin.Context) {
	id, valid := slotID(c)
	if !valid {
		return
	}
	slot, err := h.slotSvc.Cancel(c.Request.Context(), userID(c), id)
	if err != nil {
		serviceError(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, slot)
}
