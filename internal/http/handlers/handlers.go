// Package handlers exposes the booking REST API:
//   - owner endpoints for sessions, slots, profile, and the dashboard
//   - public endpoints for browsing a session by link and booking a slot
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results (and service errors) into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/booking"
	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/http/middleware"
	"github.com/tbourn/go-booking-backend/internal/repo"
	"github.com/tbourn/go-booking-backend/internal/services"
	"github.com/tbourn/go-booking-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// SessionService defines session lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type SessionService interface {
	Create(ctx context.Context, ownerID, title string, description *string) (*domain.BookingSession, error)
	List(ctx context.Context, ownerID string, page, pageSize int) ([]domain.BookingSession, int64, error)
	Get(ctx context.Context, ownerID, id string) (*domain.BookingSession, error)
	Update(ctx context.Context, ownerID, id, title string, description *string) (*domain.BookingSession, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// SlotService defines slot management and booking operations.
type SlotService interface {
	Create(ctx context.Context, ownerID string, in services.SlotInput) (*domain.TimeSlot, error)
	List(ctx context.Context, ownerID string, q services.SlotQuery, page, pageSize int) ([]domain.TimeSlot, int64, error)
	Delete(ctx context.Context, ownerID, id string) error
	Cancel(ctx context.Context, ownerID, slotID string) (*domain.TimeSlot, error)
	// Book claims a free slot of the session behind link, as userID when
	// non-empty, otherwise as guestName.
	Book(ctx context.Context, link, slotID, userID, guestName string) (*domain.TimeSlot, error)
	ListFree(ctx context.Context, link string) (*domain.BookingSession, []domain.TimeSlot, error)
	Dashboard(ctx context.Context, ownerID string) (repo.DashboardCounts, error)
}

// ProfileService manages the owner's notification profile.
type ProfileService interface {
	Ensure(ctx context.Context, userID string) (*domain.UserProfile, error)
	Update(ctx context.Context, userID string, telegramID, telegramUsername *string) (*domain.UserProfile, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for sessions, slots, and profiles.
type Handlers struct {
	sessionSvc SessionService
	slotSvc    SlotService
	profileSvc ProfileService

	// IdempotencyTTL is how long a successful booking can be replayed.
	IdempotencyTTL time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
func New(sessionSvc SessionService, slotSvc SlotService, profileSvc ProfileService) *Handlers {
	return &Handlers{
		sessionSvc:     sessionSvc,
		slotSvc:        slotSvc,
		profileSvc:     profileSvc,
		IdempotencyTTL: 24 * time.Hour,
	}
}

// userID returns the caller identity placed in the context by
// middleware.Identity. Owner routes sit behind RequireUser, so it is only
// empty on public routes for anonymous guests.
func userID(c *gin.Context) string {
	return middleware.UserID(c)
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// dbOf digs the GORM handle out of a concrete service so list endpoints can
// compute cheap ETags. Stubs yield nil and skip ETag handling.
func dbOf(svc any) *gorm.DB {
	switch s := svc.(type) {
	case *services.SessionService:
		return s.DB
	case *services.SlotService:
		return s.DB
	}
	return nil
}

// statsFunc is the shape of the repo.*Stats helpers.
type statsFunc func(ctx context.Context, db *gorm.DB, ownerID string) (int64, *time.Time, error)

// checkETag sets a weak ETag built from (scope, owner, count, max updated_at)
// and reports whether the request's If-None-Match already matches it, in
// which case a 304 has been written.
func checkETag(c *gin.Context, db *gorm.DB, scope, ownerID string, stats statsFunc) bool {
	if db == nil {
		return false
	}
	count, maxTS, err := stats(c.Request.Context(), db, ownerID)
	if err != nil {
		return false
	}
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixNano()
	}
	etag := fmt.Sprintf(`W/"%s:%s:%d:%d"`, scope, ownerID, count, ts)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

// serviceError translates a service/domain error into the matching HTTP
// status and stable error code. fallback is the code used for 5xx.
func serviceError(c *gin.Context, err error, fallback string) {
	switch {
	case booking.IsValidation(err):
		fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, services.ErrInvalidTitle):
		fail(c, http.StatusBadRequest, ErrCodeInvalidTitle, err.Error())
	case errors.Is(err, services.ErrGuestNameRequired):
		fail(c, http.StatusBadRequest, ErrCodeGuestNameRequired, err.Error())
	case errors.Is(err, services.ErrInvalidTelegramID):
		fail(c, http.StatusBadRequest, ErrCodeInvalidTelegramID, err.Error())
	case errors.Is(err, services.ErrSessionNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
	case errors.Is(err, services.ErrSlotNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "slot not found")
	case errors.Is(err, services.ErrSlotAlreadyBooked):
		fail(c, http.StatusConflict, ErrCodeAlreadyBooked, "slot already booked")
	case errors.Is(err, services.ErrConflict):
		fail(c, http.StatusConflict, ErrCodeConflict, "resource was modified concurrently, retry")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		fail(c, http.StatusServiceUnavailable, ErrCodeInternal, "request canceled")
	default:
		fail(c, http.StatusInternalServerError, fallback, err.Error())
	}
}
