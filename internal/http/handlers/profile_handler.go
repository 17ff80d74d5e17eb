// Profile and dashboard HTTP handlers.
//
//   - GET /profile    (fetch, created on first sight)
//   - PUT /profile    (set the Telegram chat id used for notifications)
//   - GET /dashboard  (session, slot, and booking totals)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-booking-backend/internal/domain"
)

// UpdateProfileRequest is the JSON payload for updating a profile. Omitted
// or blank fields are cleared.
type UpdateProfileRequest struct {
	TelegramID       *string `json:"telegram_id,omitempty"       example:"123456789"`
	TelegramUsername *string `json:"telegram_username,omitempty" example:"alice"`
}

// DashboardResponse summarizes the owner's account.
type DashboardResponse struct {
	SessionCount int64               `json:"session_count"`
	SlotsCount   int64               `json:"slots_count"`
	BookingCount int64               `json:"booking_count"`
	Profile      *domain.UserProfile `json:"profile,omitempty"`
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Get the owner's profile
// @Tags        Profile
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Owner ID"  example(user123)
//
// @Success     200  {object} domain.UserProfile
// @Failure     401  {object} handlers.ErrorResponse "Missing identity"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /profile [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	p, err := h.profileSvc.Ensure(c.Request.Context(), userID(c))
	if err != nil {
		serviceError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, p)
}

// UpdateProfile godoc
// @ID          updateProfile
// @Summary     Update the owner's profile
// @Description Sets the Telegram chat id that receives booking, cancellation, and reminder messages.
// @Tags        Profile
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Owner ID"  example(user123)
// @Param       body       body    handlers.UpdateProfileRequest  true  "Profile payload"
//
// @Success     200  {object} domain.UserProfile
// @Failure     400  {object} handlers.ErrorResponse "Invalid telegram id"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /profile [put]
func (h *Handlers) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	p, err := h.profileSvc.Update(c.Request.Context(), userID(c), req.TelegramID, req.TelegramUsername)
	if err != nil {
		serviceError(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, p)
}

// Dashboard godoc
// @ID          dashboard
// @Summary     Owner dashboard
// @Description Returns the number of sessions, slots, and booked slots, plus the profile.
// @Tags        Dashboard
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Owner ID"  example(user123)
//
// @Success     200  {object} handlers.DashboardResponse
// @Failure     401  {object} handlers.ErrorResponse "Missing identity"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /dashboard [get]
func (h *Handlers) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	counts, err := h.slotSvc.Dashboard(ctx, uid)
	if err != nil {
		serviceError(c, err, ErrCodeInternal)
		return
	}
	resp := DashboardResponse{
		SessionCount: counts.Sessions,
		SlotsCount:   counts.Slots,
		BookingCount: counts.Booked,
	}
	if p, err := h.profileSvc.Ensure(ctx, uid); err == nil {
		resp.Profile = p
	}
	ok(c, http.StatusOK, resp)
}
