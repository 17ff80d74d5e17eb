// Session HTTP handlers.
//
// This file exposes owner endpoints for booking sessions:
//   - POST   /sessions        (create, assigns the public link)
//   - GET    /sessions        (list, paginated, ETag support)
//   - GET    /sessions/{id}   (fetch)
//   - PUT    /sessions/{id}   (update title/description)
//   - DELETE /sessions/{id}   (delete with its slots)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/repo"
)

// SessionRequest is the JSON payload for creating or updating a session.
type SessionRequest struct {
	// Title is required; it is whitespace-normalized and clipped to 60 runes.
	Title string `json:"title" binding:"required" example:"Consultations"`
	// Description is optional free text.
	Description *string `json:"description,omitempty" example:"30 minute calls"`
}

// ListSessionsResponse wraps a page of sessions and pagination information.
type ListSessionsResponse struct {
	Sessions   []domain.BookingSession `json:"sessions"`
	Pagination Pagination              `json:"pagination"`
}

// sessionID validates the :id path parameter.
func sessionID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return "", false
	}
	return id, true
}

// CreateSession godoc
// @ID          createSession
// @Summary     Create a booking session
// @Description Creates a session for the current user. A unique 12-character public link is assigned and never changes.
// @Tags        Sessions
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Owner ID"  example(user123)
// @Param       body       body    handlers.SessionRequest  true  "Session payload"
//
// @Success     201  {object}  domain.BookingSession
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing identity"
// @Failure     409  {object}  handlers.ErrorResponse  "Could not allocate a public link"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /sessions [post]
func (h *Handlers) CreateSession(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title required")
		return
	}

	sess, err := h.sessionSvc.Create(c.Request.Context(), userID(c), req.Title, req.Description)
	if err != nil {
		serviceError(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, sess)
}

// ListSessions godoc
// @ID          listSessions
// @Summary     List sessions (paginated)
// @Description Returns a page of the owner's sessions, newest first. Supports weak ETag via If-None-Match.
// @Tags        Sessions
// @Produce     json
//
// @Param       X-User-ID      header  string  true  "Owner ID"                    example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"              minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListSessionsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Missing identity"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /sessions [get]
func (h *Handlers) ListSessions(c *gin.Context) {
	uid := userID(c)
	page, pageSize := clampPagination(c)

	if checkETag(c, dbOf(h.sessionSvc), "sessions", uid, repo.SessionsStats) {
		return
	}

	items, total, err := h.sessionSvc.List(c.Request.Context(), uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListSessionsResponse{
		Sessions:   items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetSession godoc
// @ID          getSession
// @Summary     Get a session
// @Tags        Sessions
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Owner ID"          example(user123)
// @Param       id         path    string  true  "Session ID (UUID)" format(uuid)
//
// @Success     200  {object} domain.BookingSession
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Session not found"
// @Router      /sessions/{id} [get]
func (h *Handlers) GetSession(c *gin.Context) {
	id, valid := sessionID(c)
	if !valid {
		return
	}
	sess, err := h.sessionSvc.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		serviceError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, sess)
}

// UpdateSession godoc
// @ID          updateSession
// @Summary     Update a session
// @Description Replaces title and description. The public link is kept.
// @Tags        Sessions
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Owner ID"          example(user123)
// @Param       id         path    string  true  "Session ID (UUID)" format(uuid)
// @Param       body       body    handlers.SessionRequest  true  "Session payload"
//
// @Success     200  {object} domain.BookingSession
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Session not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /sessions/{id} [put]
func (h *Handlers) UpdateSession(c *gin.Context) {
	id, valid := sessionID(c)
	if !valid {
		return
	}
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title required")
		return
	}

	sess, err := h.sessionSvc.Update(c.Request.Context(), userID(c), id, req.Title, req.Description)
	if err != nil {
		serviceError(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, sess)
}

// DeleteSession godoc
// @ID          deleteSession
// @Summary     Delete a session
// @Description Deletes the session and all of its slots.
// @Tags        Sessions
//
// @Param       X-User-ID  header  string  true  "Owner ID"          example(user123)
// @Param       id         path    string  true  "Session ID (UUID)" format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Session not found"
// @Router      /sessions/{id} [delete]
func (h *Handlers) DeleteSession(c *gin.Context) {
	id, valid := sessionID(c)
	if !valid {
		return
	}
	if err := h.sessionSvc.Delete(c.Request.Context(), userID(c), id); err != nil {
		serviceError(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}
