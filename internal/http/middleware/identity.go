package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderUserID carries the already-authenticated caller identity.
const HeaderUserID = "X-User-ID"

// ctxKeyUserID is where the caller identity lives in the Gin context. Rate
// limiting and idempotency read it from here.
const ctxKeyUserID = "userID"

// maxUserIDLen matches the width of owner/booker columns.
const maxUserIDLen = 64

// Identity copies a valid X-User-ID header into the Gin context unless an
// upstream authenticator already set one. Requests without identity pass
// through unchanged.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			if h := strings.TrimSpace(c.GetHeader(HeaderUserID)); h != "" && len(h) <= maxUserIDLen {
				c.Set(ctxKeyUserID, h)
			}
		}
		c.Next()
	}
}

// RequireUser rejects requests that carry no caller identity with 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "unauthorized",
				"message":    "authentication required",
			})
			return
		}
		c.Next()
	}
}

// UserID returns the caller identity stored in the Gin context, or "".
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
