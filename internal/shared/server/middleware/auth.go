package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-feedback/internal/shared/auth"
	"resume-feedback/internal/shared/server/respond"
)

const (
	userIDKey  = "userId"
	isGuestKey = "isGuest"
)

// Auth resolves the caller from a bearer JWT or the X-Guest-Id header and
// stores the identity on both the gin and request contexts. Guests pass
// through; whether they may run the pipeline is decided by the auth gate.
func Auth(signer *auth.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader != "" {
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			token = strings.TrimSpace(token)
			if !ok || token == "" {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			claims, err := signer.Verify(token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			setIdentity(c, auth.FromClaims(claims))
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
		if guestID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}
		setIdentity(c, auth.Identity{UserID: "guest:" + guestID, Guest: true})
		c.Next()
	}
}

func setIdentity(c *gin.Context, id auth.Identity) {
	c.Set(userIDKey, id.UserID)
	c.Set(isGuestKey, id.Guest)
	c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}
