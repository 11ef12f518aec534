package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"skills-backend/internal/shared/auth"
	"skills-backend/internal/shared/server/respond"
)

const (
	userIDKey  = "userId"
	isGuestKey = "isGuest"

	// GuestPrefix namespaces guest owners so they never collide with token subjects.
	GuestPrefix   = "guest:"
	maxGuestIDLen = 64
)

// publicPaths are served without an identity.
var publicPaths = map[string]struct{}{
	"/api/v1/health": {},
	"/metrics":       {},
}

// Auth resolves the owner of the request from a bearer JWT or, failing that,
// the X-Guest-Id header. Outside production the 401 body names the reason.
func Auth(env string) gin.HandlerFunc {
	verbose := env != "production"
	deny := func(c *gin.Context, reason string) {
		var details any
		if verbose {
			details = gin.H{"reason": reason}
		}
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", details)
	}

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		if _, public := publicPaths[c.FullPath()]; public {
			c.Next()
			return
		}

		if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				deny(c, "expected bearer token")
				return
			}
			claims, err := auth.VerifyJWT(strings.TrimSpace(token))
			if err != nil {
				deny(c, err.Error())
				return
			}
			if strings.HasPrefix(claims.Subject, GuestPrefix) {
				deny(c, "subject uses the guest namespace")
				return
			}
			c.Set(userIDKey, claims.Subject)
			c.Set(isGuestKey, false)
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
		if guestID == "" {
			deny(c, "missing identity")
			return
		}
		if !validGuestID(guestID) {
			deny(c, "malformed guest id")
			return
		}
		c.Set(userIDKey, GuestPrefix+guestID)
		c.Set(isGuestKey, true)
		c.Next()
	}
}

// validGuestID accepts up to maxGuestIDLen letters, digits, '-', '_' and '.'.
func validGuestID(id string) bool {
	if len(id) > maxGuestIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}

// UserIDFromContext fetches the owner id set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// IsGuestFromContext reports whether the owner came from X-Guest-Id.
func IsGuestFromContext(c *gin.Context) bool {
	if c == nil {
		return false
	}
	return c.GetBool(isGuestKey)
}
