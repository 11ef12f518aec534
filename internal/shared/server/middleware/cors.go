package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsAllowMethods  = "GET,POST,DELETE,OPTIONS"
	corsAllowHeaders  = "Content-Type, Authorization, X-Guest-Id, X-Request-Id"
	corsExposeHeaders = "X-Request-Id, Retry-After, Location"
	corsMaxAge        = "600"
)

// CORS answers preflights and decorates responses for the configured
// origins. A "*" entry admits any origin, which is meant for local dev.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	origins := make(map[string]struct{})
	anyOrigin := false
	for _, o := range allowedOrigins {
		switch trimmed := strings.TrimRight(strings.TrimSpace(o), "/"); trimmed {
		case "":
		case "*":
			anyOrigin = true
		default:
			origins[trimmed] = struct{}{}
		}
	}
	allowed := func(origin string) bool {
		if origin == "" {
			return false
		}
		if anyOrigin {
			return true
		}
		_, ok := origins[origin]
		return ok
	}

	return func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); allowed(origin) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
			h.Set("Access-Control-Max-Age", corsMaxAge)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
