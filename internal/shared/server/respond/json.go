package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Accepted writes a 202 with a Location header pointing at the resource the
// client should poll.
func Accepted(c *gin.Context, location string, payload any) {
	if location != "" {
		c.Header("Location", location)
	}
	c.Header("Cache-Control", "no-store")
	JSON(c, http.StatusAccepted, payload)
}

// NoContent writes an empty 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
