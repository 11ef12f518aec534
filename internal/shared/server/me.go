package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skills-backend/internal/shared/server/middleware"
	"skills-backend/internal/shared/server/respond"
)

type meResponse struct {
	UserID  string `json:"userId"`
	IsGuest bool   `json:"isGuest"`
}

// registerMeRoutes attaches the /me endpoint, which echoes the resolved owner.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}
	respond.OK(c, meResponse{
		UserID:  userID,
		IsGuest: middleware.IsGuestFromContext(c),
	})
}
