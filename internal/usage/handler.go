package usage

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"skills-backend/internal/shared/server/middleware"
	"skills-backend/internal/shared/server/respond"
)

// Handler exposes usage endpoints.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches usage routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/usage", h.getUsage)
	rg.POST("/usage/check", h.checkUsage)
}

// RegisterDevRoutes attaches dev-only usage routes.
func (h *Handler) RegisterDevRoutes(rg *gin.RouterGroup) {
	rg.POST("/usage/reset", h.resetUsage)
}

func (h *Handler) getUsage(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	u, err := h.Svc.EnsurePeriod(c.Request.Context(), userID)
	if err != nil {
		respondStoreError(c, err, "failed to fetch usage")
		return
	}
	respond.OK(c, toUsageResponse(u))
}

func (h *Handler) checkUsage(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	avail, err := h.Svc.CheckAvailability(c.Request.Context(), userID)
	if err != nil {
		respondStoreError(c, err, "failed to check usage")
		return
	}
	respond.OK(c, avail)
}

func (h *Handler) resetUsage(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	u, err := h.Svc.Reset(c.Request.Context(), userID)
	if err != nil {
		respondStoreError(c, err, "failed to reset usage")
		return
	}
	respond.OK(c, toUsageResponse(u))
}

func respondStoreError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrQuotaService):
		respond.Error(c, http.StatusBadGateway, "quota_service_error", msg, nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", msg, nil)
	}
}

func toUsageResponse(u Usage) gin.H {
	return gin.H{
		"plan":      u.Plan,
		"limit":     u.Limit,
		"used":      u.Used,
		"remaining": u.Remaining(),
		"resetsAt":  u.ResetsAt,
	}
}
