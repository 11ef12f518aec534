package profiles

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"skills-backend/internal/shared/server/middleware"
	"skills-backend/internal/shared/server/respond"
)

// Handler exposes the saved skills profile.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches profile routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/profile/skills", h.getSkills)
}

type skillsResponse struct {
	Skills            []string            `json:"skills"`
	CategorizedSkills map[string][]string `json:"categorizedSkills"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

func (h *Handler) getSkills(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	p, err := h.Svc.Get(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "no skills saved yet", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch skills", nil)
		}
		return
	}
	respond.OK(c, skillsResponse{
		Skills:            p.Skills,
		CategorizedSkills: p.CategorizedSkills,
		UpdatedAt:         p.UpdatedAt,
	})
}
