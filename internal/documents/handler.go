package documents

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"skills-backend/internal/shared/server/middleware"
	"skills-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/documents/current", h.current)
	rg.GET("/documents/current/file", h.currentFile)
}

func (h *Handler) current(c *gin.Context) {
	doc, ok := h.lookupCurrent(c)
	if !ok {
		return
	}
	respond.OK(c, ToResponse(doc))
}

func (h *Handler) currentFile(c *gin.Context) {
	doc, ok := h.lookupCurrent(c)
	if !ok {
		return
	}

	rc, err := h.Svc.Download(c.Request.Context(), doc)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document file missing", nil)
			return
		}
		respond.Error(c, http.StatusBadGateway, "storage_error", "failed to read document", nil)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", doc.MimeType)
	c.Header("Content-Length", strconv.FormatInt(doc.SizeBytes, 10))
	c.Header("Content-Disposition", "inline; filename=\""+doc.FileName+"\"")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}

func (h *Handler) lookupCurrent(c *gin.Context) (Document, bool) {
	userID := middleware.UserIDFromContext(c)

	doc, err := h.Svc.Current(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
		}
		return Document{}, false
	}
	return doc, true
}
