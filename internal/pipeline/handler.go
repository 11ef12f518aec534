package pipeline

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"skills-backend/internal/documents"
	"skills-backend/internal/shared/server/middleware"
	"skills-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the pipeline service.
type Handler struct {
	Svc          *Service
	MaxSizeBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, MaxSizeBytes: documents.MaxSizeBytes}
}

// RegisterRoutes attaches résumé pipeline routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/resume", h.submit)
	rg.GET("/resume/runs/:id", h.getRun)
	rg.DELETE("/resume", h.deleteDocument)
}

func (h *Handler) maxSize() int64 {
	if h.MaxSizeBytes > 0 {
		return h.MaxSizeBytes
	}
	return documents.MaxSizeBytes
}

func (h *Handler) submit(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}

	limit := h.maxSize()
	// Leave room for multipart framing so an oversize file still reaches
	// validation and gets the regular validation error.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 2*limit+(1<<20))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, string(KindValidation), userMessage(KindValidation, 0), nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, string(KindValidation), "file is required", nil)
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, string(KindValidation), "unable to read file", nil)
		return
	}
	defer src.Close()
	content, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, string(KindValidation), "unable to read file", nil)
		return
	}

	file := File{
		Name:     fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Size:     fileHeader.Size,
		Content:  content,
	}
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))

	if c.Query("wait") == "true" {
		snap, err := h.Svc.Submit(ctx, userID, file)
		if err != nil {
			respondAcceptError(c, err)
			return
		}
		tagRequest(c, snap)
		if snap.Error != nil {
			respond.Error(c, statusForKind(snap.Error.Kind), string(snap.Error.Kind), snap.Error.Message, ToResponse(snap))
			return
		}
		respond.OK(c, ToResponse(snap))
		return
	}

	snap, err := h.Svc.Start(ctx, userID, file)
	if err != nil {
		respondAcceptError(c, err)
		return
	}
	tagRequest(c, snap)
	respond.Accepted(c, c.FullPath()+"/runs/"+snap.RunID, ToResponse(snap))
}

func (h *Handler) getRun(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	snap, err := h.Svc.Run(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrRunNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "run not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch run", nil)
		return
	}
	if snap.OwnerID != userID {
		respond.Error(c, http.StatusNotFound, "not_found", "run not found", nil)
		return
	}
	c.Header("Cache-Control", "no-store")
	respond.OK(c, ToResponse(snap))
}

func (h *Handler) deleteDocument(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	if err := h.Svc.DeleteDocument(ctx, userID); err != nil {
		switch {
		case errors.Is(err, ErrRunInProgress):
			respond.Error(c, http.StatusConflict, "run_in_progress", "A résumé upload is still being processed.", nil)
		case errors.Is(err, ErrOwnerRequired):
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		default:
			respond.Error(c, http.StatusBadGateway, string(KindStorage), userMessage(KindStorage, 0), nil)
		}
		return
	}
	respond.NoContent(c)
}

// tagRequest exposes run fields to the request log line.
func tagRequest(c *gin.Context, snap Snapshot) {
	c.Set(middleware.RunIDKey, snap.RunID)
	if snap.Document != nil {
		c.Set(middleware.DocumentIDKey, snap.Document.ID)
	}
	if n := len(snap.Transitions); n > 1 {
		c.Set(middleware.StageTransitionKey, string(snap.Transitions[n-2])+"->"+string(snap.Transitions[n-1]))
	}
}

func respondAcceptError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrRunInProgress):
		respond.Error(c, http.StatusConflict, "run_in_progress", "A résumé upload is already being processed.", nil)
	case errors.Is(err, ErrOwnerRequired):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start run", nil)
	}
}

func statusForKind(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindQuotaExceeded:
		return http.StatusPaymentRequired
	case KindStorage, KindExtraction, KindCategorization, KindQuotaService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
