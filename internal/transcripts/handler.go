package transcripts

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"call-analytics-backend/internal/calls"
	"call-analytics-backend/internal/shared/server/respond"
	"call-analytics-backend/internal/shared/util"
)

// Handler exposes transcripts over HTTP.
type Handler struct {
	Manager *Manager
}

// NewHandler constructs a Handler.
func NewHandler(m *Manager) *Handler {
	return &Handler{Manager: m}
}

// RegisterRoutes attaches transcript routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/calls/:id/transcript", h.get)
	rg.POST("/calls/:id/transcribe", h.transcribe)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set("callId", id)
	t, err := h.Manager.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.NotFound(c, "transcript")
			return
		}
		respond.Internal(c, "failed to fetch transcript", err)
		return
	}
	respond.OK(c, ToResponse(t))
}

func (h *Handler) transcribe(c *gin.Context) {
	id := c.Param("id")
	c.Set("callId", id)
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))

	t, err := h.Manager.EnsureTranscript(c.Request.Context(), id, force)
	if err != nil {
		var terr *TranscriptionError
		switch {
		case errors.Is(err, calls.ErrNotFound):
			respond.NotFound(c, "call")
		case errors.As(err, &terr):
			respond.Error(c, http.StatusBadGateway, "transcription_failed", util.SanitizeError(terr.Err), nil)
		default:
			respond.Internal(c, "failed to transcribe call", err)
		}
		return
	}
	respond.OK(c, ToResponse(t))
}
