package calls

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"call-analytics-backend/internal/shared/server/respond"
)

const defaultMaxUploadSize = 200 << 20

// Handler wires HTTP handlers to the call service.
type Handler struct {
	Svc           *Service
	MaxUploadSize int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadSize int64) *Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}
	return &Handler{Svc: svc, MaxUploadSize: maxUploadSize}
}

// RegisterRoutes attaches call routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/calls", h.upload)
	rg.GET("/calls", h.list)
	rg.GET("/calls/:id", h.get)
	rg.DELETE("/calls/:id", h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadSize)

	form, err := c.MultipartForm()
	if err != nil {
		respond.Invalid(c, "multipart form with at least one file is required", nil)
		return
	}
	files := append(form.File["file"], form.File["files"]...)
	if len(files) == 0 {
		respond.Invalid(c, "file is required", nil)
		return
	}

	var unsupported []map[string]string
	for _, fh := range files {
		if !IsSupportedAudio(fh.Filename) {
			unsupported = append(unsupported, map[string]string{"field": fh.Filename, "issue": "unsupported_format"})
		}
	}
	if len(unsupported) > 0 {
		respond.Invalid(c, "only mp3, wav, ogg, m4a and flac files are accepted", unsupported)
		return
	}

	created := make([]CallResponse, 0, len(files))
	for _, fh := range files {
		file, err := fh.Open()
		if err != nil {
			respond.Invalid(c, "unable to read file", nil)
			return
		}
		call, err := h.Svc.Upload(c.Request.Context(), fh.Filename, file)
		file.Close()
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupportedAudio):
				respond.Invalid(c, err.Error(), nil)
			default:
				respond.Internal(c, "failed to store call", err)
			}
			return
		}
		created = append(created, ToResponse(call))
	}

	respond.JSON(c, http.StatusCreated, created)
}

func (h *Handler) list(c *gin.Context) {
	filter := ListFilter{
		Status: strings.TrimSpace(c.Query("status")),
		Search: strings.TrimSpace(c.Query("q")),
	}
	switch filter.Status {
	case "", StatusNew, StatusProcessing, StatusProcessed, StatusError:
	default:
		respond.Invalid(c, "unknown status filter", nil)
		return
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			filter.Offset = parsed
		}
	}

	list, err := h.Svc.List(c.Request.Context(), filter)
	if err != nil {
		respond.Internal(c, "failed to list calls", err)
		return
	}
	resp := make([]CallResponse, 0, len(list))
	for _, call := range list {
		resp = append(resp, ToResponse(call))
	}
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set("callId", id)
	call, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.NotFound(c, "call")
		default:
			respond.Internal(c, "failed to fetch call", err)
		}
		return
	}
	respond.OK(c, ToResponse(call))
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	c.Set("callId", id)
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.NotFound(c, "call")
		default:
			respond.Internal(c, "failed to delete call", err)
		}
		return
	}
	c.Status(http.StatusNoContent)
}
