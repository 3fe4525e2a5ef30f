package templates

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"call-analytics-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the template service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches template routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/templates", h.list)
	rg.GET("/templates/:id", h.get)
	rg.POST("/templates", h.create)
	rg.DELETE("/templates/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]TemplateResponse, 0, len(list))
	for _, t := range list {
		resp = append(resp, ToResponse(t))
	}
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	t, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, ToResponse(t))
}

func (h *Handler) create(c *gin.Context) {
	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Invalid(c, "invalid JSON body", nil)
		return
	}
	t, err := h.Svc.Create(c.Request.Context(), CreateInput{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		QueryText:   req.QueryText,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, ToResponse(t))
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.NotFound(c, "template")
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, respond.CodeForbidden, err.Error(), nil)
	case errors.Is(err, ErrInvalidCategory):
		respond.Invalid(c, "category must be one of security, quality, sales, general", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Invalid(c, err.Error(), nil)
	default:
		respond.Internal(c, "template request failed", err)
	}
}
