package analyses

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"call-analytics-backend/internal/shared/server/respond"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyses", h.createAnalysis)
	rg.GET("/analyses", h.listAnalyses)
	rg.GET("/analyses/:id", h.getAnalysis)
	rg.GET("/analyses/:id/status", h.getStatus)
	rg.GET("/analyses/:id/results", h.getResults)
	rg.GET("/analyses/:id/dashboard", h.getDashboard)
	rg.GET("/analyses/:id/export.xlsx", h.exportResults)
}

func (h *Handler) createAnalysis(c *gin.Context) {
	var req createAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Invalid(c, "invalid JSON body", nil)
		return
	}

	ctx := c.Request.Context()
	analysis, err := h.Svc.Submit(ctx, SubmitInput{
		Name:              req.Name,
		QueryText:         req.QueryText,
		TemplateID:        req.TemplateID,
		CallIDs:           req.CallIDs,
		ForceRetranscribe: req.ForceRetranscribe,
	})
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			respond.Invalid(c, "invalid analysis request", verr.Issues)
			return
		}
		respond.Internal(c, "failed to start analysis", err)
		return
	}

	c.Set("analysisId", analysis.ID)
	c.Set("statusTransition", "->"+StatusPending)
	respond.Accepted(c, toStatusResponse(analysis, false))
}

func (h *Handler) listAnalyses(c *gin.Context) {
	limit := 50
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	list, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Internal(c, "failed to list analyses", err)
		return
	}
	now := time.Now().UTC()
	resp := make([]StatusResponse, 0, len(list))
	for _, a := range list {
		resp = append(resp, toStatusResponse(a, h.Svc.IsStale(a, now)))
	}
	respond.OK(c, resp)
}

func (h *Handler) getAnalysis(c *gin.Context) {
	analysis, ok := h.load(c)
	if !ok {
		return
	}
	respond.OK(c, toAnalysisResponse(analysis, h.Svc.IsStale(analysis, time.Now().UTC())))
}

func (h *Handler) getStatus(c *gin.Context) {
	analysis, ok := h.load(c)
	if !ok {
		return
	}
	respond.OK(c, toStatusResponse(analysis, h.Svc.IsStale(analysis, time.Now().UTC())))
}

func (h *Handler) getResults(c *gin.Context) {
	id := c.Param("id")
	c.Set("analysisId", id)
	_, rows, err := h.Svc.ListResults(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to fetch results")
		return
	}
	resp := make([]ResultResponse, 0, len(rows))
	for _, r := range rows {
		resp = append(resp, toResultResponse(r))
	}
	respond.OK(c, resp)
}

func (h *Handler) getDashboard(c *gin.Context) {
	id := c.Param("id")
	c.Set("analysisId", id)
	d, err := h.Svc.Dashboard(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to build dashboard")
		return
	}
	respond.OK(c, d)
}

func (h *Handler) exportResults(c *gin.Context) {
	id := c.Param("id")
	c.Set("analysisId", id)
	analysis, data, err := h.Svc.Export(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to export results")
		return
	}
	respond.Attachment(c, "analysis-"+analysis.ID+".xlsx", xlsxContentType, data)
}

func (h *Handler) load(c *gin.Context) (Analysis, bool) {
	id := c.Param("id")
	c.Set("analysisId", id)
	analysis, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to fetch analysis")
		return Analysis{}, false
	}
	return analysis, true
}

func (h *Handler) writeError(c *gin.Context, err error, message string) {
	if errors.Is(err, ErrNotFound) {
		respond.NotFound(c, "analysis")
		return
	}
	respond.Internal(c, message, err)
}
