package server

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"call-analytics-backend/internal/services/health"
	"call-analytics-backend/internal/shared/config"
	"call-analytics-backend/internal/shared/metrics"
	"call-analytics-backend/internal/shared/server/middleware"
	"call-analytics-backend/internal/shared/server/respond"
)

const (
	rateGroupWrite = "WRITE"
	rateGroupRead  = "READ"
)

// RouteRegistrar is implemented by every feature handler.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps lists the handlers mounted under /api/v1.
type RouterDeps struct {
	Config            config.Config
	CallsHandler      RouteRegistrar
	TranscriptHandler RouteRegistrar
	TemplatesHandler  RouteRegistrar
	AnalysesHandler   RouteRegistrar
	DB                *sql.DB
	RateLimits        map[string]middleware.RateLimitRule
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	rules := deps.RateLimits
	if rules == nil {
		rules = map[string]middleware.RateLimitRule{
			rateGroupWrite: {Rate: 1, Burst: 10},
		}
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        rules,
			DefaultGroup: rateGroupRead,
			GroupFor:     rateGroupFor,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler(health.NewService(deps.DB)))
	for _, h := range []RouteRegistrar{deps.CallsHandler, deps.TranscriptHandler, deps.TemplatesHandler, deps.AnalysesHandler} {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}
	return r
}

// rateGroupFor limits the expensive entry points only. Polling stays unlimited.
func rateGroupFor(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return rateGroupRead
	}
	switch path := c.FullPath(); {
	case path == "/api/v1/analyses", path == "/api/v1/calls", strings.HasSuffix(path, "/transcribe"):
		return rateGroupWrite
	}
	return rateGroupRead
}

func healthHandler(svc *health.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := svc.Status(c.Request.Context())
		if err != nil {
			respond.Error(c, http.StatusServiceUnavailable, respond.CodeUnavailable, "database unreachable", nil)
			return
		}
		respond.OK(c, status)
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
