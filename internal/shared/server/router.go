package server

import (
	"github.com/gin-gonic/gin"

	"skills-backend/internal/documents"
	"skills-backend/internal/pipeline"
	"skills-backend/internal/profiles"
	"skills-backend/internal/shared/config"
	"skills-backend/internal/shared/metrics"
	"skills-backend/internal/shared/server/middleware"
	"skills-backend/internal/shared/server/respond"
	"skills-backend/internal/usage"
)

const (
	rateGroupUpload  = "UPLOAD"
	rateGroupPolling = "POLLING"
)

// RouterDeps carries the feature handlers mounted by NewRouter. A nil handler
// leaves its routes unmounted.
type RouterDeps struct {
	Config    config.Config
	Pipeline  *pipeline.Handler
	Documents *documents.Handler
	Profiles  *profiles.Handler
	Usage     *usage.Handler
	Limiter   *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Auth(cfg.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			Limiter: deps.Limiter,
			GroupFor: middleware.GroupByRoute(map[string]string{
				"POST /api/v1/resume":         rateGroupUpload,
				"DELETE /api/v1/resume":       rateGroupUpload,
				"GET /api/v1/resume/runs/:id": rateGroupPolling,
			}),
			Rules: map[string]middleware.RateLimitRule{
				rateGroupUpload:  {Rate: 0.2, Burst: 3},
				rateGroupPolling: {Rate: 5, Burst: 20},
			},
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.OK(c, gin.H{"ok": true})
	})
	registerMeRoutes(api)
	if deps.Pipeline != nil {
		deps.Pipeline.RegisterRoutes(api)
	}
	if deps.Documents != nil {
		deps.Documents.RegisterRoutes(api)
	}
	if deps.Profiles != nil {
		deps.Profiles.RegisterRoutes(api)
	}
	if deps.Usage != nil {
		deps.Usage.RegisterRoutes(api)
		if cfg.Env == "dev" {
			deps.Usage.RegisterDevRoutes(api.Group("/dev"))
		}
	}

	return r
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
