package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resume-feedback/internal/resumes"
	"resume-feedback/internal/services/health"
	"resume-feedback/internal/shared/auth"
	"resume-feedback/internal/shared/config"
	"resume-feedback/internal/shared/metrics"
	"resume-feedback/internal/shared/server/middleware"
	"resume-feedback/internal/shared/server/respond"
)

const (
	rateGroupDefault = "DEFAULT"
	rateGroupAnalyze = "ANALYZE"
	rateGroupPolling = "POLLING"
)

// RouterDeps holds handlers and settings used to build the router.
type RouterDeps struct {
	Config         config.Config
	Signer         *auth.Signer
	ResumesHandler *resumes.Handler
	Health         *health.Service
	// Now overrides the rate limiter clock in tests.
	Now func() time.Time
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		payload, ok := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, payload)
	})

	protected := api.Group("")
	protected.Use(
		middleware.Auth(deps.Signer),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: rateGroupDefault,
			GroupFor:     rateGroupFor,
			Limiter:      middleware.NewRateLimiter(deps.Now),
			Rules: map[string]middleware.RateLimitRule{
				rateGroupDefault: {Rate: 2, Burst: 20},
				rateGroupAnalyze: {Rate: 0.1, Burst: 3},
				rateGroupPolling: {Rate: 5, Burst: 30},
			},
		}),
	)
	if deps.ResumesHandler != nil {
		deps.ResumesHandler.RegisterRoutes(protected)
	}

	return r
}

func rateGroupFor(c *gin.Context) string {
	switch {
	case c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/resumes":
		return rateGroupAnalyze
	case c.Request.Method == http.MethodGet && c.FullPath() == "/api/v1/resumes/session":
		return rateGroupPolling
	default:
		return rateGroupDefault
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
