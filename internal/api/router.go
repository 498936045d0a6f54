package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spigell/applyflow/internal/api/middleware"
	"github.com/spigell/applyflow/internal/metrics"
)

// RouterConfig controls the engine built by NewRouter.
type RouterConfig struct {
	// InternalSecret guards /v1 when set.
	InternalSecret string
	Metrics        bool
}

// NewRouter builds the gin engine with health, metrics, the public job
// description and job board routes and the /v1 API.
func NewRouter(h *Handler, cfg RouterConfig, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.CorrelationID(), middleware.RequestLogger(log))
	if cfg.Metrics {
		router.Use(metrics.GinMiddleware())
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/jd/:id", h.PublicPosting)
	router.GET("/jobs", h.JobBoard)

	RegisterRoutes(router, h, cfg.InternalSecret)

	return router
}

// RegisterRoutes registers the /v1 API.
func RegisterRoutes(router *gin.Engine, h *Handler, internalSecret string) {
	v1 := router.Group("/v1")
	v1.Use(middleware.InternalSecret(internalSecret))
	{
		v1.PUT("/tenants/:id/credential", h.ConfigureTenant)
		v1.GET("/tenants/:id/postings", h.ListTenantPostings)

		postings := v1.Group("/postings")
		{
			postings.POST("", h.CreatePosting)
			postings.GET("/:id/applications", h.ListPostingApplications)
		}

		v1.POST("/candidates", h.CreateCandidate)
		v1.GET("/candidates/:id/applications", h.ListCandidateApplications)
		v1.POST("/resumes", h.UploadResume)

		applications := v1.Group("/applications")
		{
			applications.POST("", h.ScoreApplication)
			applications.GET("/:id", h.GetApplication)
			applications.POST("/:id/cover-letter", h.GenerateCoverLetter)
			applications.PATCH("/:id/status", h.UpdateStatus)
		}

		v1.GET("/pipeline/state", h.PipelineState)
	}
}
