package app

import (
	"credlyse_backend/internal/config"
	"credlyse_backend/internal/middleware"
	"credlyse_backend/internal/model"
	"credlyse_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// Claims are attached before rate limiting so signed-in callers are
	// limited per user rather than per address.
	api := router.Group("/api")
	api.Use(middleware.TryAuthMiddleware(cfg), middleware.RateLimit(a.limiters.api, "/api/health"))

	// 1. public routes
	a.registerPublicRoutes(api, c)

	// 2. routes that need a signed-in user
	authGroup := api.Group("")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerCreatorRoutes(authGroup, c)
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/health", c.health.HealthCheck)

	auth := rg.Group("/auth")
	{
		auth.POST("/register", c.auth.Register)
		auth.POST("/login", c.auth.Login)
	}

	rg.GET("/certificates/verify/:id", c.certificate.Verify)

	// browser extension lookups, anonymous or signed in
	extension := rg.Group("/extension")
	{
		extension.GET("/playlists/:playlist_id/status", c.course.PlaylistStatus)
		extension.GET("/videos/:id/quiz", c.course.VideoQuiz)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/auth/me", c.auth.Profile)
	rg.GET("/events/ws", c.events.Connect)

	progress := rg.Group("/progress/videos/:id")
	{
		progress.POST("/start", c.progress.Start)
		progress.POST("/heartbeat", c.progress.Heartbeat)
		progress.POST("/complete", c.progress.Complete)
		progress.POST("/quiz", c.progress.SubmitQuiz)
	}

	rg.GET("/courses/enrolled", c.course.ListEnrollments)
	rg.POST("/courses/:id/enroll", c.course.Enroll)

	certificates := rg.Group("/certificates/courses/:id")
	{
		certificates.POST("", c.certificate.Issue)
		certificates.GET("/eligibility", c.certificate.Eligibility)
	}
}

func (a *App) registerCreatorRoutes(rg *gin.RouterGroup, c *controllers) {
	creator := rg.Group("")
	creator.Use(middleware.RoleMiddleware(model.Creator))
	{
		analysis := creator.Group("/analysis/courses/:id")
		analysis.POST("/process", middleware.RateLimit(a.limiters.ai), c.analysis.Process)
		analysis.GET("/status", c.analysis.Status)

		creator.GET("/analytics/courses/:id", c.analytics.CourseAnalytics)
	}
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/cache/stats", c.cache.Stats)
		admin.DELETE("/cache/:name", c.cache.Clear)
		admin.DELETE("/cache/:name/:key", c.cache.Delete)
	}
}
