package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/vcfgen/internal/middleware"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.StrictTransportSecurityMiddleware())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(middleware.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.GinLoadAndSave())
	}

	router.SetHTMLTemplate(loadTemplates())

	opts := GenerationOptions{
		DefaultFileName: cfg.DefaultFileName,
		MaxInvalidShown: cfg.MaxInvalidShown,
		MaxInputBytes:   cfg.MaxInputBytes,
	}

	health := NewHealthController(cfg.Database, cfg.TaskQueue, cfg.Scheduler, cfg.Version)
	generationsController := NewGenerationsController(cfg.Generations, cfg.TaskQueue, cfg.SessionManager, opts)
	uiController := NewUIController(cfg.Generations, cfg.SessionManager, generationsController.opts, cfg.TaskQueue != nil, cfg.Version)
	cleanQuotesController := NewCleanQuotesController(cfg.Auditor)
	auditController := NewAuditController(cfg.Auditor, cfg.Generations)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// UI routes
	router.GET("/", uiController.Index)

	// Generation endpoints
	router.POST("/generations", generationsController.Create)
	router.GET("/generations/:id", generationsController.Status)
	router.GET("/generations/:id/download", generationsController.Download)
	router.GET("/generations/:id/events", auditController.GenerationEvents)
	router.GET("/api/generations", generationsController.List)

	router.POST("/api/clean-quotes", cleanQuotesController.Clean)
	router.GET("/api/audit", auditController.GetAuditEvents)

	// Task status endpoint
	if cfg.TaskQueue != nil {
		tasksController := NewTasksController(cfg.TaskQueue)
		router.GET("/api/tasks/:id", tasksController.GetTaskStatus)
	}

	return router
}
