package api

import (
	"github.com/Conceptual-Machines/thumbforge-api/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/thumbforge-api/internal/api/middleware"
	"github.com/Conceptual-Machines/thumbforge-api/internal/assets"
	"github.com/Conceptual-Machines/thumbforge-api/internal/config"
	"github.com/Conceptual-Machines/thumbforge-api/internal/history"
	"github.com/Conceptual-Machines/thumbforge-api/internal/metrics"
	"github.com/Conceptual-Machines/thumbforge-api/internal/middleware"
	"github.com/Conceptual-Machines/thumbforge-api/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies are the wired components the routes serve
type Dependencies struct {
	Config     *config.Config
	DB         *gorm.DB // nil in guest mode
	Store      services.Store
	History    *history.Store
	Generator  handlers.Generator
	CloudWatch *metrics.Client
	Version    string
}

func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = assets.MaxFileSize

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking, structured logging and request metrics
	router.Use(apimiddleware.RequestTracking(deps.CloudWatch))

	// CORS middleware
	router.Use(apimiddleware.CORS(deps.Config.CORSOrigins...))

	// Health check
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.History)
	router.GET("/health", healthHandler.HealthCheck)

	// Metrics endpoints
	metricsHandler := handlers.NewMetricsHandler(deps.Version, deps.History)
	router.GET("/api/metrics", metricsHandler.GetMetrics)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	auth := middleware.ForMode(deps.Config, deps.Store)

	// Protected API routes v1
	v1 := router.Group("/api/v1")
	v1.Use(auth)
	{
		userHandler := handlers.NewUserHandler(deps.Store)
		v1.GET("/me", userHandler.GetProfile)
		v1.GET("/credits", userHandler.GetCredits)
		v1.GET("/usernames/:username", userHandler.CheckUsername)

		generationHandler := handlers.NewGenerationHandler(deps.Generator, deps.CloudWatch)
		v1.POST("/generations", generationHandler.Generate)
		v1.POST("/prompts/enhance", generationHandler.EnhancePrompt)

		styleHandler := handlers.NewStyleHandler()
		v1.GET("/styles", styleHandler.ListStyles)
		v1.POST("/templates/apply", styleHandler.ApplyTemplate)

		assetHandler := handlers.NewAssetHandler()
		v1.POST("/assets", assetHandler.Upload)

		historyHandler := handlers.NewHistoryHandler(deps.History)
		v1.GET("/history", historyHandler.GetHistory)
		v1.DELETE("/history/:id", historyHandler.DeleteEntry)

		editHandler := handlers.NewEditHandler(deps.History, deps.CloudWatch)
		v1.POST("/edits/preview", editHandler.Preview)
		v1.POST("/edits", editHandler.Apply)
		v1.POST("/history/:id/edits", editHandler.ApplyToHistory)

		thumbnailHandler := handlers.NewThumbnailHandler(deps.Store)
		v1.GET("/thumbnails", thumbnailHandler.ListThumbnails)
	}

	// Admin API routes (admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth, middleware.AdminRequired())
	{
		adminHandler := handlers.NewAdminHandler(deps.Store)
		admin.PUT("/users/:id/credits", adminHandler.UpdateUserCredits)
	}

	return router
}
