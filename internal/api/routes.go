package api

import (
	"studybuddy/internal/api/handlers"
	"studybuddy/internal/logger"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up the API routes
func SetupRoutes(router *gin.Engine, handler *handlers.Handler, frontendURL string, log *logger.Logger) {
	router.Use(Recovery(log))
	router.Use(RequestLogger(log))
	router.Use(CORSMiddleware(frontendURL))

	router.GET("/healthz", handler.HandleHealth)

	api := router.Group("/api")
	{
		// --- Results ---
		api.GET("/results", handler.HandleListResults)
		api.DELETE("/results", handler.HandleResetResults)
		api.GET("/results/:id", handler.HandleGetResult)
		api.PATCH("/results/:id", handler.HandleUpdateResult)
		api.DELETE("/results/:id", handler.HandleDeleteResult)
		api.GET("/results/:id/content/:feature", handler.HandleGetContent)
		api.POST("/results/:id/quiz/score", handler.HandleScoreQuiz)

		// --- Generation ---
		api.POST("/generate", handler.HandleGenerate) // JSON images or multipart "images" files
		api.POST("/captures", handler.HandleCaptures)

		api.GET("/planner", handler.HandlePlanner)

		// --- Settings ---
		api.GET("/settings", handler.HandleGetSettings)
		api.PUT("/settings", handler.HandleReplaceSettings)
		api.POST("/onboarding", handler.HandleOnboarding)
	}
}

// NewRouter builds a gin engine with every route registered.
func NewRouter(handler *handlers.Handler, frontendURL string, log *logger.Logger) *gin.Engine {
	router := gin.New()
	SetupRoutes(router, handler, frontendURL, log)
	return router
}
