package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cnotv/recipes/internal/config"
	"github.com/cnotv/recipes/internal/handler/middleware"
	"github.com/cnotv/recipes/internal/realtime"
)

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	sessionHandler *SessionHandler,
	recipeHandler *RecipeHandler,
	hub *realtime.Hub,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS())

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Voting session API
	api := r.Group("/api")
	{
		api.POST("/create-session", sessionHandler.CreateSession)
		api.POST("/join-session", sessionHandler.JoinSession)
		api.POST("/vote", sessionHandler.CastVote)
		api.GET("/session/:code", sessionHandler.GetSession)

		// Recipe collection (read-only)
		api.GET("/recipes", recipeHandler.ListRecipes)
		api.GET("/recipes/:slug", recipeHandler.GetRecipe)
		api.GET("/cuisines", recipeHandler.ListCuisines)
	}

	// Realtime session updates
	r.GET("/ws", func(c *gin.Context) {
		realtime.ServeWS(hub, c.Writer, c.Request)
	})

	return r
}
