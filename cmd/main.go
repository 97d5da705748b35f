package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/cnotv/recipes/internal/config"
	"github.com/cnotv/recipes/internal/handler"
	"github.com/cnotv/recipes/internal/model"
	"github.com/cnotv/recipes/internal/realtime"
	"github.com/cnotv/recipes/internal/recipes"
	"github.com/cnotv/recipes/internal/repository"
	"github.com/cnotv/recipes/internal/service"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	var logger *zap.Logger
	if cfg.Log.Format == "json" {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	// 3. Initialize session store (memory, Redis or Postgres)
	var store repository.SessionStore
	switch cfg.Store.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		store = repository.NewRedisSessionStore(redisClient)
		logger.Info("using Redis session store")
	case "postgres":
		db, err := config.NewPostgresDB(cfg.Database.Postgres)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		if cfg.Database.Postgres.AutoMigrate {
			if err := model.AutoMigrate(db); err != nil {
				logger.Fatal("failed to auto-migrate", zap.Error(err))
			}
			logger.Info("database migration completed")
		}
		store = repository.NewPGSessionStore(db)
		logger.Info("using Postgres session store")
	case "memory":
		store = repository.NewMemorySessionStore()
		logger.Info("using in-memory session store")
	default:
		logger.Fatal("unknown store backend", zap.String("backend", cfg.Store.Backend))
	}

	// 4. Load the recipe collection
	library, err := recipes.Load(cfg.Recipes.Dir, logger)
	if err != nil {
		logger.Fatal("failed to load recipe library", zap.Error(err))
	}

	// 5. Initialize realtime hub and session service
	hub := realtime.NewHub(logger)
	sessionService := service.NewSessionService(store, hub)
	hub.SetSessionSource(sessionService)
	go hub.Run()
	defer hub.Stop()

	// 6. Initialize handlers and router
	sessionHandler := handler.NewSessionHandler(sessionService, logger)
	recipeHandler := handler.NewRecipeHandler(library)
	router := handler.SetupRouter(cfg, logger, sessionHandler, recipeHandler, hub)

	// 7. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 8. Start server with graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 9. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}
