package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/depot-replenishment/internal/api"
	"github.com/andresuchdata/depot-replenishment/internal/assistant"
	"github.com/andresuchdata/depot-replenishment/internal/cache"
	"github.com/andresuchdata/depot-replenishment/internal/config"
	"github.com/andresuchdata/depot-replenishment/internal/pipeline/replenishment"
	"github.com/andresuchdata/depot-replenishment/internal/repository"
	"github.com/andresuchdata/depot-replenishment/internal/repository/postgres"
	"github.com/andresuchdata/depot-replenishment/internal/service"
	"github.com/andresuchdata/depot-replenishment/internal/storage"
	"github.com/andresuchdata/depot-replenishment/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.Configure(cfg.Log.Level, cfg.Log.Format)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engineCfg, err := replenishment.ConfigFromSettings(cfg.Replenishment)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid replenishment configuration")
	}
	engine, err := replenishment.NewEngine(engineCfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to build replenishment engine")
	}

	sessions, err := cache.NewSessionStore(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Redis unavailable, keeping sessions in memory")
		sessions = cache.NewMemorySessionStore()
	}

	var refs repository.ReferenceRepository
	if cfg.Database.Enabled {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		if err := postgres.Migrate(db.DB.DB); err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		refs = postgres.NewReferenceRepository(db)
	} else {
		refs = repository.NewMemoryReferenceRepository(cfg.Replenishment.LocalArticles)
	}

	opts := []service.Option{
		service.WithAssistant(assistant.NewCompleter(cfg.Assistant)),
		service.WithLocalArticles(cfg.Replenishment.LocalArticles),
	}
	if cfg.Storage.Enabled {
		objects, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize object storage")
		}
		opts = append(opts, service.WithStorage(objects))
	}

	svc := service.NewReplenishmentService(engine, sessions, refs, opts...)

	router := api.NewRouter(&api.Services{Replenishment: svc}, api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().
			Str("port", cfg.Server.Port).
			Bool("redis", cfg.Cache.Enabled).
			Bool("postgres", cfg.Database.Enabled).
			Bool("storage", cfg.Storage.Enabled).
			Bool("assistant", cfg.Assistant.Enabled).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// give in-flight calculations 5 seconds to finish
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
