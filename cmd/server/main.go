package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/api"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/app"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/config"
	"github.com/andresuchdata/reseller-forecast/backend-go/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	level := cfg.Server.LogLevel
	if level == "" {
		level = cfg.Server.Mode
	}
	logger.SetLevel(level)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg, app.Options{Catalog: true, Storage: true})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialise application")
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to release resources")
		}
	}()

	router := api.NewRouter(&api.Services{Predictions: application.Service}, api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Gatherer:       application.Registry,
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
			Str("llm_provider", cfg.LLM.Provider).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
		os.Exit(1)
	}

	logger.Log.Info().Msg("Server exiting")
}
