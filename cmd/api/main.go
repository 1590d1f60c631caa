package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/copyscale/internal/api"
	"github.com/timmy/copyscale/internal/api/middleware"
	"github.com/timmy/copyscale/internal/app"
	"github.com/timmy/copyscale/internal/config"
	"github.com/timmy/copyscale/internal/logger"
	"github.com/timmy/copyscale/internal/metrics"
	"github.com/timmy/copyscale/internal/video/opencv"
)

func main() {
	logCfg := logger.LoadFromEnv()
	logCfg.ServiceName = "copyscale-api"
	appLogger := logger.New(logCfg)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if os.Getenv("LOG_LEVEL") == "" {
		logCfg.Level = cfg.Log.Level
		logCfg.Format = cfg.Log.Format
		appLogger = logger.New(logCfg)
		logger.SetDefaultLogger(appLogger)
	}

	if cfg.Metrics.Enabled {
		metrics.Register()
	}

	ctx := context.Background()
	application, err := app.New(ctx, cfg, app.Options{Decoder: opencv.Decoder{}})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize application")
	}
	defer application.Close()

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	router := api.SetupRouter(api.Services{
		Analysis: application.Analysis,
		Search:   application.Search,
		Video:    application.Video,
		Store:    application.Store,
	}, api.RouterConfig{
		Mode:        cfg.Server.Mode,
		UploadDir:   cfg.Server.UploadDir,
		MaxUploadMB: cfg.Server.MaxUploadMB,
		DefaultTopK: cfg.Search.TopK,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		MetricsPath: metricsPath,
		Logger:      appLogger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}
	appLogger.Info("Server exited")
}
