package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stridesync/internal/config"
	"stridesync/internal/database"
	"stridesync/internal/engine"
	"stridesync/internal/fitbit"
	"stridesync/internal/handlers"
	"stridesync/internal/metrics"
	"stridesync/internal/middleware"
	"stridesync/internal/oauth"
	"stridesync/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Set up logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting stridesync server",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.DatabasePath,
		"log_level", cfg.LogLevel)

	// Open database and apply schema
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		logger.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Init(); err != nil {
		logger.Error("Failed to initialize database schema", "error", err)
		os.Exit(1)
	}

	logger.Info("Database opened successfully")

	// Wire the core components
	fitbitClient := fitbit.NewClient(cfg.FitbitClientID, cfg.FitbitClientSecret)
	oauthManager := oauth.NewManager(cfg, db, fitbitClient)
	eng := engine.New(db)

	// Create handlers
	dashboardHandler := handlers.NewDashboardHandler(db, eng, cfg)
	stepsHandler := handlers.NewStepsHandler(db, eng, cfg)
	leaderboardHandler := handlers.NewLeaderboardHandler(db, eng, cfg)
	groupsHandler := handlers.NewGroupsHandler(db, cfg)
	oauthHandler := handlers.NewOAuthHandler(oauthManager, db, cfg)
	syncHandler := handlers.NewSyncHandler(db, cfg)
	healthHandler := handlers.NewHealthHandler(db)

	// Set up HTTP routes
	mux := http.NewServeMux()

	mux.Handle("/api/dashboard", middleware.WrapHandler(metrics.EndpointDashboard, dashboardHandler.HandleDashboard))
	mux.Handle("/api/steps", middleware.WrapHandler(metrics.EndpointSteps, stepsHandler.HandleSteps))
	mux.Handle("/api/steps/", middleware.WrapHandler(metrics.EndpointStepEntry, stepsHandler.HandleStepEntry))
	mux.Handle("/api/leaderboard/global", middleware.WrapHandler(metrics.EndpointLeaderboardGlobal, leaderboardHandler.HandleGlobal))
	mux.Handle("/api/leaderboard/group/", middleware.WrapHandler(metrics.EndpointLeaderboardGroup, leaderboardHandler.HandleGroup))
	mux.Handle("/api/groups", middleware.WrapHandler(metrics.EndpointGroups, groupsHandler.HandleGroups))
	mux.Handle("/api/groups/", middleware.WrapHandler(metrics.EndpointGroupDetail, groupsHandler.HandleGroupDetail))
	mux.Handle("/api/sync", middleware.WrapHandler(metrics.EndpointSync, syncHandler.HandleSync))

	mux.Handle("/fitbit/connect", middleware.WrapHandler(metrics.EndpointOAuthStart, oauthHandler.HandleConnect))
	mux.Handle("/fitbit/callback", middleware.WrapHandler(metrics.EndpointOAuthCallback, oauthHandler.HandleCallback))

	mux.Handle("/health", middleware.WrapHandler(metrics.EndpointHealth, healthHandler.HandleHealth))

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start sync worker in background
	workerInstance := worker.NewWorker(db, fitbitClient, oauthManager, eng)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	go func() {
		if err := workerInstance.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Sync worker failed", "error", err)
		}
	}()

	// Start queue depth collector if metrics are enabled
	if cfg.MetricsEnabled {
		go func() {
			logger.Info("Starting queue depth collector")
			metrics.StartQueueDepthCollector(workerCtx, db, 15*time.Second)
		}()
	}

	// Start metrics server if enabled
	var metricsServer *http.Server
	if cfg.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())

		metricsAddr := fmt.Sprintf("%s:%d", cfg.MetricsHost, cfg.MetricsPort)
		metricsServer = &http.Server{
			Addr:    metricsAddr,
			Handler: metricsMux,
		}

		go func() {
			logger.Info("Metrics server listening", "addr", metricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	// Start HTTP server in background
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down gracefully...")

	// Stop worker
	workerCancel()

	// Shutdown HTTP servers with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown failed", "error", err)
		}
	}

	logger.Info("Server stopped")
}
