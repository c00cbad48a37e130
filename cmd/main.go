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

	"github.com/gin-gonic/gin"

	"github.com/cafe-connect/trust_ledger/internal/api/routes"
	"github.com/cafe-connect/trust_ledger/internal/infrastructure/config"
	"github.com/cafe-connect/trust_ledger/internal/infrastructure/di"
	"github.com/cafe-connect/trust_ledger/pkg/logger"
	"github.com/cafe-connect/trust_ledger/pkg/tracing"
	"github.com/cafe-connect/trust_ledger/pkg/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	shutdownTracing, err := tracing.InitProvider(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
		Insecure:    cfg.Tracing.Insecure,
	})
	if err != nil {
		log.Fatal("Failed to initialize tracing", "error", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	container, err := di.NewContainer(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to create DI container", "error", err)
	}

	router := routes.SetupRoutes(container)

	container.Scheduler.Start()

	server := &http.Server{
		Addr:           cfg.Server.Address(),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	go func() {
		log.Info("Starting server",
			"addr", server.Addr,
			"version", version.Get().String(),
			"environment", cfg.Environment,
			"payment_mode", cfg.Payment.Mode,
			"redis", cfg.Redis.Enabled,
			"graph", cfg.Graph.Enabled,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	container.Scheduler.Stop()

	if err := container.Close(shutdownCtx); err != nil {
		log.Warn("Error closing backends", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("Error flushing traces", "error", err)
	}

	log.Info("Server exited")
}
