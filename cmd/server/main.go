package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vishal27shetty/Company-Research-Agent/internal/api"
	"github.com/vishal27shetty/Company-Research-Agent/internal/buildconfig"
	"github.com/vishal27shetty/Company-Research-Agent/internal/config"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("falling back to info logging", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	rt, err := api.NewRuntime(ctx, logger)
	if err != nil {
		logger.Fatal("failed to build research runtime", zap.Error(err))
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error("failed to close stores", zap.Error(err))
		}
	}()

	app := api.NewApp(rt.Orchestrator, api.Options{
		APIToken:       config.APIToken(),
		RateLimitRPS:   config.RateLimitRPS(),
		RateLimitBurst: config.RateLimitBurst(),
	}, logger)

	rt.Reaper.Start()

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", addr), zap.String("version", buildconfig.Version()), zap.String("commit", buildconfig.Commit()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	rt.Reaper.Stop()

	// Open chat streams end when their request contexts are cancelled.
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
