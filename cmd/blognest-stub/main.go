package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/blognest/blognest-go/internal/config"
	"github.com/blognest/blognest-go/internal/stubapi"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if cfg.Env == "production" && cfg.UsesDefaultSecret() {
		logger.Error("STUB_JWT_SECRET must be set in production")
		os.Exit(1)
	}

	api := stubapi.New(stubapi.Options{
		Secret:         cfg.StubSecret,
		TokenTTL:       cfg.StubTokenTTL,
		RateLimitRPS:   5,
		RateLimitBurst: 10,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.StubPort,
		Handler:           api,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("stub backend starting", "port", cfg.StubPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down stub backend")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("stub backend stopped")
}
