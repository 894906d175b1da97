package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"finledger/internal/auth"
	"finledger/internal/cli"
	apphttp "finledger/internal/http"
	applog "finledger/internal/log"
)

func main() {
	cli.LoadEnvFile()
	bootLogger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(bootLogger)

	logger := cli.ConfigureLogger(cfg, applog.ComponentApp)
	slogger := logger.Logger

	result := cli.InitBackend(context.Background(), slogger, cfg)

	var verifier *auth.Verifier
	if cfg.JWTSecret != "" {
		verifier = auth.NewVerifier(cfg.JWTSecret)
	} else {
		logger.Warn("JWT_SECRET not set, every request is served anonymously")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.NewServices(result.Store, result.Publisher()), apphttp.Options{
		Verifier:  verifier,
		Logger:    logger.WithComponent(applog.ComponentHTTP),
		CacheTTL:  cfg.CacheTTL,
		CacheSize: cfg.CacheSize,
	})

	ctx, done := cli.GracefulShutdown(slogger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting finledger server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", result.Events != nil,
		"auth", verifier != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
