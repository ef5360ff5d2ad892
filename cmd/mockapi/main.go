package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"contesthub/internal/config"
	"contesthub/internal/logging"
	"contesthub/internal/mockapi"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	logger := logging.New(os.Stderr, cfg.LogLevel)

	backend := mockapi.New(mockapi.Options{
		Issuer:          cfg.JWTIssuer,
		SigningKey:      cfg.JWTSigningKey,
		TokenTTL:        cfg.AccessTTL,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Logger:          logger,
		AccessLog:       os.Stdout,
	})
	if cfg.SeedDemoData {
		if err := backend.Seed(); err != nil {
			return err
		}
		logger.Info("demo data seeded", "admin", "admin@riverside.test", "school_code", "RIV-2024")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      backend.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mock backend listening", "addr", srv.Addr, "api", "/api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}
	logger.Info("shutting down")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("forced shutdown", "err", err)
	}
	logger.Info("server exited")
	return nil
}
