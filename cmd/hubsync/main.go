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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"contesthub/internal/app"
	"contesthub/internal/config"
	"contesthub/internal/logging"
	"contesthub/internal/queue"
)

// hubsync keeps the stores fresh and prints new notifications as they appear.
func main() {
	cfg := config.Load()
	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	a, err := app.New(cfg, app.Options{Logger: logger, Registerer: reg})
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	defer a.Close()

	if err := a.Start(ctx); err != nil {
		logger.Warn("session restore failed", "err", err)
	}
	if a.Session.Identity() == nil {
		logger.Warn("not logged in; run `hubctl login` and hubsync will pick the session up")
	}

	var q queue.Queue
	if cfg.QueueBackend == "redis" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		q = queue.NewRedisQueue(rdb, cfg.QueueKey)
	} else {
		q = queue.NewInMemory(64)
	}

	refresh := func(ctx context.Context) {
		if a.Session.Identity() == nil {
			// A login by another process shows up in shared storage.
			if err := a.Session.Restore(ctx); err != nil {
				logger.Debug("session restore failed", "err", err)
			}
			if a.Session.Identity() != nil {
				return
			}
		}
		a.Refresh(ctx)
	}
	p := newPoller(refresh, a.Domain, q, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.run(ctx, cfg.PollInterval) })
	g.Go(func() error { return printNotifications(ctx, q, os.Stdout, logger) })
	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics listening", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	logger.Info("hubsync started", "interval", cfg.PollInterval, "queue", cfg.QueueBackend)
	if err := g.Wait(); err != nil {
		logger.Error("hubsync stopped", "err", err)
		os.Exit(1)
	}
	logger.Info("hubsync stopped")
}
