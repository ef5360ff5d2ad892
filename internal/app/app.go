// Package app wires the stores together. Every dependency is built here and
// passed down explicitly; nothing reaches for a global.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"contesthub/internal/api"
	"contesthub/internal/cloudinary"
	"contesthub/internal/config"
	"contesthub/internal/conversation"
	"contesthub/internal/domain"
	"contesthub/internal/localstore"
	"contesthub/internal/model"
	"contesthub/internal/session"
	"contesthub/internal/team"
)

// Options overrides what New would otherwise build from config.
type Options struct {
	Logger *slog.Logger
	// Storage replaces the configured session backend.
	Storage localstore.Storage
	// Registerer receives the REST client metrics. Nil disables them.
	Registerer prometheus.Registerer
}

type App struct {
	Config        config.App
	Log           *slog.Logger
	API           *api.Client
	Session       *session.Store
	Domain        *domain.Store
	Teams         *team.Store
	Conversations *conversation.Store

	closers []io.Closer
}

// New builds the container. The session is not restored until Start.
func New(cfg config.App, opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	a := &App{Config: cfg, Log: log}

	storage := opts.Storage
	if storage == nil {
		var err error
		storage, err = a.openStorage()
		if err != nil {
			return nil, err
		}
	}

	a.API = api.New(cfg.APIBaseURL, cfg.RequestTimeout)
	if opts.Registerer != nil {
		a.API.Metrics = api.NewMetrics(opts.Registerer)
	}

	a.Session = session.New(a.API, storage, log)
	a.API.Tokens = a.Session

	var uploader team.Uploader
	if cfg.UploadsEnabled() {
		uploader = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Debug("uploads enabled", "cloud", cfg.CloudinaryCloudName)
	}

	a.Domain = domain.New(a.API, a.Session, log)
	a.Teams = team.New(a.API, a.Session, uploader, log)
	a.Conversations = conversation.New(a.Session)

	a.Session.Subscribe(func(ctx context.Context, id *model.Identity) {
		a.refresh(ctx, id)
	})
	return a, nil
}

func (a *App) openStorage() (localstore.Storage, error) {
	switch a.Config.SessionBackend {
	case "file", "":
		return localstore.NewFile(a.Config.SessionFile), nil
	case "redis":
		r := localstore.NewRedis(a.Config.RedisAddr, a.Config.RedisPrefix)
		a.closers = append(a.closers, r)
		return r, nil
	case "memory":
		return localstore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", a.Config.SessionBackend)
	}
}

// Start restores the persisted session. A restored identity triggers the
// first refresh before Start returns.
func (a *App) Start(ctx context.Context) error {
	if err := a.Session.Restore(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	return nil
}

// Refresh refetches the domain and team stores for the current identity.
func (a *App) Refresh(ctx context.Context) {
	a.refresh(ctx, a.Session.Identity())
}

// refresh runs both store refreshes concurrently. The stores log their own
// fetch failures, so one never cancels the other.
func (a *App) refresh(ctx context.Context, id *model.Identity) {
	who := "anonymous"
	if id != nil {
		who = id.Email
	}
	a.Log.Debug("refreshing stores", "identity", who)

	var g errgroup.Group
	g.Go(func() error {
		a.Domain.Refresh(ctx)
		return nil
	})
	g.Go(func() error {
		a.Teams.Refresh(ctx)
		return nil
	})
	_ = g.Wait()
}

// Close releases network backed storage.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
