// Package app initializes and orchestrates the main components of the
// doc-sentry application. It wires together the configuration, server, and
// other services.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sevigo/doc-sentry/internal/config"
	"github.com/sevigo/doc-sentry/internal/core"
	"github.com/sevigo/doc-sentry/internal/db"
	"github.com/sevigo/doc-sentry/internal/gitutil"
	"github.com/sevigo/doc-sentry/internal/jobs"
	"github.com/sevigo/doc-sentry/internal/repomanager"
	"github.com/sevigo/doc-sentry/internal/server"
	"github.com/sevigo/doc-sentry/internal/storage"
)

// App holds the main application components.
type App struct {
	Store   storage.Store
	RepoMgr repomanager.RepoManager
	Cfg     *config.Config

	logger     *slog.Logger
	server     *server.Server
	dispatcher core.JobDispatcher
}

// NewApp sets up the webhook-server application with all its dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, func(), error) {
	logger.Info("initializing doc-sentry application",
		"llm_provider", cfg.AI.Provider,
		"model", cfg.AI.Model,
		"max_workers", cfg.Server.MaxWorkers,
		"repo_path", cfg.Storage.RepoPath,
		"history_enabled", cfg.Storage.HistoryEnabled,
	)

	cleanup := func() {}
	var store storage.Store
	if cfg.Storage.HistoryEnabled {
		dbConn, dbCleanup, err := db.NewDatabase(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize run history store: %w", err)
		}
		store = storage.NewStore(dbConn.DB)
		cleanup = dbCleanup
	}

	gitClient := gitutil.NewClient(logger.With("component", "gitutil"))
	repoMgr := repomanager.New(cfg, gitClient, logger.With("component", "repomanager"))

	updateJob := jobs.NewUpdateDocsJob(cfg, repoMgr, store, nil, logger.With("component", "jobs"))
	dispatcher := jobs.NewDispatcher(updateJob, cfg.Server.MaxWorkers, logger.With("component", "dispatcher"))
	httpServer := server.NewServer(cfg, dispatcher, store, logger.With("component", "server"))

	logger.Info("doc-sentry application initialized")
	return &App{
		Store:      store,
		RepoMgr:    repoMgr,
		Cfg:        cfg,
		logger:     logger,
		server:     httpServer,
		dispatcher: dispatcher,
	}, cleanup, nil
}

// Start runs the HTTP server and blocks until it stops.
func (a *App) Start() error {
	a.logger.Info("starting doc-sentry",
		"server_port", a.Cfg.Server.Port,
		"max_workers", a.Cfg.Server.MaxWorkers)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly.
func (a *App) Stop() error {
	var shutdownErr error
	a.logger.Info("shutting down doc-sentry services")

	a.dispatcher.Stop()

	if a.server != nil {
		if err := a.server.Stop(); err != nil {
			a.logger.Error("error during HTTP server shutdown", "error", err)
			shutdownErr = errors.Join(shutdownErr, err)
		}
	}

	if shutdownErr != nil {
		a.logger.Error("doc-sentry stopped with errors", "error", shutdownErr)
	} else {
		a.logger.Info("doc-sentry stopped")
	}
	return shutdownErr
}
