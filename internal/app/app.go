// Package app wires the application together: configuration, logging,
// storage backend and services.
package app

import (
	"context"
	"fmt"

	"github.com/incomiq/incomiq/internal/backup"
	"github.com/incomiq/incomiq/internal/config"
	"github.com/incomiq/incomiq/internal/emailpolicy"
	"github.com/incomiq/incomiq/internal/logging"
	"github.com/incomiq/incomiq/internal/repositories/repomanager"
	"github.com/incomiq/incomiq/internal/services"
)

// App holds the composed services.
type App struct {
	Config      *config.Config
	Logger      *logging.ZapLogger
	Repos       repomanager.RepositoryManager
	Credentials *services.CredentialService
	Resolver    *services.AuthResolver
	Documents   *services.DocumentService
	Admin       *services.AdminService
	Backup      *backup.Service
}

// New builds the application. The backend is postgres when a DSN is
// configured, otherwise JSON files under the data directory. Migrations run
// and the demo partition is seeded before New returns.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.NewProduction(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	var m repomanager.RepositoryManager
	if cfg.DatabaseDSN != "" {
		m, err = repomanager.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	} else {
		m, err = repomanager.NewFileRepositoryManager(cfg.DataDir)
	}
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	if err := m.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	creds := services.NewCredentialService(m, emailpolicy.Default(), logger)
	docs := services.NewDocumentService(m, creds, logger)

	app := &App{
		Config:      cfg,
		Logger:      logger,
		Repos:       m,
		Credentials: creds,
		Resolver:    services.NewAuthResolver(m, logger),
		Documents:   docs,
		Admin:       services.NewAdminService(m, logger, cfg.AnonSalt, cfg.AdminEmails),
		Backup:      backup.NewService(cfg, logger),
	}

	if err := docs.SeedDemo(ctx); err != nil {
		return nil, fmt.Errorf("demo seed error: %w", err)
	}

	return app, nil
}

// Close releases the storage backend and flushes logs.
func (a *App) Close() error {
	a.Logger.Sync()
	return a.Repos.Close()
}
