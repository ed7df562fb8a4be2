package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/JashanChopra/Summit/internal/constants"
	"github.com/JashanChopra/Summit/internal/controllers/restserver"
	"github.com/JashanChopra/Summit/internal/database"
	"github.com/JashanChopra/Summit/internal/pipeline"
	"github.com/JashanChopra/Summit/pkg/config"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Session is an open store guarded by the single-instance lock
type Session struct {
	Config *config.ConfigData
	Store  *database.Store
	lock   *flock.Flock
	logger *zap.SugaredLogger
}

// Open loads the configuration, takes the instance lock and opens the store.
// Only one process may hold the store open for writing at a time.
func (a *App) Open(ctx context.Context) (*Session, error) {
	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lockPath := lockPathFor(cfg)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another %s instance holds %s", constants.AppName, lockPath)
	}

	store, err := database.Open(ctx, cfg.Storage, a.logger.Named("database"))
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	return &Session{Config: cfg, Store: store, lock: lock, logger: a.logger}, nil
}

// lockPathFor places the lock next to the SQLite file, or in the data
// directory when the store is remote
func lockPathFor(cfg *config.ConfigData) string {
	if cfg.Storage.SQLite != nil && cfg.Storage.SQLite.Path != "" {
		return cfg.Storage.SQLite.Path + ".lock"
	}
	return filepath.Join(cfg.DataDir, "."+constants.AppName+".lock")
}

// Close closes the store and releases the lock
func (s *Session) Close() error {
	err := s.Store.Close()
	if uerr := s.lock.Unlock(); uerr != nil {
		s.logger.Warnf("failed to release lock %s: %v", s.lock.Path(), uerr)
	}
	return err
}

// Process runs every pipeline task once and returns
func (a *App) Process(ctx context.Context) error {
	session, err := a.Open(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	sched, err := pipeline.Build(session.Store, session.Config, a.logger)
	if err != nil {
		return err
	}
	return sched.RunOnce(ctx)
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	session, err := a.Open(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	sched, err := pipeline.Build(session.Store, session.Config, a.logger)
	if err != nil {
		return err
	}

	// The REST server is optional and read-only
	if rc := session.Config.RESTServer; rc != nil {
		ctrl, err := restserver.NewController(ctx, &wg, session.Store, *rc, a.logger.Named("rest"))
		if err != nil {
			return err
		}
		if err := ctrl.StartController(); err != nil {
			return err
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sched.Run(ctx); err != nil {
			a.logger.Errorf("pipeline stopped: %v", err)
		}
	}()

	a.logger.Info("application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// Wait for shutdown signal
	select {
	case <-sigs:
		a.logger.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	a.logger.Info("waiting for all workers to terminate...")
	wg.Wait()
	a.logger.Info("shutdown complete")

	return nil
}
