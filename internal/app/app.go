package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/pvforecast/internal/log"
	"github.com/chrissnell/pvforecast/internal/managers"
	"github.com/chrissnell/pvforecast/internal/pipeline"
	"github.com/chrissnell/pvforecast/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	envFile        string
	logger         *zap.SugaredLogger
}

// New creates a new application instance. envFile may name a .env file of
// overrides; it is ignored if it does not exist.
func New(configProvider config.ConfigProvider, envFile string, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		envFile:        envFile,
		logger:         logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfgData, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %v", err)
	}
	if err := config.ApplyEnv(cfgData, a.envFile); err != nil {
		return err
	}

	// Build the forecast pipeline; a model bundle that fails to load stops startup
	p, err := pipeline.New(cfgData, a.logger)
	if err != nil {
		return err
	}
	defer p.Close()

	log.Infof("Loaded model bundle %q", p.Engine.Bundle().Name)

	// Initialize the controller manager. The provider hands back the same
	// configuration ApplyEnv just overlaid.
	cm, err := managers.NewControllerManager(ctx, &wg, a.configProvider, p, a.logger)
	if err != nil {
		return err
	}
	err = cm.StartControllers()
	if err != nil {
		return err
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}
