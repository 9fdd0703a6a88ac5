package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/chrissnell/pvforecast/internal/controllers/restserver"
	"github.com/chrissnell/pvforecast/internal/controllers/sitewatch"
	"github.com/chrissnell/pvforecast/internal/pipeline"
	"github.com/chrissnell/pvforecast/pkg/config"
	"go.uber.org/zap"
)

// ControllerManager interface for the controller manager
type ControllerManager interface {
	StartControllers() error
}

// Controller is an interface that provides standard methods for various controller backends
type Controller interface {
	StartController() error
}

// NewControllerManager creates one controller per controller section that
// provider returns
func NewControllerManager(ctx context.Context, wg *sync.WaitGroup, provider config.ConfigProvider, p *pipeline.Pipeline, logger *zap.SugaredLogger) (ControllerManager, error) {
	cm := &controllerManager{
		ctx:         ctx,
		wg:          wg,
		provider:    provider,
		pipeline:    p,
		logger:      logger,
		controllers: make([]Controller, 0),
	}

	ccs, err := provider.GetControllers()
	if err != nil {
		return nil, fmt.Errorf("error reading controller configuration: %v", err)
	}

	// Create controllers based on configuration
	for _, con := range ccs {
		controller, err := cm.createController(con)
		if err != nil {
			return nil, fmt.Errorf("error creating controller: %v", err)
		}
		cm.controllers = append(cm.controllers, controller)
	}

	return cm, nil
}

type controllerManager struct {
	ctx         context.Context
	wg          *sync.WaitGroup
	provider    config.ConfigProvider
	pipeline    *pipeline.Pipeline
	logger      *zap.SugaredLogger
	controllers []Controller
}

func (c *controllerManager) StartControllers() error {
	c.logger.Info("Starting controller manager...")

	for _, controller := range c.controllers {
		err := controller.StartController()
		if err != nil {
			return fmt.Errorf("error starting controller: %v", err)
		}
	}

	c.logger.Infof("Started %d controllers successfully", len(c.controllers))
	return nil
}

// createController creates a controller based on the controller configuration
func (cm *controllerManager) createController(cc config.ControllerData) (Controller, error) {
	switch cc.Type {
	case "restserver", "rest":
		if cc.RESTServer == nil {
			return nil, fmt.Errorf("rest controller is missing its configuration")
		}
		return restserver.NewController(cm.ctx, cm.wg, *cc.RESTServer, cm.pipeline, cm.logger.Named("rest"))
	case "sitewatch":
		if cc.SiteWatch == nil {
			return nil, fmt.Errorf("sitewatch controller is missing its configuration")
		}
		sites, err := cm.provider.GetSites()
		if err != nil {
			return nil, fmt.Errorf("error reading site configuration: %v", err)
		}
		return sitewatch.NewController(cm.ctx, cm.wg, *cc.SiteWatch, sites, cm.pipeline, cm.logger.Named("sitewatch"))
	default:
		return nil, fmt.Errorf("unknown controller type: %s", cc.Type)
	}
}
