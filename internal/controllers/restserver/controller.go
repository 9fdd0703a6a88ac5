package restserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/chrissnell/pvforecast/internal/grpcutil"
	"github.com/chrissnell/pvforecast/internal/log"
	"github.com/chrissnell/pvforecast/internal/pipeline"
	"github.com/chrissnell/pvforecast/pkg/config"
	"github.com/gorilla/mux"
	"github.com/soheilhy/cmux"
	"go.uber.org/zap"
)

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTServerData
	pipeline   *pipeline.Pipeline
	Server     http.Server
	health     *grpcutil.HealthServer
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, p *pipeline.Pipeline, logger *zap.SugaredLogger) (*Controller, error) {
	if p == nil {
		return nil, fmt.Errorf("REST server requires a forecast pipeline")
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: rc,
		pipeline:   p,
		logger:     logger,
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Info("rest.listen-addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = "0.0.0.0"
	}
	if rc.Port == 0 {
		logger.Infof("rest.port not provided; defaulting to %d", config.DefaultRESTPort)
		rc.Port = config.DefaultRESTPort
	}
	ctrl.restConfig = rc

	// gRPC health shares the plain-text listener; TLS listeners serve HTTP only
	if rc.GRPCHealth {
		if ctrl.useTLS() {
			logger.Warn("grpc-health is not available when the REST server uses TLS; disabling it")
		} else {
			hs, err := grpcutil.NewHealthServer("", "")
			if err != nil {
				return nil, err
			}
			ctrl.health = hs
		}
	}

	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port)
	ctrl.Server.Handler = ctrl.setupRouter()

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Info("Starting REST server controller...")

	l, err := net.Listen("tcp", c.Server.Addr)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %v", c.Server.Addr, err)
	}

	httpL := l
	if c.health != nil {
		m := cmux.New(l)
		grpcL := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
		httpL = m.Match(cmux.Any())

		c.wg.Add(2)
		go func() {
			defer c.wg.Done()
			if err := c.health.Server.Serve(grpcL); err != nil && err != cmux.ErrListenerClosed {
				log.Errorf("gRPC health server error: %v", err)
			}
		}()
		go func() {
			defer c.wg.Done()
			// Serve returns once the root listener is closed during shutdown
			_ = m.Serve()
		}()
		c.health.SetServing(true)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		if c.useTLS() {
			if err := c.Server.ServeTLS(httpL, c.restConfig.Cert, c.restConfig.Key); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		} else {
			if err := c.Server.Serve(httpL); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		if c.health != nil {
			c.health.Stop()
		}
		c.Server.Shutdown(context.Background())
		l.Close()
	}()

	return nil
}

func (c *Controller) useTLS() bool {
	return c.restConfig.Cert != "" && c.restConfig.Key != ""
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(log.HTTPMiddleware(c.logger.Named("http")))

	router.HandleFunc("/", c.handlers.GetUsage).Methods(http.MethodGet)
	router.HandleFunc("/forecast", c.handlers.GetForecast).Methods(http.MethodGet)
	router.HandleFunc("/forecast", c.handlers.PostForecast).Methods(http.MethodPost)
	router.HandleFunc("/daily_forecast", c.handlers.GetDailyForecast).Methods(http.MethodGet)
	router.HandleFunc("/period_total", c.handlers.GetPeriodTotal).Methods(http.MethodGet)
	router.HandleFunc("/model", c.handlers.GetModel).Methods(http.MethodGet)

	// History endpoints answer 404 when no database is configured
	router.HandleFunc("/history/daily", c.handlers.GetHistoryDaily).Methods(http.MethodGet)
	router.HandleFunc("/history/runs", c.handlers.GetHistoryRuns).Methods(http.MethodGet)
	router.HandleFunc("/history/runs/{id}", c.handlers.GetHistoryRun).Methods(http.MethodGet)

	router.HandleFunc("/health", c.handlers.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", c.pipeline.Metrics.Handler()).Methods(http.MethodGet)

	return router
}
