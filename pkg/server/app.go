package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/layiku/data-simulator/internal/domain/repository"
	"github.com/layiku/data-simulator/internal/handler/api"
	"github.com/layiku/data-simulator/internal/middleware"
	"github.com/layiku/data-simulator/internal/registry"
	"github.com/layiku/data-simulator/pkg/config"
	xhttp "github.com/layiku/data-simulator/pkg/http"
	"github.com/layiku/data-simulator/pkg/logger"
)

// App owns the process lifecycle: it brings the pipeline, generators, stream
// hub, and HTTP server up in dependency order and tears them down in reverse.
type App struct {
	cfg *config.Config
	log *logger.Logger

	registry    *registry.Registry
	pipeline    *middleware.PointPipeline // nil when pipeline.backend is none
	sink        repository.PointSink      // nil when pipeline.backend is none
	hub         *api.StreamHub            // nil when stream is disabled
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
}

func New(
	cfg *config.Config,
	log *logger.Logger,
	reg *registry.Registry,
	pipeline *middleware.PointPipeline,
	sink repository.PointSink,
	httpHandler xhttp.Handler,
	hub *api.StreamHub,
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		registry:    reg,
		pipeline:    pipeline,
		sink:        sink,
		hub:         hub,
		httpHandler: httpHandler,
	}
}

// Run starts everything and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.sink != nil {
		initCtx, initCancel := context.WithTimeout(ctx, 10*time.Second)
		err := a.sink.Init(initCtx)
		initCancel()
		if err != nil {
			return fmt.Errorf("sink init: %w", err)
		}
	}

	if a.pipeline != nil {
		a.pipeline.Start(ctx)
		a.log.Info("egress pipeline started",
			logger.String("backend", a.cfg.Pipeline.Backend))
	}

	a.registry.StartAll()

	if a.hub != nil {
		a.hub.Start()
	}

	opts := []xhttp.ServerOption{
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(
			a.cfg.Server.ReadTimeout.Std(),
			a.cfg.Server.WriteTimeout.Std(),
			a.cfg.Server.ShutdownTimeout.Std(),
		),
	}
	if len(a.cfg.Server.AllowedOrigins) > 0 {
		opts = append(opts, xhttp.WithCORSOrigins(a.cfg.Server.AllowedOrigins))
	}
	if a.cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(a.cfg.Metrics.Path))
	}
	a.httpServer = xhttp.NewServer(a.httpHandler, a.log, opts...)
	if err := a.httpServer.Start(); err != nil {
		return err
	}

	a.log.Info("service running",
		logger.String("env", a.cfg.Environment),
		logger.Int("objects", a.registry.Len()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	a.shutdown(ctx)
	return nil
}

// shutdown stops in reverse start order: no new requests, no new pushes, no
// new points, then the pipeline drains what is left into the sink.
func (a *App) shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", logger.Error(err))
	}

	if a.hub != nil {
		a.hub.Stop()
	}

	a.registry.StopAll()

	if a.pipeline != nil {
		a.pipeline.Stop()
	}
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			a.log.Warn("sink close error", logger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
}
