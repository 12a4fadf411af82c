package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RiskPulse/internal/handler/api"
	"RiskPulse/internal/handler/ws"
	internalrepo "RiskPulse/internal/repository"
	"RiskPulse/internal/usecase"
	pkgch "RiskPulse/pkg/clickhouse"
	"RiskPulse/pkg/config"
	xhttp "RiskPulse/pkg/http"
	pkgkafka "RiskPulse/pkg/kafka"
	applogger "RiskPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	l           *applogger.Logger
	sim         *usecase.Simulator
	broadcaster *usecase.Broadcaster
	hub         *ws.Hub
	handler     *api.TelemetryHandler
	producer    *pkgkafka.Producer
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	sim *usecase.Simulator,
	broadcaster *usecase.Broadcaster,
	hub *ws.Hub,
	handler *api.TelemetryHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:         cfg,
		l:           l,
		sim:         sim,
		broadcaster: broadcaster,
		hub:         hub,
		handler:     handler,
		producer:    producer,
		chClient:    chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Error logs are aggregated onto the alert topic when Kafka is wired.
	if a.producer != nil {
		a.l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          a.cfg.Kafka.Topic + ".logs",
			Publisher:      internalrepo.ProducerPublisher{Producer: a.producer},
		})
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	a.hub.RegisterRoutes(a.httpServer.Echo())

	a.sim.Start(ctx)
	a.broadcaster.Start(ctx)

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("riskpulse up",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("scenario", a.cfg.Sim.Scenario),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.sim.Stop()

	// Closes the hub, external buses and alert sinks (including the Kafka
	// producer owned by its sink).
	a.broadcaster.Stop(ctx)

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.RemoveCollector()
	a.l.Info("shutdown complete")
	return nil
}
