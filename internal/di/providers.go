package di

import (
	"context"
	"fmt"
	"time"

	"RiskPulse/internal/domain/repository"
	"RiskPulse/internal/engine"
	"RiskPulse/internal/handler/api"
	"RiskPulse/internal/handler/ws"
	internalrepo "RiskPulse/internal/repository"
	"RiskPulse/internal/usecase"
	pkgch "RiskPulse/pkg/clickhouse"
	"RiskPulse/pkg/config"
	pkgkafka "RiskPulse/pkg/kafka"
	applogger "RiskPulse/pkg/logger"
	"RiskPulse/pkg/metrics"
	"RiskPulse/pkg/server"
)

// ProvideLogger creates the application logger. Development environments get
// console output, everything else JSON.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: format,
		Output: "stdout",
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideEngine builds the simulation engine, seeding its RNG from config and
// starting the configured scenario when one is named.
func ProvideEngine(cfg *config.Config) (*engine.Engine, error) {
	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	eng := engine.New(seed, time.Now())

	if cfg.Sim.Scenario != "" {
		if err := eng.SetScenario(time.Now(), cfg.Sim.Scenario); err != nil {
			return nil, fmt.Errorf("startup scenario: %w", err)
		}
	}
	return eng, nil
}

// ProvideSimulator creates the tick driver.
func ProvideSimulator(cfg *config.Config, eng *engine.Engine, m repository.Metrics, l *applogger.Logger) *usecase.Simulator {
	return usecase.NewSimulator(eng, cfg.Sim.TickInterval, time.Now, m, l)
}

// ProvideHub creates the websocket fan-out hub.
func ProvideHub(l *applogger.Logger, m repository.Metrics) *ws.Hub {
	return ws.NewHub(l, m)
}

// ProvideTelemetryHandler creates the HTTP API handler.
func ProvideTelemetryHandler(l *applogger.Logger, sim *usecase.Simulator) *api.TelemetryHandler {
	return api.NewTelemetryHandler(l, sim)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when the alert
// archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when alert fan-out is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideBroadcaster assembles the publish side: the websocket hub always,
// plus whichever external buses and alert sinks are enabled.
func ProvideBroadcaster(
	cfg *config.Config,
	eng *engine.Engine,
	m repository.Metrics,
	l *applogger.Logger,
	hub *ws.Hub,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) (*usecase.Broadcaster, error) {
	b := usecase.NewBroadcaster(eng, cfg.Sim.PublishInterval, m, l)
	b.AddBus("ws", hub)

	if cfg.Redis.Enabled {
		bus, err := internalrepo.NewRedisBus(internalrepo.RedisBusConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		if err != nil {
			return nil, fmt.Errorf("redis bus: %w", err)
		}
		b.AddBus("redis", bus)
	}

	if producer != nil {
		b.AddAlertSink("kafka", internalrepo.NewKafkaAlertSink(producer, cfg.Kafka.Topic))
	}

	if chClient != nil {
		sink := internalrepo.NewClickHouseAlertSink(chClient)
		sink.SetLogger(l)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sink.Init(ctx); err != nil {
			return nil, fmt.Errorf("clickhouse alert sink: %w", err)
		}
		b.AddAlertSink("clickhouse", sink)
	}

	return b, nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	sim *usecase.Simulator,
	broadcaster *usecase.Broadcaster,
	hub *ws.Hub,
	handler *api.TelemetryHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, l, sim, broadcaster, hub, handler, producer, chClient)
}
