package usecase

import (
	"context"
	"sync"
	"time"

	"RiskPulse/internal/domain/models"
	drepo "RiskPulse/internal/domain/repository"
	"RiskPulse/internal/engine"
	applogger "RiskPulse/pkg/logger"
)

// namedBus pairs a snapshot bus with the sink label used in metrics.
type namedBus struct {
	name string
	bus  drepo.SnapshotBus
}

type namedSink struct {
	name string
	sink drepo.AlertSink
}

// Broadcaster publishes the engine's snapshot to the configured buses on its
// own cadence, independent of the tick rate, and forwards alert events that
// appeared since the previous publish to the alert sinks.
type Broadcaster struct {
	engine   *engine.Engine
	interval time.Duration
	metrics  drepo.Metrics
	l        *applogger.Logger

	buses []namedBus
	sinks []namedSink

	lastAlertID string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewBroadcaster(eng *engine.Engine, interval time.Duration, metrics drepo.Metrics, l *applogger.Logger) *Broadcaster {
	return &Broadcaster{
		engine:   eng,
		interval: interval,
		metrics:  metrics,
		l:        l,
	}
}

// AddBus registers a snapshot bus under a metrics label.
func (b *Broadcaster) AddBus(name string, bus drepo.SnapshotBus) {
	b.buses = append(b.buses, namedBus{name: name, bus: bus})
}

// AddAlertSink registers an alert sink under a metrics label.
func (b *Broadcaster) AddAlertSink(name string, sink drepo.AlertSink) {
	b.sinks = append(b.sinks, namedSink{name: name, sink: sink})
}

// Start launches the publish loop. Calling Start on a running broadcaster is
// a no-op.
func (b *Broadcaster) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	go b.run(ctx, b.done)

	b.l.Info("broadcaster started",
		applogger.Duration("publish_ms", b.interval),
		applogger.Int("buses", len(b.buses)),
		applogger.Int("alert_sinks", len(b.sinks)),
	)
}

func (b *Broadcaster) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.PublishOnce(ctx)
		}
	}
}

// PublishOnce pushes the current snapshot to every bus and forwards unseen
// alerts to every sink.
func (b *Broadcaster) PublishOnce(ctx context.Context) {
	snap := b.engine.Snapshot()
	if snap == nil {
		return
	}

	for _, nb := range b.buses {
		err := nb.bus.Publish(ctx, snap)
		b.metrics.RecordPublish(nb.name, err)
		if err != nil {
			b.l.Error("snapshot publish failed",
				applogger.String("bus", nb.name),
				applogger.Error(err),
			)
		}
	}

	fresh := b.unseenAlerts(snap.Alerts)
	if len(fresh) == 0 {
		return
	}
	for _, ev := range fresh {
		b.metrics.RecordAlert(string(ev.Severity))
	}
	for _, ns := range b.sinks {
		err := ns.sink.Record(ctx, fresh)
		b.metrics.RecordPublish(ns.name, err)
		if err != nil {
			b.l.Error("alert forward failed",
				applogger.String("sink", ns.name),
				applogger.Int("events", len(fresh)),
				applogger.Error(err),
			)
		}
	}
}

// unseenAlerts returns, oldest first, the alerts that arrived since the last
// publish. The log is newest-first and capped, so after a long gap the marker
// may have been pushed out; everything still in the log is then forwarded.
func (b *Broadcaster) unseenAlerts(alerts []models.AlertEvent) []models.AlertEvent {
	if len(alerts) == 0 {
		return nil
	}

	cut := len(alerts)
	if b.lastAlertID != "" {
		for i, ev := range alerts {
			if ev.ID == b.lastAlertID {
				cut = i
				break
			}
		}
	}
	b.lastAlertID = alerts[0].ID

	fresh := make([]models.AlertEvent, 0, cut)
	for i := cut - 1; i >= 0; i-- {
		fresh = append(fresh, alerts[i])
	}
	return fresh
}

// Stop halts the publish loop and closes the registered buses and sinks.
func (b *Broadcaster) Stop(ctx context.Context) {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	for _, nb := range b.buses {
		if err := nb.bus.Close(); err != nil {
			b.l.Warn("bus close failed", applogger.String("bus", nb.name), applogger.Error(err))
		}
	}
	for _, ns := range b.sinks {
		if err := ns.sink.Close(); err != nil {
			b.l.Warn("sink close failed", applogger.String("sink", ns.name), applogger.Error(err))
		}
	}
	b.l.Info("broadcaster stopped")
}
