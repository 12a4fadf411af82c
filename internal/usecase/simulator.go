package usecase

import (
	"context"
	"sync"
	"time"

	drepo "RiskPulse/internal/domain/repository"
	"RiskPulse/internal/engine"
	applogger "RiskPulse/pkg/logger"
)

// Simulator drives the engine at a fixed tick rate. The clock is injected so
// tests can step simulated time without sleeping.
type Simulator struct {
	engine   *engine.Engine
	interval time.Duration
	clock    func() time.Time
	metrics  drepo.Metrics
	l        *applogger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSimulator(eng *engine.Engine, interval time.Duration, clock func() time.Time, metrics drepo.Metrics, l *applogger.Logger) *Simulator {
	if clock == nil {
		clock = time.Now
	}
	return &Simulator{
		engine:   eng,
		interval: interval,
		clock:    clock,
		metrics:  metrics,
		l:        l,
	}
}

// Engine exposes the underlying engine for control handlers.
func (s *Simulator) Engine() *engine.Engine {
	return s.engine
}

// Now returns the simulator's current clock reading.
func (s *Simulator) Now() time.Time {
	return s.clock()
}

// Start launches the tick loop. Calling Start on a running simulator is a
// no-op.
func (s *Simulator) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)

	s.l.Info("simulator started", applogger.Duration("tick_ms", s.interval))
}

func (s *Simulator) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			s.engine.Tick(s.clock())
			s.metrics.RecordTick(time.Since(start).Seconds())

			snap := s.engine.Snapshot()
			s.metrics.RecordRegime(string(snap.Regime), snap.Ceiling)
		}
	}
}

// Stop halts the tick loop and waits for the in-flight tick to finish.
func (s *Simulator) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.l.Info("simulator stopped")
}
