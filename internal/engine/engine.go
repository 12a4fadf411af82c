package engine

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"RiskPulse/internal/domain/models"
)

// Engine owns the full simulation state. One tick at a time: the driver calls
// Tick with the current time, the active phase handler rewrites the module
// patch, gates and pillar signals, the cross-module derivations run, and a
// fresh snapshot replaces the published one wholesale. Readers only ever see
// a completed snapshot.
//
// The clock is injected per call and the RNG is seeded at construction, so
// scripted playback is exactly reproducible.
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand

	phase      models.Phase
	phaseSince time.Time

	run *scenarioRun // nil when free-running

	regime  models.Regime
	ceiling float64
	stress  models.StressSource

	modules []models.ModuleSignal
	gates   models.GateStatus
	signals map[string][]models.PillarSignal
	pillars map[string]*models.PillarSummary

	// cbRan marks that the circuit-break handler ran once, so the free-running
	// machine leaves CIRCUIT_BREAK on the very next tick.
	cbRan bool

	reentry   reentryState
	alerts    []models.AlertEvent
	portfolio *models.PortfolioSnapshot

	snapMu sync.RWMutex
	snap   *models.Snapshot
}

type scenarioRun struct {
	def       *Scenario
	startedAt time.Time
	step      int
}

// New builds an engine in CALM / RISK_ON and publishes its first snapshot at
// the given instant.
func New(seed int64, now time.Time) *Engine {
	e := &Engine{
		rng:        rand.New(rand.NewSource(seed)),
		phase:      models.PhaseCalm,
		phaseSince: now,
		regime:     models.RegimeRiskOn,
		ceiling:    regimeTable[models.RegimeRiskOn].Ceiling,
		stress:     models.StressGeneral,
		modules:    append([]models.ModuleSignal(nil), baselineModules...),
		gates: models.GateStatus{
			StressNormalization: models.GateWait,
			Conviction:          models.GateWait,
			Confirmation:        models.GateWait,
		},
		signals: make(map[string][]models.PillarSignal),
		pillars: newPillarSet(now),
	}
	e.mu.Lock()
	e.tickLocked(now)
	e.mu.Unlock()
	return e
}

// Tick advances the simulation by one step. All mutation happens here; no
// operation inside a tick blocks.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickLocked(now)
}

func (e *Engine) tickLocked(now time.Time) {
	e.advancePhase(now)

	phaseHandlers[e.phase](e, now)
	e.cbRan = e.phase == models.PhaseCircuitBreak

	// The crash override runs after the phase's regime assignment so it can
	// only tighten, never loosen.
	e.crashOverride(now)
	e.recomputeComposite(now)
	e.rebuildPortfolio(now)

	e.publishSnapshot(now)
}

// advancePhase resolves the current phase: a pure timeline lookup while a
// scenario runs, dwell-time progression otherwise.
func (e *Engine) advancePhase(now time.Time) {
	if e.run != nil {
		elapsed := now.Sub(e.run.startedAt)
		next, step := e.run.def.PhaseAt(elapsed)
		e.run.step = step
		if next != e.phase {
			e.pushAlert(now, models.SeverityInfo,
				fmt.Sprintf("Phase transition: %s", next),
				fmt.Sprintf("scenario %s at %.0fs", e.run.def.ID, elapsed.Seconds()),
				"phase")
			e.phase = next
			e.phaseSince = now
		}
		return
	}

	var advance bool
	if e.phase == models.PhaseCircuitBreak {
		// One-tick state: leaves unconditionally once its handler has run.
		advance = e.cbRan
	} else {
		advance = now.Sub(e.phaseSince) >= phaseDwell[e.phase]
	}
	if advance {
		next := nextPhase(e.phase)
		e.pushAlert(now, models.SeverityInfo,
			fmt.Sprintf("Phase transition: %s", next),
			"free-running dwell elapsed",
			"phase")
		e.phase = next
		e.phaseSince = now
		e.cbRan = false
	}
}

// drift perturbs a value when running free; scripted playback stays exact.
func (e *Engine) drift(v, amp float64) float64 {
	if e.run != nil {
		return clamp01(v)
	}
	return clamp01(v + (e.rng.Float64()*2-1)*amp)
}

func (e *Engine) skew() stressSkew {
	if e.run != nil {
		return e.run.def.Skew
	}
	return skewGeneral
}

// Snapshot returns the most recently published snapshot. It never blocks on
// tick execution and the returned value is never mutated afterwards.
func (e *Engine) Snapshot() *models.Snapshot {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	return e.snap
}

// SetPhase forces the free-running machine to a named phase and resets its
// dwell clock. While a scenario is active the timeline reasserts its own
// phase on the next tick.
func (e *Engine) SetPhase(now time.Time, name string) error {
	p, err := ParsePhase(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.phase = p
	e.phaseSince = now
	e.cbRan = false
	e.pushAlert(now, models.SeverityInfo,
		fmt.Sprintf("Operator forced phase %s", p), "", "control", "phase")
	return nil
}

// SetScenario switches to a scripted timeline, resetting the scenario clock,
// gates and any pending re-entry approval.
func (e *Engine) SetScenario(now time.Time, id string) error {
	def, ok := ScenarioByID(id)
	if !ok {
		return fmt.Errorf("unknown scenario %q (available: %s)", id, strings.Join(ScenarioIDs(), ", "))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.run = &scenarioRun{def: def, startedAt: now}
	e.phase, e.run.step = def.PhaseAt(0)
	e.phaseSince = now
	e.resetReentry()
	e.gates = models.GateStatus{
		StressNormalization: models.GateWait,
		Conviction:          models.GateWait,
		Confirmation:        models.GateWait,
	}
	e.pushAlert(now, models.SeverityInfo,
		fmt.Sprintf("Scenario started: %s", def.Name), def.ID, "control", "scenario")
	return nil
}

// ClearScenario returns to free-running mode and resets re-entry approval.
func (e *Engine) ClearScenario(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run == nil {
		return
	}
	e.run = nil
	e.phaseSince = now
	e.resetReentry()
	e.pushAlert(now, models.SeverityInfo, "Scenario cleared", "free-running mode", "control", "scenario")
}

// AutoDemo selects the default scripted scenario.
func (e *Engine) AutoDemo(now time.Time) string {
	_ = e.SetScenario(now, DefaultScenarioID)
	return DefaultScenarioID
}

// ApproveReentry sets the PM approval flag. It has no effect unless a
// scenario containing a REENTRY phase is active. Returns whether the approval
// was applied.
func (e *Engine) ApproveReentry(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run == nil || !e.run.def.HasPhase(models.PhaseReentry) {
		return false
	}
	if e.reentry.approved {
		return true
	}
	e.reentry.approved = true
	e.reentry.approvedAt = now
	e.pushAlert(now, models.SeverityWatch, "Re-entry approved",
		"PM approval granted; tranche deployment will follow", "ares", "reentry")
	return true
}

// publishSnapshot assembles a fresh immutable snapshot and swaps it in.
func (e *Engine) publishSnapshot(now time.Time) {
	snap := &models.Snapshot{
		Timestamp:    now,
		Phase:        e.phase,
		Regime:       e.regime,
		Ceiling:      e.ceiling,
		StressSource: e.stress,
		Gates:        e.gates,
		Modules:      append([]models.ModuleSignal(nil), e.modules...),
		Alerts:       append([]models.AlertEvent(nil), e.alerts...),
		Portfolio:    e.portfolio,
	}

	snap.PillarSignals = make(map[string][]models.PillarSignal, len(e.signals))
	for id, s := range e.signals {
		snap.PillarSignals[id] = append([]models.PillarSignal(nil), s...)
	}

	snap.Pillars = make(map[string]models.PillarSummary, len(e.pillars))
	for id, p := range e.pillars {
		cp := *p
		if p.Score != nil {
			v := *p.Score
			cp.Score = &v
		}
		if p.Confidence != nil {
			v := *p.Confidence
			cp.Confidence = &v
		}
		snap.Pillars[id] = cp
	}

	if e.run != nil {
		snap.Scenario = &models.ScenarioState{
			ID:      e.run.def.ID,
			Name:    e.run.def.Name,
			Elapsed: now.Sub(e.run.startedAt).Seconds(),
			Step:    e.run.step,
		}
	}

	e.snapMu.Lock()
	e.snap = snap
	e.snapMu.Unlock()
}
