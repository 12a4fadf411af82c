package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskPulse/internal/domain/models"
)

func TestNewPublishesInitialSnapshot(t *testing.T) {
	e := New(42, t0)
	snap := e.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, models.PhaseCalm, snap.Phase)
	assert.Equal(t, models.RegimeRiskOn, snap.Regime)
	assert.Nil(t, snap.Scenario)
	assert.Len(t, snap.Modules, moduleCount)
	assert.Len(t, snap.Pillars, len(pillarDefs))
	require.NotNil(t, snap.Portfolio)
}

func TestSnapshotInvariantsAcrossFreeRun(t *testing.T) {
	e := New(3, t0)
	for i := 1; i <= 300; i++ {
		now := t0.Add(time.Duration(i) * time.Second)
		e.Tick(now)
		snap := e.Snapshot()

		require.GreaterOrEqual(t, snap.Ceiling, 0.0)
		require.LessOrEqual(t, snap.Ceiling, ceilingMax)
		require.Len(t, snap.Pillars, len(pillarDefs))
		for _, d := range pillarDefs {
			require.Contains(t, snap.Pillars, d.ID)
		}
		for _, m := range snap.Modules {
			require.GreaterOrEqual(t, m.Risk, 0.0)
			require.LessOrEqual(t, m.Risk, 1.0)
			require.GreaterOrEqual(t, m.Confidence, 0.0)
			require.LessOrEqual(t, m.Confidence, 1.0)
		}
		for _, sigs := range snap.PillarSignals {
			for _, s := range sigs {
				require.GreaterOrEqual(t, s.Score, 0.0)
				require.LessOrEqual(t, s.Score, 1.0)
			}
		}
		require.LessOrEqual(t, len(snap.Alerts), alertCapacity)
		if len(snap.Alerts) > 1 {
			last := len(snap.Alerts) - 1
			require.False(t, snap.Alerts[0].Timestamp.Before(snap.Alerts[last].Timestamp),
				"newest alert must be first")
		}
	}
}

func TestSnapshotIsImmutableAfterPublish(t *testing.T) {
	e := New(8, t0)
	before := e.Snapshot()
	phase := before.Phase
	risk := before.Modules[0].Risk

	for i := 1; i <= 30; i++ {
		e.Tick(t0.Add(time.Duration(i) * time.Second))
	}

	assert.Equal(t, phase, before.Phase)
	assert.Equal(t, risk, before.Modules[0].Risk)
	assert.NotSame(t, before, e.Snapshot())
}

func TestFreeRunCircuitBreakLastsOneTick(t *testing.T) {
	e := New(7, t0)
	require.NoError(t, e.SetPhase(t0, string(models.PhaseCircuitBreak)))

	e.Tick(t0.Add(1 * time.Second))
	assert.Equal(t, models.PhaseCircuitBreak, e.Snapshot().Phase)

	e.Tick(t0.Add(2 * time.Second))
	assert.Equal(t, models.PhaseDeleverage, e.Snapshot().Phase)
}

func TestFreeRunNeverHoldsCircuitBreak(t *testing.T) {
	e := New(5, t0)
	consecutive := 0
	for i := 1; i <= 200; i++ {
		e.Tick(t0.Add(time.Duration(i) * time.Second))
		if e.Snapshot().Phase == models.PhaseCircuitBreak {
			consecutive++
			assert.LessOrEqual(t, consecutive, 1, "circuit break held for more than one tick")
		} else {
			consecutive = 0
		}
	}
}

func TestSetPhaseRejectsUnknownName(t *testing.T) {
	e := New(1, t0)
	err := e.SetPhase(t0, "MELTDOWN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown phase")
	assert.Equal(t, models.PhaseCalm, e.Snapshot().Phase, "snapshot untouched on bad input")
}

func TestSetScenarioRejectsUnknownID(t *testing.T) {
	e := New(1, t0)
	err := e.SetScenario(t0, "black-monday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scenario")
	assert.Contains(t, err.Error(), "flash-crash", "error lists the available scenarios")
}

func TestScriptedPlaybackIsDeterministic(t *testing.T) {
	run := func(seed int64) *models.Snapshot {
		e := New(seed, t0)
		require.NoError(t, e.SetScenario(t0, "flash-crash"))
		for i := 1; i <= 140; i++ {
			e.Tick(t0.Add(time.Duration(i) * time.Second))
		}
		return e.Snapshot()
	}

	a, b := run(1), run(99)
	assert.Equal(t, a.Phase, b.Phase)
	assert.Equal(t, a.Regime, b.Regime)
	assert.Equal(t, a.Ceiling, b.Ceiling)
	assert.Equal(t, a.StressSource, b.StressSource)
	assert.Equal(t, a.Modules, b.Modules)
	assert.Equal(t, a.PillarSignals, b.PillarSignals)
	assert.Equal(t, a.Gates, b.Gates)
}

func TestGatesNeverRegressWithinScenario(t *testing.T) {
	e := New(2, t0)
	require.NoError(t, e.SetScenario(t0, "flash-crash"))

	rank := func(g models.GateState) int {
		if g == models.GatePass {
			return 1
		}
		return 0
	}
	var prev models.GateStatus
	for i := 1; i <= 155; i++ {
		e.Tick(t0.Add(time.Duration(i) * time.Second))
		g := e.Snapshot().Gates
		assert.GreaterOrEqual(t, rank(g.StressNormalization), rank(prev.StressNormalization), "tick %d", i)
		assert.GreaterOrEqual(t, rank(g.Conviction), rank(prev.Conviction), "tick %d", i)
		assert.GreaterOrEqual(t, rank(g.Confirmation), rank(prev.Confirmation), "tick %d", i)
		prev = g
	}
	// The timeline's closing CALM step keeps scenario gate state intact.
	assert.Equal(t, models.GatePass, prev.StressNormalization)
}

func TestReentryApprovalDeploysTranchesAndRestoresRiskOn(t *testing.T) {
	e := New(4, t0)
	require.NoError(t, e.SetScenario(t0, "flash-crash"))

	for i := 1; i <= 92; i++ {
		e.Tick(t0.Add(time.Duration(i) * time.Second))
	}
	snap := e.Snapshot()
	require.Equal(t, models.PhaseReentry, snap.Phase)
	assert.Equal(t, models.RegimeDefensive, snap.Regime)
	assert.Equal(t, reentryHoldCeiling, snap.Ceiling, "held until PM approval")

	approveAt := t0.Add(95 * time.Second)
	require.True(t, e.ApproveReentry(approveAt))
	require.True(t, e.ApproveReentry(approveAt.Add(time.Second)), "approval is idempotent")

	e.Tick(t0.Add(100 * time.Second)) // 5s after approval: tranche 1
	snap = e.Snapshot()
	assert.Equal(t, 0.25, snap.Ceiling)
	require.NotNil(t, snap.Portfolio.Reentry)
	assert.Equal(t, 1, snap.Portfolio.Reentry.Tranche)

	e.Tick(t0.Add(126 * time.Second)) // 31s after approval: tranche 4
	snap = e.Snapshot()
	assert.Equal(t, models.RegimeRiskOn, snap.Regime)
	assert.Equal(t, 1.0, snap.Ceiling)
}

func TestApproveReentryRequiresActiveScenario(t *testing.T) {
	e := New(4, t0)
	assert.False(t, e.ApproveReentry(t0), "free-running mode has no approval flow")
}

func TestSwitchingScenariosResetsRunState(t *testing.T) {
	e := New(4, t0)
	require.NoError(t, e.SetScenario(t0, "flash-crash"))
	for i := 1; i <= 92; i++ {
		e.Tick(t0.Add(time.Duration(i) * time.Second))
	}
	require.True(t, e.ApproveReentry(t0.Add(93*time.Second)))

	switchAt := t0.Add(94 * time.Second)
	require.NoError(t, e.SetScenario(switchAt, "crypto-contagion"))
	e.Tick(switchAt.Add(time.Second))

	snap := e.Snapshot()
	require.NotNil(t, snap.Scenario)
	assert.Equal(t, "crypto-contagion", snap.Scenario.ID)
	assert.InDelta(t, 1.0, snap.Scenario.Elapsed, 0.01, "scenario clock restarts")
	assert.Equal(t, models.GateWait, snap.Gates.StressNormalization)
	assert.False(t, e.reentry.approved, "approval does not carry across scenarios")
}

func TestClearScenarioReturnsToFreeRunning(t *testing.T) {
	e := New(4, t0)
	id := e.AutoDemo(t0)
	assert.Equal(t, DefaultScenarioID, id)
	e.Tick(t0.Add(time.Second))
	require.NotNil(t, e.Snapshot().Scenario)

	e.ClearScenario(t0.Add(2 * time.Second))
	e.Tick(t0.Add(3 * time.Second))
	assert.Nil(t, e.Snapshot().Scenario)
}

func TestAlertLogCappedNewestFirst(t *testing.T) {
	e := New(1, t0)
	e.alerts = nil
	for i := 0; i < 250; i++ {
		e.pushAlert(t0.Add(time.Duration(i)*time.Second), models.SeverityInfo,
			fmt.Sprintf("alert %d", i), "", "test")
	}
	require.Len(t, e.alerts, alertCapacity)
	assert.Equal(t, "alert 249", e.alerts[0].Title)
	assert.Equal(t, "alert 50", e.alerts[alertCapacity-1].Title)

	seen := make(map[string]struct{}, len(e.alerts))
	for _, a := range e.alerts {
		require.NotEmpty(t, a.ID)
		_, dup := seen[a.ID]
		require.False(t, dup, "alert ids must be unique")
		seen[a.ID] = struct{}{}
	}
}
