package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskPulse/internal/domain/models"
)

var t0 = time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)

func TestStressSourceClassification(t *testing.T) {
	testCases := []struct {
		desc     string
		crypto   float64 // risk written to indices 1 and 5
		equity   float64 // risk written to indices 2, 3 and 4
		expected models.StressSource
	}{
		{"correlated when both high and close", 0.60, 0.58, models.StressCorrelated},
		{"crypto when crypto leads", 0.70, 0.40, models.StressCrypto},
		{"equity when equity leads", 0.35, 0.60, models.StressEquity},
		{"general when neither dominates", 0.40, 0.45, models.StressGeneral},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			e := New(7, t0)
			for _, i := range cryptoModuleIdx {
				e.modules[i].Risk = tc.crypto
			}
			for _, i := range equityModuleIdx {
				e.modules[i].Risk = tc.equity
			}
			e.classifyStress(t0)
			assert.Equal(t, tc.expected, e.stress)
		})
	}
}

func TestCrashOverrideForcesCrashRegime(t *testing.T) {
	e := New(1, t0)
	require.Equal(t, models.PhaseCalm, e.phase)
	require.Equal(t, models.RegimeRiskOn, e.regime)

	before := len(e.alerts)

	// Four of six stress flags flip on, risks kept below the 0.65 threshold
	// so only flag toggles and the override itself alert.
	e.applyModules(t0, []modulePatch{
		{Risk: 0.60, Stressed: true, Confidence: 0.80},
		{Risk: 0.62, Stressed: true, Confidence: 0.80},
		{Risk: 0.58, Stressed: true, Confidence: 0.80},
		{Risk: 0.61, Stressed: true, Confidence: 0.80},
		{Risk: 0.30, Stressed: false, Confidence: 0.80},
		{Risk: 0.20, Stressed: false, Confidence: 0.80},
	})
	e.crashOverride(t0)

	assert.Equal(t, models.RegimeCrash, e.regime)
	assert.LessOrEqual(t, e.ceiling, crashCeiling)

	added := e.alerts[:len(e.alerts)-before]
	var overrides, flags int
	for _, a := range added {
		switch {
		case contains(a.Tags, "crash-override"):
			overrides++
			assert.Equal(t, models.SeverityCritical, a.Severity)
		case contains(a.Tags, "module"):
			flags++
			assert.Equal(t, models.SeverityWatch, a.Severity)
		}
	}
	assert.Equal(t, 1, overrides)
	assert.Equal(t, 4, flags)
}

func TestCrashOverrideOnlyTightens(t *testing.T) {
	e := New(1, t0)
	e.setRegime(models.RegimeCrash, models.StressGeneral)
	e.ceiling = 0.10
	for i := 0; i < 4; i++ {
		e.modules[i].Stressed = true
	}
	before := len(e.alerts)
	e.crashOverride(t0)
	assert.Equal(t, 0.10, e.ceiling, "an already tighter ceiling must not be loosened")
	assert.Len(t, e.alerts, before, "no alert when nothing changed")
}

func TestShortModulePatchIsPositionalNoop(t *testing.T) {
	e := New(3, t0)
	mods := append([]models.ModuleSignal(nil), e.modules...)

	e.applyModules(t0, []modulePatch{
		{Risk: 0.55, Confidence: 0.70},
		{Risk: 0.50, Confidence: 0.70},
	})

	assert.Equal(t, 0.55, e.modules[0].Risk)
	assert.Equal(t, 0.50, e.modules[1].Risk)
	for i := 2; i < moduleCount; i++ {
		assert.Equal(t, mods[i], e.modules[i], "index %d must be untouched", i)
	}
}

func TestModuleRiskThresholdAlerts(t *testing.T) {
	e := New(5, t0)
	patch := make([]modulePatch, moduleCount)
	for i := range patch {
		patch[i] = modulePatch{Risk: e.modules[i].Risk, Confidence: e.modules[i].Confidence}
	}
	patch[2].Risk = 0.80
	before := len(e.alerts)
	e.applyModules(t0, patch)

	require.Greater(t, len(e.alerts), before)
	up := findAlert(e.alerts, "Module risk elevated: equity vol surface")
	require.NotNil(t, up)
	assert.Equal(t, models.SeverityCritical, up.Severity)

	patch[2].Risk = 0.30
	e.applyModules(t0.Add(time.Second), patch)
	down := findAlert(e.alerts, "Module risk normalized: equity vol surface")
	require.NotNil(t, down)
	assert.Equal(t, models.SeverityInfo, down.Severity)
}

func findAlert(alerts []models.AlertEvent, title string) *models.AlertEvent {
	for i := range alerts {
		if alerts[i].Title == title {
			return &alerts[i]
		}
	}
	return nil
}

func TestCompositeUpweightsStressedModules(t *testing.T) {
	e := New(9, t0)
	for i := range e.modules {
		e.modules[i].Risk = 0.40
		e.modules[i].Confidence = 0.80
		e.modules[i].Stressed = false
	}
	e.recomputeComposite(t0)
	base := *e.pillars[modulePillarID].Score
	assert.InDelta(t, 0.40, base, 1e-9)

	e.modules[0].Risk = 0.90
	e.modules[0].Stressed = true
	e.recomputeComposite(t0)
	weighted := *e.pillars[modulePillarID].Score

	// num = 0.9*0.8*1.5 + 5*0.4*0.8, den = 0.8*1.5 + 5*0.8
	expected := (0.9*0.8*1.5 + 5*0.4*0.8) / (0.8*1.5 + 5*0.8)
	assert.InDelta(t, expected, weighted, 1e-9)
	assert.InDelta(t, 0.80, *e.pillars[modulePillarID].Confidence, 1e-9)
}

func contains(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}
