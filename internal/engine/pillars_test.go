package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskPulse/internal/domain/models"
)

func TestLevelForScore(t *testing.T) {
	testCases := []struct {
		score    float64
		expected models.SignalLevel
	}{
		{0.00, models.LevelOK},
		{0.44, models.LevelOK},
		{0.45, models.LevelWatch},
		{0.69, models.LevelWatch},
		{0.70, models.LevelRisk},
		{1.00, models.LevelRisk},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, levelForScore(tc.score), "score %.2f", tc.score)
	}
}

func TestPillarRollupFollowsWorstLevel(t *testing.T) {
	testCases := []struct {
		desc     string
		sigs     []models.PillarSignal
		expected models.PillarStatus
	}{
		{
			"all clear",
			[]models.PillarSignal{
				{Name: "a", Score: 0.10, Confidence: 0.9},
				{Name: "b", Score: 0.20, Confidence: 0.9},
			},
			models.PillarOK,
		},
		{
			"single watch lifts the pillar",
			[]models.PillarSignal{
				{Name: "a", Score: 0.10, Confidence: 0.9},
				{Name: "b", Score: 0.50, Confidence: 0.9},
			},
			models.PillarActive,
		},
		{
			"single risk trumps everything",
			[]models.PillarSignal{
				{Name: "a", Score: 0.10, Confidence: 0.9},
				{Name: "b", Score: 0.50, Confidence: 0.9},
				{Name: "c", Score: 0.90, Confidence: 0.9},
			},
			models.PillarTriggered,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			e := New(11, t0)
			e.setPillarSignals(t0, "hydra", tc.sigs)
			assert.Equal(t, tc.expected, e.pillars["hydra"].Status)
		})
	}
}

func TestPillarScoreIsConfidenceWeighted(t *testing.T) {
	e := New(11, t0)
	e.setPillarSignals(t0, "kronos", []models.PillarSignal{
		{Name: "drawdown", Score: 0.80, Confidence: 1.0},
		{Name: "trailing vol", Score: 0.20, Confidence: 0.5},
	})
	p := e.pillars["kronos"]
	require.NotNil(t, p.Score)
	require.NotNil(t, p.Confidence)
	assert.InDelta(t, (0.80*1.0+0.20*0.5)/1.5, *p.Score, 1e-9)
	assert.InDelta(t, 0.75, *p.Confidence, 1e-9)
}

func TestSignalLevelTransitionAlerts(t *testing.T) {
	e := New(11, t0)
	e.setPillarSignals(t0, "apollo", []models.PillarSignal{
		{Name: "trend state", Value: "up", Score: 0.20, Confidence: 0.8},
	})
	before := len(e.alerts)

	e.setPillarSignals(t0, "apollo", []models.PillarSignal{
		{Name: "trend state", Value: "broken", Score: 0.90, Confidence: 0.8},
	})
	require.Len(t, e.alerts, before+1)
	assert.Equal(t, models.SeverityCritical, e.alerts[0].Severity)
	assert.Contains(t, e.alerts[0].Title, "trend state")

	// Same level again: no further alert.
	e.setPillarSignals(t0, "apollo", []models.PillarSignal{
		{Name: "trend state", Value: "broken", Score: 0.95, Confidence: 0.8},
	})
	assert.Len(t, e.alerts, before+1)

	// A renamed signal has no prior entry to transition from.
	e.setPillarSignals(t0, "apollo", []models.PillarSignal{
		{Name: "regime model", Value: "crash", Score: 0.95, Confidence: 0.8},
	})
	assert.Len(t, e.alerts, before+1)
}

func TestSignalScoresClampedToUnit(t *testing.T) {
	e := New(11, t0)
	e.setPillarSignals(t0, "athena", []models.PillarSignal{
		{Name: "conviction", Score: 1.7, Confidence: -0.3},
	})
	s := e.signals["athena"][0]
	assert.Equal(t, 1.0, s.Score)
	assert.Equal(t, 0.0, s.Confidence)
	assert.Equal(t, models.LevelRisk, s.Level)
}
