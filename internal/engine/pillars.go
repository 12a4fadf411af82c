package engine

import (
	"fmt"
	"time"

	"RiskPulse/internal/domain/models"
)

type pillarDef struct {
	ID       string
	Name     string
	Category models.PillarCategory
}

// The seven pillars are fixed for the lifetime of the engine.
var pillarDefs = []pillarDef{
	{"atlas", "Systemic Stress", models.CategoryDefensive},
	{"hydra", "Liquidity Defense", models.CategoryDefensive},
	{"kronos", "Drawdown Governor", models.CategoryDefensive},
	{"apollo", "Regime Context", models.CategoryContext},
	{"athena", "Alpha Conviction", models.CategoryOffensive},
	{"ares", "Re-entry Gates", models.CategoryOffensive},
	{"hermes", "Execution", models.CategoryExecution},
}

const (
	// modulePillarID decomposes into the six stress modules instead of
	// generic sub-signals.
	modulePillarID = "atlas"
	// executionPillarID carries no decomposition; phase handlers set its
	// status and headline directly.
	executionPillarID = "hermes"
)

const (
	riskLevelThreshold  = 0.70
	watchLevelThreshold = 0.45
)

func levelForScore(score float64) models.SignalLevel {
	switch {
	case score >= riskLevelThreshold:
		return models.LevelRisk
	case score >= watchLevelThreshold:
		return models.LevelWatch
	default:
		return models.LevelOK
	}
}

func newPillarSet(now time.Time) map[string]*models.PillarSummary {
	m := make(map[string]*models.PillarSummary, len(pillarDefs))
	for _, d := range pillarDefs {
		m[d.ID] = &models.PillarSummary{
			ID:        d.ID,
			Name:      d.Name,
			Category:  d.Category,
			Status:    models.PillarOK,
			UpdatedAt: now,
		}
	}
	return m
}

// setPillarSignals replaces a pillar's sub-signal list wholesale, emits level
// transition alerts (matched to the previous list by name), and rolls the new
// list up into the pillar summary. Headlines are not derived here; the active
// phase writes them.
func (e *Engine) setPillarSignals(now time.Time, pillarID string, sigs []models.PillarSignal) {
	prev := make(map[string]models.PillarSignal, len(e.signals[pillarID]))
	for _, s := range e.signals[pillarID] {
		prev[s.Name] = s
	}

	for i := range sigs {
		s := &sigs[i]
		s.Score = clamp01(s.Score)
		s.Confidence = clamp01(s.Confidence)
		if s.Level == "" {
			s.Level = levelForScore(s.Score)
		}
		if old, ok := prev[s.Name]; ok && old.Level != s.Level {
			e.pushAlert(now, severityForLevel(s.Level),
				fmt.Sprintf("%s: %s now %s", e.pillars[pillarID].Name, s.Name, s.Level),
				fmt.Sprintf("was %s, value %s, score %.2f, confidence %.2f", old.Level, s.Value, s.Score, s.Confidence),
				pillarID, "signal")
		}
	}
	e.signals[pillarID] = sigs

	worst := models.LevelOK
	var weighted, weight, confSum float64
	for _, s := range sigs {
		if rankLevel(s.Level) > rankLevel(worst) {
			worst = s.Level
		}
		weighted += s.Score * s.Confidence
		weight += s.Confidence
		confSum += s.Confidence
	}

	p := e.pillars[pillarID]
	p.Status = statusForLevel(worst)
	if len(sigs) > 0 {
		score := clamp01(weighted / nonZero(weight))
		conf := clamp01(confSum / float64(len(sigs)))
		p.Score = &score
		p.Confidence = &conf
	}
	p.UpdatedAt = now
}

func (e *Engine) setHeadline(now time.Time, pillarID, headline string) {
	p := e.pillars[pillarID]
	p.Headline = headline
	p.UpdatedAt = now
}

// setExecution updates the execution pillar, which has no sub-signal roll-up.
func (e *Engine) setExecution(now time.Time, status models.PillarStatus, headline string) {
	p := e.pillars[executionPillarID]
	p.Status = status
	p.Headline = headline
	p.UpdatedAt = now
}

func rankLevel(l models.SignalLevel) int {
	switch l {
	case models.LevelRisk:
		return 2
	case models.LevelWatch:
		return 1
	default:
		return 0
	}
}

func statusForLevel(l models.SignalLevel) models.PillarStatus {
	switch l {
	case models.LevelRisk:
		return models.PillarTriggered
	case models.LevelWatch:
		return models.PillarActive
	default:
		return models.PillarOK
	}
}

func severityForLevel(l models.SignalLevel) models.Severity {
	switch l {
	case models.LevelRisk:
		return models.SeverityCritical
	case models.LevelWatch:
		return models.SeverityWatch
	default:
		return models.SeverityInfo
	}
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
