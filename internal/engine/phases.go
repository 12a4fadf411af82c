package engine

import (
	"fmt"
	"time"

	"RiskPulse/internal/domain/models"
	"RiskPulse/pkg/util"
)

// Free-running dwell times. These are presentation pacing, not derived
// thresholds; only their ordering matters. CIRCUIT_BREAK is a one-tick state.
var phaseDwell = map[models.Phase]time.Duration{
	models.PhaseCalm:         20 * time.Second,
	models.PhaseBuildStress:  25 * time.Second,
	models.PhaseCircuitBreak: 0,
	models.PhaseDeleverage:   15 * time.Second,
	models.PhaseStabilize:    20 * time.Second,
	models.PhaseAresGates:    25 * time.Second,
	models.PhaseReentry:      40 * time.Second,
}

var phaseCycle = []models.Phase{
	models.PhaseCalm,
	models.PhaseBuildStress,
	models.PhaseCircuitBreak,
	models.PhaseDeleverage,
	models.PhaseStabilize,
	models.PhaseAresGates,
	models.PhaseReentry,
}

func nextPhase(p models.Phase) models.Phase {
	for i, c := range phaseCycle {
		if c == p {
			return phaseCycle[(i+1)%len(phaseCycle)]
		}
	}
	return models.PhaseCalm
}

// ParsePhase validates an operator-supplied phase name.
func ParsePhase(name string) (models.Phase, error) {
	p := models.Phase(name)
	if _, ok := phaseDwell[p]; !ok {
		return "", fmt.Errorf("unknown phase %q", name)
	}
	return p, nil
}

type phaseHandler func(e *Engine, now time.Time)

var phaseHandlers = map[models.Phase]phaseHandler{
	models.PhaseCalm:         phaseCalm,
	models.PhaseBuildStress:  phaseBuildStress,
	models.PhaseCircuitBreak: phaseCircuitBreak,
	models.PhaseDeleverage:   phaseDeleverage,
	models.PhaseStabilize:    phaseStabilize,
	models.PhaseAresGates:    phaseAresGates,
	models.PhaseReentry:      phaseReentry,
}

func phaseCalm(e *Engine, now time.Time) {
	if e.run == nil {
		// The ambient demo winds fully down between cycles; scripted
		// scenarios keep their gate and approval state to the end.
		e.gates = models.GateStatus{StressNormalization: models.GateWait, Conviction: models.GateWait, Confirmation: models.GateWait}
		e.resetReentry()
	}
	e.setRegime(models.RegimeRiskOn, e.stress)

	e.applyModules(now, []modulePatch{
		{Risk: e.drift(0.18, 0.03), Confidence: e.drift(0.82, 0.02)},
		{Risk: e.drift(0.15, 0.03), Confidence: e.drift(0.76, 0.02)},
		{Risk: e.drift(0.20, 0.03), Confidence: e.drift(0.85, 0.02)},
		{Risk: e.drift(0.17, 0.03), Confidence: e.drift(0.80, 0.02)},
		{Risk: e.drift(0.22, 0.03), Confidence: e.drift(0.71, 0.02)},
		{Risk: e.drift(0.10, 0.03), Confidence: e.drift(0.90, 0.02)},
	})

	e.setPillarSignals(now, "hydra", e.hydraSignals(0.12, 0.10, 0.15))
	e.setPillarSignals(now, "kronos", e.kronosSignals(0.08, 0.30, 0.20))
	e.setPillarSignals(now, "apollo", e.apolloSignals(0.20, 0.25, 0.18, 0.22))
	e.setPillarSignals(now, "athena", e.athenaSignals(0.25, 0.20, 0.28))
	e.setPillarSignals(now, "ares", e.aresSignals(now))

	e.setHeadline(now, "atlas", "Cross-asset stress quiet")
	e.setHeadline(now, "hydra", "Order books deep, spreads tight")
	e.setHeadline(now, "kronos", "Drawdown budget untouched")
	e.setHeadline(now, "apollo", "Trend and macro aligned risk-on")
	e.setHeadline(now, "athena", "Model ensemble constructive")
	e.setHeadline(now, "ares", "No re-entry pending")
	e.setExecution(now, models.PillarOK, "Routing nominal, slippage in band")
}

func phaseBuildStress(e *Engine, now time.Time) {
	e.setRegime(models.RegimeNeutral, e.stress)

	switch e.skew() {
	case skewCrypto:
		e.applyModules(now, []modulePatch{
			{Risk: e.drift(0.48, 0.03), Confidence: e.drift(0.74, 0.02)},
			{Risk: e.drift(0.68, 0.03), Stressed: true, Confidence: e.drift(0.70, 0.02)},
			{Risk: e.drift(0.42, 0.03), Confidence: e.drift(0.80, 0.02)},
			{Risk: e.drift(0.40, 0.03), Confidence: e.drift(0.78, 0.02)},
			{Risk: e.drift(0.44, 0.03), Confidence: e.drift(0.68, 0.02)},
			{Risk: e.drift(0.62, 0.03), Stressed: true, Confidence: e.drift(0.85, 0.02)},
		})
	case skewEquity:
		e.applyModules(now, []modulePatch{
			{Risk: e.drift(0.50, 0.03), Confidence: e.drift(0.74, 0.02)},
			{Risk: e.drift(0.34, 0.03), Confidence: e.drift(0.70, 0.02)},
			{Risk: e.drift(0.64, 0.03), Stressed: true, Confidence: e.drift(0.82, 0.02)},
			{Risk: e.drift(0.58, 0.03), Confidence: e.drift(0.78, 0.02)},
			{Risk: e.drift(0.60, 0.03), Stressed: true, Confidence: e.drift(0.70, 0.02)},
			{Risk: e.drift(0.36, 0.03), Confidence: e.drift(0.86, 0.02)},
		})
	default:
		e.applyModules(now, []modulePatch{
			{Risk: e.drift(0.52, 0.03), Stressed: true, Confidence: e.drift(0.72, 0.02)},
			{Risk: e.drift(0.45, 0.03), Confidence: e.drift(0.70, 0.02)},
			{Risk: e.drift(0.55, 0.03), Stressed: true, Confidence: e.drift(0.80, 0.02)},
			{Risk: e.drift(0.50, 0.03), Confidence: e.drift(0.76, 0.02)},
			{Risk: e.drift(0.52, 0.03), Confidence: e.drift(0.68, 0.02)},
			{Risk: e.drift(0.42, 0.03), Confidence: e.drift(0.84, 0.02)},
		})
	}

	e.setPillarSignals(now, "hydra", e.hydraSignals(0.48, 0.52, 0.55))
	e.setPillarSignals(now, "kronos", e.kronosSignals(0.30, 0.52, 0.40))
	e.setPillarSignals(now, "apollo", e.apolloSignals(0.55, 0.48, 0.58, 0.50))
	e.setPillarSignals(now, "athena", e.athenaSignals(0.48, 0.42, 0.38))
	e.setPillarSignals(now, "ares", e.aresSignals(now))

	e.setHeadline(now, "atlas", "Stress accumulating across modules")
	e.setHeadline(now, "hydra", "Depth thinning, funding pressure building")
	e.setHeadline(now, "kronos", "VaR utilization climbing")
	e.setHeadline(now, "apollo", "Regime drifting toward risk-off")
	e.setHeadline(now, "athena", "Signal agreement deteriorating")
	e.setHeadline(now, "ares", "Gates armed, monitoring")
	e.setExecution(now, models.PillarActive, "Widening limits, passive fills preferred")
}

func phaseCircuitBreak(e *Engine, now time.Time) {
	e.setRegime(models.RegimeCrash, e.stress)

	e.applyModules(now, []modulePatch{
		{Risk: e.drift(0.88, 0.02), Stressed: true, Confidence: e.drift(0.78, 0.02)},
		{Risk: e.drift(0.85, 0.02), Stressed: true, Confidence: e.drift(0.72, 0.02)},
		{Risk: e.drift(0.90, 0.02), Stressed: true, Confidence: e.drift(0.86, 0.02)},
		{Risk: e.drift(0.82, 0.02), Stressed: true, Confidence: e.drift(0.80, 0.02)},
		{Risk: e.drift(0.78, 0.02), Stressed: false, Confidence: e.drift(0.70, 0.02)},
		{Risk: e.drift(0.80, 0.02), Stressed: true, Confidence: e.drift(0.88, 0.02)},
	})

	e.setPillarSignals(now, "hydra", e.hydraSignals(0.88, 0.92, 0.85))
	e.setPillarSignals(now, "kronos", e.kronosSignals(0.75, 0.90, 0.82))
	e.setPillarSignals(now, "apollo", e.apolloSignals(0.85, 0.70, 0.90, 0.80))
	e.setPillarSignals(now, "athena", e.athenaSignals(0.80, 0.72, 0.65))
	e.setPillarSignals(now, "ares", e.aresSignals(now))

	// Alpha generation is halted outright during the break, overriding the
	// sub-signal roll-up.
	e.pillars["athena"].Status = models.PillarSuspended

	e.setHeadline(now, "atlas", "Circuit break: correlated shock in progress")
	e.setHeadline(now, "hydra", "Liquidity evaporating, books one-sided")
	e.setHeadline(now, "kronos", "Hard drawdown stop engaged")
	e.setHeadline(now, "apollo", "Crash regime confirmed")
	e.setHeadline(now, "athena", "Alpha models suspended")
	e.setHeadline(now, "ares", "Re-entry locked until stress normalizes")
	e.setExecution(now, models.PillarDegraded, "Slippage elevated, venues throttling")
}

func phaseDeleverage(e *Engine, now time.Time) {
	e.setRegime(models.RegimeCrash, e.stress)

	switch e.skew() {
	case skewCrypto:
		e.applyModules(now, []modulePatch{
			{Risk: e.drift(0.62, 0.03), Stressed: true, Confidence: e.drift(0.74, 0.02)},
			{Risk: e.drift(0.82, 0.03), Stressed: true, Confidence: e.drift(0.72, 0.02)},
			{Risk: e.drift(0.52, 0.03), Confidence: e.drift(0.80, 0.02)},
			{Risk: e.drift(0.50, 0.03), Confidence: e.drift(0.78, 0.02)},
			{Risk: e.drift(0.54, 0.03), Stressed: true, Confidence: e.drift(0.70, 0.02)},
			{Risk: e.drift(0.76, 0.03), Stressed: true, Confidence: e.drift(0.86, 0.02)},
		})
	case skewEquity:
		e.applyModules(now, []modulePatch{
			{Risk: e.drift(0.60, 0.03), Stressed: true, Confidence: e.drift(0.74, 0.02)},
			{Risk: e.drift(0.44, 0.03), Confidence: e.drift(0.70, 0.02)},
			{Risk: e.drift(0.78, 0.03), Stressed: true, Confidence: e.drift(0.82, 0.02)},
			{Risk: e.drift(0.72, 0.03), Stressed: true, Confidence: e.drift(0.78, 0.02)},
			{Risk: e.drift(0.70, 0.03), Stressed: true, Confidence: e.drift(0.72, 0.02)},
			{Risk: e.drift(0.42, 0.03), Confidence: e.drift(0.86, 0.02)},
		})
	default:
		e.applyModules(now, []modulePatch{
			{Risk: e.drift(0.72, 0.03), Stressed: true, Confidence: e.drift(0.76, 0.02)},
			{Risk: e.drift(0.70, 0.03), Stressed: true, Confidence: e.drift(0.72, 0.02)},
			{Risk: e.drift(0.74, 0.03), Stressed: true, Confidence: e.drift(0.84, 0.02)},
			{Risk: e.drift(0.68, 0.03), Stressed: true, Confidence: e.drift(0.78, 0.02)},
			{Risk: e.drift(0.66, 0.03), Confidence: e.drift(0.70, 0.02)},
			{Risk: e.drift(0.62, 0.03), Confidence: e.drift(0.86, 0.02)},
		})
	}

	e.setPillarSignals(now, "hydra", e.hydraSignals(0.72, 0.75, 0.70))
	e.setPillarSignals(now, "kronos", e.kronosSignals(0.60, 0.78, 0.68))
	e.setPillarSignals(now, "apollo", e.apolloSignals(0.72, 0.60, 0.78, 0.66))
	e.setPillarSignals(now, "athena", e.athenaSignals(0.62, 0.55, 0.50))
	e.setPillarSignals(now, "ares", e.aresSignals(now))

	e.setHeadline(now, "atlas", "Forced deleveraging underway")
	e.setHeadline(now, "hydra", "Selling into thin books, minimizing impact")
	e.setHeadline(now, "kronos", "Cutting gross toward crash ceiling")
	e.setHeadline(now, "apollo", "Risk-off regime entrenched")
	e.setHeadline(now, "athena", "Models in capital-preservation mode")
	e.setHeadline(now, "ares", "Awaiting stress normalization")
	e.setExecution(now, models.PillarActive, "Working sell programs across venues")
}

func phaseStabilize(e *Engine, now time.Time) {
	e.setRegime(models.RegimeDefensive, e.stress)
	e.passGate(now, &e.gates.StressNormalization, "stress normalization")

	switch e.skew() {
	case skewCrypto:
		e.applyModules(now, []modulePatch{
			{Risk: e.drift(0.45, 0.03), Confidence: e.drift(0.76, 0.02)},
			{Risk: e.drift(0.56, 0.03), Stressed: true, Confidence: e.drift(0.72, 0.02)},
			{Risk: e.drift(0.38, 0.03), Confidence: e.drift(0.82, 0.02)},
			{Risk: e.drift(0.36, 0.03), Confidence: e.drift(0.78, 0.02)},
			{Risk: e.drift(0.40, 0.03), Confidence: e.drift(0.70, 0.02)},
			{Risk: e.drift(0.52, 0.03), Confidence: e.drift(0.88, 0.02)},
		})
	case skewEquity:
		e.applyModules(now, []modulePatch{
			{Risk: e.drift(0.44, 0.03), Confidence: e.drift(0.76, 0.02)},
			{Risk: e.drift(0.32, 0.03), Confidence: e.drift(0.72, 0.02)},
			{Risk: e.drift(0.55, 0.03), Stressed: true, Confidence: e.drift(0.82, 0.02)},
			{Risk: e.drift(0.50, 0.03), Confidence: e.drift(0.78, 0.02)},
			{Risk: e.drift(0.48, 0.03), Confidence: e.drift(0.70, 0.02)},
			{Risk: e.drift(0.30, 0.03), Confidence: e.drift(0.88, 0.02)},
		})
	default:
		e.applyModules(now, []modulePatch{
			{Risk: e.drift(0.48, 0.03), Confidence: e.drift(0.76, 0.02)},
			{Risk: e.drift(0.46, 0.03), Stressed: true, Confidence: e.drift(0.72, 0.02)},
			{Risk: e.drift(0.50, 0.03), Stressed: true, Confidence: e.drift(0.82, 0.02)},
			{Risk: e.drift(0.45, 0.03), Confidence: e.drift(0.78, 0.02)},
			{Risk: e.drift(0.44, 0.03), Confidence: e.drift(0.70, 0.02)},
			{Risk: e.drift(0.40, 0.03), Confidence: e.drift(0.88, 0.02)},
		})
	}

	e.setPillarSignals(now, "hydra", e.hydraSignals(0.48, 0.45, 0.50))
	e.setPillarSignals(now, "kronos", e.kronosSignals(0.50, 0.55, 0.45))
	e.setPillarSignals(now, "apollo", e.apolloSignals(0.52, 0.45, 0.55, 0.48))
	e.setPillarSignals(now, "athena", e.athenaSignals(0.45, 0.50, 0.42))
	e.setPillarSignals(now, "ares", e.aresSignals(now))

	e.setHeadline(now, "atlas", "Stress decaying from peak")
	e.setHeadline(now, "hydra", "Books rebuilding, spreads narrowing")
	e.setHeadline(now, "kronos", "Drawdown contained at floor")
	e.setHeadline(now, "apollo", "Early signs of regime repair")
	e.setHeadline(now, "athena", "Re-running models on post-shock data")
	e.setHeadline(now, "ares", "Stress normalization gate evaluating")
	e.setExecution(now, models.PillarActive, "Flows two-sided again")
}

func phaseAresGates(e *Engine, now time.Time) {
	e.setRegime(models.RegimeDefensive, e.stress)
	e.passGate(now, &e.gates.StressNormalization, "stress normalization")
	e.passGate(now, &e.gates.Conviction, "conviction")
	// Confirmation needs sustained repair, not a single clean print.
	if now.Sub(e.phaseSince) >= 10*time.Second {
		e.passGate(now, &e.gates.Confirmation, "confirmation")
	}

	e.applyModules(now, []modulePatch{
		{Risk: e.drift(0.38, 0.03), Confidence: e.drift(0.78, 0.02)},
		{Risk: e.drift(0.34, 0.03), Confidence: e.drift(0.74, 0.02)},
		{Risk: e.drift(0.40, 0.03), Confidence: e.drift(0.84, 0.02)},
		{Risk: e.drift(0.35, 0.03), Confidence: e.drift(0.80, 0.02)},
		{Risk: e.drift(0.37, 0.03), Confidence: e.drift(0.72, 0.02)},
		{Risk: e.drift(0.28, 0.03), Confidence: e.drift(0.90, 0.02)},
	})

	e.setPillarSignals(now, "hydra", e.hydraSignals(0.35, 0.32, 0.38))
	e.setPillarSignals(now, "kronos", e.kronosSignals(0.42, 0.40, 0.35))
	e.setPillarSignals(now, "apollo", e.apolloSignals(0.38, 0.35, 0.42, 0.36))
	e.setPillarSignals(now, "athena", e.athenaSignals(0.60, 0.62, 0.55))
	e.setPillarSignals(now, "ares", e.aresSignals(now))

	e.setHeadline(now, "atlas", "Modules back inside tolerance")
	e.setHeadline(now, "hydra", "Liquidity broadly restored")
	e.setHeadline(now, "kronos", "Budget reset pending re-entry")
	e.setHeadline(now, "apollo", "Regime repair holding")
	e.setHeadline(now, "athena", "Conviction rebuilding in leaders")
	e.setHeadline(now, "ares", "Sequential gates evaluating")
	e.setExecution(now, models.PillarOK, "Normal routing restored")
}

func phaseReentry(e *Engine, now time.Time) {
	e.passGate(now, &e.gates.StressNormalization, "stress normalization")
	e.passGate(now, &e.gates.Conviction, "conviction")
	e.passGate(now, &e.gates.Confirmation, "confirmation")

	tranche := e.noteTrancheProgress(now)
	if tranche == len(trancheCeilings) {
		// Final tranche restores the full risk-on posture.
		e.setRegime(models.RegimeRiskOn, e.stress)
	} else {
		e.setRegime(models.RegimeDefensive, e.stress)
		e.ceiling = clampCeiling(e.reentryCeiling(now))
	}

	e.applyModules(now, []modulePatch{
		{Risk: e.drift(0.28, 0.03), Confidence: e.drift(0.80, 0.02)},
		{Risk: e.drift(0.25, 0.03), Confidence: e.drift(0.76, 0.02)},
		{Risk: e.drift(0.30, 0.03), Confidence: e.drift(0.86, 0.02)},
		{Risk: e.drift(0.26, 0.03), Confidence: e.drift(0.82, 0.02)},
		{Risk: e.drift(0.28, 0.03), Confidence: e.drift(0.74, 0.02)},
		{Risk: e.drift(0.18, 0.03), Confidence: e.drift(0.92, 0.02)},
	})

	e.setPillarSignals(now, "hydra", e.hydraSignals(0.22, 0.20, 0.25))
	e.setPillarSignals(now, "kronos", e.kronosSignals(0.30, 0.32, 0.25))
	e.setPillarSignals(now, "apollo", e.apolloSignals(0.28, 0.25, 0.30, 0.26))
	e.setPillarSignals(now, "athena", e.athenaSignals(0.68, 0.70, 0.62))
	e.setPillarSignals(now, "ares", e.aresSignals(now))

	e.setHeadline(now, "atlas", "Stress fully normalized")
	e.setHeadline(now, "hydra", "Liquidity conditions normal")
	e.setHeadline(now, "kronos", "Budget re-opening by tranche")
	e.setHeadline(now, "apollo", "Constructive regime re-established")
	e.setHeadline(now, "athena", "High-conviction names first")
	if e.reentry.approved {
		e.setHeadline(now, "ares", fmt.Sprintf("Deploying tranche %d of %d", tranche, len(trancheCeilings)))
	} else {
		e.setHeadline(now, "ares", "Holding at re-entry floor, awaiting PM approval")
	}
	e.setExecution(now, models.PillarActive, "Staged buy programs queued")
}

// passGate upgrades WAIT to PASS once and alerts; gates never regress inside a
// scenario.
func (e *Engine) passGate(now time.Time, g *models.GateState, name string) {
	if *g == models.GatePass {
		return
	}
	*g = models.GatePass
	e.pushAlert(now, models.SeverityInfo, fmt.Sprintf("Gate passed: %s", name), "", "ares", "gate")
}

func (e *Engine) hydraSignals(depth, spread, funding float64) []models.PillarSignal {
	return []models.PillarSignal{
		{Name: "bid depth", Value: util.Pct(1 - depth*0.7), Score: e.drift(depth, 0.03), Confidence: e.drift(0.82, 0.02)},
		{Name: "spread widening", Value: util.Bps(0.0004 + spread*0.004), Score: e.drift(spread, 0.03), Confidence: e.drift(0.74, 0.02)},
		{Name: "funding stress", Value: util.Ratio(1 + funding), Score: e.drift(funding, 0.03), Confidence: e.drift(0.68, 0.02)},
	}
}

func (e *Engine) kronosSignals(drawdown, varUtil, stops float64) []models.PillarSignal {
	return []models.PillarSignal{
		{Name: "portfolio drawdown", Value: util.Pct(drawdown * 0.2), Score: e.drift(drawdown, 0.03), Confidence: e.drift(0.90, 0.02)},
		{Name: "var utilization", Value: util.Pct(varUtil), Score: e.drift(varUtil, 0.03), Confidence: e.drift(0.84, 0.02)},
		{Name: "stop distance", Value: util.Pct(0.08 * (1 - stops)), Score: e.drift(stops, 0.03), Confidence: e.drift(0.76, 0.02)},
	}
}

func (e *Engine) apolloSignals(trend, macro, volRegime, breadth float64) []models.PillarSignal {
	return []models.PillarSignal{
		{Name: "trend alignment", Value: util.Pct(1 - trend), Score: e.drift(trend, 0.03), Confidence: e.drift(0.78, 0.02)},
		{Name: "macro calendar", Value: util.Score(macro), Score: e.drift(macro, 0.03), Confidence: e.drift(0.62, 0.02)},
		{Name: "volatility regime", Value: util.Ratio(0.8 + volRegime), Score: e.drift(volRegime, 0.03), Confidence: e.drift(0.80, 0.02)},
		{Name: "breadth thrust", Value: util.Pct(1 - breadth*0.8), Score: e.drift(breadth, 0.03), Confidence: e.drift(0.70, 0.02)},
	}
}

func (e *Engine) athenaSignals(agreement, modelConf, hitRate float64) []models.PillarSignal {
	// Athena scores express conviction shortfall: high agreement means low score.
	return []models.PillarSignal{
		{Name: "signal agreement", Value: util.Pct(1 - agreement*0.6), Score: e.drift(agreement, 0.03), Confidence: e.drift(0.76, 0.02)},
		{Name: "model confidence", Value: util.Score(1 - modelConf*0.5), Score: e.drift(modelConf, 0.03), Confidence: e.drift(0.82, 0.02)},
		{Name: "hit-rate trail", Value: util.Pct(0.62 - hitRate*0.2), Score: e.drift(hitRate, 0.03), Confidence: e.drift(0.66, 0.02)},
	}
}

func (e *Engine) aresSignals(now time.Time) []models.PillarSignal {
	score := func(g models.GateState) float64 {
		switch g {
		case models.GatePass:
			return 0.15
		case models.GateFail:
			return 0.85
		default:
			return 0.55
		}
	}
	tranche := e.trancheAt(now)
	progress := 0.55 - 0.1*float64(tranche)
	return []models.PillarSignal{
		{Name: "stress normalization", Value: string(e.gates.StressNormalization), Score: score(e.gates.StressNormalization), Confidence: 0.90},
		{Name: "conviction gate", Value: string(e.gates.Conviction), Score: score(e.gates.Conviction), Confidence: 0.85},
		{Name: "confirmation gate", Value: string(e.gates.Confirmation), Score: score(e.gates.Confirmation), Confidence: 0.85},
		{Name: "tranche progress", Value: fmt.Sprintf("%d/%d", tranche, len(trancheCeilings)), Score: clamp01(progress), Confidence: 0.95},
	}
}
