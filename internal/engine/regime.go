package engine

import "RiskPulse/internal/domain/models"

// regimeSpec maps a regime to its nominal exposure ceiling and the maximum
// synthetic-overlay allowance. The ceiling may exceed 1.0 because RISK_ON
// permits overlay exposure beyond 100% gross.
type regimeSpec struct {
	Ceiling float64
	Overlay float64
}

var regimeTable = map[models.Regime]regimeSpec{
	models.RegimeRiskOn:    {Ceiling: 1.00, Overlay: 0.20},
	models.RegimeNeutral:   {Ceiling: 0.65, Overlay: 0.10},
	models.RegimeDefensive: {Ceiling: 0.38, Overlay: 0},
	models.RegimeCrash:     {Ceiling: 0.15, Overlay: 0},
}

const ceilingMax = 1.2

// setRegime writes regime, ceiling and stress source as one operation; a
// snapshot can never carry a regime without its matching ceiling.
func (e *Engine) setRegime(r models.Regime, src models.StressSource) {
	spec := regimeTable[r]
	e.regime = r
	e.ceiling = clampCeiling(spec.Ceiling)
	e.stress = src
}

func (e *Engine) overlayAllowance() float64 {
	return regimeTable[e.regime].Overlay
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampCeiling(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > ceilingMax {
		return ceilingMax
	}
	return v
}
