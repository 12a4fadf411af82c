package engine

import (
	"fmt"
	"sort"
	"time"

	"RiskPulse/internal/domain/models"
)

type instrument struct {
	Ticker     string
	Sleeve     models.Sleeve
	Target     float64 // percent of NAV
	Conviction float64
	Tranche    int // 0 = not tranche-gated
}

// Structural sleeve targets. Equity and crypto share the combined ceiling in
// the 40:25 ratio of their targets; defense is fixed; cash+options absorbs the
// residual.
var sleeveTargets = map[models.Sleeve]float64{
	models.SleeveEquity:  0.40,
	models.SleeveCrypto:  0.25,
	models.SleeveDefense: 0.20,
	models.SleeveCash:    0.15,
}

// Instruments are ranked within their sleeve; targets per sleeve sum to the
// sleeve target.
var instruments = []instrument{
	{"NVDA", models.SleeveEquity, 12, 0.86, 1},
	{"MSFT", models.SleeveEquity, 10, 0.78, 2},
	{"GOOGL", models.SleeveEquity, 8, 0.74, 3},
	{"ASML", models.SleeveEquity, 6, 0.70, 4},
	{"XLE", models.SleeveEquity, 4, 0.60, 4},
	{"BTC", models.SleeveCrypto, 15, 0.82, 1},
	{"ETH", models.SleeveCrypto, 7, 0.75, 2},
	{"SOL", models.SleeveCrypto, 3, 0.64, 3},
	{"GLD", models.SleeveDefense, 8, 0, 0},
	{"TLT", models.SleeveDefense, 6, 0, 0},
	{"DBMF", models.SleeveDefense, 4, 0, 0},
	{"TAIL", models.SleeveDefense, 2, 0, 0},
	{"BIL", models.SleeveCash, 15, 0, 0},
}

type stressCuts struct {
	Crypto float64
	Equity float64
}

// cutTable keys sleeve cuts by stress source. Cuts apply only in DEFENSIVE and
// CRASH regimes; the defense sleeve is always exempt.
var cutTable = map[models.StressSource]stressCuts{
	models.StressCrypto:     {Crypto: 0.80, Equity: 0.30},
	models.StressEquity:     {Crypto: 0.30, Equity: 0.70},
	models.StressCorrelated: {Crypto: 0.85, Equity: 0.85},
	models.StressGeneral:    {Crypto: 0.50, Equity: 0.50},
}

// rebuildPortfolio derives sleeve and per-instrument allocations from the
// ceiling, stress source and re-entry state currently in effect.
func (e *Engine) rebuildPortfolio(now time.Time) {
	combined := e.ceiling
	eqTarget := sleeveTargets[models.SleeveEquity]
	cryTarget := sleeveTargets[models.SleeveCrypto]
	eqBudget := combined * eqTarget / (eqTarget + cryTarget)
	cryBudget := combined * cryTarget / (eqTarget + cryTarget)

	cutsActive := e.regime == models.RegimeDefensive || e.regime == models.RegimeCrash
	cuts := cutTable[e.stress]

	reentryActive := e.phase == models.PhaseReentry
	tranche := e.trancheAt(now)

	positions := make([]models.Position, 0, len(instruments))
	current := map[models.Sleeve]float64{}
	var cashIdx int

	for _, ins := range instruments {
		pos := models.Position{
			Ticker:    ins.Ticker,
			Sleeve:    ins.Sleeve,
			TargetPct: ins.Target,
		}

		switch ins.Sleeve {
		case models.SleeveDefense:
			// Structural: exempt from cuts and tranche gating.
			pos.CurrentPct = ins.Target

		case models.SleeveCash:
			cashIdx = len(positions)

		default:
			budget := eqBudget
			cut := cuts.Equity
			if ins.Sleeve == models.SleeveCrypto {
				budget = cryBudget
				cut = cuts.Crypto
			}
			sleeveSum := sleeveTargets[ins.Sleeve] * 100
			frac := (ins.Target / sleeveSum) * budget
			if cutsActive {
				frac *= 1 - cut
			}

			conv := ins.Conviction
			pos.Conviction = &conv
			if ins.Tranche > 0 {
				tr := ins.Tranche
				pos.Tranche = &tr
			}
			if reentryActive && ins.Tranche > 0 {
				eligible := e.reentry.approved && tranche >= ins.Tranche
				pos.Eligible = &eligible
				if eligible {
					pos.Reason = fmt.Sprintf("tranche %d deployed", ins.Tranche)
				} else {
					frac = 0
					pos.Reason = fmt.Sprintf("held for tranche %d", ins.Tranche)
				}
			}
			pos.CurrentPct = frac * 100
		}

		current[ins.Sleeve] += pos.CurrentPct / 100
		positions = append(positions, pos)
	}

	// Cash+options absorbs whatever is left after equity, crypto and defense.
	residual := 1 - (current[models.SleeveEquity] + current[models.SleeveCrypto] + current[models.SleeveDefense])
	if residual < 0 {
		residual = 0
	}
	positions[cashIdx].CurrentPct = residual * 100
	current[models.SleeveCash] = residual

	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].CurrentPct > positions[j].CurrentPct
	})

	snap := &models.PortfolioSnapshot{
		TargetSleeves:   copySleeves(sleeveTargets),
		CurrentSleeves:  current,
		CombinedCeiling: combined,
		MaxOverlay:      e.overlayAllowance(),
		Positions:       positions,
	}
	if reentryActive {
		snap.Reentry = &models.ReentryState{
			Approved:       e.reentry.approved,
			Tranche:        tranche,
			TrancheCeiling: e.reentryCeiling(now),
		}
	}
	e.portfolio = snap
}

func copySleeves(m map[models.Sleeve]float64) map[models.Sleeve]float64 {
	out := make(map[models.Sleeve]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
