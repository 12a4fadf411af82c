package engine

import (
	"fmt"
	"time"

	"RiskPulse/internal/domain/models"
)

// Re-entry is staged: before PM approval the ceiling is held flat; after
// approval elapsed time maps to a tranche, each tranche to a ceiling.
const reentryHoldCeiling = 0.40

var trancheCeilings = [4]float64{0.25, 0.50, 0.75, 1.00}

var trancheBreaks = [3]time.Duration{
	10 * time.Second,
	20 * time.Second,
	30 * time.Second,
}

type reentryState struct {
	approved    bool
	approvedAt  time.Time
	lastTranche int
}

// trancheAt maps elapsed time since approval to a tranche number (1-4).
// Zero means not yet approved. Monotonically non-decreasing for a fixed
// approval time.
func (e *Engine) trancheAt(now time.Time) int {
	if !e.reentry.approved {
		return 0
	}
	elapsed := now.Sub(e.reentry.approvedAt)
	for i, br := range trancheBreaks {
		if elapsed < br {
			return i + 1
		}
	}
	return 4
}

// reentryCeiling is the equity+crypto ceiling in effect during the REENTRY
// phase: the hold ceiling before approval, the tranche ceiling after.
func (e *Engine) reentryCeiling(now time.Time) float64 {
	t := e.trancheAt(now)
	if t == 0 {
		return reentryHoldCeiling
	}
	return trancheCeilings[t-1]
}

// noteTrancheProgress emits one alert per tranche advance.
func (e *Engine) noteTrancheProgress(now time.Time) int {
	t := e.trancheAt(now)
	if t > e.reentry.lastTranche {
		e.reentry.lastTranche = t
		if t == len(trancheCeilings) {
			e.pushAlert(now, models.SeverityWatch, "Re-entry complete",
				fmt.Sprintf("tranche %d reached; restoring RISK_ON at full ceiling", t),
				"ares", "reentry")
		} else {
			e.pushAlert(now, models.SeverityInfo,
				fmt.Sprintf("Tranche %d deploying", t),
				fmt.Sprintf("ceiling raised to %.2f", trancheCeilings[t-1]),
				"ares", "reentry")
		}
	}
	return t
}

func (e *Engine) resetReentry() {
	e.reentry = reentryState{}
}
