package engine

import (
	"fmt"
	"math"
	"time"

	"RiskPulse/internal/domain/models"
)

const (
	moduleCount         = 6
	moduleRiskThreshold = 0.65
	crashStressCount    = 3
	crashCeiling        = 0.15
	// stressWeight up-weights a stressed module's contribution to the
	// composite score before normalization.
	stressWeight = 1.5
)

// Module order is fixed; the crypto/equity index subsets drive stress-source
// classification.
var baselineModules = []models.ModuleSignal{
	{Name: "cross-asset correlation", Bucket: models.BucketMixed, Risk: 0.18, Confidence: 0.80},
	{Name: "crypto momentum break", Bucket: models.BucketCrypto, Risk: 0.15, Confidence: 0.75},
	{Name: "equity vol surface", Bucket: models.BucketEquity, Risk: 0.20, Confidence: 0.85},
	{Name: "equity breadth", Bucket: models.BucketEquity, Risk: 0.17, Confidence: 0.80},
	{Name: "factor crowding", Bucket: models.BucketEquity, Risk: 0.22, Confidence: 0.70},
	{Name: "stablecoin depeg", Bucket: models.BucketCrypto, Risk: 0.10, Confidence: 0.90},
}

var (
	cryptoModuleIdx = []int{1, 5}
	equityModuleIdx = []int{2, 3, 4}
)

// modulePatch carries the per-index fields a phase rewrites each tick. Name
// and bucket are positional and never change.
type modulePatch struct {
	Risk       float64
	Stressed   bool
	Confidence float64
}

// applyModules merges a patch index-for-index. A patch shorter than the module
// list leaves the remaining indices untouched. Stress flag toggles and risk
// threshold crossings each emit their own alert, then the stress source is
// re-classified.
func (e *Engine) applyModules(now time.Time, patch []modulePatch) {
	for i, p := range patch {
		if i >= len(e.modules) {
			break
		}
		prev := e.modules[i]
		next := prev
		next.Risk = clamp01(p.Risk)
		next.Stressed = p.Stressed
		next.Confidence = clamp01(p.Confidence)
		e.modules[i] = next

		if next.Stressed != prev.Stressed {
			sev := models.SeverityInfo
			title := fmt.Sprintf("Stress flag cleared: %s", next.Name)
			if next.Stressed {
				sev = models.SeverityWatch
				title = fmt.Sprintf("Stress flag set: %s", next.Name)
			}
			e.pushAlert(now, sev, title,
				fmt.Sprintf("risk %.2f, confidence %.2f, bucket %s", next.Risk, next.Confidence, next.Bucket),
				modulePillarID, "module")
		}

		wasHigh := prev.Risk >= moduleRiskThreshold
		isHigh := next.Risk >= moduleRiskThreshold
		if wasHigh != isHigh {
			if isHigh {
				e.pushAlert(now, models.SeverityCritical,
					fmt.Sprintf("Module risk elevated: %s", next.Name),
					fmt.Sprintf("risk %.2f crossed %.2f", next.Risk, moduleRiskThreshold),
					modulePillarID, "module")
			} else {
				e.pushAlert(now, models.SeverityInfo,
					fmt.Sprintf("Module risk normalized: %s", next.Name),
					fmt.Sprintf("risk %.2f back below %.2f", next.Risk, moduleRiskThreshold),
					modulePillarID, "module")
			}
		}
	}

	e.classifyStress(now)
}

func (e *Engine) meanRisk(idx []int) float64 {
	var sum float64
	for _, i := range idx {
		sum += e.modules[i].Risk
	}
	return sum / float64(len(idx))
}

func (e *Engine) classifyStress(now time.Time) {
	cryptoAvg := e.meanRisk(cryptoModuleIdx)
	equityAvg := e.meanRisk(equityModuleIdx)

	var src models.StressSource
	switch {
	case cryptoAvg > 0.5 && equityAvg > 0.5 && math.Abs(cryptoAvg-equityAvg) <= 0.15:
		src = models.StressCorrelated
	case cryptoAvg-equityAvg > 0.15:
		src = models.StressCrypto
	case equityAvg-cryptoAvg > 0.15:
		src = models.StressEquity
	default:
		src = models.StressGeneral
	}

	if src != e.stress {
		e.pushAlert(now, models.SeverityWatch, "Stress source shifted",
			fmt.Sprintf("%s -> %s (crypto avg %.2f, equity avg %.2f)", e.stress, src, cryptoAvg, equityAvg),
			modulePillarID, "stress-source")
		e.stress = src
	}
}

func (e *Engine) stressedCount() int {
	n := 0
	for _, m := range e.modules {
		if m.Stressed {
			n++
		}
	}
	return n
}

// crashOverride runs after the phase's own regime assignment so it can only
// tighten the requested regime and ceiling, never loosen them.
func (e *Engine) crashOverride(now time.Time) {
	n := e.stressedCount()
	if n < crashStressCount {
		return
	}
	changed := e.regime != models.RegimeCrash || e.ceiling > crashCeiling
	e.regime = models.RegimeCrash
	if e.ceiling > crashCeiling {
		e.ceiling = crashCeiling
	}
	if changed {
		e.pushAlert(now, models.SeverityCritical, "Crash override engaged",
			fmt.Sprintf("%d of %d modules stressed; ceiling clamped to %.2f", n, len(e.modules), e.ceiling),
			modulePillarID, "crash-override")
	}
}

// recomputeComposite rolls the module list up into the atlas pillar: score is
// the confidence-weighted mean of risks with stressed modules up-weighted,
// confidence the unweighted mean of module confidences.
func (e *Engine) recomputeComposite(now time.Time) {
	var num, den, confSum float64
	for _, m := range e.modules {
		w := m.Confidence
		if m.Stressed {
			w *= stressWeight
		}
		num += m.Risk * w
		den += w
		confSum += m.Confidence
	}
	score := clamp01(num / nonZero(den))
	conf := clamp01(confSum / float64(len(e.modules)))

	p := e.pillars[modulePillarID]
	p.Score = &score
	p.Confidence = &conf
	p.UpdatedAt = now
}
