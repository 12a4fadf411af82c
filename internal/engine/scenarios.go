package engine

import (
	"sort"
	"time"

	"RiskPulse/internal/domain/models"
)

// stressSkew flavors the module patches a scenario drives, so the same phase
// timeline can tell a crypto-led, equity-led or broad stress story.
type stressSkew int

const (
	skewGeneral stressSkew = iota
	skewCrypto
	skewEquity
)

type breakpoint struct {
	At    time.Duration
	Phase models.Phase
}

// Scenario is a deterministic phase timeline: the active phase is a pure
// function of elapsed time since scenario start.
type Scenario struct {
	ID       string
	Name     string
	Skew     stressSkew
	Timeline []breakpoint
}

// PhaseAt looks the phase up from the ordered breakpoints and returns it with
// the breakpoint index reached.
func (s *Scenario) PhaseAt(elapsed time.Duration) (models.Phase, int) {
	i := sort.Search(len(s.Timeline), func(i int) bool {
		return s.Timeline[i].At > elapsed
	})
	if i == 0 {
		return s.Timeline[0].Phase, 0
	}
	return s.Timeline[i-1].Phase, i - 1
}

func (s *Scenario) HasPhase(p models.Phase) bool {
	for _, bp := range s.Timeline {
		if bp.Phase == p {
			return true
		}
	}
	return false
}

// DefaultScenarioID is the timeline the auto-demo control selects.
const DefaultScenarioID = "flash-crash"

var scenarios = map[string]*Scenario{
	"flash-crash": {
		ID:   "flash-crash",
		Name: "Flash Crash",
		Skew: skewGeneral,
		Timeline: []breakpoint{
			{0, models.PhaseCalm},
			{10 * time.Second, models.PhaseBuildStress},
			{25 * time.Second, models.PhaseCircuitBreak},
			{27 * time.Second, models.PhaseDeleverage},
			{45 * time.Second, models.PhaseStabilize},
			{65 * time.Second, models.PhaseAresGates},
			{90 * time.Second, models.PhaseReentry},
			{150 * time.Second, models.PhaseCalm},
		},
	},
	"crypto-contagion": {
		ID:   "crypto-contagion",
		Name: "Crypto Contagion",
		Skew: skewCrypto,
		Timeline: []breakpoint{
			{0, models.PhaseCalm},
			{15 * time.Second, models.PhaseBuildStress},
			{40 * time.Second, models.PhaseDeleverage},
			{70 * time.Second, models.PhaseStabilize},
			{95 * time.Second, models.PhaseAresGates},
			{120 * time.Second, models.PhaseReentry},
			{180 * time.Second, models.PhaseCalm},
		},
	},
	"grind-down": {
		ID:   "grind-down",
		Name: "Grind Down",
		Skew: skewEquity,
		Timeline: []breakpoint{
			{0, models.PhaseCalm},
			{20 * time.Second, models.PhaseBuildStress},
			{60 * time.Second, models.PhaseDeleverage},
			{110 * time.Second, models.PhaseAresGates},
			{140 * time.Second, models.PhaseReentry},
			{200 * time.Second, models.PhaseCalm},
		},
	},
}

func ScenarioByID(id string) (*Scenario, bool) {
	s, ok := scenarios[id]
	return s, ok
}

func ScenarioIDs() []string {
	ids := make([]string, 0, len(scenarios))
	for id := range scenarios {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
