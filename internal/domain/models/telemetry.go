package models

import "time"

// Regime is the system-wide risk posture controlling the exposure ceiling.
type Regime string

const (
	RegimeRiskOn    Regime = "RISK_ON"
	RegimeNeutral   Regime = "NEUTRAL"
	RegimeDefensive Regime = "DEFENSIVE"
	RegimeCrash     Regime = "CRASH"
)

// StressSource classifies where elevated risk originates.
type StressSource string

const (
	StressCrypto     StressSource = "CRYPTO"
	StressEquity     StressSource = "EQUITY"
	StressCorrelated StressSource = "CORRELATED"
	StressGeneral    StressSource = "GENERAL"
)

// Phase names the simulation state machine's current state.
type Phase string

const (
	PhaseCalm         Phase = "CALM"
	PhaseBuildStress  Phase = "BUILD_STRESS"
	PhaseCircuitBreak Phase = "CIRCUIT_BREAK"
	PhaseDeleverage   Phase = "DELEVERAGE"
	PhaseStabilize    Phase = "STABILIZE"
	PhaseAresGates    Phase = "ARES_GATES"
	PhaseReentry      Phase = "REENTRY"
)

type PillarStatus string

const (
	PillarOK        PillarStatus = "OK"
	PillarActive    PillarStatus = "ACTIVE"
	PillarSuspended PillarStatus = "SUSPENDED"
	PillarTriggered PillarStatus = "TRIGGERED"
	PillarDegraded  PillarStatus = "DEGRADED"
)

type PillarCategory string

const (
	CategoryDefensive PillarCategory = "defensive"
	CategoryOffensive PillarCategory = "offensive"
	CategoryContext   PillarCategory = "context"
	CategoryExecution PillarCategory = "execution"
)

// SignalLevel is derived from a sub-signal score (0.70 -> RISK, 0.45 -> WATCH).
type SignalLevel string

const (
	LevelOK    SignalLevel = "OK"
	LevelWatch SignalLevel = "WATCH"
	LevelRisk  SignalLevel = "RISK"
)

type GateState string

const (
	GateWait GateState = "WAIT"
	GatePass GateState = "PASS"
	GateFail GateState = "FAIL"
)

// SourceBucket tags a module signal as crypto-, equity-, or cross-asset-driven.
type SourceBucket string

const (
	BucketCrypto SourceBucket = "CRYPTO"
	BucketEquity SourceBucket = "EQUITY"
	BucketMixed  SourceBucket = "MIXED"
)

// ModuleSignal is one of the six fixed stress modules decomposing the atlas pillar.
// Position in the module list is meaningful: it determines the crypto/equity
// bucketing used for stress-source classification.
type ModuleSignal struct {
	Name       string       `json:"name"`
	Risk       float64      `json:"risk"`
	Stressed   bool         `json:"stressed"`
	Confidence float64      `json:"confidence"`
	Bucket     SourceBucket `json:"bucket"`
}

// PillarSignal is a named sub-signal feeding one pillar's roll-up.
type PillarSignal struct {
	Name       string      `json:"name"`
	Value      string      `json:"value"`
	Score      float64     `json:"score"`
	Confidence float64     `json:"confidence"`
	Level      SignalLevel `json:"level"`
}

// PillarSummary is the per-pillar aggregate view. All seven pillars exist from
// engine construction onward; they are mutated every tick, never removed.
type PillarSummary struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Category   PillarCategory `json:"category"`
	Status     PillarStatus   `json:"status"`
	Score      *float64       `json:"score,omitempty"`
	Confidence *float64       `json:"confidence,omitempty"`
	Headline   string         `json:"headline"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// GateStatus tracks the three re-entry gates. Within a scripted scenario a gate
// only progresses WAIT -> PASS, never back.
type GateStatus struct {
	StressNormalization GateState `json:"stress_normalization"`
	Conviction          GateState `json:"conviction"`
	Confirmation        GateState `json:"confirmation"`
}

// ScenarioState describes the active scripted timeline, if any.
type ScenarioState struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Elapsed float64 `json:"elapsed_seconds"`
	Step    int     `json:"step"`
}

// Snapshot is the single externally visible state. It is assembled wholesale
// each tick and replaced atomically; readers never observe a partial update.
type Snapshot struct {
	Timestamp     time.Time                 `json:"timestamp"`
	Scenario      *ScenarioState            `json:"scenario,omitempty"`
	Phase         Phase                     `json:"phase"`
	Regime        Regime                    `json:"regime"`
	Ceiling       float64                   `json:"exposure_ceiling"`
	StressSource  StressSource              `json:"stress_source"`
	Modules       []ModuleSignal            `json:"modules"`
	Gates         GateStatus                `json:"gates"`
	PillarSignals map[string][]PillarSignal `json:"pillar_signals"`
	Portfolio     *PortfolioSnapshot        `json:"portfolio,omitempty"`
	Pillars       map[string]PillarSummary  `json:"pillars"`
	Alerts        []AlertEvent              `json:"alerts"`
}
