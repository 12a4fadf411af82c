package models

// Sleeve is a portfolio bucket with a target and a realized weight.
type Sleeve string

const (
	SleeveEquity  Sleeve = "equity"
	SleeveCrypto  Sleeve = "crypto"
	SleeveDefense Sleeve = "defense"
	SleeveCash    Sleeve = "cash_options"
)

// Position is one instrument's target and realized allocation. Weights are
// expressed in percent of NAV.
type Position struct {
	Ticker     string   `json:"ticker"`
	Sleeve     Sleeve   `json:"sleeve"`
	TargetPct  float64  `json:"target_pct"`
	CurrentPct float64  `json:"current_pct"`
	Conviction *float64 `json:"conviction,omitempty"`
	Eligible   *bool    `json:"eligible,omitempty"`
	Tranche    *int     `json:"tranche,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// ReentryState is the staged re-deployment progress after a risk-off episode.
type ReentryState struct {
	Approved       bool    `json:"approved"`
	Tranche        int     `json:"tranche"`
	TrancheCeiling float64 `json:"tranche_ceiling"`
}

// PortfolioSnapshot is the allocation derived from the active ceiling, stress
// source and re-entry state. Positions are sorted by descending current weight.
type PortfolioSnapshot struct {
	TargetSleeves   map[Sleeve]float64 `json:"target_sleeves"`
	CurrentSleeves  map[Sleeve]float64 `json:"current_sleeves"`
	CombinedCeiling float64            `json:"combined_ceiling"`
	MaxOverlay      float64            `json:"max_overlay"`
	Reentry         *ReentryState      `json:"reentry,omitempty"`
	Positions       []Position         `json:"positions"`
}
