package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskPulse/internal/domain/models"
)

func position(t *testing.T, p *models.PortfolioSnapshot, ticker string) models.Position {
	t.Helper()
	for _, pos := range p.Positions {
		if pos.Ticker == ticker {
			return pos
		}
	}
	t.Fatalf("position %s not found", ticker)
	return models.Position{}
}

func TestPortfolioCeilingSplit(t *testing.T) {
	e := New(1, t0)
	e.setRegime(models.RegimeRiskOn, models.StressGeneral)
	e.rebuildPortfolio(t0)

	p := e.portfolio
	require.NotNil(t, p)
	assert.Equal(t, 1.0, p.CombinedCeiling)
	assert.Equal(t, 0.20, p.MaxOverlay)

	// Equity and crypto share the ceiling 40:25.
	assert.InDelta(t, 1.0*0.40/0.65, p.CurrentSleeves[models.SleeveEquity], 1e-9)
	assert.InDelta(t, 1.0*0.25/0.65, p.CurrentSleeves[models.SleeveCrypto], 1e-9)

	// Within a sleeve each instrument keeps its share of the sleeve target.
	nvda := position(t, p, "NVDA")
	assert.InDelta(t, (12.0/40.0)*(1.0*0.40/0.65)*100, nvda.CurrentPct, 1e-9)
}

func TestPortfolioStressCutsOnlyInDefensiveAndCrash(t *testing.T) {
	e := New(1, t0)

	// NEUTRAL: source-specific cuts must not apply.
	e.setRegime(models.RegimeNeutral, models.StressCrypto)
	e.rebuildPortfolio(t0)
	assert.InDelta(t, 0.65*0.40/0.65, e.portfolio.CurrentSleeves[models.SleeveEquity], 1e-9)
	assert.InDelta(t, 0.65*0.25/0.65, e.portfolio.CurrentSleeves[models.SleeveCrypto], 1e-9)

	// DEFENSIVE with crypto-led stress: crypto cut 80%, equity 30%.
	e.setRegime(models.RegimeDefensive, models.StressCrypto)
	e.rebuildPortfolio(t0)
	p := e.portfolio
	assert.InDelta(t, (0.38*0.40/0.65)*0.70, p.CurrentSleeves[models.SleeveEquity], 1e-9)
	assert.InDelta(t, (0.38*0.25/0.65)*0.20, p.CurrentSleeves[models.SleeveCrypto], 1e-9)

	// Correlated stress cuts both sleeves hard.
	e.setRegime(models.RegimeCrash, models.StressCorrelated)
	e.rebuildPortfolio(t0)
	p = e.portfolio
	assert.InDelta(t, (0.15*0.40/0.65)*0.15, p.CurrentSleeves[models.SleeveEquity], 1e-9)
	assert.InDelta(t, (0.15*0.25/0.65)*0.15, p.CurrentSleeves[models.SleeveCrypto], 1e-9)
}

func TestPortfolioDefenseSleeveIsStructural(t *testing.T) {
	e := New(1, t0)
	for _, regime := range []models.Regime{models.RegimeRiskOn, models.RegimeDefensive, models.RegimeCrash} {
		e.setRegime(regime, models.StressCorrelated)
		e.rebuildPortfolio(t0)
		assert.InDelta(t, 0.20, e.portfolio.CurrentSleeves[models.SleeveDefense], 1e-9, "regime %s", regime)
		assert.Equal(t, 8.0, position(t, e.portfolio, "GLD").CurrentPct)
		assert.Equal(t, 2.0, position(t, e.portfolio, "TAIL").CurrentPct)
	}
}

func TestPortfolioCashAbsorbsResidual(t *testing.T) {
	e := New(1, t0)
	e.setRegime(models.RegimeCrash, models.StressGeneral)
	e.rebuildPortfolio(t0)
	p := e.portfolio

	allocated := p.CurrentSleeves[models.SleeveEquity] +
		p.CurrentSleeves[models.SleeveCrypto] +
		p.CurrentSleeves[models.SleeveDefense]
	assert.InDelta(t, 1-allocated, p.CurrentSleeves[models.SleeveCash], 1e-9)
	assert.InDelta(t, (1-allocated)*100, position(t, p, "BIL").CurrentPct, 1e-9)

	// Residual never goes negative even when risk sleeves fill the book.
	e.setRegime(models.RegimeRiskOn, models.StressGeneral)
	e.rebuildPortfolio(t0)
	assert.Equal(t, 0.0, e.portfolio.CurrentSleeves[models.SleeveCash])
}

func TestPortfolioTrancheGatingDuringReentry(t *testing.T) {
	e := New(1, t0)
	e.phase = models.PhaseReentry
	e.setRegime(models.RegimeDefensive, models.StressGeneral)

	// Not approved: every tranche-gated position is held at zero.
	e.rebuildPortfolio(t0)
	p := e.portfolio
	require.NotNil(t, p.Reentry)
	assert.False(t, p.Reentry.Approved)
	assert.Equal(t, 0, p.Reentry.Tranche)
	assert.Equal(t, reentryHoldCeiling, p.Reentry.TrancheCeiling)
	for _, ticker := range []string{"NVDA", "MSFT", "GOOGL", "ASML", "XLE", "BTC", "ETH", "SOL"} {
		pos := position(t, p, ticker)
		require.NotNil(t, pos.Eligible, ticker)
		assert.False(t, *pos.Eligible, ticker)
		assert.Equal(t, 0.0, pos.CurrentPct, ticker)
		assert.Contains(t, pos.Reason, "held for tranche")
	}

	// Approved, 25s elapsed: tranche 3 is live, tranche 4 still held.
	e.reentry.approved = true
	e.reentry.approvedAt = t0
	now := t0.Add(25 * time.Second)
	e.rebuildPortfolio(now)
	p = e.portfolio
	assert.Equal(t, 3, p.Reentry.Tranche)
	assert.True(t, *position(t, p, "NVDA").Eligible)
	assert.True(t, *position(t, p, "SOL").Eligible)
	assert.False(t, *position(t, p, "ASML").Eligible)
	assert.Equal(t, 0.0, position(t, p, "ASML").CurrentPct)
	assert.Greater(t, position(t, p, "GOOGL").CurrentPct, 0.0)
}

func TestPortfolioReentryStateOnlyDuringReentryPhase(t *testing.T) {
	e := New(1, t0)
	e.phase = models.PhaseCalm
	e.rebuildPortfolio(t0)
	assert.Nil(t, e.portfolio.Reentry)
	nvda := position(t, e.portfolio, "NVDA")
	assert.Nil(t, nvda.Eligible, "eligibility is a re-entry concept only")
}

func TestPortfolioSortedByCurrentWeight(t *testing.T) {
	e := New(1, t0)
	e.setRegime(models.RegimeDefensive, models.StressEquity)
	e.rebuildPortfolio(t0)
	positions := e.portfolio.Positions
	for i := 1; i < len(positions); i++ {
		assert.GreaterOrEqual(t, positions[i-1].CurrentPct, positions[i].CurrentPct,
			"%s before %s", positions[i-1].Ticker, positions[i].Ticker)
	}
}
