package service

import (
	"time"

	"github.com/ledgerline/forecast-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// PeriodStatusMachine derives a period's lifecycle state and health from its
// matched totals and the current date. Every call recomputes from scratch;
// nothing is advanced incrementally.
type PeriodStatusMachine struct{}

// NewPeriodStatusMachine creates a PeriodStatusMachine
func NewPeriodStatusMachine() *PeriodStatusMachine {
	return &PeriodStatusMachine{}
}

// Recalculate refreshes the period's derived fields: actual amount,
// achievement rate, status and health score
func (m *PeriodStatusMachine) Recalculate(period *domain.Period, now time.Time) {
	actual := decimal.Zero
	for _, match := range period.Matches {
		actual = actual.Add(match.Amount)
	}
	period.ActualAmount = actual
	period.AchievementRate = achievementRate(actual, period.ExpectedAmount)
	period.Status = m.status(period, now)
	period.HealthScore = m.healthScore(period)
}

// status evaluates the transition rules in order
func (m *PeriodStatusMachine) status(period *domain.Period, now time.Time) domain.PeriodStatus {
	switch {
	case period.ActualAmount.IsZero() && now.Before(period.WindowEnd):
		return domain.PeriodStatusPending
	case period.ActualAmount.IsZero():
		return domain.PeriodStatusMissed
	// Over-collection still counts as completed, regardless of date
	case period.ActualAmount.GreaterThanOrEqual(period.ExpectedAmount):
		return domain.PeriodStatusCompleted
	case now.Before(period.EndDate):
		return domain.PeriodStatusPartial
	default:
		return domain.PeriodStatusOverdue
	}
}

// healthScore maps achievement and timeliness onto [0,100]:
//
//	health = 80*min(rate, 1) + 20*timeliness
//
// where timeliness is the amount-weighted mean of each match's date term.
// The curve is continuous in the achievement rate; completed periods score
// at least 80 and missed periods score 0.
func (m *PeriodStatusMachine) healthScore(period *domain.Period) float64 {
	rate, _ := period.AchievementRate.Float64()
	if rate > 1 {
		rate = 1
	}

	timeliness := 0.0
	if total := period.ActualAmount; total.IsPositive() {
		for _, match := range period.Matches {
			weight, _ := match.Amount.Div(total).Float64()
			timeliness += weight * matchDateTerm(period, match)
		}
	}

	score := 80*rate + 20*timeliness
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// matchDateTerm reuses the matching decay for timeliness: a payment on the
// expected date scores 1, decaying to 0 at the window boundary
func matchDateTerm(period *domain.Period, match domain.MatchedRecord) float64 {
	tolerance := daysBetween(period.ExpectedPaymentDate, period.WindowEnd)
	distance := daysBetween(period.ExpectedPaymentDate, match.RecordDate)
	if tolerance == 0 {
		if distance == 0 {
			return 1
		}
		return 0
	}
	term := 1 - float64(distance)/float64(tolerance)
	if term < 0 {
		return 0
	}
	return term
}

// achievementRate is actual/expected, not capped: over-collection exceeds 1
func achievementRate(actual, expected decimal.Decimal) decimal.Decimal {
	if expected.IsZero() {
		return decimal.Zero
	}
	return actual.Div(expected).Round(4)
}
