package service

import (
	"time"

	"github.com/ledgerline/forecast-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// StatisticsAggregator rolls period outcomes up onto the forecast. It always
// recomputes from a full period scan: incremental counters drift under
// manual edits, re-matching and period regeneration.
type StatisticsAggregator struct{}

// NewStatisticsAggregator creates a StatisticsAggregator
func NewStatisticsAggregator() *StatisticsAggregator {
	return &StatisticsAggregator{}
}

// Recompute replaces the forecast's stats block from the given periods.
// Soft-deleted periods are ignored.
func (a *StatisticsAggregator) Recompute(forecast *domain.Forecast, periods []*domain.Period) {
	stats := domain.ForecastStats{
		TotalExpected: decimal.Zero,
		TotalReceived: decimal.Zero,
	}

	var lastMatched *time.Time
	for _, period := range periods {
		if period.DeletedAt != nil {
			continue
		}
		stats.TotalPeriods++
		stats.TotalExpected = stats.TotalExpected.Add(period.ExpectedAmount)
		stats.TotalReceived = stats.TotalReceived.Add(period.ActualAmount)

		if len(period.Matches) > 0 {
			stats.MatchedPeriods++
		}
		for _, match := range period.Matches {
			if lastMatched == nil || match.MatchedAt.After(*lastMatched) {
				t := match.MatchedAt
				lastMatched = &t
			}
		}
	}

	if stats.TotalExpected.IsPositive() {
		stats.AchievementRate = stats.TotalReceived.Div(stats.TotalExpected).Round(4)
	} else {
		stats.AchievementRate = decimal.Zero
	}
	stats.LastMatchedAt = lastMatched

	forecast.Stats = stats
}
