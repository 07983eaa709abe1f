package service

import (
	"time"

	"github.com/ledgerline/forecast-backend/internal/domain"
	"github.com/ledgerline/forecast-backend/internal/util"
	"github.com/shopspring/decimal"
)

// PeriodFactory constructs the next sequential tracking period for a
// forecast. It is a pure constructor: it never queries storage, so the
// orchestrator owns the duplicate-window check before persisting.
type PeriodFactory struct {
	resolver *ScheduleResolver
}

// NewPeriodFactory creates a PeriodFactory using the given schedule resolver
func NewPeriodFactory(resolver *ScheduleResolver) *PeriodFactory {
	return &PeriodFactory{resolver: resolver}
}

// NextPeriod builds the period following lastPeriod (or the first period when
// lastPeriod is nil). Returns (nil, nil) once the next window would start at
// or past the forecast's end date.
func (f *PeriodFactory) NextPeriod(forecast *domain.Forecast, lastPeriod *domain.Period) (*domain.Period, error) {
	var start time.Time
	var number int32

	if lastPeriod == nil {
		start = util.TruncateToDay(forecast.StartDate)
		number = 1
	} else {
		start = lastPeriod.EndDate.AddDate(0, 0, 1)
		number = lastPeriod.Number + 1
	}

	if forecast.EndDate != nil && !start.Before(util.TruncateToDay(*forecast.EndDate)) {
		return nil, nil
	}

	end := periodEnd(start, forecast.Frequency)

	expectedDate, err := f.resolver.ResolveExpectedPaymentDate(start, end, forecast.Schedule)
	if err != nil {
		return nil, err
	}

	tolerance := int(forecast.Matching.DateToleranceDays)

	return &domain.Period{
		ForecastID:          forecast.ID,
		WorkspaceID:         forecast.WorkspaceID,
		Number:              number,
		StartDate:           start,
		EndDate:             end,
		ExpectedAmount:      forecast.ExpectedAmount,
		ExpectedPaymentDate: expectedDate,
		WindowStart:         expectedDate.AddDate(0, 0, -tolerance),
		WindowEnd:           expectedDate.AddDate(0, 0, tolerance),
		Matches:             []domain.MatchedRecord{},
		ActualAmount:        decimal.Zero,
		Status:              domain.PeriodStatusPending,
	}, nil
}

// periodEnd returns the inclusive last day of a full calendar unit starting
// at start
func periodEnd(start time.Time, freq domain.Frequency) time.Time {
	switch freq {
	case domain.FrequencyDaily:
		return start
	case domain.FrequencyWeekly:
		return start.AddDate(0, 0, 6)
	case domain.FrequencyQuarterly:
		return start.AddDate(0, 3, 0).AddDate(0, 0, -1)
	case domain.FrequencyYearly:
		return start.AddDate(1, 0, 0).AddDate(0, 0, -1)
	default: // monthly
		return start.AddDate(0, 1, 0).AddDate(0, 0, -1)
	}
}
