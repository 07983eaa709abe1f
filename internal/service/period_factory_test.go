package service

import (
	"testing"
	"time"

	"github.com/ledgerline/forecast-backend/internal/domain"
	"github.com/shopspring/decimal"
)

func newTestFactory() *PeriodFactory {
	return NewPeriodFactory(newTestResolver())
}

func monthlyForecast() *domain.Forecast {
	return &domain.Forecast{
		ID:             1,
		WorkspaceID:    1,
		Name:           "Salary",
		ExpectedAmount: decimal.NewFromInt(50000),
		CategoryID:     10,
		Frequency:      domain.FrequencyMonthly,
		StartDate:      date(2024, time.January, 1),
		Schedule: domain.PaymentSchedule{
			Kind:       domain.ScheduleDayOfMonth,
			DayOfMonth: 25,
			Fallback:   domain.FallbackNextBusinessDay,
		},
		Matching: domain.MatchingConfig{
			AmountTolerance:   decimal.NewFromInt(5),
			DateToleranceDays: 3,
			AutoMatch:         true,
		},
		IsActive: true,
	}
}

func TestNextPeriod_First(t *testing.T) {
	factory := newTestFactory()
	forecast := monthlyForecast()

	period, err := factory.NextPeriod(forecast, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if period == nil {
		t.Fatal("Expected a period, got nil")
	}

	if period.Number != 1 {
		t.Errorf("Expected number 1, got %d", period.Number)
	}
	if !period.StartDate.Equal(date(2024, time.January, 1)) {
		t.Errorf("Expected start Jan 1, got %v", period.StartDate)
	}
	if !period.EndDate.Equal(date(2024, time.January, 31)) {
		t.Errorf("Expected end Jan 31, got %v", period.EndDate)
	}
	// 2024-01-25 is a Thursday
	if !period.ExpectedPaymentDate.Equal(date(2024, time.January, 25)) {
		t.Errorf("Expected payment date Jan 25, got %v", period.ExpectedPaymentDate)
	}
	if !period.WindowStart.Equal(date(2024, time.January, 22)) {
		t.Errorf("Expected window start Jan 22, got %v", period.WindowStart)
	}
	if !period.WindowEnd.Equal(date(2024, time.January, 28)) {
		t.Errorf("Expected window end Jan 28, got %v", period.WindowEnd)
	}
	if !period.ExpectedAmount.Equal(forecast.ExpectedAmount) {
		t.Errorf("Expected amount %s, got %s", forecast.ExpectedAmount, period.ExpectedAmount)
	}
	if period.Status != domain.PeriodStatusPending {
		t.Errorf("Expected status pending, got %s", period.Status)
	}
	if !period.ActualAmount.IsZero() {
		t.Errorf("Expected zero actual amount, got %s", period.ActualAmount)
	}
}

func TestNextPeriod_Sequence(t *testing.T) {
	factory := newTestFactory()
	forecast := monthlyForecast()

	first, err := factory.NextPeriod(forecast, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	second, err := factory.NextPeriod(forecast, first)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if second.Number != 2 {
		t.Errorf("Expected number 2, got %d", second.Number)
	}
	if !second.StartDate.Equal(date(2024, time.February, 1)) {
		t.Errorf("Expected start Feb 1, got %v", second.StartDate)
	}
	if !second.EndDate.Equal(date(2024, time.February, 29)) {
		t.Errorf("Expected end Feb 29, got %v", second.EndDate)
	}
	// Consecutive windows never overlap and leave no gap
	if !second.StartDate.Equal(first.EndDate.AddDate(0, 0, 1)) {
		t.Error("Expected second period to start the day after the first ends")
	}
}

func TestNextPeriod_EndDateReached(t *testing.T) {
	factory := newTestFactory()
	forecast := monthlyForecast()
	endDate := date(2024, time.February, 1)
	forecast.EndDate = &endDate

	first, err := factory.NextPeriod(forecast, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if first == nil {
		t.Fatal("Expected first period before the end date")
	}

	second, err := factory.NextPeriod(forecast, first)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if second != nil {
		t.Errorf("Expected nil past the end date, got period %d", second.Number)
	}
}

func TestNextPeriod_Frequencies(t *testing.T) {
	factory := newTestFactory()

	tests := []struct {
		frequency domain.Frequency
		end       time.Time
	}{
		{domain.FrequencyDaily, date(2024, time.January, 1)},
		{domain.FrequencyWeekly, date(2024, time.January, 7)},
		{domain.FrequencyMonthly, date(2024, time.January, 31)},
		{domain.FrequencyQuarterly, date(2024, time.March, 31)},
		{domain.FrequencyYearly, date(2024, time.December, 31)},
	}

	for _, tt := range tests {
		forecast := monthlyForecast()
		forecast.Frequency = tt.frequency
		forecast.Schedule = domain.PaymentSchedule{
			Kind:       domain.ScheduleDayOfMonth,
			DayOfMonth: 1,
			Fallback:   domain.FallbackExactDate,
		}

		period, err := factory.NextPeriod(forecast, nil)
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", tt.frequency, err)
		}
		if !period.EndDate.Equal(tt.end) {
			t.Errorf("%s: expected end %v, got %v", tt.frequency, tt.end, period.EndDate)
		}
	}
}

func TestNextPeriod_ZeroDateTolerance(t *testing.T) {
	factory := newTestFactory()
	forecast := monthlyForecast()
	forecast.Matching.DateToleranceDays = 0

	period, err := factory.NextPeriod(forecast, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Window degenerates to the expected date itself
	if !period.WindowStart.Equal(period.ExpectedPaymentDate) || !period.WindowEnd.Equal(period.ExpectedPaymentDate) {
		t.Errorf("Expected degenerate window at %v, got [%v, %v]",
			period.ExpectedPaymentDate, period.WindowStart, period.WindowEnd)
	}
}

func TestNextPeriod_ResolverErrorPropagates(t *testing.T) {
	factory := newTestFactory()
	forecast := monthlyForecast()
	fixed := date(2025, time.June, 15)
	forecast.Schedule = domain.PaymentSchedule{
		Kind:      domain.ScheduleFixedDate,
		FixedDate: &fixed,
		Fallback:  domain.FallbackExactDate,
	}

	_, err := factory.NextPeriod(forecast, nil)
	if err == nil {
		t.Fatal("Expected error for fixed date outside the period window")
	}
}
