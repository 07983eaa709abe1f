package service

import (
	"errors"
	"testing"
	"time"

	"github.com/ledgerline/forecast-backend/internal/domain"
	"github.com/ledgerline/forecast-backend/internal/util"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestResolver() *ScheduleResolver {
	return NewScheduleResolver(util.NewWeekendCalendar())
}

func TestResolveExpectedPaymentDate_DayOfMonth(t *testing.T) {
	resolver := newTestResolver()

	schedule := domain.PaymentSchedule{
		Kind:       domain.ScheduleDayOfMonth,
		DayOfMonth: 15,
		Fallback:   domain.FallbackExactDate,
	}

	// 2024-01-15 is a Monday, no fallback needed
	got, err := resolver.ResolveExpectedPaymentDate(date(2024, time.January, 1), date(2024, time.January, 31), schedule)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !got.Equal(date(2024, time.January, 15)) {
		t.Errorf("Expected Jan 15, got %v", got)
	}
}

func TestResolveExpectedPaymentDate_DayOfMonthClampsShortMonth(t *testing.T) {
	resolver := newTestResolver()

	schedule := domain.PaymentSchedule{
		Kind:       domain.ScheduleDayOfMonth,
		DayOfMonth: 31,
		Fallback:   domain.FallbackExactDate,
	}

	// Day 31 in February 2024 clamps to Feb 29 (a Thursday)
	got, err := resolver.ResolveExpectedPaymentDate(date(2024, time.February, 1), date(2024, time.February, 29), schedule)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !got.Equal(date(2024, time.February, 29)) {
		t.Errorf("Expected Feb 29, got %v", got)
	}
}

func TestResolveExpectedPaymentDate_FallbackNextBusinessDay(t *testing.T) {
	resolver := newTestResolver()

	schedule := domain.PaymentSchedule{
		Kind:       domain.ScheduleDayOfMonth,
		DayOfMonth: 25,
		Fallback:   domain.FallbackNextBusinessDay,
	}

	// 2023-03-25 is a Saturday; next business day is Monday the 27th
	got, err := resolver.ResolveExpectedPaymentDate(date(2023, time.March, 1), date(2023, time.March, 31), schedule)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !got.Equal(date(2023, time.March, 27)) {
		t.Errorf("Expected Mar 27, got %v", got)
	}
}

func TestResolveExpectedPaymentDate_FallbackPreviousBusinessDay(t *testing.T) {
	resolver := newTestResolver()

	schedule := domain.PaymentSchedule{
		Kind:       domain.ScheduleDayOfMonth,
		DayOfMonth: 25,
		Fallback:   domain.FallbackPreviousBusinessDay,
	}

	// Saturday the 25th shifts back to Friday the 24th
	got, err := resolver.ResolveExpectedPaymentDate(date(2023, time.March, 1), date(2023, time.March, 31), schedule)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !got.Equal(date(2023, time.March, 24)) {
		t.Errorf("Expected Mar 24, got %v", got)
	}
}

func TestResolveExpectedPaymentDate_FallbackExactDateKeepsWeekend(t *testing.T) {
	resolver := newTestResolver()

	schedule := domain.PaymentSchedule{
		Kind:       domain.ScheduleDayOfMonth,
		DayOfMonth: 25,
		Fallback:   domain.FallbackExactDate,
	}

	got, err := resolver.ResolveExpectedPaymentDate(date(2023, time.March, 1), date(2023, time.March, 31), schedule)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !got.Equal(date(2023, time.March, 25)) {
		t.Errorf("Expected Mar 25 kept as-is, got %v", got)
	}
}

func TestResolveExpectedPaymentDate_FixedDate(t *testing.T) {
	resolver := newTestResolver()

	fixed := date(2024, time.June, 14) // a Friday
	schedule := domain.PaymentSchedule{
		Kind:      domain.ScheduleFixedDate,
		FixedDate: &fixed,
		Fallback:  domain.FallbackNextBusinessDay,
	}

	got, err := resolver.ResolveExpectedPaymentDate(date(2024, time.June, 1), date(2024, time.June, 30), schedule)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !got.Equal(fixed) {
		t.Errorf("Expected %v, got %v", fixed, got)
	}
}

func TestResolveExpectedPaymentDate_FixedDateOutOfWindow(t *testing.T) {
	resolver := newTestResolver()

	fixed := date(2024, time.July, 14)
	schedule := domain.PaymentSchedule{
		Kind:      domain.ScheduleFixedDate,
		FixedDate: &fixed,
		Fallback:  domain.FallbackExactDate,
	}

	_, err := resolver.ResolveExpectedPaymentDate(date(2024, time.June, 1), date(2024, time.June, 30), schedule)
	if !errors.Is(err, domain.ErrScheduleDateOutOfWindow) {
		t.Errorf("Expected ErrScheduleDateOutOfWindow, got %v", err)
	}
}

func TestResolveExpectedPaymentDate_FixedDateMissing(t *testing.T) {
	resolver := newTestResolver()

	schedule := domain.PaymentSchedule{
		Kind:     domain.ScheduleFixedDate,
		Fallback: domain.FallbackExactDate,
	}

	_, err := resolver.ResolveExpectedPaymentDate(date(2024, time.June, 1), date(2024, time.June, 30), schedule)
	if !errors.Is(err, domain.ErrInvalidScheduleParam) {
		t.Errorf("Expected ErrInvalidScheduleParam, got %v", err)
	}
}

func TestResolveExpectedPaymentDate_MonthEndOffset(t *testing.T) {
	resolver := newTestResolver()

	schedule := domain.PaymentSchedule{
		Kind:             domain.ScheduleMonthEndOffset,
		WorkingDayOffset: -2,
		Fallback:         domain.FallbackExactDate,
	}

	// May 2024 ends Friday the 31st; two business days back is Wednesday the 29th
	got, err := resolver.ResolveExpectedPaymentDate(date(2024, time.May, 1), date(2024, time.May, 31), schedule)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !got.Equal(date(2024, time.May, 29)) {
		t.Errorf("Expected May 29, got %v", got)
	}
}

func TestResolveExpectedPaymentDate_MonthEndOffsetSkipsWeekend(t *testing.T) {
	resolver := newTestResolver()

	schedule := domain.PaymentSchedule{
		Kind:             domain.ScheduleMonthEndOffset,
		WorkingDayOffset: -1,
		Fallback:         domain.FallbackExactDate,
	}

	// March 2024 ends Sunday the 31st; one business day back is Friday the 29th
	got, err := resolver.ResolveExpectedPaymentDate(date(2024, time.March, 1), date(2024, time.March, 31), schedule)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !got.Equal(date(2024, time.March, 29)) {
		t.Errorf("Expected Mar 29, got %v", got)
	}
}

func TestResolveExpectedPaymentDate_CustomRule(t *testing.T) {
	resolver := newTestResolver()
	resolver.RegisterCustomRule("mid_period", func(periodStart, periodEnd time.Time, rule string) (time.Time, error) {
		return periodStart.AddDate(0, 0, 14), nil
	})

	schedule := domain.PaymentSchedule{
		Kind:       domain.ScheduleCustom,
		CustomRule: "mid_period",
		Fallback:   domain.FallbackExactDate,
	}

	got, err := resolver.ResolveExpectedPaymentDate(date(2024, time.January, 1), date(2024, time.January, 31), schedule)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !got.Equal(date(2024, time.January, 15)) {
		t.Errorf("Expected Jan 15, got %v", got)
	}
}

func TestResolveExpectedPaymentDate_CustomRuleUnregistered(t *testing.T) {
	resolver := newTestResolver()

	schedule := domain.PaymentSchedule{
		Kind:       domain.ScheduleCustom,
		CustomRule: "unknown",
		Fallback:   domain.FallbackExactDate,
	}

	_, err := resolver.ResolveExpectedPaymentDate(date(2024, time.January, 1), date(2024, time.January, 31), schedule)
	if !errors.Is(err, domain.ErrUnsupportedScheduleKind) {
		t.Errorf("Expected ErrUnsupportedScheduleKind, got %v", err)
	}
}

func TestResolveExpectedPaymentDate_UnknownKind(t *testing.T) {
	resolver := newTestResolver()

	schedule := domain.PaymentSchedule{
		Kind:     domain.ScheduleKind("lunar"),
		Fallback: domain.FallbackExactDate,
	}

	_, err := resolver.ResolveExpectedPaymentDate(date(2024, time.January, 1), date(2024, time.January, 31), schedule)
	if !errors.Is(err, domain.ErrUnsupportedScheduleKind) {
		t.Errorf("Expected ErrUnsupportedScheduleKind, got %v", err)
	}
}

func TestResolveExpectedPaymentDate_Deterministic(t *testing.T) {
	resolver := newTestResolver()

	schedule := domain.PaymentSchedule{
		Kind:       domain.ScheduleDayOfMonth,
		DayOfMonth: 25,
		Fallback:   domain.FallbackNextBusinessDay,
	}

	first, err := resolver.ResolveExpectedPaymentDate(date(2023, time.March, 1), date(2023, time.March, 31), schedule)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := resolver.ResolveExpectedPaymentDate(date(2023, time.March, 1), date(2023, time.March, 31), schedule)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !again.Equal(first) {
			t.Fatalf("Expected deterministic result %v, got %v", first, again)
		}
	}
}
