package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFrequency_IsValid(t *testing.T) {
	valid := []Frequency{FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly}
	for _, f := range valid {
		if !f.IsValid() {
			t.Errorf("Expected %s to be valid", f)
		}
	}

	if Frequency("fortnightly").IsValid() {
		t.Error("Expected 'fortnightly' to be invalid")
	}
	if Frequency("").IsValid() {
		t.Error("Expected empty frequency to be invalid")
	}
}

func TestPaymentSchedule_Validate_DayOfMonth(t *testing.T) {
	s := PaymentSchedule{Kind: ScheduleDayOfMonth, DayOfMonth: 25, Fallback: FallbackNextBusinessDay}
	if err := s.Validate(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	s.DayOfMonth = 0
	if err := s.Validate(); !errors.Is(err, ErrInvalidScheduleParam) {
		t.Errorf("Expected ErrInvalidScheduleParam, got %v", err)
	}

	s.DayOfMonth = 32
	if err := s.Validate(); !errors.Is(err, ErrInvalidScheduleParam) {
		t.Errorf("Expected ErrInvalidScheduleParam, got %v", err)
	}
}

func TestPaymentSchedule_Validate_FixedDate(t *testing.T) {
	d := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	s := PaymentSchedule{Kind: ScheduleFixedDate, FixedDate: &d, Fallback: FallbackExactDate}
	if err := s.Validate(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	s.FixedDate = nil
	if err := s.Validate(); !errors.Is(err, ErrInvalidScheduleParam) {
		t.Errorf("Expected ErrInvalidScheduleParam, got %v", err)
	}
}

func TestPaymentSchedule_Validate_MonthEndOffset(t *testing.T) {
	s := PaymentSchedule{Kind: ScheduleMonthEndOffset, WorkingDayOffset: -2, Fallback: FallbackPreviousBusinessDay}
	if err := s.Validate(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	s.WorkingDayOffset = 16
	if err := s.Validate(); !errors.Is(err, ErrInvalidScheduleParam) {
		t.Errorf("Expected ErrInvalidScheduleParam, got %v", err)
	}

	s.WorkingDayOffset = -16
	if err := s.Validate(); !errors.Is(err, ErrInvalidScheduleParam) {
		t.Errorf("Expected ErrInvalidScheduleParam, got %v", err)
	}
}

func TestPaymentSchedule_Validate_Custom(t *testing.T) {
	s := PaymentSchedule{Kind: ScheduleCustom, CustomRule: "second_tuesday", Fallback: FallbackNextBusinessDay}
	if err := s.Validate(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	s.CustomRule = ""
	if err := s.Validate(); !errors.Is(err, ErrInvalidScheduleParam) {
		t.Errorf("Expected ErrInvalidScheduleParam, got %v", err)
	}
}

func TestPaymentSchedule_Validate_UnknownKind(t *testing.T) {
	s := PaymentSchedule{Kind: ScheduleKind("lunar"), Fallback: FallbackExactDate}
	if err := s.Validate(); !errors.Is(err, ErrUnsupportedScheduleKind) {
		t.Errorf("Expected ErrUnsupportedScheduleKind, got %v", err)
	}
}

func TestPaymentSchedule_Validate_Fallback(t *testing.T) {
	s := PaymentSchedule{Kind: ScheduleDayOfMonth, DayOfMonth: 1, Fallback: FallbackRule("skip")}
	if err := s.Validate(); !errors.Is(err, ErrInvalidFallbackRule) {
		t.Errorf("Expected ErrInvalidFallbackRule, got %v", err)
	}
}

func TestMatchingConfig_Validate(t *testing.T) {
	c := MatchingConfig{AmountTolerance: decimal.NewFromInt(5), DateToleranceDays: 3}
	if err := c.Validate(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Zero tolerances are legal: exact amount, exact date
	c = MatchingConfig{AmountTolerance: decimal.Zero, DateToleranceDays: 0}
	if err := c.Validate(); err != nil {
		t.Fatalf("Expected no error for zero tolerances, got %v", err)
	}

	c = MatchingConfig{AmountTolerance: decimal.NewFromInt(-1), DateToleranceDays: 3}
	if err := c.Validate(); !errors.Is(err, ErrInvalidAmountTolerance) {
		t.Errorf("Expected ErrInvalidAmountTolerance, got %v", err)
	}

	c = MatchingConfig{AmountTolerance: decimal.NewFromInt(101), DateToleranceDays: 3}
	if err := c.Validate(); !errors.Is(err, ErrInvalidAmountTolerance) {
		t.Errorf("Expected ErrInvalidAmountTolerance, got %v", err)
	}

	c = MatchingConfig{AmountTolerance: decimal.NewFromInt(5), DateToleranceDays: 31}
	if err := c.Validate(); !errors.Is(err, ErrInvalidDateTolerance) {
		t.Errorf("Expected ErrInvalidDateTolerance, got %v", err)
	}

	c = MatchingConfig{AmountTolerance: decimal.NewFromInt(5), DateToleranceDays: -1}
	if err := c.Validate(); !errors.Is(err, ErrInvalidDateTolerance) {
		t.Errorf("Expected ErrInvalidDateTolerance, got %v", err)
	}
}
