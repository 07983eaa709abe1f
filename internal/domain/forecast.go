package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// IsValid checks if the frequency is a known value
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

type ScheduleKind string

const (
	// ScheduleDayOfMonth expects payment on a fixed day of the period's month
	ScheduleDayOfMonth ScheduleKind = "day_of_month"
	// ScheduleFixedDate expects payment on one pinned calendar date
	ScheduleFixedDate ScheduleKind = "fixed_date"
	// ScheduleMonthEndOffset expects payment N business days from month end
	ScheduleMonthEndOffset ScheduleKind = "month_end_offset"
	// ScheduleCustom delegates to a registered rule handler
	ScheduleCustom ScheduleKind = "custom"
)

type FallbackRule string

const (
	FallbackNextBusinessDay     FallbackRule = "next_business_day"
	FallbackPreviousBusinessDay FallbackRule = "previous_business_day"
	FallbackExactDate           FallbackRule = "exact_date"
)

// PaymentSchedule describes when a forecast expects its payment within a
// period. Only the field matching Kind is meaningful.
type PaymentSchedule struct {
	Kind             ScheduleKind `json:"kind"`
	DayOfMonth       int32        `json:"dayOfMonth,omitempty"`
	FixedDate        *time.Time   `json:"fixedDate,omitempty"`
	WorkingDayOffset int32        `json:"workingDayOffset,omitempty"`
	CustomRule       string       `json:"customRule,omitempty"`
	Fallback         FallbackRule `json:"fallback"`
}

// Validate checks the kind-specific parameter and the fallback rule
func (s PaymentSchedule) Validate() error {
	switch s.Kind {
	case ScheduleDayOfMonth:
		if s.DayOfMonth < 1 || s.DayOfMonth > 31 {
			return ErrInvalidScheduleParam
		}
	case ScheduleFixedDate:
		if s.FixedDate == nil {
			return ErrInvalidScheduleParam
		}
	case ScheduleMonthEndOffset:
		if s.WorkingDayOffset < -15 || s.WorkingDayOffset > 15 {
			return ErrInvalidScheduleParam
		}
	case ScheduleCustom:
		if s.CustomRule == "" {
			return ErrInvalidScheduleParam
		}
	default:
		return ErrUnsupportedScheduleKind
	}

	switch s.Fallback {
	case FallbackNextBusinessDay, FallbackPreviousBusinessDay, FallbackExactDate:
		return nil
	}
	return ErrInvalidFallbackRule
}

// MatchingConfig holds the tunable tolerances for record matching
type MatchingConfig struct {
	// AmountTolerance is a percentage in [0,100]; automatic matching skips
	// candidates whose amount deviates from the expected amount by more
	AmountTolerance decimal.Decimal `json:"amountTolerance"`
	// DateToleranceDays is the half-width of the matching window in days, [0,30]
	DateToleranceDays int32 `json:"dateToleranceDays"`
	// AutoMatch enables the automatic matching pass for this forecast
	AutoMatch bool `json:"autoMatch"`
	// Keywords boost candidate confidence when found in description or tags
	Keywords []string `json:"keywords,omitempty"`
}

// Validate checks the tolerance ranges
func (m MatchingConfig) Validate() error {
	if m.AmountTolerance.IsNegative() || m.AmountTolerance.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidAmountTolerance
	}
	if m.DateToleranceDays < 0 || m.DateToleranceDays > 30 {
		return ErrInvalidDateTolerance
	}
	return nil
}

// ForecastStats is the rolled-up outcome of a forecast's periods. It is
// always recomputed from a full period scan, never updated incrementally.
type ForecastStats struct {
	TotalPeriods    int32           `json:"totalPeriods"`
	MatchedPeriods  int32           `json:"matchedPeriods"`
	TotalExpected   decimal.Decimal `json:"totalExpected"`
	TotalReceived   decimal.Decimal `json:"totalReceived"`
	AchievementRate decimal.Decimal `json:"achievementRate"`
	LastMatchedAt   *time.Time      `json:"lastMatchedAt,omitempty"`
}

// Forecast is a user's declared expectation of a recurring income
type Forecast struct {
	ID             int32           `json:"id"`
	WorkspaceID    int32           `json:"workspaceId"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	ExpectedAmount decimal.Decimal `json:"expectedAmount"`
	Currency       string          `json:"currency"`
	CategoryID     int32           `json:"categoryId"`
	Frequency      Frequency       `json:"frequency"`
	StartDate      time.Time       `json:"startDate"`
	EndDate        *time.Time      `json:"endDate,omitempty"`
	Schedule       PaymentSchedule `json:"schedule"`
	Matching       MatchingConfig  `json:"matching"`
	Stats          ForecastStats   `json:"stats"`
	IsActive       bool            `json:"isActive"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	DeletedAt      *time.Time      `json:"deletedAt,omitempty"`
}

type ForecastRepository interface {
	Create(f *Forecast) (*Forecast, error)
	GetByID(workspaceID int32, id int32) (*Forecast, error)
	ListByWorkspace(workspaceID int32, activeOnly *bool) ([]*Forecast, error)
	GetAllActive() ([]*Forecast, error)
	Update(f *Forecast) (*Forecast, error)
	Delete(workspaceID int32, id int32) error
}
