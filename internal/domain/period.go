package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PeriodStatus string

const (
	PeriodStatusPending   PeriodStatus = "pending"
	PeriodStatusPartial   PeriodStatus = "partial"
	PeriodStatusCompleted PeriodStatus = "completed"
	PeriodStatusOverdue   PeriodStatus = "overdue"
	PeriodStatusMissed    PeriodStatus = "missed"
)

// MatchedRecord is one income record attributed to a period. Entries are
// append-only; matching a new record never mutates existing entries.
type MatchedRecord struct {
	RecordID   uuid.UUID       `json:"recordId"`
	RecordDate time.Time       `json:"recordDate"`
	Amount     decimal.Decimal `json:"amount"`
	Confidence float64         `json:"confidence"`
	MatchedAt  time.Time       `json:"matchedAt"`
	Manual     bool            `json:"manual"`
}

// Period is one tracked occurrence of a forecast. ExpectedPaymentDate,
// WindowStart and WindowEnd are computed once at creation and never change
// afterwards, so later tolerance edits do not retroactively reshape open
// periods.
type Period struct {
	ID          int32     `json:"id"`
	ForecastID  int32     `json:"forecastId"`
	WorkspaceID int32     `json:"workspaceId"`
	Number      int32     `json:"number"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`

	ExpectedAmount      decimal.Decimal `json:"expectedAmount"`
	ExpectedPaymentDate time.Time       `json:"expectedPaymentDate"`
	WindowStart         time.Time       `json:"windowStart"`
	WindowEnd           time.Time       `json:"windowEnd"`

	Matches []MatchedRecord `json:"matches"`

	// Derived fields, recomputed on every update
	ActualAmount    decimal.Decimal `json:"actualAmount"`
	Status          PeriodStatus    `json:"status"`
	AchievementRate decimal.Decimal `json:"achievementRate"`
	HealthScore     float64         `json:"healthScore"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// HasRecord reports whether the given record is already attributed to this period
func (p *Period) HasRecord(recordID uuid.UUID) bool {
	for _, m := range p.Matches {
		if m.RecordID == recordID {
			return true
		}
	}
	return false
}

// ContainsDate reports whether the date falls within the period's window
func (p *Period) ContainsDate(d time.Time) bool {
	return !d.Before(p.StartDate) && !d.After(p.EndDate)
}

// Overlaps reports whether [start, end] intersects the period's window
func (p *Period) Overlaps(start, end time.Time) bool {
	return !start.After(p.EndDate) && !end.Before(p.StartDate)
}

// ActualPaymentDates returns the transaction dates of all matched records
func (p *Period) ActualPaymentDates() []time.Time {
	dates := make([]time.Time, len(p.Matches))
	for i, m := range p.Matches {
		dates[i] = m.RecordDate
	}
	return dates
}

type PeriodRepository interface {
	Create(p *Period) (*Period, error)
	GetByID(workspaceID int32, id int32) (*Period, error)
	ListByForecast(workspaceID int32, forecastID int32) ([]*Period, error)
	Update(p *Period) (*Period, error)
	SoftDeleteByForecast(workspaceID int32, forecastID int32) error
}
