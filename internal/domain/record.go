package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RecordType string

const (
	RecordTypeIncome  RecordType = "income"
	RecordTypeExpense RecordType = "expense"
)

// IncomeRecord is an actual transaction record originating outside the
// engine. ClaimedByPeriodID is the exclusivity back-reference: a claimed
// record is skipped by every future matching pass, for any forecast.
type IncomeRecord struct {
	ID                uuid.UUID       `json:"id"`
	WorkspaceID       int32           `json:"workspaceId"`
	CategoryID        int32           `json:"categoryId"`
	Type              RecordType      `json:"type"`
	Amount            decimal.Decimal `json:"amount"`
	Date              time.Time       `json:"date"`
	Description       string          `json:"description,omitempty"`
	Tags              []string        `json:"tags,omitempty"`
	ClaimedByPeriodID *int32          `json:"claimedByPeriodId,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// CandidateFilter narrows the record pool for one period's matching pass
type CandidateFilter struct {
	WorkspaceID int32
	CategoryID  int32
	From        time.Time
	To          time.Time
	ExcludeIDs  []uuid.UUID
}

type RecordRepository interface {
	GetByID(workspaceID int32, id uuid.UUID) (*IncomeRecord, error)
	// FindCandidates returns unclaimed income records in the category and
	// date range, excluding the given ids
	FindCandidates(filter CandidateFilter) ([]*IncomeRecord, error)
	// Claim sets the exclusivity back-reference; fails if already claimed
	Claim(workspaceID int32, recordID uuid.UUID, periodID int32) error
}
