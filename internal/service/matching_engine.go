package service

import (
	"strings"
	"time"

	"github.com/ledgerline/forecast-backend/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	// DefaultMatchThreshold is the minimum confidence for automatic attachment
	DefaultMatchThreshold = 0.5
	// DefaultBaseOffset biases the score toward accepting plausible candidates
	DefaultBaseOffset = 0.3
	// ManualMatchMinConfidence floors stored scores on manual matches
	ManualMatchMinConfidence = 0.8

	dateWeight    = 0.4
	amountWeight  = 0.4
	keywordWeight = 0.1
)

// ScoringConfig parameterizes the confidence formula. The zero value is not
// usable; obtain one from DefaultScoringConfig.
type ScoringConfig struct {
	Threshold  float64
	BaseOffset float64
}

// DefaultScoringConfig returns the canonical scoring parameters
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Threshold:  DefaultMatchThreshold,
		BaseOffset: DefaultBaseOffset,
	}
}

// MatchingEngine scores candidate income records against a period and
// attaches the ones that qualify. The candidate pool must already exclude
// non-income records, foreign categories, records outside the period's
// matching window, and records claimed by any period of the forecast.
type MatchingEngine struct {
	scoring ScoringConfig
}

// NewMatchingEngine creates a MatchingEngine with the given scoring parameters
func NewMatchingEngine(scoring ScoringConfig) *MatchingEngine {
	if scoring.Threshold <= 0 {
		scoring.Threshold = DefaultMatchThreshold
	}
	return &MatchingEngine{scoring: scoring}
}

// Score computes the confidence that record is the true payment for period:
//
//	clamp(base + 0.4*dateTerm + 0.4*amountTerm + 0.1*keywordHits, 0, 1)
//
// dateTerm decays linearly to zero at the tolerance boundary; amountTerm
// decays linearly with the relative amount deviation; each configured
// keyword found in the record's description or tags adds a bonus, clipped
// only by the final clamp.
func (e *MatchingEngine) Score(period *domain.Period, record *domain.IncomeRecord, config domain.MatchingConfig) float64 {
	score := e.scoring.BaseOffset
	score += dateWeight * dateTerm(period, record.Date, config.DateToleranceDays)
	score += amountWeight * amountTerm(period.ExpectedAmount, record.Amount)
	score += keywordWeight * float64(keywordHits(record, config.Keywords))

	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

// Match runs the automatic pass: every candidate whose score clears the
// threshold (and whose amount deviation is within the configured tolerance)
// is appended to the period's matched records. Existing entries are never
// touched. Returns the newly attached records.
func (e *MatchingEngine) Match(period *domain.Period, candidates []*domain.IncomeRecord, config domain.MatchingConfig, now time.Time) []domain.MatchedRecord {
	var attached []domain.MatchedRecord

	for _, record := range candidates {
		if period.HasRecord(record.ID) || record.ClaimedByPeriodID != nil {
			continue
		}
		if !withinAmountTolerance(period.ExpectedAmount, record.Amount, config.AmountTolerance) {
			continue
		}

		score := e.Score(period, record, config)
		if score < e.scoring.Threshold {
			continue
		}

		match := domain.MatchedRecord{
			RecordID:   record.ID,
			RecordDate: record.Date,
			Amount:     record.Amount,
			Confidence: score,
			MatchedAt:  now,
			Manual:     false,
		}
		period.Matches = append(period.Matches, match)
		attached = append(attached, match)
	}

	return attached
}

// MatchOne forces a single record onto the period, bypassing the threshold
// and the amount-tolerance filter. The score is still computed and stored for
// audit, floored at ManualMatchMinConfidence.
func (e *MatchingEngine) MatchOne(period *domain.Period, record *domain.IncomeRecord, config domain.MatchingConfig, now time.Time) domain.MatchedRecord {
	score := e.Score(period, record, config)
	if score < ManualMatchMinConfidence {
		score = ManualMatchMinConfidence
	}

	match := domain.MatchedRecord{
		RecordID:   record.ID,
		RecordDate: record.Date,
		Amount:     record.Amount,
		Confidence: score,
		MatchedAt:  now,
		Manual:     true,
	}
	period.Matches = append(period.Matches, match)
	return match
}

// dateTerm is max(0, 1 - |recordDate - expectedPaymentDate| / tolerance).
// With a zero tolerance the window degenerates to the expected date itself.
func dateTerm(period *domain.Period, recordDate time.Time, toleranceDays int32) float64 {
	distance := daysBetween(period.ExpectedPaymentDate, recordDate)
	if toleranceDays == 0 {
		if distance == 0 {
			return 1
		}
		return 0
	}
	term := 1 - float64(distance)/float64(toleranceDays)
	if term < 0 {
		return 0
	}
	return term
}

// amountTerm is max(0, 1 - |recordAmount - expectedAmount| / expectedAmount)
func amountTerm(expected, actual decimal.Decimal) float64 {
	if expected.IsZero() {
		return 0
	}
	deviation := actual.Sub(expected).Abs().Div(expected)
	term, _ := decimal.NewFromInt(1).Sub(deviation).Float64()
	if term < 0 {
		return 0
	}
	return term
}

// withinAmountTolerance reports whether the relative deviation stays within
// the configured percentage
func withinAmountTolerance(expected, actual decimal.Decimal, tolerancePct decimal.Decimal) bool {
	if expected.IsZero() {
		return actual.IsZero()
	}
	deviation := actual.Sub(expected).Abs().Div(expected).Mul(decimal.NewFromInt(100))
	return deviation.LessThanOrEqual(tolerancePct)
}

// keywordHits counts configured keywords found in the record's description
// or tags, case-insensitively
func keywordHits(record *domain.IncomeRecord, keywords []string) int {
	if len(keywords) == 0 {
		return 0
	}
	description := strings.ToLower(record.Description)
	hits := 0
	for _, kw := range keywords {
		needle := strings.ToLower(strings.TrimSpace(kw))
		if needle == "" {
			continue
		}
		if strings.Contains(description, needle) {
			hits++
			continue
		}
		for _, tag := range record.Tags {
			if strings.Contains(strings.ToLower(tag), needle) {
				hits++
				break
			}
		}
	}
	return hits
}

// daysBetween returns the absolute whole-day distance between two dates
func daysBetween(a, b time.Time) int {
	diff := b.Sub(a)
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}
