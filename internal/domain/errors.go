package domain

import "errors"

// Configuration errors, rejected at forecast creation time
var (
	ErrNameRequired            = errors.New("name is required")
	ErrNameTooLong             = errors.New("name exceeds maximum length")
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrInvalidFrequency        = errors.New("invalid frequency")
	ErrInvalidScheduleParam    = errors.New("invalid schedule parameter")
	ErrInvalidFallbackRule     = errors.New("invalid fallback rule")
	ErrInvalidAmountTolerance  = errors.New("amount tolerance must be between 0 and 100")
	ErrInvalidDateTolerance    = errors.New("date tolerance must be between 0 and 30 days")
	ErrUnsupportedScheduleKind = errors.New("unsupported schedule kind")
	ErrScheduleDateOutOfWindow = errors.New("fixed schedule date falls outside the period window")
)

// Not-found and state errors
var (
	ErrForecastNotFound = errors.New("forecast not found")
	ErrForecastInactive = errors.New("forecast is inactive")
	ErrPeriodNotFound   = errors.New("period not found")
	ErrRecordNotFound   = errors.New("record not found")
)

// Conflict errors; the caller decides whether to retry with different input
var (
	ErrRecordAlreadyMatched = errors.New("record is already matched to a period")
	ErrRecordNotIncome      = errors.New("record is not an income record")
	ErrCategoryMismatch     = errors.New("record category does not match the forecast category")
	ErrAutoMatchDisabled    = errors.New("automatic matching is disabled for this forecast")
)

// Validation constants
const (
	MaxForecastNameLength = 255
)
