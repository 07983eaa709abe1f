package domain

import "time"

// BusinessCalendar answers whether a date is a business day. Holiday sets are
// locale-specific, so the calendar is always supplied by the caller.
type BusinessCalendar interface {
	IsBusinessDay(d time.Time) bool
}
