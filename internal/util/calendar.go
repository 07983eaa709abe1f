package util

import (
	"time"

	"github.com/ledgerline/forecast-backend/internal/domain"
)

// WeekendCalendar is the default business calendar: Saturdays, Sundays and
// any explicitly listed holiday are non-business days.
type WeekendCalendar struct {
	holidays map[string]struct{}
}

// NewWeekendCalendar creates a calendar with the given holiday dates
func NewWeekendCalendar(holidays ...time.Time) *WeekendCalendar {
	c := &WeekendCalendar{holidays: make(map[string]struct{}, len(holidays))}
	for _, h := range holidays {
		c.holidays[dateKey(h)] = struct{}{}
	}
	return c
}

// IsBusinessDay implements domain.BusinessCalendar
func (c *WeekendCalendar) IsBusinessDay(d time.Time) bool {
	if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		return false
	}
	_, holiday := c.holidays[dateKey(d)]
	return !holiday
}

func dateKey(d time.Time) string {
	return d.Format("2006-01-02")
}

// IsBusinessDayFn adapts a predicate function to the calendar interface
type IsBusinessDayFn func(time.Time) bool

// IsBusinessDay implements domain.BusinessCalendar
func (f IsBusinessDayFn) IsBusinessDay(d time.Time) bool {
	return f(d)
}

// CalculateActualDate returns the actual date for a target day in a given month,
// handling months with fewer days (e.g., day 31 in February returns Feb 28/29)
func CalculateActualDate(year int, month time.Month, targetDay int) time.Time {
	// Get last day of month by going to day 0 of next month
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()

	actualDay := targetDay
	if actualDay > lastDay {
		actualDay = lastDay
	}

	return time.Date(year, month, actualDay, 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns the last day of the month containing d
func MonthEnd(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// TruncateToDay drops the time-of-day component, keeping UTC dates comparable
func TruncateToDay(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// AddBusinessDays steps n business days from d (backward when n is negative).
// d itself is not counted.
func AddBusinessDays(d time.Time, n int, cal domain.BusinessCalendar) time.Time {
	if n == 0 {
		return d
	}
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	current := d
	for n > 0 {
		current = current.AddDate(0, 0, step)
		if cal.IsBusinessDay(current) {
			n--
		}
	}
	return current
}

// NextBusinessDay returns d if it is a business day, otherwise the next one
func NextBusinessDay(d time.Time, cal domain.BusinessCalendar) time.Time {
	for !cal.IsBusinessDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// PreviousBusinessDay returns d if it is a business day, otherwise the previous one
func PreviousBusinessDay(d time.Time, cal domain.BusinessCalendar) time.Time {
	for !cal.IsBusinessDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
