package service

import (
	"fmt"
	"time"

	"github.com/ledgerline/forecast-backend/internal/domain"
	"github.com/ledgerline/forecast-backend/internal/util"
)

// CustomScheduleFunc resolves an opaque custom rule string to a payment date
// within the given period window.
type CustomScheduleFunc func(periodStart, periodEnd time.Time, rule string) (time.Time, error)

// ScheduleResolver computes the expected payment date for a period from its
// payment schedule. It is deterministic: identical inputs always produce the
// identical date.
type ScheduleResolver struct {
	calendar domain.BusinessCalendar
	custom   map[string]CustomScheduleFunc
}

// NewScheduleResolver creates a ScheduleResolver using the given business
// calendar for offset counting and fallback shifting
func NewScheduleResolver(calendar domain.BusinessCalendar) *ScheduleResolver {
	return &ScheduleResolver{
		calendar: calendar,
		custom:   make(map[string]CustomScheduleFunc),
	}
}

// RegisterCustomRule registers a handler for custom schedules whose rule
// string equals name. Without a registered handler, custom schedules fail
// with ErrUnsupportedScheduleKind.
func (r *ScheduleResolver) RegisterCustomRule(name string, fn CustomScheduleFunc) {
	r.custom[name] = fn
}

// ResolveExpectedPaymentDate computes the single expected payment date for
// the period [periodStart, periodEnd], then applies the schedule's fallback
// rule when the date lands on a non-business day.
func (r *ScheduleResolver) ResolveExpectedPaymentDate(periodStart, periodEnd time.Time, schedule domain.PaymentSchedule) (time.Time, error) {
	var date time.Time

	switch schedule.Kind {
	case domain.ScheduleDayOfMonth:
		// Day 31 in a shorter month clamps to the month's last valid day
		date = util.CalculateActualDate(periodStart.Year(), periodStart.Month(), int(schedule.DayOfMonth))

	case domain.ScheduleFixedDate:
		if schedule.FixedDate == nil {
			return time.Time{}, domain.ErrInvalidScheduleParam
		}
		date = util.TruncateToDay(*schedule.FixedDate)
		// A pinned date outside the window is a configuration error the
		// orchestrator surfaces, never silently corrected
		if date.Before(periodStart) || date.After(periodEnd) {
			return time.Time{}, domain.ErrScheduleDateOutOfWindow
		}

	case domain.ScheduleMonthEndOffset:
		monthEnd := util.MonthEnd(periodStart)
		date = util.AddBusinessDays(monthEnd, int(schedule.WorkingDayOffset), r.calendar)

	case domain.ScheduleCustom:
		fn, ok := r.custom[schedule.CustomRule]
		if !ok {
			return time.Time{}, fmt.Errorf("custom rule %q: %w", schedule.CustomRule, domain.ErrUnsupportedScheduleKind)
		}
		resolved, err := fn(periodStart, periodEnd, schedule.CustomRule)
		if err != nil {
			return time.Time{}, fmt.Errorf("custom rule %q: %w", schedule.CustomRule, err)
		}
		date = util.TruncateToDay(resolved)

	default:
		return time.Time{}, domain.ErrUnsupportedScheduleKind
	}

	return r.applyFallback(date, schedule.Fallback), nil
}

// applyFallback shifts a non-business date per the schedule's fallback rule
func (r *ScheduleResolver) applyFallback(date time.Time, rule domain.FallbackRule) time.Time {
	if r.calendar.IsBusinessDay(date) {
		return date
	}

	switch rule {
	case domain.FallbackNextBusinessDay:
		return util.NextBusinessDay(date, r.calendar)
	case domain.FallbackPreviousBusinessDay:
		return util.PreviousBusinessDay(date, r.calendar)
	default:
		// FallbackExactDate keeps the computed date unchanged
		return date
	}
}
