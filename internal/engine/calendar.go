package engine

import "time"

// Day truncates t to midnight UTC of its calendar date
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b (negative when b is before a)
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// Calendar is a contiguous, gap-free run of calendar days [Start, End]
type Calendar struct {
	Start time.Time
	End   time.Time
}

// NewCalendar builds a calendar covering every day between start and end inclusive
func NewCalendar(start, end time.Time) Calendar {
	return Calendar{Start: Day(start), End: Day(end)}
}

// Len returns the number of days in the calendar, zero when End is before Start
func (c Calendar) Len() int {
	if c.End.Before(c.Start) {
		return 0
	}
	return DaysBetween(c.Start, c.End) + 1
}

// Date returns the i-th day of the calendar
func (c Calendar) Date(i int) time.Time {
	return c.Start.AddDate(0, 0, i)
}

// Index returns the position of d in the calendar. Days before Start clamp to
// 0; ok is false when d falls after End.
func (c Calendar) Index(d time.Time) (idx int, ok bool) {
	idx = DaysBetween(c.Start, d)
	if idx < 0 {
		return 0, true
	}
	if idx >= c.Len() {
		return idx, false
	}
	return idx, true
}

// Trim keeps at most maxDays trailing days of the calendar
func (c Calendar) Trim(maxDays int) Calendar {
	if maxDays <= 0 || c.Len() <= maxDays {
		return c
	}
	return Calendar{Start: c.End.AddDate(0, 0, -(maxDays - 1)), End: c.End}
}
