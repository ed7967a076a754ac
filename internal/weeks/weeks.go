// Package weeks holds the Monday-aligned calendar rules shared by row
// inclusion and initial-value recording.
package weeks

import (
	"time"
)

// DateLayout is the ISO date layout used for week keys.
const DateLayout = "2006-01-02"

// MondayOf returns local midnight of the Monday starting t's week.
func MondayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return day.AddDate(0, 0, -offset)
}

// Start formats the week start for t.
func Start(t time.Time) string {
	return MondayOf(t).Format(DateLayout)
}

// End formats the Sunday closing t's week.
func End(t time.Time) string {
	return MondayOf(t).AddDate(0, 0, 6).Format(DateLayout)
}

// ParseDate parses an ISO date (optionally with a time part) in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if len(s) > len(DateLayout) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.In(loc), nil
		}
		s = s[:len(DateLayout)]
	}
	return time.ParseInLocation(DateLayout, s, loc)
}

// Window captures "today" for one run: which weeks are complete and whether
// the most recently completed week has settled.
type Window struct {
	Now           time.Time
	CurrentMonday time.Time
	LastMonday    time.Time

	// IncludeLastWeek admits rows of the last completed week.
	IncludeLastWeek bool
	// LastWeekSettled is the weekday rule alone: false only on Mondays.
	LastWeekSettled bool
}

// NewWindow builds the window for now. A nil override applies the default
// weekday rule (the last completed week is excluded only on Mondays).
func NewWindow(now time.Time, includeLastWeek *bool) Window {
	cur := MondayOf(now)
	settled := now.Weekday() != time.Monday
	include := settled
	if includeLastWeek != nil {
		include = *includeLastWeek
	}
	return Window{
		Now:             now,
		CurrentMonday:   cur,
		LastMonday:      cur.AddDate(0, 0, -7),
		IncludeLastWeek: include,
		LastWeekSettled: settled,
	}
}

// InCurrentWeek reports whether weekStart is the week in progress or later.
func (w Window) InCurrentWeek(weekStart time.Time) bool {
	return !weekStart.Before(w.CurrentMonday)
}

// IsLastWeek reports whether weekStart is the most recently completed week.
func (w Window) IsLastWeek(weekStart time.Time) bool {
	return weekStart.Equal(w.LastMonday)
}

// Admits reports whether rows of the week starting weekStart are included.
func (w Window) Admits(weekStart time.Time) bool {
	if w.InCurrentWeek(weekStart) {
		return false
	}
	if w.IsLastWeek(weekStart) {
		return w.IncludeLastWeek
	}
	return true
}

// Recordable reports whether an initial value may be recorded for the week.
// Unlike Admits the caller override is ignored: a week that may still be
// revised never gets a final snapshot.
func (w Window) Recordable(weekStart time.Time) bool {
	if w.InCurrentWeek(weekStart) {
		return false
	}
	if w.IsLastWeek(weekStart) {
		return w.LastWeekSettled
	}
	return true
}

// RecordableStart is Recordable for an ISO week-start string.
func (w Window) RecordableStart(weekStart string) bool {
	t, err := time.ParseInLocation(DateLayout, weekStart, w.CurrentMonday.Location())
	if err != nil {
		return false
	}
	return w.Recordable(t)
}
