// Package calendar holds the Monday-anchored week arithmetic used by every
// view. All functions work on the calendar components of the time's own
// location and never convert through UTC.
package calendar

import (
	"fmt"
	"time"

	"github.com/claude/futurecoach/internal/models"
)

// WeekStart returns Monday 00:00 of the week containing t, in t's location.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// AddDays shifts t by n calendar days. Wall-clock time is kept across DST
// transitions.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// ISODate renders t as YYYY-MM-DD from its own calendar components.
func ISODate(t time.Time) models.Date {
	return models.DateOf(t)
}

// BucketByDate groups items by their date key, preserving input order within
// each bucket. Items with an empty key are dropped.
func BucketByDate[T any](items []T, keyOf func(T) models.Date) map[models.Date][]T {
	out := make(map[models.Date][]T)
	for _, it := range items {
		k := keyOf(it)
		if k == "" {
			continue
		}
		out[k] = append(out[k], it)
	}
	return out
}

// Week is the seven-day window starting at a Monday.
type Week struct {
	Start time.Time
}

// WeekOf returns the week containing t.
func WeekOf(t time.Time) Week {
	return Week{Start: WeekStart(t)}
}

// ParseWeek returns the week containing the given day, interpreted in loc.
func ParseWeek(day string, loc *time.Location) (Week, error) {
	d, err := models.ParseDate(day)
	if err != nil {
		return Week{}, err
	}
	t, err := d.In(loc)
	if err != nil {
		return Week{}, fmt.Errorf("calendar: %w", err)
	}
	return WeekOf(t), nil
}

// End is the Sunday of the week at midnight.
func (w Week) End() time.Time { return AddDays(w.Start, 6) }

// Days returns Monday through Sunday.
func (w Week) Days() []time.Time {
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = AddDays(w.Start, i)
	}
	return days
}

// Dates is Days rendered as ISO dates.
func (w Week) Dates() []models.Date {
	days := w.Days()
	out := make([]models.Date, len(days))
	for i, d := range days {
		out[i] = ISODate(d)
	}
	return out
}

func (w Week) Prev() Week { return Week{Start: AddDays(w.Start, -7)} }

func (w Week) Next() Week { return Week{Start: AddDays(w.Start, 7)} }

// Today resets to the week containing now.
func (w Week) Today(now time.Time) Week { return WeekOf(now.In(w.location())) }

// Range returns the inclusive start and end dates used for range queries.
func (w Week) Range() (start, end models.Date) {
	return ISODate(w.Start), ISODate(w.End())
}

// Contains reports whether d falls inside the week.
func (w Week) Contains(d models.Date) bool {
	start, end := w.Range()
	return d >= start && d <= end
}

// Label renders the week as "Oct 13 – Oct 19".
func (w Week) Label() string {
	return w.Start.Format("Jan 2") + " – " + w.End().Format("Jan 2")
}

func (w Week) location() *time.Location {
	if w.Start.Location() == nil {
		return time.Local
	}
	return w.Start.Location()
}
