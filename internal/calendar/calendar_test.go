package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claude/futurecoach/internal/models"
)

func TestWeekStartIsMondayMidnight(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	// Walk a full fortnight so every weekday is covered, including Sunday.
	base := time.Date(2025, 10, 12, 23, 59, 0, 0, loc) // Sunday
	for i := 0; i < 14; i++ {
		d := AddDays(base, i)
		ws := WeekStart(d)
		assert.Equal(t, time.Monday, ws.Weekday(), "day %s", d)
		assert.Equal(t, 0, ws.Hour())
		assert.Equal(t, 0, ws.Minute())
		assert.False(t, ws.After(d))
		assert.Less(t, d.Sub(ws), 7*24*time.Hour)
		assert.Equal(t, time.Sunday, AddDays(ws, 6).Weekday())
	}
}

func TestWeekStartSunday(t *testing.T) {
	sun := time.Date(2025, 10, 19, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, models.Date("2025-10-13"), ISODate(WeekStart(sun)))
}

func TestAddDaysAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// DST ends 2025-11-02 in New York.
	start := time.Date(2025, 10, 27, 0, 0, 0, 0, ny)
	next := AddDays(start, 7)
	assert.Equal(t, models.Date("2025-11-03"), ISODate(next))
	assert.Equal(t, 0, next.Hour())
	assert.Equal(t, models.Date("2025-10-20"), ISODate(AddDays(start, -7)))
}

func TestISODateLocalComponents(t *testing.T) {
	// 23:30 local on the 16th is already the 17th in UTC.
	loc := time.FixedZone("PDT", -7*3600)
	late := time.Date(2025, 10, 16, 23, 30, 0, 0, loc)
	assert.Equal(t, models.Date("2025-10-16"), ISODate(late))
}

func TestBucketByDate(t *testing.T) {
	ws := []models.Workout{
		{ID: 1, ScheduledFor: "2025-10-16"},
		{ID: 2, ScheduledFor: ""},
		{ID: 3, ScheduledFor: "2025-10-14"},
		{ID: 4, ScheduledFor: "2025-10-16"},
	}
	got := BucketByDate(ws, func(w models.Workout) models.Date { return w.ScheduledFor })
	require.Len(t, got, 2)
	require.Len(t, got["2025-10-16"], 2)
	assert.Equal(t, 1, got["2025-10-16"][0].ID)
	assert.Equal(t, 4, got["2025-10-16"][1].ID)
	assert.Equal(t, 3, got["2025-10-14"][0].ID)
}

func TestWeekNavigation(t *testing.T) {
	w := WeekOf(time.Date(2025, 10, 16, 12, 0, 0, 0, time.UTC))
	start, end := w.Range()
	assert.Equal(t, models.Date("2025-10-13"), start)
	assert.Equal(t, models.Date("2025-10-19"), end)
	assert.Equal(t, "Oct 13 – Oct 19", w.Label())

	p, _ := w.Prev().Range()
	n, _ := w.Next().Range()
	assert.Equal(t, models.Date("2025-10-06"), p)
	assert.Equal(t, models.Date("2025-10-20"), n)

	dates := w.Dates()
	require.Len(t, dates, 7)
	assert.Equal(t, models.Date("2025-10-13"), dates[0])
	assert.Equal(t, models.Date("2025-10-19"), dates[6])

	assert.True(t, w.Contains("2025-10-19"))
	assert.False(t, w.Contains("2025-10-20"))

	today := w.Next().Next().Today(time.Date(2025, 10, 15, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, w, today)
}

func TestParseWeek(t *testing.T) {
	w, err := ParseWeek("2025-10-19", time.UTC)
	require.NoError(t, err)
	start, _ := w.Range()
	assert.Equal(t, models.Date("2025-10-13"), start)

	_, err = ParseWeek("next week", time.UTC)
	assert.Error(t, err)
}
