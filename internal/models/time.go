package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp handles the backend's datetime format. The backend stores naive
// UTC datetimes, so values usually arrive without a zone offset
// ("2025-10-16T08:30:00.123456"); zoned RFC 3339 values are accepted too.
type Timestamp struct {
	time.Time
}

const (
	NaiveTimeLayout = "2006-01-02T15:04:05.999999999"
	DateLayout      = "2006-01-02"
)

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return t.Parse(s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Parse parses a backend timestamp, trying RFC 3339 first, then the naive
// layout (interpreted as UTC).
func (t *Timestamp) Parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err2 := time.ParseInLocation(NaiveTimeLayout, s, time.UTC)
	if err2 == nil {
		t.Time = parsed
		return nil
	}
	return fmt.Errorf("cannot parse timestamp %q: %w", s, err)
}

// Date is a calendar day in YYYY-MM-DD form. It is always derived from local
// calendar components, never through a UTC conversion.
type Date string

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// ParseDate validates s as a YYYY-MM-DD calendar day.
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return Date(s), nil
}

// Valid reports whether d is a well-formed calendar day.
func (d Date) Valid() bool {
	_, err := time.Parse(DateLayout, string(d))
	return err == nil
}

// In returns local midnight of d in loc.
func (d Date) In(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, string(d), loc)
}

func (d Date) String() string {
	return string(d)
}
