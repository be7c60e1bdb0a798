package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Status is the lifecycle state of a scheduled workout.
type Status string

const (
	StatusPlanned Status = "planned"
	StatusDone    Status = "done"
	StatusRest    Status = "rest"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusDone, StatusRest:
		return true
	}
	return false
}

// OrDefault maps a missing status to planned, which is how the backend
// treats rows created before statuses existed.
func (s Status) OrDefault() Status {
	if s == "" {
		return StatusPlanned
	}
	return s
}

// Label is the human-readable chip text for a status.
func (s Status) Label() string {
	switch s.OrDefault() {
	case StatusDone:
		return "Completed"
	case StatusRest:
		return "Rest"
	default:
		return "Planned"
	}
}

// ParseStatus validates a user-supplied status string.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("invalid status %q (want planned, done or rest)", s)
	}
	return st, nil
}

// Workout is a scheduled exercise session as returned by the backend.
// Sets is nil when the endpoint does not embed sets and non-nil (possibly
// empty) when it does.
type Workout struct {
	ID           int        `json:"id"`
	UserID       int        `json:"user_id"`
	Title        string     `json:"title"`
	Notes        string     `json:"notes"`
	ScheduledFor Date       `json:"scheduled_for"`
	Status       Status     `json:"status"`
	StartedAt    *Timestamp `json:"started_at,omitempty"`
	Sets         []Set      `json:"sets,omitempty"`
}

// DisplayTitle falls back to "Workout" for untitled sessions.
func (w Workout) DisplayTitle() string {
	if strings.TrimSpace(w.Title) == "" {
		return "Workout"
	}
	return w.Title
}

// Validate checks the fields the client relies on.
func (w Workout) Validate() error {
	if w.ID <= 0 {
		return fmt.Errorf("workout: invalid id %d", w.ID)
	}
	if w.UserID <= 0 {
		return fmt.Errorf("workout %d: invalid user_id %d", w.ID, w.UserID)
	}
	if w.Status != "" && !w.Status.Valid() {
		return fmt.Errorf("workout %d: unknown status %q", w.ID, w.Status)
	}
	if w.ScheduledFor != "" && !w.ScheduledFor.Valid() {
		return fmt.Errorf("workout %d: invalid scheduled_for %q", w.ID, w.ScheduledFor)
	}
	for _, s := range w.Sets {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("workout %d: %w", w.ID, err)
		}
		if s.WorkoutID != w.ID {
			return fmt.Errorf("workout %d: set %d belongs to workout %d", w.ID, s.ID, s.WorkoutID)
		}
	}
	return nil
}

// WorkoutCreate is the body of POST /workouts/.
type WorkoutCreate struct {
	UserID       int    `json:"user_id"`
	Title        string `json:"title"`
	Notes        string `json:"notes"`
	ScheduledFor Date   `json:"scheduled_for"`
	Status       Status `json:"status,omitempty"`
}

// Validate rejects requests the backend would refuse anyway.
func (c WorkoutCreate) Validate() error {
	if c.UserID <= 0 {
		return fmt.Errorf("invalid user_id %d", c.UserID)
	}
	if !c.ScheduledFor.Valid() {
		return fmt.Errorf("invalid scheduled_for %q", c.ScheduledFor)
	}
	if c.Status != "" && !c.Status.Valid() {
		return fmt.Errorf("invalid status %q", c.Status)
	}
	return nil
}

// WorkoutPatch is a partial update; nil fields are left untouched.
type WorkoutPatch struct {
	Title        *string `json:"title,omitempty"`
	Notes        *string `json:"notes,omitempty"`
	Status       *Status `json:"status,omitempty"`
	ScheduledFor *Date   `json:"scheduled_for,omitempty"`
}

var errEmptyPatch = errors.New("empty workout patch")

// Validate rejects empty patches and malformed values.
func (p WorkoutPatch) Validate() error {
	if p.Title == nil && p.Notes == nil && p.Status == nil && p.ScheduledFor == nil {
		return errEmptyPatch
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("invalid status %q", *p.Status)
	}
	if p.ScheduledFor != nil && !p.ScheduledFor.Valid() {
		return fmt.Errorf("invalid scheduled_for %q", *p.ScheduledFor)
	}
	return nil
}

// Set is one performed or planned block of repetitions. A nil Weight means
// bodyweight or unspecified.
type Set struct {
	ID        int      `json:"id"`
	WorkoutID int      `json:"workout_id"`
	Exercise  string   `json:"exercise"`
	Reps      int      `json:"reps"`
	Weight    *float64 `json:"weight"`
	RPE       *float64 `json:"rpe,omitempty"`
}

// Validate checks identifiers and numeric ranges.
func (s Set) Validate() error {
	if s.ID <= 0 {
		return fmt.Errorf("set: invalid id %d", s.ID)
	}
	if s.WorkoutID <= 0 {
		return fmt.Errorf("set %d: invalid workout_id %d", s.ID, s.WorkoutID)
	}
	if s.Reps < 0 {
		return fmt.Errorf("set %d: negative reps %d", s.ID, s.Reps)
	}
	if s.Weight != nil && *s.Weight < 0 {
		return fmt.Errorf("set %d: negative weight %v", s.ID, *s.Weight)
	}
	return nil
}

// SetCreate is the body of POST /sets/.
type SetCreate struct {
	WorkoutID int      `json:"workout_id"`
	Exercise  string   `json:"exercise"`
	Reps      int      `json:"reps"`
	Weight    *float64 `json:"weight,omitempty"`
}

// SetBulkCreate is the body of POST /sets/bulk: Count identical sets.
type SetBulkCreate struct {
	WorkoutID int      `json:"workout_id"`
	Exercise  string   `json:"exercise"`
	Reps      int      `json:"reps"`
	Count     int      `json:"count"`
	Weight    *float64 `json:"weight,omitempty"`
}

// Validate rejects non-positive counts and ids.
func (b SetBulkCreate) Validate() error {
	if b.WorkoutID <= 0 {
		return fmt.Errorf("invalid workout_id %d", b.WorkoutID)
	}
	if b.Count <= 0 {
		return fmt.Errorf("invalid count %d", b.Count)
	}
	return nil
}

// SetUpdate is a partial set update. When SetWeight is true the weight key is
// always sent, so a nil Weight clears it on the backend.
type SetUpdate struct {
	Exercise  *string
	Reps      *int
	SetWeight bool
	Weight    *float64
}

func (u SetUpdate) MarshalJSON() ([]byte, error) {
	body := map[string]any{}
	if u.Exercise != nil {
		body["exercise"] = *u.Exercise
	}
	if u.Reps != nil {
		body["reps"] = *u.Reps
	}
	if u.SetWeight {
		if u.Weight == nil {
			body["weight"] = nil
		} else {
			body["weight"] = *u.Weight
		}
	}
	return json.Marshal(body)
}
