// Package planner owns the week calendar of one user: the bucketed workouts
// of the visible week and the currently open tracking session.
package planner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/claude/futurecoach/internal/calendar"
	"github.com/claude/futurecoach/internal/identity"
	"github.com/claude/futurecoach/internal/models"
	"github.com/claude/futurecoach/internal/tracker"
)

// ErrNoSession is returned when a tracking call is made with no workout open.
var ErrNoSession = errors.New("no workout is open")

// Backend is the gateway surface the planner needs.
type Backend interface {
	tracker.Backend
	CreateWorkout(ctx context.Context, in models.WorkoutCreate) (models.Workout, error)
	DeleteWorkout(ctx context.Context, id int) error
	ListWorkoutsInRange(ctx context.Context, userID int, start, end models.Date) ([]models.Workout, error)
	ListWorkoutsInRangeWithSets(ctx context.Context, userID int, start, end models.Date) ([]models.Workout, error)
	ListWorkoutsOnDay(ctx context.Context, userID int, day models.Date) ([]models.Workout, error)
}

// DayView is one column of the week grid.
type DayView struct {
	Date     models.Date      `json:"date"`
	Weekday  string           `json:"weekday"`
	Today    bool             `json:"today"`
	Workouts []models.Workout `json:"workouts"`
}

// WeekView is the rendered week.
type WeekView struct {
	Start models.Date `json:"start"`
	End   models.Date `json:"end"`
	Label string      `json:"label"`
	Days  []DayView   `json:"days"`
}

// NewWorkout is the input of AddWorkout.
type NewWorkout struct {
	Date   models.Date   `json:"date"`
	Title  string        `json:"title"`
	Notes  string        `json:"notes"`
	Status models.Status `json:"status"`
}

// Planner is safe for concurrent use. Each mutation returns the new
// authoritative state and replaces the cached buckets.
type Planner struct {
	backend Backend
	user    identity.Session
	journal tracker.Journal
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	week    calendar.Week
	days    map[models.Date][]models.Workout
	session *tracker.Session
}

// Option configures a Planner.
type Option func(*Planner)

func WithJournal(j tracker.Journal) Option {
	return func(p *Planner) { p.journal = j }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) { p.logger = l }
}

// WithClock overrides time.Now; the clock's location decides which day is
// "today".
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// New creates a planner showing the current week. Nothing is fetched until
// LoadWeek.
func New(backend Backend, user identity.Session, opts ...Option) *Planner {
	p := &Planner{
		backend: backend,
		user:    user,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
		days:    map[models.Date][]models.Workout{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.week = calendar.WeekOf(p.now())
	return p
}

// User returns the identity the planner acts as.
func (p *Planner) User() identity.Session { return p.user }

// Week returns the visible week.
func (p *Planner) Week() calendar.Week {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.week
}

// View renders the cached week without fetching.
func (p *Planner) View() WeekView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked()
}

func (p *Planner) viewLocked() WeekView {
	start, end := p.week.Range()
	today := calendar.ISODate(p.now())
	v := WeekView{Start: start, End: end, Label: p.week.Label()}
	for _, d := range p.week.Days() {
		iso := calendar.ISODate(d)
		ws := p.days[iso]
		if ws == nil {
			ws = []models.Workout{}
		}
		v.Days = append(v.Days, DayView{
			Date:     iso,
			Weekday:  d.Weekday().String()[:3],
			Today:    iso == today,
			Workouts: ws,
		})
	}
	return v
}

// Day returns the cached workouts of one day.
func (p *Planner) Day(d models.Date) []models.Workout {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := append([]models.Workout(nil), p.days[d]...)
	if out == nil {
		out = []models.Workout{}
	}
	return out
}

// LoadWeek fetches the visible week. The embedded-sets variant is tried first
// and the plain range query is the fallback; when both fail the buckets are
// cleared and the error is returned.
func (p *Planner) LoadWeek(ctx context.Context) (WeekView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.loadLocked(ctx)
	return p.viewLocked(), err
}

func (p *Planner) loadLocked(ctx context.Context) error {
	start, end := p.week.Range()
	list, err := p.backend.ListWorkoutsInRangeWithSets(ctx, p.user.UserID, start, end)
	if err != nil {
		p.logger.Warn("range_with_sets failed, falling back to range", "start", start, "error", err)
		list, err = p.backend.ListWorkoutsInRange(ctx, p.user.UserID, start, end)
	}
	if err != nil {
		p.days = map[models.Date][]models.Workout{}
		return fmt.Errorf("loading week of %s: %w", start, err)
	}
	p.days = calendar.BucketByDate(list, func(w models.Workout) models.Date { return w.ScheduledFor })
	return nil
}

// GoToWeek switches to week and loads it.
func (p *Planner) GoToWeek(ctx context.Context, week calendar.Week) (WeekView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.week = week
	err := p.loadLocked(ctx)
	return p.viewLocked(), err
}

func (p *Planner) PrevWeek(ctx context.Context) (WeekView, error) {
	return p.GoToWeek(ctx, p.Week().Prev())
}

func (p *Planner) NextWeek(ctx context.Context) (WeekView, error) {
	return p.GoToWeek(ctx, p.Week().Next())
}

// Today resets to the week containing the current day.
func (p *Planner) Today(ctx context.Context) (WeekView, error) {
	return p.GoToWeek(ctx, calendar.WeekOf(p.now()))
}

// RefreshDay re-fetches one day. If the day query fails the whole week is
// reloaded instead.
func (p *Planner) RefreshDay(ctx context.Context, day models.Date) ([]models.Workout, error) {
	list, err := p.backend.ListWorkoutsOnDay(ctx, p.user.UserID, day)
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.logger.Warn("day refresh failed, reloading week", "day", day, "error", err)
		if werr := p.loadLocked(ctx); werr != nil {
			return []models.Workout{}, werr
		}
		return p.copyDayLocked(day), nil
	}
	if !p.week.Contains(day) {
		return list, nil
	}
	if len(list) == 0 {
		delete(p.days, day)
	} else {
		p.days[day] = list
	}
	return p.copyDayLocked(day), nil
}

func (p *Planner) copyDayLocked(day models.Date) []models.Workout {
	out := append([]models.Workout(nil), p.days[day]...)
	if out == nil {
		out = []models.Workout{}
	}
	return out
}

// AddWorkout creates a workout and reloads the week. The title defaults to
// "Workout" and the status to planned.
func (p *Planner) AddWorkout(ctx context.Context, in NewWorkout) (models.Workout, WeekView, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "Workout"
	}
	status := in.Status.OrDefault()
	w, err := p.backend.CreateWorkout(ctx, models.WorkoutCreate{
		UserID:       p.user.UserID,
		Title:        title,
		Notes:        strings.TrimSpace(in.Notes),
		ScheduledFor: in.Date,
		Status:       status,
	})
	if err != nil {
		return models.Workout{}, p.View(), fmt.Errorf("adding workout: %w", err)
	}
	p.logger.Info("workout added", "workout_id", w.ID, "date", w.ScheduledFor)
	v, err := p.LoadWeek(ctx)
	return w, v, err
}

// DeleteWorkout removes a workout, closing it first if it is open.
func (p *Planner) DeleteWorkout(ctx context.Context, id int) (WeekView, error) {
	if err := p.backend.DeleteWorkout(ctx, id); err != nil {
		return p.View(), fmt.Errorf("deleting workout %d: %w", id, err)
	}
	p.mu.Lock()
	if p.session != nil && p.session.WorkoutID() == id {
		p.session = nil
	}
	p.mu.Unlock()
	p.logger.Info("workout deleted", "workout_id", id)
	return p.LoadWeek(ctx)
}

// MoveWorkout reschedules a workout to another day.
func (p *Planner) MoveWorkout(ctx context.Context, id int, to models.Date) (models.Workout, WeekView, error) {
	w, err := p.backend.UpdateWorkout(ctx, id, models.WorkoutPatch{ScheduledFor: &to})
	if err != nil {
		return models.Workout{}, p.View(), fmt.Errorf("moving workout %d: %w", id, err)
	}
	v, err := p.LoadWeek(ctx)
	return w, v, err
}

// UpdateWorkout applies a title/notes/status patch and refreshes the day.
func (p *Planner) UpdateWorkout(ctx context.Context, id int, patch models.WorkoutPatch) (models.Workout, error) {
	w, err := p.backend.UpdateWorkout(ctx, id, patch)
	if err != nil {
		return models.Workout{}, fmt.Errorf("updating workout %d: %w", id, err)
	}
	if _, err := p.RefreshDay(ctx, w.ScheduledFor); err != nil {
		p.logger.Warn("refresh after update failed", "workout_id", id, "error", err)
	}
	return w, nil
}

// OpenWorkout loads a workout into a new tracking session, replacing any
// session already open.
func (p *Planner) OpenWorkout(ctx context.Context, id int) (tracker.View, error) {
	opts := []tracker.SessionOption{tracker.WithLogger(p.logger)}
	if p.journal != nil {
		opts = append(opts, tracker.WithJournal(p.journal))
	}
	s, err := tracker.Open(ctx, p.backend, id, opts...)
	if err != nil {
		return tracker.View{}, err
	}
	p.mu.Lock()
	p.session = s
	p.mu.Unlock()
	return s.View(), nil
}

// Session returns the open tracking session.
func (p *Planner) Session() (*tracker.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil, ErrNoSession
	}
	return p.session, nil
}

// CloseWorkout drops the open session and its unsaved edits.
func (p *Planner) CloseWorkout() {
	p.mu.Lock()
	p.session = nil
	p.mu.Unlock()
}

// SaveWorkout saves the open session and refreshes its day, even when the
// save failed part-way.
func (p *Planner) SaveWorkout(ctx context.Context) (tracker.View, error) {
	s, err := p.Session()
	if err != nil {
		return tracker.View{}, err
	}
	v, err := s.Save(ctx)
	if errors.Is(err, tracker.ErrBusy) {
		return v, err
	}
	if _, rerr := p.RefreshDay(ctx, v.Workout.ScheduledFor); rerr != nil {
		p.logger.Warn("refresh after save failed", "error", rerr)
	}
	return v, err
}

// CompleteWorkout saves and completes the open session, then refreshes the
// day and reloads the week.
func (p *Planner) CompleteWorkout(ctx context.Context) (tracker.View, error) {
	s, err := p.Session()
	if err != nil {
		return tracker.View{}, err
	}
	v, err := s.Complete(ctx)
	if err != nil {
		if !errors.Is(err, tracker.ErrBusy) {
			if _, rerr := p.RefreshDay(ctx, v.Workout.ScheduledFor); rerr != nil {
				p.logger.Warn("refresh after failed complete", "error", rerr)
			}
		}
		return v, err
	}
	if _, rerr := p.RefreshDay(ctx, v.Workout.ScheduledFor); rerr != nil {
		p.logger.Warn("refresh after complete failed", "error", rerr)
	}
	if _, werr := p.LoadWeek(ctx); werr != nil {
		p.logger.Warn("week reload after complete failed", "error", werr)
	}
	return v, nil
}
