package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/claude/futurecoach/internal/models"
)

var (
	// ErrBusy is returned when a save or complete is already in flight.
	ErrBusy = errors.New("a save is already in progress")
	// ErrStale is returned for edits after a save went through but the reload
	// that follows it failed. The rows no longer match the backend; Reload or
	// Save the session before editing again.
	ErrStale = errors.New("workout changed on the backend; reload before editing")
)

// Backend is the gateway surface a session needs.
type Backend interface {
	SetWriter
	GetWorkoutDetail(ctx context.Context, id int) (models.Workout, error)
	ListSetsByWorkout(ctx context.Context, workoutID int) ([]models.Set, error)
	UpdateWorkout(ctx context.Context, id int, patch models.WorkoutPatch) (models.Workout, error)
}

// SyncEntry describes one save or complete attempt.
type SyncEntry struct {
	WorkoutID int    `json:"workout_id"`
	Action    string `json:"action"`
	Planned   int    `json:"planned"`
	Applied   int    `json:"applied"`
	Err       string `json:"error,omitempty"`
}

// Journal records sync attempts. Failures to record are logged, not returned.
type Journal interface {
	RecordSync(ctx context.Context, e SyncEntry) error
}

// View is a point-in-time snapshot of a session.
type View struct {
	Workout models.Workout `json:"workout"`
	Groups  []Group        `json:"groups"`
	Rows    []Row          `json:"rows"`
	Dirty   bool           `json:"dirty"`
	Stale   bool           `json:"stale,omitempty"`
}

// Session is the tracking state of one open workout: the authoritative sets
// as last loaded and the editor over them.
type Session struct {
	backend Backend
	journal Journal
	logger  *slog.Logger

	// busy is only set while holding mu so an edit either lands before a
	// save takes its plan snapshot or is refused.
	busy atomic.Bool

	mu      sync.Mutex
	workout models.Workout
	editor  *Editor
	stale   bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

func WithJournal(j Journal) SessionOption {
	return func(s *Session) { s.journal = j }
}

func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// Open loads a workout and hydrates its rows. When the detail does not embed
// sets they are fetched separately.
func Open(ctx context.Context, backend Backend, workoutID int, opts ...SessionOption) (*Session, error) {
	s := &Session{
		backend: backend,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	w, sets, err := s.fetch(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	s.reset(w, sets)
	return s, nil
}

func (s *Session) fetch(ctx context.Context, workoutID int) (models.Workout, []models.Set, error) {
	w, err := s.backend.GetWorkoutDetail(ctx, workoutID)
	if err != nil {
		return models.Workout{}, nil, fmt.Errorf("load workout %d: %w", workoutID, err)
	}
	sets := w.Sets
	if sets == nil {
		sets, err = s.backend.ListSetsByWorkout(ctx, workoutID)
		if err != nil {
			return models.Workout{}, nil, fmt.Errorf("load sets of workout %d: %w", workoutID, err)
		}
	}
	return w, sets, nil
}

// reset replaces the authoritative state; caller holds mu or owns s.
func (s *Session) reset(w models.Workout, sets []models.Set) {
	s.workout = w
	s.editor = NewEditor(GroupSets(sets))
	s.stale = false
}

// WorkoutID returns the id of the open workout.
func (s *Session) WorkoutID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workout.ID
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	groups := s.editor.Original()
	if groups == nil {
		groups = []Group{}
	}
	return View{
		Workout: s.workout,
		Groups:  groups,
		Rows:    s.editor.Rows(),
		Dirty:   s.editor.Dirty(),
		Stale:   s.stale,
	}
}

// Dirty reports whether there are unsaved edits.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.Dirty()
}

// Stale reports whether the last save reached the backend but its reload
// failed.
func (s *Session) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// begin marks a save, complete or reload as in flight.
func (s *Session) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy.CompareAndSwap(false, true)
}

func (s *Session) edit(fn func(*Editor) error) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy.Load() {
		return View{}, ErrBusy
	}
	if s.stale {
		return View{}, ErrStale
	}
	if err := fn(s.editor); err != nil {
		return View{}, err
	}
	return s.viewLocked(), nil
}

func (s *Session) AddRow(in RowInput) (View, error) {
	return s.edit(func(e *Editor) error { return e.Add(in) })
}

func (s *Session) UpdateRow(i int, p RowPatch) (View, error) {
	return s.edit(func(e *Editor) error { return e.Update(i, p) })
}

func (s *Session) RemoveRow(i int) (View, error) {
	return s.edit(func(e *Editor) error { return e.Remove(i) })
}

func (s *Session) DuplicateRow(i int) (View, error) {
	return s.edit(func(e *Editor) error { return e.Duplicate(i) })
}

// Edit is one scripted row operation. Index addresses the working rows as
// they are when the edit is applied.
type Edit struct {
	Op       EditOp  `json:"op"`
	Index    int     `json:"index"`
	Exercise *string `json:"exercise,omitempty"`
	Reps     *string `json:"reps,omitempty"`
	Weight   *string `json:"weight,omitempty"`
	Count    *string `json:"count,omitempty"`
}

type EditOp string

const (
	EditAdd       EditOp = "add"
	EditUpdate    EditOp = "update"
	EditRemove    EditOp = "remove"
	EditDuplicate EditOp = "duplicate"
)

// ApplyEdit dispatches e to the matching row operation.
func (s *Session) ApplyEdit(e Edit) (View, error) {
	switch e.Op {
	case EditAdd:
		return s.AddRow(RowInput{
			Exercise: deref(e.Exercise),
			Reps:     deref(e.Reps),
			Weight:   deref(e.Weight),
			Count:    deref(e.Count),
		})
	case EditUpdate:
		return s.UpdateRow(e.Index, RowPatch{Exercise: e.Exercise, Reps: e.Reps, Weight: e.Weight, Count: e.Count})
	case EditRemove:
		return s.RemoveRow(e.Index)
	case EditDuplicate:
		return s.DuplicateRow(e.Index)
	}
	return View{}, fmt.Errorf("unknown edit op %q", e.Op)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Reload discards local edits and re-fetches the workout.
func (s *Session) Reload(ctx context.Context) (View, error) {
	if !s.begin() {
		return View{}, ErrBusy
	}
	defer s.busy.Store(false)
	if err := s.reload(ctx); err != nil {
		return View{}, err
	}
	return s.View(), nil
}

func (s *Session) reload(ctx context.Context) error {
	id := s.WorkoutID()
	w, sets, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.reset(w, sets)
	s.mu.Unlock()
	return nil
}

// Save reconciles the working rows with the backend and reloads. On failure
// the working rows are kept and the session stays dirty so the save can be
// retried; operations that already succeeded are not rolled back.
func (s *Session) Save(ctx context.Context) (View, error) {
	if !s.begin() {
		return View{}, ErrBusy
	}
	defer s.busy.Store(false)
	if err := s.save(ctx, "save"); err != nil {
		return s.View(), err
	}
	return s.View(), nil
}

// Complete saves pending edits and then marks the workout done. The status is
// only changed after the save fully succeeded.
func (s *Session) Complete(ctx context.Context) (View, error) {
	if !s.begin() {
		return View{}, ErrBusy
	}
	defer s.busy.Store(false)
	if err := s.save(ctx, "complete"); err != nil {
		return s.View(), err
	}

	id := s.WorkoutID()
	done := models.StatusDone
	w, err := s.backend.UpdateWorkout(ctx, id, models.WorkoutPatch{Status: &done})
	if err != nil {
		return s.View(), fmt.Errorf("mark workout %d done: %w", id, err)
	}
	s.mu.Lock()
	s.workout.Status = w.Status
	v := s.viewLocked()
	s.mu.Unlock()
	s.logger.Info("workout completed", "workout_id", id)
	return v, nil
}

func (s *Session) save(ctx context.Context, action string) error {
	// A previous save went through but its reload failed. Edits are refused
	// while stale, so the rows hold exactly what is already stored.
	s.mu.Lock()
	stale := s.stale
	s.mu.Unlock()
	if stale {
		if err := s.reload(ctx); err != nil {
			return err
		}
	}

	s.mu.Lock()
	id := s.workout.ID
	ops := Plan(s.editor.Original(), s.editor.Rows(), id)
	s.mu.Unlock()

	applied, err := Apply(ctx, s.backend, ops)
	s.record(ctx, SyncEntry{WorkoutID: id, Action: action, Planned: len(ops), Applied: applied, Err: errString(err)})
	if err != nil {
		s.logger.Warn("save incomplete", "workout_id", id, "applied", applied, "planned", len(ops), "error", err)
		return fmt.Errorf("save workout %d: %w", id, err)
	}
	s.logger.Debug("workout saved", "workout_id", id, "ops", len(ops))

	if err := s.reload(ctx); err != nil {
		s.mu.Lock()
		s.stale = true
		s.mu.Unlock()
		return fmt.Errorf("reload after save: %w", err)
	}
	return nil
}

func (s *Session) record(ctx context.Context, e SyncEntry) {
	if s.journal == nil {
		return
	}
	if err := s.journal.RecordSync(ctx, e); err != nil {
		s.logger.Warn("recording sync attempt", "workout_id", e.WorkoutID, "error", err)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Journals fans a sync entry out to several journals.
type Journals []Journal

func (js Journals) RecordSync(ctx context.Context, e SyncEntry) error {
	var errs []error
	for _, j := range js {
		if j == nil {
			continue
		}
		if err := j.RecordSync(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
