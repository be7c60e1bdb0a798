package tracker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/claude/futurecoach/internal/models"
)

// fakeBackend is an in-memory set store that records every write call.
type fakeBackend struct {
	mu       sync.Mutex
	workout  models.Workout
	sets     []models.Set
	nextID   int
	calls    []string
	failAt   int // 1-based write call that fails; 0 disables
	writes   int
	detailNo bool // detail omits sets
	// detailFails is the number of upcoming detail calls that fail.
	detailFails int
	patchErr error
	block    chan struct{}
}

func newFakeBackend(workoutID int, sets ...models.Set) *fakeBackend {
	f := &fakeBackend{
		workout: models.Workout{ID: workoutID, UserID: 1, Title: "Push", ScheduledFor: "2025-10-16", Status: models.StatusPlanned},
		nextID:  100,
	}
	for _, s := range sets {
		s.WorkoutID = workoutID
		f.sets = append(f.sets, s)
	}
	return f
}

func weight(v float64) *float64 { return &v }

func (f *fakeBackend) write(name string) error {
	f.writes++
	f.calls = append(f.calls, name)
	if f.failAt > 0 && f.writes == f.failAt {
		return errors.New("backend unavailable")
	}
	return nil
}

func (f *fakeBackend) GetWorkoutDetail(_ context.Context, id int) (models.Workout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != f.workout.ID {
		return models.Workout{}, fmt.Errorf("workout %d not found", id)
	}
	if f.detailFails > 0 {
		f.detailFails--
		return models.Workout{}, errors.New("detail unavailable")
	}
	w := f.workout
	if !f.detailNo {
		w.Sets = slices.Clone(f.sets)
		if w.Sets == nil {
			w.Sets = []models.Set{}
		}
	}
	return w, nil
}

func (f *fakeBackend) ListSetsByWorkout(_ context.Context, _ int) ([]models.Set, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list")
	return slices.Clone(f.sets), nil
}

func (f *fakeBackend) UpdateWorkout(_ context.Context, id int, p models.WorkoutPatch) (models.Workout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "patch workout")
	if f.patchErr != nil {
		return models.Workout{}, f.patchErr
	}
	if p.Status != nil {
		f.workout.Status = *p.Status
	}
	return f.workout, nil
}

func (f *fakeBackend) UpdateSet(_ context.Context, id int, in models.SetUpdate) (models.Set, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.write(fmt.Sprintf("update %d", id)); err != nil {
		return models.Set{}, err
	}
	for i := range f.sets {
		if f.sets[i].ID == id {
			if in.Exercise != nil {
				f.sets[i].Exercise = *in.Exercise
			}
			if in.Reps != nil {
				f.sets[i].Reps = *in.Reps
			}
			if in.SetWeight {
				f.sets[i].Weight = in.Weight
			}
			return f.sets[i], nil
		}
	}
	return models.Set{}, fmt.Errorf("set %d not found", id)
}

func (f *fakeBackend) CreateSetsBulk(_ context.Context, in models.SetBulkCreate) ([]models.Set, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.write(fmt.Sprintf("bulk %s x%d", in.Exercise, in.Count)); err != nil {
		return nil, err
	}
	var out []models.Set
	for range in.Count {
		f.nextID++
		s := models.Set{ID: f.nextID, WorkoutID: in.WorkoutID, Exercise: in.Exercise, Reps: in.Reps, Weight: in.Weight}
		f.sets = append(f.sets, s)
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeBackend) DeleteSet(_ context.Context, id int) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.write(fmt.Sprintf("delete %d", id)); err != nil {
		return err
	}
	f.sets = slices.DeleteFunc(f.sets, func(s models.Set) bool { return s.ID == id })
	return nil
}

func (f *fakeBackend) writeCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c != "list" && c != "patch workout" {
			out = append(out, c)
		}
	}
	return out
}

type fakeJournal struct {
	entries []SyncEntry
}

func (j *fakeJournal) RecordSync(_ context.Context, e SyncEntry) error {
	j.entries = append(j.entries, e)
	return nil
}
