package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claude/futurecoach/internal/identity"
	"github.com/claude/futurecoach/internal/models"
	"github.com/claude/futurecoach/internal/tracker"
)

type fakeBackend struct {
	mu       sync.Mutex
	workouts []models.Workout
	sets     []models.Set
	nextID   int
	failBulk bool
	status   models.TaskStatus
}

func (f *fakeBackend) setsOf(id int) []models.Set {
	out := []models.Set{}
	for _, s := range f.sets {
		if s.WorkoutID == id {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeBackend) inRange(start, end models.Date) []models.Workout {
	var out []models.Workout
	for _, w := range f.workouts {
		if w.ScheduledFor >= start && w.ScheduledFor <= end {
			w.Sets = f.setsOf(w.ID)
			out = append(out, w)
		}
	}
	return out
}

func (f *fakeBackend) ListWorkoutsInRangeWithSets(_ context.Context, _ int, start, end models.Date) ([]models.Workout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inRange(start, end), nil
}

func (f *fakeBackend) ListWorkoutsInRange(ctx context.Context, uid int, start, end models.Date) ([]models.Workout, error) {
	return f.ListWorkoutsInRangeWithSets(ctx, uid, start, end)
}

func (f *fakeBackend) ListWorkoutsOnDay(ctx context.Context, uid int, day models.Date) ([]models.Workout, error) {
	return f.ListWorkoutsInRangeWithSets(ctx, uid, day, day)
}

func (f *fakeBackend) CreateWorkout(_ context.Context, in models.WorkoutCreate) (models.Workout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	w := models.Workout{ID: f.nextID, UserID: in.UserID, Title: in.Title, Notes: in.Notes, ScheduledFor: in.ScheduledFor, Status: in.Status}
	f.workouts = append(f.workouts, w)
	return w, nil
}

func (f *fakeBackend) DeleteWorkout(context.Context, int) error { return nil }

func (f *fakeBackend) UpdateWorkout(_ context.Context, id int, p models.WorkoutPatch) (models.Workout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.workouts {
		if f.workouts[i].ID == id {
			if p.Status != nil {
				f.workouts[i].Status = *p.Status
			}
			return f.workouts[i], nil
		}
	}
	return models.Workout{}, errors.New("Workout not found")
}

func (f *fakeBackend) GetWorkoutDetail(_ context.Context, id int) (models.Workout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.workouts {
		if w.ID == id {
			w.Sets = f.setsOf(id)
			return w, nil
		}
	}
	return models.Workout{}, errors.New("Workout not found")
}

func (f *fakeBackend) ListSetsByWorkout(_ context.Context, id int) ([]models.Set, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setsOf(id), nil
}

func (f *fakeBackend) UpdateSet(_ context.Context, id int, u models.SetUpdate) (models.Set, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sets {
		if f.sets[i].ID == id {
			if u.Reps != nil {
				f.sets[i].Reps = *u.Reps
			}
			if u.SetWeight {
				f.sets[i].Weight = u.Weight
			}
			return f.sets[i], nil
		}
	}
	return models.Set{}, errors.New("Set not found")
}

func (f *fakeBackend) CreateSetsBulk(_ context.Context, in models.SetBulkCreate) ([]models.Set, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBulk {
		return nil, errors.New("sets rejected")
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
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets = slices.DeleteFunc(f.sets, func(s models.Set) bool { return s.ID == id })
	return nil
}

func (f *fakeBackend) ListTasks(_ context.Context, uid int, status models.TaskStatus) ([]models.Task, error) {
	f.status = status
	return []models.Task{{ID: 1, UserID: uid, Intent: models.IntentAddWorkout, Status: status}}, nil
}

func (f *fakeBackend) ApproveTask(context.Context, int) (models.Task, error) { return models.Task{}, nil }
func (f *fakeBackend) RejectTask(context.Context, int) (models.Task, error)  { return models.Task{}, nil }

func seeded() *fakeBackend {
	w := func(v float64) *float64 { return &v }
	return &fakeBackend{
		nextID: 100,
		workouts: []models.Workout{
			{ID: 1, UserID: 1, Title: "Push", ScheduledFor: "2025-10-13", Status: models.StatusPlanned},
			{ID: 2, UserID: 1, Title: "Legs", ScheduledFor: "2025-10-16", Status: models.StatusPlanned},
		},
		sets: []models.Set{
			{ID: 10, WorkoutID: 2, Exercise: "Squat", Reps: 5, Weight: w(225)},
			{ID: 11, WorkoutID: 2, Exercise: "Squat", Reps: 5, Weight: w(225)},
			{ID: 12, WorkoutID: 2, Exercise: "Lunge", Reps: 10},
		},
	}
}

type journal struct{ entries []tracker.SyncEntry }

func (j *journal) RecordSync(_ context.Context, e tracker.SyncEntry) error {
	j.entries = append(j.entries, e)
	return nil
}

func testHandlers(f *fakeBackend, j tracker.Journal) *handlers {
	return newHandlers(Deps{
		Backend: f,
		User:    identity.Session{UserID: 1, Username: "guest-abc123"},
		Journal: j,
		Now:     func() time.Time { return time.Date(2025, 10, 16, 9, 0, 0, 0, time.UTC) },
	})
}

func callTool(t *testing.T, fn func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := fn(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return text.Text
}

func decodeResult[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	require.False(t, res.IsError, resultText(t, res))
	var v T
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &v))
	return v
}

type weekResult struct {
	Start models.Date `json:"start"`
	Days  []struct {
		Date     models.Date      `json:"date"`
		Workouts []models.Workout `json:"workouts"`
	} `json:"days"`
}

func TestGetWeek(t *testing.T) {
	h := testHandlers(seeded(), nil)

	week := decodeResult[weekResult](t, callTool(t, h.getWeek, map[string]any{}))
	assert.Equal(t, models.Date("2025-10-13"), week.Start)
	require.Len(t, week.Days, 7)
	assert.Len(t, week.Days[3].Workouts, 1)

	prev := decodeResult[weekResult](t, callTool(t, h.getWeek, map[string]any{"date": "2025-10-15", "offset": -1}))
	assert.Equal(t, models.Date("2025-10-06"), prev.Start)

	res := callTool(t, h.getWeek, map[string]any{"date": "Oct 15"})
	assert.True(t, res.IsError)
}

func TestGetDay(t *testing.T) {
	h := testHandlers(seeded(), nil)
	list := decodeResult[[]models.Workout](t, callTool(t, h.getDay, map[string]any{"date": "2025-10-16"}))
	require.Len(t, list, 1)
	assert.Equal(t, "Legs", list[0].Title)

	assert.True(t, callTool(t, h.getDay, map[string]any{}).IsError)
}

func TestGetWorkoutRows(t *testing.T) {
	h := testHandlers(seeded(), nil)
	view := decodeResult[tracker.View](t, callTool(t, h.getWorkout, map[string]any{"workout_id": 2}))
	require.Len(t, view.Rows, 2)
	assert.Equal(t, "Squat", view.Rows[0].Exercise)
	assert.Equal(t, 2, view.Rows[0].Count)
	assert.Nil(t, view.Rows[1].Weight)

	assert.True(t, callTool(t, h.getWorkout, map[string]any{"workout_id": 99}).IsError)
}

func TestAddWorkout(t *testing.T) {
	f := seeded()
	h := testHandlers(f, nil)
	w := decodeResult[models.Workout](t, callTool(t, h.addWorkout, map[string]any{"date": "2025-10-18", "status": "rest"}))
	assert.Equal(t, "Workout", w.Title)
	assert.Equal(t, models.StatusRest, w.Status)
	assert.Len(t, f.workouts, 3)

	assert.True(t, callTool(t, h.addWorkout, map[string]any{"date": "2025-10-18", "status": "skipped"}).IsError)
}

func TestUpdateSetRows(t *testing.T) {
	f := seeded()
	j := &journal{}
	h := testHandlers(f, j)

	view := decodeResult[tracker.View](t, callTool(t, h.updateSetRows, map[string]any{
		"workout_id": 2,
		"edits": []any{
			map[string]any{"op": "update", "index": 0, "count": 3},
			map[string]any{"op": "remove", "index": 1},
			map[string]any{"op": "add", "exercise": "Deadlift", "reps": "3", "weight": 315, "count": "1"},
		},
	}))
	assert.False(t, view.Dirty)
	require.Len(t, view.Groups, 2)
	assert.Equal(t, 3, view.Groups[0].Count())
	assert.Equal(t, "Deadlift", view.Groups[1].Exercise)
	assert.Len(t, f.setsOf(2), 4)

	require.Len(t, j.entries, 1)
	assert.Equal(t, 3, j.entries[0].Applied)
}

func TestUpdateSetRowsBadEdit(t *testing.T) {
	f := seeded()
	h := testHandlers(f, nil)
	res := callTool(t, h.updateSetRows, map[string]any{
		"workout_id": 2,
		"edits":      []any{map[string]any{"op": "remove", "index": 7}},
	})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "edit 0")
	assert.Len(t, f.setsOf(2), 3)
}

func TestCompleteWorkout(t *testing.T) {
	f := seeded()
	h := testHandlers(f, nil)
	w := decodeResult[models.Workout](t, callTool(t, h.completeWorkout, map[string]any{"workout_id": 2}))
	assert.Equal(t, models.StatusDone, w.Status)
}

func TestListTasksDefaultsToQueued(t *testing.T) {
	f := seeded()
	h := testHandlers(f, nil)
	list := decodeResult[[]models.Task](t, callTool(t, h.listTasks, map[string]any{}))
	require.Len(t, list, 1)
	assert.Equal(t, models.TaskQueued, f.status)
}

func TestThisWeekResource(t *testing.T) {
	h := testHandlers(seeded(), nil)
	var req mcp.ReadResourceRequest
	req.Params.URI = "coach://this_week"

	contents, err := h.thisWeek(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "coach://this_week", text.URI)

	var week weekResult
	require.NoError(t, json.Unmarshal([]byte(text.Text), &week))
	assert.Equal(t, models.Date("2025-10-13"), week.Start)
}

func TestFlexText(t *testing.T) {
	var e rowEdit
	require.NoError(t, json.Unmarshal([]byte(`{"op":"add","reps":8,"weight":"62.5","count":2}`), &e))
	edit := e.edit()
	assert.Equal(t, tracker.EditAdd, edit.Op)
	assert.Equal(t, "8", *edit.Reps)
	assert.Equal(t, "62.5", *edit.Weight)
	assert.Equal(t, "2", *edit.Count)
	assert.Nil(t, edit.Exercise)

	assert.Error(t, json.Unmarshal([]byte(`{"reps":[1]}`), &e))
}

func TestNewRegistersTools(t *testing.T) {
	s := New(Deps{Backend: seeded(), User: identity.Session{UserID: 1}}, "test")
	resp := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	for _, name := range []string{"get_week", "get_day", "get_workout", "add_workout", "update_set_rows", "complete_workout", "list_tasks"} {
		assert.Contains(t, string(data), `"`+name+`"`)
	}
}
