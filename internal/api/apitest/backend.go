// Package apitest provides an in-memory coaching backend that speaks the
// real wire format, for tests of the gateway's callers.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/claude/futurecoach/internal/models"
)

// Backend holds the fake's state. Tests may read and seed the exported
// fields directly between requests.
type Backend struct {
	URL string

	mu       sync.Mutex
	Workouts []models.Workout
	Sets     []models.Set
	Tasks    []models.Task
	Users    []models.User
	// FailSets makes POST /sets/bulk answer 422.
	FailSets bool
	nextID   int
	requests []string
}

// New starts the fake on an httptest server that is closed with the test.
func New(t testing.TB) *Backend {
	t.Helper()
	f := &Backend{nextID: 100}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			f.requests = append(f.requests, req.Method+" "+req.URL.Path)
			f.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, models.PingResponse{Message: "Future Coaching API"})
	})
	r.Post("/users/ensure", f.ensureUser)
	r.Post("/workouts/", f.createWorkout)
	r.Get("/workouts/by_user/{uid}/range_with_sets", f.listRange(true))
	r.Get("/workouts/by_user/{uid}/range", f.listRange(false))
	r.Get("/workouts/by_user/{uid}/on/{date}", f.listDay)
	r.Get("/workouts/{id}/detail", f.detail)
	r.Patch("/workouts/{id}", f.patchWorkout)
	r.Delete("/workouts/{id}", f.deleteWorkout)
	r.Get("/sets/by_workout/{id}", f.listSets)
	r.Post("/sets/bulk", f.bulkSets)
	r.Patch("/sets/{id}", f.patchSet)
	r.Delete("/sets/{id}", f.deleteSet)
	r.Post("/ai/chat", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, models.ChatReply{Role: models.RoleAssistant, Content: "Sounds good."})
	})
	r.Post("/ai/plan/interpret", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"assistant_text": "Here is a plan.",
			"proposals": []map[string]any{{
				"intent":  "add_workout",
				"payload": map[string]any{"date": "2025-10-17", "title": "Legs"},
				"summary": "Add Legs on Friday",
			}},
		})
	})
	r.Post("/ai/tasks/queue", f.queueTasks)
	r.Get("/ai/tasks", f.listTasks)
	r.Post("/ai/tasks/{id}/{action}", f.decideTask)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	f.URL = srv.URL
	return f
}

// Requests returns "METHOD /path" for every request served so far.
func (f *Backend) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.requests)
}

// SetsOf returns the stored sets of one workout.
func (f *Backend) SetsOf(id int) []models.Set {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setsOf(id)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *Backend) ensureUser(w http.ResponseWriter, r *http.Request) {
	var in models.UserCreate
	json.NewDecoder(r.Body).Decode(&in)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.Users {
		if u.Username == in.Username {
			writeJSON(w, http.StatusOK, u)
			return
		}
	}
	u := models.User{ID: f.id(), Username: in.Username}
	f.Users = append(f.Users, u)
	writeJSON(w, http.StatusOK, u)
}

func (f *Backend) id() int {
	f.nextID++
	return f.nextID
}

func (f *Backend) setsOf(id int) []models.Set {
	out := []models.Set{}
	for _, s := range f.Sets {
		if s.WorkoutID == id {
			out = append(out, s)
		}
	}
	return out
}

func (f *Backend) find(r *http.Request) (int, int) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	for i, w := range f.Workouts {
		if w.ID == id {
			return i, id
		}
	}
	return -1, id
}

func notFound(w http.ResponseWriter, what string) {
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": what + " not found"})
}

func (f *Backend) createWorkout(w http.ResponseWriter, r *http.Request) {
	var in models.WorkoutCreate
	json.NewDecoder(r.Body).Decode(&in)
	f.mu.Lock()
	defer f.mu.Unlock()
	wk := models.Workout{ID: f.id(), UserID: in.UserID, Title: in.Title, Notes: in.Notes, ScheduledFor: in.ScheduledFor, Status: in.Status.OrDefault()}
	f.Workouts = append(f.Workouts, wk)
	writeJSON(w, http.StatusOK, wk)
}

func (f *Backend) listRange(withSets bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := models.Date(r.URL.Query().Get("start"))
		end := models.Date(r.URL.Query().Get("end"))
		f.mu.Lock()
		defer f.mu.Unlock()
		out := []models.Workout{}
		for _, wk := range f.Workouts {
			if wk.ScheduledFor >= start && wk.ScheduledFor <= end {
				if withSets {
					wk.Sets = f.setsOf(wk.ID)
				}
				out = append(out, wk)
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (f *Backend) listDay(w http.ResponseWriter, r *http.Request) {
	day := models.Date(chi.URLParam(r, "date"))
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Workout{}
	for _, wk := range f.Workouts {
		if wk.ScheduledFor == day {
			out = append(out, wk)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *Backend) detail(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, id := f.find(r)
	if i < 0 {
		notFound(w, "Workout")
		return
	}
	wk := f.Workouts[i]
	wk.Sets = f.setsOf(id)
	writeJSON(w, http.StatusOK, wk)
}

func (f *Backend) patchWorkout(w http.ResponseWriter, r *http.Request) {
	var p models.WorkoutPatch
	json.NewDecoder(r.Body).Decode(&p)
	f.mu.Lock()
	defer f.mu.Unlock()
	i, _ := f.find(r)
	if i < 0 {
		notFound(w, "Workout")
		return
	}
	if p.Status != nil {
		f.Workouts[i].Status = *p.Status
	}
	if p.ScheduledFor != nil {
		f.Workouts[i].ScheduledFor = *p.ScheduledFor
	}
	if p.Title != nil {
		f.Workouts[i].Title = *p.Title
	}
	writeJSON(w, http.StatusOK, f.Workouts[i])
}

func (f *Backend) deleteWorkout(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, _ := f.find(r)
	if i < 0 {
		notFound(w, "Workout")
		return
	}
	f.Workouts = slices.Delete(f.Workouts, i, i+1)
	w.WriteHeader(http.StatusNoContent)
}

func (f *Backend) listSets(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.setsOf(id))
}

func (f *Backend) bulkSets(w http.ResponseWriter, r *http.Request) {
	var in models.SetBulkCreate
	json.NewDecoder(r.Body).Decode(&in)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSets {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "sets rejected"})
		return
	}
	out := []models.Set{}
	for range in.Count {
		s := models.Set{ID: f.id(), WorkoutID: in.WorkoutID, Exercise: in.Exercise, Reps: in.Reps, Weight: in.Weight}
		f.Sets = append(f.Sets, s)
		out = append(out, s)
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *Backend) patchSet(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	json.NewDecoder(r.Body).Decode(&body)
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Sets {
		if f.Sets[i].ID != id {
			continue
		}
		if v, ok := body["exercise"]; ok {
			json.Unmarshal(v, &f.Sets[i].Exercise)
		}
		if v, ok := body["reps"]; ok {
			json.Unmarshal(v, &f.Sets[i].Reps)
		}
		if v, ok := body["weight"]; ok {
			f.Sets[i].Weight = nil
			json.Unmarshal(v, &f.Sets[i].Weight)
		}
		writeJSON(w, http.StatusOK, f.Sets[i])
		return
	}
	notFound(w, "Set")
}

func (f *Backend) deleteSet(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sets = slices.DeleteFunc(f.Sets, func(s models.Set) bool { return s.ID == id })
	w.WriteHeader(http.StatusNoContent)
}

func (f *Backend) queueTasks(w http.ResponseWriter, r *http.Request) {
	var items []models.TaskCreate
	json.NewDecoder(r.Body).Decode(&items)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Task{}
	for _, it := range items {
		task := models.Task{ID: f.id(), UserID: it.UserID, Intent: it.Intent, Payload: it.Payload, Summary: it.Summary, Status: models.TaskQueued, DedupeKey: it.DedupeKey}
		f.Tasks = append(f.Tasks, task)
		out = append(out, task)
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *Backend) listTasks(w http.ResponseWriter, r *http.Request) {
	status := models.TaskStatus(r.URL.Query().Get("status"))
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Task{}
	for _, task := range f.Tasks {
		if task.Status == status {
			out = append(out, task)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *Backend) decideTask(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	status := models.TaskApproved
	if chi.URLParam(r, "action") == "reject" {
		status = models.TaskRejected
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Tasks {
		if f.Tasks[i].ID == id {
			f.Tasks[i].Status = status
			writeJSON(w, http.StatusOK, f.Tasks[i])
			return
		}
	}
	notFound(w, "Task")
}
