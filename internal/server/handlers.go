package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/claude/futurecoach/internal/api"
	"github.com/claude/futurecoach/internal/calendar"
	"github.com/claude/futurecoach/internal/coach"
	"github.com/claude/futurecoach/internal/models"
	"github.com/claude/futurecoach/internal/planner"
	"github.com/claude/futurecoach/internal/tracker"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":  s.user.UserID,
		"username": s.user.Username,
		"viewer":   userInfoFromContext(r),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ping, err := s.backend.Ping(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "backend": ping.Message})
}

func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	if start == "" {
		v, err := s.planner.LoadWeek(r.Context())
		writeState(w, v, err)
		return
	}
	week, err := calendar.ParseWeek(start, s.planner.Week().Start.Location())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start must be YYYY-MM-DD"})
		return
	}
	v, err := s.planner.GoToWeek(r.Context(), week)
	writeState(w, v, err)
}

func (s *Server) handlePrevWeek(w http.ResponseWriter, r *http.Request) {
	v, err := s.planner.PrevWeek(r.Context())
	writeState(w, v, err)
}

func (s *Server) handleNextWeek(w http.ResponseWriter, r *http.Request) {
	v, err := s.planner.NextWeek(r.Context())
	writeState(w, v, err)
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	v, err := s.planner.Today(r.Context())
	writeState(w, v, err)
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	day, err := models.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return
	}
	list, err := s.planner.RefreshDay(r.Context(), day)
	writeState(w, list, err)
}

func (s *Server) handleAddWorkout(w http.ResponseWriter, r *http.Request) {
	var in planner.NewWorkout
	if !decodeBody(w, r, &in) {
		return
	}
	if !in.Date.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return
	}
	if in.Status != "" && !in.Status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid status %q", in.Status)})
		return
	}
	created, v, err := s.planner.AddWorkout(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"workout": created, "week": v})
}

func (s *Server) handleUpdateWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var patch models.WorkoutPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if err := patch.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	updated, err := s.planner.UpdateWorkout(r.Context(), id, patch)
	writeState(w, updated, err)
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	v, err := s.planner.DeleteWorkout(r.Context(), id)
	writeState(w, v, err)
}

func (s *Server) handleMoveWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Date models.Date `json:"date"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if !body.Date.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return
	}
	moved, v, err := s.planner.MoveWorkout(r.Context(), id, body.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workout": moved, "week": v})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	status := models.TaskStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid status %q", status)})
		return
	}
	list, err := s.tasks.List(r.Context(), status)
	writeState(w, list, err)
}

func (s *Server) handleApproveTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	task, err := s.tasks.Approve(r.Context(), id)
	writeState(w, task, err)
}

func (s *Server) handleRejectTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	task, err := s.tasks.Reject(r.Context(), id)
	writeState(w, task, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeState writes v, or the error when err is set.
func writeState(w http.ResponseWriter, v any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// writeError maps an error to a status: 409 while busy, 404 for missing
// local state, 400 for bad input and 502 for anything the backend refused.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errorStatus(err), map[string]string{"error": err.Error()})
}

func errorStatus(err error) int {
	var remote *api.RemoteRequestError
	var malformed *api.MalformedResponseError
	switch {
	case errors.Is(err, tracker.ErrBusy), errors.Is(err, tracker.ErrStale), errors.Is(err, coach.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, planner.ErrNoSession),
		errors.Is(err, tracker.ErrRowIndex),
		errors.Is(err, coach.ErrProposalIndex):
		return http.StatusNotFound
	case errors.Is(err, coach.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.As(err, &remote), errors.As(err, &malformed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return 0, false
	}
	return n, true
}
