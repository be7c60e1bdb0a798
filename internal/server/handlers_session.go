package server

import (
	"net/http"

	"github.com/claude/futurecoach/internal/tracker"
)

// withSession runs fn against the open tracking session.
func (s *Server) withSession(w http.ResponseWriter, fn func(*tracker.Session) (tracker.View, error)) {
	sess, err := s.planner.Session()
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := fn(sess)
	writeState(w, v, err)
}

func (s *Server) handleOpenWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	v, err := s.planner.OpenWorkout(r.Context(), id)
	writeState(w, v, err)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, func(sess *tracker.Session) (tracker.View, error) {
		return sess.View(), nil
	})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	s.planner.CloseWorkout()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReloadSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, func(sess *tracker.Session) (tracker.View, error) {
		return sess.Reload(r.Context())
	})
}

func (s *Server) handleAddRow(w http.ResponseWriter, r *http.Request) {
	var in tracker.RowInput
	if !decodeBody(w, r, &in) {
		return
	}
	sess, err := s.planner.Session()
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := sess.AddRow(in)
	if err != nil && !isStateError(err) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeState(w, v, err)
}

func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathInt(w, r, "idx")
	if !ok {
		return
	}
	var patch tracker.RowPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	s.withSession(w, func(sess *tracker.Session) (tracker.View, error) {
		return sess.UpdateRow(idx, patch)
	})
}

func (s *Server) handleRemoveRow(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathInt(w, r, "idx")
	if !ok {
		return
	}
	s.withSession(w, func(sess *tracker.Session) (tracker.View, error) {
		return sess.RemoveRow(idx)
	})
}

func (s *Server) handleDuplicateRow(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathInt(w, r, "idx")
	if !ok {
		return
	}
	s.withSession(w, func(sess *tracker.Session) (tracker.View, error) {
		return sess.DuplicateRow(idx)
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	v, err := s.planner.SaveWorkout(r.Context())
	writeState(w, v, err)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	v, err := s.planner.CompleteWorkout(r.Context())
	writeState(w, v, err)
}

// isStateError reports errors that have their own status mapping.
func isStateError(err error) bool {
	return errorStatus(err) != http.StatusInternalServerError
}
