package server

import "net/http"

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chat.Snapshot())
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	snap, err := s.chat.Send(r.Context(), body.Text)
	if err != nil {
		s.log.Warn("chat send failed", "error", err)
		writeJSON(w, errorStatus(err), map[string]any{"error": err.Error(), "chat": snap})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleResetChat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chat.Reset())
}

func (s *Server) handleScope(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Scope string `json:"scope"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	writeJSON(w, http.StatusOK, s.chat.SetScope(body.Scope))
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathInt(w, r, "idx")
	if !ok {
		return
	}
	task, snap, err := s.chat.Confirm(r.Context(), idx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": task, "chat": snap})
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathInt(w, r, "idx")
	if !ok {
		return
	}
	snap, err := s.chat.Dismiss(idx)
	writeState(w, snap, err)
}
