package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/claude/futurecoach/internal/models"
)

// newTestServer creates an httptest server that routes requests to handler
// functions keyed by "METHOD path".
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.Method+" "+r.URL.Path]
		if !ok {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []string
	codes []int
}

func (f *fakeRecorder) ObserveRequest(method, route string, status int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method+" "+route)
	f.codes = append(f.codes, status)
}

// TestErrorDetailString verifies a string detail becomes the error message.
// TestDefaultClientHasNoTimeout verifies requests are bounded only by the
// caller's context unless an http.Client is supplied.
func TestDefaultClientHasNoTimeout(t *testing.T) {
	c := New("http://example.invalid")
	if c.httpClient.Timeout != 0 {
		t.Errorf("timeout = %v, want none", c.httpClient.Timeout)
	}
	hc := &http.Client{Timeout: 5 * time.Second}
	if got := New("http://example.invalid", WithHTTPClient(hc)).httpClient; got != hc {
		t.Error("WithHTTPClient was not applied")
	}
}

func TestErrorDetailString(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"POST /users/": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusBadRequest, map[string]string{"detail": "Username already exists"})
		},
	})

	_, err := New(ts.URL).CreateUser(context.Background(), "guest-abc123")
	var re *RemoteRequestError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *RemoteRequestError", err)
	}
	if re.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", re.StatusCode)
	}
	if err.Error() != "Username already exists" {
		t.Errorf("message = %q", err.Error())
	}
}

// TestErrorDetailFallsBackToStatusLine verifies a body without detail yields
// the raw status line.
func TestErrorDetailFallsBackToStatusLine(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /users/7": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, "nope")
		},
	})

	_, err := New(ts.URL).GetUser(context.Background(), 7)
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "404 Not Found" {
		t.Errorf("message = %q, want 404 Not Found", err.Error())
	}
	if StatusCode(err) != http.StatusNotFound {
		t.Errorf("StatusCode = %d", StatusCode(err))
	}
}

// TestErrorDetailStructured verifies validation error lists are reported as
// their JSON text.
func TestErrorDetailStructured(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"POST /sets/": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = io.WriteString(w, `{"detail":[{"loc":["body","reps"],"msg":"field required"}]}`)
		},
	})

	_, err := New(ts.URL).CreateSet(context.Background(), models.SetCreate{WorkoutID: 1, Exercise: "Bench"})
	if err == nil {
		t.Fatal("expected error")
	}
	want := `[{"loc":["body","reps"],"msg":"field required"}]`
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

// TestTransportFailure verifies a refused connection surfaces as a
// RemoteRequestError with status 0 that unwraps to the cause.
func TestTransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	rec := &fakeRecorder{}
	_, err := New(url, WithRecorder(rec)).Ping(context.Background())
	var re *RemoteRequestError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *RemoteRequestError", err)
	}
	if re.StatusCode != 0 {
		t.Errorf("status = %d, want 0", re.StatusCode)
	}
	if re.Unwrap() == nil {
		t.Error("expected wrapped transport error")
	}
	if len(rec.codes) != 1 || rec.codes[0] != 0 {
		t.Errorf("recorded codes = %v, want [0]", rec.codes)
	}
}

// TestMalformedResponse verifies schema violations on 2xx responses are a
// distinct error kind.
func TestMalformedResponse(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /workouts/3/detail": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusOK, map[string]any{"id": 3, "user_id": 1, "status": "skipped"})
		},
		"GET /workouts/4/detail": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, "<html>")
		},
		"GET /workouts/5/detail": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	})

	c := New(ts.URL)
	for _, id := range []int{3, 4, 5} {
		_, err := c.GetWorkoutDetail(context.Background(), id)
		var me *MalformedResponseError
		if !errors.As(err, &me) {
			t.Errorf("workout %d: err = %v, want *MalformedResponseError", id, err)
		}
		var re *RemoteRequestError
		if errors.As(err, &re) {
			t.Errorf("workout %d: malformed response reported as remote error", id)
		}
	}
}

// TestMalformedProposal verifies proposals are schema-checked per intent.
func TestMalformedProposal(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"POST /ai/plan/interpret": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusOK, map[string]any{
				"proposals": []map[string]any{
					{"intent": "move_workout", "payload": map[string]any{"workout_id": 0, "new_date": "2025-10-17"}},
				},
			})
		},
	})

	_, err := New(ts.URL).Interpret(context.Background(), models.InterpretRequest{UserID: 1})
	var me *MalformedResponseError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v, want *MalformedResponseError", err)
	}
}

// TestInvalidIDRejectedLocally verifies no request is issued for ids <= 0.
func TestInvalidIDRejectedLocally(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{})
	c := New(ts.URL)
	ctx := context.Background()

	if _, err := c.GetWorkoutDetail(ctx, 0); err == nil {
		t.Error("GetWorkoutDetail(0): expected error")
	}
	if err := c.DeleteSet(ctx, -1); err == nil {
		t.Error("DeleteSet(-1): expected error")
	}
	done := models.StatusDone
	if _, err := c.UpdateWorkout(ctx, 0, models.WorkoutPatch{Status: &done}); err == nil {
		t.Error("UpdateWorkout(0): expected error")
	}
	if _, err := c.ListTasks(ctx, 0, ""); err == nil {
		t.Error("ListTasks(0): expected error")
	}
}

func TestRouteTemplate(t *testing.T) {
	cases := map[string]string{
		"/workouts/12/detail":                               "/workouts/{id}/detail",
		"/workouts/by_user/3/on/2025-10-16":                 "/workouts/by_user/{id}/on/{date}",
		"/workouts/by_user/3/range?start=2025-10-13&end=x": "/workouts/by_user/{id}/range",
		"/":     "/",
		"/sets/": "/sets/",
	}
	for in, want := range cases {
		if got := routeTemplate(in); got != want {
			t.Errorf("routeTemplate(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestRecorderObservesTemplates verifies the recorder sees collapsed routes.
func TestRecorderObservesTemplates(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"DELETE /sets/42": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		},
	})
	rec := &fakeRecorder{}
	if err := New(ts.URL, WithRecorder(rec)).DeleteSet(context.Background(), 42); err != nil {
		t.Fatal(err)
	}
	if len(rec.calls) != 1 || rec.calls[0] != "DELETE /sets/{id}" {
		t.Errorf("calls = %v", rec.calls)
	}
	if rec.codes[0] != http.StatusNoContent {
		t.Errorf("code = %d, want 204", rec.codes[0])
	}
}

func TestPing(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusOK, map[string]string{"message": "Future Coaching API"})
		},
	})
	got, err := New(ts.URL + "/").Ping(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got.Message != "Future Coaching API" {
		t.Errorf("message = %q", got.Message)
	}
}
