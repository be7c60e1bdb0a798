// Package server is the local view server: a JSON API over the planner,
// the open tracking session and the coach conversation, for a browser
// front-end.
package server

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/claude/futurecoach/internal/coach"
	"github.com/claude/futurecoach/internal/identity"
	"github.com/claude/futurecoach/internal/metrics"
	"github.com/claude/futurecoach/internal/models"
	"github.com/claude/futurecoach/internal/planner"
)

// Pinger checks that the backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) (models.PingResponse, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	planner *planner.Planner
	chat    *coach.Conversation
	tasks   *coach.Tasks
	backend Pinger
	user    identity.Session

	metrics  *metrics.Manager
	gatherer prometheus.Gatherer
	whois    WhoIser
	mcp      http.Handler

	log    *slog.Logger
	router chi.Router
}

type Option func(*Server)

func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithMetrics instruments every route and exposes g on /metrics.
func WithMetrics(m *metrics.Manager, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// WithTailscale resolves the viewer of each request through the tailnet.
func WithTailscale(w WhoIser) Option {
	return func(s *Server) { s.whois = w }
}

// WithMCP mounts an MCP streamable HTTP handler on /mcp.
func WithMCP(h http.Handler) Option {
	return func(s *Server) { s.mcp = h }
}

// New creates a new Server with all routes configured.
func New(p *planner.Planner, chat *coach.Conversation, tasks *coach.Tasks, backend Pinger, opts ...Option) *Server {
	s := &Server{
		planner: p,
		chat:    chat,
		tasks:   tasks,
		backend: backend,
		user:    p.User(),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		router:  chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(Recoverer(s.log, s.metrics))
	s.router.Use(RequestLogging(s.log))
	if s.metrics != nil {
		s.router.Use(Metrics(s.metrics))
	}
	s.router.Use(CORS)
	if s.whois != nil {
		s.router.Use(TailscaleIdentity(s.whois, s.log))
	} else {
		s.router.Use(DevIdentity)
	}

	s.router.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.mcp != nil {
		s.router.Handle("/mcp", s.mcp)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/me", s.handleMe)
		r.Get("/healthz", s.handleHealth)

		r.Get("/week", s.handleWeek)
		r.Post("/week/prev", s.handlePrevWeek)
		r.Post("/week/next", s.handleNextWeek)
		r.Post("/week/today", s.handleToday)
		r.Get("/days/{date}", s.handleDay)

		r.Post("/workouts", s.handleAddWorkout)
		r.Patch("/workouts/{id}", s.handleUpdateWorkout)
		r.Delete("/workouts/{id}", s.handleDeleteWorkout)
		r.Post("/workouts/{id}/move", s.handleMoveWorkout)
		r.Post("/workouts/{id}/open", s.handleOpenWorkout)

		r.Get("/session", s.handleSession)
		r.Delete("/session", s.handleCloseSession)
		r.Post("/session/reload", s.handleReloadSession)
		r.Post("/session/rows", s.handleAddRow)
		r.Patch("/session/rows/{idx}", s.handleUpdateRow)
		r.Delete("/session/rows/{idx}", s.handleRemoveRow)
		r.Post("/session/rows/{idx}/duplicate", s.handleDuplicateRow)
		r.Post("/session/save", s.handleSave)
		r.Post("/session/complete", s.handleComplete)

		r.Get("/chat", s.handleChat)
		r.Post("/chat", s.handleSend)
		r.Delete("/chat", s.handleResetChat)
		r.Put("/chat/scope", s.handleScope)
		r.Post("/chat/proposals/{idx}/confirm", s.handleConfirm)
		r.Delete("/chat/proposals/{idx}", s.handleDismiss)

		r.Get("/tasks", s.handleListTasks)
		r.Post("/tasks/{id}/approve", s.handleApproveTask)
		r.Post("/tasks/{id}/reject", s.handleRejectTask)
	})
}

// SetFrontend mounts a built front-end. Unmatched routes serve index.html
// for client-side routing.
func (s *Server) SetFrontend(webFS fs.FS) {
	fileServer := http.FileServerFS(webFS)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		f, err := webFS.Open(r.URL.Path[1:])
		if err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
