// Package mcp exposes the coaching calendar and tracker to AI assistants over
// the Model Context Protocol.
package mcp

import (
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/futurecoach/internal/coach"
	"github.com/claude/futurecoach/internal/identity"
	"github.com/claude/futurecoach/internal/planner"
	"github.com/claude/futurecoach/internal/tracker"
)

// Deps are the collaborators of the MCP handlers. Journal and Now are
// optional.
type Deps struct {
	Backend Backend
	User    identity.Session
	Journal tracker.Journal
	Now     func() time.Time
	Log     *slog.Logger
}

// New creates an MCP server with all tools and resources registered.
func New(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer("Future Coach", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Future Coaching calendar. Read the user's weekly workout plan, inspect and edit the sets of a workout, add and complete workouts, and review queued coach proposals. Dates are YYYY-MM-DD; weeks start on Monday."),
	)

	h := newHandlers(deps)

	s.AddTools(
		server.ServerTool{Tool: toolGetWeek, Handler: h.getWeek},
		server.ServerTool{Tool: toolGetDay, Handler: h.getDay},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolAddWorkout, Handler: h.addWorkout},
		server.ServerTool{Tool: toolUpdateSetRows, Handler: h.updateSetRows},
		server.ServerTool{Tool: toolCompleteWorkout, Handler: h.completeWorkout},
		server.ServerTool{Tool: toolListTasks, Handler: h.listTasks},
	)

	s.AddResources(
		server.ServerResource{Resource: resThisWeek, Handler: h.thisWeek},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	backend Backend
	planner *planner.Planner
	tasks   *coach.Tasks
	journal tracker.Journal
	now     func() time.Time
	log     *slog.Logger
}

func newHandlers(deps Deps) *handlers {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	opts := []planner.Option{planner.WithClock(deps.Now), planner.WithLogger(deps.Log)}
	if deps.Journal != nil {
		opts = append(opts, planner.WithJournal(deps.Journal))
	}
	return &handlers{
		backend: deps.Backend,
		planner: planner.New(deps.Backend, deps.User, opts...),
		tasks:   coach.NewTasks(deps.Backend, deps.User.UserID),
		journal: deps.Journal,
		now:     deps.Now,
		log:     deps.Log,
	}
}

// --- Resource definitions ---

var resThisWeek = mcp.NewResource(
	"coach://this_week",
	"This Week",
	mcp.WithResourceDescription("The current Monday-to-Sunday week with each day's workouts and their sets"),
	mcp.WithMIMEType("application/json"),
)
