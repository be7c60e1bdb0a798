package mcp

import (
	"github.com/claude/futurecoach/internal/api"
	"github.com/claude/futurecoach/internal/coach"
	"github.com/claude/futurecoach/internal/planner"
)

// Backend is the gateway surface used by the MCP tools.
type Backend interface {
	planner.Backend
	coach.TaskBackend
}

// Compile-time check: *api.Client satisfies Backend.
var _ Backend = (*api.Client)(nil)
