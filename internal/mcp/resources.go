package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/futurecoach/internal/calendar"
)

func (h *handlers) thisWeek(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	week, err := h.planner.GoToWeek(ctx, calendar.WeekOf(h.now()))
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(week)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
