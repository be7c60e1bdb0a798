package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/futurecoach/internal/calendar"
	"github.com/claude/futurecoach/internal/models"
	"github.com/claude/futurecoach/internal/planner"
	"github.com/claude/futurecoach/internal/tracker"
)

// --- Tool definitions ---

var toolGetWeek = mcp.NewTool("get_week",
	mcp.WithDescription("Get one Monday-to-Sunday week of scheduled workouts, bucketed by day, with sets embedded when available."),
	mcp.WithString("date", mcp.Description("Any day inside the wanted week (YYYY-MM-DD). Defaults to today.")),
	mcp.WithNumber("offset", mcp.Description("Weeks relative to the week of date, e.g. -1 for the previous week. Defaults to 0.")),
)

var toolGetDay = mcp.NewTool("get_day",
	mcp.WithDescription("List the workouts scheduled on one day."),
	mcp.WithString("date", mcp.Required(), mcp.Description("Day (YYYY-MM-DD)")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get a workout with its sets grouped into logical rows. A row is a run of identical sets (exercise, reps, weight) with a count; row indexes are used by update_set_rows."),
	mcp.WithNumber("workout_id", mcp.Required(), mcp.Description("Workout ID")),
)

var toolAddWorkout = mcp.NewTool("add_workout",
	mcp.WithDescription("Schedule a new workout on a day."),
	mcp.WithString("date", mcp.Required(), mcp.Description("Day (YYYY-MM-DD)")),
	mcp.WithString("title", mcp.Description("Title. Defaults to 'Workout'.")),
	mcp.WithString("notes", mcp.Description("Free-form notes")),
	mcp.WithString("status", mcp.Description("Initial status. Defaults to planned."), mcp.Enum("planned", "done", "rest")),
)

var toolUpdateSetRows = mcp.NewTool("update_set_rows",
	mcp.WithDescription("Edit the logical set rows of a workout and save. Edits apply in order against the rows returned by get_workout. Ops: add (new row), update (change fields of row index), remove (delete all sets of row index), duplicate (copy row index as a new row). Saving stops at the first failing backend call; already applied changes are kept."),
	mcp.WithNumber("workout_id", mcp.Required(), mcp.Description("Workout ID")),
	mcp.WithArray("edits", mcp.Required(), mcp.Description("Row edits"), mcp.Items(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"op":       map[string]any{"type": "string", "enum": []string{"add", "update", "remove", "duplicate"}},
			"index":    map[string]any{"type": "integer", "description": "Row index for update, remove and duplicate"},
			"exercise": map[string]any{"type": "string"},
			"reps":     map[string]any{"type": []string{"integer", "string"}},
			"weight":   map[string]any{"type": []string{"number", "string"}, "description": "Blank for bodyweight"},
			"count":    map[string]any{"type": []string{"integer", "string"}, "description": "Number of sets in the row"},
		},
		"required": []string{"op"},
	})),
)

var toolCompleteWorkout = mcp.NewTool("complete_workout",
	mcp.WithDescription("Mark a workout as done. The status only changes if the workout's sets are saved first."),
	mcp.WithNumber("workout_id", mcp.Required(), mcp.Description("Workout ID")),
)

var toolListTasks = mcp.NewTool("list_tasks",
	mcp.WithDescription("List coach proposals in the approval queue."),
	mcp.WithString("status", mcp.Description("Task status. Defaults to queued."), mcp.Enum("queued", "approved", "rejected")),
)

// --- Tool handlers ---

func (h *handlers) getWeek(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	week := calendar.WeekOf(h.now())
	if date := req.GetString("date", ""); date != "" {
		w, err := calendar.ParseWeek(date, h.now().Location())
		if err != nil {
			return mcp.NewToolResultError("invalid date: " + err.Error()), nil
		}
		week = w
	}
	offset := req.GetInt("offset", 0)
	week = calendar.Week{Start: calendar.AddDays(week.Start, 7*offset)}

	view, err := h.planner.GoToWeek(ctx, week)
	if err != nil {
		h.log.Error("mcp get_week", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(view)
}

func (h *handlers) getDay(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError("date parameter is required"), nil
	}
	day, err := models.ParseDate(date)
	if err != nil {
		return mcp.NewToolResultError("invalid date: " + err.Error()), nil
	}

	list, err := h.planner.RefreshDay(ctx, day)
	if err != nil {
		h.log.Error("mcp get_day", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(list)
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("workout_id")
	if err != nil {
		return mcp.NewToolResultError("workout_id parameter is required"), nil
	}

	sess, err := h.open(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sess.View())
}

func (h *handlers) addWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError("date parameter is required"), nil
	}
	day, err := models.ParseDate(date)
	if err != nil {
		return mcp.NewToolResultError("invalid date: " + err.Error()), nil
	}
	var status models.Status
	if s := req.GetString("status", ""); s != "" {
		if status, err = models.ParseStatus(s); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	created, _, err := h.planner.AddWorkout(ctx, planner.NewWorkout{
		Date:   day,
		Title:  req.GetString("title", ""),
		Notes:  req.GetString("notes", ""),
		Status: status,
	})
	if err != nil {
		h.log.Error("mcp add_workout", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(created)
}

// rowEdit is one entry of update_set_rows.
type rowEdit struct {
	Op       string    `json:"op"`
	Index    int       `json:"index"`
	Exercise *flexText `json:"exercise"`
	Reps     *flexText `json:"reps"`
	Weight   *flexText `json:"weight"`
	Count    *flexText `json:"count"`
}

// flexText accepts a JSON string or number; assistants send either.
type flexText string

func (f *flexText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("want string or number, got %s", b)
	}
	*f = flexText(n.String())
	return nil
}

func (f *flexText) ptr() *string {
	if f == nil {
		return nil
	}
	s := string(*f)
	return &s
}

func (e rowEdit) edit() tracker.Edit {
	return tracker.Edit{
		Op:       tracker.EditOp(e.Op),
		Index:    e.Index,
		Exercise: e.Exercise.ptr(),
		Reps:     e.Reps.ptr(),
		Weight:   e.Weight.ptr(),
		Count:    e.Count.ptr(),
	}
}

func (h *handlers) updateSetRows(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		WorkoutID int       `json:"workout_id"`
		Edits     []rowEdit `json:"edits"`
	}
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}
	if args.WorkoutID <= 0 {
		return mcp.NewToolResultError("workout_id parameter is required"), nil
	}
	if len(args.Edits) == 0 {
		return mcp.NewToolResultError("edits must not be empty"), nil
	}

	sess, err := h.open(ctx, args.WorkoutID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for i, e := range args.Edits {
		if _, err := sess.ApplyEdit(e.edit()); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("edit %d (%s): %v", i, e.Op, err)), nil
		}
	}

	view, err := sess.Save(ctx)
	if err != nil {
		h.log.Error("mcp update_set_rows", "workout_id", args.WorkoutID, "error", err)
		return mcp.NewToolResultError("save failed: " + err.Error()), nil
	}
	return jsonResult(view)
}

func (h *handlers) completeWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("workout_id")
	if err != nil {
		return mcp.NewToolResultError("workout_id parameter is required"), nil
	}

	sess, err := h.open(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := sess.Complete(ctx)
	if err != nil {
		h.log.Error("mcp complete_workout", "workout_id", id, "error", err)
		return mcp.NewToolResultError("complete failed: " + err.Error()), nil
	}
	return jsonResult(view.Workout)
}

func (h *handlers) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := models.TaskStatus(req.GetString("status", ""))
	list, err := h.tasks.List(ctx, status)
	if err != nil {
		h.log.Error("mcp list_tasks", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(list)
}

// open starts a tracking session private to one tool call.
func (h *handlers) open(ctx context.Context, id int) (*tracker.Session, error) {
	opts := []tracker.SessionOption{tracker.WithLogger(h.log)}
	if h.journal != nil {
		opts = append(opts, tracker.WithJournal(h.journal))
	}
	return tracker.Open(ctx, h.backend, id, opts...)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
