package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/claude/futurecoach/internal/models"
)

// Chat sends the full transcript and returns the assistant's reply.
func (c *Client) Chat(ctx context.Context, req models.ChatRequest) (models.ChatReply, error) {
	return call[models.ChatReply](ctx, c, http.MethodPost, "/ai/chat", req)
}

// Interpret asks the backend to turn a conversation into structured proposals.
func (c *Client) Interpret(ctx context.Context, req models.InterpretRequest) (models.InterpretResult, error) {
	return call[models.InterpretResult](ctx, c, http.MethodPost, "/ai/plan/interpret", req)
}

// QueueTasks stores proposals in the approval queue. The backend skips items
// whose dedupe key it has already seen and returns the stored tasks.
func (c *Client) QueueTasks(ctx context.Context, items []models.TaskCreate) ([]models.Task, error) {
	if len(items) == 0 {
		return []models.Task{}, nil
	}
	return callList[models.Task](ctx, c, http.MethodPost, "/ai/tasks/queue", items)
}

// ListTasks returns a user's queued tasks, optionally filtered by status.
func (c *Client) ListTasks(ctx context.Context, userID int, status models.TaskStatus) ([]models.Task, error) {
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("user_id", fmt.Sprint(userID))
	if status != "" {
		q.Set("status", string(status))
	}
	return callList[models.Task](ctx, c, http.MethodGet, "/ai/tasks?"+q.Encode(), nil)
}

func (c *Client) ApproveTask(ctx context.Context, id int) (models.Task, error) {
	return c.decideTask(ctx, id, "approve")
}

func (c *Client) RejectTask(ctx context.Context, id int) (models.Task, error) {
	return c.decideTask(ctx, id, "reject")
}

func (c *Client) decideTask(ctx context.Context, id int, action string) (models.Task, error) {
	if err := checkID("task", id); err != nil {
		return models.Task{}, err
	}
	return call[models.Task](ctx, c, http.MethodPost, fmt.Sprintf("/ai/tasks/%d/%s", id, action), nil)
}
