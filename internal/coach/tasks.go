package coach

import (
	"context"
	"fmt"

	"github.com/claude/futurecoach/internal/models"
)

// TaskBackend is the gateway surface of the approval queue.
type TaskBackend interface {
	ListTasks(ctx context.Context, userID int, status models.TaskStatus) ([]models.Task, error)
	ApproveTask(ctx context.Context, id int) (models.Task, error)
	RejectTask(ctx context.Context, id int) (models.Task, error)
}

// Tasks reviews the queued proposals of one user.
type Tasks struct {
	backend TaskBackend
	userID  int
}

func NewTasks(backend TaskBackend, userID int) *Tasks {
	return &Tasks{backend: backend, userID: userID}
}

// List returns the user's tasks; an empty status lists queued ones.
func (t *Tasks) List(ctx context.Context, status models.TaskStatus) ([]models.Task, error) {
	if status == "" {
		status = models.TaskQueued
	}
	if !status.Valid() {
		return nil, fmt.Errorf("invalid task status %q", status)
	}
	list, err := t.backend.ListTasks(ctx, t.userID, status)
	if err != nil {
		return nil, fmt.Errorf("listing %s tasks: %w", status, err)
	}
	return list, nil
}

func (t *Tasks) Approve(ctx context.Context, id int) (models.Task, error) {
	task, err := t.backend.ApproveTask(ctx, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("approving task %d: %w", id, err)
	}
	return task, nil
}

func (t *Tasks) Reject(ctx context.Context, id int) (models.Task, error) {
	task, err := t.backend.RejectTask(ctx, id)
	if err != nil {
		return models.Task{}, fmt.Errorf("rejecting task %d: %w", id, err)
	}
	return task, nil
}
