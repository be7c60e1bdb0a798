package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/claude/futurecoach/internal/models"
)

func (c *Client) ListSetsByWorkout(ctx context.Context, workoutID int) ([]models.Set, error) {
	if err := checkID("workout", workoutID); err != nil {
		return nil, err
	}
	return callList[models.Set](ctx, c, http.MethodGet, fmt.Sprintf("/sets/by_workout/%d", workoutID), nil)
}

func (c *Client) CreateSet(ctx context.Context, in models.SetCreate) (models.Set, error) {
	if err := checkID("workout", in.WorkoutID); err != nil {
		return models.Set{}, err
	}
	return call[models.Set](ctx, c, http.MethodPost, "/sets/", in)
}

// CreateSetsBulk creates Count identical sets in one request.
func (c *Client) CreateSetsBulk(ctx context.Context, in models.SetBulkCreate) ([]models.Set, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("api: bulk create sets: %w", err)
	}
	return callList[models.Set](ctx, c, http.MethodPost, "/sets/bulk", in)
}

func (c *Client) UpdateSet(ctx context.Context, id int, in models.SetUpdate) (models.Set, error) {
	if err := checkID("set", id); err != nil {
		return models.Set{}, err
	}
	return call[models.Set](ctx, c, http.MethodPatch, fmt.Sprintf("/sets/%d", id), in)
}

// DeleteSet removes one set. The backend answers 204.
func (c *Client) DeleteSet(ctx context.Context, id int) error {
	if err := checkID("set", id); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/sets/%d", id), nil, nil)
}
