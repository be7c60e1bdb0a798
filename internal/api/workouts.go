package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/claude/futurecoach/internal/models"
)

// CreateWorkout schedules a new workout.
func (c *Client) CreateWorkout(ctx context.Context, in models.WorkoutCreate) (models.Workout, error) {
	if err := in.Validate(); err != nil {
		return models.Workout{}, fmt.Errorf("api: create workout: %w", err)
	}
	return call[models.Workout](ctx, c, http.MethodPost, "/workouts/", in)
}

// ListWorkoutsByUser returns every workout of a user with sets embedded.
func (c *Client) ListWorkoutsByUser(ctx context.Context, userID int) ([]models.Workout, error) {
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	return callList[models.Workout](ctx, c, http.MethodGet, fmt.Sprintf("/workouts/by_user/%d/with_sets", userID), nil)
}

// ListWorkoutsInRange returns workouts scheduled within [start, end], inclusive.
func (c *Client) ListWorkoutsInRange(ctx context.Context, userID int, start, end models.Date) ([]models.Workout, error) {
	return c.listRange(ctx, userID, "range", start, end)
}

// ListWorkoutsInRangeWithSets is ListWorkoutsInRange with sets embedded.
func (c *Client) ListWorkoutsInRangeWithSets(ctx context.Context, userID int, start, end models.Date) ([]models.Workout, error) {
	return c.listRange(ctx, userID, "range_with_sets", start, end)
}

func (c *Client) listRange(ctx context.Context, userID int, variant string, start, end models.Date) ([]models.Workout, error) {
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	if !start.Valid() || !end.Valid() {
		return nil, fmt.Errorf("api: invalid range %q..%q", start, end)
	}
	q := url.Values{}
	q.Set("start", start.String())
	q.Set("end", end.String())
	path := fmt.Sprintf("/workouts/by_user/%d/%s?%s", userID, variant, q.Encode())
	return callList[models.Workout](ctx, c, http.MethodGet, path, nil)
}

// ListWorkoutsOnDay returns the workouts scheduled on exactly one day.
func (c *Client) ListWorkoutsOnDay(ctx context.Context, userID int, day models.Date) ([]models.Workout, error) {
	if err := checkID("user", userID); err != nil {
		return nil, err
	}
	if !day.Valid() {
		return nil, fmt.Errorf("api: invalid day %q", day)
	}
	return callList[models.Workout](ctx, c, http.MethodGet, fmt.Sprintf("/workouts/by_user/%d/on/%s", userID, day), nil)
}

// GetWorkoutDetail returns one workout with its sets.
func (c *Client) GetWorkoutDetail(ctx context.Context, id int) (models.Workout, error) {
	if err := checkID("workout", id); err != nil {
		return models.Workout{}, err
	}
	return call[models.Workout](ctx, c, http.MethodGet, fmt.Sprintf("/workouts/%d/detail", id), nil)
}

// UpdateWorkout applies a partial update. Some deployments only route the
// trailing-slash variant, so a 404 is retried once against /workouts/{id}/.
func (c *Client) UpdateWorkout(ctx context.Context, id int, patch models.WorkoutPatch) (models.Workout, error) {
	if err := checkID("workout", id); err != nil {
		return models.Workout{}, err
	}
	if err := patch.Validate(); err != nil {
		return models.Workout{}, fmt.Errorf("api: update workout %d: %w", id, err)
	}
	path := fmt.Sprintf("/workouts/%d", id)
	w, err := call[models.Workout](ctx, c, http.MethodPatch, path, patch)
	if err != nil && StatusCode(err) == http.StatusNotFound {
		c.logger.Debug("retrying workout patch with trailing slash", "workout_id", id)
		return call[models.Workout](ctx, c, http.MethodPatch, path+"/", patch)
	}
	return w, err
}

// DeleteWorkout removes a workout and its sets. The backend answers 204.
func (c *Client) DeleteWorkout(ctx context.Context, id int) error {
	if err := checkID("workout", id); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/workouts/%d", id), nil, nil)
}
