package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/claude/futurecoach/internal/models"
)

// Ping calls the liveness endpoint.
func (c *Client) Ping(ctx context.Context) (models.PingResponse, error) {
	var out models.PingResponse
	if err := c.do(ctx, http.MethodGet, "/", nil, &out); err != nil {
		return out, err
	}
	if out.Message == "" {
		return out, &MalformedResponseError{Path: "/", Err: errors.New("missing message")}
	}
	return out, nil
}

// CreateUser registers a new user; the backend rejects duplicate usernames.
func (c *Client) CreateUser(ctx context.Context, username string) (models.User, error) {
	return call[models.User](ctx, c, http.MethodPost, "/users/", models.UserCreate{Username: username})
}

// EnsureUser returns the user with the given name, creating it if needed.
func (c *Client) EnsureUser(ctx context.Context, username string) (models.User, error) {
	return call[models.User](ctx, c, http.MethodPost, "/users/ensure", models.UserCreate{Username: username})
}

func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	return callList[models.User](ctx, c, http.MethodGet, "/users/", nil)
}

func (c *Client) GetUser(ctx context.Context, id int) (models.User, error) {
	if err := checkID("user", id); err != nil {
		return models.User{}, err
	}
	return call[models.User](ctx, c, http.MethodGet, fmt.Sprintf("/users/%d", id), nil)
}
