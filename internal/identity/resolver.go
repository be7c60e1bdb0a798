package identity

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/claude/futurecoach/internal/models"
)

// Session is the user every request acts as. It is resolved once at startup
// and passed explicitly to the components that need it.
type Session struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
}

// UserEnsurer is the gateway call used to create or look up a guest.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, username string) (models.User, error)
}

// Cache stores the resolved user per backend.
type Cache interface {
	CachedUser(ctx context.Context, backendURL string) (Session, bool, error)
	SaveUser(ctx context.Context, backendURL string, sess Session) error
}

// Resolver returns the cached guest user or creates one.
type Resolver struct {
	users      UserEnsurer
	cache      Cache
	backendURL string
	prefix     string
	logger     *slog.Logger
	newSuffix  func() string
}

// NewResolver creates a Resolver. cache may be nil, in which case a new
// guest is ensured on every call.
func NewResolver(users UserEnsurer, cache Cache, backendURL, prefix string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if prefix == "" {
		prefix = "guest"
	}
	return &Resolver{
		users:      users,
		cache:      cache,
		backendURL: backendURL,
		prefix:     prefix,
		logger:     logger,
		newSuffix:  func() string { return uuid.NewString()[:6] },
	}
}

// GuestUsername builds "<prefix>-<6 random chars>".
func (r *Resolver) GuestUsername() string {
	return r.prefix + "-" + strings.ToLower(r.newSuffix())
}

// Resolve returns the cached user for the backend, ensuring a new guest when
// none is cached.
func (r *Resolver) Resolve(ctx context.Context) (Session, error) {
	if r.cache != nil {
		sess, ok, err := r.cache.CachedUser(ctx, r.backendURL)
		if err != nil {
			return Session{}, err
		}
		if ok && sess.UserID > 0 {
			return sess, nil
		}
	}

	username := r.GuestUsername()
	u, err := r.users.EnsureUser(ctx, username)
	if err != nil {
		return Session{}, fmt.Errorf("ensuring guest user %s: %w", username, err)
	}
	sess := Session{UserID: u.ID, Username: u.Username}
	r.logger.Info("created guest user", "user_id", u.ID, "username", u.Username)

	if r.cache != nil {
		if err := r.cache.SaveUser(ctx, r.backendURL, sess); err != nil {
			r.logger.Warn("caching guest user failed", "error", err)
		}
	}
	return sess, nil
}
