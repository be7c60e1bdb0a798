// Package identity resolves the guest user the client acts as and keeps the
// small amount of local state the client owns: the cached user per backend
// and a journal of save attempts.
package identity

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/claude/futurecoach/internal/tracker"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store is the local SQLite state database.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) dir/state.db and applies pending migrations.
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}
	dbPath := filepath.Join(dir, "state.db")

	if err := runMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func runMigrations(dbPath string) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+dbPath)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the state database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CachedUser returns the user cached for backendURL, if any.
func (s *Store) CachedUser(ctx context.Context, backendURL string) (Session, bool, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, username FROM identities WHERE backend_url = ?`, backendURL,
	).Scan(&sess.UserID, &sess.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("reading cached user: %w", err)
	}
	return sess, true, nil
}

// SaveUser caches the user for backendURL, replacing any previous entry.
func (s *Store) SaveUser(ctx context.Context, backendURL string, sess Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO identities (backend_url, user_id, username, created_at) VALUES (?, ?, ?, ?)`,
		backendURL, sess.UserID, sess.Username, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("caching user: %w", err)
	}
	return nil
}

// ForgetUser drops the cached user so the next Resolve creates a new guest.
func (s *Store) ForgetUser(ctx context.Context, backendURL string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM identities WHERE backend_url = ?`, backendURL); err != nil {
		return fmt.Errorf("forgetting user: %w", err)
	}
	return nil
}

// RecordSync implements tracker.Journal.
func (s *Store) RecordSync(ctx context.Context, e tracker.SyncEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_journal (workout_id, action, ops_planned, ops_applied, error, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.WorkoutID, e.Action, e.Planned, e.Applied, e.Err, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("recording sync: %w", err)
	}
	return nil
}

// SyncRecord is one journal row.
type SyncRecord struct {
	tracker.SyncEntry
	RecordedAt time.Time `json:"recorded_at"`
}

// RecentSyncs returns up to limit journal rows, newest first. A workoutID of
// 0 returns rows for every workout.
func (s *Store) RecentSyncs(ctx context.Context, workoutID, limit int) ([]SyncRecord, error) {
	query := `SELECT workout_id, action, ops_planned, ops_applied, error, recorded_at FROM sync_journal`
	args := []any{}
	if workoutID > 0 {
		query += ` WHERE workout_id = ?`
		args = append(args, workoutID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sync journal: %w", err)
	}
	defer rows.Close()

	var out []SyncRecord
	for rows.Next() {
		var r SyncRecord
		var ms int64
		if err := rows.Scan(&r.WorkoutID, &r.Action, &r.Planned, &r.Applied, &r.Err, &ms); err != nil {
			return nil, fmt.Errorf("scanning sync journal: %w", err)
		}
		r.RecordedAt = time.UnixMilli(ms)
		out = append(out, r)
	}
	return out, rows.Err()
}

var _ tracker.Journal = (*Store)(nil)
