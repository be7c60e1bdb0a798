// Package cli implements the coach command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/claude/futurecoach/internal/api"
	"github.com/claude/futurecoach/internal/config"
	"github.com/claude/futurecoach/internal/identity"
	"github.com/claude/futurecoach/internal/logging"
	"github.com/claude/futurecoach/internal/planner"
)

type App struct {
	ConfigPath string
	EnvFile    string
	BackendURL string
	StateDir   string
	LogLevel   string
	JSON       bool

	now func() time.Time

	cfg      *config.Config
	log      *slog.Logger
	closeLog func() error
	client   *api.Client
	store    *identity.Store
	user     *identity.Session
}

func NewRootCmd(version string) *cobra.Command {
	return newRootCmd(&App{now: time.Now}, version)
}

func newRootCmd(app *App, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "coach",
		Short:         "Future Coaching client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Show this week's plan
  coach week

  # Add three sets of bench press to workout 12 and save
  coach workout edit 12 add:exercise=Bench,reps=5,weight=185,count=3

  # Talk to the coach
  coach chat --scope planning
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := app.setup(cmd); err != nil {
			return writeErr(cmd, err)
		}
		return nil
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return app.close()
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("COACH_CONFIG", ""), "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&app.EnvFile, "env-file", ".env", "Env file loaded before COACH_* overrides (missing is fine)")
	cmd.PersistentFlags().StringVar(&app.BackendURL, "backend", "", "Backend base URL (overrides config)")
	cmd.PersistentFlags().StringVar(&app.StateDir, "state-dir", "", "Local state directory (overrides config)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().BoolVar(&app.JSON, "json", false, "Print JSON instead of text")

	cmd.AddCommand(newPingCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newWeekCmd(app))
	cmd.AddCommand(newDayCmd(app))
	cmd.AddCommand(newWorkoutCmd(app))
	cmd.AddCommand(newChatCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newHistoryCmd(app))
	cmd.AddCommand(newMCPCmd(app, version))

	return cmd
}

// setup loads config and builds the logger and gateway client. The state
// store and the user are opened lazily by the commands that need them.
func (app *App) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(app.ConfigPath, app.EnvFile)
	if err != nil {
		return err
	}
	if app.BackendURL != "" {
		cfg.Backend.BaseURL = app.BackendURL
	}
	if app.StateDir != "" {
		cfg.State.Dir = app.StateDir
	}
	if app.LogLevel != "" {
		cfg.Log.Level = app.LogLevel
	}
	app.cfg = cfg

	log, closeLog, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	app.log, app.closeLog = log, closeLog

	app.client = api.New(cfg.Backend.BaseURL,
		api.WithHTTPClient(&http.Client{Timeout: cfg.Backend.Timeout}),
		api.WithLogger(log),
	)
	if app.now == nil {
		app.now = time.Now
	}
	return nil
}

func (app *App) close() error {
	var err error
	if app.store != nil {
		err = app.store.Close()
		app.store = nil
	}
	if app.closeLog != nil {
		if cerr := app.closeLog(); err == nil {
			err = cerr
		}
		app.closeLog = nil
	}
	return err
}

func (app *App) stateStore() (*identity.Store, error) {
	if app.store != nil {
		return app.store, nil
	}
	st, err := identity.OpenStore(app.cfg.State.Dir)
	if err != nil {
		return nil, err
	}
	app.store = st
	return st, nil
}

// session resolves the guest user, creating one on first use against a
// backend.
func (app *App) session(ctx context.Context) (identity.Session, error) {
	if app.user != nil {
		return *app.user, nil
	}
	st, err := app.stateStore()
	if err != nil {
		return identity.Session{}, err
	}
	r := identity.NewResolver(app.client, st, app.client.BaseURL(), app.cfg.Identity.UsernamePrefix, app.log)
	sess, err := r.Resolve(ctx)
	if err != nil {
		return identity.Session{}, err
	}
	app.user = &sess
	return sess, nil
}

func (app *App) planner(ctx context.Context) (*planner.Planner, error) {
	user, err := app.session(ctx)
	if err != nil {
		return nil, err
	}
	return planner.New(app.client, user,
		planner.WithClock(app.now),
		planner.WithLogger(app.log),
		planner.WithJournal(app.store),
	), nil
}

func envOr(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
	return err
}
