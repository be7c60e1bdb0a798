package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/claude/futurecoach/internal/coach"
	"github.com/claude/futurecoach/internal/models"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Review queued coach proposals",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTaskDecisionCmd(app, "approve", "Approve a queued task", (*coach.Tasks).Approve))
	cmd.AddCommand(newTaskDecisionCmd(app, "reject", "Reject a queued task", (*coach.Tasks).Reject))
	return cmd
}

func (app *App) tasks(ctx context.Context) (*coach.Tasks, error) {
	user, err := app.session(ctx)
	if err != nil {
		return nil, err
	}
	return coach.NewTasks(app.client, user.UserID), nil
}

func newTasksListCmd(app *App) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.tasks(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			list, err := t.List(cmd.Context(), models.TaskStatus(status))
			if err != nil {
				return writeErr(cmd, err)
			}
			if app.JSON {
				return writeJSON(cmd, list)
			}
			renderTasks(cmd.OutOrStdout(), list)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "queued", "queued, approved or rejected")
	return cmd
}

func newTaskDecisionCmd(app *App, verb, short string, decide func(*coach.Tasks, context.Context, int) (models.Task, error)) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return writeErr(cmd, fmt.Errorf("invalid task id %q", args[0]))
			}
			t, err := app.tasks(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			task, err := decide(t, cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			if app.JSON {
				return writeJSON(cmd, task)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "task #%d %s\n", task.ID, task.Status)
			return nil
		},
	}
}
