package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/claude/futurecoach/internal/models"
	"github.com/claude/futurecoach/internal/planner"
	"github.com/claude/futurecoach/internal/tracker"
)

func newWorkoutCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workout",
		Short: "Workout commands",
	}
	cmd.AddCommand(newWorkoutAddCmd(app))
	cmd.AddCommand(newWorkoutShowCmd(app))
	cmd.AddCommand(newWorkoutEditCmd(app))
	cmd.AddCommand(newWorkoutCompleteCmd(app))
	cmd.AddCommand(newWorkoutDeleteCmd(app))
	cmd.AddCommand(newWorkoutMoveCmd(app))
	return cmd
}

func parseWorkoutID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid workout id %q", s)
	}
	return id, nil
}

func newWorkoutAddCmd(app *App) *cobra.Command {
	var title, notes, status string

	cmd := &cobra.Command{
		Use:   "add DATE",
		Short: "Schedule a workout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := models.ParseDate(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			var st models.Status
			if status != "" {
				if st, err = models.ParseStatus(status); err != nil {
					return writeErr(cmd, err)
				}
			}
			p, err := app.planner(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			w, _, err := p.AddWorkout(cmd.Context(), planner.NewWorkout{Date: day, Title: title, Notes: notes, Status: st})
			if err != nil && w.ID == 0 {
				return writeErr(cmd, err)
			}
			if app.JSON {
				return writeJSON(cmd, w)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added workout #%d %s on %s\n", w.ID, w.DisplayTitle(), w.ScheduledFor)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title (default \"Workout\")")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes")
	cmd.Flags().StringVar(&status, "status", "", "planned, done or rest (default planned)")
	return cmd
}

func newWorkoutShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a workout and its set rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseWorkoutID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := app.planner(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			v, err := p.OpenWorkout(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			if app.JSON {
				return writeJSON(cmd, v)
			}
			renderSession(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func newWorkoutEditCmd(app *App) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "edit ID EDIT...",
		Short: "Edit the set rows of a workout and save",
		Long: `Edit the set rows of a workout and save.

Each EDIT is one of:
  add:exercise=NAME,reps=N[,weight=W][,count=N]
  update:INDEX:FIELD=VALUE[,FIELD=VALUE...]
  remove:INDEX
  duplicate:INDEX

INDEX is the row number shown by "coach workout show". Edits apply in order,
so indexes refer to the rows as left by the previous edit. An empty weight
means bodyweight. The save stops at the first failing backend call; changes
already applied are kept.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseWorkoutID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			edits := make([]tracker.Edit, 0, len(args)-1)
			for _, a := range args[1:] {
				e, err := parseEdit(a)
				if err != nil {
					return writeErr(cmd, err)
				}
				edits = append(edits, e)
			}

			p, err := app.planner(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if _, err := p.OpenWorkout(cmd.Context(), id); err != nil {
				return writeErr(cmd, err)
			}
			sess, err := p.Session()
			if err != nil {
				return writeErr(cmd, err)
			}
			var v tracker.View
			for i, e := range edits {
				if v, err = sess.ApplyEdit(e); err != nil {
					return writeErr(cmd, fmt.Errorf("edit %d: %w", i+1, err))
				}
			}

			if dryRun {
				ops := tracker.Plan(v.Groups, v.Rows, id)
				if app.JSON {
					return writeJSON(cmd, ops)
				}
				renderOps(cmd.OutOrStdout(), ops)
				return nil
			}

			v, err = p.SaveWorkout(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if app.JSON {
				return writeJSON(cmd, v)
			}
			renderSession(cmd.OutOrStdout(), v)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the backend calls instead of saving")
	return cmd
}

func newWorkoutCompleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "complete ID",
		Short: "Mark a workout as done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseWorkoutID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := app.planner(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if _, err := p.OpenWorkout(cmd.Context(), id); err != nil {
				return writeErr(cmd, err)
			}
			v, err := p.CompleteWorkout(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if app.JSON {
				return writeJSON(cmd, v.Workout)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "workout #%d %s\n", v.Workout.ID, statusChip(v.Workout.Status))
			return nil
		},
	}
}

func newWorkoutDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a workout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseWorkoutID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := app.planner(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if _, err := p.DeleteWorkout(cmd.Context(), id); err != nil {
				return writeErr(cmd, err)
			}
			if app.JSON {
				return writeJSON(cmd, map[string]int{"deleted": id})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted workout #%d\n", id)
			return nil
		},
	}
}

func newWorkoutMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "move ID DATE",
		Short: "Reschedule a workout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseWorkoutID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			day, err := models.ParseDate(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := app.planner(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			w, _, err := p.MoveWorkout(cmd.Context(), id, day)
			if err != nil && w.ID == 0 {
				return writeErr(cmd, err)
			}
			if app.JSON {
				return writeJSON(cmd, w)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "moved workout #%d to %s\n", w.ID, w.ScheduledFor)
			return nil
		},
	}
}
