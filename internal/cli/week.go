package cli

import (
	"github.com/spf13/cobra"

	"github.com/claude/futurecoach/internal/calendar"
	"github.com/claude/futurecoach/internal/models"
)

func newWeekCmd(app *App) *cobra.Command {
	var offset int
	var date string

	cmd := &cobra.Command{
		Use:   "week",
		Short: "Show a Monday-to-Sunday week of workouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.planner(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			week := p.Week()
			if date != "" {
				if week, err = calendar.ParseWeek(date, app.now().Location()); err != nil {
					return writeErr(cmd, err)
				}
			}
			if offset != 0 {
				week = calendar.Week{Start: calendar.AddDays(week.Start, 7*offset)}
			}

			view, err := p.GoToWeek(cmd.Context(), week)
			if err != nil {
				return writeErr(cmd, err)
			}
			if app.JSON {
				return writeJSON(cmd, view)
			}
			renderWeek(cmd.OutOrStdout(), view)
			return nil
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "Weeks relative to the current (or --date) week")
	cmd.Flags().StringVar(&date, "date", "", "Any day inside the week (YYYY-MM-DD)")
	return cmd
}

func newDayCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "day DATE",
		Short: "List the workouts of one day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := models.ParseDate(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := app.planner(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			list, err := p.RefreshDay(cmd.Context(), day)
			if err != nil {
				return writeErr(cmd, err)
			}
			if app.JSON {
				return writeJSON(cmd, list)
			}
			renderDay(cmd.OutOrStdout(), day, list)
			return nil
		},
	}
}
