package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPingCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := app.client.Ping(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if app.JSON {
				return writeJSON(cmd, resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", app.client.BaseURL(), resp.Message)
			return nil
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the guest user this client acts as",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := app.session(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if app.JSON {
				return writeJSON(cmd, u)
			}
			renderUser(cmd.OutOrStdout(), u, app.client.BaseURL())
			return nil
		},
	}
}

func newHistoryCmd(app *App) *cobra.Command {
	var workoutID, limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent workout saves recorded locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.stateStore()
			if err != nil {
				return writeErr(cmd, err)
			}
			list, err := st.RecentSyncs(cmd.Context(), workoutID, limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			if app.JSON {
				return writeJSON(cmd, list)
			}
			renderSyncs(cmd.OutOrStdout(), list)
			return nil
		},
	}

	cmd.Flags().IntVar(&workoutID, "workout", 0, "Only saves of this workout")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries")
	return cmd
}
