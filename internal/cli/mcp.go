package cli

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	coachmcp "github.com/claude/futurecoach/internal/mcp"
)

func newMCPCmd(app *App, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the calendar to an AI assistant over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := app.session(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			app.log.Info("mcp server starting", "user_id", user.UserID, "backend", app.client.BaseURL())
			s := coachmcp.New(coachmcp.Deps{
				Backend: app.client,
				User:    user,
				Journal: app.store,
				Now:     app.now,
				Log:     app.log,
			}, version)
			return server.ServeStdio(s)
		},
	}
}
