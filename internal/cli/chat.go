package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/claude/futurecoach/internal/coach"
)

func newChatCmd(app *App) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "chat [MESSAGE]",
		Short: "Talk to the coach",
		Long: `Talk to the coach. With a MESSAGE the reply is printed and the command
exits; without one an interactive session reads lines from stdin.

Session commands:
  /confirm N   queue proposal N for approval
  /dismiss N   drop proposal N
  /scope S     switch to planning, nutrition or general
  /reset       start over
  /quit        leave`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := app.session(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			conv := coach.New(app.client, user.UserID, coach.WithLogger(app.log), coach.WithScope(scope))

			if len(args) == 1 {
				snap, err := conv.Send(cmd.Context(), args[0])
				if err != nil {
					return writeErr(cmd, err)
				}
				if app.JSON {
					return writeJSON(cmd, snap)
				}
				renderChatTail(cmd.OutOrStdout(), snap, 1)
				return nil
			}
			return runChat(cmd.Context(), conv, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "general", "planning, nutrition or general")
	return cmd
}

// runChat is the interactive loop. Failures are printed and the loop goes on.
func runChat(ctx context.Context, conv *coach.Conversation, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "scope: %s  (/quit to leave)\n", conv.Snapshot().Scope)
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			before := len(conv.Snapshot().Messages)
			snap, err := conv.Send(ctx, line)
			if err != nil {
				fmt.Fprintln(out, mutedStyle.Render("error: "+err.Error()))
				continue
			}
			renderChatTail(out, snap, before+1)
			continue
		}

		name, arg, _ := strings.Cut(line[1:], " ")
		arg = strings.TrimSpace(arg)
		switch name {
		case "quit", "exit", "q":
			return nil
		case "reset":
			conv.Reset()
			fmt.Fprintln(out, mutedStyle.Render("conversation cleared"))
		case "scope":
			snap := conv.SetScope(arg)
			fmt.Fprintf(out, "scope: %s\n", snap.Scope)
		case "confirm":
			i, err := strconv.Atoi(arg)
			if err != nil {
				fmt.Fprintln(out, "usage: /confirm N")
				continue
			}
			task, snap, err := conv.Confirm(ctx, i)
			if err != nil {
				fmt.Fprintln(out, mutedStyle.Render("error: "+err.Error()))
				continue
			}
			fmt.Fprintf(out, "queued task #%d: %s\n", task.ID, task.Summary)
			renderProposals(out, snap.Proposals)
		case "dismiss":
			i, err := strconv.Atoi(arg)
			if err != nil {
				fmt.Fprintln(out, "usage: /dismiss N")
				continue
			}
			snap, err := conv.Dismiss(i)
			if err != nil {
				fmt.Fprintln(out, mutedStyle.Render("error: "+err.Error()))
				continue
			}
			renderProposals(out, snap.Proposals)
		default:
			fmt.Fprintf(out, "unknown command /%s\n", name)
		}
	}
}
