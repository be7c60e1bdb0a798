package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/claude/futurecoach/internal/coach"
	"github.com/claude/futurecoach/internal/identity"
	"github.com/claude/futurecoach/internal/models"
	"github.com/claude/futurecoach/internal/planner"
	"github.com/claude/futurecoach/internal/tracker"
)

const dayColumnWidth = 16

var (
	colorMuted  = lipgloss.Color("#6c757d")
	colorAccent = lipgloss.Color("#5f9fb0")

	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)

	dayStyle = lipgloss.NewStyle().
			Width(dayColumnWidth).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))
	todayStyle = dayStyle.BorderForeground(colorAccent)

	chipStyles = map[models.Status]lipgloss.Style{
		models.StatusPlanned: lipgloss.NewStyle().Foreground(colorAccent).Bold(true),
		models.StatusDone:    lipgloss.NewStyle().Foreground(lipgloss.Color("#4caf50")).Bold(true),
		models.StatusRest:    lipgloss.NewStyle().Foreground(colorMuted).Bold(true),
	}
)

func statusChip(s models.Status) string {
	return chipStyles[s.OrDefault()].Render(s.Label())
}

func formatWeight(w *float64) string {
	if w == nil {
		return "BW"
	}
	return strconv.FormatFloat(*w, 'f', -1, 64)
}

// renderWeek draws the week as seven bordered day columns.
func renderWeek(out io.Writer, v planner.WeekView) {
	cols := make([]string, 0, len(v.Days))
	for _, d := range v.Days {
		var b strings.Builder
		head := d.Weekday + " " + string(d.Date)[8:]
		b.WriteString(titleStyle.Render(head))
		if len(d.Workouts) == 0 {
			b.WriteString("\n" + mutedStyle.Render("-"))
		}
		for _, w := range d.Workouts {
			fmt.Fprintf(&b, "\n#%d %s\n%s", w.ID, w.DisplayTitle(), statusChip(w.Status))
			if n := len(w.Sets); n > 0 {
				b.WriteString(mutedStyle.Render(fmt.Sprintf(" %d sets", n)))
			}
		}
		style := dayStyle
		if d.Today {
			style = todayStyle
		}
		cols = append(cols, style.Render(b.String()))
	}
	fmt.Fprintln(out, titleStyle.Render(v.Label))
	fmt.Fprintln(out, lipgloss.JoinHorizontal(lipgloss.Top, cols...))
}

func renderDay(out io.Writer, day models.Date, list []models.Workout) {
	fmt.Fprintln(out, titleStyle.Render(string(day)))
	if len(list) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("no workouts"))
		return
	}
	for _, w := range list {
		fmt.Fprintf(out, "#%-5d %-24s %s\n", w.ID, w.DisplayTitle(), statusChip(w.Status))
	}
}

// renderSession prints the workout header and its logical rows. Row numbers
// are the indexes accepted by "workout edit".
func renderSession(out io.Writer, v tracker.View) {
	w := v.Workout
	fmt.Fprintf(out, "%s  #%d  %s  %s\n", titleStyle.Render(w.DisplayTitle()), w.ID, w.ScheduledFor, statusChip(w.Status))
	if strings.TrimSpace(w.Notes) != "" {
		fmt.Fprintln(out, mutedStyle.Render(w.Notes))
	}
	if len(v.Rows) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("no sets"))
		return
	}
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%3s  %-20s %5s %7s %5s", "#", "Exercise", "Reps", "Weight", "Sets")))
	for i, r := range v.Rows {
		fmt.Fprintf(out, "%3d  %-20s %5d %7s %5d\n", i, r.Exercise, r.Reps, formatWeight(r.Weight), r.Count)
	}
	if v.Dirty {
		fmt.Fprintln(out, mutedStyle.Render("unsaved changes"))
	}
}

func renderOps(out io.Writer, ops []tracker.Op) {
	if len(ops) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("nothing to save"))
		return
	}
	for _, op := range ops {
		fmt.Fprintln(out, op.String())
	}
}

func renderProposals(out io.Writer, ps []models.Proposal) {
	for i, p := range ps {
		conf := mutedStyle.Render(fmt.Sprintf("(%.0f%%)", p.Confidence*100))
		fmt.Fprintf(out, "  [%d] %s %s %s\n", i, titleStyle.Render(string(p.Intent)), p.Summary, conf)
	}
}

// renderChatTail prints the messages appended after the first skip entries.
func renderChatTail(out io.Writer, snap coach.Snapshot, skip int) {
	for _, m := range snap.Messages[min(skip, len(snap.Messages)):] {
		if m.Role != models.RoleAssistant {
			continue
		}
		fmt.Fprintf(out, "%s %s\n", lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("coach:"), m.Content)
	}
	if len(snap.Proposals) > 0 {
		fmt.Fprintln(out, mutedStyle.Render("proposals (/confirm N, /dismiss N):"))
		renderProposals(out, snap.Proposals)
	}
}

func renderTasks(out io.Writer, list []models.Task) {
	if len(list) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("no tasks"))
		return
	}
	for _, t := range list {
		fmt.Fprintf(out, "#%-5d %-9s %-15s %s\n", t.ID, t.Status, t.Intent, t.Summary)
	}
}

func renderUser(out io.Writer, u identity.Session, backend string) {
	fmt.Fprintf(out, "%s (user %d) on %s\n", titleStyle.Render(u.Username), u.UserID, backend)
}

func renderSyncs(out io.Writer, list []identity.SyncRecord) {
	if len(list) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("no saves recorded"))
		return
	}
	for _, r := range list {
		outcome := "ok"
		if r.Err != "" {
			outcome = r.Err
		}
		fmt.Fprintf(out, "%s  workout %-5d %-8s %d/%d  %s\n",
			r.RecordedAt.Format("2006-01-02 15:04"), r.WorkoutID, r.Action, r.Applied, r.Planned, outcome)
	}
}
