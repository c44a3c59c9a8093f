package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	storepkg "github.com/olimci/letitgo/pkg/store"
)

type styles struct {
	title   lipgloss.Style
	added   lipgloss.Style
	removed lipgloss.Style
	muted   lipgloss.Style
	warn    lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true),
		added:   r.NewStyle().Foreground(lipgloss.Color("2")),
		removed: r.NewStyle().Foreground(lipgloss.Color("1")),
		muted:   r.NewStyle().Faint(true),
		warn:    r.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

func printPaths(w io.Writer, st lipgloss.Style, marker string, paths []string) {
	for _, p := range paths {
		fmt.Fprintf(w, "  %s %s\n", st.Render(marker), p)
	}
}

func printRunSummary(w io.Writer, res storepkg.RunResult) {
	st := newStyles(w)

	if res.Preview {
		fmt.Fprintln(w, st.title.Render("Preview (nothing applied)"))
		printPaths(w, st.added, "+", res.Added)
		printPaths(w, st.removed, "-", res.Removed)
	}

	fmt.Fprintf(w, "%s %d repos, %s added, %s removed, %d excluded in total (%s, %s)\n",
		st.title.Render("letitgo:"),
		len(res.Repos),
		st.added.Render(fmt.Sprint(len(res.Added))),
		st.removed.Render(fmt.Sprint(len(res.Removed))),
		res.Total,
		res.Mode,
		res.Duration.Round(time.Millisecond),
	)

	if n := len(res.Warnings); n > 0 {
		fmt.Fprintln(w, st.warn.Render(fmt.Sprintf("%d warning(s):", n)))
		for _, warning := range res.Warnings {
			fmt.Fprintf(w, "  %s\n", warning)
		}
	}
	if res.Mismatch != nil {
		fmt.Fprintln(w, st.warn.Render(fmt.Sprintf(
			"cache was written in %s mode but %s is configured; run `letitgo reset` before switching modes",
			res.Mismatch.Cached, res.Mismatch.Configured)))
	}
}

func formatLastRun(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(time.RFC3339)
}
