// Package console is the terminal front end of the journal. It renders the
// three views (authentication, dashboard, editor) and turns typed commands
// into SessionController operations.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-journal/internal/domain"
	"github.com/tbourn/go-journal/internal/services"
)

const dateLayout = "Jan 2, 2006"

var (
	titleStyle = color.New(color.Bold, color.Underline)
	faint      = color.New(color.Faint)
	accent     = color.New(color.FgHiMagenta)
	errStyle   = color.New(color.FgRed, color.Bold)
	okStyle    = color.New(color.FgGreen)

	labeler = cases.Title(language.English)
)

// MoodLabel is the display name of a mood, e.g. "Stressed".
func MoodLabel(m domain.Mood) string { return labeler.String(string(m)) }

// FilterLabel is the display name of a dashboard filter.
func FilterLabel(f services.MoodFilter) string {
	if f == services.FilterAll {
		return "All Memories"
	}
	return MoodLabel(domain.Mood(f))
}

// RenderAuth draws the sign-in screen.
func RenderAuth(w io.Writer) {
	_, _ = titleStyle.Fprintln(w, "Journal")
	_, _ = faint.Fprintln(w, "Your private space for reflection.")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "  login      sign in")
	_, _ = fmt.Fprintln(w, "  register   create an account")
	_, _ = fmt.Fprintln(w, "  quit")
}

// RenderDashboard draws the greeting, the filter bar and the visible
// entries, numbered for the edit and delete commands.
func RenderDashboard(w io.Writer, st services.State, filter services.MoodFilter, visible []domain.JournalEntry) {
	name := ""
	if st.User != nil {
		name = st.User.Name
	}
	_, _ = titleStyle.Fprintf(w, "Welcome back, %s\n", name)
	_, _ = faint.Fprintf(w, "%d %s\n\n", len(st.Entries), plural(len(st.Entries), "entry", "entries"))

	var bar []string
	for _, f := range services.Filters() {
		label := FilterLabel(f)
		if f == filter {
			label = "[" + label + "]"
		}
		bar = append(bar, label)
	}
	_, _ = fmt.Fprintln(w, strings.Join(bar, "  "))
	_, _ = fmt.Fprintln(w)

	switch {
	case st.IsLoadingEntries:
		_, _ = faint.Fprintln(w, "Loading...")
		return
	case len(visible) == 0 && filter == services.FilterAll:
		_, _ = faint.Fprintln(w, "No entries yet. Type 'new' to write your first one.")
		return
	case len(visible) == 0:
		_, _ = faint.Fprintf(w, "No %s memories.\n", strings.ToLower(FilterLabel(filter)))
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	tbl.Wrap = true
	for i, e := range visible {
		tbl.AddRow(fmt.Sprintf("%d.", i+1), e.Mood.Emoji(), e.Title, faint.Sprint(e.CreatedAt.Local().Format(dateLayout)))
		if len(e.Tags) > 0 {
			tbl.AddRow("", "", faint.Sprint("#"+strings.Join(e.Tags, " #")), "")
		}
		if e.HasReflection() {
			tbl.AddRow("", "", accent.Sprint(*e.AIReflection), "")
		}
	}
	_, _ = fmt.Fprintln(w, tbl)
	_, _ = fmt.Fprintln(w)
	_, _ = faint.Fprintln(w, "new | edit N | delete N | filter MOOD|all | refresh | logout | quit")
}

// RenderEditor draws the draft being edited.
func RenderEditor(w io.Writer, d services.DraftState, reflectionAvailable bool) {
	header := "Editing Entry"
	if d.IsNew {
		header = "New Entry"
	}
	_, _ = titleStyle.Fprintln(w, header)

	tbl := uitable.New()
	tbl.MaxColWidth = 70
	tbl.Wrap = true
	tbl.AddRow("Title:", d.Title)
	tbl.AddRow("Mood:", d.Mood.Emoji()+" "+MoodLabel(d.Mood))
	tbl.AddRow("Tags:", d.Tags)
	tbl.AddRow("Content:", d.Content)
	_, _ = fmt.Fprintln(w, tbl)

	if d.Reflection != nil {
		_, _ = fmt.Fprintln(w)
		_, _ = accent.Fprintln(w, "Reflection")
		_, _ = fmt.Fprintln(w, "  "+*d.Reflection)
	}
	if d.Error != "" {
		_, _ = errStyle.Fprintln(w, d.Error)
	}

	cmds := "title TEXT | content | mood MOOD | tags a, b"
	if reflectionAvailable {
		cmds += " | reflect"
	}
	if d.Reflection != nil {
		cmds += " | discard"
	}
	cmds += " | save | cancel"
	_, _ = fmt.Fprintln(w)
	_, _ = faint.Fprintln(w, cmds)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
