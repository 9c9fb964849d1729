// Package tui renders the post list and detail screens on a terminal.
package tui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/scipunch/blogreader/presenter"
	"github.com/scipunch/blogreader/render"
)

const defaultWidth = 80

// ListView prints the post list screen to a writer
type ListView struct {
	out       io.Writer
	useColors bool
	width     int

	emptyText string
	rows      []presenter.Record
}

func NewListView(out io.Writer) *ListView {
	v := &ListView{out: out, width: defaultWidth}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if _, noColor := os.LookupEnv("NO_COLOR"); !noColor {
			v.useColors = true
		}
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
			v.width = w
		}
	}
	return v
}

func (v *ListView) ShowProgress() {
	v.faint("Loading posts...\n")
}

func (v *ListView) HideProgress() {}

func (v *ListView) ShowNotice(message string) {
	if v.useColors {
		color.New(color.FgYellow).Fprintf(v.out, "%s\n", message)
		return
	}
	fmt.Fprintf(v.out, "%s\n", message)
}

func (v *ListView) ShowError(title, message string) {
	if v.useColors {
		color.New(color.FgRed, color.Bold).Fprintf(v.out, "\n%s\n", title)
		color.New(color.FgRed).Fprintf(v.out, "%s\n\n", message)
		return
	}
	fmt.Fprintf(v.out, "\n%s\n%s\n\n", title, message)
}

func (v *ListView) SetEmptyText(text string) {
	v.emptyText = text
	if len(v.rows) == 0 {
		v.faint(text + "\n")
	}
}

func (v *ListView) Bind(records []presenter.Record) {
	v.rows = records
	v.Redraw()
}

// Redraw prints the bound rows again, or the empty text when there are none
func (v *ListView) Redraw() {
	if len(v.rows) == 0 {
		if v.emptyText != "" {
			v.faint(v.emptyText + "\n")
		}
		return
	}
	indexWidth := len(fmt.Sprint(len(v.rows)))
	for i, r := range v.rows {
		prefix := fmt.Sprintf("%*d. ", indexWidth, i+1)
		title := clip(r.Title, v.width-len(prefix))
		if v.useColors {
			fmt.Fprintf(v.out, "%s%s\n", prefix, color.New(color.Bold).Sprint(title))
			color.New(color.Faint).Fprintf(v.out, "%s%s\n", strings.Repeat(" ", len(prefix)), r.Author)
			continue
		}
		fmt.Fprintf(v.out, "%s%s\n%s%s\n", prefix, title, strings.Repeat(" ", len(prefix)), r.Author)
	}
}

// ShowPage prints a rendered detail page
func (v *ListView) ShowPage(url string, page render.Page) {
	title := page.Title
	if title == "" {
		title = url
	}
	if v.useColors {
		color.New(color.FgWhite, color.Bold).Fprintf(v.out, "\n%s\n", title)
		color.New(color.FgCyan).Fprintf(v.out, "%s\n", url)
	} else {
		fmt.Fprintf(v.out, "\n%s\n%s\n", title, url)
	}
	fmt.Fprintf(v.out, "%s\n\n", strings.Repeat("─", min(utf8.RuneCountInString(title), v.width)))
	fmt.Fprintln(v.out, wrap(page.Text, v.width))
}

// Prompt prints the input hint
func (v *ListView) Prompt(hint string) {
	v.faint(hint + " > ")
}

func (v *ListView) Success(format string, args ...any) {
	if v.useColors {
		color.New(color.FgGreen).Fprintf(v.out, "✓ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(v.out, "✓ "+format+"\n", args...)
}

func (v *ListView) Failure(format string, args ...any) {
	if v.useColors {
		color.New(color.FgRed).Fprintf(v.out, "✗ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(v.out, "✗ "+format+"\n", args...)
}

func (v *ListView) faint(s string) {
	if v.useColors {
		color.New(color.Faint).Fprint(v.out, s)
		return
	}
	fmt.Fprint(v.out, s)
}

func clip(s string, limit int) string {
	if limit < 4 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-3]) + "..."
}

// wrap breaks paragraphs at word boundaries to fit width
func wrap(text string, width int) string {
	var b strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		col := 0
		for j, word := range strings.Fields(line) {
			n := utf8.RuneCountInString(word)
			if j > 0 {
				if col+1+n > width {
					b.WriteByte('\n')
					col = 0
				} else {
					b.WriteByte(' ')
					col++
				}
			}
			b.WriteString(word)
			col += n
		}
	}
	return b.String()
}
