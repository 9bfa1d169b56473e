// Package report renders the result of `skriptls check` for terminals.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/akhenakh/skriptls/internal/diagnostic"
)

// Result is the outcome of checking one file.
type Result struct {
	Path     string                  `json:"path"`
	Errors   []diagnostic.Diagnostic `json:"errors"`
	Warnings []diagnostic.Diagnostic `json:"warnings"`
	Err      error                   `json:"-"`
}

// Failed reports whether the file has errors or could not be checked.
func (r Result) Failed() bool { return r.Err != nil || len(r.Errors) > 0 }

// Options control the text rendering.
type Options struct {
	Color bool
	// Width bounds message cells; zero leaves them untouched.
	Width int
}

// IsTerminal reports whether f is a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// TerminalOptions returns the options for f: colour and width when f is a
// terminal, plain output otherwise.
func TerminalOptions(f *os.File) Options {
	if !IsTerminal(f) {
		return Options{}
	}
	opts := Options{Color: true}
	if w, _, err := term.GetSize(int(f.Fd())); err == nil {
		opts.Width = w
	}
	return opts
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	okColor      = color.New(color.FgGreen, color.Bold)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

// WriteText renders results as one summary line per file followed by the
// Line | Error tables of its errors and warnings.
func WriteText(w io.Writer, results []Result, opts Options) error {
	paint := func(c *color.Color, s string) string {
		if !opts.Color {
			return s
		}
		return c.Sprint(s)
	}

	for _, r := range results {
		if r.Err != nil {
			if _, err := fmt.Fprintf(w, "%s: %s\n", r.Path, paint(errorColor, r.Err.Error())); err != nil {
				return err
			}
			continue
		}
		counts := paint(errorColor, plural(len(r.Errors), "error")) + ", " +
			paint(warningColor, plural(len(r.Warnings), "warning"))
		if len(r.Errors) == 0 && len(r.Warnings) == 0 {
			counts = paint(okColor, "ok")
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", r.Path, counts); err != nil {
			return err
		}
		for _, list := range [][]diagnostic.Diagnostic{r.Errors, r.Warnings} {
			if len(list) == 0 {
				continue
			}
			if _, err := fmt.Fprintln(w, Table(list, opts)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Table renders diagnostics as a two column Line | Error table.
func Table(diags []diagnostic.Diagnostic, opts Options) string {
	rows := make([][]string, len(diags))
	for i, d := range diags {
		rows[i] = []string{strconv.Itoa(d.Line), truncate(d.Message, opts.Width)}
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Line", "Error").
		Rows(rows...)
	if opts.Color {
		t = t.StyleFunc(func(row, _ int) lipgloss.Style {
			if row == 0 { // header
				return headerStyle
			}
			return cellStyle
		})
	} else {
		t = t.StyleFunc(func(int, int) lipgloss.Style { return cellStyle })
	}
	return t.Render()
}

// truncate shortens s so that a table row fits in width columns.
func truncate(s string, width int) string {
	const overhead = 16 // line column and borders
	if width <= overhead {
		return s
	}
	return runewidth.Truncate(s, width-overhead, "...")
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}

type jsonResult struct {
	Result
	Error string `json:"error,omitempty"`
}

// WriteJSON writes results as an indented JSON array.
func WriteJSON(w io.Writer, results []Result) error {
	out := make([]jsonResult, len(results))
	for i, r := range results {
		out[i] = jsonResult{Result: r}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
		if out[i].Errors == nil {
			out[i].Errors = []diagnostic.Diagnostic{}
		}
		if out[i].Warnings == nil {
			out[i].Warnings = []diagnostic.Diagnostic{}
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
