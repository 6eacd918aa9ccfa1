// Package report prints issues in the supported output formats.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"slices"

	"github.com/charmbracelet/lipgloss"

	"github.com/neurodesk/templint/pkg/issue"
)

// Formatter writes a batch of issues to w.
type Formatter func(w io.Writer, issues []issue.Issue) error

var formatters = map[string]Formatter{
	"compact": Compact,
	"json":    JSON,
	"stylish": Stylish,
}

// Get returns the formatter registered under name.
func Get(name string) (Formatter, error) {
	f, ok := formatters[name]
	if !ok {
		return nil, fmt.Errorf("unknown format %q", name)
	}
	return f, nil
}

func sorted(issues []issue.Issue) []issue.Issue {
	out := slices.Clone(issues)
	issue.Sort(out)
	return out
}

// Compact prints one issue per line.
func Compact(w io.Writer, issues []issue.Issue) error {
	for _, i := range sorted(issues) {
		if _, err := fmt.Fprintln(w, i.String()); err != nil {
			return err
		}
	}
	return nil
}

type jsonIssue struct {
	issue.Location
	Message string `json:"message"`
	Code    string `json:"code"`
}

// JSON prints the issues as a single array.
func JSON(w io.Writer, issues []issue.Issue) error {
	out := make([]jsonIssue, 0, len(issues))
	for _, i := range sorted(issues) {
		out = append(out, jsonIssue{Location: i.Location, Message: i.Message, Code: i.Code})
	}
	return json.NewEncoder(w).Encode(out)
}

// Stylish groups issues under their file path.
func Stylish(w io.Writer, issues []issue.Issue) error {
	r := lipgloss.NewRenderer(w)
	path := r.NewStyle().Underline(true)
	pos := r.NewStyle().Faint(true)

	for group := range chunkByFile(sorted(issues)) {
		if _, err := fmt.Fprintln(w, path.Render(group[0].Location.FilePath)); err != nil {
			return err
		}
		for _, i := range group {
			loc := fmt.Sprintf("%d:%d", i.Location.Line, i.Location.Column)
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", pos.Render(loc), i.Message, i.Code); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func chunkByFile(issues []issue.Issue) iter.Seq[[]issue.Issue] {
	return func(yield func([]issue.Issue) bool) {
		for len(issues) > 0 {
			n := 1
			for n < len(issues) && issues[n].Location.FilePath == issues[0].Location.FilePath {
				n++
			}
			if !yield(issues[:n]) {
				return
			}
			issues = issues[n:]
		}
	}
}

// Summary describes how many issues were reported. It is empty when there
// are none.
func Summary(n int) string {
	switch n {
	case 0:
		return ""
	case 1:
		return "1 error reported"
	}
	return fmt.Sprintf("%d errors reported", n)
}
