// Package issue defines the findings reported by the linter.
package issue

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/neurodesk/templint/pkg/ast"
)

// Location is a position in a linted file. Line is 1-based and Column is
// 0-based.
type Location struct {
	FilePath string `json:"file_path"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.FilePath, l.Line, l.Column)
}

// Issue is a single problem found in a file. Issues are comparable values:
// two issues with the same location, message and code are the same issue.
type Issue struct {
	Location Location
	Message  string
	Code     string
}

// New builds an issue located at a parse tree position.
func New(path string, at ast.Location, message, code string) Issue {
	return Issue{
		Location: Location{FilePath: path, Line: at.Line + 1, Column: at.Column},
		Message:  message,
		Code:     code,
	}
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s (%s)", i.Location, i.Message, i.Code)
}

// Compare orders issues by file, line and column, then by code and message
// so that sorting is total.
func Compare(a, b Issue) int {
	return cmp.Or(
		cmp.Compare(a.Location.FilePath, b.Location.FilePath),
		cmp.Compare(a.Location.Line, b.Location.Line),
		cmp.Compare(a.Location.Column, b.Location.Column),
		cmp.Compare(a.Code, b.Code),
		cmp.Compare(a.Message, b.Message),
	)
}

// Sort sorts issues in place for display.
func Sort(issues []Issue) {
	slices.SortFunc(issues, Compare)
}

// Dedupe returns the issues sorted with exact duplicates removed.
func Dedupe(issues []Issue) []Issue {
	out := slices.Clone(issues)
	Sort(out)
	return slices.Compact(out)
}
