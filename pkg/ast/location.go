package ast

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// Location is a position in a source file. Line and Column are 0-based,
// Column counts characters (not bytes) since the start of the line and Index
// is the byte offset into the source.
type Location struct {
	Line   int
	Column int
	Index  int
}

// String renders the location the way humans count lines: 1-based line,
// 0-based column.
func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line+1, l.Column)
}

// Span marks the first character of a node (From) and the offset right after
// its last character (To).
type Span struct {
	From Location
	To   Location
}

func (s Span) Begin() Location { return s.From }
func (s Span) End() Location   { return s.To }

// LineIndex converts byte offsets into Locations for one source text.
type LineIndex struct {
	src    string
	starts []int
}

// NewLineIndex records the start offset of every line in src.
func NewLineIndex(src string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{src: src, starts: starts}
}

// Location returns the position of the byte offset. Offsets past the end of
// the source are clamped to it.
func (x *LineIndex) Location(offset int) Location {
	if offset < 0 {
		offset = 0
	}
	if offset > len(x.src) {
		offset = len(x.src)
	}
	line := sort.Search(len(x.starts), func(i int) bool { return x.starts[i] > offset }) - 1
	start := x.starts[line]
	return Location{
		Line:   line,
		Column: utf8.RuneCountInString(x.src[start:offset]),
		Index:  offset,
	}
}

// Span returns the span between two byte offsets.
func (x *LineIndex) Span(from, to int) Span {
	return Span{From: x.Location(from), To: x.Location(to)}
}

// LineBeginning returns the text between the start of the line containing
// offset and offset itself.
func (x *LineIndex) LineBeginning(offset int) string {
	loc := x.Location(offset)
	return x.src[x.starts[loc.Line]:loc.Index]
}
