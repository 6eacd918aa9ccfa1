package rules

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/neurodesk/templint/pkg/ast"
	"github.com/neurodesk/templint/pkg/issue"
	"github.com/neurodesk/templint/pkg/lint"
)

const IndentCode = "indent"

// Indent checks that indentation uses one character consistently and, for
// space indentation, that it follows the nesting of the tree. opts is "tab"
// or the number of spaces per level.
func Indent(f *lint.File, opts any) ([]issue.Issue, error) {
	if s, ok := opts.(string); ok && s == "tab" {
		return indentChars(f, '\t', "Should be indented with tabs"), nil
	}
	size, err := indentSize(opts)
	if err != nil {
		return nil, err
	}
	out := indentChars(f, ' ', "Should be indented with spaces")
	c := &indentChecker{file: f, size: size}
	if err := c.content(0, f.Tree, false, false); err != nil {
		return nil, err
	}
	return append(out, c.issues...), nil
}

func indentSize(opts any) (int, error) {
	switch v := opts.(type) {
	case int:
		if v >= 0 {
			return v, nil
		}
	case int64:
		if v >= 0 {
			return int(v), nil
		}
	case uint64:
		return int(v), nil
	case float64:
		if v >= 0 && v == float64(int(v)) {
			return int(v), nil
		}
	}
	return 0, fmt.Errorf("indent: want \"tab\" or a non-negative integer, got %v", opts)
}

// indentChars reports every line whose leading whitespace holds anything
// other than want.
func indentChars(f *lint.File, want rune, message string) []issue.Issue {
	var out []issue.Issue
	for i, line := range f.Lines {
		lead := line[:len(line)-len(strings.TrimLeftFunc(line, unicode.IsSpace))]
		if strings.Trim(lead, string(want)) != "" {
			out = append(out, issue.New(f.Path, ast.Location{Line: i}, message, IndentCode))
		}
	}
	return out
}

type indentChecker struct {
	file   *lint.File
	size   int
	issues []issue.Issue
}

func (c *indentChecker) report(at ast.Location, format string, args ...any) {
	c.issues = append(c.issues, issue.New(c.file.Path, at, fmt.Sprintf(format, args...), IndentCode))
}

// level returns the indentation of the line holding n, or false when
// something other than whitespace precedes n on that line.
func (c *indentChecker) level(n ast.Node) (int, bool) {
	before := c.file.LineBeginning(n.Begin())
	if strings.TrimSpace(before) != "" {
		return 0, false
	}
	return utf8.RuneCountInString(before), true
}

func (c *indentChecker) indent(expected int, n ast.Node, inline, sameLine bool) {
	got, ok := c.level(n)
	if !ok {
		if !inline && !sameLine {
			c.report(n.Begin(), "%q should be on the next line", truncate(n.String(), 16))
		}
		return
	}
	if got != expected {
		c.report(n.Begin(), "Bad indentation, expected %d, got %d", expected, got)
	}
}

func (c *indentChecker) node(expected int, n ast.Node, inline, sameLine bool) error {
	c.indent(expected, n, inline, sameLine)
	switch n := n.(type) {
	case *ast.Attribute:
		return c.attribute(expected, n)
	case *ast.Element:
		return c.element(expected, n, inline)
	case *ast.String:
		return c.string(n, inline, sameLine)
	case *ast.TemplateElement:
		return c.templateElement(expected, n, inline, sameLine)
	case *ast.TemplateElementPart:
		return c.templateElementPart(expected, n, inline, sameLine)
	case *ast.OptionalContainer:
		return c.optionalContainer(expected, n, inline)
	case *ast.Comment, *ast.Integer, *ast.TemplateComment, *ast.TemplateTag, *ast.TemplateVariable:
		return nil
	}
	return fmt.Errorf("%w: unexpected %T node at %s", lint.ErrInternal, n, n.Begin())
}

func (c *indentChecker) attribute(expected int, a *ast.Attribute) error {
	if a.Value == nil {
		return nil
	}
	if a.From.Line != a.Value.From.Line {
		c.report(a.Begin(), "The value must begin on line %d", a.From.Line+1)
	}
	return c.content(expected, a.Value, a.Value.From.Line == a.Value.To.Line, true)
}

func (c *indentChecker) openingTag(expected int, t *ast.OpeningTag, inline bool) error {
	attrs := t.Attributes.Nodes()
	if len(attrs) == 0 || t.From.Line == t.To.Line {
		return nil
	}
	first := attrs[0]
	if err := c.node(expected+c.size, first, isAttribute(first), false); err != nil {
		return err
	}
	attrLevel := utf8.RuneCountInString(c.file.LineBeginning(first.Begin()))
	if inline {
		attrLevel = expected
	}
	for _, a := range attrs[1:] {
		if err := c.node(attrLevel, a, isAttribute(a), false); err != nil {
			return err
		}
	}
	return nil
}

func isAttribute(n ast.Node) bool {
	_, ok := n.(*ast.Attribute)
	return ok
}

// string checks a quoted value against the column its text starts at.
func (c *indentChecker) string(s *ast.String, inline, sameLine bool) error {
	if s.Value.From.Line != s.Value.To.Line {
		inline = false
	}
	return c.content(s.Value.From.Column, s.Value, inline, sameLine)
}

func (c *indentChecker) templateElementPart(expected int, p *ast.TemplateElementPart, inline, sameLine bool) error {
	if err := c.node(expected, p.Tag, inline, sameLine); err != nil {
		return err
	}
	if p.From.Line != p.To.Line {
		inline = false
	}
	if p.Content == nil {
		return nil
	}
	level := expected
	if !inline {
		level += c.size
	}
	return c.content(level, p.Content, inline, false)
}

func (c *indentChecker) templateElement(expected int, e *ast.TemplateElement, inline, sameLine bool) error {
	if e.From.Line == e.To.Line {
		inline = true
	}
	for _, p := range e.Parts {
		if err := c.node(expected, p, inline, sameLine); err != nil {
			return err
		}
	}
	if e.Close != nil {
		c.indent(expected, e.Close, inline, false)
	}
	return nil
}

func (c *indentChecker) optionalContainer(expected int, oc *ast.OptionalContainer, inline bool) error {
	if oc.FirstOpeningIf.From.Line == oc.SecondOpeningIf.To.Line {
		inline = true
	}
	shift := c.size
	if inline {
		shift = 0
	}

	c.indent(expected, oc.FirstOpeningIf, inline, false)
	if err := c.openingTag(expected+shift, oc.OpeningTag, inline); err != nil {
		return err
	}
	c.indent(expected, oc.FirstClosingIf, inline, false)

	if err := c.content(expected, oc.Content, inline, false); err != nil {
		return err
	}

	c.indent(expected, oc.SecondOpeningIf, inline, false)
	c.indent(expected+shift, oc.ClosingTag, inline, false)
	c.indent(expected, oc.SecondClosingIf, inline, false)
	return nil
}

func (c *indentChecker) element(expected int, e *ast.Element, inline bool) error {
	if err := c.openingTag(expected, e.Open, inline); err != nil {
		return err
	}
	if e.Close == nil {
		return nil
	}
	if inline || e.Open.To.Line == e.Close.From.Line {
		if e.Raw {
			return nil
		}
		return c.content(expected, e.Content, true, false)
	}
	if !e.Raw {
		if err := c.content(expected+c.size, e.Content, false, false); err != nil {
			return err
		}
	}
	c.indent(expected, e.Close, false, false)
	return nil
}

// text checks a text run: at most one leading space on its first line and
// exactly the expected indentation on the following non-blank ones.
func (c *indentChecker) text(expected int, s string, parent *ast.Interp) {
	lines := strings.Split(s, "\n")
	if n := leadingSpaces(lines[0]); n > 1 {
		c.report(parent.Begin(), "Expected at most one space at the beginning of the text node, got %d spaces", n)
	}
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if n := leadingSpaces(line); n != expected {
			c.report(parent.Begin(), "Bad text indentation, expected %d, got %d", expected, n)
		}
	}
}

// content checks the children of parent. inline carries over from one child
// to the next: text runs and same-line siblings switch it on, a run ending
// in a blank line switches it off.
func (c *indentChecker) content(expected int, parent *ast.Interp, inline, sameLine bool) error {
	inlineParent := inline
	for i, child := range parent.Items {
		next := firstNode(parent.Items[i+1:])
		switch child := child.(type) {
		case ast.Text:
			s := string(child)
			c.text(expected, s, parent)
			compact := strings.ReplaceAll(s, " ", "")
			switch {
			case strings.Trim(s, " ") == "":
				inline = true
			case strings.TrimSpace(s) != "" && strings.Count(s, "\n") <= 1:
				inline = true
			case next != nil && strings.TrimSpace(s) != "" && !strings.HasSuffix(compact, "\n"):
				inline = true
			case strings.HasSuffix(compact, "\n\n"):
				inline = false
			}
			if inlineParent && !inline {
				c.report(parent.Begin(), "An inline parent element must only contain inline children")
			}
		case ast.Node:
			if next != nil && child.Begin().Line == next.End().Line {
				inline = true
			}
			if err := c.node(expected, child, inline, sameLine); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unexpected %T item", lint.ErrInternal, child)
		}
	}
	return nil
}

func firstNode(items []ast.Item) ast.Node {
	for _, it := range items {
		if n, ok := it.(ast.Node); ok {
			return n
		}
	}
	return nil
}

func leadingSpaces(s string) int {
	return len(s) - len(strings.TrimLeft(s, " "))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
