package ast

import (
	"bytes"
	"fmt"
)

type Visitor interface {
	Visit(n Node) error
}

// VisitorFunc adapts a function to the Visitor interface.
type VisitorFunc func(n Node) error

func (f VisitorFunc) Visit(n Node) error { return f(n) }

// Walk visits n and then every node below it, depth first in source order.
func Walk(v Visitor, n Node) error {
	if n == nil {
		return nil
	}
	if err := v.Visit(n); err != nil {
		return err
	}
	for _, c := range children(n) {
		if err := Walk(v, c); err != nil {
			return err
		}
	}
	return nil
}

func children(n Node) []Node {
	var out []Node
	add := func(items ...Item) {
		for _, it := range items {
			if c, ok := it.(Node); ok && !isNilNode(c) {
				out = append(out, c)
			}
		}
	}
	switch t := n.(type) {
	case *Interp:
		add(t.Items...)
	case *OpeningTag:
		add(t.Name, t.Attributes, t.Slash)
	case *ClosingTag:
		add(t.Name)
	case *Element:
		add(t.Open, t.Content, t.Close)
	case *String:
		add(t.Value)
	case *Attribute:
		add(t.Name, t.Value)
	case *TemplateElementPart:
		add(t.Tag, t.Content)
	case *TemplateElement:
		for _, p := range t.Parts {
			add(p)
		}
		add(t.Close)
	case *OptionalContainer:
		add(t.FirstOpeningIf, t.OpeningTag, t.FirstClosingIf, t.Content,
			t.SecondOpeningIf, t.ClosingTag, t.SecondClosingIf)
	}
	return out
}

// isNilNode reports typed nil pointers stored in an interface.
func isNilNode(n Node) bool {
	switch t := n.(type) {
	case *Interp:
		return t == nil
	case *Slash:
		return t == nil
	case *OpeningTag:
		return t == nil
	case *ClosingTag:
		return t == nil
	case *TemplateTag:
		return t == nil
	}
	return false
}

// Pretty returns a line-oriented string representation of the tree.
func Pretty(n Node) string {
	var buf bytes.Buffer
	ppNode(&buf, 0, n)
	return buf.String()
}

func ppNode(buf *bytes.Buffer, indent int, n Node) {
	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}
	switch t := n.(type) {
	case *Interp:
		fmt.Fprintf(buf, "Interp %s\n", t.From)
		for _, it := range t.Items {
			if txt, ok := it.(Text); ok {
				for i := 0; i < indent+2; i++ {
					buf.WriteByte(' ')
				}
				fmt.Fprintf(buf, "Text(%q)\n", string(txt))
			}
			if c, ok := it.(Node); ok {
				ppNode(buf, indent+2, c)
			}
		}
		return
	case *Element:
		fmt.Fprintf(buf, "Element(%s) %s", t.Open.Name, t.From)
		if t.Raw {
			buf.WriteString(" raw")
		}
	case *OpeningTag:
		fmt.Fprintf(buf, "OpeningTag(%s) %s", t.Name, t.From)
		if t.Slash != nil {
			buf.WriteString(" self-closing")
		}
	case *ClosingTag:
		fmt.Fprintf(buf, "ClosingTag(%s) %s", t.Name, t.From)
	case *Attribute:
		fmt.Fprintf(buf, "Attribute(%s) %s", t.Name, t.From)
	case *String:
		fmt.Fprintf(buf, "String(%s) %s", t.String(), t.From)
	case *Integer:
		fmt.Fprintf(buf, "Integer(%s) %s", t.String(), t.From)
	case *Comment:
		fmt.Fprintf(buf, "Comment(%q) %s", t.Text, t.From)
	case *TemplateVariable:
		fmt.Fprintf(buf, "Variable(%q) %s", t.Content, t.From)
	case *TemplateComment:
		fmt.Fprintf(buf, "TemplateComment(%q) %s", t.Text, t.From)
	case *TemplateTag:
		fmt.Fprintf(buf, "Tag(%s %q) %s", t.Name, t.Content, t.From)
	case *TemplateElementPart:
		fmt.Fprintf(buf, "Part(%s) %s", t.Tag.Name, t.From)
	case *TemplateElement:
		fmt.Fprintf(buf, "TemplateElement(%s) %s", t.Parts[0].Tag.Name, t.From)
	case *OptionalContainer:
		fmt.Fprintf(buf, "OptionalContainer(%q) %s", t.FirstOpeningIf.Content, t.From)
	default:
		fmt.Fprintf(buf, "%T %s", n, n.Begin())
	}
	buf.WriteByte('\n')
	for _, c := range children(n) {
		if in, ok := c.(*Interp); ok && in.Len() == 0 {
			continue
		}
		ppNode(buf, indent+2, c)
	}
}
