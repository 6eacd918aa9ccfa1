package ast

import (
	"strconv"
	"strings"
)

// The String methods render the canonical source of a node: attributes are
// separated by single spaces and template delimiters get one space of padding.

func (*Slash) String() string { return "/" }

func (t *OpeningTag) String() string {
	parts := []string{t.Name.String()}
	for _, a := range t.Attributes.Items {
		parts = append(parts, a.String())
	}
	inner := strings.Join(parts, " ")
	if t.Slash != nil {
		inner += " /"
	}
	return "<" + inner + ">"
}

func (t *ClosingTag) String() string {
	return "</" + t.Name.String() + ">"
}

func (e *Element) String() string {
	var b strings.Builder
	b.WriteString(e.Open.String())
	if e.Content != nil {
		b.WriteString(e.Content.String())
	}
	if e.Close != nil {
		b.WriteString(e.Close.String())
	}
	return b.String()
}

func (s *String) String() string {
	return s.Quote + s.Value.String() + s.Quote
}

func (n *Integer) String() string {
	s := strconv.Itoa(n.Value)
	if n.HasPercent {
		s += "%"
	}
	return s
}

func (a *Attribute) String() string {
	if a.Value == nil {
		return a.Name.String()
	}
	return a.Name.String() + "=" + a.Value.String()
}

func (c *Comment) String() string {
	return "<!--" + c.Text + "-->"
}

func (v *TemplateVariable) String() string {
	var b strings.Builder
	b.WriteString("{{")
	writeFlag(&b, v.LeftPlus, "+")
	writeFlag(&b, v.LeftMinus, "-")
	b.WriteString(" ")
	b.WriteString(v.Content)
	b.WriteString(" ")
	writeFlag(&b, v.RightMinus, "-")
	b.WriteString("}}")
	return b.String()
}

func (c *TemplateComment) String() string {
	if c.Text == "" {
		return "{##}"
	}
	return "{# " + c.Text + " #}"
}

func (t *TemplateTag) String() string {
	var b strings.Builder
	b.WriteString("{%")
	writeFlag(&b, t.LeftPlus, "+")
	writeFlag(&b, t.LeftMinus, "-")
	if t.Name != "" {
		b.WriteString(" " + t.Name)
	}
	if t.Content != "" {
		b.WriteString(" " + t.Content)
	}
	b.WriteString(" ")
	writeFlag(&b, t.RightMinus, "-")
	b.WriteString("%}")
	return b.String()
}

func (p *TemplateElementPart) String() string {
	if p.Content == nil {
		return p.Tag.String()
	}
	return p.Tag.String() + p.Content.String()
}

func (e *TemplateElement) String() string {
	var b strings.Builder
	for _, p := range e.Parts {
		b.WriteString(p.String())
	}
	if e.Close != nil {
		b.WriteString(e.Close.String())
	}
	return b.String()
}

func (c *OptionalContainer) String() string {
	return c.FirstOpeningIf.String() +
		c.OpeningTag.String() +
		c.FirstClosingIf.String() +
		c.Content.String() +
		c.SecondOpeningIf.String() +
		c.ClosingTag.String() +
		c.SecondClosingIf.String()
}

func writeFlag(b *strings.Builder, set bool, s string) {
	if set {
		b.WriteString(s)
	}
}
