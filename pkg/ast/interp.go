package ast

import "strings"

// Interp is an ordered mix of literal text runs and nodes. It is always kept
// in normal form: no empty Text and never two Text items in a row.
type Interp struct {
	Span
	Items []Item
}

// NewInterp builds a normalized Interp.
func NewInterp(span Span, items ...Item) *Interp {
	return &Interp{Span: span, Items: Normalize(items)}
}

// Normalize merges adjacent Text runs and drops empty ones and nil items.
// It is idempotent.
func Normalize(items []Item) []Item {
	out := make([]Item, 0, len(items))
	var pending strings.Builder
	flush := func() {
		if pending.Len() > 0 {
			out = append(out, Text(pending.String()))
			pending.Reset()
		}
	}
	for _, it := range items {
		switch t := it.(type) {
		case nil:
		case Text:
			pending.WriteString(string(t))
		default:
			flush()
			out = append(out, it)
		}
	}
	flush()
	return out
}

func (i *Interp) Len() int { return len(i.Items) }

func (i *Interp) At(n int) Item { return i.Items[n] }

// Single returns the only item of the sequence, or nil.
func (i *Interp) Single() Item {
	if len(i.Items) != 1 {
		return nil
	}
	return i.Items[0]
}

// SingleText returns the text when the sequence is exactly one Text run.
func (i *Interp) SingleText() (string, bool) {
	t, ok := i.Single().(Text)
	return string(t), ok
}

// Nodes returns the non-text items.
func (i *Interp) Nodes() []Node {
	var out []Node
	for _, it := range i.Items {
		if n, ok := it.(Node); ok {
			out = append(out, n)
		}
	}
	return out
}

func (i *Interp) String() string {
	var b strings.Builder
	for _, it := range i.Items {
		b.WriteString(it.String())
	}
	return b.String()
}
