package ast

import (
	"errors"
	"fmt"
)

// Item is anything that can appear in an Interp: either a Text run or a Node.
type Item interface {
	String() string
	item()
}

// Text is a run of literal source text.
type Text string

func (t Text) String() string { return string(t) }
func (Text) item()            {}

// Node is any located AST node in a parsed template.
type Node interface {
	Item
	Begin() Location
	End() Location
	node()
}

// Template is implemented by the nodes produced by template-engine
// delimiters ({{ }}, {% %}, {# #}).
type Template interface {
	Node
	template()
}

// ErrInvalidElement is returned by NewElement when the opening tag, content
// and closing tag do not describe a consistent element.
var ErrInvalidElement = errors.New("invalid element")

// Slash is the `/` of a self-closing tag.
type Slash struct {
	Span
}

// OpeningTag is `<name attributes... />`. Name is either a Text or a
// Template node.
type OpeningTag struct {
	Span
	Name       Item
	Attributes *Interp // of *Attribute and Template nodes
	Slash      *Slash
}

// NameText returns the tag name when it is plain text.
func (t *OpeningTag) NameText() (string, bool) {
	s, ok := t.Name.(Text)
	return string(s), ok
}

// ClosingTag is `</name>`.
type ClosingTag struct {
	Span
	Name Item
}

// Element is an HTML element. Close and Content are either both nil (void and
// self-closing elements) or both set. Raw elements (<style>, <script>) hold
// their body as a single unparsed Text.
type Element struct {
	Span
	Open    *OpeningTag
	Close   *ClosingTag
	Content *Interp
	Raw     bool
}

// NewElement builds an Element and checks its invariants.
func NewElement(span Span, open *OpeningTag, content *Interp, close *ClosingTag, raw bool) (*Element, error) {
	if open == nil {
		return nil, fmt.Errorf("%w: missing opening tag at %s", ErrInvalidElement, span.From)
	}
	if (close == nil) != (content == nil) {
		return nil, fmt.Errorf("%w: closing tag and content must be both present or both absent at %s", ErrInvalidElement, span.From)
	}
	if close != nil {
		if name, ok := open.NameText(); ok && close.Name.String() != name {
			return nil, fmt.Errorf("%w: <%s> closed by </%s> at %s", ErrInvalidElement, name, close.Name, close.From)
		}
	}
	return &Element{Span: span, Open: open, Close: close, Content: content, Raw: raw}, nil
}

// Name returns the opening tag name when it is plain text.
func (e *Element) Name() (string, bool) {
	return e.Open.NameText()
}

// Attributes returns the attributes of the opening tag that are not wrapped
// in template code.
func (e *Element) Attributes() []*Attribute {
	var out []*Attribute
	for _, it := range e.Open.Attributes.Items {
		if a, ok := it.(*Attribute); ok {
			out = append(out, a)
		}
	}
	return out
}

// Attribute returns the first plain attribute with the given name.
func (e *Element) Attribute(name string) (*Attribute, bool) {
	for _, a := range e.Attributes() {
		if a.Name.String() == name {
			return a, true
		}
	}
	return nil, false
}

// String is an attribute value. Quote is `"`, `'` or empty for bare values.
type String struct {
	Span
	Value *Interp
	Quote string
}

// Integer is a bare numeric attribute value, optionally suffixed with `%`.
type Integer struct {
	Span
	Value      int
	HasPercent bool
}

// Attribute is `name` or `name=value`. Value, when set, holds exactly one
// *String or *Integer.
type Attribute struct {
	Span
	Name  *Interp
	Value *Interp
}

// ValueNode returns the *String or *Integer value of the attribute, or nil.
func (a *Attribute) ValueNode() Node {
	if a.Value == nil {
		return nil
	}
	n, _ := a.Value.Single().(Node)
	return n
}

// Literal returns the unquoted value when it contains no template code.
func (a *Attribute) Literal() (string, bool) {
	switch v := a.ValueNode().(type) {
	case *String:
		if v.Value.Len() == 0 {
			return "", true
		}
		return v.Value.SingleText()
	case *Integer:
		if v.HasPercent {
			return fmt.Sprintf("%d%%", v.Value), true
		}
		return fmt.Sprint(v.Value), true
	}
	return "", false
}

// Unquoted returns the value without its quotes, template code included.
func (a *Attribute) Unquoted() string {
	switch v := a.ValueNode().(type) {
	case *String:
		return v.Value.String()
	case *Integer:
		return v.String()
	}
	return ""
}

// Comment is an HTML comment `<!--text-->`.
type Comment struct {
	Span
	Text string
}

// TemplateVariable is an output expression `{{ content }}`.
type TemplateVariable struct {
	Span
	Content    string
	LeftPlus   bool
	LeftMinus  bool
	RightMinus bool
}

// TemplateComment is `{# text #}`.
type TemplateComment struct {
	Span
	Text string
}

// TemplateTag is `{% name content %}`. Content is kept as raw text.
type TemplateTag struct {
	Span
	Name       string
	Content    string
	LeftPlus   bool
	LeftMinus  bool
	RightMinus bool
}

// TemplateElementPart is one branch of a structured block: its opening tag
// and the content up to the next branch. Content is nil for one-off tags.
type TemplateElementPart struct {
	Span
	Tag     *TemplateTag
	Content *Interp
}

// TemplateElement is a structured block such as if/elif/else/endif, or a
// single tag with one part and no Close.
type TemplateElement struct {
	Span
	Parts []*TemplateElementPart
	Close *TemplateTag
}

// OptionalContainer is an HTML element whose opening and closing tags are
// each wrapped in the same `{% if %}` condition:
//
//	{% if a %}<div>{% endif %}...{% if a %}</div>{% endif %}
type OptionalContainer struct {
	Span
	FirstOpeningIf  *TemplateTag
	OpeningTag      *OpeningTag
	FirstClosingIf  *TemplateTag
	Content         *Interp
	SecondOpeningIf *TemplateTag
	ClosingTag      *ClosingTag
	SecondClosingIf *TemplateTag
}

func (*Slash) item()               {}
func (*OpeningTag) item()          {}
func (*ClosingTag) item()          {}
func (*Element) item()             {}
func (*String) item()              {}
func (*Integer) item()             {}
func (*Attribute) item()           {}
func (*Comment) item()             {}
func (*TemplateVariable) item()    {}
func (*TemplateComment) item()     {}
func (*TemplateTag) item()         {}
func (*TemplateElementPart) item() {}
func (*TemplateElement) item()     {}
func (*OptionalContainer) item()   {}
func (*Interp) item()              {}

func (*Slash) node()               {}
func (*OpeningTag) node()          {}
func (*ClosingTag) node()          {}
func (*Element) node()             {}
func (*String) node()              {}
func (*Integer) node()             {}
func (*Attribute) node()           {}
func (*Comment) node()             {}
func (*TemplateVariable) node()    {}
func (*TemplateComment) node()     {}
func (*TemplateTag) node()         {}
func (*TemplateElementPart) node() {}
func (*TemplateElement) node()     {}
func (*OptionalContainer) node()   {}
func (*Interp) node()              {}

func (*TemplateVariable) template()    {}
func (*TemplateComment) template()     {}
func (*TemplateTag) template()         {}
func (*TemplateElementPart) template() {}
func (*TemplateElement) template()     {}
func (*OptionalContainer) template()   {}
