package parse

import (
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/neurodesk/templint/pkg/ast"
)

// Options configures the grammar.
type Options struct {
	// TemplateTags lists structured template blocks by part name, for example
	// {"if", "elif", "else", "endif"}. An entry replaces the default block
	// with the same first name. A single name declares a tag with no body.
	TemplateTags [][]string
}

// DefaultTemplateTags are the structured blocks known without configuration.
var DefaultTemplateTags = [][]string{
	{"autoescape", "endautoescape"},
	{"block", "endblock"},
	{"blocktrans", "plural", "endblocktrans"},
	{"blocktranslate", "plural", "endblocktranslate"},
	{"comment", "endcomment"},
	{"filter", "endfilter"},
	{"for", "else", "empty", "endfor"},
	{"if", "elif", "else", "endif"},
	{"ifchanged", "else", "endifchanged"},
	{"ifequal", "endifequal"},
	{"ifnotequal", "endifnotequal"},
	{"spaceless", "endspaceless"},
	{"verbatim", "endverbatim"},
	{"with", "endwith"},
}

// VoidElements never have content or a closing tag.
var VoidElements = []string{
	"area", "base", "br", "col", "embed", "hr", "img", "input",
	"link", "meta", "param", "source", "track", "wbr",
}

// SVGSelfClosingElements are SVG elements that are parsed without content
// when written as `<name ... />`.
var SVGSelfClosingElements = []string{
	"animate", "animateMotion", "animateTransform", "circle", "ellipse",
	"feBlend", "feColorMatrix", "feComposite", "feConvolveMatrix",
	"feDisplacementMap", "feDistantLight", "feDropShadow", "feFlood",
	"feFuncA", "feFuncB", "feFuncG", "feFuncR", "feGaussianBlur", "feImage",
	"feMergeNode", "feMorphology", "feOffset", "fePointLight", "feSpotLight",
	"feTile", "feTurbulence", "image", "line", "mpath", "path", "polygon",
	"polyline", "rect", "set", "stop", "use",
}

type slashMode int

const (
	noSlash slashMode = iota
	optionalSlash
	mandatorySlash
)

var (
	whitespace     = Chars("whitespace", 0, unicode.IsSpace)
	attrSeparator  = Chars("whitespace between attributes", 1, unicode.IsSpace)
	templateName   = Name("tag name", unicode.IsLetter, isTemplateNameChar)
	htmlTagName    = Name("tag name", isNameStart, isNameChar)
	attributeName  = Name("attribute name", isNameStart, isNameChar)
	quickText      = Chars("text", 1, func(r rune) bool { return r != '{' && r != '<' })
	doctype        = Regexp(`<![^>]*>`)
	templateOpener = Or(Literal("<"), Literal("{%"), Literal("{#"), Literal("{{"))
	slowText       = Then(Not(templateOpener, "text"), AnyChar)
)

// Grammar holds the parsers built for one configuration. It is immutable
// and safe for concurrent use.
type Grammar struct {
	tags [][]string

	content    Parser[*ast.Interp]
	template   Parser[ast.Node]
	element    Parser[*ast.Element]
	attribute  Parser[*ast.Attribute]
	value      Parser[ast.Node]
	openingTag Parser[*ast.OpeningTag]
}

// New builds the grammar for opts.
func New(opts Options) *Grammar {
	g := &Grammar{tags: mergeTemplateTags(opts.TemplateTags)}

	var content Ref[*ast.Interp]
	jinja := g.templateParser(content.Parser())

	g.value = Desc(Or(
		quotedString(`"`, jinja),
		quotedString(`'`, jinja),
		integer,
		bareString(jinja),
	), "attribute value")
	g.attribute = attributeParser(g.value)

	var attrJinja Ref[ast.Node]
	attrContent := Memo(interp(Skip(Then(whitespace, SepBy(Or(item(g.attribute), item(attrJinja.Parser())), whitespace)), whitespace)))
	attrJinja.Set(g.templateParser(attrContent))
	attrs := interp(Many(Or(
		Then(whitespace, item(attrJinja.Parser())),
		Then(attrSeparator, item(g.attribute)),
	)))

	anyName := Or(text(htmlTagName), item(jinja))
	tag := func(name Parser[ast.Item], slash slashMode) Parser[*ast.OpeningTag] {
		return openingTagParser(name, attrs, slash)
	}
	g.openingTag = tag(anyName, noSlash)

	g.element = Or(
		rawTextElement("style", tag),
		rawTextElement("script", tag),
		emptyElement(tag(oneOf(VoidElements), optionalSlash)),
		emptyElement(tag(oneOf(SVGSelfClosingElements), mandatorySlash)),
		containerElement(g.openingTag, content.Parser(), jinja),
	)

	g.content = Memo(interp(Many(Or(
		text(quickText),
		item(htmlComment),
		text(doctype),
		item(g.element),
		item(optionalContainer(g.openingTag, content.Parser(), jinja)),
		item(jinja),
		text(slowText),
	))))
	content.Set(g.content)
	g.template = jinja
	return g
}

// Parse parses a whole template.
func (g *Grammar) Parse(src string) (*ast.Interp, error) {
	return Run(g.content, src)
}

// TemplateTags returns the structured blocks in effect, defaults included.
func (g *Grammar) TemplateTags() [][]string { return g.tags }

// Content returns the parser for a run of text, elements and template code.
func (g *Grammar) Content() Parser[*ast.Interp] { return g.content }

// Template returns the parser for one `{{ }}`, `{# #}` or `{% %}` construct,
// structured blocks included.
func (g *Grammar) Template() Parser[ast.Node] { return g.template }

// Element returns the parser for an HTML element.
func (g *Grammar) Element() Parser[*ast.Element] { return g.element }

// Attribute returns the parser for a single attribute.
func (g *Grammar) Attribute() Parser[*ast.Attribute] { return g.attribute }

// AttributeValue returns the parser for a quoted, integer or bare value.
func (g *Grammar) AttributeValue() Parser[ast.Node] { return g.value }

// OpeningTag returns the parser for an opening tag with its attributes.
func (g *Grammar) OpeningTag() Parser[*ast.OpeningTag] { return g.openingTag }

func mergeTemplateTags(custom [][]string) [][]string {
	var order []string
	byFirst := map[string][]string{}
	for _, names := range append(slices.Clone(DefaultTemplateTags), custom...) {
		if len(names) == 0 {
			continue
		}
		if _, ok := byFirst[names[0]]; !ok {
			order = append(order, names[0])
		}
		byFirst[names[0]] = names
	}
	out := make([][]string, 0, len(order))
	for _, first := range order {
		out = append(out, byFirst[first])
	}
	return out
}

// templateParser returns the parser for `{{ }}`, `{# #}` and `{% %}`
// constructs whose bodies are parsed with content.
func (g *Grammar) templateParser(content Parser[*ast.Interp]) Parser[ast.Node] {
	alts := []Parser[ast.Node]{node(templateVariable), node(templateComment)}

	excluded := []Parser[string]{Keyword("if")}
	seen := map[string]bool{}
	for _, names := range g.tags {
		words := make([]Parser[string], len(names))
		for i, n := range names {
			words[i] = Keyword(n)
			if i > 0 && !seen[n] {
				seen[n] = true
				excluded = append(excluded, Keyword(n))
			}
		}
		alts = append(alts, node(templateElement(words, content)))
	}

	single := Then(Not(Or(excluded...), "tag name other than an intermediate tag"), templateName)
	alts = append(alts, node(templateElement([]Parser[string]{single}, content)))
	return Or(alts...)
}

type tagParts struct {
	name       string
	content    string
	leftPlus   bool
	leftMinus  bool
	rightMinus bool
}

// tagLike parses `{% name content %}` and `{{ content }}` shaped input. The
// content runs up to the first closing delimiter.
func tagLike(open, close string, name Parser[string]) Parser[tagParts] {
	start := Literal(open)
	plus := Present(Literal("+"))
	minus := Present(Literal("-"))
	end := Skip(Then(whitespace, Present(Literal("-"))), Literal(close))
	body := Until(end)
	return func(s *State, pos int) (tagParts, int, bool) {
		var t tagParts
		_, cur, ok := start(s, pos)
		if !ok {
			return t, pos, false
		}
		t.leftPlus, cur, _ = plus(s, cur)
		t.leftMinus, cur, _ = minus(s, cur)
		_, cur, _ = whitespace(s, cur)
		if t.name, cur, ok = name(s, cur); !ok {
			return tagParts{}, pos, false
		}
		_, cur, _ = whitespace(s, cur)
		t.content, cur, _ = body(s, cur)
		if t.rightMinus, cur, ok = end(s, cur); !ok {
			return tagParts{}, pos, false
		}
		return t, cur, true
	}
}

var templateVariable = Located(tagLike("{{", "}}", Succeed("")), func(sp ast.Span, t tagParts) *ast.TemplateVariable {
	return &ast.TemplateVariable{
		Span:       sp,
		Content:    t.content,
		LeftPlus:   t.leftPlus,
		LeftMinus:  t.leftMinus,
		RightMinus: t.rightMinus,
	}
})

var templateComment = func() Parser[*ast.TemplateComment] {
	end := Then(whitespace, Literal("#}"))
	body := Skip(Then(Then(Literal("{#"), whitespace), Until(end)), end)
	return Located(body, func(sp ast.Span, text string) *ast.TemplateComment {
		return &ast.TemplateComment{Span: sp, Text: text}
	})
}()

func templateTag(name Parser[string]) Parser[*ast.TemplateTag] {
	return Located(tagLike("{%", "%}", name), func(sp ast.Span, t tagParts) *ast.TemplateTag {
		return &ast.TemplateTag{
			Span:       sp,
			Name:       t.name,
			Content:    t.content,
			LeftPlus:   t.leftPlus,
			LeftMinus:  t.leftMinus,
			RightMinus: t.rightMinus,
		}
	})
}

func templateElementPart(name Parser[string], content Parser[*ast.Interp]) Parser[*ast.TemplateElementPart] {
	tag := templateTag(name)
	return func(s *State, pos int) (*ast.TemplateElementPart, int, bool) {
		t, cur, ok := tag(s, pos)
		if !ok {
			return nil, pos, false
		}
		c, cur, ok := content(s, cur)
		if !ok {
			return nil, pos, false
		}
		return &ast.TemplateElementPart{Span: s.Span(pos, cur), Tag: t, Content: c}, cur, true
	}
}

// templateElement parses a structured block: the first part, any number of
// each middle part in order, then the closing tag. A single name yields a
// lone tag without content.
func templateElement(names []Parser[string], content Parser[*ast.Interp]) Parser[*ast.TemplateElement] {
	if len(names) == 1 {
		return Located(templateTag(names[0]), func(sp ast.Span, t *ast.TemplateTag) *ast.TemplateElement {
			return &ast.TemplateElement{Span: sp, Parts: []*ast.TemplateElementPart{{Span: sp, Tag: t}}}
		})
	}
	first := templateElementPart(names[0], content)
	var middle []Parser[[]*ast.TemplateElementPart]
	for _, n := range names[1 : len(names)-1] {
		middle = append(middle, Many(templateElementPart(n, content)))
	}
	closing := templateTag(names[len(names)-1])
	return func(s *State, pos int) (*ast.TemplateElement, int, bool) {
		p, cur, ok := first(s, pos)
		if !ok {
			return nil, pos, false
		}
		parts := []*ast.TemplateElementPart{p}
		for _, m := range middle {
			var more []*ast.TemplateElementPart
			more, cur, _ = m(s, cur)
			parts = append(parts, more...)
		}
		c, cur, ok := closing(s, cur)
		if !ok {
			return nil, pos, false
		}
		return &ast.TemplateElement{Span: s.Span(pos, cur), Parts: parts, Close: c}, cur, true
	}
}

// templateOrText matches template constructs or runs of characters accepted
// by ok. A `{` that starts no template construct is kept as text.
func templateOrText(jinja Parser[ast.Node], ok func(rune) bool) Parser[ast.Item] {
	return Or(
		item(jinja),
		text(Chars("text", 1, func(r rune) bool { return r != '{' && ok(r) })),
		text(Literal("{")),
	)
}

func quotedString(quote string, jinja Parser[ast.Node]) Parser[ast.Node] {
	q, _ := utf8.DecodeRuneInString(quote)
	open := Literal(quote)
	body := interp(Many(Then(Not(open, "no "+quote), templateOrText(jinja, func(r rune) bool {
		return r != q && r != '<'
	}))))
	return func(s *State, pos int) (ast.Node, int, bool) {
		_, cur, ok := open(s, pos)
		if !ok {
			return nil, pos, false
		}
		v, cur, _ := body(s, cur)
		if _, cur, ok = open(s, cur); !ok {
			return nil, pos, false
		}
		return &ast.String{Span: s.Span(pos, cur), Value: v, Quote: quote}, cur, true
	}
}

func bareString(jinja Parser[ast.Node]) Parser[ast.Node] {
	body := interp(AtLeast(templateOrText(jinja, isBareValueChar), 1))
	return Map(body, func(v *ast.Interp) ast.Node {
		return &ast.String{Span: v.Span, Value: v}
	})
}

// integer matches digits with an optional `%` suffix when nothing that could
// continue a bare value follows.
var integer Parser[ast.Node] = func(s *State, pos int) (ast.Node, int, bool) {
	digits, cur, ok := Chars("integer", 1, isDigit)(s, pos)
	if !ok {
		return nil, pos, false
	}
	percent := strings.HasPrefix(s.src[cur:], "%")
	if percent {
		cur++
	}
	rest := s.src[cur:]
	if r, _ := utf8.DecodeRuneInString(rest); rest != "" && (isBareValueChar(r) || r == '{') {
		s.Fail(cur, "end of integer")
		return nil, pos, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		s.Fail(pos, "integer")
		return nil, pos, false
	}
	return &ast.Integer{Span: s.Span(pos, cur), Value: n, HasPercent: percent}, cur, true
}

func attributeParser(value Parser[ast.Node]) Parser[*ast.Attribute] {
	name := interp(Map(attributeName, func(n string) []ast.Item { return []ast.Item{ast.Text(n)} }))
	assign := Then(Then(whitespace, Skip(Literal("="), whitespace)),
		Located(value, func(sp ast.Span, v ast.Node) *ast.Interp { return ast.NewInterp(sp, v) }))
	optAssign := Optional(assign)
	var attr Parser[*ast.Attribute] = func(s *State, pos int) (*ast.Attribute, int, bool) {
		n, cur, ok := name(s, pos)
		if !ok {
			return nil, pos, false
		}
		v, cur, _ := optAssign(s, cur)
		return &ast.Attribute{Span: s.Span(pos, cur), Name: n, Value: v.Value}, cur, true
	}
	return Desc(attr, "attribute")
}

var slash = Skip(Located(Literal("/"), func(sp ast.Span, _ string) *ast.Slash {
	return &ast.Slash{Span: sp}
}), whitespace)

func openingTagParser(name Parser[ast.Item], attrs Parser[*ast.Interp], mode slashMode) Parser[*ast.OpeningTag] {
	lt, gt := Literal("<"), Literal(">")
	return func(s *State, pos int) (*ast.OpeningTag, int, bool) {
		_, cur, ok := lt(s, pos)
		if !ok {
			return nil, pos, false
		}
		n, cur, ok := name(s, cur)
		if !ok {
			return nil, pos, false
		}
		a, cur, _ := attrs(s, cur)
		_, cur, _ = whitespace(s, cur)
		var sl *ast.Slash
		switch mode {
		case optionalSlash:
			if v, next, ok := slash(s, cur); ok {
				sl, cur = v, next
			}
		case mandatorySlash:
			if sl, cur, ok = slash(s, cur); !ok {
				return nil, pos, false
			}
		}
		if _, cur, ok = gt(s, cur); !ok {
			return nil, pos, false
		}
		return &ast.OpeningTag{Span: s.Span(pos, cur), Name: n, Attributes: a, Slash: sl}, cur, true
	}
}

func closingTagParser(name Parser[ast.Item]) Parser[*ast.ClosingTag] {
	lt, gt := Literal("</"), Literal(">")
	return func(s *State, pos int) (*ast.ClosingTag, int, bool) {
		_, cur, ok := lt(s, pos)
		if !ok {
			return nil, pos, false
		}
		n, cur, ok := name(s, cur)
		if !ok {
			return nil, pos, false
		}
		_, cur, _ = whitespace(s, cur)
		if _, cur, ok = gt(s, cur); !ok {
			return nil, pos, false
		}
		return &ast.ClosingTag{Span: s.Span(pos, cur), Name: n}, cur, true
	}
}

// closingTagFor returns the closing tag parser matching an opening tag name.
func closingTagFor(name ast.Item, jinja Parser[ast.Node]) Parser[*ast.ClosingTag] {
	if n, ok := name.(ast.Text); ok {
		return closingTagParser(text(Word(string(n), isNameChar)))
	}
	return closingTagParser(item(jinja))
}

func oneOf(names []string) Parser[ast.Item] {
	words := make([]Parser[string], len(names))
	for i, n := range names {
		words[i] = Word(n, isNameChar)
	}
	return text(Or(words...))
}

func emptyElement(open Parser[*ast.OpeningTag]) Parser[*ast.Element] {
	return func(s *State, pos int) (*ast.Element, int, bool) {
		o, cur, ok := open(s, pos)
		if !ok {
			return nil, pos, false
		}
		return must(ast.NewElement(s.Span(pos, cur), o, nil, nil, false)), cur, true
	}
}

// rawTextElement parses <style> and <script>, whose body is kept verbatim up
// to the closing tag.
func rawTextElement(name string, tag func(Parser[ast.Item], slashMode) Parser[*ast.OpeningTag]) Parser[*ast.Element] {
	open := tag(text(Word(name, isNameChar)), noSlash)
	closing := closingTagParser(text(Word(name, isNameChar)))
	marker := "</" + name
	return func(s *State, pos int) (*ast.Element, int, bool) {
		o, cur, ok := open(s, pos)
		if !ok {
			return nil, pos, false
		}
		for at := cur; ; {
			i := strings.Index(s.src[at:], marker)
			if i < 0 {
				s.Fail(len(s.src), marker+">")
				return nil, pos, false
			}
			at += i
			c, end, ok := closing(s, at)
			if !ok {
				at += len(marker)
				continue
			}
			body := ast.NewInterp(s.Span(cur, at), ast.Text(s.src[cur:at]))
			return must(ast.NewElement(s.Span(pos, end), o, body, c, true)), end, true
		}
	}
}

func containerElement(open Parser[*ast.OpeningTag], content Parser[*ast.Interp], jinja Parser[ast.Node]) Parser[*ast.Element] {
	return func(s *State, pos int) (*ast.Element, int, bool) {
		o, cur, ok := open(s, pos)
		if !ok {
			return nil, pos, false
		}
		body, cur, ok := content(s, cur)
		if !ok {
			return nil, pos, false
		}
		c, cur, ok := closingTagFor(o.Name, jinja)(s, cur)
		if !ok {
			return nil, pos, false
		}
		return must(ast.NewElement(s.Span(pos, cur), o, body, c, false)), cur, true
	}
}

// optionalContainer parses an element whose opening and closing tags are
// both wrapped in `{% if COND %}...{% endif %}` with the same COND:
//
//	{% if a %}<div>{% endif %}...{% if a %}</div>{% endif %}
func optionalContainer(open Parser[*ast.OpeningTag], content Parser[*ast.Interp], jinja Parser[ast.Node]) Parser[*ast.OptionalContainer] {
	ifTag := Skip(templateTag(Keyword("if")), whitespace)
	endifTag := templateTag(Keyword("endif"))
	openTag := Skip(open, whitespace)
	return func(s *State, pos int) (*ast.OptionalContainer, int, bool) {
		oc := &ast.OptionalContainer{}
		var ok bool
		cur := pos
		if oc.FirstOpeningIf, cur, ok = ifTag(s, cur); !ok {
			return nil, pos, false
		}
		if oc.OpeningTag, cur, ok = openTag(s, cur); !ok {
			return nil, pos, false
		}
		if oc.FirstClosingIf, cur, ok = endifTag(s, cur); !ok {
			return nil, pos, false
		}
		if oc.Content, cur, ok = content(s, cur); !ok {
			return nil, pos, false
		}
		secondIf := cur
		if oc.SecondOpeningIf, cur, ok = ifTag(s, cur); !ok {
			return nil, pos, false
		}
		if oc.SecondOpeningIf.Content != oc.FirstOpeningIf.Content {
			s.Pin(secondIf, "{% if "+oc.FirstOpeningIf.Content+" %}")
			return nil, pos, false
		}
		if oc.ClosingTag, cur, ok = Skip(closingTagFor(oc.OpeningTag.Name, jinja), whitespace)(s, cur); !ok {
			return nil, pos, false
		}
		if oc.SecondClosingIf, cur, ok = endifTag(s, cur); !ok {
			return nil, pos, false
		}
		oc.Span = s.Span(pos, cur)
		return oc, cur, true
	}
}

var htmlComment Parser[*ast.Comment] = func(s *State, pos int) (*ast.Comment, int, bool) {
	if !strings.HasPrefix(s.src[pos:], "<!--") {
		s.Fail(pos, "<!--")
		return nil, pos, false
	}
	start := pos + len("<!--")
	i := strings.Index(s.src[start:], "-->")
	if i < 0 {
		s.Fail(len(s.src), "-->")
		return nil, pos, false
	}
	end := start + i + len("-->")
	return &ast.Comment{Span: s.Span(pos, end), Text: s.src[start : start+i]}, end, true
}

func interp(p Parser[[]ast.Item]) Parser[*ast.Interp] {
	return Located(p, func(sp ast.Span, items []ast.Item) *ast.Interp {
		return ast.NewInterp(sp, items...)
	})
}

func item[T ast.Item](p Parser[T]) Parser[ast.Item] {
	return Map(p, func(v T) ast.Item { return v })
}

func node[T ast.Node](p Parser[T]) Parser[ast.Node] {
	return Map(p, func(v T) ast.Node { return v })
}

func text(p Parser[string]) Parser[ast.Item] {
	return Map(p, func(v string) ast.Item { return ast.Text(v) })
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isASCIILetter(r rune) bool { return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' }

func isNameStart(r rune) bool { return r == ':' || isASCIILetter(r) }

func isNameChar(r rune) bool {
	return isNameStart(r) || isDigit(r) || r == '-' || r == '_' || r == '.'
}

func isTemplateNameChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isBareValueChar(r rune) bool {
	return isASCIILetter(r) || isDigit(r) || strings.ContainsRune("-_./+,?=:;#", r)
}
