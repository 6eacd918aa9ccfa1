package parse

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/neurodesk/templint/pkg/ast"
)

var ignoreLocations = []cmp.Option{cmpopts.IgnoreTypes(ast.Location{}), cmpopts.EquateEmpty()}

func in(items ...ast.Item) *ast.Interp { return ast.NewInterp(ast.Span{}, items...) }

func str(quote string, items ...ast.Item) *ast.String {
	return &ast.String{Value: in(items...), Quote: quote}
}

func TestAttributeValue(t *testing.T) {
	g := New(Options{})
	tests := []struct {
		src  string
		want ast.Node
	}{
		{"123", &ast.Integer{Value: 123}},
		{"100%", &ast.Integer{Value: 100, HasPercent: true}},
		{`"hello"`, str(`"`, ast.Text("hello"))},
		{`''`, str(`'`)},
		{`'hello{{b}}world'`, str(`'`, ast.Text("hello"), &ast.TemplateVariable{Content: "b"}, ast.Text("world"))},
		{"hello-world", str("", ast.Text("hello-world"))},
		{"2px", str("", ast.Text("2px"))},
		{"hello{{a}}world", str("", ast.Text("hello"), &ast.TemplateVariable{Content: "a"}, ast.Text("world"))},
		{`"a { b"`, str(`"`, ast.Text("a { b"))},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := Run(g.AttributeValue(), tt.src)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got, ignoreLocations...); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAttribute(t *testing.T) {
	g := New(Options{})
	attr := func(name string, value ast.Node) *ast.Attribute {
		a := &ast.Attribute{Name: in(ast.Text(name))}
		if value != nil {
			a.Value = in(value)
		}
		return a
	}
	tests := []struct {
		src  string
		want *ast.Attribute
	}{
		{"hello=world", attr("hello", str("", ast.Text("world")))},
		{`a= "b"`, attr("a", str(`"`, ast.Text("b")))},
		{`A="b"`, attr("A", str(`"`, ast.Text("b")))},
		{"viewBox", attr("viewBox", nil)},
		{"a =b_c23", attr("a", str("", ast.Text("b_c23")))},
		{"tabindex=3", attr("tabindex", &ast.Integer{Value: 3})},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := Run(g.Attribute(), tt.src)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got, ignoreLocations...); diff != "" {
				t.Errorf("attribute mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestElementStructure(t *testing.T) {
	g := New(Options{})
	got, err := Run(g.Element(), "<div> hey </div>")
	if err != nil {
		t.Fatal(err)
	}
	want := &ast.Element{
		Open:    &ast.OpeningTag{Name: ast.Text("div"), Attributes: in()},
		Content: in(ast.Text(" hey ")),
		Close:   &ast.ClosingTag{Name: ast.Text("div")},
	}
	if diff := cmp.Diff(want, got, ignoreLocations...); diff != "" {
		t.Errorf("element mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	g := New(Options{})
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"attributes in block", `<div{% if a %} foo="bar"  a=2 {% endif %}></div>`, `<div {% if a %}foo="bar"a=2{% endif %}></div>`},
		{"variable as attribute", `<div{{ "ider" }}></div>`, `<div {{ "ider" }}></div>`},
		{"mixed attributes", `<br onclick="" {{var}} class="red">`, `<br onclick="" {{ var }} class="red">`},
		{"raw style", `<style a=b> <wont-be-parsed> </style>`, `<style a=b> <wont-be-parsed> </style>`},
		{"unknown element", `<colgroup></colgroup>`, `<colgroup></colgroup>`},
		{"branches", `{% if a %}b{% elif %}c{% elif %}d{% else %}e{% endif %}`, `{% if a %}b{% elif %}c{% elif %}d{% else %}e{% endif %}`},
		{"whitespace control", `{%- foo -%}{{- x -}}{%+ bar %}`, `{%- foo -%}{{- x -}}{%+ bar %}`},
		{"doctype", `<!DOCTYPE html>`, `<!DOCTYPE html>`},
		{"nested", `<html lang="fr"><body>Hello<br></body></html>`, `<html lang="fr"><body>Hello<br></body></html>`},
		{"single tag", `{% name something == 123 %}`, `{% name something == 123 %}`},
		{"template tag name", `<{% if a %}div{% endif %}>x</{% if a %}div{% endif %}>`, `<{% if a %}div{% endif %}>x</{% if a %}div{% endif %}>`},
		{"comments", `<!-- c -->{#  note #}{##}`, `<!-- c -->{# note #}{##}`},
		{"stray brace", `a { b`, `a { b`},
		{"self closing", `<img src="a.png"/><path d="M0"/>`, `<img src="a.png" /><path d="M0" />`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := g.Parse(tt.src)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := tree.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMixedAttributes(t *testing.T) {
	g := New(Options{})
	el, err := Run(g.Element(), `<br onclick="" {{var}} class="red">`)
	if err != nil {
		t.Fatal(err)
	}
	var kinds []string
	for _, it := range el.Open.Attributes.Items {
		switch it.(type) {
		case *ast.Attribute:
			kinds = append(kinds, "attribute")
		case *ast.TemplateVariable:
			kinds = append(kinds, "variable")
		default:
			kinds = append(kinds, "other")
		}
	}
	if got := strings.Join(kinds, ","); got != "attribute,variable,attribute" {
		t.Errorf("attributes = %s", got)
	}
	if el.Content != nil || el.Close != nil {
		t.Errorf("void element has content or closing tag")
	}
}

func TestMissingAttributeSeparator(t *testing.T) {
	_, err := New(Options{}).Parse(`<a class="x"href="y"></a>`)
	if err == nil {
		t.Fatal("expected an error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "'whitespace between attributes'") || !strings.HasSuffix(msg, " at 1:12") {
		t.Errorf("Error() = %q", msg)
	}
}

func TestCustomTemplateTags(t *testing.T) {
	src := `{% of a %}x{% elseof %}y{% endof %}`
	if _, err := Run(New(Options{}).Template(), src); err == nil {
		t.Errorf("default grammar accepted %q", src)
	}

	g := New(Options{TemplateTags: [][]string{{"of", "elseof", "endof"}}})
	got, err := Run(g.Template(), src)
	if err != nil {
		t.Fatal(err)
	}
	el, ok := got.(*ast.TemplateElement)
	if !ok {
		t.Fatalf("got %T", got)
	}
	if len(el.Parts) != 2 || el.Close.Name != "endof" {
		t.Errorf("parts = %d, close = %v", len(el.Parts), el.Close)
	}
}

func TestTemplateTagOverride(t *testing.T) {
	src := `{% for x %}a{% empty %}b{% endfor %}`
	tests := []struct {
		name  string
		opts  Options
		parts int
	}{
		{"default", Options{}, 2},
		{"override", Options{TemplateTags: [][]string{{"for", "endfor"}}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Run(New(tt.opts).Template(), src)
			if err != nil {
				t.Fatal(err)
			}
			if n := len(got.(*ast.TemplateElement).Parts); n != tt.parts {
				t.Errorf("parts = %d, want %d", n, tt.parts)
			}
		})
	}

	tags := New(Options{TemplateTags: [][]string{{"for", "endfor"}, {"cache", "endcache"}}}).TemplateTags()
	if len(tags) != len(DefaultTemplateTags)+1 {
		t.Errorf("len(TemplateTags()) = %d", len(tags))
	}
	for _, names := range tags {
		if names[0] == "for" && len(names) != 2 {
			t.Errorf("for block not replaced: %v", names)
		}
	}
}

func TestIntermediateTags(t *testing.T) {
	g := New(Options{})
	tests := []struct {
		src string
		ok  bool
	}{
		{`{% else %}`, false},
		{`{% endif %}`, false},
		{`{% if a %}`, false},
		{`{% iffy %}`, true},
		{`{% elsewhere %}`, true},
		{`{% csrf_token %}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Run(g.Template(), tt.src)
			if (err == nil) != tt.ok {
				t.Errorf("Run() error = %v, want ok = %v", err, tt.ok)
			}
		})
	}
}

func TestWhitespaceFlags(t *testing.T) {
	g := New(Options{})
	got, err := Run(g.Template(), "{{+ x -}}")
	if err != nil {
		t.Fatal(err)
	}
	want := &ast.TemplateVariable{Content: "x", LeftPlus: true, RightMinus: true}
	if diff := cmp.Diff(want, got, ignoreLocations...); diff != "" {
		t.Errorf("variable mismatch (-want +got):\n%s", diff)
	}

	got, err = Run(g.Template(), "{%- if a -%}b{%- endif %}")
	if err != nil {
		t.Fatal(err)
	}
	el := got.(*ast.TemplateElement)
	open := el.Parts[0].Tag
	if !open.LeftMinus || !open.RightMinus || open.Content != "a" {
		t.Errorf("opening tag = %+v", open)
	}
	if !el.Close.LeftMinus || el.Close.RightMinus {
		t.Errorf("closing tag = %+v", el.Close)
	}
}

func TestOptionalContainer(t *testing.T) {
	g := New(Options{})
	src := "{% if a %}<a href=\"b\">{% endif %}c<b>d</b>{% if a %}</a>{% endif %}"
	tree, err := g.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	oc, ok := tree.Single().(*ast.OptionalContainer)
	if !ok {
		t.Fatalf("got %s", ast.Pretty(tree))
	}
	if oc.FirstOpeningIf.Content != "a" || oc.ClosingTag.Name.String() != "a" {
		t.Errorf("container = %s", oc)
	}
	if got := tree.String(); got != src {
		t.Errorf("String() = %q", got)
	}

	multiline := "{% if a %}\n  <a>\n{% endif %}\nx\n{% if a %}\n  </a>\n{% endif %}"
	if _, err := g.Parse(multiline); err != nil {
		t.Errorf("multiline: %v", err)
	}

	_, err := g.Parse("{% if a %}<a>{% endif %}c{% if b %}</a>{% endif %}")
	if err == nil {
		t.Fatal("mismatched conditions accepted")
	}
	if want := "expected '{% if a %}' at 1:25"; err.Error() != want {
		t.Errorf("mismatched conditions: error = %q, want %q", err, want)
	}
}

func TestUnclosedBlocks(t *testing.T) {
	const n = 200
	src := strings.Repeat("{% for x in y %}a", n)
	done := make(chan error, 1)
	var tree *ast.Interp
	go func() {
		var err error
		tree, err = New(Options{}).Parse(src)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Parse() did not finish")
	}
	if tree.Len() != 2*n {
		t.Errorf("got %d items, want %d", tree.Len(), 2*n)
	}
	el, ok := tree.At(0).(*ast.TemplateElement)
	if !ok || len(el.Parts) != 1 || el.Close != nil {
		t.Errorf("first item = %s, want a lone tag", tree.At(0))
	}
}

func TestLocations(t *testing.T) {
	tree, err := New(Options{}).Parse("<div>\n  <p>x</p>\n</div>")
	if err != nil {
		t.Fatal(err)
	}
	div := tree.Single().(*ast.Element)
	p := div.Content.At(1).(*ast.Element)
	want := ast.Span{From: ast.Location{Line: 1, Column: 2, Index: 8}, To: ast.Location{Line: 1, Column: 10, Index: 16}}
	if p.Span != want {
		t.Errorf("span = %+v, want %+v", p.Span, want)
	}
	if got := div.Close.Begin(); got != (ast.Location{Line: 2, Column: 0, Index: 17}) {
		t.Errorf("closing tag at %+v", got)
	}
}

func TestRawElements(t *testing.T) {
	g := New(Options{})
	body := `if (a < b) { x("</div>") }`
	el, err := Run(g.Element(), "<script>"+body+"</script>")
	if err != nil {
		t.Fatal(err)
	}
	if !el.Raw {
		t.Error("script is not raw")
	}
	if s, ok := el.Content.SingleText(); !ok || s != body {
		t.Errorf("content = %q", el.Content)
	}
	if _, err := g.Parse("<style>a {}"); err == nil {
		t.Error("unterminated style accepted")
	}
}

func TestVoidAndSVGElements(t *testing.T) {
	g := New(Options{})
	tests := []struct {
		src       string
		slash     bool
		container bool
	}{
		{`<input>`, false, false},
		{`<br/>`, true, false},
		{`<img src="a.png" />`, true, false},
		{`<path d="M0"/>`, true, false},
		{`<path d="M0"></path>`, false, true},
		{`<DIV></DIV>`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			el, err := Run(g.Element(), tt.src)
			if err != nil {
				t.Fatal(err)
			}
			if (el.Open.Slash != nil) != tt.slash {
				t.Errorf("slash = %v", el.Open.Slash)
			}
			if (el.Close != nil) != tt.container {
				t.Errorf("closing tag = %v", el.Close)
			}
		})
	}
}
