// Package rules holds the checks that can be enabled in the linter
// configuration.
package rules

import (
	"strings"

	a "golang.org/x/net/html/atom"

	"github.com/neurodesk/templint/pkg/ast"
	"github.com/neurodesk/templint/pkg/issue"
	"github.com/neurodesk/templint/pkg/lint"
)

// Default returns a registry with every rule of this package.
func Default() lint.Registry {
	return lint.Registry{
		IndentCode:                      Indent,
		AriaRoleCode:                    AriaRole,
		HTMLHasLangCode:                 HTMLHasLang,
		ImageAltCode:                    ImageAlt,
		MetaViewportCode:                MetaViewport,
		NoAutofocusCode:                 NoAutofocus,
		TabindexNoPositiveCode:          TabindexNoPositive,
		DjangoFormsRenderingCode:        DjangoFormsRendering,
		DjangoBlockTranslateTrimmedCode: DjangoBlockTranslateTrimmed,
	}
}

// elementAtom returns the atom of an element's name, or 0 when the name is
// template code or not an HTML name.
func elementAtom(e *ast.Element) a.Atom {
	name, ok := e.Name()
	if !ok {
		return 0
	}
	return a.Lookup([]byte(strings.ToLower(name)))
}

// attributes maps the plain attribute names of e to their unquoted values.
// Later duplicates win.
func attributes(e *ast.Element) map[string]string {
	out := map[string]string{}
	for _, attr := range e.Attributes() {
		out[attr.Name.String()] = attr.Unquoted()
	}
	return out
}

// elementRule walks every element of the file and collects what check
// reports for it.
func elementRule(f *lint.File, code string, check func(*ast.Element) (string, bool)) ([]issue.Issue, error) {
	var out []issue.Issue
	err := ast.Walk(ast.VisitorFunc(func(n ast.Node) error {
		el, ok := n.(*ast.Element)
		if !ok {
			return nil
		}
		if msg, bad := check(el); bad {
			out = append(out, issue.New(f.Path, el.Begin(), msg, code))
		}
		return nil
	}), f.Tree)
	return out, err
}

// stringList reads a rule option that is either true or a list of strings.
// ok is false for true.
func stringList(opts any) (list []string, ok bool) {
	switch v := opts.(type) {
	case string:
		return []string{v}, true
	case []string:
		return v, true
	case []any:
		for _, it := range v {
			if s, isStr := it.(string); isStr {
				list = append(list, s)
			}
		}
		return list, true
	}
	return nil, false
}
