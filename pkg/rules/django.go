package rules

import (
	"slices"
	"strings"

	"github.com/neurodesk/templint/pkg/ast"
	"github.com/neurodesk/templint/pkg/issue"
	"github.com/neurodesk/templint/pkg/lint"
)

const (
	DjangoFormsRenderingCode        = "django_forms_rendering"
	DjangoBlockTranslateTrimmedCode = "django_block_translate_trimmed"
)

// DjangoFormsRendering rejects the table and list form renderers in
// variables. opts "as_p" keeps as_p allowed.
func DjangoFormsRendering(f *lint.File, opts any) ([]issue.Issue, error) {
	variants := []string{"as_table", "as_ul", "as_p"}
	if s, _ := opts.(string); s == "as_p" {
		variants = variants[:2]
	}
	var out []issue.Issue
	err := ast.Walk(ast.VisitorFunc(func(n ast.Node) error {
		v, ok := n.(*ast.TemplateVariable)
		if !ok {
			return nil
		}
		for _, variant := range variants {
			if strings.Contains(v.Content, variant) {
				out = append(out, issue.New(f.Path, v.Begin(), "Avoid using `"+variant+"` to render Django forms", DjangoFormsRenderingCode))
				break
			}
		}
		return nil
	}), f.Tree)
	return out, err
}

var blockTranslateNames = []string{"blocktrans", "blocktranslate"}

// DjangoBlockTranslateTrimmed requires the trimmed option on blocktranslate
// tags.
func DjangoBlockTranslateTrimmed(f *lint.File, _ any) ([]issue.Issue, error) {
	var out []issue.Issue
	err := ast.Walk(ast.VisitorFunc(func(n ast.Node) error {
		el, ok := n.(*ast.TemplateElement)
		if !ok {
			return nil
		}
		for _, p := range el.Parts {
			if !slices.Contains(blockTranslateNames, p.Tag.Name) {
				continue
			}
			if !slices.Contains(strings.Split(p.Tag.Content, " "), "trimmed") {
				out = append(out, issue.New(f.Path, el.Begin(), "`"+p.Tag.String()+"` must use the `trimmed` option", DjangoBlockTranslateTrimmedCode))
				break
			}
		}
		return nil
	}), f.Tree)
	return out, err
}
