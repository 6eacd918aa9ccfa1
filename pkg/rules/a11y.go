package rules

import (
	"slices"
	"strconv"
	"strings"

	a "golang.org/x/net/html/atom"

	"github.com/neurodesk/templint/pkg/ast"
	"github.com/neurodesk/templint/pkg/issue"
	"github.com/neurodesk/templint/pkg/lint"
)

const (
	AriaRoleCode           = "aria_role"
	HTMLHasLangCode        = "html_has_lang"
	ImageAltCode           = "image_alt"
	MetaViewportCode       = "meta_viewport"
	NoAutofocusCode        = "no_autofocus"
	TabindexNoPositiveCode = "tabindex_no_positive"
)

// ValidRoles are the non-abstract WAI-ARIA and DPUB-ARIA roles.
var ValidRoles = []string{
	"alert", "alertdialog", "application", "article", "banner", "button",
	"cell", "checkbox", "columnheader", "combobox", "complementary",
	"contentinfo", "definition", "dialog", "directory", "document", "feed",
	"figure", "form", "grid", "gridcell", "group", "heading", "img", "link",
	"list", "listbox", "listitem", "log", "main", "marquee", "math", "menu",
	"menubar", "menuitem", "menuitemcheckbox", "menuitemradio", "navigation",
	"none", "note", "option", "presentation", "progressbar", "radio",
	"radiogroup", "region", "row", "rowgroup", "rowheader", "scrollbar",
	"search", "searchbox", "separator", "slider", "spinbutton", "status",
	"switch", "tab", "table", "tablist", "tabpanel", "term", "textbox",
	"timer", "toolbar", "tooltip", "tree", "treegrid", "treeitem",
	"doc-abstract", "doc-acknowledgments", "doc-afterword", "doc-appendix",
	"doc-backlink", "doc-biblioentry", "doc-bibliography", "doc-biblioref",
	"doc-chapter", "doc-colophon", "doc-conclusion", "doc-cover",
	"doc-credit", "doc-credits", "doc-dedication", "doc-endnote",
	"doc-endnotes", "doc-epigraph", "doc-epilogue", "doc-errata",
	"doc-example", "doc-footnote", "doc-foreword", "doc-glossary",
	"doc-glossref", "doc-index", "doc-introduction", "doc-noteref",
	"doc-notice", "doc-pagebreak", "doc-pagelist", "doc-part",
	"doc-preface", "doc-prologue", "doc-pullquote", "doc-qna",
	"doc-subtitle", "doc-tip", "doc-toc",
}

// AriaRole requires role attributes to hold a valid role, or one of the
// configured roles when opts is a list.
func AriaRole(f *lint.File, opts any) ([]issue.Issue, error) {
	allowed, ok := stringList(opts)
	if !ok {
		allowed = ValidRoles
	}
	return elementRule(f, AriaRoleCode, func(el *ast.Element) (string, bool) {
		role, ok := attributes(el)["role"]
		if !ok || slices.Contains(allowed, role) {
			return "", false
		}
		return "The `role` attribute needs to have a valid value", true
	})
}

// HTMLHasLang requires a lang attribute on <html>. opts may restrict the
// accepted values.
func HTMLHasLang(f *lint.File, opts any) ([]issue.Issue, error) {
	const msg = "The `<html>` tag should have a `lang` attribute with a valid value, describing the main language of the page"
	allowed, restricted := stringList(opts)
	return elementRule(f, HTMLHasLangCode, func(el *ast.Element) (string, bool) {
		if elementAtom(el) != a.Html {
			return "", false
		}
		lang, ok := attributes(el)[a.Lang.String()]
		switch {
		case !ok:
			return msg, true
		case restricted && !slices.Contains(allowed, lang):
			return msg + ". Allowed values: " + strings.Join(allowed, ", "), true
		}
		return "", false
	})
}

// ImageAlt requires an alt attribute on <img>.
func ImageAlt(f *lint.File, _ any) ([]issue.Issue, error) {
	return elementRule(f, ImageAltCode, func(el *ast.Element) (string, bool) {
		if elementAtom(el) != a.Img {
			return "", false
		}
		if _, ok := attributes(el)[a.Alt.String()]; ok {
			return "", false
		}
		return "The `<img>` tag must have a `alt` attribute, either with meaningful text, or an empty string for decorative images", true
	})
}

// MetaViewport rejects viewport meta tags that prevent zooming.
func MetaViewport(f *lint.File, _ any) ([]issue.Issue, error) {
	return elementRule(f, MetaViewportCode, func(el *ast.Element) (string, bool) {
		if elementAtom(el) != a.Meta {
			return "", false
		}
		attrs := attributes(el)
		if attrs[a.Name.String()] != "viewport" {
			return "", false
		}
		content := attrs[a.Content.String()]
		switch {
		case strings.Contains(content, "user-scalable=no"):
			return "Remove `user-scalable=no` from the viewport meta so users can zoom", true
		case strings.Contains(content, "maximum-scale=1"), strings.Contains(content, "maximum-scale=0"):
			return "`maximum-scale` should not be less than 2", true
		}
		return "", false
	})
}

// NoAutofocus rejects the autofocus attribute on <input>.
func NoAutofocus(f *lint.File, _ any) ([]issue.Issue, error) {
	return elementRule(f, NoAutofocusCode, func(el *ast.Element) (string, bool) {
		if elementAtom(el) != a.Input {
			return "", false
		}
		if _, ok := attributes(el)[a.Autofocus.String()]; !ok {
			return "", false
		}
		return "Do not use the `autofocus` attribute, which causes issues for screen reader users", true
	})
}

// TabindexNoPositive rejects tabindex values above zero. Values that are
// not integers, template code included, are left alone.
func TabindexNoPositive(f *lint.File, _ any) ([]issue.Issue, error) {
	return elementRule(f, TabindexNoPositiveCode, func(el *ast.Element) (string, bool) {
		attr, ok := el.Attribute(a.Tabindex.String())
		if !ok {
			return "", false
		}
		v, ok := attr.Literal()
		if !ok {
			return "", false
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			return "", false
		}
		return "Avoid positive `tabindex` values, change the order of elements on the page instead", true
	})
}
