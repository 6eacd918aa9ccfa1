package rules

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/neurodesk/templint/pkg/lint"
)

func TestRules(t *testing.T) {
	const lang = "The `<html>` tag should have a `lang` attribute with a valid value, describing the main language of the page"
	tests := []struct {
		name string
		code string
		opts any
		src  string
		want []string
	}{
		{
			name: "image without alt",
			code: ImageAltCode,
			opts: true,
			src:  `<div><img src="a.png"></div>`,
			want: []string{"test.html:1:5: The `<img>` tag must have a `alt` attribute, either with meaningful text, or an empty string for decorative images (image_alt)"},
		},
		{name: "decorative image", code: ImageAltCode, opts: true, src: `<img src="a.png" alt="">`},
		{
			name: "alt inside template code",
			code: ImageAltCode,
			opts: true,
			src:  `<img {% if a %}alt="x"{% endif %}>`,
			want: []string{"test.html:1:0: The `<img>` tag must have a `alt` attribute, either with meaningful text, or an empty string for decorative images (image_alt)"},
		},
		{
			name: "html without lang",
			code: HTMLHasLangCode,
			opts: true,
			src:  "<html>\n<body></body>\n</html>",
			want: []string{"test.html:1:0: " + lang + " (html_has_lang)"},
		},
		{name: "html with lang", code: HTMLHasLangCode, opts: true, src: `<html lang="fr"></html>`},
		{
			name: "html with other lang",
			code: HTMLHasLangCode,
			opts: "en",
			src:  `<html lang="fr"></html>`,
			want: []string{"test.html:1:0: " + lang + ". Allowed values: en (html_has_lang)"},
		},
		{name: "html with allowed lang", code: HTMLHasLangCode, opts: []any{"en", "fr"}, src: `<html lang='fr'></html>`},
		{name: "valid role", code: AriaRoleCode, opts: true, src: `<div role="search"></div>`},
		{
			name: "invalid role",
			code: AriaRoleCode,
			opts: true,
			src:  "<p>\n  <span role=\"widget\">x</span>\n</p>",
			want: []string{"test.html:2:2: The `role` attribute needs to have a valid value (aria_role)"},
		},
		{
			name: "role outside list",
			code: AriaRoleCode,
			opts: []any{"banner"},
			src:  `<div role="search"></div>`,
			want: []string{"test.html:1:0: The `role` attribute needs to have a valid value (aria_role)"},
		},
		{
			name: "viewport not scalable",
			code: MetaViewportCode,
			opts: true,
			src:  `<meta name="viewport" content="width=device-width, user-scalable=no">`,
			want: []string{"test.html:1:0: Remove `user-scalable=no` from the viewport meta so users can zoom (meta_viewport)"},
		},
		{
			name: "viewport maximum scale",
			code: MetaViewportCode,
			opts: true,
			src:  `<meta name="viewport" content="width=device-width, maximum-scale=1.0">`,
			want: []string{"test.html:1:0: `maximum-scale` should not be less than 2 (meta_viewport)"},
		},
		{name: "viewport zoomable", code: MetaViewportCode, opts: true, src: `<meta name="viewport" content="maximum-scale=2">`},
		{name: "other meta", code: MetaViewportCode, opts: true, src: `<meta name="description" content="user-scalable=no">`},
		{
			name: "autofocus input",
			code: NoAutofocusCode,
			opts: true,
			src:  `<input type="text" autofocus>`,
			want: []string{"test.html:1:0: Do not use the `autofocus` attribute, which causes issues for screen reader users (no_autofocus)"},
		},
		{name: "autofocus elsewhere", code: NoAutofocusCode, opts: true, src: `<div autofocus></div>`},
		{
			name: "positive tabindex",
			code: TabindexNoPositiveCode,
			opts: true,
			src:  `<a href="#" tabindex="1">x</a><a tabindex=2>y</a>`,
			want: []string{
				"test.html:1:0: Avoid positive `tabindex` values, change the order of elements on the page instead (tabindex_no_positive)",
				"test.html:1:30: Avoid positive `tabindex` values, change the order of elements on the page instead (tabindex_no_positive)",
			},
		},
		{name: "zero and negative tabindex", code: TabindexNoPositiveCode, opts: true, src: `<a tabindex="0"></a><a tabindex="-1"></a><a tabindex="{{ i }}"></a>`},
		{
			name: "form as table",
			code: DjangoFormsRenderingCode,
			opts: true,
			src:  `<form>{{ form.as_table }}</form>`,
			want: []string{"test.html:1:6: Avoid using `as_table` to render Django forms (django_forms_rendering)"},
		},
		{
			name: "form as p",
			code: DjangoFormsRenderingCode,
			opts: true,
			src:  `{% if a %}{{ form.as_p }}{% endif %}`,
			want: []string{"test.html:1:10: Avoid using `as_p` to render Django forms (django_forms_rendering)"},
		},
		{name: "form as p allowed", code: DjangoFormsRenderingCode, opts: "as_p", src: `{{ form.as_p }}`},
		{
			name: "blocktrans without trimmed",
			code: DjangoBlockTranslateTrimmedCode,
			opts: true,
			src:  `{% if a %}{% blocktrans count n=1 %}x{% plural %}y{% endblocktrans %}{% endif %}`,
			want: []string{"test.html:1:10: `{% blocktrans count n=1 %}` must use the `trimmed` option (django_block_translate_trimmed)"},
		},
		{name: "blocktranslate trimmed", code: DjangoBlockTranslateTrimmedCode, opts: true, src: `{% blocktranslate trimmed with a=b %}x{% endblocktranslate %}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := lint.New(Default(), lint.Options{Rules: map[string]any{tt.code: tt.opts}})
			got, err := l.LintSource("test.html", tt.src)
			if err != nil {
				t.Fatalf("LintSource() error = %v", err)
			}
			want := tt.want
			if want == nil {
				want = []string{}
			}
			if diff := cmp.Diff(want, render(got)); diff != "" {
				t.Errorf("%s mismatch (-want +got):\n%s", tt.code, diff)
			}
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	reg := Default()
	for _, code := range []string{
		IndentCode, AriaRoleCode, HTMLHasLangCode, ImageAltCode, MetaViewportCode,
		NoAutofocusCode, TabindexNoPositiveCode, DjangoFormsRenderingCode,
		DjangoBlockTranslateTrimmedCode,
	} {
		if reg[code] == nil {
			t.Errorf("rule %s not registered", code)
		}
	}
	if _, ok := reg["table_has_caption"]; ok {
		t.Error("table_has_caption registered")
	}
}
