package issue

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/neurodesk/templint/pkg/ast"
)

func TestNew(t *testing.T) {
	got := New("test.html", ast.Location{Line: 3, Column: 23, Index: 99}, "Test message", "test_code")
	want := Issue{
		Location: Location{FilePath: "test.html", Line: 4, Column: 23},
		Message:  "Test message",
		Code:     "test_code",
	}
	if got != want {
		t.Errorf("New() = %+v, want %+v", got, want)
	}
	if s := got.String(); s != "test.html:4:23: Test message (test_code)" {
		t.Errorf("String() = %q", s)
	}
}

func TestDedupe(t *testing.T) {
	at := func(path string, line, col int, code string) Issue {
		return Issue{Location: Location{FilePath: path, Line: line, Column: col}, Message: "m", Code: code}
	}
	in := []Issue{
		at("b.html", 1, 0, "indent"),
		at("a.html", 2, 4, "indent"),
		at("a.html", 2, 0, "image_alt"),
		at("a.html", 2, 4, "indent"),
		at("a.html", 10, 0, "indent"),
	}
	want := []Issue{
		at("a.html", 2, 0, "image_alt"),
		at("a.html", 2, 4, "indent"),
		at("a.html", 10, 0, "indent"),
		at("b.html", 1, 0, "indent"),
	}
	got := Dedupe(in)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Dedupe() mismatch (-want +got):\n%s", diff)
	}
	if in[0].Location.FilePath != "b.html" {
		t.Error("Dedupe modified its input")
	}
}
