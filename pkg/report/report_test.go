package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/neurodesk/templint/pkg/issue"
)

var issues = []issue.Issue{
	{Location: issue.Location{FilePath: "b.html", Line: 1, Column: 0}, Message: "Bad", Code: "indent"},
	{Location: issue.Location{FilePath: "a.html", Line: 3, Column: 2}, Message: "Later", Code: "image_alt"},
	{Location: issue.Location{FilePath: "a.html", Line: 1, Column: 4}, Message: "First", Code: "aria_role"},
}

func TestCompact(t *testing.T) {
	var buf bytes.Buffer
	if err := Compact(&buf, issues); err != nil {
		t.Fatal(err)
	}
	want := "a.html:1:4: First (aria_role)\n" +
		"a.html:3:2: Later (image_alt)\n" +
		"b.html:1:0: Bad (indent)\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("Compact() mismatch (-want +got):\n%s", diff)
	}
	if issues[0].Location.FilePath != "b.html" {
		t.Error("Compact() reordered its input")
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, issues[:1]); err != nil {
		t.Fatal(err)
	}
	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	want := []map[string]any{{
		"file_path": "b.html",
		"line":      float64(1),
		"column":    float64(0),
		"message":   "Bad",
		"code":      "indent",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("JSON() mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	if err := JSON(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("JSON(nil) = %q, want []", got)
	}
}

func TestStylish(t *testing.T) {
	var buf bytes.Buffer
	if err := Stylish(&buf, issues); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"a.html", "1:4", "\tFirst\taria_role\n", "\tLater\timage_alt\n", "b.html", "\tBad\tindent\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("Stylish() output %q does not contain %q", out, want)
		}
	}
	if strings.Index(out, "a.html") > strings.Index(out, "b.html") {
		t.Errorf("Stylish() groups out of order:\n%s", out)
	}
	if n := strings.Count(out, "\n\n"); n != 2 {
		t.Errorf("Stylish() has %d group separators, want 2", n)
	}
}

func TestGet(t *testing.T) {
	for _, name := range []string{"compact", "json", "stylish"} {
		if _, err := Get(name); err != nil {
			t.Errorf("Get(%q) error = %v", name, err)
		}
	}
	if _, err := Get("xml"); err == nil {
		t.Error("Get(xml) succeeded")
	}
}

func TestSummary(t *testing.T) {
	for n, want := range map[int]string{0: "", 1: "1 error reported", 3: "3 errors reported"} {
		if got := Summary(n); got != want {
			t.Errorf("Summary(%d) = %q, want %q", n, got, want)
		}
	}
}
