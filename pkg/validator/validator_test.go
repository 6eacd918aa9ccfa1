package validator

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
)

func TestAllCombinesErrors(t *testing.T) {
	if err := All(nil, nil); err != nil {
		t.Fatalf("All(nil, nil) = %v", err)
	}
	first, second := errors.New("first"), errors.New("second")
	err := All(first, nil, second)
	var merr *multierror.Error
	if !errors.As(err, &merr) || len(merr.Errors) != 2 {
		t.Fatalf("All() = %#v", err)
	}
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Errorf("All() does not wrap both errors: %v", err)
	}
}

func TestMap(t *testing.T) {
	tags := [][]string{{"if", "endif"}, {}, {"for", "for"}}
	err := Map(tags, func(names []string, desc string) error {
		return All(NotEmpty(names, desc), NoDuplicates(names, desc))
	}, "template_tags")
	if err == nil {
		t.Fatal("Map() accepted invalid tags")
	}
	msg := err.Error()
	for _, want := range []string{"template_tags[1] must not be empty", "template_tags[2] contains duplicate value: for"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %q", msg, want)
		}
	}
	if strings.Contains(msg, "template_tags[0]") {
		t.Errorf("valid item reported: %q", msg)
	}
}

func TestMapDictOrder(t *testing.T) {
	var seen []string
	err := MapDict(map[string]int{"b": 2, "a": 1, "c": 3}, func(k string, _ int) error {
		seen = append(seen, k)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(seen, ""); got != "abc" {
		t.Errorf("order = %s", got)
	}
}

func TestHelpers(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"allowed", MatchesAllowed("json", []string{"compact", "json"}, "format"), false},
		{"not allowed", MatchesAllowed("xml", []string{"compact", "json"}, "format"), true},
		{"pattern", MatchesPattern([]string{"if", "end_if"}, regexp.MustCompile(`^\w+$`), "tag"), false},
		{"pattern mismatch", MatchesPattern([]string{"end if"}, regexp.MustCompile(`^\w+$`), "tag"), true},
		{"regexp", Regexp(`\.html$`, "include"), false},
		{"bad regexp", Regexp(`(`, "include"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if (tt.err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", tt.err, tt.wantErr)
			}
		})
	}
}
