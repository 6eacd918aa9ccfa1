// Package lint parses template files and runs the configured rules over them.
package lint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/neurodesk/templint/pkg/ast"
	"github.com/neurodesk/templint/pkg/issue"
	"github.com/neurodesk/templint/pkg/parse"
)

// ParseErrorCode is the code of the issue reported for unparsable files.
const ParseErrorCode = "parse_error"

// ErrInternal marks a rule that met a tree it cannot handle. It is a bug,
// never a finding.
var ErrInternal = errors.New("internal rule error")

// File is a parsed template.
type File struct {
	Path   string
	Source string
	Lines  []string
	Tree   *ast.Interp
}

// LineBeginning returns the text between the start of the line holding at
// and at itself.
func (f *File) LineBeginning(at ast.Location) string {
	src := f.Source[:at.Index]
	return src[strings.LastIndexByte(src, '\n')+1:]
}

// ParseError is returned when a file does not match the grammar. It carries
// the issue to report for the file.
type ParseError struct {
	Issue issue.Issue
	Err   *parse.SyntaxError
}

func (e *ParseError) Error() string { return e.Issue.String() }

func (e *ParseError) Unwrap() error { return e.Err }

// Rule checks a file. opts is the value configured for the rule.
type Rule func(f *File, opts any) ([]issue.Issue, error)

// Registry maps rule codes to rules.
type Registry map[string]Rule

// Disabled reports whether a configured rule value turns the rule off.
func Disabled(opts any) bool {
	switch v := opts.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return v == "off"
	}
	return false
}

// Check runs every enabled rule of config on f and returns the union of
// their issues, sorted and without duplicates.
func (r Registry) Check(f *File, config map[string]any) ([]issue.Issue, error) {
	var out []issue.Issue
	for _, code := range slices.Sorted(maps.Keys(config)) {
		opts := config[code]
		if Disabled(opts) {
			continue
		}
		rule, ok := r[code]
		if !ok {
			slog.Warn("unknown rule", "code", code)
			continue
		}
		found, err := rule(f, opts)
		if err != nil {
			return nil, fmt.Errorf("rule %s on %s: %w", code, f.Path, err)
		}
		out = append(out, found...)
	}
	return issue.Dedupe(out), nil
}

// Options configures a Linter.
type Options struct {
	Parse     parse.Options
	Rules     map[string]any
	ParseOnly bool
	// Jobs bounds the number of files processed at once. Zero means one per
	// CPU.
	Jobs int
}

// Linter lints batches of files with one configuration. The grammar is built
// once and shared by all workers.
type Linter struct {
	grammar   *parse.Grammar
	registry  Registry
	rules     map[string]any
	parseOnly bool
	jobs      int
}

// New builds a Linter. Unknown rule codes are reported once here and then
// ignored.
func New(registry Registry, opts Options) *Linter {
	rules := map[string]any{}
	for code, v := range opts.Rules {
		if Disabled(v) {
			continue
		}
		if _, ok := registry[code]; !ok {
			slog.Warn("unknown rule", "code", code)
			continue
		}
		rules[code] = v
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	return &Linter{
		grammar:   parse.New(opts.Parse),
		registry:  registry,
		rules:     rules,
		parseOnly: opts.ParseOnly,
		jobs:      jobs,
	}
}

// Grammar returns the grammar the linter parses with.
func (l *Linter) Grammar() *parse.Grammar { return l.grammar }

// ParseSource parses src. A syntax error is returned as a *ParseError.
func (l *Linter) ParseSource(path, src string) (*File, error) {
	tree, err := l.grammar.Parse(src)
	if err != nil {
		var se *parse.SyntaxError
		if errors.As(err, &se) {
			return nil, &ParseError{
				Issue: issue.New(path, se.Location, "Parse error: "+se.Error(), ParseErrorCode),
				Err:   se,
			}
		}
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &File{
		Path:   path,
		Source: src,
		Lines:  strings.Split(src, "\n"),
		Tree:   tree,
	}, nil
}

// CheckFile runs the enabled rules on f.
func (l *Linter) CheckFile(f *File) ([]issue.Issue, error) {
	return l.registry.Check(f, l.rules)
}

// Source is a file to lint. Text is read from Path when nil.
type Source struct {
	Path string
	Text *string
}

// LintSource parses and checks one file. A parse failure yields its
// parse_error issue and no error.
func (l *Linter) LintSource(path, src string) ([]issue.Issue, error) {
	f, err := l.ParseSource(path, src)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return []issue.Issue{pe.Issue}, nil
		}
		return nil, err
	}
	if l.parseOnly {
		return nil, nil
	}
	return l.CheckFile(f)
}

// Lint processes sources concurrently and returns every issue found, sorted.
// Files are independent: a parse error in one does not stop the others.
func (l *Linter) Lint(ctx context.Context, sources []Source) ([]issue.Issue, error) {
	results := make([][]issue.Issue, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.jobs)
	for i, s := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := s.read()
			if err != nil {
				return err
			}
			found, err := l.LintSource(s.Path, src)
			if err != nil {
				return err
			}
			slog.Debug("linted", "path", s.Path, "issues", len(found))
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := slices.Concat(results...)
	issue.Sort(out)
	return out, nil
}

// LintFiles reads and lints the files at paths.
func (l *Linter) LintFiles(ctx context.Context, paths []string) ([]issue.Issue, error) {
	sources := make([]Source, len(paths))
	for i, p := range paths {
		sources[i] = Source{Path: p}
	}
	return l.Lint(ctx, sources)
}

func (s Source) read() (string, error) {
	if s.Text != nil {
		return *s.Text, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("reading template: %w", err)
	}
	return string(data), nil
}
