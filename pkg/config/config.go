// Package config loads linter settings from YAML or Starlark files and
// command-line overrides.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"go.yaml.in/yaml/v4"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/neurodesk/templint/pkg/lint"
	"github.com/neurodesk/templint/pkg/parse"
	"github.com/neurodesk/templint/pkg/starlark"
	"github.com/neurodesk/templint/pkg/validator"
)

// Formats are the accepted report format names.
var Formats = []string{"compact", "json", "stylish"}

// FileNames are the configuration files Discover looks for, in order.
var FileNames = []string{"templint.yaml", ".templint.yaml", "templint.star"}

var tagName = regexp.MustCompile(`^\w+$`)

// Config holds every linter setting.
type Config struct {
	TemplateTags [][]string `yaml:"template_tags,omitempty"`
	// IndentSize enables the indent rule with that size unless rules sets
	// it. Zero means unset.
	IndentSize int            `yaml:"indent_size,omitempty"`
	Rules      map[string]any `yaml:"rules,omitempty"`
	ParseOnly  bool           `yaml:"parse_only,omitempty"`
	Format     string         `yaml:"format,omitempty"`
	Include    string         `yaml:"include,omitempty"`
	Exclude    string         `yaml:"exclude,omitempty"`
	IgnoreFile string         `yaml:"ignore_file,omitempty"`
}

// Default returns the settings used when no file is found.
func Default() *Config {
	return &Config{
		Format:     "compact",
		Include:    lint.DefaultInclude,
		Exclude:    lint.DefaultExclude,
		IgnoreFile: ".gitignore",
	}
}

// document is the YAML file layout. jinja_custom_elements_names is the
// older name of template_tags.
type document struct {
	Config                   `yaml:",inline"`
	JinjaCustomElementsNames [][]string `yaml:"jinja_custom_elements_names,omitempty"`
}

// LoadYAML reads a YAML config file over the defaults. Unknown keys are
// rejected.
func LoadYAML(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	doc := document{Config: *Default()}
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg := doc.Config
	if len(cfg.TemplateTags) == 0 {
		cfg.TemplateTags = doc.JinjaCustomElementsNames
	}
	return &cfg, nil
}

// LoadStarlark executes a Starlark config file over the defaults and reads
// its globals.
func LoadStarlark(path string) (*Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	e := starlark.NewEvaluator()
	if _, err := e.ExecFile(path, src); err != nil {
		return nil, err
	}
	globals, err := e.Globals()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg := Default()
	if err := cfg.apply(globals); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) apply(globals map[string]any) error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(globals)) {
		v := globals[name]
		var err error
		switch name {
		case "template_tags", "jinja_custom_elements_names":
			var tags [][]string
			if tags, err = stringTable(v); err == nil && (name == "template_tags" || len(c.TemplateTags) == 0) {
				c.TemplateTags = tags
			}
		case "indent_size":
			n, ok := v.(int64)
			if !ok {
				err = fmt.Errorf("must be an integer, got %T", v)
			}
			c.IndentSize = int(n)
		case "rules":
			m, ok := v.(map[string]any)
			if !ok {
				err = fmt.Errorf("must be a dict, got %T", v)
			}
			c.Rules = m
		case "parse_only":
			b, ok := v.(bool)
			if !ok {
				err = fmt.Errorf("must be a bool, got %T", v)
			}
			c.ParseOnly = b
		case "format", "include", "exclude", "ignore_file":
			s, ok := v.(string)
			if !ok {
				err = fmt.Errorf("must be a string, got %T", v)
				break
			}
			*c.stringField(name) = s
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return validator.All(errs...)
}

func (c *Config) stringField(name string) *string {
	switch name {
	case "format":
		return &c.Format
	case "include":
		return &c.Include
	case "exclude":
		return &c.Exclude
	}
	return &c.IgnoreFile
}

func stringTable(v any) ([][]string, error) {
	rows, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("must be a list, got %T", v)
	}
	out := make([][]string, 0, len(rows))
	for i, row := range rows {
		cells, ok := row.([]any)
		if !ok {
			return nil, fmt.Errorf("item %d must be a list, got %T", i, row)
		}
		names := make([]string, 0, len(cells))
		for _, cell := range cells {
			s, ok := cell.(string)
			if !ok {
				return nil, fmt.Errorf("item %d must hold strings, got %T", i, cell)
			}
			names = append(names, s)
		}
		out = append(out, names)
	}
	return out, nil
}

// Load reads a config file, choosing the format by extension.
func Load(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	case ".star", ".py":
		return LoadStarlark(path)
	}
	return nil, fmt.Errorf("unsupported config file %s", path)
}

// Discover looks for a config file in start and its parents, stopping at
// the first directory holding .git or .hg. It returns "" when none exists.
func Discover(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	if fi, err := os.Stat(dir); err == nil && !fi.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		for _, name := range FileNames {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", err
			}
		}
		if isProjectRoot(dir) {
			return "", nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func isProjectRoot(dir string) bool {
	for _, marker := range []string{".git", ".hg"} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// ParseRuleFlag parses a "code: options" rule override. A bare code enables
// the rule.
func ParseRuleFlag(s string) (string, any, error) {
	code, rest, found := strings.Cut(s, ":")
	code = strings.TrimSpace(code)
	if code == "" {
		return "", nil, fmt.Errorf("invalid rule %q: missing code", s)
	}
	if !found || strings.TrimSpace(rest) == "" {
		return code, true, nil
	}
	var opts any
	if err := yamlv3.Unmarshal([]byte(rest), &opts); err != nil {
		return "", nil, fmt.Errorf("invalid options for rule %s: %w", code, err)
	}
	return code, opts, nil
}

// ParseTemplateTagsFlag parses a list of tag name lists, for example
// [["cache", "endcache"]].
func ParseTemplateTagsFlag(s string) ([][]string, error) {
	var tags [][]string
	if err := yamlv3.Unmarshal([]byte(s), &tags); err != nil {
		return nil, fmt.Errorf("invalid template tags: %w", err)
	}
	return tags, nil
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	return validator.All(
		validator.Map(c.TemplateTags, func(names []string, desc string) error {
			return validator.All(
				validator.NotEmpty(names, desc),
				validator.NoDuplicates(names, desc),
				validator.MatchesPattern(names, tagName, desc),
			)
		}, "template_tags"),
		validator.MatchesAllowed(c.Format, Formats, "format"),
		validator.Regexp(c.Include, "include"),
		validator.Regexp(c.Exclude, "exclude"),
		func() error {
			if c.IndentSize < 0 {
				return fmt.Errorf("indent_size must not be negative, got %d", c.IndentSize)
			}
			return nil
		}(),
	)
}

// RuleConfig returns the rules to run. indent_size enables the indent rule
// when rules does not mention it.
func (c *Config) RuleConfig() map[string]any {
	out := maps.Clone(c.Rules)
	if out == nil {
		out = map[string]any{}
	}
	if _, ok := out["indent"]; !ok && c.IndentSize > 0 {
		out["indent"] = c.IndentSize
	}
	return out
}

// LintOptions returns the linter options for c. jobs is passed through.
func (c *Config) LintOptions(jobs int) lint.Options {
	return lint.Options{
		Parse:     parse.Options{TemplateTags: slices.Clone(c.TemplateTags)},
		Rules:     c.RuleConfig(),
		ParseOnly: c.ParseOnly,
		Jobs:      jobs,
	}
}

// DiscoverOptions compiles the path filters. Call Validate first.
func (c *Config) DiscoverOptions() (lint.DiscoverOptions, error) {
	opts := lint.DiscoverOptions{IgnoreFile: c.IgnoreFile}
	var err error
	if c.Include != "" {
		if opts.Include, err = regexp.Compile(c.Include); err != nil {
			return opts, fmt.Errorf("include: %w", err)
		}
	}
	if c.Exclude != "" {
		if opts.Exclude, err = regexp.Compile(c.Exclude); err != nil {
			return opts, fmt.Errorf("exclude: %w", err)
		}
	}
	return opts, nil
}
