package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/neurodesk/templint/pkg/ast"
	"github.com/neurodesk/templint/pkg/config"
	"github.com/neurodesk/templint/pkg/issue"
	"github.com/neurodesk/templint/pkg/lint"
	"github.com/neurodesk/templint/pkg/parse"
	"github.com/neurodesk/templint/pkg/report"
	"github.com/neurodesk/templint/pkg/rules"
)

// errIssuesFound makes the process exit with status 1 without logging.
var errIssuesFound = errors.New("issues found")

type options struct {
	configPath    string
	parseOnly     bool
	format        string
	rules         []string
	templateTags  string
	include       string
	exclude       string
	verbose       bool
	quiet         bool
	jobs          int
	stdinFilepath string
}

var opts options

var rootCmd = cobra.Command{
	Use:           "templint [flags] [PATH...]",
	Short:         "Lint HTML templates that mix Jinja or Django template syntax",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(opts.verbose, opts.quiet)
		if len(args) == 0 {
			args = []string{"."}
		}
		cfg, err := loadConfig(cmd, &opts, args[0])
		if err != nil {
			return err
		}
		return runLint(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, &opts, args)
	},
}

var parseCmd = cobra.Command{
	Use:   "parse FILE",
	Short: "Print the parse tree of a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(opts.verbose, opts.quiet)
		cfg, err := loadConfig(cmd, &opts, args[0])
		if err != nil {
			return err
		}
		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return printTree(cmd.OutOrStdout(), cfg, args[0], string(src))
	},
}

func setupLogging(verbose, quiet bool) {
	level := slog.LevelInfo
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig reads the config file named by --config, or the one found
// above start, and applies the command-line overrides.
func loadConfig(cmd *cobra.Command, o *options, start string) (*config.Config, error) {
	path := o.configPath
	if path == "" && start != "-" {
		found, err := config.Discover(start)
		if err != nil {
			return nil, fmt.Errorf("looking for config: %w", err)
		}
		path = found
	}
	cfg := config.Default()
	if path != "" {
		slog.Debug("loading config", "path", path)
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := applyFlags(cfg, o, cmd.Flags().Changed); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyFlags overrides cfg with every flag changed reports as set.
func applyFlags(cfg *config.Config, o *options, changed func(string) bool) error {
	if changed("parse-only") {
		cfg.ParseOnly = o.parseOnly
	}
	if changed("format") {
		cfg.Format = o.format
	}
	if changed("include") {
		cfg.Include = o.include
	}
	if changed("exclude") {
		cfg.Exclude = o.exclude
	}
	if changed("template-tags") {
		tags, err := config.ParseTemplateTagsFlag(o.templateTags)
		if err != nil {
			return err
		}
		cfg.TemplateTags = tags
	}
	for _, r := range o.rules {
		code, v, err := config.ParseRuleFlag(r)
		if err != nil {
			return err
		}
		if cfg.Rules == nil {
			cfg.Rules = map[string]any{}
		}
		cfg.Rules[code] = v
	}
	return nil
}

func runLint(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, cfg *config.Config, o *options, args []string) error {
	format, err := report.Get(cfg.Format)
	if err != nil {
		return err
	}
	linter := lint.New(rules.Default(), cfg.LintOptions(o.jobs))

	var issues []issue.Issue
	if len(args) == 1 && args[0] == "-" {
		src, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		name := o.stdinFilepath
		if name == "" {
			name = "-"
		}
		issues, err = linter.LintSource(name, string(src))
		if err != nil {
			return err
		}
	} else {
		dopts, err := cfg.DiscoverOptions()
		if err != nil {
			return err
		}
		files, err := lint.Discover(args, dopts)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			slog.Info("no templates found", "paths", args)
		}
		issues, err = linter.LintFiles(ctx, files)
		if err != nil {
			return err
		}
	}

	if err := format(stdout, issues); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if len(issues) == 0 {
		return nil
	}
	if !o.quiet && cfg.Format != "json" {
		fmt.Fprintln(stderr, report.Summary(len(issues)))
	}
	return errIssuesFound
}

func printTree(w io.Writer, cfg *config.Config, path, src string) error {
	g := parse.New(cfg.LintOptions(0).Parse)
	tree, err := g.Parse(src)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	_, err = fmt.Fprint(w, ast.Pretty(tree))
	return err
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a templint.yaml or templint.star file")
	flags.StringVar(&opts.templateTags, "template-tags", "", `Extra structured template tags, for example '[["cache", "endcache"]]'`)
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log skipped files and configuration details")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Only log errors")

	rootCmd.Flags().BoolVar(&opts.parseOnly, "parse-only", false, "Only report parse errors")
	rootCmd.Flags().StringVarP(&opts.format, "format", "f", "compact", "Output format: compact, json or stylish")
	rootCmd.Flags().StringArrayVar(&opts.rules, "rule", nil, `Enable a rule, as 'code' or 'code: options', for example 'indent: 2'`)
	rootCmd.Flags().StringVar(&opts.include, "include", lint.DefaultInclude, "Regular expression of paths to lint")
	rootCmd.Flags().StringVar(&opts.exclude, "exclude", lint.DefaultExclude, "Regular expression of paths to skip")
	rootCmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "Number of files linted at once, 0 for one per CPU")
	rootCmd.Flags().StringVar(&opts.stdinFilepath, "stdin-filepath", "", "Name to report for a template read from stdin ('-')")

	rootCmd.AddCommand(&parseCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if errors.Is(err, errIssuesFound) {
		os.Exit(1)
	}
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
