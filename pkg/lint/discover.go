package lint

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/moby/patternmatcher"
	"github.com/moby/patternmatcher/ignorefile"
)

// Default path filters.
const (
	DefaultInclude = `\.(html|jinja|njk|twig)$`
	DefaultExclude = `/(\.direnv|\.eggs|\.git|\.hg|\.mypy_cache|\.nox|\.tox|\.venv|\.svn|_build|buck-out|build|dist|node_modules|venv)/`
)

// DiscoverOptions selects the files to lint below the input paths.
type DiscoverOptions struct {
	// Include and Exclude are matched against the slash-separated path
	// relative to the project root, with a leading slash and, for
	// directories, a trailing one.
	Include *regexp.Regexp
	Exclude *regexp.Regexp
	// IgnoreFile names a gitignore-style file at the project root. Empty
	// disables it.
	IgnoreFile string
}

// FindProjectRoot returns the closest directory above the common base of
// paths that holds a .git or .hg entry, or the filesystem root.
func FindProjectRoot(paths []string) (string, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}
	var base string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("resolving %s: %w", p, err)
		}
		if base == "" || abs < base {
			base = abs
		}
	}
	if fi, err := os.Stat(base); err != nil || !fi.IsDir() {
		base = filepath.Dir(base)
	}
	for dir := base; ; dir = filepath.Dir(dir) {
		for _, marker := range []string{".git", ".hg"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}
		if parent := filepath.Dir(dir); parent == dir {
			return dir, nil
		}
	}
}

// Discover expands paths into the list of template files to lint. Files
// named explicitly skip the Include filter but not Exclude or the ignore file.
func Discover(paths []string, opts DiscoverOptions) ([]string, error) {
	root, err := FindProjectRoot(paths)
	if err != nil {
		return nil, err
	}
	ignored, err := loadIgnoreFile(root, opts.IgnoreFile)
	if err != nil {
		return nil, err
	}
	d := &discoverer{root: root, opts: opts, ignored: ignored}

	var out []string
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("discovering templates: %w", err)
		}
		if !fi.IsDir() {
			if ok, err := d.keep(p, false, true); err != nil {
				return nil, err
			} else if ok {
				out = append(out, p)
			}
			continue
		}
		err = filepath.WalkDir(p, func(path string, e fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == p {
				return nil
			}
			ok, err := d.keep(path, e.IsDir(), false)
			if err != nil {
				return err
			}
			switch {
			case e.IsDir() && !ok:
				return filepath.SkipDir
			case !e.IsDir() && ok && e.Type().IsRegular():
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

type discoverer struct {
	root    string
	opts    DiscoverOptions
	ignored *patternmatcher.PatternMatcher
}

func (d *discoverer) keep(path string, dir, explicit bool) (bool, error) {
	rel := path
	if abs, err := filepath.Abs(path); err == nil {
		if r, err := filepath.Rel(d.root, abs); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)

	if d.ignored != nil {
		match, err := d.ignored.MatchesOrParentMatches(rel)
		if err != nil {
			return false, fmt.Errorf("matching %s: %w", rel, err)
		}
		if match {
			slog.Debug("ignored", "path", path, "reason", d.opts.IgnoreFile)
			return false, nil
		}
	}

	key := "/" + strings.TrimPrefix(rel, "/")
	if dir {
		key += "/"
	}
	if d.opts.Exclude != nil && d.opts.Exclude.MatchString(key) {
		slog.Debug("ignored", "path", path, "reason", "matches exclude")
		return false, nil
	}
	if dir || explicit || d.opts.Include == nil {
		return true, nil
	}
	return d.opts.Include.MatchString(key), nil
}

func loadIgnoreFile(root, name string) (*patternmatcher.PatternMatcher, error) {
	if name == "" {
		return nil, nil
	}
	f, err := os.Open(filepath.Join(root, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()
	patterns, err := ignorefile.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	pm, err := patternmatcher.New(gitignorePatterns(patterns))
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", name, err)
	}
	return pm, nil
}

// gitignorePatterns anchors patterns the way git does: a pattern without a
// slash matches at any depth.
func gitignorePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		neg := strings.HasPrefix(p, "!")
		body := strings.TrimPrefix(p, "!")
		body = strings.TrimSuffix(body, "/")
		if body == "" {
			continue
		}
		if !strings.Contains(body, "/") && !strings.HasPrefix(body, "**") {
			body = "**/" + body
		}
		if neg {
			body = "!" + body
		}
		out = append(out, body)
	}
	return out
}
