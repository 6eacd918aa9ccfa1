// Package starlark evaluates Starlark configuration files.
package starlark

import (
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"go.starlark.net/starlark"
)

// Evaluator executes Starlark scripts with a fixed set of predeclared names.
type Evaluator struct {
	thread   *starlark.Thread
	builtins starlark.StringDict
	globals  starlark.StringDict
}

// NewEvaluator creates an evaluator whose print builtin logs through slog.
func NewEvaluator() *Evaluator {
	thread := &starlark.Thread{
		Name: "templint",
		Print: func(_ *starlark.Thread, msg string) {
			slog.Info("config", "print", msg)
		},
	}
	return &Evaluator{
		thread:   thread,
		builtins: CreateBuiltins(),
		globals:  make(starlark.StringDict),
	}
}

// SetGlobal predeclares name for the next evaluations.
func (e *Evaluator) SetGlobal(name string, value any) error {
	v, err := ToStarlark(value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", name, err)
	}
	e.globals[name] = v
	return nil
}

func (e *Evaluator) predeclared() starlark.StringDict {
	out := make(starlark.StringDict, len(e.builtins)+len(e.globals))
	maps.Copy(out, e.builtins)
	maps.Copy(out, e.globals)
	return out
}

// Eval evaluates a single expression.
func (e *Evaluator) Eval(expr string) (any, error) {
	val, err := starlark.Eval(e.thread, "<eval>", expr, e.predeclared())
	if err != nil {
		return nil, fmt.Errorf("starlark evaluation error: %w", err)
	}
	return ToGo(val)
}

// ExecFile executes a script. src is the script text, or nil to read
// filename. The globals it defines are kept for GetGlobal.
func (e *Evaluator) ExecFile(filename string, src any) (starlark.StringDict, error) {
	globals, err := starlark.ExecFile(e.thread, filename, src, e.predeclared())
	if err != nil {
		return nil, fmt.Errorf("starlark execution error: %w", err)
	}
	maps.Copy(e.globals, globals)
	return globals, nil
}

// ExecString executes a script held in memory.
func (e *Evaluator) ExecString(script string) (starlark.StringDict, error) {
	return e.ExecFile("<script>", script)
}

// GetGlobal returns a global as a Go value.
func (e *Evaluator) GetGlobal(name string) (any, bool, error) {
	val, ok := e.globals[name]
	if !ok {
		return nil, false, nil
	}
	v, err := ToGo(val)
	return v, true, err
}

// Globals returns the exportable globals as Go values. Names starting with
// an underscore and functions are skipped.
func (e *Evaluator) Globals() (map[string]any, error) {
	out := make(map[string]any)
	for name, val := range e.globals {
		if !isExportable(name, val) {
			continue
		}
		v, err := ToGo(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func isExportable(name string, val starlark.Value) bool {
	if strings.HasPrefix(name, "_") {
		return false
	}
	switch val.(type) {
	case *starlark.Function, *starlark.Builtin:
		return false
	}
	return true
}

// CreateBuiltins returns the functions available to every script.
func CreateBuiltins() starlark.StringDict {
	return starlark.StringDict{
		"print": starlark.NewBuiltin("print", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var buf []string
			for _, a := range args {
				if s, ok := a.(starlark.String); ok {
					buf = append(buf, string(s))
					continue
				}
				buf = append(buf, a.String())
			}
			thread.Print(thread, strings.Join(buf, " "))
			return starlark.None, nil
		}),
		"template_tags": starlark.NewBuiltin("template_tags", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			if len(kwargs) > 0 {
				return nil, fmt.Errorf("%s: unexpected keyword arguments", fn.Name())
			}
			names := make([]starlark.Value, len(args))
			for i, a := range args {
				s, ok := a.(starlark.String)
				if !ok {
					return nil, fmt.Errorf("%s: argument %d is %s, want string", fn.Name(), i+1, a.Type())
				}
				names[i] = s
			}
			return starlark.Tuple(names), nil
		}),
	}
}
