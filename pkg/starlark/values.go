package starlark

import (
	"fmt"
	"slices"

	"go.starlark.net/starlark"
)

// ToStarlark converts a Go value built from strings, numbers, booleans,
// slices and string-keyed maps.
func ToStarlark(val any) (starlark.Value, error) {
	switch v := val.(type) {
	case nil:
		return starlark.None, nil
	case string:
		return starlark.String(v), nil
	case int:
		return starlark.MakeInt(v), nil
	case int64:
		return starlark.MakeInt64(v), nil
	case float64:
		return starlark.Float(v), nil
	case bool:
		return starlark.Bool(v), nil
	case []string:
		items := make([]starlark.Value, len(v))
		for i, s := range v {
			items[i] = starlark.String(s)
		}
		return starlark.NewList(items), nil
	case []any:
		items := make([]starlark.Value, len(v))
		for i, it := range v {
			sv, err := ToStarlark(it)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = sv
		}
		return starlark.NewList(items), nil
	case map[string]any:
		dict := starlark.NewDict(len(v))
		for key, it := range v {
			sv, err := ToStarlark(it)
			if err != nil {
				return nil, fmt.Errorf("key %s: %w", key, err)
			}
			if err := dict.SetKey(starlark.String(key), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	}
	return nil, fmt.Errorf("cannot convert %T to starlark", val)
}

// ToGo converts a Starlark value into plain Go values: strings, int64,
// float64, bool, []any and map[string]any. Tuples become slices.
func ToGo(val starlark.Value) (any, error) {
	switch v := val.(type) {
	case nil, starlark.NoneType:
		return nil, nil
	case starlark.String:
		return string(v), nil
	case starlark.Int:
		i, ok := v.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %s out of range", v)
		}
		return i, nil
	case starlark.Float:
		return float64(v), nil
	case starlark.Bool:
		return bool(v), nil
	case *starlark.List:
		return sequence(v.Len(), v.Index)
	case starlark.Tuple:
		return sequence(v.Len(), v.Index)
	case *starlark.Dict:
		out := make(map[string]any, v.Len())
		for _, item := range v.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key %s is %s, want string", item[0], item[0].Type())
			}
			gv, err := ToGo(item[1])
			if err != nil {
				return nil, fmt.Errorf("key %s: %w", key, err)
			}
			out[string(key)] = gv
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot convert starlark %s to a config value", val.Type())
}

func sequence(n int, index func(int) starlark.Value) ([]any, error) {
	out := make([]any, 0, n)
	for i := range n {
		gv, err := ToGo(index(i))
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out = append(out, gv)
	}
	return slices.Clip(out), nil
}
