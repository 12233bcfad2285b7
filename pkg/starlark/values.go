package starlark

import (
	"slices"

	"github.com/neurodesk/worklog/pkg/value"
	"go.starlark.net/starlark"
)

// ToStarlark converts a template value to a Starlark value. Dict keys are
// inserted in sorted order so scripts see a stable iteration order.
func ToStarlark(val value.Value) starlark.Value {
	if val == nil {
		return starlark.None
	}

	switch v := val.(type) {
	case value.String:
		return starlark.String(string(v))
	case value.Int:
		return starlark.MakeInt64(int64(v))
	case value.Float:
		return starlark.Float(float64(v))
	case value.Bool:
		return starlark.Bool(bool(v))
	case value.List:
		items := make([]starlark.Value, len(v))
		for i, item := range v {
			items[i] = ToStarlark(item)
		}
		return starlark.NewList(items)
	case value.Dict:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		dict := starlark.NewDict(len(v))
		for _, k := range keys {
			_ = dict.SetKey(starlark.String(k), ToStarlark(v[k]))
		}
		return dict
	case value.None:
		return starlark.None
	default:
		return starlark.String(val.String())
	}
}

// FromStarlark converts a Starlark value back to a template value. Tuples
// and sets become lists; non-string dict keys use their Starlark string
// form. Functions and other opaque values become their string form.
func FromStarlark(val starlark.Value) value.Value {
	if val == nil || val == starlark.None {
		return value.None{}
	}

	switch v := val.(type) {
	case starlark.String:
		return value.String(string(v))
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return value.Int(i)
		}
		// Too large for int64.
		return value.String(v.String())
	case starlark.Float:
		return value.Float(float64(v))
	case starlark.Bool:
		return value.Bool(bool(v))
	case starlark.Bytes:
		return value.String(string(v))
	case starlark.Indexable:
		items := make(value.List, v.Len())
		for i := 0; i < v.Len(); i++ {
			items[i] = FromStarlark(v.Index(i))
		}
		return items
	case *starlark.Set:
		items := make(value.List, 0, v.Len())
		iter := v.Iterate()
		defer iter.Done()
		var x starlark.Value
		for iter.Next(&x) {
			items = append(items, FromStarlark(x))
		}
		return items
	case *starlark.Dict:
		dict := make(value.Dict, v.Len())
		for _, item := range v.Items() {
			if key, ok := item[0].(starlark.String); ok {
				dict[string(key)] = FromStarlark(item[1])
			} else {
				dict[item[0].String()] = FromStarlark(item[1])
			}
		}
		return dict
	default:
		return value.String(val.String())
	}
}
