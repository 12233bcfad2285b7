package starlark

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/neurodesk/worklog/pkg/formatter"
	"go.starlark.net/starlark"
)

var builtinNames = map[string]struct{}{
	"minutes":      {},
	"fmt_duration": {},
	"parse_time":   {},
}

// Builtins returns the helper functions predeclared for enrichment
// scripts:
//
//	minutes(h, m=0)      whole minutes in h hours and m minutes
//	fmt_duration(n)      n minutes as "<h>h <m>m"
//	parse_time(s)        seconds since the epoch for an RFC 3339 or zoneless timestamp (UTC)
func Builtins() starlark.StringDict {
	return starlark.StringDict{
		"minutes": starlark.NewBuiltin("minutes", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var h, m int
			if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "h", &h, "m?", &m); err != nil {
				return nil, err
			}
			return starlark.MakeInt(h*60 + m), nil
		}),

		"fmt_duration": starlark.NewBuiltin("fmt_duration", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var n starlark.Value
			if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &n); err != nil {
				return nil, err
			}
			f, ok := starlark.AsFloat(n)
			if !ok {
				return nil, fmt.Errorf("%s: got %s, want int or float", fn.Name(), n.Type())
			}
			return starlark.String(formatter.FormatMinutes(f)), nil
		}),

		"parse_time": starlark.NewBuiltin("parse_time", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var s string
			if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &s); err != nil {
				return nil, err
			}
			t, ok := formatter.ParseTime(s, time.UTC)
			if !ok {
				return nil, fmt.Errorf("%s: invalid timestamp %q", fn.Name(), s)
			}
			return starlark.MakeInt64(t.Unix()), nil
		}),
	}
}

func printTo(logger *slog.Logger) func(*starlark.Thread, string) {
	return func(thread *starlark.Thread, msg string) {
		l := logger
		if l == nil {
			l = slog.Default()
		}
		l.Info(msg, "source", "starlark", "thread", thread.Name)
	}
}
