// Package formatter holds the named value transforms that templates apply
// with the pipe syntax, e.g. {{ entry.start | time }}.
package formatter

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/neurodesk/worklog/pkg/value"
	"golang.org/x/text/language"
)

// Func transforms a value. args holds at most one string argument, already
// trimmed and unquoted by the template lexer.
type Func func(val value.Value, args []string) (value.Value, error)

// MarkdownFunc converts markdown source to HTML.
type MarkdownFunc func(src string) (string, error)

// Options configures the built-in formatters.
type Options struct {
	// Location is used for zoneless date inputs and for all output. Defaults
	// to time.Local.
	Location *time.Location
	// Language drives the case formatters. Defaults to language.Und.
	Language language.Tag
	// Markdown backs the markdown formatter. When nil the formatter falls
	// back to escapeHtml.
	Markdown MarkdownFunc
}

// Registry is a read-only table of formatters. It is safe for concurrent use.
type Registry struct {
	funcs map[string]Func
}

// New builds a registry holding the built-in formatters.
func New(opts Options) *Registry {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	d := dates{loc: opts.Location}
	c := newCaser(opts.Language)
	md := opts.Markdown

	return &Registry{funcs: map[string]Func{
		"date":            d.date,
		"time":            d.time,
		"datetime":        d.datetime,
		"uppercase":       stringFunc(c.upper),
		"lowercase":       stringFunc(c.lower),
		"capitalize":      stringFunc(c.capitalize),
		"escapeHtml":      stringFunc(EscapeHTML),
		"escapeCsv":       stringFunc(EscapeCSV),
		"nl2br":           stringFunc(NewlinesToBreaks),
		"stripLinebreaks": stringFunc(StripLinebreaks),
		"duration":        duration,
		"markdown": func(val value.Value, _ []string) (value.Value, error) {
			return value.String(Markdown(md, value.Stringify(val))), nil
		},
	}}
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return New(Options{Markdown: Goldmark()})
})

// Default returns the process-wide registry with goldmark-backed markdown
// and the local time zone.
func Default() *Registry { return defaultRegistry() }

// Lookup returns the formatter registered under name.
func (r *Registry) Lookup(name string) (Func, bool) {
	if r == nil {
		return nil, false
	}
	fn, ok := r.funcs[name]
	return fn, ok
}

// With returns a copy of r with fn registered under name.
func (r *Registry) With(name string, fn Func) *Registry {
	funcs := map[string]Func{}
	if r != nil {
		maps.Copy(funcs, r.funcs)
	}
	funcs[name] = fn
	return &Registry{funcs: funcs}
}

// Names lists the registered formatter names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(r.funcs))
}

func stringFunc(f func(string) string) Func {
	return func(val value.Value, _ []string) (value.Value, error) {
		return value.String(f(value.Stringify(val))), nil
	}
}
