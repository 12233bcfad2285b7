// Package starlark runs enrichment scripts over a report context before it
// is rendered. Scripts see the context as predeclared globals and may add
// new top-level values, which are merged back into the context.
package starlark

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/neurodesk/worklog/pkg/value"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// fileOptions allows top-level loops and conditionals, which enrichment
// scripts use to walk the entry list.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// Evaluator holds a Starlark thread and the globals accumulated across
// executions. It is not safe for concurrent use.
type Evaluator struct {
	thread   *starlark.Thread
	builtins starlark.StringDict
	globals  starlark.StringDict
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMaxSteps bounds the number of computation steps a single execution
// may take. Zero means no limit.
func WithMaxSteps(n uint64) Option {
	return func(e *Evaluator) { e.thread.SetMaxExecutionSteps(n) }
}

// WithLogger routes the output of the print builtin to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) { e.thread.Print = printTo(logger) }
}

// NewEvaluator returns an Evaluator with the worklog builtins and no globals.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		thread:   &starlark.Thread{Name: "worklog", Print: printTo(nil)},
		builtins: Builtins(),
		globals:  make(starlark.StringDict),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetGlobal sets a global variable in the Starlark environment
func (e *Evaluator) SetGlobal(name string, val value.Value) {
	e.globals[name] = ToStarlark(val)
}

func (e *Evaluator) predeclared() starlark.StringDict {
	predeclared := make(starlark.StringDict, len(e.builtins)+len(e.globals))
	maps.Copy(predeclared, e.builtins)
	maps.Copy(predeclared, e.globals)
	return predeclared
}

// Eval evaluates a Starlark expression.
func (e *Evaluator) Eval(expr string) (value.Value, error) {
	val, err := starlark.EvalOptions(fileOptions, e.thread, "<eval>", expr, e.predeclared())
	if err != nil {
		return nil, fmt.Errorf("starlark evaluation error: %w", err)
	}
	return FromStarlark(val), nil
}

// ExecFile executes a Starlark file and returns the globals it defined.
// src may be a string, []byte or nil to read filename from disk.
func (e *Evaluator) ExecFile(filename string, src any) (starlark.StringDict, error) {
	globals, err := starlark.ExecFileOptions(fileOptions, e.thread, filename, src, e.predeclared())
	if err != nil {
		return nil, fmt.Errorf("starlark execution error: %w", err)
	}
	maps.Copy(e.globals, globals)
	return globals, nil
}

// ExecString executes a Starlark script from a string
func (e *Evaluator) ExecString(script string) (starlark.StringDict, error) {
	return e.ExecFile("<script>", script)
}

// GetGlobal returns a global set by SetGlobal or defined by an executed script.
func (e *Evaluator) GetGlobal(name string) (value.Value, bool) {
	if val, ok := e.globals[name]; ok {
		return FromStarlark(val), true
	}
	return nil, false
}

// LoadContext makes every key of ctx available to scripts as a global.
func (e *Evaluator) LoadContext(ctx value.Dict) {
	for key, val := range ctx {
		e.SetGlobal(key, val)
	}
}

// ExportContext converts the exportable globals back to template values.
// Loaded context keys are included, so in-place changes made by a script
// (such as appending to a list) are visible in the result.
func (e *Evaluator) ExportContext() value.Dict {
	ctx := make(value.Dict)
	for key, val := range e.globals {
		if !isExportableKey(key) {
			continue
		}
		if _, ok := val.(starlark.Callable); ok {
			continue
		}
		ctx[key] = FromStarlark(val)
	}
	return ctx
}

// isExportableKey reports whether a global is copied into the template
// context. Builtins and names starting with an underscore stay private.
func isExportableKey(key string) bool {
	if key == "" || key[0] == '_' {
		return false
	}
	_, builtin := builtinNames[key]
	return !builtin
}

// Enrich runs the script in src (or the file at filename when src is nil)
// with ctx loaded as globals and returns a copy of ctx updated with the
// script's exported globals. ctx itself is not modified.
func Enrich(ctx value.Dict, filename string, src any, opts ...Option) (value.Dict, error) {
	e := NewEvaluator(opts...)
	e.LoadContext(ctx)
	if _, err := e.ExecFile(filename, src); err != nil {
		return nil, fmt.Errorf("running %s: %w", filename, err)
	}
	out := maps.Clone(ctx)
	if out == nil {
		out = make(value.Dict)
	}
	maps.Copy(out, e.ExportContext())
	return out, nil
}
