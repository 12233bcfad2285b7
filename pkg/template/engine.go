// Package template implements the report template language: literal text
// with {{ path | formatter }} variables, {{#each item = path}} loops and
// {{#if path}} ... {{else}} ... {{/if}} conditionals.
//
// A render runs three stages in order. Tokenize splits the source into
// tokens, Parse builds a node tree and an Evaluator walks the tree against a
// value.Scope. Engine wraps the pipeline; its Render method never fails and
// reports problems as text in place of the output.
package template

import (
	"fmt"
	"log/slog"

	"github.com/neurodesk/worklog/pkg/formatter"
	"github.com/neurodesk/worklog/pkg/value"
)

// Engine renders template text. The zero value is not usable; call New.
type Engine struct {
	evaluator *Evaluator
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithFormatters sets the formatter registry used for pipes.
func WithFormatters(r *formatter.Registry) Option {
	return func(e *Engine) { e.evaluator.Formatters = r }
}

// WithLogger sets the logger that receives render diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
		e.evaluator.Logger = l
	}
}

// New returns an Engine using formatter.Default() and slog.Default().
func New(opts ...Option) *Engine {
	e := &Engine{evaluator: NewEvaluator(formatter.Default(), nil)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute renders text against ctx and returns any tokenize, parse or
// evaluation error.
func (e *Engine) Execute(text string, ctx value.Dict) (string, error) {
	doc, err := Compile(text)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}
	return e.ExecuteDocument(doc, ctx)
}

// ExecuteDocument renders an already compiled document.
func (e *Engine) ExecuteDocument(doc *Document, ctx value.Dict) (string, error) {
	out, err := e.evaluator.Evaluate(doc.Nodes, value.NewScope(ctx))
	if err != nil {
		return "", fmt.Errorf("rendering template: %w", err)
	}
	return out, nil
}

// Render renders text against ctx. On failure it logs the error and
// returns ErrorText(err) instead of output, so callers always have
// something to show.
func (e *Engine) Render(text string, ctx value.Dict) (out string) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("internal error: %v", r)
			e.log().Error("template render panicked", "error", err)
			out = ErrorText(err)
		}
	}()
	out, err := e.Execute(text, ctx)
	if err != nil {
		e.log().Error("template render failed", "error", err)
		return ErrorText(err)
	}
	return out
}

func (e *Engine) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.Default()
}
