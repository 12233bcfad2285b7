package template

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/neurodesk/worklog/pkg/formatter"
	"github.com/neurodesk/worklog/pkg/value"
)

// Evaluator renders parsed nodes against a scope. It holds no per-render
// state and is safe for concurrent use.
type Evaluator struct {
	Formatters *formatter.Registry
	// Logger receives non-fatal diagnostics such as unknown formatters.
	// slog.Default() is used when nil.
	Logger *slog.Logger
}

// NewEvaluator returns an Evaluator using formatters and logger.
func NewEvaluator(formatters *formatter.Registry, logger *slog.Logger) *Evaluator {
	return &Evaluator{Formatters: formatters, Logger: logger}
}

// Evaluate renders nodes in order. Missing paths, non-list loop targets and
// failing formatters degrade to empty or unformatted output; the error
// return is reserved for node types the evaluator does not know.
func (e *Evaluator) Evaluate(nodes []Node, scope *value.Scope) (string, error) {
	var buf strings.Builder
	if err := e.evalNodes(&buf, nodes, scope); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (e *Evaluator) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Evaluator) evalNodes(buf *strings.Builder, nodes []Node, scope *value.Scope) error {
	for _, n := range nodes {
		switch t := n.(type) {
		case *TextNode:
			buf.WriteString(t.Text)
		case *VariableNode:
			buf.WriteString(e.variable(t, scope))
		case *EachNode:
			if err := e.each(buf, t, scope); err != nil {
				return err
			}
		case *IfNode:
			cond, _ := value.Resolve(scope, t.Cond)
			body := t.Else
			if value.Truthy(cond) {
				body = t.Then
			}
			if err := e.evalNodes(buf, body, scope); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unhandled node type: %T", n)
		}
	}
	return nil
}

func (e *Evaluator) variable(n *VariableNode, scope *value.Scope) string {
	v, ok := value.Resolve(scope, n.Path)
	if !ok || value.IsNone(v) {
		return ""
	}
	for _, call := range n.Formatters {
		v = e.apply(v, call, n)
	}
	return value.Stringify(v)
}

// apply runs one formatter. Unknown names, errors and panics leave the
// input value unchanged.
func (e *Evaluator) apply(in value.Value, call FormatterCall, n *VariableNode) (out value.Value) {
	fn, ok := e.Formatters.Lookup(call.Name)
	if !ok {
		e.logger().Warn("unknown formatter", "formatter", call.Name, "path", n.Path, "line", n.Pos.Line)
		return in
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger().Warn("formatter panicked", "formatter", call.Name, "path", n.Path, "line", n.Pos.Line, "panic", r)
			out = in
		}
	}()
	res, err := fn(in, call.Args())
	if err != nil {
		e.logger().Warn("formatter failed", "formatter", call.Name, "path", n.Path, "line", n.Pos.Line, "error", err)
		return in
	}
	if res == nil {
		return value.None{}
	}
	return res
}

func (e *Evaluator) each(buf *strings.Builder, n *EachNode, scope *value.Scope) error {
	target, ok := value.Resolve(scope, n.ArrayPath)
	items, isList := target.(value.List)
	if !isList {
		if ok && !value.IsNone(target) {
			e.logger().Debug("loop target is not a list", "path", n.ArrayPath, "kind", target.Kind(), "line", n.Pos.Line)
		}
		return nil
	}
	last := len(items) - 1
	for i, item := range items {
		if item == nil {
			item = value.None{}
		}
		// The item binding is set last so it wins over a loop variable
		// named index, first or last.
		vars := value.Dict{
			"index": value.Int(i),
			"first": value.Bool(i == 0),
			"last":  value.Bool(i == last),
		}
		vars[n.ItemVar] = item
		if err := e.evalNodes(buf, n.Body, scope.Child(vars)); err != nil {
			return err
		}
	}
	return nil
}
