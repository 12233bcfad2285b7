package template

import (
	"fmt"
	"sync"

	"github.com/neurodesk/worklog/pkg/value"
)

var defaultEngine = sync.OnceValue(func() *Engine { return New() })

// TemplateString is template source embedded in configuration, such as the
// body of a report template descriptor.
type TemplateString string

// Validate reports whether t tokenizes and parses.
func (t TemplateString) Validate() error {
	if _, err := Compile(string(t)); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}
	return nil
}

// Render renders t with the default engine.
func (t TemplateString) Render(ctx value.Dict) (string, error) {
	return defaultEngine().Execute(string(t), ctx)
}
