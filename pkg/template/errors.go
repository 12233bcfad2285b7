package template

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnclosedBlock is wrapped by errors for an {{#each}} or {{#if}}
	// without its closing directive.
	ErrUnclosedBlock = errors.New("unclosed block")
	// ErrUnterminatedDirective is wrapped by errors for a {{ without }}.
	ErrUnterminatedDirective = errors.New("unterminated directive")
)

// Position locates a byte in the template source. Line and Column are
// 1-based; Column counts bytes.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// SyntaxError reports a malformed template found while tokenizing or parsing.
type SyntaxError struct {
	Msg string
	Pos Position
	Err error
}

func (e *SyntaxError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
	}
	return e.Msg
}

func (e *SyntaxError) Unwrap() error { return e.Err }

func syntaxErrorf(pos Position, format string, args ...any) *SyntaxError {
	return &SyntaxError{Msg: fmt.Sprintf(format, args...), Pos: pos}
}

// ErrorText is the text Render returns in place of output when a template
// cannot be rendered.
func ErrorText(err error) string {
	return "Template error: " + err.Error()
}

// lineIndex maps byte offsets to line and column numbers.
type lineIndex []int

func newLineIndex(src string) lineIndex {
	idx := lineIndex{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (idx lineIndex) position(offset int) Position {
	line := sort.Search(len(idx), func(i int) bool { return idx[i] > offset })
	return Position{Offset: offset, Line: line, Column: offset - idx[line-1] + 1}
}
