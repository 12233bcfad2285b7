package template

import (
	"fmt"
	"strings"
)

// The lexer scans template source for {{ ... }} directives. Text between
// directives is emitted unchanged; each directive body is classified into
// a loop, conditional or variable token.

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// Tokenize splits src into text and directive tokens. It fails on a
// directive that is never closed and on malformed directive syntax.
func Tokenize(src string) ([]Token, error) {
	l := newLexer(src)
	var toks []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		if tok == nil {
			return toks, nil
		}
		toks = append(toks, tok)
	}
}

type lexer struct {
	src   string
	i     int
	lines lineIndex
}

func newLexer(src string) *lexer {
	return &lexer{src: src, lines: newLineIndex(src)}
}

func (l *lexer) pos(offset int) Position {
	return l.lines.position(offset)
}

// nextToken returns the next token, or nil at end of input.
func (l *lexer) nextToken() (Token, error) {
	if l.i >= len(l.src) {
		return nil, nil
	}
	start := l.i
	open := strings.Index(l.src[start:], openDelim)
	if open < 0 {
		l.i = len(l.src)
		return TextToken{Text: l.src[start:], At: l.pos(start)}, nil
	}
	if open > 0 {
		l.i = start + open
		return TextToken{Text: l.src[start:l.i], At: l.pos(start)}, nil
	}

	bodyStart := start + len(openDelim)
	end := strings.Index(l.src[bodyStart:], closeDelim)
	if end < 0 {
		return nil, &SyntaxError{
			Msg: "unterminated directive, expected }}",
			Pos: l.pos(start),
			Err: ErrUnterminatedDirective,
		}
	}
	body := l.src[bodyStart : bodyStart+end]
	l.i = bodyStart + end + len(closeDelim)
	return classify(body, l.pos(start))
}

// classify turns the inside of a {{ ... }} into a directive token.
func classify(body string, pos Position) (Token, error) {
	s := strings.TrimSpace(body)
	switch {
	case s == "":
		return nil, syntaxErrorf(pos, "empty directive {{ }}")
	case s == "else":
		return ElseToken{At: pos}, nil
	case s[0] == '#':
		return classifyBlock(s[1:], pos)
	case s[0] == '/':
		return classifyClose(s[1:], pos)
	}
	if name, args := splitNameArgs(s); name == "else" && args != "" {
		return nil, syntaxErrorf(pos, "{{else}} takes no arguments")
	}
	return parseVariable(s, pos)
}

func classifyBlock(s string, pos Position) (Token, error) {
	name, args := splitNameArgs(s)
	switch name {
	case "each":
		eq := strings.IndexByte(args, '=')
		if eq < 0 {
			return nil, syntaxErrorf(pos, "invalid {{#each}}, expected 'item = path': %q", args)
		}
		item := strings.TrimSpace(args[:eq])
		path := strings.TrimSpace(args[eq+1:])
		if !isIdent(item) {
			return nil, syntaxErrorf(pos, "invalid loop variable %q in {{#each}}", item)
		}
		if !isPath(path) {
			return nil, syntaxErrorf(pos, "invalid path %q in {{#each}}", path)
		}
		return EachStartToken{ItemVar: item, ArrayPath: path, At: pos}, nil
	case "if":
		if args == "" {
			return nil, syntaxErrorf(pos, "{{#if}} requires a path")
		}
		if !isPath(args) {
			return nil, syntaxErrorf(pos, "invalid path %q in {{#if}}", args)
		}
		return IfStartToken{Cond: args, At: pos}, nil
	default:
		return nil, syntaxErrorf(pos, "unknown block directive {{#%s}}", name)
	}
}

// classifyClose handles {{/each}} and {{/if}}. Space after the slash is
// allowed, as it is after '#'.
func classifyClose(s string, pos Position) (Token, error) {
	name, args := splitNameArgs(s)
	if name != "each" && name != "if" {
		return nil, syntaxErrorf(pos, "unknown closing directive {{/%s}}", name)
	}
	if args != "" {
		return nil, syntaxErrorf(pos, "{{/%s}} takes no arguments", name)
	}
	if name == "each" {
		return EachEndToken{At: pos}, nil
	}
	return IfEndToken{At: pos}, nil
}

// parseVariable parses "path | name | name(arg)".
func parseVariable(s string, pos Position) (Token, error) {
	parts, err := splitPipes(s)
	if err != nil {
		return nil, syntaxErrorf(pos, "%v", err)
	}
	path := parts[0]
	if !isPath(path) {
		return nil, syntaxErrorf(pos, "invalid path %q", path)
	}
	var calls []FormatterCall
	for _, f := range parts[1:] {
		call, err := parseFormatterCall(f)
		if err != nil {
			return nil, syntaxErrorf(pos, "%v", err)
		}
		calls = append(calls, call)
	}
	return VariableToken{Path: path, Formatters: calls, At: pos}, nil
}

func parseFormatterCall(s string) (FormatterCall, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return FormatterCall{}, fmt.Errorf("empty formatter after '|'")
	}
	i := strings.IndexByte(s, '(')
	if i < 0 {
		if !isIdent(s) {
			return FormatterCall{}, fmt.Errorf("invalid formatter %q", s)
		}
		return FormatterCall{Name: s}, nil
	}
	if !strings.HasSuffix(s, ")") {
		return FormatterCall{}, fmt.Errorf("formatter %q is missing ')'", s)
	}
	name := strings.TrimSpace(s[:i])
	if !isIdent(name) {
		return FormatterCall{}, fmt.Errorf("invalid formatter %q", s)
	}
	arg := strings.TrimSpace(s[i+1 : len(s)-1])
	if arg == "" {
		return FormatterCall{Name: name}, nil
	}
	return FormatterCall{Name: name, Arg: unquote(arg), HasArg: true}, nil
}

// splitPipes splits s on '|' characters that are outside quotes and
// parentheses.
func splitPipes(s string) ([]string, error) {
	var parts []string
	var b strings.Builder
	depth := 0
	inStr := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr != 0 {
			b.WriteByte(c)
			if c == inStr {
				inStr = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			inStr = c
			b.WriteByte(c)
		case '(':
			depth++
			b.WriteByte(c)
		case ')':
			if depth > 0 {
				depth--
			}
			b.WriteByte(c)
		case '|':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(b.String()))
				b.Reset()
			} else {
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	if inStr != 0 {
		return nil, fmt.Errorf("unterminated string literal in %q", s)
	}
	parts = append(parts, strings.TrimSpace(b.String()))
	return parts, nil
}

func splitNameArgs(s string) (name, args string) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && !isSpace(s[i]) {
		i++
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func unquote(s string) string {
	if len(s) >= 2 {
		q := s[0]
		if (q == '"' || q == '\'') && s[len(s)-1] == q {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_' || c == '$' || isLetter(c):
		case isDigit(c) && i > 0:
		default:
			return false
		}
	}
	return true
}

// isPath reports whether s is a dot-separated list of non-empty segments
// made of letters, digits, '_', '$' and '-'.
func isPath(s string) bool {
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, ".") {
		if seg == "" {
			return false
		}
		for i := 0; i < len(seg); i++ {
			c := seg[i]
			if !isLetter(c) && !isDigit(c) && c != '_' && c != '$' && c != '-' {
				return false
			}
		}
	}
	return true
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
