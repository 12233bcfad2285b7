package template

// TokenKind identifies the kind of a Token.
type TokenKind int

const (
	TokenText TokenKind = iota
	TokenVariable
	TokenEachStart
	TokenEachEnd
	TokenIfStart
	TokenElse
	TokenIfEnd
)

func (k TokenKind) String() string {
	switch k {
	case TokenText:
		return "text"
	case TokenVariable:
		return "variable"
	case TokenEachStart:
		return "{{#each}}"
	case TokenEachEnd:
		return "{{/each}}"
	case TokenIfStart:
		return "{{#if}}"
	case TokenElse:
		return "{{else}}"
	case TokenIfEnd:
		return "{{/if}}"
	default:
		return "unknown"
	}
}

// Token is one lexical unit of a template: a run of literal text or a
// parsed directive. The implementations below are the only ones.
type Token interface {
	Kind() TokenKind
	Pos() Position
	token()
}

// FormatterCall is one pipe segment of a variable directive, e.g. date('dd')
// has Name "date" and Arg "dd".
type FormatterCall struct {
	Name   string
	Arg    string
	HasArg bool
}

// Args returns the argument list passed to the formatter function.
func (c FormatterCall) Args() []string {
	if !c.HasArg {
		return nil
	}
	return []string{c.Arg}
}

func (c FormatterCall) String() string {
	if !c.HasArg {
		return c.Name
	}
	return c.Name + "('" + c.Arg + "')"
}

// TextToken is literal text copied to the output verbatim.
type TextToken struct {
	Text string
	At   Position
}

// VariableToken is {{ path | formatter | ... }}.
type VariableToken struct {
	Path       string
	Formatters []FormatterCall
	At         Position
}

// EachStartToken is {{#each item = path}}.
type EachStartToken struct {
	ItemVar   string
	ArrayPath string
	At        Position
}

// EachEndToken is {{/each}}.
type EachEndToken struct{ At Position }

// IfStartToken is {{#if path}}.
type IfStartToken struct {
	Cond string
	At   Position
}

// ElseToken is {{else}}.
type ElseToken struct{ At Position }

// IfEndToken is {{/if}}.
type IfEndToken struct{ At Position }

func (TextToken) Kind() TokenKind      { return TokenText }
func (VariableToken) Kind() TokenKind  { return TokenVariable }
func (EachStartToken) Kind() TokenKind { return TokenEachStart }
func (EachEndToken) Kind() TokenKind   { return TokenEachEnd }
func (IfStartToken) Kind() TokenKind   { return TokenIfStart }
func (ElseToken) Kind() TokenKind      { return TokenElse }
func (IfEndToken) Kind() TokenKind     { return TokenIfEnd }

func (t TextToken) Pos() Position      { return t.At }
func (t VariableToken) Pos() Position  { return t.At }
func (t EachStartToken) Pos() Position { return t.At }
func (t EachEndToken) Pos() Position   { return t.At }
func (t IfStartToken) Pos() Position   { return t.At }
func (t ElseToken) Pos() Position      { return t.At }
func (t IfEndToken) Pos() Position     { return t.At }

func (TextToken) token()      {}
func (VariableToken) token()  {}
func (EachStartToken) token() {}
func (EachEndToken) token()   {}
func (IfStartToken) token()   {}
func (ElseToken) token()      {}
func (IfEndToken) token()     {}
