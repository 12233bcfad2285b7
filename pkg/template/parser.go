package template

import (
	"fmt"
	"slices"
)

// Compile tokenizes and parses src into a Document.
func Compile(src string) (*Document, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	nodes, err := Parse(toks)
	if err != nil {
		return nil, err
	}
	return &Document{Nodes: nodes}, nil
}

// Parse builds the node tree for a token stream. Loops and conditionals are
// each matched by their own recursive call, so a {{/each}} never closes an
// {{#if}} and the reverse.
func Parse(tokens []Token) ([]Node, error) {
	p := &parser{toks: tokens}
	nodes, _, err := p.parseNodes(nil)
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

type parser struct {
	toks []Token
	i    int
}

// parseNodes collects nodes until a token whose kind is in stop, and returns
// that token. At end of input the returned token is nil. open is the block
// directive being parsed, nil at the top level.
func (p *parser) parseNodes(open Token, stop ...TokenKind) ([]Node, Token, error) {
	var nodes []Node
	for p.i < len(p.toks) {
		tok := p.toks[p.i]
		p.i++
		if slices.Contains(stop, tok.Kind()) {
			return nodes, tok, nil
		}
		switch t := tok.(type) {
		case TextToken:
			if t.Text != "" {
				nodes = append(nodes, &TextNode{Text: t.Text})
			}
		case VariableToken:
			nodes = append(nodes, &VariableNode{Path: t.Path, Formatters: t.Formatters, Pos: t.At})
		case EachStartToken:
			n, err := p.parseEach(t)
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, n)
		case IfStartToken:
			n, err := p.parseIf(t)
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, n)
		case EachEndToken, IfEndToken, ElseToken:
			return nil, nil, unexpected(tok, open)
		default:
			return nil, nil, fmt.Errorf("unexpected token %T", tok)
		}
	}
	return nodes, nil, nil
}

func (p *parser) parseEach(open EachStartToken) (*EachNode, error) {
	body, end, err := p.parseNodes(open, TokenEachEnd)
	if err != nil {
		return nil, err
	}
	if end == nil {
		return nil, unclosed(open)
	}
	return &EachNode{ItemVar: open.ItemVar, ArrayPath: open.ArrayPath, Body: body, Pos: open.At}, nil
}

func (p *parser) parseIf(open IfStartToken) (*IfNode, error) {
	n := &IfNode{Cond: open.Cond, Pos: open.At}
	then, end, err := p.parseNodes(open, TokenElse, TokenIfEnd)
	if err != nil {
		return nil, err
	}
	if end == nil {
		return nil, unclosed(open)
	}
	n.Then = then
	if end.Kind() == TokenIfEnd {
		return n, nil
	}
	// After {{else}} only {{/if}} may end the block; a second {{else}}
	// falls through to unexpected.
	els, end, err := p.parseNodes(open, TokenIfEnd)
	if err != nil {
		return nil, err
	}
	if end == nil {
		return nil, unclosed(open)
	}
	n.Else = els
	return n, nil
}

func unclosed(open Token) error {
	return &SyntaxError{
		Msg: fmt.Sprintf("unclosed %s block, expected %s", open.Kind(), closerOf(open.Kind())),
		Pos: open.Pos(),
		Err: ErrUnclosedBlock,
	}
}

func closerOf(k TokenKind) TokenKind {
	if k == TokenEachStart {
		return TokenEachEnd
	}
	return TokenIfEnd
}

// unexpected reports a closing or else directive that does not belong to
// the block being parsed.
func unexpected(tok, open Token) error {
	pos := tok.Pos()
	if open == nil {
		if tok.Kind() == TokenElse {
			return syntaxErrorf(pos, "{{else}} outside of an {{#if}} block")
		}
		return syntaxErrorf(pos, "unexpected %s without an opening directive", tok.Kind())
	}
	if tok.Kind() == TokenElse && open.Kind() == TokenIfStart {
		return syntaxErrorf(pos, "duplicate {{else}} in {{#if}} block opened at %s", open.Pos())
	}
	if tok.Kind() == TokenElse {
		return syntaxErrorf(pos, "{{else}} inside %s block opened at %s", open.Kind(), open.Pos())
	}
	return syntaxErrorf(pos, "unexpected %s inside %s block opened at %s, expected %s",
		tok.Kind(), open.Kind(), open.Pos(), closerOf(open.Kind()))
}
