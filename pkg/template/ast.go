package template

// Node is any node of a parsed template. The implementations in this file
// are the only ones.
type Node interface {
	node()
}

// Document is the root produced by Compile.
type Document struct {
	Nodes []Node
}

// TextNode is literal text between directives.
type TextNode struct {
	Text string
}

func (*TextNode) node() {}

// VariableNode outputs a resolved path, piped through its formatters.
type VariableNode struct {
	Path       string
	Formatters []FormatterCall
	Pos        Position
}

func (*VariableNode) node() {}

// EachNode is a loop: {{#each item = path}} ... {{/each}}
type EachNode struct {
	ItemVar   string
	ArrayPath string
	Body      []Node
	Pos       Position
}

func (*EachNode) node() {}

// IfNode is a conditional: {{#if path}} ... {{else}} ... {{/if}}
type IfNode struct {
	Cond string
	Then []Node
	Else []Node
	Pos  Position
}

func (*IfNode) node() {}
