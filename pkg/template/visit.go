package template

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
)

type Visitor interface {
	Visit(n Node) error
}

// VisitorFunc adapts a function to Visitor.
type VisitorFunc func(n Node) error

func (f VisitorFunc) Visit(n Node) error { return f(n) }

// Walk calls v for n and then, depth first, for every descendant.
func Walk(v Visitor, n Node) error {
	if err := v.Visit(n); err != nil {
		return err
	}
	switch t := n.(type) {
	case *EachNode:
		return walkAll(v, t.Body)
	case *IfNode:
		if err := walkAll(v, t.Then); err != nil {
			return err
		}
		return walkAll(v, t.Else)
	}
	return nil
}

func walkAll(v Visitor, nodes []Node) error {
	for _, c := range nodes {
		if err := Walk(v, c); err != nil {
			return err
		}
	}
	return nil
}

// Paths lists every path the document reads, sorted and without duplicates.
// Paths rooted at a loop variable are included as written.
func Paths(doc *Document) []string {
	var paths []string
	_ = walkAll(VisitorFunc(func(n Node) error {
		switch t := n.(type) {
		case *VariableNode:
			paths = append(paths, t.Path)
		case *EachNode:
			paths = append(paths, t.ArrayPath)
		case *IfNode:
			paths = append(paths, t.Cond)
		}
		return nil
	}), doc.Nodes)
	slices.Sort(paths)
	return slices.Compact(paths)
}

// Pretty returns a line-oriented string representation of the tree.
func Pretty(doc *Document) string {
	var buf bytes.Buffer
	buf.WriteString("Document\n")
	for _, n := range doc.Nodes {
		ppNode(&buf, 2, n)
	}
	return buf.String()
}

func ppNode(buf *bytes.Buffer, indent int, n Node) {
	ind := strings.Repeat(" ", indent)
	switch t := n.(type) {
	case *TextNode:
		fmt.Fprintf(buf, "%sText(%q)\n", ind, t.Text)
	case *VariableNode:
		fmt.Fprintf(buf, "%sVariable(%s", ind, t.Path)
		for _, f := range t.Formatters {
			fmt.Fprintf(buf, " | %s", f)
		}
		buf.WriteString(")\n")
	case *EachNode:
		fmt.Fprintf(buf, "%sEach(%s = %s)\n", ind, t.ItemVar, t.ArrayPath)
		for _, c := range t.Body {
			ppNode(buf, indent+2, c)
		}
	case *IfNode:
		fmt.Fprintf(buf, "%sIf(%s)\n", ind, t.Cond)
		for _, c := range t.Then {
			ppNode(buf, indent+2, c)
		}
		if len(t.Else) > 0 {
			fmt.Fprintf(buf, "%sElse\n", ind)
			for _, c := range t.Else {
				ppNode(buf, indent+2, c)
			}
		}
	default:
		fmt.Fprintf(buf, "%s%T\n", ind, n)
	}
}
