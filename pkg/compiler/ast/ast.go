package ast

import (
	"strings"

	"github.com/agenthands/nsound/pkg/compiler/lexer"
)

// Span is a half-open byte range into the original source.
type Span struct {
	Start, End int
}

// Node represents any node in the syntax tree.
type Node interface {
	Pos() Span
	node()
}

// Symbol is a bare identifier such as `sine` or `*`.
type Symbol struct {
	Span Span
	Name string
}

func (s *Symbol) Pos() Span { return s.Span }
func (s *Symbol) node()     {}

// Number is a numeric literal with optional SI prefix and unit.
type Number struct {
	Span    Span
	Literal lexer.Literal
}

func (n *Number) Pos() Span { return n.Span }
func (n *Number) node()     {}

// List is a parenthesized sequence of nodes.
type List struct {
	Span  Span
	Items []Node
}

func (l *List) Pos() Span { return l.Span }
func (l *List) node()     {}

// Head returns the list's leading symbol name, if any.
func (l *List) Head() (string, bool) {
	if len(l.Items) == 0 {
		return "", false
	}
	sym, ok := l.Items[0].(*Symbol)
	if !ok {
		return "", false
	}
	return sym.Name, true
}

// Print formats a node so that parsing the result yields an equal node.
func Print(n Node) string {
	var sb strings.Builder
	write(&sb, n)
	return sb.String()
}

// PrintAll formats a sequence of top-level nodes, one per line.
func PrintAll(nodes []Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		write(&sb, n)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func write(sb *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Symbol:
		sb.WriteString(n.Name)
	case *Number:
		sb.WriteString(n.Literal.String())
	case *List:
		sb.WriteByte('(')
		for i, item := range n.Items {
			if i > 0 {
				sb.WriteByte(' ')
			}
			write(sb, item)
		}
		sb.WriteByte(')')
	default:
		panic("ast: unknown node type")
	}
}

// Equal compares two nodes structurally, ignoring spans.
func Equal(a, b Node) bool {
	switch a := a.(type) {
	case *Symbol:
		b, ok := b.(*Symbol)
		return ok && a.Name == b.Name
	case *Number:
		b, ok := b.(*Number)
		return ok && a.Literal == b.Literal
	case *List:
		b, ok := b.(*List)
		if !ok || len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	}
	return false
}
