package parser

import (
	"fmt"

	"github.com/agenthands/nsound/pkg/compiler/ast"
	"github.com/agenthands/nsound/pkg/compiler/lexer"
)

// SyntaxError is a source error found while tokenizing or parsing.
type SyntaxError struct {
	Span    ast.Span
	Message string
	// Incomplete is set when the input ended inside an open list.
	Incomplete bool
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d: %s", e.Span.Start, e.Message)
}

// Locate renders the error with a line and column from src.
func (e *SyntaxError) Locate(src []byte) string {
	line, col := lexer.Position(src, e.Span.Start)
	return fmt.Sprintf("%d:%d: %s", line, col, e.Message)
}

// Parser is a recursive-descent parser over a pre-tokenized source.
type Parser struct {
	src    []byte
	tokens []lexer.Token
	pos    int
}

// NewParser tokenizes src and prepares a parser over it.
func NewParser(src []byte) *Parser {
	return &Parser{
		src:    src,
		tokens: lexer.Tokenize(src),
	}
}

// Parse tokenizes and parses src into its top-level nodes.
func Parse(src []byte) ([]ast.Node, error) {
	return NewParser(src).Parse()
}

// Parse returns all top-level nodes.
func (p *Parser) Parse() ([]ast.Node, error) {
	var nodes []ast.Node
	for {
		tok := p.tokens[p.pos]
		switch tok.Kind {
		case lexer.KindEOF:
			return nodes, nil
		case lexer.KindRParen:
			return nil, p.errorf(tok, "unbalanced ')'")
		}
		n, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
}

func (p *Parser) parseNode() (ast.Node, error) {
	tok := p.tokens[p.pos]
	span := ast.Span{Start: int(tok.Offset), End: tok.End()}
	switch tok.Kind {
	case lexer.KindSymbol:
		p.pos++
		return &ast.Symbol{Span: span, Name: tok.Text(p.src)}, nil
	case lexer.KindNumber:
		lit, ok := lexer.SplitNumber(tok.Text(p.src))
		if !ok {
			return nil, p.errorf(tok, "invalid number %q", tok.Text(p.src))
		}
		p.pos++
		return &ast.Number{Span: span, Literal: lit}, nil
	case lexer.KindLParen:
		return p.parseList()
	case lexer.KindError:
		return nil, p.errorf(tok, "unexpected character %q", tok.Text(p.src))
	case lexer.KindEOF:
		return nil, p.errorf(tok, "unexpected end of input")
	default:
		return nil, p.errorf(tok, "unexpected %v", tok.Kind)
	}
}

func (p *Parser) parseList() (ast.Node, error) {
	open := p.tokens[p.pos]
	p.pos++
	list := &ast.List{}
	for p.startsNode(p.tokens[p.pos].Kind) {
		n, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, n)
	}
	tok := p.tokens[p.pos]
	switch tok.Kind {
	case lexer.KindRParen:
	case lexer.KindEOF:
		err := p.errorf(open, "unexpected end of input, missing ')'")
		err.(*SyntaxError).Incomplete = true
		return nil, err
	case lexer.KindError:
		return nil, p.errorf(tok, "unexpected character %q", tok.Text(p.src))
	default:
		return nil, p.errorf(tok, "expected ')', got %v", tok.Kind)
	}
	p.pos++
	list.Span = ast.Span{Start: int(open.Offset), End: tok.End()}
	return list, nil
}

// IsIncomplete reports whether err means more input could complete the
// program.
func IsIncomplete(err error) bool {
	se, ok := err.(*SyntaxError)
	return ok && se.Incomplete
}

func (p *Parser) startsNode(k lexer.Kind) bool {
	return k == lexer.KindSymbol || k == lexer.KindNumber || k == lexer.KindLParen
}

func (p *Parser) errorf(tok lexer.Token, format string, args ...any) error {
	return &SyntaxError{
		Span:    ast.Span{Start: int(tok.Offset), End: tok.End()},
		Message: fmt.Sprintf(format, args...),
	}
}
