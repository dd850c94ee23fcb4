package parser_test

import (
	"errors"
	"testing"

	"github.com/agenthands/nsound/pkg/compiler/ast"
	"github.com/agenthands/nsound/pkg/compiler/parser"
)

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantErr   bool
		wantStart int
	}{
		{name: "Valid List", src: "(sine (oscillator 440Hz))"},
		{name: "Valid Multiple Forms", src: "(define x 1) ; note\n(f x)"},
		{name: "Empty Input", src: "  ; nothing\n"},
		{name: "Unbalanced Close", src: "(a))", wantErr: true, wantStart: 3},
		{name: "Missing Close", src: "(a (b)", wantErr: true, wantStart: 0},
		{name: "Bad Character", src: "(a #b)", wantErr: true, wantStart: 3},
		{name: "Bad Number", src: "(a 1.2.3)", wantErr: true, wantStart: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse([]byte(tt.src))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			var se *parser.SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("expected *SyntaxError, got %T", err)
			}
			if se.Span.Start != tt.wantStart {
				t.Errorf("error span starts at %d, want %d", se.Span.Start, tt.wantStart)
			}
		})
	}
}

func TestParseStructure(t *testing.T) {
	nodes, err := parser.Parse([]byte("(mix -6dB (sine x))"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	list, ok := nodes[0].(*ast.List)
	if !ok || len(list.Items) != 3 {
		t.Fatalf("expected 3-item list, got %#v", nodes[0])
	}
	if head, _ := list.Head(); head != "mix" {
		t.Errorf("expected head mix, got %q", head)
	}
	num, ok := list.Items[1].(*ast.Number)
	if !ok || num.Literal.Unit != "dB" || num.Literal.Digits != "-6" {
		t.Errorf("unexpected number %#v", list.Items[1])
	}
	if list.Span != (ast.Span{Start: 0, End: 19}) {
		t.Errorf("unexpected span %+v", list.Span)
	}
}

func TestSyntaxErrorLocate(t *testing.T) {
	src := []byte("(a\n  (b")
	_, err := parser.Parse(src)
	var se *parser.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SyntaxError, got %v", err)
	}
	if got := se.Locate(src); got != "2:3: unexpected end of input, missing ')'" {
		t.Errorf("unexpected message %q", got)
	}
	if !parser.IsIncomplete(err) {
		t.Error("open list not reported as incomplete")
	}
	if _, err := parser.Parse([]byte("(a))")); parser.IsIncomplete(err) {
		t.Error("unbalanced ')' reported as incomplete")
	}
}

func TestPrintRoundTrip(t *testing.T) {
	sources := []string{
		"(envelope (set 0) (lin 5ms 1) (exp 300_ms 0))",
		"(mix -6dB (sine (oscillator 1.5kHz)) .5 (noise))",
		"(define x +2.) x",
		"()",
	}
	for _, src := range sources {
		nodes, err := parser.Parse([]byte(src))
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", src, err)
		}
		printed := ast.PrintAll(nodes)
		again, err := parser.Parse([]byte(printed))
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", printed, err)
		}
		if len(again) != len(nodes) {
			t.Fatalf("round trip changed node count: %q", printed)
		}
		for i := range nodes {
			if !ast.Equal(nodes[i], again[i]) {
				t.Errorf("round trip mismatch: %q -> %q", src, printed)
			}
		}
	}
}

func TestPrintKeepsLiteralText(t *testing.T) {
	for _, src := range []string{
		"(exp 300_ms 0)",
		"(mix -6_dB (sine 1_Hz) +2. .5 1.5kHz)",
	} {
		nodes, err := parser.Parse([]byte(src))
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", src, err)
		}
		if got := ast.Print(nodes[0]); got != src {
			t.Errorf("Print = %q, want %q", got, src)
		}
	}
}

func FuzzPrintRoundTrip(f *testing.F) {
	f.Add("(sine (oscillator 440Hz))")
	f.Add("(a (b 1.5ms) -c)")
	f.Fuzz(func(t *testing.T, src string) {
		nodes, err := parser.Parse([]byte(src))
		if err != nil {
			return
		}
		again, err := parser.Parse([]byte(ast.PrintAll(nodes)))
		if err != nil {
			t.Fatalf("printed form does not parse: %v", err)
		}
		if len(again) != len(nodes) {
			t.Fatalf("node count changed")
		}
		for i := range nodes {
			if !ast.Equal(nodes[i], again[i]) {
				t.Fatalf("node %d changed", i)
			}
		}
	})
}
