package emitter_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/agenthands/nsound/pkg/compiler/bytecode"
	"github.com/agenthands/nsound/pkg/compiler/emitter"
	"github.com/agenthands/nsound/pkg/compiler/evaluator"
	"github.com/agenthands/nsound/pkg/compiler/ir"
	"github.com/agenthands/nsound/pkg/compiler/parser"
	"github.com/agenthands/nsound/pkg/core/units"
	"github.com/agenthands/nsound/pkg/core/value"
)

var params = []evaluator.Parameter{
	{Name: "note", Type: value.TypeScalar, Units: units.Hertz},
	{Name: "gate", Type: value.TypeScalar, Units: units.Second},
}

func compile(t *testing.T, src string) *ir.Program {
	t.Helper()
	nodes, err := parser.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	prog, err := evaluator.Evaluate(nodes, params)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	return prog
}

func disasm(t *testing.T, code []byte) string {
	t.Helper()
	text, err := bytecode.Disassemble(code)
	if err != nil {
		t.Fatalf("Disassemble failed: %v", err)
	}
	// Drop the tail line.
	return text[strings.IndexByte(text, '\n')+1:]
}

func TestEmitterBasic(t *testing.T) {
	code, err := emitter.EmitCode(compile(t, "(sine (oscillator 440Hz))"))
	if err != nil {
		t.Fatalf("EmitCode failed: %v", err)
	}
	want := "numNote 57\nconstOscillator\nsine\n"
	if got := disasm(t, code); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
	if code[0] != 0 {
		t.Errorf("tail byte = %d, want 0", code[0])
	}
}

func TestParametersAreInlined(t *testing.T) {
	code, err := emitter.EmitCode(compile(t, "(define n note) (mix 1 (sine n) 1 (sawtooth n))"))
	if err != nil {
		t.Fatalf("EmitCode failed: %v", err)
	}
	want := "deref 0\nconstOscillator\nsine\ngain 69\n" +
		"deref 0\nconstOscillator\nsawtooth\nmix 69\n"
	if got := disasm(t, code); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestSingleUseVariableIsInlined(t *testing.T) {
	code, err := emitter.EmitCode(compile(t, "(define osc (sine note)) (saturate osc)"))
	if err != nil {
		t.Fatalf("EmitCode failed: %v", err)
	}
	got := disasm(t, code)
	if strings.Contains(got, "define") {
		t.Errorf("single-use variable got a slot:\n%s", got)
	}
	if want := "deref 0\nconstOscillator\nsine\nsaturate\n"; got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestSharedVariableUsesSlot(t *testing.T) {
	src := "(define osc (sine note)) (mix 1 osc 0.25 osc -6dB osc)"
	code, err := emitter.EmitCode(compile(t, src))
	if err != nil {
		t.Fatalf("EmitCode failed: %v", err)
	}
	// Slots start after the two parameters. The stored buffer is copied
	// until its last use.
	want := "deref 0\nconstOscillator\nsine\ndefine 2\nderefCopy 2\ngain 69\n" +
		"derefCopy 2\nmix 56\nderef 2\nmix 62\n"
	if got := disasm(t, code); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestAliasesShareOneSlot(t *testing.T) {
	src := "(define a (noise)) (define b a) (mix 1 a 1 b)"
	code, err := emitter.EmitCode(compile(t, src))
	if err != nil {
		t.Fatalf("EmitCode failed: %v", err)
	}
	want := "noise\ndefine 2\nderefCopy 2\ngain 69\nderef 2\nmix 69\n"
	if got := disasm(t, code); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestDeterministic(t *testing.T) {
	src := `(define env (envelope (set 1) (gate) (exp 300ms 0)))
(define a (sine note))
(define b (triangle note))
(* env (mix 1 a 1 b 0.5 a 0.5 b))`
	prog := compile(t, src)
	first, err := emitter.EmitCode(prog)
	if err != nil {
		t.Fatalf("EmitCode failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := emitter.EmitCode(compile(t, src))
		if err != nil {
			t.Fatalf("EmitCode failed: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("run %d produced different bytecode", i)
		}
	}
	if first[0] == 0 {
		t.Errorf("expected a non-zero tail byte")
	}
}

func TestInternalErrors(t *testing.T) {
	big, _ := ir.NewValue(ir.NumLin, []int{200})
	tests := []struct {
		name string
		prog *ir.Program
	}{
		{"no result", &ir.Program{}},
		{"undefined variable", &ir.Program{
			Variables: map[string]ir.Node{},
			Result:    &ir.VariableNode{Name: "x", Type: value.TypeBuffer},
		}},
		{"alias cycle", &ir.Program{
			Variables: map[string]ir.Node{
				"a": &ir.VariableNode{Name: "b", Type: value.TypeBuffer},
				"b": &ir.VariableNode{Name: "a", Type: value.TypeBuffer},
			},
			Result: &ir.VariableNode{Name: "a", Type: value.TypeBuffer},
		}},
		{"param out of range", &ir.Program{Result: &ir.ValueNode{
			Op:     ir.ToBuffer,
			Inputs: []ir.Node{big},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := emitter.EmitCode(tt.prog)
			if errors.Cause(err) != emitter.ErrInternal {
				t.Errorf("expected ErrInternal, got %v", err)
			}
		})
	}
}
