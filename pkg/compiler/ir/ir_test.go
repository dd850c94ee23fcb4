package ir_test

import (
	"errors"
	"testing"

	"github.com/agenthands/nsound/pkg/compiler/ir"
	"github.com/agenthands/nsound/pkg/core/value"
)

func TestNewValueChecksTypes(t *testing.T) {
	freq, err := ir.NewValue(ir.NumFreq, []int{40})
	if err != nil {
		t.Fatalf("NewValue failed: %v", err)
	}

	// ConstOscillator takes a scalar.
	if _, err := ir.NewValue(ir.ConstOscillator, nil, freq); err != nil {
		t.Errorf("expected scalar input to be accepted: %v", err)
	}

	// Oscillator takes a buffer.
	_, err = ir.NewValue(ir.Oscillator, nil, freq)
	var te *ir.TypeError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TypeError, got %v", err)
	}
	if len(te.Want) != 1 || te.Want[0] != value.TypeBuffer {
		t.Errorf("unexpected signature %v", te.Want)
	}

	// Too many inputs.
	if _, err := ir.NewValue(ir.Noise, nil, freq); err == nil {
		t.Errorf("expected error for extra input")
	}
}

func TestNewValueChecksParams(t *testing.T) {
	if _, err := ir.NewValue(ir.NumLin, nil); err == nil {
		t.Errorf("expected error for missing parameter")
	}
	if _, err := ir.NewValue(ir.Sine, []int{1}); err == nil {
		t.Errorf("expected error for extra parameter")
	}
}

func TestVariableNodeOutputs(t *testing.T) {
	v := &ir.VariableNode{Name: "x", Type: value.TypeBuffer}
	if _, err := ir.NewValue(ir.Sine, nil, v); err != nil {
		t.Errorf("variable of buffer type should feed sine: %v", err)
	}
}

func TestOperatorNamesMatchOpcodes(t *testing.T) {
	for _, op := range []*ir.Operator{ir.ParamScalar, ir.Mix, ir.StateVariableFilter, ir.EnvEnd} {
		if op.Name != op.Opcode.String() || op.Params != op.Opcode.Params() {
			t.Errorf("operator %s disagrees with opcode table", op.Name)
		}
	}
}
