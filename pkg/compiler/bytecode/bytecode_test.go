package bytecode_test

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/agenthands/nsound/pkg/compiler/bytecode"
	"github.com/agenthands/nsound/pkg/core/data"
)

func TestTableIsDense(t *testing.T) {
	seen := make(map[string]bool)
	for i, info := range bytecode.Table {
		if info.Name == "" {
			t.Errorf("opcode %d has no name", i)
		}
		if seen[info.Name] {
			t.Errorf("duplicate opcode name %q", info.Name)
		}
		seen[info.Name] = true
		op, ok := bytecode.Lookup(info.Name)
		if !ok || int(op) != i {
			t.Errorf("Lookup(%q) = %d, %v", info.Name, op, ok)
		}
	}
	if bytecode.Count-1 > data.Max {
		t.Errorf("opcodes do not fit the data alphabet")
	}
}

func TestWriterRejects(t *testing.T) {
	w, err := bytecode.NewWriter(0)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Emit(bytecode.OpDeref, 256); errors.Cause(err) != bytecode.ErrParamRange {
		t.Errorf("expected ErrParamRange, got %v", err)
	}
	if err := w.Emit(bytecode.OpDeref, -1); errors.Cause(err) != bytecode.ErrParamRange {
		t.Errorf("expected ErrParamRange, got %v", err)
	}
	if err := w.Emit(bytecode.OpSine, 1); errors.Cause(err) != bytecode.ErrParamCount {
		t.Errorf("expected ErrParamCount, got %v", err)
	}
	if len(w.Bytes()) != 1 {
		t.Errorf("rejected instructions were written")
	}
}

func TestDisassemble(t *testing.T) {
	w, _ := bytecode.NewWriter(69)
	steps := []struct {
		op     bytecode.Opcode
		params []int
	}{
		{bytecode.OpNumNote, []int{57}},
		{bytecode.OpConstOscillator, nil},
		{bytecode.OpSine, nil},
		{bytecode.OpGain, []int{60}},
	}
	for _, s := range steps {
		if err := w.Emit(s.op, s.params...); err != nil {
			t.Fatalf("Emit failed: %v", err)
		}
	}

	got, err := bytecode.Disassemble(w.Bytes())
	if err != nil {
		t.Fatalf("Disassemble failed: %v", err)
	}
	want := "tail 69 ; 1.000s\nnumNote 57\nconstOscillator\nsine\ngain 60\n"
	if got != want {
		t.Errorf("Disassemble:\n%s\nwant:\n%s", got, want)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for name, code := range map[string][]byte{
		"empty":          {},
		"unknown opcode": {0, 200},
		"truncated":      {0, byte(bytecode.OpDeref)},
	} {
		t.Run(name, func(t *testing.T) {
			if _, _, err := bytecode.Decode(code); errors.Cause(err) != bytecode.ErrMalformed {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestEncodeTail(t *testing.T) {
	for _, s := range []float64{0.0001, 0.3, 1, 2.5} {
		x, err := bytecode.EncodeTail(s)
		if err != nil {
			t.Fatalf("EncodeTail(%v) failed: %v", s, err)
		}
		if x == 0 || bytecode.TailSeconds(x) < s {
			t.Errorf("EncodeTail(%v) = %d decodes to %v", s, x, bytecode.TailSeconds(x))
		}
	}
	if x, _ := bytecode.EncodeTail(0); x != 0 {
		t.Errorf("EncodeTail(0) = %d", x)
	}
	if _, err := bytecode.EncodeTail(60); err == nil {
		t.Errorf("expected error for a one-minute tail")
	}
}
