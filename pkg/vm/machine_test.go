package vm_test

import (
	"math"
	"testing"

	"github.com/pkg/errors"

	"github.com/agenthands/nsound/pkg/compiler/bytecode"
	"github.com/agenthands/nsound/pkg/core/value"
	"github.com/agenthands/nsound/pkg/vm"
)

// asm is a shorthand program builder: opcodes followed by their parameters.
type asm []any

func assemble(t testing.TB, tail int, prog asm) []byte {
	t.Helper()
	w, err := bytecode.NewWriter(tail)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(prog); {
		op := prog[i].(bytecode.Opcode)
		params := make([]int, op.Params())
		for j := range params {
			params[j] = prog[i+1+j].(int)
		}
		if err := w.Emit(op, params...); err != nil {
			t.Fatal(err)
		}
		i += 1 + len(params)
	}
	return w.Bytes()
}

func newMachine(rate float64) *vm.Machine {
	m := vm.NewMachine()
	m.SampleRate = rate
	return m
}

func TestMachineReset(t *testing.T) {
	m := vm.NewMachine()

	// Dirty the machine
	m.Push(value.Scalar(1))
	m.Slots[3] = value.Buffer([]float32{1, 2})

	m.Reset()

	if m.SP != 0 {
		t.Errorf("Reset failed: SP=%d", m.SP)
	}
	if m.Stack[0].Type != value.TypeVoid || m.Slots[3].Type != value.TypeVoid {
		t.Errorf("Reset failed to zero out stack and slots")
	}
}

func TestMachineStackOps(t *testing.T) {
	m := vm.NewMachine()

	m.Push(value.Scalar(42))
	if m.SP != 1 {
		t.Errorf("expected SP=1, got %d", m.SP)
	}

	val := m.Pop()
	if val.Scalar != 42 {
		t.Errorf("expected 42, got %g", val.Scalar)
	}
	if m.SP != 0 {
		t.Errorf("expected SP=0, got %d", m.SP)
	}
}

func TestMachineStackOverflow(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic on stack overflow")
		}
	}()

	m := vm.NewMachine()
	for i := 0; i <= vm.StackDepth; i++ {
		m.Push(value.Scalar(float32(i)))
	}
}

func TestRunSine(t *testing.T) {
	code := assemble(t, 69, asm{
		bytecode.OpNumNote, 57,
		bytecode.OpConstOscillator,
		bytecode.OpSine,
	})
	out, err := newMachine(1000).Run(code, 57, 0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// Tail 69 is one second.
	if len(out) != 1000 {
		t.Fatalf("len = %d, want 1000", len(out))
	}
	if out[0] != 0 {
		t.Errorf("out[0] = %g, want 0", out[0])
	}
	for i, x := range out {
		if x < -1 || x > 1 {
			t.Fatalf("out[%d] = %g out of range", i, x)
		}
	}
}

func TestRunLength(t *testing.T) {
	code := assemble(t, 69, asm{bytecode.OpNoise})
	m := newMachine(1000)
	out, err := m.Run(code, 48, 0.5)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(out) != 1500 {
		t.Errorf("len = %d, want 1500", len(out))
	}
	if n, _ := m.Length(code, 0.5); n != 1500 {
		t.Errorf("Length = %d, want 1500", n)
	}

	// No tail, no gate: an empty buffer.
	out, err = m.Run(assemble(t, 0, asm{bytecode.OpNoise}), 48, 0)
	if err != nil || len(out) != 0 {
		t.Errorf("got %d samples, err %v", len(out), err)
	}
}

func TestRunNoteParameter(t *testing.T) {
	code := assemble(t, 0, asm{
		bytecode.OpDeref, vm.SlotNote,
		bytecode.OpConstOscillator,
		bytecode.OpSawtooth,
	})
	out, err := newMachine(44100).Run(code, 57, 0.01)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := 2*440.0/44100 - 1
	if math.Abs(float64(out[1])-want) > 1e-5 {
		t.Errorf("out[1] = %g, want %g", out[1], want)
	}
}

func TestNoiseIsDeterministic(t *testing.T) {
	code := assemble(t, 60, asm{bytecode.OpNoise})
	m := newMachine(8000)
	a, err := m.Run(code, 48, 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Run(code, 48, 0)
	if err != nil {
		t.Fatal(err)
	}
	nonzero := false
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs: %g vs %g", i, a[i], b[i])
		}
		if a[i] < -1 || a[i] >= 1 {
			t.Fatalf("sample %d = %g out of range", i, a[i])
		}
		nonzero = nonzero || a[i] != 0
	}
	if !nonzero {
		t.Errorf("noise is silent")
	}
}

func TestEnvelope(t *testing.T) {
	// Hold 1 until the gate, then fall linearly to 0 over one second.
	code := assemble(t, 69, asm{
		bytecode.OpEnvStart,
		bytecode.OpNumLin, 90,
		bytecode.OpEnvSet,
		bytecode.OpEnvGate,
		bytecode.OpNumExp, 69,
		bytecode.OpNumLin, 45,
		bytecode.OpEnvLin,
		bytecode.OpEnvEnd,
	})
	out, err := newMachine(100).Run(code, 48, 0.5)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(out) != 150 {
		t.Fatalf("len = %d, want 150", len(out))
	}
	for _, tt := range []struct {
		i    int
		want float32
	}{
		{0, 1}, {49, 1}, {99, 0.5}, {149, 0},
	} {
		if out[tt.i] != tt.want {
			t.Errorf("out[%d] = %g, want %g", tt.i, out[tt.i], tt.want)
		}
	}
}

func TestEnvelopeExpAndTail(t *testing.T) {
	code := assemble(t, 69, asm{
		bytecode.OpEnvStart,
		bytecode.OpNumLin, 90,
		bytecode.OpEnvSet,
		bytecode.OpNumExp, 46,
		bytecode.OpEnvDelay,
		bytecode.OpNumExp, 46,
		bytecode.OpNumLin, 45,
		bytecode.OpEnvExp,
		bytecode.OpEnvEnd,
	})
	out, err := newMachine(1000).Run(code, 48, 0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out[0] != 1 {
		t.Errorf("delay segment should hold 1, got %g", out[0])
	}
	for i := 1; i < len(out); i++ {
		if out[i] > out[i-1] {
			t.Fatalf("decay is not monotonic at %d", i)
		}
	}
	if out[len(out)-1] != 0 {
		t.Errorf("envEnd should hold the final value, got %g", out[len(out)-1])
	}
}

func TestSlotsAreCopiedUntilLastUse(t *testing.T) {
	code := assemble(t, 60, asm{
		bytecode.OpNoise,
		bytecode.OpDefine, 2,
		bytecode.OpDerefCopy, 2,
		bytecode.OpGain, 69,
		bytecode.OpDeref, 2,
		bytecode.OpMix, 69,
	})
	out, err := newMachine(1000).Run(code, 48, 0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	ref, err := newMachine(1000).Run(assemble(t, 60, asm{bytecode.OpNoise}), 48, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := range out {
		if math.Abs(float64(out[i]-2*ref[i])) > 1e-6 {
			t.Fatalf("sample %d = %g, want %g", i, out[i], 2*ref[i])
		}
	}
}

func TestFiltersStayBounded(t *testing.T) {
	for mode := 0; mode < 3; mode++ {
		code := assemble(t, 69, asm{
			bytecode.OpNoise,
			bytecode.OpNumFreq, 91,
			bytecode.OpToBuffer,
			bytecode.OpNumExp, 80,
			bytecode.OpStateVariableFilter, mode,
			bytecode.OpNumFreq, 0,
			bytecode.OpToBuffer,
			bytecode.OpHighPass,
		})
		out, err := newMachine(44100).Run(code, 48, 0)
		if err != nil {
			t.Fatalf("mode %d: %v", mode, err)
		}
		for i, x := range out {
			if math.IsNaN(float64(x)) || math.Abs(float64(x)) > 100 {
				t.Fatalf("mode %d: sample %d = %g", mode, i, x)
			}
		}
	}
}

func TestInternalErrors(t *testing.T) {
	tests := []struct {
		name string
		code []byte
	}{
		{"empty", nil},
		{"no result", []byte{0}},
		{"tail out of range", []byte{200, byte(bytecode.OpNoise)}},
		{"unknown opcode", []byte{0, 200}},
		{"param overrun", []byte{0, byte(bytecode.OpDeref)}},
		{"two results", assemble(t, 0, asm{bytecode.OpNoise, bytecode.OpNoise})},
		{"scalar result", assemble(t, 0, asm{bytecode.OpNumLin, 45})},
		{"undefined slot", assemble(t, 0, asm{bytecode.OpDeref, 5})},
		{"type mismatch", assemble(t, 0, asm{bytecode.OpNumLin, 45, bytecode.OpSine})},
		{"underflow", assemble(t, 0, asm{bytecode.OpSine})},
		{"bad filter mode", assemble(t, 0, asm{
			bytecode.OpNoise, bytecode.OpNoise, bytecode.OpNumLin, 45,
			bytecode.OpStateVariableFilter, 7,
		})},
		{"unterminated envelope", assemble(t, 0, asm{bytecode.OpEnvStart})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := vm.NewMachine().Run(tt.code, 48, 0.01)
			if errors.Cause(err) != vm.ErrInternal {
				t.Errorf("expected ErrInternal, got %v", err)
			}
			if out != nil {
				t.Errorf("expected no output on failure")
			}
		})
	}
}

func TestPoolRestoresSampleRate(t *testing.T) {
	m := vm.GetMachine()
	m.SampleRate = 1000
	vm.PutMachine(m)
	if m.SampleRate != vm.DefaultSampleRate {
		t.Errorf("SampleRate = %g after PutMachine", m.SampleRate)
	}
	if got := vm.GetMachine(); got.SampleRate != vm.DefaultSampleRate {
		t.Errorf("pooled machine has SampleRate %g", got.SampleRate)
	}
}
