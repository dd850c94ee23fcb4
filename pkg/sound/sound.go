// Package sound is the entry point for sound programs: it compiles source
// text to bytecode and renders bytecode to samples.
package sound

import (
	"github.com/pkg/errors"

	"github.com/agenthands/nsound/pkg/compiler/bytecode"
	"github.com/agenthands/nsound/pkg/compiler/emitter"
	"github.com/agenthands/nsound/pkg/compiler/evaluator"
	"github.com/agenthands/nsound/pkg/compiler/ir"
	"github.com/agenthands/nsound/pkg/compiler/parser"
	"github.com/agenthands/nsound/pkg/core/data"
	"github.com/agenthands/nsound/pkg/core/units"
	"github.com/agenthands/nsound/pkg/core/value"
	"github.com/agenthands/nsound/pkg/vm"
)

// ErrOpcodeMismatch means the compiler and VM disagree about opcodes.
var ErrOpcodeMismatch = errors.New("sound: opcode table does not match VM")

// Parameters are the inputs every sound program can read. Their order
// matches the VM's parameter slots.
var Parameters = []evaluator.Parameter{
	vm.SlotNote: {Name: "note", Type: value.TypeScalar, Units: units.Hertz},
	vm.SlotGate: {Name: "gate", Type: value.TypeScalar, Units: units.Second},
}

// SourceError is a compile error that points into the source text.
type SourceError interface {
	error
	Locate(src []byte) string
}

func init() {
	if err := CheckOpcodes(); err != nil {
		panic(err)
	}
}

// CheckOpcodes verifies that the compiler's opcode table and the VM's
// dispatch table list the same operations in the same order.
func CheckOpcodes() error {
	return checkTables(bytecode.Names(), paramCounts(), vm.OperationNames(), vm.OperationParams())
}

func paramCounts() []int {
	counts := make([]int, bytecode.Count)
	for i := range counts {
		counts[i] = bytecode.Opcode(i).Params()
	}
	return counts
}

func checkTables(names []string, params []int, vmNames []string, vmParams []int) error {
	if len(names) != len(vmNames) {
		return errors.Wrapf(ErrOpcodeMismatch, "compiler has %d opcodes, VM has %d", len(names), len(vmNames))
	}
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		if seen[name] {
			return errors.Wrapf(ErrOpcodeMismatch, "duplicate opcode %q", name)
		}
		seen[name] = true
		if name != vmNames[i] {
			return errors.Wrapf(ErrOpcodeMismatch, "opcode %d is %q in the compiler, %q in the VM", i, name, vmNames[i])
		}
		if params[i] != vmParams[i] {
			return errors.Wrapf(ErrOpcodeMismatch, "%s takes %d parameters in the compiler, %d in the VM", name, params[i], vmParams[i])
		}
	}
	return nil
}

// Evaluate parses and checks a program without generating code.
func Evaluate(src []byte) (*ir.Program, error) {
	nodes, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	return evaluator.Evaluate(nodes, Parameters)
}

// Compile turns source text into bytecode. Source errors implement
// SourceError; anything else is a compiler bug.
func Compile(src []byte) ([]byte, error) {
	prog, err := Evaluate(src)
	if err != nil {
		return nil, err
	}
	return emitter.EmitCode(prog)
}

// Disassemble renders bytecode as text.
func Disassemble(code []byte) (string, error) {
	return bytecode.Disassemble(code)
}

// Encode packs bytecode into printable ASCII for embedding in build output.
func Encode(code []byte) (string, error) {
	return data.EncodeString(code)
}

// Decode is the inverse of Encode.
func Decode(s string) ([]byte, error) {
	return data.DecodeString(s)
}

// Describe formats err for a user, with a line and column when it comes
// from the source text.
func Describe(err error, src []byte) string {
	var se SourceError
	if errors.As(err, &se) {
		return se.Locate(src)
	}
	return err.Error()
}

// Renderer runs bytecode at a fixed sample rate. It is safe for
// concurrent use; each call borrows its own machine.
type Renderer struct {
	SampleRate float64
}

// Render runs code for one note. note is a note number where 48 is middle
// C; gate is how long the note is held, in seconds.
func (r Renderer) Render(code []byte, note, gate float64) ([]float32, error) {
	m := vm.GetMachine()
	defer vm.PutMachine(m)
	if r.SampleRate > 0 {
		m.SampleRate = r.SampleRate
	}
	return m.Run(code, note, gate)
}

// Render runs code at the default sample rate.
func Render(code []byte, note, gate float64) ([]float32, error) {
	return Renderer{SampleRate: vm.DefaultSampleRate}.Render(code, note, gate)
}
