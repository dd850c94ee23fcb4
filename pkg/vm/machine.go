package vm

import (
	"math"
	"runtime"

	"github.com/pkg/errors"

	"github.com/agenthands/nsound/pkg/core/data"
	"github.com/agenthands/nsound/pkg/core/value"
)

// ErrInternal marks malformed bytecode. The compiler never produces it, so
// it always indicates a bug.
var ErrInternal = errors.New("vm: internal error")

const (
	StackDepth = 64
	MaxSlots   = data.Max + 1

	DefaultSampleRate = 44100

	// Parameter slots filled before each run.
	SlotNote = 0
	SlotGate = 1

	noiseSeed uint32 = 2463534242
)

// Machine is the execution context of one sound program run. A Machine
// must not be shared between goroutines; use GetMachine for a pooled one.
type Machine struct {
	SampleRate float64

	Stack [StackDepth]value.Value
	SP    int // Stack Pointer

	Slots [MaxSlots]value.Value

	// length is the size of every buffer in the current run.
	length int
	// gate is the gate time in samples.
	gate int

	env envelope

	noise uint32
}

type envelope struct {
	active bool
	value  float32
	pos    int
}

// NewMachine returns a machine rendering at DefaultSampleRate.
func NewMachine() *Machine {
	return &Machine{SampleRate: DefaultSampleRate}
}

// Reset clears the machine state for reuse (sync.Pool compliant).
func (m *Machine) Reset() {
	for i := 0; i < m.SP; i++ {
		m.Stack[i] = value.Value{}
	}
	m.SP = 0
	for i := range m.Slots {
		m.Slots[i] = value.Value{}
	}
	m.length = 0
	m.gate = 0
	m.env = envelope{}
	m.noise = noiseSeed
}

// fault aborts the run with an internal error.
func fault(format string, args ...any) {
	panic(errors.Wrapf(ErrInternal, format, args...))
}

// Push adds a value to the stack. Panics on overflow.
func (m *Machine) Push(v value.Value) {
	if m.SP >= StackDepth {
		fault("stack overflow")
	}
	m.Stack[m.SP] = v
	m.SP++
}

// Pop removes and returns the top value from the stack. Panics on underflow.
func (m *Machine) Pop() value.Value {
	if m.SP <= 0 {
		fault("stack underflow")
	}
	m.SP--
	v := m.Stack[m.SP]
	m.Stack[m.SP] = value.Value{}
	return v
}

func (m *Machine) popScalar() float32 {
	v := m.Pop()
	if v.Type != value.TypeScalar {
		fault("expected scalar, got %v", v.Type)
	}
	return v.Scalar
}

func (m *Machine) popBuffer() []float32 {
	v := m.Pop()
	if v.Type != value.TypeBuffer {
		fault("expected buffer, got %v", v.Type)
	}
	if len(v.Buffer) != m.length {
		fault("buffer length %d, want %d", len(v.Buffer), m.length)
	}
	return v.Buffer
}

func (m *Machine) pushBuffer(b []float32) {
	m.Push(value.Buffer(b))
}

// buffer allocates a zeroed buffer of the run's length.
func (m *Machine) buffer() []float32 {
	return make([]float32, m.length)
}

func (m *Machine) rate() float64 {
	if m.SampleRate <= 0 {
		return DefaultSampleRate
	}
	return m.SampleRate
}

func (m *Machine) samples(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	return int(math.Round(seconds * m.rate()))
}

// Length returns the number of samples a run of code with the given gate
// time produces.
func (m *Machine) Length(code []byte, gate float64) (int, error) {
	if len(code) == 0 {
		return 0, errors.Wrap(ErrInternal, "empty program")
	}
	if !data.InRange(int(code[0])) {
		return 0, errors.Wrapf(ErrInternal, "tail %d out of range", code[0])
	}
	return m.samples(math.Max(gate, 0) + tailSeconds(code[0])), nil
}

// Run renders one note. note is a note number (48 is middle C) and gate is
// the time in seconds the note is held; the output covers the gate time
// plus the program's envelope tail.
func (m *Machine) Run(code []byte, note, gate float64) (out []float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			if e, ok := r.(error); ok && errors.Cause(e) == ErrInternal {
				err = e
				return
			}
			if e, ok := r.(runtime.Error); ok {
				err = errors.Wrap(ErrInternal, e.Error())
				return
			}
			panic(r)
		}
	}()

	m.Reset()
	n, err := m.Length(code, gate)
	if err != nil {
		return nil, err
	}
	m.length = n
	m.gate = m.samples(gate)
	m.Slots[SlotNote] = value.Scalar(float32(data.NoteFrequency(note)))
	m.Slots[SlotGate] = value.Scalar(float32(math.Max(gate, 0)))

	for ip := 1; ip < len(code); {
		op := code[ip]
		if int(op) >= len(operations) {
			fault("unknown opcode %d at offset %d", op, ip)
		}
		o := &operations[op]
		end := ip + 1 + o.params
		if end > len(code) {
			fault("%s at offset %d: parameters past end of program", o.name, ip)
		}
		o.fn(m, code[ip+1:end])
		ip = end
	}

	if m.SP != 1 {
		fault("program left %d values on the stack", m.SP)
	}
	if m.env.active {
		fault("unterminated envelope")
	}
	return m.popBuffer(), nil
}
