package vm

import (
	"github.com/agenthands/nsound/pkg/core/data"
	"github.com/agenthands/nsound/pkg/core/value"
)

type operation struct {
	name   string
	params int
	fn     func(m *Machine, p []byte)
}

// operations is the dispatch table; an opcode is its index. The compiler
// keeps its own table, and the two are compared by name at startup.
var operations = [...]operation{
	{"deref", 1, opDeref},
	{"derefCopy", 1, opDerefCopy},
	{"define", 1, opDefine},
	{"numLin", 1, opNumLin},
	{"numExp", 1, opNumExp},
	{"numNote", 1, opNumNote},
	{"numFreq", 1, opNumFreq},
	{"toBuffer", 0, opToBuffer},
	{"oscillator", 0, opOscillator},
	{"constOscillator", 0, opConstOscillator},
	{"sawtooth", 0, opSawtooth},
	{"sine", 0, opSine},
	{"square", 0, opSquare},
	{"triangle", 0, opTriangle},
	{"noise", 0, opNoise},
	{"highPass", 0, opHighPass},
	{"stateVariableFilter", 1, opStateVariableFilter},
	{"saturate", 0, opSaturate},
	{"rectify", 0, opRectify},
	{"envStart", 0, opEnvStart},
	{"envSet", 0, opEnvSet},
	{"envLin", 0, opEnvLin},
	{"envExp", 0, opEnvExp},
	{"envDelay", 0, opEnvDelay},
	{"envGate", 0, opEnvGate},
	{"envEnd", 0, opEnvEnd},
	{"multiply", 0, opMultiply},
	{"scale", 0, opScale},
	{"gain", 1, opGain},
	{"mix", 1, opMix},
	{"phaseMod", 1, opPhaseMod},
	{"frequency", 0, opFrequency},
}

// OperationNames lists the dispatch table in opcode order.
func OperationNames() []string {
	names := make([]string, len(operations))
	for i, o := range operations {
		names[i] = o.name
	}
	return names
}

// OperationParams returns the parameter count of each operation in opcode
// order.
func OperationParams() []int {
	params := make([]int, len(operations))
	for i, o := range operations {
		params[i] = o.params
	}
	return params
}

func (m *Machine) slot(p []byte) (int, value.Value) {
	i := param(p, 0)
	v := m.Slots[i]
	if v.Type == value.TypeVoid {
		fault("slot %d read before it is defined", i)
	}
	return i, v
}

func opDeref(m *Machine, p []byte) {
	_, v := m.slot(p)
	m.Push(v)
}

func opDerefCopy(m *Machine, p []byte) {
	_, v := m.slot(p)
	m.Push(v.Copy())
}

func opDefine(m *Machine, p []byte) {
	m.Slots[param(p, 0)] = m.Pop()
}

func pushNumber(m *Machine, x float64) {
	m.Push(value.Scalar(float32(x)))
}

func opNumLin(m *Machine, p []byte)  { pushNumber(m, data.DecodeLinear(param(p, 0))) }
func opNumExp(m *Machine, p []byte)  { pushNumber(m, data.DecodeExponential(param(p, 0))) }
func opNumNote(m *Machine, p []byte) { pushNumber(m, data.DecodeNote(param(p, 0))) }
func opNumFreq(m *Machine, p []byte) { pushNumber(m, data.DecodeFrequency(param(p, 0))) }

func opToBuffer(m *Machine, _ []byte) {
	x := m.popScalar()
	b := m.buffer()
	for i := range b {
		b[i] = x
	}
	m.pushBuffer(b)
}

func opMultiply(m *Machine, _ []byte) {
	y := m.popBuffer()
	x := m.popBuffer()
	for i := range x {
		x[i] *= y[i]
	}
	m.pushBuffer(x)
}

func opScale(m *Machine, _ []byte) {
	s := m.popScalar()
	x := m.popBuffer()
	for i := range x {
		x[i] *= s
	}
	m.pushBuffer(x)
}

func opGain(m *Machine, p []byte) {
	g := float32(data.DecodeExponential(param(p, 0)))
	x := m.popBuffer()
	for i := range x {
		x[i] *= g
	}
	m.pushBuffer(x)
}

func opMix(m *Machine, p []byte) {
	g := float32(data.DecodeExponential(param(p, 0)))
	y := m.popBuffer()
	acc := m.popBuffer()
	for i := range acc {
		acc[i] += g * y[i]
	}
	m.pushBuffer(acc)
}

func opFrequency(m *Machine, _ []byte) {
	x := m.popBuffer()
	for i, v := range x {
		x[i] = float32(data.LinearToFrequency(float64(v)))
	}
	m.pushBuffer(x)
}
