package ir

import (
	"github.com/agenthands/nsound/pkg/compiler/bytecode"
	"github.com/agenthands/nsound/pkg/core/value"
)

const (
	s = value.TypeScalar
	b = value.TypeBuffer
)

func fixed(types ...value.Type) func([]int) []value.Type {
	return func([]int) []value.Type { return types }
}

func op(code bytecode.Opcode, in []value.Type, out value.Type) *Operator {
	return &Operator{
		Name:    code.String(),
		Opcode:  code,
		Params:  code.Params(),
		Inputs:  fixed(in...),
		Outputs: []value.Type{out},
	}
}

// State-variable filter modes.
const (
	FilterLowPass = iota
	FilterHighPass
	FilterBandPass
)

var (
	// Parameter references. Buffer parameters are copied at each use so the
	// stored buffer is never mutated.
	ParamScalar = op(bytecode.OpDeref, nil, s)
	ParamBuffer = op(bytecode.OpDerefCopy, nil, b)

	NumLin  = op(bytecode.OpNumLin, nil, s)
	NumExp  = op(bytecode.OpNumExp, nil, s)
	NumNote = op(bytecode.OpNumNote, nil, s)
	NumFreq = op(bytecode.OpNumFreq, nil, s)

	ToBuffer        = op(bytecode.OpToBuffer, []value.Type{s}, b)
	Oscillator      = op(bytecode.OpOscillator, []value.Type{b}, b)
	ConstOscillator = op(bytecode.OpConstOscillator, []value.Type{s}, b)

	Sawtooth = op(bytecode.OpSawtooth, []value.Type{b}, b)
	Sine     = op(bytecode.OpSine, []value.Type{b}, b)
	Square   = op(bytecode.OpSquare, []value.Type{b}, b)
	Triangle = op(bytecode.OpTriangle, []value.Type{b}, b)
	Noise    = op(bytecode.OpNoise, nil, b)

	// HighPass takes (signal, frequency).
	HighPass = op(bytecode.OpHighPass, []value.Type{b, b}, b)
	// StateVariableFilter takes (signal, frequency, resonance); its parameter
	// is the filter mode.
	StateVariableFilter = op(bytecode.OpStateVariableFilter, []value.Type{b, b, s}, b)

	Saturate = op(bytecode.OpSaturate, []value.Type{b}, b)
	Rectify  = op(bytecode.OpRectify, []value.Type{b}, b)

	EnvStart = op(bytecode.OpEnvStart, nil, b)
	EnvSet   = op(bytecode.OpEnvSet, []value.Type{b, s}, b)
	EnvLin   = op(bytecode.OpEnvLin, []value.Type{b, s, s}, b)
	EnvExp   = op(bytecode.OpEnvExp, []value.Type{b, s, s}, b)
	EnvDelay = op(bytecode.OpEnvDelay, []value.Type{b, s}, b)
	EnvGate  = op(bytecode.OpEnvGate, []value.Type{b}, b)
	EnvEnd   = op(bytecode.OpEnvEnd, []value.Type{b}, b)

	Multiply  = op(bytecode.OpMultiply, []value.Type{b, b}, b)
	Scale     = op(bytecode.OpScale, []value.Type{b, s}, b)
	Gain      = op(bytecode.OpGain, []value.Type{b}, b)
	Mix       = op(bytecode.OpMix, []value.Type{b, b}, b)
	PhaseMod  = op(bytecode.OpPhaseMod, []value.Type{b, b}, b)
	Frequency = op(bytecode.OpFrequency, []value.Type{b}, b)
)
