package evaluator

import (
	"math"

	"github.com/agenthands/nsound/pkg/compiler/ast"
	"github.com/agenthands/nsound/pkg/compiler/ir"
	"github.com/agenthands/nsound/pkg/core/data"
	"github.com/agenthands/nsound/pkg/core/units"
	"github.com/agenthands/nsound/pkg/core/value"
)

type encoding struct {
	op     *ir.Operator
	encode func(float64) int
	decode func(int) float64
}

var (
	linear      = encoding{ir.NumLin, data.EncodeLinear, data.DecodeLinear}
	exponential = encoding{ir.NumExp, data.EncodeExponential, data.DecodeExponential}
	note        = encoding{ir.NumNote, data.EncodeNote, data.DecodeNote}
	frequency   = encoding{ir.NumFreq, data.EncodeFrequency, data.DecodeFrequency}
)

func encodingsFor(u units.Units) []encoding {
	switch u {
	case units.Hertz:
		return []encoding{note, frequency}
	case units.Second:
		return []encoding{exponential}
	case units.Phase:
		return []encoding{linear}
	case units.None, units.Volt, units.Decibel:
		return []encoding{linear, exponential}
	}
	return nil
}

// decibelsToRatio converts a gain in dB to a linear ratio.
func decibelsToRatio(db float64) float64 {
	return math.Pow(10, db/20)
}

// quantize picks the encoding whose decoded value is closest to the
// constant. Decibel constants are converted to ratios first.
func quantize(n ast.Node, v operand) (encoding, int, float64, error) {
	x := v.constant
	if v.units == units.Decibel {
		x = decibelsToRatio(x)
	}
	var (
		best     encoding
		bestCode = -1
		bestVal  float64
	)
	for _, enc := range encodingsFor(v.units) {
		code := enc.encode(x)
		if !data.InRange(code) {
			continue
		}
		got := enc.decode(code)
		if bestCode < 0 || math.Abs(got-x) < math.Abs(bestVal-x) {
			best, bestCode, bestVal = enc, code, got
		}
	}
	if bestCode < 0 {
		return encoding{}, 0, 0, errorf(n, "value %g (%v) is out of range", v.constant, v.units)
	}
	return best, bestCode, bestVal, nil
}

// lower turns a constant into a scalar node.
func lower(n ast.Node, v operand) (ir.Node, error) {
	enc, code, _, err := quantize(n, v)
	if err != nil {
		return nil, err
	}
	return newNode(n, enc.op, []int{code})
}

func mismatch(n ast.Node, want string, got operand) error {
	return errorf(n, "expected %s, got %s", want, got.describe())
}

// scalar accepts a constant or scalar node with exactly the given units.
func scalar(n ast.Node, v operand, u units.Units) (ir.Node, error) {
	if v.units != u {
		return nil, mismatch(n, "scalar ("+u.String()+")", v)
	}
	switch {
	case v.kind == kindConstant:
		return lower(n, v)
	case v.kind == kindNode && v.typ == value.TypeScalar:
		return v.node, nil
	}
	return nil, mismatch(n, "scalar ("+u.String()+")", v)
}

// anyScalar accepts a constant or scalar node with any units.
func anyScalar(n ast.Node, v operand) (ir.Node, units.Units, error) {
	node, err := scalar(n, v, v.units)
	return node, v.units, err
}

// buffer accepts a buffer node with exactly the given units.
func buffer(n ast.Node, v operand, u units.Units) (ir.Node, error) {
	if v.kind != kindNode || v.typ != value.TypeBuffer || v.units != u {
		return nil, mismatch(n, "buffer ("+u.String()+")", v)
	}
	return v.node, nil
}

// anyBuffer accepts a buffer node with any units.
func anyBuffer(n ast.Node, v operand) (ir.Node, units.Units, error) {
	node, err := buffer(n, v, v.units)
	return node, v.units, err
}

// castToBuffer accepts a constant, scalar or buffer with the given units
// and widens it to a buffer.
func castToBuffer(n ast.Node, v operand, u units.Units) (ir.Node, error) {
	if v.units != u {
		return nil, mismatch(n, "value ("+u.String()+")", v)
	}
	if v.kind == kindNode && v.typ == value.TypeBuffer {
		return v.node, nil
	}
	s, err := scalar(n, v, u)
	if err != nil {
		return nil, err
	}
	return newNode(n, ir.ToBuffer, nil, s)
}

// castToPhase accepts a phase buffer, or anything frequency-like, which is
// wrapped in a fresh oscillator.
func castToPhase(n ast.Node, v operand) (ir.Node, error) {
	switch v.units {
	case units.Phase:
		return buffer(n, v, units.Phase)
	case units.Hertz:
		return oscillate(n, v)
	}
	return nil, mismatch(n, "phase or frequency", v)
}

// oscillate builds an oscillator over a frequency. Constant and scalar
// frequencies use the constant oscillator.
func oscillate(n ast.Node, v operand) (ir.Node, error) {
	if v.units != units.Hertz {
		return nil, mismatch(n, "frequency", v)
	}
	if v.kind == kindNode && v.typ == value.TypeBuffer {
		return newNode(n, ir.Oscillator, nil, v.node)
	}
	s, err := scalar(n, v, units.Hertz)
	if err != nil {
		return nil, err
	}
	return newNode(n, ir.ConstOscillator, nil, s)
}

// gain accepts a ratio or decibel constant and returns its exponential code.
func gain(n ast.Node, v operand) (int, error) {
	if v.kind != kindConstant || (v.units != units.None && v.units != units.Decibel) {
		return 0, mismatch(n, "gain constant (ratio or dB)", v)
	}
	x := v.constant
	if v.units == units.Decibel {
		x = decibelsToRatio(x)
	}
	code := data.EncodeExponential(x)
	if !data.InRange(code) {
		return 0, errorf(n, "gain %g is out of range", v.constant)
	}
	return code, nil
}

// duration accepts a time constant and returns its node and the quantized
// duration in seconds.
func duration(n ast.Node, v operand) (ir.Node, float64, error) {
	if v.kind != kindConstant || v.units != units.Second {
		return nil, 0, mismatch(n, "time constant (s)", v)
	}
	enc, code, got, err := quantize(n, v)
	if err != nil {
		return nil, 0, err
	}
	node, err := newNode(n, enc.op, []int{code})
	return node, got, err
}
