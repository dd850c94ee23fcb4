package evaluator

import (
	"fmt"

	"github.com/agenthands/nsound/pkg/compiler/ast"
	"github.com/agenthands/nsound/pkg/compiler/ir"
	"github.com/agenthands/nsound/pkg/core/units"
	"github.com/agenthands/nsound/pkg/core/value"
)

// arity describes how many arguments a built-in accepts. Arguments past min
// come in groups of step; max < 0 means no upper bound.
type arity struct {
	min, max, step int
}

func exactly(n int) arity { return arity{min: n, max: n} }
func groups(min, step int) arity { return arity{min: min, max: -1, step: step} }

func (a arity) accepts(n int) bool {
	if n < a.min || (a.max >= 0 && n > a.max) {
		return false
	}
	return a.step <= 1 || (n-a.min)%a.step == 0
}

func (a arity) String() string {
	switch {
	case a.min == a.max && a.min == 1:
		return "1 argument"
	case a.min == a.max:
		return fmt.Sprintf("%d arguments", a.min)
	case a.step > 1:
		return fmt.Sprintf("%d or more arguments in groups of %d", a.min, a.step)
	}
	return fmt.Sprintf("at least %d arguments", a.min)
}

// call is a built-in application with its arguments already evaluated.
type call struct {
	list *ast.List
	args []ast.Node
	vals []operand
}

type builtin struct {
	arity arity
	eval  func(e *evaluator, c *call) (operand, error)
}

var builtins = map[string]builtin{
	"oscillator": {exactly(1), evalOscillator},
	"sawtooth":   {exactly(1), waveshape(ir.Sawtooth)},
	"sine":       {exactly(1), waveshape(ir.Sine)},
	"square":     {exactly(1), waveshape(ir.Square)},
	"triangle":   {exactly(1), waveshape(ir.Triangle)},
	"noise":      {exactly(0), evalNoise},
	"highPass":   {exactly(2), evalHighPass},
	"lowPass2":   {exactly(3), stateVariable(ir.FilterLowPass)},
	"highPass2":  {exactly(3), stateVariable(ir.FilterHighPass)},
	"bandPass2":  {exactly(3), stateVariable(ir.FilterBandPass)},
	"saturate":   {exactly(1), unary(ir.Saturate)},
	"rectify":    {exactly(1), unary(ir.Rectify)},
	"*":          {groups(2, 1), evalMultiply},
	"mix":        {groups(2, 2), evalMix},
	"phase-mod":  {groups(3, 2), evalPhaseMod},
	"frequency":  {exactly(1), evalFrequency},
}

func (c *call) arg(i int) (ast.Node, operand) {
	return c.args[i], c.vals[i]
}

func buffered(node ir.Node, err error, u units.Units) (operand, error) {
	if err != nil {
		return operand{}, err
	}
	return nodeOperand(node, u), nil
}

func evalOscillator(e *evaluator, c *call) (operand, error) {
	node, err := oscillate(c.arg(0))
	return buffered(node, err, units.Phase)
}

func waveshape(op *ir.Operator) func(*evaluator, *call) (operand, error) {
	return func(e *evaluator, c *call) (operand, error) {
		n, v := c.arg(0)
		phase, err := castToPhase(n, v)
		if err != nil {
			return operand{}, err
		}
		node, err := newNode(c.list, op, nil, phase)
		return buffered(node, err, units.Volt)
	}
}

func evalNoise(e *evaluator, c *call) (operand, error) {
	node, err := newNode(c.list, ir.Noise, nil)
	return buffered(node, err, units.Volt)
}

func unary(op *ir.Operator) func(*evaluator, *call) (operand, error) {
	return func(e *evaluator, c *call) (operand, error) {
		in, u, err := anyBuffer(c.arg(0))
		if err != nil {
			return operand{}, err
		}
		node, err := newNode(c.list, op, nil, in)
		return buffered(node, err, u)
	}
}

func evalHighPass(e *evaluator, c *call) (operand, error) {
	in, u, err := anyBuffer(c.arg(0))
	if err != nil {
		return operand{}, err
	}
	n, v := c.arg(1)
	freq, err := castToBuffer(n, v, units.Hertz)
	if err != nil {
		return operand{}, err
	}
	node, err := newNode(c.list, ir.HighPass, nil, in, freq)
	return buffered(node, err, u)
}

func stateVariable(mode int) func(*evaluator, *call) (operand, error) {
	return func(e *evaluator, c *call) (operand, error) {
		in, u, err := anyBuffer(c.arg(0))
		if err != nil {
			return operand{}, err
		}
		n, v := c.arg(1)
		freq, err := castToBuffer(n, v, units.Hertz)
		if err != nil {
			return operand{}, err
		}
		n, v = c.arg(2)
		q, err := scalar(n, v, units.None)
		if err != nil {
			return operand{}, err
		}
		node, err := newNode(c.list, ir.StateVariableFilter, []int{mode}, in, freq, q)
		return buffered(node, err, u)
	}
}

func evalMultiply(e *evaluator, c *call) (operand, error) {
	us := make([]units.Units, len(c.vals))
	allConstant := true
	for i, v := range c.vals {
		us[i] = v.units
		if v.kind != kindConstant {
			allConstant = false
		}
	}
	result, err := units.Multiply(us)
	if err != nil {
		return operand{}, errorf(c.list, "%v", err)
	}

	if allConstant {
		x := 1.0
		for _, v := range c.vals {
			x *= v.constant
		}
		return constant(x, result), nil
	}

	var buffers, scalars []ir.Node
	for i, v := range c.vals {
		n := c.args[i]
		if v.kind == kindNode && v.typ == value.TypeBuffer {
			buffers = append(buffers, v.node)
			continue
		}
		s, _, err := anyScalar(n, v)
		if err != nil {
			return operand{}, err
		}
		scalars = append(scalars, s)
	}

	if len(buffers) == 0 {
		acc, err := newNode(c.list, ir.ToBuffer, nil, scalars[0])
		if err != nil {
			return operand{}, err
		}
		buffers, scalars = []ir.Node{acc}, scalars[1:]
	}
	acc := buffers[0]
	for _, in := range buffers[1:] {
		if acc, err = newNode(c.list, ir.Multiply, nil, acc, in); err != nil {
			return operand{}, err
		}
	}
	for _, in := range scalars {
		if acc, err = newNode(c.list, ir.Scale, nil, acc, in); err != nil {
			return operand{}, err
		}
	}
	return nodeOperand(acc, result), nil
}

// evalMix folds (gain signal)... into gain and mix nodes. All signals must
// share units.
func evalMix(e *evaluator, c *call) (operand, error) {
	var (
		acc ir.Node
		u   units.Units
	)
	for i := 0; i < len(c.args); i += 2 {
		g, err := gain(c.arg(i))
		if err != nil {
			return operand{}, err
		}
		n, v := c.arg(i + 1)
		in, su, err := anyBuffer(n, v)
		if err != nil {
			return operand{}, err
		}
		if acc == nil {
			u = su
			acc, err = newNode(c.list, ir.Gain, []int{g}, in)
		} else {
			if su != u {
				return operand{}, errorf(n, "cannot mix %v with %v", su, u)
			}
			acc, err = newNode(c.list, ir.Mix, []int{g}, acc, in)
		}
		if err != nil {
			return operand{}, err
		}
	}
	return nodeOperand(acc, u), nil
}

// evalPhaseMod offsets a phase by gain-scaled modulators.
func evalPhaseMod(e *evaluator, c *call) (operand, error) {
	acc, err := castToPhase(c.arg(0))
	if err != nil {
		return operand{}, err
	}
	for i := 1; i < len(c.args); i += 2 {
		g, err := gain(c.arg(i))
		if err != nil {
			return operand{}, err
		}
		mod, _, err := anyBuffer(c.arg(i + 1))
		if err != nil {
			return operand{}, err
		}
		if acc, err = newNode(c.list, ir.PhaseMod, []int{g}, acc, mod); err != nil {
			return operand{}, err
		}
	}
	return nodeOperand(acc, units.Phase), nil
}

func evalFrequency(e *evaluator, c *call) (operand, error) {
	in, err := buffer(c.args[0], c.vals[0], units.None)
	if err != nil {
		return operand{}, err
	}
	node, err := newNode(c.list, ir.Frequency, nil, in)
	return buffered(node, err, units.Hertz)
}
