package evaluator

import (
	"github.com/agenthands/nsound/pkg/compiler/ast"
	"github.com/agenthands/nsound/pkg/compiler/bytecode"
	"github.com/agenthands/nsound/pkg/compiler/ir"
	"github.com/agenthands/nsound/pkg/core/units"
)

// segment arities, not counting the segment name.
var segments = map[string]int{
	"set":   1,
	"lin":   2,
	"exp":   2,
	"delay": 1,
	"gate":  0,
}

// evalEnvelope lowers (envelope seg...) into a chain of envelope segment
// nodes between envStart and envEnd. Segment times are summed into the
// program tail: the time after the last gate segment, or the whole
// envelope when there is none.
func (e *evaluator) evalEnvelope(n *ast.List, args []ast.Node) (operand, error) {
	acc, err := newNode(n, ir.EnvStart, nil)
	if err != nil {
		return operand{}, err
	}
	var tail float64
	for _, arg := range args {
		seg, ok := arg.(*ast.List)
		if !ok {
			return operand{}, errorf(arg, "expected envelope segment")
		}
		name, ok := seg.Head()
		if !ok {
			return operand{}, errorf(seg, "expected envelope segment")
		}
		want, ok := segments[name]
		if !ok {
			return operand{}, errorf(seg.Items[0], "unknown envelope segment %q", name)
		}
		params := seg.Items[1:]
		if len(params) != want {
			return operand{}, errorf(seg, "%s takes %d arguments, got %d", name, want, len(params))
		}
		vals := make([]operand, len(params))
		for i, p := range params {
			if vals[i], err = e.eval(p); err != nil {
				return operand{}, err
			}
		}

		if acc, err = e.segment(seg, name, acc, params, vals, &tail); err != nil {
			return operand{}, err
		}
	}
	acc, err = newNode(n, ir.EnvEnd, nil, acc)
	if err != nil {
		return operand{}, err
	}
	if _, err := bytecode.EncodeTail(tail); err != nil {
		return operand{}, errorf(n, "%v", err)
	}
	if tail > e.prog.Tail {
		e.prog.Tail = tail
	}
	return nodeOperand(acc, units.None), nil
}

func (e *evaluator) segment(seg *ast.List, name string, acc ir.Node, params []ast.Node, vals []operand, tail *float64) (ir.Node, error) {
	switch name {
	case "set":
		v, err := scalar(params[0], vals[0], units.None)
		if err != nil {
			return nil, err
		}
		return newNode(seg, ir.EnvSet, nil, acc, v)
	case "lin", "exp":
		t, secs, err := duration(params[0], vals[0])
		if err != nil {
			return nil, err
		}
		v, err := scalar(params[1], vals[1], units.None)
		if err != nil {
			return nil, err
		}
		*tail += secs
		if name == "exp" {
			return newNode(seg, ir.EnvExp, nil, acc, t, v)
		}
		return newNode(seg, ir.EnvLin, nil, acc, t, v)
	case "delay":
		t, secs, err := duration(params[0], vals[0])
		if err != nil {
			return nil, err
		}
		*tail += secs
		return newNode(seg, ir.EnvDelay, nil, acc, t)
	case "gate":
		*tail = 0
		return newNode(seg, ir.EnvGate, nil, acc)
	}
	return nil, errorf(seg, "unknown envelope segment %q", name)
}
