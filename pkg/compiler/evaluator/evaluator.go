// Package evaluator type- and units-checks a parsed sound program and lowers
// it into an ir.Program.
package evaluator

import (
	"fmt"
	"math"

	"github.com/agenthands/nsound/pkg/compiler/ast"
	"github.com/agenthands/nsound/pkg/compiler/ir"
	"github.com/agenthands/nsound/pkg/compiler/lexer"
	"github.com/agenthands/nsound/pkg/core/units"
	"github.com/agenthands/nsound/pkg/core/value"
)

// EvaluationError is a source error found while evaluating a program.
type EvaluationError struct {
	Span    ast.Span
	Message string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation error at %d: %s", e.Span.Start, e.Message)
}

// Locate renders the error with a line and column from src.
func (e *EvaluationError) Locate(src []byte) string {
	line, col := lexer.Position(src, e.Span.Start)
	return fmt.Sprintf("%d:%d: %s", line, col, e.Message)
}

func errorf(n ast.Node, format string, args ...any) error {
	return &EvaluationError{Span: n.Pos(), Message: fmt.Sprintf(format, args...)}
}

// Parameter declares an input the VM provides in a numbered slot.
type Parameter struct {
	Name  string
	Type  value.Type
	Units units.Units
}

type operandKind uint8

const (
	kindVoid operandKind = iota
	kindConstant
	kindNode
)

// operand is the result of evaluating an expression.
type operand struct {
	kind  operandKind
	units units.Units

	// kindConstant
	constant float64

	// kindNode
	node ir.Node
	typ  value.Type
}

func constant(v float64, u units.Units) operand {
	return operand{kind: kindConstant, constant: v, units: u}
}

func nodeOperand(n ir.Node, u units.Units) operand {
	return operand{kind: kindNode, node: n, units: u, typ: n.Outputs()[0]}
}

func (o operand) describe() string {
	switch o.kind {
	case kindVoid:
		return "statement"
	case kindConstant:
		return fmt.Sprintf("constant (%v)", o.units)
	case kindNode:
		return fmt.Sprintf("%v (%v)", o.typ, o.units)
	}
	return "unknown"
}

type evaluator struct {
	env  map[string]operand
	prog *ir.Program
}

// Evaluate checks a parsed program and builds its node graph. The last
// top-level form is the program's result and must be a volt buffer; every
// earlier form must be a definition.
func Evaluate(program []ast.Node, params []Parameter) (*ir.Program, error) {
	e := &evaluator{
		env: make(map[string]operand),
		prog: &ir.Program{
			ParameterCount: len(params),
			Variables:      make(map[string]ir.Node),
		},
	}
	for i, p := range params {
		op := ir.ParamScalar
		if p.Type == value.TypeBuffer {
			op = ir.ParamBuffer
		}
		def, err := ir.NewValue(op, []int{i})
		if err != nil {
			return nil, err
		}
		e.prog.Variables[p.Name] = def
		e.env[p.Name] = nodeOperand(&ir.VariableNode{Name: p.Name, Type: p.Type}, p.Units)
	}

	if len(program) == 0 {
		return nil, &EvaluationError{Message: "empty program"}
	}
	for _, form := range program[:len(program)-1] {
		v, err := e.eval(form)
		if err != nil {
			return nil, err
		}
		if v.kind != kindVoid {
			return nil, errorf(form, "value is not used; only the last form may produce a result")
		}
	}

	last := program[len(program)-1]
	v, err := e.eval(last)
	if err != nil {
		return nil, err
	}
	if v.kind != kindNode || v.typ != value.TypeBuffer || v.units != units.Volt {
		return nil, errorf(last, "program result must be a volt buffer, got %s", v.describe())
	}
	e.prog.Result = v.node
	return e.prog, nil
}

func (e *evaluator) eval(n ast.Node) (operand, error) {
	switch n := n.(type) {
	case *ast.Number:
		return e.evalNumber(n)
	case *ast.Symbol:
		v, ok := e.env[n.Name]
		if !ok {
			return operand{}, errorf(n, "undefined variable %q", n.Name)
		}
		return v, nil
	case *ast.List:
		return e.evalList(n)
	}
	return operand{}, errorf(n, "unknown syntax node")
}

func (e *evaluator) evalNumber(n *ast.Number) (operand, error) {
	u, ok := units.FromSuffix(n.Literal.Unit)
	if !ok {
		return operand{}, errorf(n, "unknown unit %q", n.Literal.Unit)
	}
	v, err := n.Literal.Value()
	if err != nil || math.IsInf(v, 0) {
		return operand{}, errorf(n, "invalid number %q", n.Literal.String())
	}
	return constant(v, u), nil
}

func (e *evaluator) evalList(n *ast.List) (operand, error) {
	name, ok := n.Head()
	if !ok {
		if len(n.Items) == 0 {
			return operand{}, errorf(n, "empty list")
		}
		return operand{}, errorf(n.Items[0], "expected function name")
	}
	args := n.Items[1:]

	switch name {
	case "define":
		return e.evalDefine(n, args)
	case "envelope":
		return e.evalEnvelope(n, args)
	}

	fn, ok := builtins[name]
	if !ok {
		return operand{}, errorf(n.Items[0], "undefined function %q", name)
	}
	if !fn.arity.accepts(len(args)) {
		return operand{}, errorf(n, "%s takes %s, got %d", name, fn.arity, len(args))
	}
	vals := make([]operand, len(args))
	for i, arg := range args {
		v, err := e.eval(arg)
		if err != nil {
			return operand{}, err
		}
		if v.kind == kindVoid {
			return operand{}, errorf(arg, "%s argument %d has no value", name, i+1)
		}
		vals[i] = v
	}
	return fn.eval(e, &call{list: n, args: args, vals: vals})
}

func (e *evaluator) evalDefine(n *ast.List, args []ast.Node) (operand, error) {
	if len(args) != 2 {
		return operand{}, errorf(n, "define takes 2 arguments, got %d", len(args))
	}
	sym, ok := args[0].(*ast.Symbol)
	if !ok {
		return operand{}, errorf(args[0], "define expects a variable name")
	}
	if _, exists := e.env[sym.Name]; exists {
		return operand{}, errorf(sym, "redefinition of %q", sym.Name)
	}
	if _, exists := builtins[sym.Name]; exists || sym.Name == "define" || sym.Name == "envelope" {
		return operand{}, errorf(sym, "cannot define %q, it is a built-in function", sym.Name)
	}
	v, err := e.eval(args[1])
	if err != nil {
		return operand{}, err
	}
	switch v.kind {
	case kindVoid:
		return operand{}, errorf(args[1], "define of %q has no value", sym.Name)
	case kindConstant:
		e.env[sym.Name] = v
	case kindNode:
		e.prog.Variables[sym.Name] = v.node
		e.env[sym.Name] = nodeOperand(&ir.VariableNode{Name: sym.Name, Type: v.typ}, v.units)
	}
	return operand{kind: kindVoid}, nil
}

// newNode builds a node and reports construction failures at n.
func newNode(n ast.Node, op *ir.Operator, params []int, inputs ...ir.Node) (ir.Node, error) {
	node, err := ir.NewValue(op, params, inputs...)
	if err != nil {
		return nil, errorf(n, "%v", err)
	}
	return node, nil
}
