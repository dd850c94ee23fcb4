// Package ir is the processing-node graph produced by the evaluator and
// consumed by the code generator.
package ir

import (
	"fmt"
	"strings"

	"github.com/agenthands/nsound/pkg/compiler/bytecode"
	"github.com/agenthands/nsound/pkg/core/value"
)

// Operator is static metadata for one kind of processing node.
type Operator struct {
	Name    string
	Opcode  bytecode.Opcode
	Params  int
	Inputs  func(params []int) []value.Type
	Outputs []value.Type
}

// Emit writes the operator's opcode and parameters.
func (op *Operator) Emit(w *bytecode.Writer, params []int) error {
	return w.Emit(op.Opcode, params...)
}

// Node is a value node or a variable reference.
type Node interface {
	Outputs() []value.Type
	node()
}

// ValueNode applies an operator to integer parameters and input nodes.
type ValueNode struct {
	Op     *Operator
	Params []int
	Inputs []Node
}

func (n *ValueNode) Outputs() []value.Type { return n.Op.Outputs }
func (n *ValueNode) node()                 {}

// VariableNode refers to a named entry in Program.Variables.
type VariableNode struct {
	Name string
	Type value.Type
}

func (n *VariableNode) Outputs() []value.Type { return []value.Type{n.Type} }
func (n *VariableNode) node()                 {}

// TypeError reports a node whose inputs do not match its operator.
type TypeError struct {
	Op   string
	Want []value.Type
	Got  []value.Type
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: inputs (%s) do not match signature (%s)", e.Op, typeList(e.Got), typeList(e.Want))
}

func typeList(ts []value.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

// NewValue builds a value node, checking parameter count and input types.
func NewValue(op *Operator, params []int, inputs ...Node) (*ValueNode, error) {
	if len(params) != op.Params {
		return nil, fmt.Errorf("%s: takes %d parameters, got %d", op.Name, op.Params, len(params))
	}
	want := op.Inputs(params)
	var got []value.Type
	for _, in := range inputs {
		got = append(got, in.Outputs()...)
	}
	if !sameTypes(want, got) {
		return nil, &TypeError{Op: op.Name, Want: want, Got: got}
	}
	return &ValueNode{Op: op, Params: params, Inputs: inputs}, nil
}

func sameTypes(a, b []value.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Program is an evaluated sound program.
type Program struct {
	ParameterCount int
	Variables      map[string]Node
	Result         Node
	// Tail is the time in seconds the sound continues after the gate.
	Tail float64
}
