// Package emitter generates bytecode from an evaluated node graph.
package emitter

import (
	"github.com/pkg/errors"

	"github.com/agenthands/nsound/pkg/compiler/bytecode"
	"github.com/agenthands/nsound/pkg/compiler/ir"
	"github.com/agenthands/nsound/pkg/core/data"
	"github.com/agenthands/nsound/pkg/core/value"
)

// ErrInternal marks a malformed program graph. Valid evaluator output never
// produces it.
var ErrInternal = errors.New("emitter: internal error")

type variable struct {
	name string
	def  *ir.ValueNode
	typ  value.Type
	uses int

	inline    bool
	slot      int
	defined   bool
	defining  bool
	remaining int
}

type generator struct {
	prog *ir.Program
	w    *bytecode.Writer
	vars map[string]*variable
	// aliases maps a variable name to the variable its definition resolves to.
	aliases map[string]*variable
}

// EmitCode compiles a program into bytecode. Compiling the same program
// twice yields identical bytes.
func EmitCode(prog *ir.Program) ([]byte, error) {
	tail, err := bytecode.EncodeTail(prog.Tail)
	if err != nil {
		return nil, errors.Wrap(ErrInternal, err.Error())
	}
	w, err := bytecode.NewWriter(tail)
	if err != nil {
		return nil, errors.Wrap(ErrInternal, err.Error())
	}
	e := &generator{
		prog:    prog,
		w:       w,
		vars:    make(map[string]*variable),
		aliases: make(map[string]*variable),
	}
	if prog.Result == nil {
		return nil, errors.Wrap(ErrInternal, "program has no result")
	}
	if err := e.scan(prog.Result); err != nil {
		return nil, err
	}
	e.allocate()
	if err := e.emit(prog.Result); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// resolve follows alias chains to the variable holding a value node.
func (e *generator) resolve(name string) (*variable, error) {
	if v, ok := e.aliases[name]; ok {
		return v, nil
	}
	seen := map[string]bool{}
	cur := name
	for {
		if seen[cur] {
			return nil, errors.Wrapf(ErrInternal, "variable %q is defined in terms of itself", name)
		}
		seen[cur] = true
		def, ok := e.prog.Variables[cur]
		if !ok {
			return nil, errors.Wrapf(ErrInternal, "undefined variable %q", cur)
		}
		if ref, ok := def.(*ir.VariableNode); ok {
			cur = ref.Name
			continue
		}
		if n := len(def.Outputs()); n != 1 {
			return nil, errors.Wrapf(ErrInternal, "variable %q has %d outputs", cur, n)
		}
		vn, ok := def.(*ir.ValueNode)
		if !ok {
			return nil, errors.Wrapf(ErrInternal, "variable %q has unknown definition %T", cur, def)
		}
		v := e.vars[cur]
		if v == nil {
			v = &variable{name: cur, def: vn, typ: vn.Outputs()[0]}
			e.vars[cur] = v
		}
		e.aliases[name] = v
		return v, nil
	}
}

// scan counts the uses of every variable reachable from n.
func (e *generator) scan(n ir.Node) error {
	switch n := n.(type) {
	case *ir.ValueNode:
		for _, in := range n.Inputs {
			if err := e.scan(in); err != nil {
				return err
			}
		}
	case *ir.VariableNode:
		v, err := e.resolve(n.Name)
		if err != nil {
			return err
		}
		v.uses++
		if v.uses == 1 {
			return e.scan(v.def)
		}
	default:
		return errors.Wrapf(ErrInternal, "unknown node %T", n)
	}
	return nil
}

// allocate inlines parameter references and single-use variables and
// assigns slots to the rest, in first-use order.
func (e *generator) allocate() {
	next := e.prog.ParameterCount
	var visit func(n ir.Node)
	seen := map[*variable]bool{}
	visit = func(n ir.Node) {
		switch n := n.(type) {
		case *ir.ValueNode:
			for _, in := range n.Inputs {
				visit(in)
			}
		case *ir.VariableNode:
			v := e.aliases[n.Name]
			if seen[v] {
				return
			}
			seen[v] = true
			visit(v.def)
			v.remaining = v.uses
			if v.def.Op == ir.ParamScalar || v.def.Op == ir.ParamBuffer || v.uses == 1 {
				v.inline = true
				return
			}
			v.slot = next
			next++
		}
	}
	visit(e.prog.Result)
}

func (e *generator) emit(n ir.Node) error {
	switch n := n.(type) {
	case *ir.ValueNode:
		for _, in := range n.Inputs {
			if err := e.emit(in); err != nil {
				return err
			}
		}
		for _, p := range n.Params {
			if !data.InRange(p) {
				return errors.Wrapf(ErrInternal, "%s parameter %d out of range", n.Op.Name, p)
			}
		}
		if err := n.Op.Emit(e.w, n.Params); err != nil {
			return errors.Wrap(ErrInternal, err.Error())
		}
		return nil
	case *ir.VariableNode:
		return e.emitVariable(e.aliases[n.Name])
	}
	return errors.Wrapf(ErrInternal, "unknown node %T", n)
}

func (e *generator) emitVariable(v *variable) error {
	if v.inline {
		return e.emit(v.def)
	}
	if v.defining {
		return errors.Wrapf(ErrInternal, "variable %q referenced before its slot is defined", v.name)
	}
	if !v.defined {
		v.defining = true
		if err := e.emit(v.def); err != nil {
			return err
		}
		v.defining = false
		v.defined = true
		if err := e.instr(bytecode.OpDefine, v.slot); err != nil {
			return err
		}
	}
	v.remaining--
	if v.typ == value.TypeBuffer && v.remaining > 0 {
		return e.instr(bytecode.OpDerefCopy, v.slot)
	}
	return e.instr(bytecode.OpDeref, v.slot)
}

func (e *generator) instr(op bytecode.Opcode, slot int) error {
	if !data.InRange(slot) {
		return errors.Wrapf(ErrInternal, "slot %d out of range", slot)
	}
	if err := e.w.Emit(op, slot); err != nil {
		return errors.Wrap(ErrInternal, err.Error())
	}
	return nil
}
