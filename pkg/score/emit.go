package score

import (
	"fmt"
	"strings"

	"github.com/agenthands/nsound/pkg/core/data"
)

// Opcode is a score instruction.
type Opcode uint8

const (
	OpTrack     Opcode = iota // sound, level
	OpTempo                   // (bpm-40)/2
	OpTranspose               // soft transposition + 45
	OpInvert                  // inversion steps
	OpReverse                 // 0 or 1
	OpSkip                    // note code
	OpEmit1                   // pattern chunk, then one value chunk per list
	OpEmit2
	OpEmit3
	OpEmit4
	OpEmit5

	numOpcodes
)

var opcodeNames = [numOpcodes]string{
	"track", "tempo", "transpose", "invert", "reverse", "skip",
	"emit1", "emit2", "emit3", "emit4", "emit5",
}

func (op Opcode) String() string {
	if op < numOpcodes {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", uint8(op))
}

// Params returns the number of parameter bytes following op.
func (op Opcode) Params() int {
	switch {
	case op == OpTrack:
		return 2
	case op >= OpEmit1 && op <= OpEmit5:
		return 2 + int(op-OpEmit1)
	}
	return 1
}

const (
	minTempo  = 40
	tempoStep = 2
	shiftBias = 45
)

// Program is a compiled score. Patterns and value lists live in Chunks,
// shared between tracks and deduplicated by content.
type Program struct {
	Code   []byte
	Chunks [][]byte
	Sounds []string
}

type compiler struct {
	prog   *Program
	chunks map[string]int
	sounds map[string]int

	tempo     bool
	track     bool
	transpose int

	// per-track state as the renderer will see it
	shift, invert, reverse int

	pattern      []byte
	patternSlots int
	values       [][]byte
	// valuesDone is set by emit so the next values line starts a new set.
	valuesDone bool
}

// Emit compiles the score. Ordering errors are reported as *ScoreError.
func (s *Score) Emit() (*Program, error) {
	c := &compiler{
		prog:   &Program{},
		chunks: make(map[string]int),
		sounds: make(map[string]int),
	}
	for i := range s.Items {
		if err := c.item(&s.Items[i]); err != nil {
			return nil, err
		}
	}
	return c.prog, nil
}

func (c *compiler) write(op Opcode, params ...int) {
	c.prog.Code = append(c.prog.Code, byte(op))
	for _, p := range params {
		c.prog.Code = append(c.prog.Code, byte(p))
	}
}

func (c *compiler) intern(line int, chunk []byte) (int, error) {
	if i, ok := c.chunks[string(chunk)]; ok {
		return i, nil
	}
	i := len(c.prog.Chunks)
	if i > data.Max {
		return 0, errorf(line, "too many distinct patterns and value lists (at most %d)", data.Max+1)
	}
	c.chunks[string(chunk)] = i
	c.prog.Chunks = append(c.prog.Chunks, chunk)
	return i, nil
}

func (c *compiler) needTrack(it *Item) error {
	if !c.track {
		return errorf(it.Line, "%s before track", it.Kind)
	}
	return nil
}

func (c *compiler) item(it *Item) error {
	switch it.Kind {
	case KindTempo:
		if it.Value < minTempo || it.Value > minTempo+tempoStep*data.Max || (it.Value-minTempo)%tempoStep != 0 {
			return errorf(it.Line, "tempo must be an even number from %d to %d", minTempo, minTempo+tempoStep*data.Max)
		}
		c.tempo = true
		c.write(OpTempo, (it.Value-minTempo)/tempoStep)

	case KindTrack:
		idx, ok := c.sounds[it.Sound]
		if !ok {
			idx = len(c.prog.Sounds)
			if idx > data.Max {
				return errorf(it.Line, "too many sounds (at most %d)", data.Max+1)
			}
			c.sounds[it.Sound] = idx
			c.prog.Sounds = append(c.prog.Sounds, it.Sound)
		}
		level := data.EncodeExponential(it.Level)
		if !data.InRange(level) {
			return errorf(it.Line, "level %g is out of range", it.Level)
		}
		c.write(OpTrack, idx, level)
		c.track = true
		c.shift, c.invert, c.reverse = 0, 0, 0
		c.pattern, c.patternSlots = nil, 0
		c.values, c.valuesDone = nil, false

	case KindTranspose:
		c.transpose = it.Value

	case KindShift:
		if err := c.needTrack(it); err != nil {
			return err
		}
		if !data.InRange(it.Value + shiftBias) {
			return errorf(it.Line, "shift must be from %d to %d", -shiftBias, data.Max-shiftBias)
		}
		if it.Value != c.shift {
			c.shift = it.Value
			c.write(OpTranspose, it.Value+shiftBias)
		}

	case KindInvert:
		if err := c.needTrack(it); err != nil {
			return err
		}
		if !data.InRange(it.Value) {
			return errorf(it.Line, "invert must be from 0 to %d", data.Max)
		}
		if it.Value != c.invert {
			c.invert = it.Value
			c.write(OpInvert, it.Value)
		}

	case KindReverse:
		if err := c.needTrack(it); err != nil {
			return err
		}
		if it.Value != c.reverse {
			c.reverse = it.Value
			c.write(OpReverse, it.Value)
		}

	case KindPattern:
		if err := c.needTrack(it); err != nil {
			return err
		}
		c.pattern = make([]byte, len(it.Notes))
		c.patternSlots = 0
		for i, n := range it.Notes {
			c.pattern[i] = n.Code()
			if n.Slot > c.patternSlots {
				c.patternSlots = n.Slot
			}
		}

	case KindValues:
		if err := c.needTrack(it); err != nil {
			return err
		}
		if c.pattern == nil {
			return errorf(it.Line, "values before pattern")
		}
		if c.valuesDone {
			c.values, c.valuesDone = nil, false
		}
		if len(c.values) == maxSlot {
			return errorf(it.Line, "at most %d value lists per emit", maxSlot)
		}
		chunk := make([]byte, len(it.Values))
		for i, v := range it.Values {
			x := v + c.transpose
			if !data.InRange(x) {
				return errorf(it.Line, "value %d transposed by %d is out of range", v, c.transpose)
			}
			chunk[i] = byte(x)
		}
		c.values = append(c.values, chunk)

	case KindSkip:
		if err := c.needTrack(it); err != nil {
			return err
		}
		for _, n := range it.Notes {
			c.write(OpSkip, int(n.Code()))
		}

	case KindEmit:
		if !c.tempo {
			return errorf(it.Line, "emit before tempo")
		}
		if err := c.needTrack(it); err != nil {
			return err
		}
		if c.pattern == nil {
			return errorf(it.Line, "emit before pattern")
		}
		if c.patternSlots > len(c.values) {
			return errorf(it.Line, "pattern uses slot %d but %d value lists are bound", c.patternSlots, len(c.values))
		}
		if len(c.values) == 0 {
			return errorf(it.Line, "emit without values")
		}
		p, err := c.intern(it.Line, c.pattern)
		if err != nil {
			return err
		}
		params := []int{p}
		for _, v := range c.values {
			i, err := c.intern(it.Line, v)
			if err != nil {
				return err
			}
			params = append(params, i)
		}
		c.write(OpEmit1+Opcode(len(c.values)-1), params...)
		c.valuesDone = true

	default:
		return errorf(it.Line, "unknown item %v", it.Kind)
	}
	return nil
}

// Disassemble renders a compiled score as text: the sound and chunk tables
// followed by one instruction per line.
func Disassemble(p *Program) (string, error) {
	var sb strings.Builder
	for i, s := range p.Sounds {
		fmt.Fprintf(&sb, "sound %d %s\n", i, s)
	}
	for i, ch := range p.Chunks {
		fmt.Fprintf(&sb, "chunk %d", i)
		for _, b := range ch {
			fmt.Fprintf(&sb, " %d", b)
		}
		sb.WriteByte('\n')
	}
	err := walk(p.Code, func(op Opcode, params []byte) error {
		sb.WriteString(op.String())
		for _, b := range params {
			fmt.Fprintf(&sb, " %d", b)
		}
		switch op {
		case OpTempo:
			fmt.Fprintf(&sb, " ; %d bpm", minTempo+tempoStep*int(params[0]))
		case OpTranspose:
			fmt.Fprintf(&sb, " ; %+d", int(params[0])-shiftBias)
		case OpTrack:
			if int(params[0]) < len(p.Sounds) {
				fmt.Fprintf(&sb, " ; %s", p.Sounds[params[0]])
			}
		}
		sb.WriteByte('\n')
		return nil
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// walk decodes a score's instruction stream.
func walk(code []byte, fn func(op Opcode, params []byte) error) error {
	for pos := 0; pos < len(code); {
		op := Opcode(code[pos])
		if op >= numOpcodes {
			return fmt.Errorf("score: unknown opcode %d at offset %d", code[pos], pos)
		}
		end := pos + 1 + op.Params()
		if end > len(code) {
			return fmt.Errorf("score: %v at offset %d: parameters past end of program", op, pos)
		}
		if err := fn(op, code[pos+1:end]); err != nil {
			return err
		}
		pos = end
	}
	return nil
}
