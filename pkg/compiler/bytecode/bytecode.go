package bytecode

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/agenthands/nsound/pkg/core/data"
)

var (
	ErrParamRange = errors.New("bytecode: parameter out of range")
	ErrParamCount = errors.New("bytecode: wrong parameter count")
	ErrMalformed  = errors.New("bytecode: malformed instruction stream")
)

// Writer serializes instructions.
type Writer struct {
	buf []byte
}

// NewWriter returns a writer whose stream starts with the tail-length byte.
func NewWriter(tail int) (*Writer, error) {
	if tail < 0 || tail > 255 {
		return nil, errors.Wrapf(ErrParamRange, "tail length %d", tail)
	}
	return &Writer{buf: []byte{byte(tail)}}, nil
}

// Emit appends one instruction.
func (w *Writer) Emit(op Opcode, params ...int) error {
	if !op.Valid() {
		return errors.Wrapf(ErrMalformed, "emit unknown opcode %d", uint8(op))
	}
	if len(params) != op.Params() {
		return errors.Wrapf(ErrParamCount, "%v takes %d parameters, got %d", op, op.Params(), len(params))
	}
	for i, p := range params {
		if p < 0 || p > 255 {
			return errors.Wrapf(ErrParamRange, "%v parameter %d = %d", op, i, p)
		}
	}
	w.buf = append(w.buf, byte(op))
	for _, p := range params {
		w.buf = append(w.buf, byte(p))
	}
	return nil
}

// Bytes returns the serialized program.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Instruction is one decoded instruction.
type Instruction struct {
	Offset int
	Op     Opcode
	Params []int
}

// Decode reads a program back into its tail byte and instructions.
func Decode(code []byte) (tail int, instrs []Instruction, err error) {
	if len(code) == 0 {
		return 0, nil, errors.Wrap(ErrMalformed, "empty program")
	}
	tail = int(code[0])
	for pos := 1; pos < len(code); {
		op := Opcode(code[pos])
		if !op.Valid() {
			return 0, nil, errors.Wrapf(ErrMalformed, "unknown opcode %d at offset %d", code[pos], pos)
		}
		n := op.Params()
		if pos+1+n > len(code) {
			return 0, nil, errors.Wrapf(ErrMalformed, "%v at offset %d: parameters past end of program", op, pos)
		}
		params := make([]int, n)
		for i := range params {
			params[i] = int(code[pos+1+i])
		}
		instrs = append(instrs, Instruction{Offset: pos, Op: op, Params: params})
		pos += 1 + n
	}
	return tail, instrs, nil
}

// Disassemble renders a program as text, one instruction per line.
func Disassemble(code []byte) (string, error) {
	tail, instrs, err := Decode(code)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "tail %d ; %s\n", tail, formatSeconds(TailSeconds(tail)))
	for _, in := range instrs {
		sb.WriteString(in.Op.String())
		for _, p := range in.Params {
			fmt.Fprintf(&sb, " %d", p)
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// TailSeconds decodes the tail-length byte. Zero means no tail.
func TailSeconds(tail int) float64 {
	if tail == 0 {
		return 0
	}
	return data.DecodeTime(tail)
}

// EncodeTail encodes a tail duration, rounding up so buffers are never short.
func EncodeTail(seconds float64) (int, error) {
	if seconds <= 0 {
		return 0, nil
	}
	x := data.EncodeExponentialCeil(seconds)
	if x < 1 {
		x = 1
	}
	if x > data.Max {
		return 0, fmt.Errorf("envelope tail of %s is too long", formatSeconds(seconds))
	}
	return x, nil
}

func formatSeconds(s float64) string {
	if s < 1 {
		return fmt.Sprintf("%.1fms", s*1000)
	}
	return fmt.Sprintf("%.3fs", s)
}
