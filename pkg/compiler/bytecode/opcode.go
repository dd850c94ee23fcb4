// Package bytecode defines the sound VM's opcode table and reads and writes
// instruction streams.
package bytecode

import "fmt"

// Opcode is a VM operation code. Codes are positions in Table.
type Opcode uint8

const (
	OpDeref Opcode = iota
	OpDerefCopy
	OpDefine
	OpNumLin
	OpNumExp
	OpNumNote
	OpNumFreq
	OpToBuffer
	OpOscillator
	OpConstOscillator
	OpSawtooth
	OpSine
	OpSquare
	OpTriangle
	OpNoise
	OpHighPass
	OpStateVariableFilter
	OpSaturate
	OpRectify
	OpEnvStart
	OpEnvSet
	OpEnvLin
	OpEnvExp
	OpEnvDelay
	OpEnvGate
	OpEnvEnd
	OpMultiply
	OpScale
	OpGain
	OpMix
	OpPhaseMod
	OpFrequency

	numOpcodes
)

// Info describes an opcode.
type Info struct {
	Name   string
	Params int
}

// Table is the canonical operation list. The VM keeps its own dispatch table
// in the same order; sound.CheckOpcodes verifies the two agree.
var Table = [numOpcodes]Info{
	OpDeref:               {"deref", 1},
	OpDerefCopy:           {"derefCopy", 1},
	OpDefine:              {"define", 1},
	OpNumLin:              {"numLin", 1},
	OpNumExp:              {"numExp", 1},
	OpNumNote:             {"numNote", 1},
	OpNumFreq:             {"numFreq", 1},
	OpToBuffer:            {"toBuffer", 0},
	OpOscillator:          {"oscillator", 0},
	OpConstOscillator:     {"constOscillator", 0},
	OpSawtooth:            {"sawtooth", 0},
	OpSine:                {"sine", 0},
	OpSquare:              {"square", 0},
	OpTriangle:            {"triangle", 0},
	OpNoise:               {"noise", 0},
	OpHighPass:            {"highPass", 0},
	OpStateVariableFilter: {"stateVariableFilter", 1},
	OpSaturate:            {"saturate", 0},
	OpRectify:             {"rectify", 0},
	OpEnvStart:            {"envStart", 0},
	OpEnvSet:              {"envSet", 0},
	OpEnvLin:              {"envLin", 0},
	OpEnvExp:              {"envExp", 0},
	OpEnvDelay:            {"envDelay", 0},
	OpEnvGate:             {"envGate", 0},
	OpEnvEnd:              {"envEnd", 0},
	OpMultiply:            {"multiply", 0},
	OpScale:               {"scale", 0},
	OpGain:                {"gain", 1},
	OpMix:                 {"mix", 1},
	OpPhaseMod:            {"phaseMod", 1},
	OpFrequency:           {"frequency", 0},
}

// Count is the number of opcodes.
const Count = int(numOpcodes)

func (op Opcode) String() string {
	if int(op) < Count {
		return Table[op].Name
	}
	return fmt.Sprintf("Opcode(%d)", uint8(op))
}

// Params returns the number of parameter bytes following op.
func (op Opcode) Params() int {
	return Table[op].Params
}

// Valid reports whether op is in the table.
func (op Opcode) Valid() bool {
	return int(op) < Count
}

// Names returns the opcode names in code order.
func Names() []string {
	names := make([]string, Count)
	for i, info := range Table {
		names[i] = info.Name
	}
	return names
}

// Lookup returns the opcode with the given name.
func Lookup(name string) (Opcode, bool) {
	for i, info := range Table {
		if info.Name == name {
			return Opcode(i), true
		}
	}
	return 0, false
}
