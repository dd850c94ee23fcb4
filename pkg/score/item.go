// Package score compiles the line-oriented score language into compact
// bytecode and schedules it into a mixed sample buffer.
package score

import (
	"fmt"
	"strings"
)

// Kind tags a score item.
type Kind uint8

const (
	KindTrack Kind = iota
	KindPattern
	KindValues
	KindSkip
	KindEmit
	KindTranspose // hard transposition, applied while encoding values
	KindShift     // soft transposition, applied at render time
	KindTempo
	KindInvert
	KindReverse
)

var kindNames = [...]string{
	KindTrack:     "track",
	KindPattern:   "pattern",
	KindValues:    "values",
	KindSkip:      "skip",
	KindEmit:      "emit",
	KindTranspose: "transpose",
	KindShift:     "shift",
	KindTempo:     "tempo",
	KindInvert:    "invert",
	KindReverse:   "reverse",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Item is one parsed score directive.
type Item struct {
	Kind Kind
	Line int

	// KindTrack
	Sound string
	Level float64

	// KindTempo, KindTranspose, KindShift, KindInvert, KindReverse (0 or 1)
	Value int

	// KindPattern, KindSkip
	Notes []Note

	// KindValues
	Values []int
}

// Base is a note's undotted length.
type Base uint8

const (
	Whole Base = iota
	Half
	Quarter
	Eighth
	Sixteenth
)

// Modifier scales a note's length.
type Modifier uint8

const (
	Plain Modifier = iota
	Dotted
	Triplet
)

const (
	// TicksPerSixteenth is the tempo resolution: a tick is a sixth of a
	// sixteenth note.
	TicksPerSixteenth = 6

	// maxSlot is the highest note slot in a pattern; slot 0 is a rest.
	maxSlot = 5

	// rewindCode marks a return to the start of the pattern.
	rewindCode = 90
)

// Note is one rhythm item.
type Note struct {
	Base     Base
	Modifier Modifier
	// Slot selects the value list the pitch comes from; 0 is a rest.
	Slot   int
	Rewind bool
}

// Ticks returns the length of n in ticks.
func (n Note) Ticks() int {
	t := TicksPerSixteenth << (Sixteenth - n.Base)
	switch n.Modifier {
	case Dotted:
		return t * 3 / 2
	case Triplet:
		return t * 2 / 3
	}
	return t
}

// Code packs n into one byte.
func (n Note) Code() byte {
	if n.Rewind {
		return rewindCode
	}
	return byte(n.Slot + (maxSlot+1)*(int(n.Modifier)+3*int(n.Base)))
}

// DecodeNote is the inverse of Note.Code.
func DecodeNote(c byte) (Note, error) {
	if c == rewindCode {
		return Note{Rewind: true}, nil
	}
	if c > rewindCode {
		return Note{}, fmt.Errorf("invalid note code %d", c)
	}
	x := int(c)
	n := Note{Slot: x % (maxSlot + 1)}
	x /= maxSlot + 1
	n.Modifier = Modifier(x % 3)
	n.Base = Base(x / 3)
	if n.Base > Sixteenth {
		return Note{}, fmt.Errorf("invalid note code %d", c)
	}
	return n, nil
}

const baseLetters = "whqes"

func (n Note) String() string {
	if n.Rewind {
		return "<"
	}
	var sb strings.Builder
	sb.WriteByte(baseLetters[n.Base])
	switch n.Modifier {
	case Dotted:
		sb.WriteByte('.')
	case Triplet:
		sb.WriteByte('t')
	}
	if n.Slot == 0 {
		sb.WriteByte('r')
	} else {
		sb.WriteByte(byte('0' + n.Slot))
	}
	return sb.String()
}

// ParseNote parses a rhythm item such as "q1", "e.3", "st2", "hr" or "<".
func ParseNote(s string) (Note, error) {
	if s == "<" {
		return Note{Rewind: true}, nil
	}
	if len(s) < 2 || len(s) > 3 {
		return Note{}, fmt.Errorf("invalid rhythm %q", s)
	}
	var n Note
	b := strings.IndexByte(baseLetters, s[0])
	if b < 0 {
		return Note{}, fmt.Errorf("invalid rhythm %q: unknown length %q", s, s[0])
	}
	n.Base = Base(b)
	rest := s[1:]
	if len(rest) == 2 {
		switch rest[0] {
		case '.':
			n.Modifier = Dotted
		case 't':
			n.Modifier = Triplet
		default:
			return Note{}, fmt.Errorf("invalid rhythm %q: unknown modifier %q", s, rest[0])
		}
		rest = rest[1:]
	}
	switch c := rest[0]; {
	case c == 'r':
		n.Slot = 0
	case c >= '1' && c <= '0'+maxSlot:
		n.Slot = int(c - '0')
	default:
		return Note{}, fmt.Errorf("invalid rhythm %q: slot must be 1-%d or r", s, maxSlot)
	}
	return n, nil
}
