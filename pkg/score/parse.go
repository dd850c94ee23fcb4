package score

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/agenthands/nsound/pkg/compiler/lexer"
	"github.com/agenthands/nsound/pkg/core/data"
)

// ScoreError is a source error in a score, reported by line.
type ScoreError struct {
	Line    int
	Message string
}

func (e *ScoreError) Error() string {
	return fmt.Sprintf("score error at line %d: %s", e.Line, e.Message)
}

// Locate renders the error as line:column: message.
func (e *ScoreError) Locate([]byte) string {
	return fmt.Sprintf("%d:1: %s", e.Line, e.Message)
}

func errorf(line int, format string, args ...any) error {
	return &ScoreError{Line: line, Message: fmt.Sprintf(format, args...)}
}

// Score is a parsed score.
type Score struct {
	Items []Item
}

// ParseScore parses score source text. Only the syntax of each line is
// checked here; ordering rules are checked by Emit.
func ParseScore(src []byte) (*Score, error) {
	s := &Score{}
	sc := bufio.NewScanner(bytes.NewReader(src))
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		item, err := parseItem(line, fields[0], fields[1:])
		if err != nil {
			return nil, err
		}
		s.Items = append(s.Items, item)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func parseItem(line int, directive string, args []string) (Item, error) {
	item := Item{Line: line}
	want := func(min, max int) error {
		if len(args) < min || len(args) > max {
			if min == max {
				return errorf(line, "%s takes %d arguments, got %d", directive, min, len(args))
			}
			return errorf(line, "%s takes %d to %d arguments, got %d", directive, min, max, len(args))
		}
		return nil
	}

	var err error
	switch directive {
	case "track":
		item.Kind = KindTrack
		if err := want(1, 2); err != nil {
			return item, err
		}
		item.Sound = args[0]
		item.Level = 1
		if len(args) == 2 {
			if item.Level, err = parseLevel(args[1]); err != nil {
				return item, errorf(line, "%v", err)
			}
		}
	case "tempo":
		item.Kind = KindTempo
		if err := want(1, 1); err != nil {
			return item, err
		}
		item.Value, err = strconv.Atoi(args[0])
	case "transpose":
		item.Kind = KindTranspose
		if err := want(1, 1); err != nil {
			return item, err
		}
		item.Value, err = strconv.Atoi(args[0])
	case "shift":
		item.Kind = KindShift
		if err := want(1, 1); err != nil {
			return item, err
		}
		item.Value, err = strconv.Atoi(args[0])
	case "invert":
		item.Kind = KindInvert
		if err := want(1, 1); err != nil {
			return item, err
		}
		item.Value, err = strconv.Atoi(args[0])
	case "reverse":
		item.Kind = KindReverse
		if err := want(1, 1); err != nil {
			return item, err
		}
		switch args[0] {
		case "on":
			item.Value = 1
		case "off":
			item.Value = 0
		default:
			return item, errorf(line, "reverse takes on or off, got %q", args[0])
		}
	case "pattern", "skip":
		item.Kind = KindPattern
		if directive == "skip" {
			item.Kind = KindSkip
		}
		if err := want(1, 1<<16); err != nil {
			return item, err
		}
		for _, a := range args {
			n, err := ParseNote(a)
			if err != nil {
				return item, errorf(line, "%v", err)
			}
			if item.Kind == KindSkip && (n.Rewind || n.Slot != 0) {
				return item, errorf(line, "skip takes lengths without slots, such as qr")
			}
			item.Notes = append(item.Notes, n)
		}
	case "values":
		item.Kind = KindValues
		if err := want(1, 1<<16); err != nil {
			return item, err
		}
		for _, a := range args {
			v, err := ParsePitch(a)
			if err != nil {
				return item, errorf(line, "%v", err)
			}
			item.Values = append(item.Values, v)
		}
	case "emit":
		item.Kind = KindEmit
		if err := want(0, 0); err != nil {
			return item, err
		}
	default:
		return item, errorf(line, "unknown directive %q", directive)
	}
	if err != nil {
		return item, errorf(line, "%s: invalid number %q", directive, args[0])
	}
	return item, nil
}

// parseLevel reads a track level given as a ratio or in dB.
func parseLevel(s string) (float64, error) {
	lit, ok := lexer.SplitNumber(s)
	if !ok || lit.Prefix != "" || (lit.Unit != "" && lit.Unit != "dB") {
		return 0, fmt.Errorf("invalid level %q", s)
	}
	v, err := lit.Value()
	if err != nil {
		return 0, fmt.Errorf("invalid level %q", s)
	}
	if lit.Unit == "dB" {
		v = data.DecodeExponential(data.EncodeDecibel(v))
	}
	if !data.InRange(data.EncodeExponential(v)) {
		return 0, fmt.Errorf("level %q is out of range", s)
	}
	return v, nil
}

var pitchClasses = map[byte]int{'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11}

// ParsePitch reads a note name such as c4, f#3 or bb2 (c4 is 48), or a
// plain integer.
func ParsePitch(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	lower := strings.ToLower(s)
	if lower == "" {
		return 0, fmt.Errorf("invalid pitch %q", s)
	}
	pc, ok := pitchClasses[lower[0]]
	if !ok {
		return 0, fmt.Errorf("invalid pitch %q", s)
	}
	rest := lower[1:]
	if rest != "" {
		switch rest[0] {
		case '#':
			pc++
			rest = rest[1:]
		case 'b':
			pc--
			rest = rest[1:]
		}
	}
	octave, err := strconv.Atoi(rest)
	if err != nil || octave < 0 {
		return 0, fmt.Errorf("invalid pitch %q", s)
	}
	return 12*octave + pc, nil
}
