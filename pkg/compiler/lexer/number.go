package lexer

import (
	"regexp"
	"strconv"
	"strings"
)

var numberRe = regexp.MustCompile(`^([-+]?(\d+(\.\d*)?|\.\d+))(_?([a-zA-Z]+))?$`)

// Prefixes maps SI prefixes to their multipliers.
var Prefixes = map[string]float64{
	"u": 1e-6,
	"m": 1e-3,
	"k": 1e3,
}

// Literal is a numeric literal split into its parts.
type Literal struct {
	Digits    string // numeric text, e.g. "-1.5"
	Prefix    string // SI prefix or ""
	Unit      string // unit suffix or ""
	Decimal   bool   // digits contain a decimal point
	Separator bool   // an underscore sits between digits and suffix
}

// SplitNumber splits a numeric literal into digits, SI prefix and unit.
func SplitNumber(text string) (Literal, bool) {
	m := numberRe.FindStringSubmatch(text)
	if m == nil {
		return Literal{}, false
	}
	lit := Literal{
		Digits:    m[1],
		Decimal:   strings.Contains(m[1], "."),
		Separator: strings.HasPrefix(m[4], "_"),
	}
	suffix := m[5]
	if suffix != "" {
		if _, ok := Prefixes[suffix[:1]]; ok {
			lit.Prefix = suffix[:1]
			suffix = suffix[1:]
		}
		lit.Unit = suffix
	}
	return lit, true
}

// Value returns the literal's numeric value with the SI prefix applied.
func (l Literal) Value() (float64, error) {
	v, err := strconv.ParseFloat(l.Digits, 64)
	if err != nil {
		return 0, err
	}
	if l.Prefix != "" {
		v *= Prefixes[l.Prefix]
	}
	return v, nil
}

// String returns the literal's source text.
func (l Literal) String() string {
	if l.Separator {
		return l.Digits + "_" + l.Prefix + l.Unit
	}
	return l.Digits + l.Prefix + l.Unit
}
