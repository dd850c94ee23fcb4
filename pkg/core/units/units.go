// Package units implements the static units system of the sound language.
package units

import (
	"fmt"
	"strings"
)

// Units is the closed set of units a value may carry.
type Units uint8

const (
	None Units = iota
	Volt
	Hertz
	Second
	Phase
	Decibel
)

var names = [...]string{
	None:    "none",
	Volt:    "volt",
	Hertz:   "Hz",
	Second:  "s",
	Phase:   "phase",
	Decibel: "dB",
}

func (u Units) String() string {
	if int(u) < len(names) {
		return names[u]
	}
	return fmt.Sprintf("Units(%d)", uint8(u))
}

// Vector holds exponents over the base dimensions second, volt and phase.
type Vector [3]int

var vectors = [...]Vector{
	None:    {0, 0, 0},
	Volt:    {0, 1, 0},
	Hertz:   {-1, 0, 0},
	Second:  {1, 0, 0},
	Phase:   {0, 0, 1},
	Decibel: {0, 0, 0},
}

// Vector returns the exponent vector of u.
func (u Units) Vector() Vector {
	return vectors[u]
}

// FromSuffix maps a numeric literal unit suffix to units.
func FromSuffix(s string) (Units, bool) {
	switch s {
	case "":
		return None, true
	case "Hz":
		return Hertz, true
	case "s":
		return Second, true
	case "dB":
		return Decibel, true
	}
	return None, false
}

// Error reports a units combination with no matching unit.
type Error struct {
	Operands []Units
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Operands))
	for i, u := range e.Operands {
		parts[i] = u.String()
	}
	return fmt.Sprintf("cannot multiply units (%s)", strings.Join(parts, " * "))
}

// Multiply returns the units of a product. Decibel values only pass through
// a product on their own; they never combine with other operands.
func Multiply(operands []Units) (Units, error) {
	switch len(operands) {
	case 0:
		return None, nil
	case 1:
		return operands[0], nil
	}
	var sum Vector
	for _, u := range operands {
		if u == Decibel {
			return None, &Error{Operands: operands}
		}
		v := u.Vector()
		for i := range sum {
			sum[i] += v[i]
		}
	}
	for _, u := range []Units{None, Volt, Hertz, Second, Phase} {
		if vectors[u] == sum {
			return u, nil
		}
	}
	return None, &Error{Operands: operands}
}
