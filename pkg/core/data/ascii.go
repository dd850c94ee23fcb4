package data

import "fmt"

// alphabet is printable ASCII without space, quote and backslash, so encoded
// programs can sit unescaped inside a single-quoted string literal.
var (
	alphabet [Max + 1]byte
	reverse  [128]int8
)

func init() {
	for i := range reverse {
		reverse[i] = -1
	}
	n := 0
	for c := byte('!'); c <= '~'; c++ {
		switch c {
		case '\'', '\\':
			continue
		}
		alphabet[n] = c
		reverse[c] = int8(n)
		n++
	}
	if n != Max+1 {
		panic(fmt.Sprintf("data: alphabet has %d symbols, want %d", n, Max+1))
	}
}

// Alphabet returns the symbols used by EncodeString, in code order.
func Alphabet() string {
	return string(alphabet[:])
}

// EncodeString maps program bytes to a string over the printable alphabet.
func EncodeString(b []byte) (string, error) {
	out := make([]byte, len(b))
	for i, x := range b {
		if x > Max {
			return "", fmt.Errorf("data: byte %d at offset %d out of range", x, i)
		}
		out[i] = alphabet[x]
	}
	return string(out), nil
}

// DecodeString is the inverse of EncodeString.
func DecodeString(s string) ([]byte, error) {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 128 || reverse[c] < 0 {
			return nil, fmt.Errorf("data: invalid character %q at offset %d", c, i)
		}
		out[i] = byte(reverse[c])
	}
	return out, nil
}
