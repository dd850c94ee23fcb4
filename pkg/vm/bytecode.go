package vm

import "github.com/agenthands/nsound/pkg/core/data"

// tailSeconds decodes the envelope tail stored in the first program byte.
// Zero means the program has no tail.
func tailSeconds(b byte) float64 {
	if b == 0 {
		return 0
	}
	return data.DecodeTime(int(b))
}

// param reads an unsigned parameter byte.
func param(p []byte, i int) int {
	return int(p[i])
}
