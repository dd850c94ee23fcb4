// Package data implements the quantized numeric encodings shared by the
// sound compiler, the score compiler and the VM.
//
// Every encoding maps a real value onto the integer range [0, Max]. Encoders
// return -1 when a value cannot be represented at all (for example a
// non-positive value given to a logarithmic encoding); they may return codes
// outside [0, Max] for values past the ends of the range, which callers clamp
// with ToDataClamp before storing.
package data

import "math"

// Max is the largest value a program byte may hold.
const Max = 91

const (
	// Exponential encoding: 0.9 dB per step, code 69 is unity gain.
	expUnity  = 69
	expStepDB = 0.9

	// Note encoding: code 57 is A4 (440 Hz), so 48 is middle C.
	noteA4     = 57
	noteA4Freq = 440.0

	// Linear encoding: code 45 is zero, 0 is -1 and 90 is +1.
	linZero = 45

	// Frequency encoding: 630 * 32^linear.
	freqCenter = 630.0
	freqRange  = 32.0
)

func invalid(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// ToDataClamp clamps an encoded value into [0, Max]. The -1 sentinel is
// clamped to 0.
func ToDataClamp(x int) int {
	if x < 0 {
		return 0
	}
	if x > Max {
		return Max
	}
	return x
}

// InRange reports whether x is a storable code.
func InRange(x int) bool {
	return x >= 0 && x <= Max
}

// EncodeLinear maps [-1, 1] onto [0, 90]. Code 91 decodes slightly above 1.
func EncodeLinear(v float64) int {
	if invalid(v) {
		return -1
	}
	return round(v*linZero + linZero)
}

// DecodeLinear is the inverse of EncodeLinear.
func DecodeLinear(x int) float64 {
	return float64(x-linZero) / linZero
}

// EncodeExponential maps a positive ratio onto a logarithmic scale with
// 0.9 dB steps.
func EncodeExponential(v float64) int {
	if invalid(v) || v <= 0 {
		return -1
	}
	return round(expUnity + 20*math.Log10(v)/expStepDB)
}

// EncodeExponentialCeil returns the smallest code whose decoded value is not
// less than v. Zero and negative values encode as 0.
func EncodeExponentialCeil(v float64) int {
	if invalid(v) {
		return -1
	}
	if v <= 0 {
		return 0
	}
	x := int(math.Ceil(expUnity + 20*math.Log10(v)/expStepDB))
	for x > 0 && DecodeExponential(x-1) >= v {
		x--
	}
	for DecodeExponential(x) < v {
		x++
	}
	return x
}

// DecodeExponential is the inverse of EncodeExponential.
func DecodeExponential(x int) float64 {
	return math.Pow(10, float64(x-expUnity)*expStepDB/20)
}

// EncodeDecibel encodes a gain given in decibels on the exponential scale.
func EncodeDecibel(db float64) int {
	if invalid(db) {
		return -1
	}
	return round(expUnity + db/expStepDB)
}

// DecodeDecibel returns the gain of an exponential code in decibels.
func DecodeDecibel(x int) float64 {
	return float64(x-expUnity) * expStepDB
}

// EncodeTime encodes a duration in seconds.
func EncodeTime(seconds float64) int {
	return EncodeExponential(seconds)
}

// DecodeTime decodes a duration in seconds.
func DecodeTime(x int) float64 {
	return DecodeExponential(x)
}

// EncodeNote maps a frequency in Hz to the nearest equal-tempered note.
func EncodeNote(freq float64) int {
	if invalid(freq) || freq <= 0 {
		return -1
	}
	return round(noteA4 + 12*math.Log2(freq/noteA4Freq))
}

// DecodeNote returns the frequency of a note code in Hz.
func DecodeNote(x int) float64 {
	return NoteFrequency(float64(x))
}

// NoteFrequency returns the frequency of a fractional note number, where 48
// is middle C. Note numbers are not limited to [0, Max].
func NoteFrequency(note float64) float64 {
	return noteA4Freq * math.Pow(2, (note-noteA4)/12)
}

// EncodeFrequency maps a filter corner frequency onto [0, Max].
func EncodeFrequency(freq float64) int {
	if invalid(freq) || freq <= 0 {
		return -1
	}
	return EncodeLinear(math.Log(freq/freqCenter) / math.Log(freqRange))
}

// DecodeFrequency is the inverse of EncodeFrequency.
func DecodeFrequency(x int) float64 {
	return LinearToFrequency(DecodeLinear(x))
}

// LinearToFrequency converts a linear control value to Hz.
func LinearToFrequency(v float64) float64 {
	return freqCenter * math.Pow(freqRange, v)
}
