package vm

import (
	"math"

	"github.com/agenthands/nsound/pkg/core/data"
)

const twoPi = 2 * math.Pi

func frac(x float32) float32 {
	return x - float32(math.Floor(float64(x)))
}

// accumulate turns a per-sample frequency buffer into a phase in [0, 1).
func (m *Machine) accumulate(freq []float32) {
	inc := float32(1 / m.rate())
	var phase float32
	for i, f := range freq {
		freq[i] = phase
		phase = frac(phase + f*inc)
	}
}

func opOscillator(m *Machine, _ []byte) {
	b := m.popBuffer()
	m.accumulate(b)
	m.pushBuffer(b)
}

func opConstOscillator(m *Machine, _ []byte) {
	f := m.popScalar()
	b := m.buffer()
	for i := range b {
		b[i] = f
	}
	m.accumulate(b)
	m.pushBuffer(b)
}

func waveshape(m *Machine, fn func(p float32) float32) {
	b := m.popBuffer()
	for i, p := range b {
		b[i] = fn(frac(p))
	}
	m.pushBuffer(b)
}

func opSawtooth(m *Machine, _ []byte) {
	waveshape(m, func(p float32) float32 { return 2*p - 1 })
}

func opSine(m *Machine, _ []byte) {
	waveshape(m, func(p float32) float32 { return float32(math.Sin(twoPi * float64(p))) })
}

func opSquare(m *Machine, _ []byte) {
	waveshape(m, func(p float32) float32 {
		if p < 0.5 {
			return 1
		}
		return -1
	})
}

func opTriangle(m *Machine, _ []byte) {
	waveshape(m, func(p float32) float32 {
		return 4*float32(math.Abs(float64(p-0.5))) - 1
	})
}

// opNoise fills a buffer from a xorshift32 generator. The generator is
// reseeded on every run so output is reproducible.
func opNoise(m *Machine, _ []byte) {
	b := m.buffer()
	x := m.noise
	for i := range b {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		b[i] = float32(int32(x)) / (1 << 31)
	}
	m.noise = x
	m.pushBuffer(b)
}

// onePole returns the coefficient of a one-pole low-pass running at twice
// the sample rate.
func (m *Machine) onePole(freq float32) float32 {
	a := 1 - math.Exp(-twoPi*float64(freq)/(2*m.rate()))
	return float32(math.Max(0, math.Min(1, a)))
}

// opHighPass subtracts a 2x oversampled one-pole low-pass from the signal.
func opHighPass(m *Machine, _ []byte) {
	freq := m.popBuffer()
	x := m.popBuffer()
	var lp float32
	for i, in := range x {
		a := m.onePole(freq[i])
		lp += a * (in - lp)
		lp += a * (in - lp)
		x[i] = in - lp
	}
	m.pushBuffer(x)
}

// opStateVariableFilter is a Chamberlin state-variable filter, 2x
// oversampled. The parameter selects low-pass, high-pass or band-pass.
func opStateVariableFilter(m *Machine, p []byte) {
	mode := param(p, 0)
	if mode > 2 {
		fault("stateVariableFilter: unknown mode %d", mode)
	}
	q := m.popScalar()
	freq := m.popBuffer()
	x := m.popBuffer()

	damp := float32(2)
	if q > 0.5 {
		damp = 1 / q
	}
	var low, band, high float32
	for i, in := range x {
		f := 2 * math.Sin(math.Pi*math.Min(float64(freq[i]), m.rate())/(2*m.rate()))
		fc := float32(math.Max(0, math.Min(f, 1)))
		for n := 0; n < 2; n++ {
			low += fc * band
			high = in - low - damp*band
			band += fc * high
		}
		switch mode {
		case 0:
			x[i] = low
		case 1:
			x[i] = high
		default:
			x[i] = band
		}
	}
	m.pushBuffer(x)
}

func opSaturate(m *Machine, _ []byte) {
	b := m.popBuffer()
	for i, v := range b {
		b[i] = float32(math.Tanh(float64(v)))
	}
	m.pushBuffer(b)
}

func opRectify(m *Machine, _ []byte) {
	b := m.popBuffer()
	for i, v := range b {
		if v < 0 {
			b[i] = 0
		}
	}
	m.pushBuffer(b)
}

func opPhaseMod(m *Machine, p []byte) {
	g := float32(data.DecodeExponential(param(p, 0)))
	mod := m.popBuffer()
	phase := m.popBuffer()
	for i := range phase {
		phase[i] = frac(phase[i] + g*mod[i])
	}
	m.pushBuffer(phase)
}
