package vm

import "math"

// expRate is the number of time constants an exponential segment covers.
const expRate = 5

func (m *Machine) envBuffer() []float32 {
	if !m.env.active {
		fault("envelope segment outside envStart/envEnd")
	}
	return m.popBuffer()
}

// fill writes n samples from the cursor, clipped to the buffer.
func (m *Machine) fill(b []float32, n int, fn func(k int) float32) {
	start := m.env.pos
	for k := 0; k < n && start+k < len(b); k++ {
		b[start+k] = fn(k)
	}
	m.env.pos += n
}

func opEnvStart(m *Machine, _ []byte) {
	if m.env.active {
		fault("nested envStart")
	}
	m.env = envelope{active: true}
	m.pushBuffer(m.buffer())
}

func opEnvSet(m *Machine, _ []byte) {
	v := m.popScalar()
	b := m.envBuffer()
	m.env.value = v
	m.pushBuffer(b)
}

func opEnvLin(m *Machine, _ []byte) {
	target := m.popScalar()
	t := m.popScalar()
	b := m.envBuffer()
	n := m.samples(float64(t))
	start := m.env.value
	m.fill(b, n, func(k int) float32 {
		return start + (target-start)*float32(k+1)/float32(n)
	})
	m.env.value = target
	m.pushBuffer(b)
}

func opEnvExp(m *Machine, _ []byte) {
	target := m.popScalar()
	t := m.popScalar()
	b := m.envBuffer()
	n := m.samples(float64(t))
	start := m.env.value
	m.fill(b, n, func(k int) float32 {
		return target + (start-target)*float32(math.Exp(-expRate*float64(k+1)/float64(n)))
	})
	m.env.value = target
	m.pushBuffer(b)
}

func opEnvDelay(m *Machine, _ []byte) {
	t := m.popScalar()
	b := m.envBuffer()
	v := m.env.value
	m.fill(b, m.samples(float64(t)), func(int) float32 { return v })
	m.pushBuffer(b)
}

// opEnvGate holds the current value until the gate time.
func opEnvGate(m *Machine, _ []byte) {
	b := m.envBuffer()
	if m.env.pos < m.gate {
		v := m.env.value
		m.fill(b, m.gate-m.env.pos, func(int) float32 { return v })
	}
	m.pushBuffer(b)
}

// opEnvEnd fills the rest of the buffer with the final value.
func opEnvEnd(m *Machine, _ []byte) {
	b := m.envBuffer()
	if m.env.pos < len(b) {
		v := m.env.value
		m.fill(b, len(b)-m.env.pos, func(int) float32 { return v })
	}
	m.env = envelope{}
	m.pushBuffer(b)
}
