package vm

import "sync"

var machines = sync.Pool{
	New: func() any { return NewMachine() },
}

// GetMachine returns a machine from the pool.
func GetMachine() *Machine {
	return machines.Get().(*Machine)
}

// PutMachine resets m and returns it to the pool. The sample rate is
// restored to DefaultSampleRate.
func PutMachine(m *Machine) {
	m.Reset()
	m.SampleRate = DefaultSampleRate
	machines.Put(m)
}
