package intcode

// MaxMemory is the number of words a Memory may grow to. Writes at or beyond
// it fail with InvalidAddress; reads there return 0.
const MaxMemory = 1 << 24

// Memory is a machine's tape. It grows on demand: writes beyond its length
// first extend it with zeros up to the written address. It never shrinks.
type Memory []int64

// Peek returns the value at addr, or 0 if addr lies beyond the tape.
func (m Memory) Peek(addr uint64) int64 {
	if addr >= uint64(len(m)) {
		return 0
	}
	return m[addr]
}

// Poke writes v at addr, growing the tape as needed. It returns
// InvalidAddress if addr is at or beyond MaxMemory.
func (m *Memory) Poke(addr uint64, v int64) error {
	if addr >= MaxMemory {
		return InvalidAddress
	}
	m.grow(addr)
	(*m)[addr] = v
	return nil
}

func (m *Memory) grow(addr uint64) {
	if addr < uint64(len(*m)) {
		return
	}
	n := int(addr) + 1
	if n <= cap(*m) {
		old := len(*m)
		*m = (*m)[:n]
		clear((*m)[old:])
		return
	}
	t := make(Memory, n, min(max(n, 2*cap(*m)), MaxMemory))
	copy(t, *m)
	*m = t
}
