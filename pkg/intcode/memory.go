package intcode

import "fmt"

// MaxMemory is the largest number of cells a write may grow memory to.
const MaxMemory = 1 << 24

// Address is an index into Memory. Addresses are never negative.
type Address int

// Memory is the flat image that holds both the program and its data.
type Memory []int64

// Clone returns an independent copy of the memory image.
func (m Memory) Clone() Memory {
	out := make(Memory, len(m))
	copy(out, m)
	return out
}

// Len returns the number of cells currently backing the image.
func (m Memory) Len() int {
	return len(m)
}

// word returns the cell at addr, or false when addr is past the end.
func (m Memory) word(addr Address) (int64, bool) {
	if addr < 0 || int(addr) >= len(m) {
		return 0, false
	}
	return m[addr], true
}

// Read returns the value stored at addr. Cells past the end read as zero.
func (m Memory) Read(addr Address) int64 {
	v, _ := m.word(addr)
	return v
}

// Write stores x at addr, growing the image with zero cells when addr is past
// the end. The (possibly reallocated) image is returned.
func (m Memory) Write(addr Address, x int64) (Memory, error) {
	if addr < 0 {
		return m, fmt.Errorf("%w: write to negative address %d", ErrMemoryLimit, addr)
	}
	if int(addr) >= len(m) {
		if int(addr) >= MaxMemory {
			return m, fmt.Errorf("%w: write to address %d (max %d)", ErrMemoryLimit, addr, MaxMemory)
		}
		grown := make(Memory, int(addr)+1)
		copy(grown, m)
		m = grown
	}
	m[addr] = x
	return m, nil
}
