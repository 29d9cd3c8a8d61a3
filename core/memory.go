package core

import "math/rand"

// MemSize is the number of addressable words in core memory.
const MemSize = 4096

// Memory is the Digiac-3080's 4096-word core store. On construction it is
// filled with uniformly random sign/magnitude content, matching the
// historic power-on state of real core memory (§3) so uninitialized-read
// tests are not accidentally deterministic.
//
// Memory exposes a single tap point, installed by the owning CPU, that
// fires on every read and write so address-compare stops (§4.5, §7) can be
// implemented without Memory knowing anything about breakpoints or the run
// flag.
type Memory struct {
	words [MemSize]uint32
	tap   func(addr uint16, write bool)
}

// NewMemory creates a 4096-word memory filled with random power-up content.
func NewMemory() *Memory {
	m := &Memory{}
	for addr := range m.words {
		sign := uint32(rand.Intn(2))
		mag := uint32(rand.Int31n(1 << magBits))
		m.words[addr] = sign<<magBits | mag
	}
	return m
}

// SetTap installs the callback invoked on every Read/Write, before the
// access completes. Pass nil to remove it.
func (m *Memory) SetTap(fn func(addr uint16, write bool)) {
	m.tap = fn
}

// Read returns the word at addr, firing the tap point first.
func (m *Memory) Read(addr uint16) Word {
	if m.tap != nil {
		m.tap(addr, false)
	}
	return Unpack(m.words[addr%MemSize])
}

// Write stores w at addr, firing the tap point first. The tap point fires
// before the store completes, but the store always completes regardless of
// what the tap point does (§7: "memory access still completes").
func (m *Memory) Write(addr uint16, w Word) {
	if m.tap != nil {
		m.tap(addr, true)
	}
	m.words[addr%MemSize] = w.Pack()
}
