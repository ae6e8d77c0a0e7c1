// Package ram implements T86's unified RAM: a flat, word-addressed array
// with a fixed number of concurrent read/write gates. Each gated access
// occupies one gate for a fixed latency and is observed only once it
// completes; the CPU also gets a synchronous get/set pair for debugger use
// that bypasses gating entirely.
package ram

import "fmt"

// Token is a handle to an in-flight or completed gated access. Ready
// becomes true once the access's latency has elapsed; Value is only
// meaningful after that (for reads).
type Token struct {
	addr    uint64
	write   bool
	value   uint64
	ticks   int
	done    bool
	gateIdx int
}

// Ready reports whether the access behind this token has completed.
func (t *Token) Ready() bool { return t.done }

// Value returns the word a completed read produced. Calling it before the
// token is Ready returns 0, not the real value.
func (t *Token) Value() uint64 {
	if !t.done {
		return 0
	}
	return t.value
}

// RAM is word-addressed (each cell is 64 bits); Size is the cell count, not
// a byte count.
type RAM struct {
	cells   []uint64
	latency int
	gates   []*Token // nil entry == free gate
}

// New builds RAM with the given cell count, gate count, and per-access
// latency in ticks.
func New(size, gateCount, latency int) *RAM {
	return &RAM{
		cells:   make([]uint64, size),
		latency: latency,
		gates:   make([]*Token, gateCount),
	}
}

// Size returns the number of addressable 64-bit cells.
func (r *RAM) Size() int { return len(r.cells) }

// freeGate returns the index of an unoccupied gate, or -1 if all gates are
// busy (the caller — the reservation station's memory-read/write path —
// must stall and retry on a later tick).
func (r *RAM) freeGate() int {
	for i, t := range r.gates {
		if t == nil {
			return i
		}
	}
	return -1
}

// Read allocates a gate for a read of addr, returning nil if no gate is
// free. The returned token becomes Ready after the configured latency.
func (r *RAM) Read(addr uint64) *Token {
	idx := r.freeGate()
	if idx < 0 {
		return nil
	}
	tok := &Token{addr: addr, ticks: r.latency, gateIdx: idx}
	if tok.ticks <= 0 {
		tok.done = true
		tok.value = r.cells[addr]
	}
	r.gates[idx] = tok
	return tok
}

// Write allocates a gate for a write of value to addr.
func (r *RAM) Write(addr uint64, value uint64) *Token {
	idx := r.freeGate()
	if idx < 0 {
		return nil
	}
	tok := &Token{addr: addr, write: true, value: value, ticks: r.latency, gateIdx: idx}
	if tok.ticks <= 0 {
		tok.done = true
		r.cells[addr] = value
	}
	r.gates[idx] = tok
	return tok
}

// Tick advances every in-flight gated access by one tick, committing writes
// and latching read values the instant their latency elapses. It frees no
// gate; Reap does that.
func (r *RAM) Tick() {
	for i, tok := range r.gates {
		if tok == nil || tok.done {
			continue
		}
		tok.ticks--
		if tok.ticks <= 0 {
			tok.done = true
			if tok.write {
				r.cells[tok.addr] = tok.value
			} else {
				tok.value = r.cells[tok.addr]
			}
		}
		_ = i
	}
}

// Reap releases the gate held by a completed token so a new access can use
// it. Callers must not keep using tok afterward.
func (r *RAM) Reap(tok *Token) {
	if tok == nil || !tok.done {
		return
	}
	r.gates[tok.gateIdx] = nil
}

// Get reads a cell synchronously, bypassing the gating model entirely. Used
// by the debug plane (PEEKDATA) and by instruction execute() when it needs
// the effective address's current contents without stalling the pipeline.
func (r *RAM) Get(addr uint64) (uint64, error) {
	if addr >= uint64(len(r.cells)) {
		return 0, fmt.Errorf("ram: address %d out of range (size %d)", addr, len(r.cells))
	}
	return r.cells[addr], nil
}

// Set writes a cell synchronously, bypassing gating. Used by the debug
// plane (POKEDATA) and program load.
func (r *RAM) Set(addr uint64, value uint64) error {
	if addr >= uint64(len(r.cells)) {
		return fmt.Errorf("ram: address %d out of range (size %d)", addr, len(r.cells))
	}
	r.cells[addr] = value
	return nil
}
