// Package writes implements the pending-write manager: an ordered log of
// speculative memory writes, each tagged with a monotonically increasing
// id, that lets a reservation-station entry ask "given a read at write id
// N, what value (if any) did an earlier write to this address already
// produce?" without waiting for those writes to actually land in RAM.
package writes

import "github.com/t86sim/t86/internal/ram"

// State is where a single write sits in its lifecycle.
type State int

const (
	// Pending: registered, address not yet known.
	Pending State = iota
	// Specified: address known, value not yet known.
	Specified
	// Ready: value known, not yet issued to RAM.
	Ready
	// Writing: issued to RAM, not yet observed complete.
	Writing
	// Finished: RAM has committed the value.
	Finished
)

// ID identifies one entry in the log. IDs increase monotonically and are
// never reused.
type ID int

type entry struct {
	id       ID
	addr     int64
	hasAddr  bool
	value    int64
	hasValue bool
	state    State
}

// Manager owns the ordered write log and the RAM it eventually drains
// into. Entries are appended in issue order and removed only once
// finished or rolled back, so "the set of entries with id <= N" is always
// a prefix of the live log — callers can stop scanning at the first id
// greater than the one they care about.
type Manager struct {
	ram    *ram.RAM
	log    []*entry
	nextID ID
}

// New builds an empty manager backed by r.
func New(r *ram.RAM) *Manager {
	return &Manager{ram: r}
}

// CurrentMaxID returns the id of the most recently registered write, the
// visibility horizon a newly issued entry snapshots so its own memory
// reads see exactly the writes that preceded it in program order.
func (m *Manager) CurrentMaxID() ID {
	return m.nextID - 1
}

// RegisterPending appends a new pending write (address unknown) and
// returns its id.
func (m *Manager) RegisterPending() ID {
	id := m.nextID
	m.nextID++
	m.log = append(m.log, &entry{id: id, state: Pending})
	return id
}

// RegisterSpecified is RegisterPending for a write whose address is
// already known at issue time (a MOV to a literal memory operand, for
// instance), skipping straight to the Specified state.
func (m *Manager) RegisterSpecified(addr int64) ID {
	id := m.nextID
	m.nextID++
	m.log = append(m.log, &entry{id: id, addr: addr, hasAddr: true, state: Specified})
	return id
}

func (m *Manager) find(id ID) *entry {
	for _, e := range m.log {
		if e.id == id {
			return e
		}
	}
	return nil
}

// SpecifyAddress fills in the address of a still-pending write.
func (m *Manager) SpecifyAddress(id ID, addr int64) {
	e := m.find(id)
	if e == nil {
		panic("writes: unknown write id")
	}
	e.addr = addr
	e.hasAddr = true
	if e.state == Pending {
		e.state = Specified
	}
}

// SetValue fills in the value of a specified write.
func (m *Manager) SetValue(id ID, value int64) {
	e := m.find(id)
	if e == nil {
		panic("writes: unknown write id")
	}
	e.value = value
	e.hasValue = true
	if e.state == Specified {
		e.state = Ready
	}
}

// StartWriting commits a ready write to RAM at once and marks it finished. Panics if
// the entry isn't ready — the caller (retire()) must only call this once
// address and value are both known.
func (m *Manager) StartWriting(id ID) {
	e := m.find(id)
	if e == nil {
		panic("writes: unknown write id")
	}
	if e.state != Ready {
		panic("writes: write not ready")
	}
	e.state = Writing
	if err := m.ram.Set(uint64(e.addr), uint64(e.value)); err != nil {
		panic(err)
	}
	e.state = Finished
}

// PreviousWrite scans the log for the most recent write with id <= maxID
// to the given address. It reports two independent things: found, whether
// a write to that address exists at all in range, and ok, whether that
// write's value is already known. The three reachable outcomes are:
//
//   - found=false: no write to addr in range, caller falls through to RAM.
//   - found=true, ok=false: a write to addr exists but hasn't produced its
//     value yet (specified address, value pending at execute); the caller
//     must stall rather than read a value that is about to be overwritten.
//   - found=true, ok=true: value is the most recent write's value, forward
//     it directly.
//
// The scan walks newest-to-oldest so the first address match found is the
// most recent one, matching store-to-load forwarding semantics.
func (m *Manager) PreviousWrite(addr int64, maxID ID) (value int64, ok bool, found bool) {
	for i := len(m.log) - 1; i >= 0; i-- {
		e := m.log[i]
		if e.id > maxID {
			continue
		}
		if !e.hasAddr {
			// An earlier write whose target address is still unknown
			// might alias this read; we cannot safely forward or skip it.
			return 0, false, true
		}
		if e.addr != addr {
			continue
		}
		if !e.hasValue {
			return 0, false, true
		}
		return e.value, true, true
	}
	return 0, false, false
}

// HasUnspecifiedWrites reports whether any write with id <= maxID still
// lacks a known address — used to decide whether a memory read must stall
// even when no same-address write was found by PreviousWrite.
func (m *Manager) HasUnspecifiedWrites(maxID ID) bool {
	for _, e := range m.log {
		if e.id > maxID {
			continue
		}
		if !e.hasAddr {
			return true
		}
	}
	return false
}

// RemoveFinished drops every Finished entry from the front of the log.
// Finished entries only ever accumulate at the front, since retirement is
// strictly in program order.
func (m *Manager) RemoveFinished() {
	i := 0
	for i < len(m.log) && m.log[i].state == Finished {
		i++
	}
	m.log = m.log[i:]
}

// RemovePending drops every entry still pending, specified, or ready (not
// yet writing or finished) — the speculation-rollback primitive. By the
// time a branch misprediction is discovered, every write younger than it
// is necessarily still in one of these three states, since committing to
// RAM only happens at retire and retirement is strictly in order.
func (m *Manager) RemovePending() {
	kept := m.log[:0]
	for _, e := range m.log {
		if e.state == Writing || e.state == Finished {
			kept = append(kept, e)
		}
	}
	m.log = kept
}

// State reports the lifecycle state of a write, for tests and debugging.
func (m *Manager) State(id ID) State {
	e := m.find(id)
	if e == nil {
		panic("writes: unknown write id")
	}
	return e.state
}

// Address returns the (already-specified) address a write targets, for the
// CPU's watchpoint check at commit time. Panics if the write's address
// isn't known yet — callers only ask once a write is about to start
// writing, by which point it always is.
func (m *Manager) Address(id ID) int64 {
	e := m.find(id)
	if e == nil || !e.hasAddr {
		panic("writes: address requested before it was specified")
	}
	return e.addr
}
