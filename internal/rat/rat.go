// Package rat implements the register allocation table: the renaming layer
// between the architectural registers an instruction names and the
// physical register file the CPU actually holds values in. Renaming lets
// more than one in-flight instruction write the "same" logical register
// without clobbering an older, still-unretired value.
package rat

import "github.com/t86sim/t86/internal/isa"

// Physical is an index into the CPU's physical register file. It carries no
// meaning outside that file — the table only ever stores and returns them.
type Physical uint64

// subscriber is the seam into the CPU's per-physical-register reference
// count, used to know when a physical register has no live architectural
// name pointing at it and can be reused. The table never inspects the
// count itself; it only subscribes and unsubscribes as entries are renamed
// in and out.
type subscriber interface {
	SubscribeRegisterRead(Physical)
	UnsubscribeRegisterRead(Physical)
}

// Table maps every architectural register (general-purpose, float, and the
// four specials) to the physical register currently holding its value.
// Renaming replaces one mapping in place and adjusts subscription counts;
// the speculative pipeline clones a table at a branch so that it can roll
// back to the clone's original on misprediction.
type Table struct {
	cpu   subscriber
	regs  map[isa.Register]Physical
	fregs map[isa.FloatRegister]Physical
}

// New builds the initial identity mapping: register i maps to physical
// register i, float register j maps to physical register registerCnt+j,
// and the four specials (PC, SP, BP, Flags) take the remaining slots in
// that order. It subscribes every mapping it creates.
func New(cpu subscriber, registerCnt, floatRegisterCnt int) *Table {
	t := &Table{
		cpu:   cpu,
		regs:  make(map[isa.Register]Physical, registerCnt+4),
		fregs: make(map[isa.FloatRegister]Physical, floatRegisterCnt),
	}
	next := Physical(0)
	for i := 0; i < registerCnt; i++ {
		t.regs[isa.Register(i)] = next
		next++
	}
	for j := 0; j < floatRegisterCnt; j++ {
		t.fregs[isa.FloatRegister(j)] = next
		next++
	}
	t.regs[isa.ProgramCounter] = next
	next++
	t.regs[isa.StackPointer] = next
	next++
	t.regs[isa.StackBasePointer] = next
	next++
	t.regs[isa.Flags] = next

	t.subscribeAll()
	return t
}

func (t *Table) subscribeAll() {
	for _, p := range t.regs {
		t.cpu.SubscribeRegisterRead(p)
	}
	for _, p := range t.fregs {
		t.cpu.SubscribeRegisterRead(p)
	}
}

func (t *Table) unsubscribeAll() {
	for _, p := range t.regs {
		t.cpu.UnsubscribeRegisterRead(p)
	}
	for _, p := range t.fregs {
		t.cpu.UnsubscribeRegisterRead(p)
	}
}

// Clone copies the table's mappings and re-subscribes to all of them. Used
// when a speculative entry needs a private, independently rollback-able
// view of the register file — the copy-constructor side effect of the
// original is made an explicit call here instead.
func (t *Table) Clone() *Table {
	c := &Table{
		cpu:   t.cpu,
		regs:  make(map[isa.Register]Physical, len(t.regs)),
		fregs: make(map[isa.FloatRegister]Physical, len(t.fregs)),
	}
	for k, v := range t.regs {
		c.regs[k] = v
	}
	for k, v := range t.fregs {
		c.fregs[k] = v
	}
	c.subscribeAll()
	return c
}

// Drop unsubscribes every mapping this table holds. Call it when a table is
// discarded (an entry retires or is rolled back) — there is no finalizer
// doing this implicitly, unlike the original's destructor.
func (t *Table) Drop() {
	t.unsubscribeAll()
}

// Rename points reg at a new physical register, unsubscribing the old
// mapping (if any) and subscribing the new one.
func (t *Table) Rename(reg isa.Register, to Physical) {
	if old, ok := t.regs[reg]; ok {
		t.cpu.UnsubscribeRegisterRead(old)
	}
	t.regs[reg] = to
	t.cpu.SubscribeRegisterRead(to)
}

// RenameFloat is Rename for float registers.
func (t *Table) RenameFloat(reg isa.FloatRegister, to Physical) {
	if old, ok := t.fregs[reg]; ok {
		t.cpu.UnsubscribeRegisterRead(old)
	}
	t.fregs[reg] = to
	t.cpu.SubscribeRegisterRead(to)
}

// Translate returns the physical register currently backing reg. It panics
// if reg was never mapped, matching the original's unchecked at().
func (t *Table) Translate(reg isa.Register) Physical {
	p, ok := t.regs[reg]
	if !ok {
		panic("rat: unmapped register")
	}
	return p
}

// TranslateFloat is Translate for float registers.
func (t *Table) TranslateFloat(reg isa.FloatRegister) Physical {
	p, ok := t.fregs[reg]
	if !ok {
		panic("rat: unmapped float register")
	}
	return p
}

// IsUnmapped reports whether no architectural register currently names the
// given physical register — the physical register file can reclaim it.
func (t *Table) IsUnmapped(reg Physical) bool {
	for _, p := range t.regs {
		if p == reg {
			return false
		}
	}
	for _, p := range t.fregs {
		if p == reg {
			return false
		}
	}
	return true
}
