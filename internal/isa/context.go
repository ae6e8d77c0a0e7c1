package isa

import "github.com/t86sim/t86/internal/alu"

// ExecContext is everything an instruction's Execute/Retire needs from the
// reservation station entry that owns it. Execute and Retire never touch a
// concrete Entry type directly — that would put this package in an import
// cycle with internal/reservation, which owns Entry. Instead Entry
// implements this interface and the instruction catalogue only ever calls
// through it.
//
// By the time Execute or Retire runs, every Operand in Operands() is
// already fetched (IsFetched() == true): resolving register/memory reads
// is the reservation station's job, done before an entry reaches the
// executing state, not the instruction's.
type ExecContext interface {
	Operands() []Operand
	// PushOperand appends a synthetic operand, used only by LOOP to hand
	// its decremented counter from execute() to retire().
	PushOperand(Operand)

	// MemoryWriteIDs are the pending-write-manager slots this entry
	// registered at dispatch time, one per memory Product in the
	// instruction's Produces(). Index them in Produces() order.
	MemoryWriteIDs() []int
	SpecifyWriteAddress(id int, addr int64)
	SetWriteValue(id int, value int64)
	WriteMemory(id int)

	SetRegister(Register, int64)
	SetFloatRegister(FloatRegister, float64)
	SetFlags(alu.Flags)
	SetProgramCounter(addr int64)
	SetStackPointer(addr int64)
	SetStackBasePointer(addr int64)

	// ProcessJump tells the CPU whether a jump (taken unconditionally,
	// conditionally, or as a LOOP/CALL/RET control transfer) matched its
	// prediction; a mismatch triggers speculative rollback.
	ProcessJump(taken bool)

	// UnrollSpeculation discards every younger in-flight entry and resets
	// the CPU's speculative PC — used by HALT/BREAK/DBG at retire.
	UnrollSpeculation()

	PutChar(v int64)
	PutNum(v int64)
	GetChar() int64
	DoBreak()
	Halt()
}
