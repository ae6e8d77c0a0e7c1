package isa

import "fmt"

// Kind identifies which of the eighteen operand shapes an Operand holds.
// T86 assembly syntax only ever produces these eighteen combinations of
// register/immediate/scale/memory-indirection.
type Kind int

const (
	KindImm Kind = iota
	KindReg
	KindRegImm
	KindRegReg
	KindRegScaled
	KindRegImmReg
	KindRegRegScaled
	KindRegImmRegScaled
	KindMemImm
	KindMemReg
	KindMemRegImm
	KindMemRegReg
	KindMemRegScaled
	KindMemRegImmReg
	KindMemRegRegScaled
	KindMemRegImmRegScaled
	KindFImm
	KindFReg
)

func (k Kind) String() string {
	switch k {
	case KindImm:
		return "Imm"
	case KindReg:
		return "Reg"
	case KindRegImm:
		return "Reg+Imm"
	case KindRegReg:
		return "Reg+Reg"
	case KindRegScaled:
		return "Reg*Imm"
	case KindRegImmReg:
		return "Reg+Imm+Reg"
	case KindRegRegScaled:
		return "Reg+Reg*Imm"
	case KindRegImmRegScaled:
		return "Reg+Imm+Reg*Imm"
	case KindMemImm:
		return "[Imm]"
	case KindMemReg:
		return "[Reg]"
	case KindMemRegImm:
		return "[Reg+Imm]"
	case KindMemRegReg:
		return "[Reg+Reg]"
	case KindMemRegScaled:
		return "[Reg*Imm]"
	case KindMemRegImmReg:
		return "[Reg+Imm+Reg]"
	case KindMemRegRegScaled:
		return "[Reg+Reg*Imm]"
	case KindMemRegImmRegScaled:
		return "[Reg+Imm+Reg*Imm]"
	case KindFImm:
		return "FImm"
	case KindFReg:
		return "FReg"
	default:
		return "?"
	}
}

// Operand is a single instruction operand in one of the eighteen shapes the
// grammar allows. It is a value type: resolving one register read does not
// mutate an Operand in place, it produces the next, simpler Operand via
// Supply — the same reduction the reservation station drives an entry's
// operands through on the way to isFetched().
//
// Not every field is meaningful for every Kind; Requirement and Supply
// switch on Kind and only read the fields that shape defines. See the
// per-Kind comments on the constructors below for which fields apply.
type Operand struct {
	Kind   Kind
	Reg1   Register // the operand's first-listed register (also its "base" once reduced)
	Reg2   Register // the operand's second register, when one exists
	FReg   FloatRegister
	Offset int64
	Scale  int64
	Value  int64
	FValue float64
}

// Imm builds an immediate integer operand — already fetched.
func Imm(v int64) Operand { return Operand{Kind: KindImm, Value: v} }

// FloatImm builds an immediate float operand — already fetched.
func FloatImm(v float64) Operand { return Operand{Kind: KindFImm, FValue: v} }

// Reg builds a bare register operand: R0.
func Reg(r Register) Operand { return Operand{Kind: KindReg, Reg1: r} }

// RegImm builds R0 + offset.
func RegImm(r Register, offset int64) Operand {
	return Operand{Kind: KindRegImm, Reg1: r, Offset: offset}
}

// RegReg builds R0 + R1.
func RegReg(r1, r2 Register) Operand { return Operand{Kind: KindRegReg, Reg1: r1, Reg2: r2} }

// RegScaled builds R0 * scale.
func RegScaled(r Register, scale int64) Operand {
	return Operand{Kind: KindRegScaled, Reg1: r, Scale: scale}
}

// RegImmReg builds R0 + offset + R1; R0 (with the offset) resolves first.
func RegImmReg(r1 Register, offset int64, r2 Register) Operand {
	return Operand{Kind: KindRegImmReg, Reg1: r1, Offset: offset, Reg2: r2}
}

// RegRegScaled builds R0 + R1*scale; the scaled register R1 resolves first.
func RegRegScaled(r1, r2 Register, scale int64) Operand {
	return Operand{Kind: KindRegRegScaled, Reg1: r1, Reg2: r2, Scale: scale}
}

// RegImmRegScaled builds R0 + offset + R1*scale; R1 resolves first.
func RegImmRegScaled(r1 Register, offset int64, r2 Register, scale int64) Operand {
	return Operand{Kind: KindRegImmRegScaled, Reg1: r1, Offset: offset, Reg2: r2, Scale: scale}
}

// MemImm builds [addr] — a memory read at a known address.
func MemImm(addr int64) Operand { return Operand{Kind: KindMemImm, Value: addr} }

// MemReg builds [R0].
func MemReg(r Register) Operand { return Operand{Kind: KindMemReg, Reg1: r} }

// MemRegImm builds [R0 + offset].
func MemRegImm(r Register, offset int64) Operand {
	return Operand{Kind: KindMemRegImm, Reg1: r, Offset: offset}
}

// MemRegReg builds [R0 + R1]; R0 resolves first.
func MemRegReg(r1, r2 Register) Operand { return Operand{Kind: KindMemRegReg, Reg1: r1, Reg2: r2} }

// MemRegScaled builds [R0 * scale].
func MemRegScaled(r Register, scale int64) Operand {
	return Operand{Kind: KindMemRegScaled, Reg1: r, Scale: scale}
}

// MemRegImmReg builds [R0 + offset + R1]; R0 resolves first.
func MemRegImmReg(r1 Register, offset int64, r2 Register) Operand {
	return Operand{Kind: KindMemRegImmReg, Reg1: r1, Offset: offset, Reg2: r2}
}

// MemRegRegScaled builds [R0 + R1*scale]; the scaled register R1 resolves first.
func MemRegRegScaled(r1, r2 Register, scale int64) Operand {
	return Operand{Kind: KindMemRegRegScaled, Reg1: r1, Reg2: r2, Scale: scale}
}

// MemRegImmRegScaled builds [R0 + offset + R1*scale]; R1 resolves first.
func MemRegImmRegScaled(r1 Register, offset int64, r2 Register, scale int64) Operand {
	return Operand{Kind: KindMemRegImmRegScaled, Reg1: r1, Offset: offset, Reg2: r2, Scale: scale}
}

// FReg builds a bare float register operand.
func FReg(r FloatRegister) Operand { return Operand{Kind: KindFReg, FReg: r} }

// IsFetched reports whether this operand already holds a concrete value —
// the reservation station stops resolving an operand once this is true.
func (o Operand) IsFetched() bool { return o.Kind == KindImm || o.Kind == KindFImm }

// ReqKind identifies what kind of read a Requirement asks the reservation
// station/RAT to perform.
type ReqKind int

const (
	ReqRegister ReqKind = iota
	ReqFloatRegister
	ReqMemory
)

// Requirement names the single read an unfetched Operand needs next: one
// integer register, one float register, or one memory cell at a now-known
// address. Operands never need more than one read to make progress — each
// Supply call collapses the shape one step and a fresh Requirement is asked
// for again if the result still isn't fetched.
type Requirement struct {
	Kind ReqKind
	Reg  Register
	FReg FloatRegister
	Addr int64
}

// Requirement reports what this operand needs supplied next. Panics if
// called on an already-fetched operand — callers must check IsFetched
// first, matching the teacher's assert(!isValue()) in the original.
func (o Operand) Requirement() Requirement {
	switch o.Kind {
	case KindReg, KindRegImm, KindRegReg, KindRegScaled, KindRegImmReg, KindMemReg, KindMemRegImm, KindMemRegReg, KindMemRegImmReg, KindMemRegScaled:
		return Requirement{Kind: ReqRegister, Reg: o.Reg1}
	case KindRegRegScaled, KindRegImmRegScaled, KindMemRegRegScaled, KindMemRegImmRegScaled:
		return Requirement{Kind: ReqRegister, Reg: o.Reg2}
	case KindMemImm:
		return Requirement{Kind: ReqMemory, Addr: o.Value}
	case KindFReg:
		return Requirement{Kind: ReqFloatRegister, FReg: o.FReg}
	default:
		panic(fmt.Sprintf("isa: Requirement called on fetched operand (%s)", o.Kind))
	}
}

// Supply resolves this operand's current Requirement with the read value,
// returning the next operand in the reduction — which may itself still be
// unfetched and need another round through Requirement/Supply.
func (o Operand) Supply(val int64) Operand {
	switch o.Kind {
	case KindReg:
		return Imm(val)
	case KindRegImm:
		return Imm(val + o.Offset)
	case KindRegReg:
		return RegImm(o.Reg2, val)
	case KindRegScaled:
		return Imm(val * o.Scale)
	case KindRegImmReg:
		return RegImm(o.Reg2, o.Offset+val)
	case KindRegRegScaled:
		return RegImm(o.Reg1, o.Scale*val)
	case KindRegImmRegScaled:
		return RegImm(o.Reg1, o.Offset+o.Scale*val)
	case KindMemImm:
		return Imm(val)
	case KindMemReg:
		return MemImm(val)
	case KindMemRegImm:
		return MemImm(val + o.Offset)
	case KindMemRegReg:
		return MemRegImm(o.Reg2, val)
	case KindMemRegScaled:
		return MemImm(val * o.Scale)
	case KindMemRegImmReg:
		return MemRegImm(o.Reg2, o.Offset+val)
	case KindMemRegRegScaled:
		return MemRegImm(o.Reg1, o.Scale*val)
	case KindMemRegImmRegScaled:
		return MemRegImm(o.Reg1, o.Offset+o.Scale*val)
	default:
		panic(fmt.Sprintf("isa: Supply(int64) called on operand kind %s", o.Kind))
	}
}

// SupplyFloat resolves an FReg operand with the float register's value.
func (o Operand) SupplyFloat(val float64) Operand {
	if o.Kind != KindFReg {
		panic(fmt.Sprintf("isa: SupplyFloat called on operand kind %s", o.Kind))
	}
	return FloatImm(val)
}

func (o Operand) String() string {
	switch o.Kind {
	case KindImm:
		return fmt.Sprintf("%d", o.Value)
	case KindFImm:
		return fmt.Sprintf("%g", o.FValue)
	case KindReg:
		return o.Reg1.String()
	case KindRegImm:
		return fmt.Sprintf("%s + %d", o.Reg1, o.Offset)
	case KindRegReg:
		return fmt.Sprintf("%s + %s", o.Reg1, o.Reg2)
	case KindRegScaled:
		return fmt.Sprintf("%s * %d", o.Reg1, o.Scale)
	case KindRegImmReg:
		return fmt.Sprintf("%s + %d + %s", o.Reg1, o.Offset, o.Reg2)
	case KindRegRegScaled:
		return fmt.Sprintf("%s + %s * %d", o.Reg1, o.Reg2, o.Scale)
	case KindRegImmRegScaled:
		return fmt.Sprintf("%s + %d + %s * %d", o.Reg1, o.Offset, o.Reg2, o.Scale)
	case KindMemImm:
		return fmt.Sprintf("[%d]", o.Value)
	case KindMemReg:
		return fmt.Sprintf("[%s]", o.Reg1)
	case KindMemRegImm:
		return fmt.Sprintf("[%s + %d]", o.Reg1, o.Offset)
	case KindMemRegReg:
		return fmt.Sprintf("[%s + %s]", o.Reg1, o.Reg2)
	case KindMemRegScaled:
		return fmt.Sprintf("[%s * %d]", o.Reg1, o.Scale)
	case KindMemRegImmReg:
		return fmt.Sprintf("[%s + %d + %s]", o.Reg1, o.Offset, o.Reg2)
	case KindMemRegRegScaled:
		return fmt.Sprintf("[%s + %s * %d]", o.Reg1, o.Reg2, o.Scale)
	case KindMemRegImmRegScaled:
		return fmt.Sprintf("[%s + %d + %s * %d]", o.Reg1, o.Offset, o.Reg2, o.Scale)
	case KindFReg:
		return o.FReg.String()
	default:
		return "?"
	}
}

// Product names a write destination: the register/memory location an
// instruction's produces() lists, resolved against the RAT/pending-write
// manager at retire. Its Kind is one of KindReg, KindFReg, KindMemImm (a
// known address), or KindMemReg (address still register-dependent — the
// pending-write manager tracks it unspecified until execute() narrows it
// to a known address) — never one of the pure-value or compound-read
// shapes, which the typed constructors below simply never produce.
type Product struct {
	Kind Kind
	Reg  Register
	FReg FloatRegister
	Addr int64
}

// ProductRegister names an integer register write.
func ProductRegister(r Register) Product { return Product{Kind: KindReg, Reg: r} }

// ProductFloatRegister names a float register write.
func ProductFloatRegister(r FloatRegister) Product { return Product{Kind: KindFReg, FReg: r} }

// ProductMemory names a memory write at a known address.
func ProductMemory(addr int64) Product { return Product{Kind: KindMemImm, Addr: addr} }

// ProductMemoryRegister names a memory write whose address is still
// register-dependent at the time produces() is asked.
func ProductMemoryRegister() Product { return Product{Kind: KindMemReg} }

// ProductFromOperand converts an already-fetched or memory operand into the
// write destination it denotes. Operands built purely for their value
// (RegImm, RegScaled, ...) have no corresponding Product and this panics —
// those shapes only ever appear as read operands, never as write targets.
func ProductFromOperand(o Operand) Product {
	switch o.Kind {
	case KindReg:
		return ProductRegister(o.Reg1)
	case KindMemImm:
		return ProductMemory(o.Value)
	case KindMemReg, KindMemRegImm, KindMemRegReg, KindMemRegScaled, KindMemRegImmReg, KindMemRegRegScaled, KindMemRegImmRegScaled:
		return ProductMemoryRegister()
	case KindFReg:
		return ProductFloatRegister(o.FReg)
	default:
		panic(fmt.Sprintf("isa: operand kind %s cannot be converted to a Product", o.Kind))
	}
}
