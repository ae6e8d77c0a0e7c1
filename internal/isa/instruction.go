package isa

import (
	"fmt"

	"github.com/t86sim/t86/internal/alu"
)

// Type identifies an opcode. T86 instructions share a small number of
// operand-resolution shapes (binary/unary arithmetic, conditional jump,
// load/store) even though there are dozens of opcodes, so rather than a
// type hierarchy with one struct per opcode, every opcode is a Type value
// plus a family-specific spread of Instruction's fields, dispatched
// through the catalogue table below — a tagged union with a record of
// behavior per tag, not a class per opcode.
type Type int

const (
	MOV Type = iota
	LEA
	NOP
	HALT
	DBG
	BREAK
	CLF

	ADD
	SUB
	MUL
	DIV
	IMUL
	IDIV
	MOD
	AND
	OR
	XOR
	LSH
	RSH

	INC
	DEC
	NEG
	NOT

	FADD
	FSUB
	FMUL
	FDIV

	CMP
	FCMP

	JMP
	JZ
	JNZ
	JE
	JNE
	JG
	JGE
	JL
	JLE
	JA
	JAE
	JB
	JBE
	JO
	JNO
	JS
	JNS
	LOOP
	CALL
	RET

	PUSH
	FPUSH
	POP
	FPOP

	PUTCHAR
	PUTNUM
	GETCHAR

	EXT
	NRW
)

var typeNames = map[Type]string{
	MOV: "MOV", LEA: "LEA", NOP: "NOP", HALT: "HALT", DBG: "DBG", BREAK: "BREAK", CLF: "CLF",
	ADD: "ADD", SUB: "SUB", MUL: "MUL", DIV: "DIV", IMUL: "IMUL", IDIV: "IDIV", MOD: "MOD",
	AND: "AND", OR: "OR", XOR: "XOR", LSH: "LSH", RSH: "RSH",
	INC: "INC", DEC: "DEC", NEG: "NEG", NOT: "NOT",
	FADD: "FADD", FSUB: "FSUB", FMUL: "FMUL", FDIV: "FDIV",
	CMP: "CMP", FCMP: "FCMP",
	JMP: "JMP", JZ: "JZ", JNZ: "JNZ", JE: "JE", JNE: "JNE", JG: "JG", JGE: "JGE", JL: "JL", JLE: "JLE",
	JA: "JA", JAE: "JAE", JB: "JB", JBE: "JBE", JO: "JO", JNO: "JNO", JS: "JS", JNS: "JNS",
	LOOP: "LOOP", CALL: "CALL", RET: "RET",
	PUSH: "PUSH", FPUSH: "FPUSH", POP: "POP", FPOP: "FPOP",
	PUTCHAR: "PUTCHAR", PUTNUM: "PUTNUM", GETCHAR: "GETCHAR",
	EXT: "EXT", NRW: "NRW",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Instruction is one decoded program line. Only the fields its Type's
// family actually uses are meaningful; see the per-opcode comments in the
// catalogue below. RiscLike distinguishes arithmetic's two-operand
// accumulate form (ADD R0, R1 — R0 is both read and written) from its
// three-operand form (ADD R0, R1, R2 — R2 untouched as a read, R0 is
// write-only); everything else about the two forms is identical.
type Instruction struct {
	Op       Type
	A        Operand  // primary read operand — see catalogue comments per Type
	B        Operand  // secondary read operand, or destination-shape operand for MOV/LEA
	RiscDest Register // write-only destination register, used only when RiscLike
	RiscLike bool
	Cond     func(alu.Flags) bool // conditional jump predicate; nil outside the Jcc family
	NameHint string               // DBG's debugger message, kept for disassembly/logging only
}

// Signature is the static (pre-dispatch) shape of an instruction: its
// opcode and the operand kinds that appear in source — what the assembler
// and disassembler print, independent of how many pipeline stages it
// takes to resolve those operands to values.
type Signature struct {
	Op       Type
	A, B     Kind
	RiscLike bool
}

func (ins Instruction) Signature() Signature {
	return Signature{Op: ins.Op, A: ins.A.Kind, B: ins.B.Kind, RiscLike: ins.RiscLike}
}

// destRegs lists, in resolution order, the registers a memory-indirect
// destination/address operand needs read before its effective address is
// known. Scaled compound shapes resolve their scaled register first,
// matching Operand.Requirement's own ordering.
func destRegs(o Operand) []Register {
	switch o.Kind {
	case KindMemReg, KindMemRegImm, KindMemRegScaled:
		return []Register{o.Reg1}
	case KindMemRegReg, KindMemRegImmReg:
		return []Register{o.Reg1, o.Reg2}
	case KindMemRegRegScaled, KindMemRegImmRegScaled:
		return []Register{o.Reg2, o.Reg1}
	default:
		return nil
	}
}

// resolveAddress narrows a memory-indirect operand to a concrete address
// by feeding it the register values destRegs asked for, in order.
func resolveAddress(o Operand, regVals []int64) int64 {
	for _, v := range regVals {
		o = o.Supply(v)
	}
	if o.Kind == KindMemImm {
		return o.Value
	}
	return o.Value // already reduced to Imm by a trailing non-memory Supply (LEA's case)
}

// catalogueEntry is the dispatch-table record: everything the pipeline
// needs to know how to drive an instruction of this Type through
// operands()/produces()/needsALU/execute()/retire(), factored out of the
// per-opcode struct so adding an opcode never means adding a new Go type.
type catalogueEntry struct {
	needsALU bool
	operands func(ins Instruction) []Operand
	produces func(ins Instruction) []Product
	execute  func(ins Instruction, ctx ExecContext)
	retire   func(ins Instruction, ctx ExecContext)
}

// Operands returns the operands this instruction reads, in the order the
// reservation station must resolve them — mirroring the original's
// operands()/signatureOperands() split: what's listed here is what
// execute()/retire() read through ExecContext.Operands(), already fetched.
func (ins Instruction) Operands() []Operand {
	return catalogue[ins.Op].operands(ins)
}

// Produces returns the write destinations this instruction's retire
// commits; the RAT uses this at dispatch to rename destinations before the
// entry's operands are even fetched.
func (ins Instruction) Produces() []Product {
	return catalogue[ins.Op].produces(ins)
}

// NeedsALU reports whether this instruction occupies an ALU slot while
// executing — everything except pure moves, jumps, and I/O does.
func (ins Instruction) NeedsALU() bool { return catalogue[ins.Op].needsALU }

// Execute runs the instruction's speculative-path computation: register
// writes happen here, memory writes are only staged (specified/valued) for
// commit at Retire.
func (ins Instruction) Execute(ctx ExecContext) { catalogue[ins.Op].execute(ins, ctx) }

// Retire commits whatever Execute staged: memory writes, control-flow
// misprediction handling, and all externally visible I/O.
func (ins Instruction) Retire(ctx ExecContext) { catalogue[ins.Op].retire(ins, ctx) }

var jumpTypes = map[Type]bool{
	JMP: true, LOOP: true, CALL: true, RET: true,
	JZ: true, JNZ: true, JE: true, JNE: true, JG: true, JGE: true, JL: true, JLE: true,
	JA: true, JAE: true, JB: true, JBE: true, JO: true, JNO: true, JS: true, JNS: true,
}

// IsJump reports whether this instruction is a control-transfer the fetch
// stage must consult the branch predictor for, mirroring the original's
// JumpInstruction subclass boundary (JMP, the sixteen Jcc variants, LOOP,
// CALL, RET).
func (ins Instruction) IsJump() bool { return jumpTypes[ins.Op] }

func noRetire(Instruction, ExecContext) {}
func noExecute(Instruction, ExecContext) {}

// --- binary/unary/float-arithmetic families -------------------------------

func binaryArithOperands(ins Instruction) []Operand {
	return []Operand{ins.A, ins.B}
}

func binaryArithProduces(ins Instruction) []Product {
	dest := ins.A.Reg1
	if ins.RiscLike {
		dest = ins.RiscDest
	}
	return []Product{ProductRegister(dest), ProductRegister(Flags)}
}

func binaryArithExecute(op func(int64, int64) alu.Result) func(Instruction, ExecContext) {
	return func(ins Instruction, ctx ExecContext) {
		ops := ctx.Operands()
		res := op(ops[0].Value, ops[1].Value)
		dest := ins.A.Reg1
		if ins.RiscLike {
			dest = ins.RiscDest
		}
		ctx.SetRegister(dest, res.Value)
		ctx.SetFlags(res.Flags)
	}
}

// ExecutionError is a fatal instruction fault — currently only division or
// modulus by zero — that the OS run loop surfaces as a CpuError break
// instead of silently producing a wrong answer.
type ExecutionError struct {
	Op  Type
	Msg string
}

func (e *ExecutionError) Error() string { return fmt.Sprintf("%s: %s", e.Op, e.Msg) }

// divArithExecute wraps binaryArithExecute's division family with the
// zero-divisor check the ALU package deliberately leaves to the caller, so
// the panic can carry the faulting opcode.
func divArithExecute(op func(int64, int64) alu.Result) func(Instruction, ExecContext) {
	inner := binaryArithExecute(op)
	return func(ins Instruction, ctx ExecContext) {
		if ctx.Operands()[1].Value == 0 {
			panic(&ExecutionError{Op: ins.Op, Msg: "division by zero"})
		}
		inner(ins, ctx)
	}
}

func unaryArithOperands(ins Instruction) []Operand { return []Operand{ins.A} }
func unaryArithProduces(ins Instruction) []Product {
	return []Product{ProductRegister(ins.A.Reg1), ProductRegister(Flags)}
}

func unaryArithExecute(op func(int64) alu.Result) func(Instruction, ExecContext) {
	return func(ins Instruction, ctx ExecContext) {
		res := op(ctx.Operands()[0].Value)
		ctx.SetRegister(ins.A.Reg1, res.Value)
		ctx.SetFlags(res.Flags)
	}
}

func floatArithOperands(ins Instruction) []Operand { return []Operand{ins.A, ins.B} }
func floatArithProduces(ins Instruction) []Product {
	return []Product{ProductFloatRegister(ins.A.FReg), ProductRegister(Flags)}
}

func floatArithExecute(op func(float64, float64) alu.FloatResult) func(Instruction, ExecContext) {
	return func(ins Instruction, ctx ExecContext) {
		ops := ctx.Operands()
		res := op(ops[0].FValue, ops[1].FValue)
		ctx.SetFloatRegister(ins.A.FReg, res.Value)
		ctx.SetFlags(res.Flags)
	}
}

// --- MOV / LEA -------------------------------------------------------------

// movOperands mirrors MOV::operands(): the value to write, plus whichever
// registers the destination's address still depends on.
func movOperands(ins Instruction) []Operand {
	ops := []Operand{ins.B} // B holds value_
	for _, r := range destRegs(ins.A) {
		ops = append(ops, Reg(r))
	}
	return ops
}

func movProduces(ins Instruction) []Product {
	return []Product{ProductFromOperand(ins.A)}
}

func movExecute(ins Instruction, ctx ExecContext) {
	ops := ctx.Operands()
	switch ins.A.Kind {
	case KindReg:
		ctx.SetRegister(ins.A.Reg1, ops[0].Value)
	case KindFReg:
		ctx.SetFloatRegister(ins.A.FReg, ops[0].FValue)
	case KindMemImm:
		ctx.SetWriteValue(ctx.MemoryWriteIDs()[0], ops[0].Value)
	default:
		regVals := make([]int64, 0, 2)
		for _, o := range ops[1:] {
			regVals = append(regVals, o.Value)
		}
		addr := resolveAddress(ins.A, regVals)
		wid := ctx.MemoryWriteIDs()[0]
		ctx.SpecifyWriteAddress(wid, addr)
		ctx.SetWriteValue(wid, ops[0].Value)
	}
}

func movRetire(ins Instruction, ctx ExecContext) {
	if ins.A.Kind == KindReg || ins.A.Kind == KindFReg {
		return
	}
	ctx.WriteMemory(ctx.MemoryWriteIDs()[0])
}

func leaOperands(ins Instruction) []Operand {
	ops := make([]Operand, 0, 2)
	for _, r := range destRegs(ins.B) {
		ops = append(ops, Reg(r))
	}
	return ops
}

func leaProduces(ins Instruction) []Product { return []Product{ProductRegister(ins.A.Reg1)} }

func leaExecute(ins Instruction, ctx ExecContext) {
	ops := ctx.Operands()
	regVals := make([]int64, 0, 2)
	for _, o := range ops {
		regVals = append(regVals, o.Value)
	}
	addr := resolveAddress(ins.B, regVals)
	ctx.SetRegister(ins.A.Reg1, addr)
}

// --- CMP / FCMP / CLF --------------------------------------------------

func cmpOperands(ins Instruction) []Operand  { return []Operand{ins.A, ins.B} }
func cmpProduces(Instruction) []Product      { return []Product{ProductRegister(Flags)} }
func cmpExecute(ins Instruction, ctx ExecContext) {
	ops := ctx.Operands()
	ctx.SetFlags(alu.Sub(ops[0].Value, ops[1].Value).Flags)
}

func fcmpExecute(ins Instruction, ctx ExecContext) {
	ops := ctx.Operands()
	ctx.SetFlags(alu.Fsub(ops[0].FValue, ops[1].FValue).Flags)
}

func clfProduces(Instruction) []Product { return []Product{ProductRegister(Flags)} }
func clfRetire(_ Instruction, ctx ExecContext) {
	ctx.SetFlags(alu.Flags{})
}

// --- control flow --------------------------------------------------------

func jmpOperands(ins Instruction) []Operand { return []Operand{ins.A} }
func jmpProduces(Instruction) []Product     { return []Product{ProductRegister(ProgramCounter)} }
func jmpExecute(ins Instruction, ctx ExecContext) {
	ctx.SetProgramCounter(ctx.Operands()[0].Value)
}
func jmpRetire(_ Instruction, ctx ExecContext) { ctx.ProcessJump(true) }

func condJmpOperands(ins Instruction) []Operand { return []Operand{ins.A, Reg(Flags)} }
func condJmpExecute(ins Instruction, ctx ExecContext) {
	ops := ctx.Operands()
	if ins.Cond(alu.Unpack(uint64(ops[1].Value))) {
		ctx.SetProgramCounter(ops[0].Value)
	}
}
func condJmpRetire(ins Instruction, ctx ExecContext) {
	ops := ctx.Operands()
	ctx.ProcessJump(ins.Cond(alu.Unpack(uint64(ops[1].Value))))
}

func loopOperands(ins Instruction) []Operand { return []Operand{ins.A, ins.B} } // A=reg_, B=address_
func loopProduces(ins Instruction) []Product {
	return []Product{ProductRegister(ins.A.Reg1), ProductRegister(ProgramCounter), ProductRegister(Flags)}
}
func loopExecute(ins Instruction, ctx ExecContext) {
	ops := ctx.Operands()
	res := alu.Sub(ops[0].Value, 1)
	ctx.SetRegister(ins.A.Reg1, res.Value)
	ctx.SetFlags(res.Flags)
	ctx.PushOperand(Imm(res.Value))
	if res.Value != 0 {
		ctx.SetProgramCounter(ops[1].Value)
	}
}
func loopRetire(_ Instruction, ctx ExecContext) {
	ops := ctx.Operands()
	ctx.ProcessJump(ops[2].Value != 0)
}

func callOperands(ins Instruction) []Operand {
	return []Operand{ins.A, Reg(ProgramCounter), Reg(StackPointer)}
}
func callProduces(Instruction) []Product {
	return []Product{ProductRegister(ProgramCounter), ProductRegister(StackPointer), ProductMemoryRegister()}
}
func callExecute(ins Instruction, ctx ExecContext) {
	ops := ctx.Operands()
	ctx.SetProgramCounter(ops[0].Value)
	wid := ctx.MemoryWriteIDs()[0]
	ctx.SpecifyWriteAddress(wid, ops[2].Value-1)
	ctx.SetWriteValue(wid, ops[1].Value)
	ctx.SetStackPointer(ops[2].Value - 1)
}
func callRetire(_ Instruction, ctx ExecContext) {
	ctx.WriteMemory(ctx.MemoryWriteIDs()[0])
	ctx.ProcessJump(true)
}

func retOperands(Instruction) []Operand {
	return []Operand{MemReg(StackPointer), Reg(StackPointer)}
}
func retProduces(Instruction) []Product {
	return []Product{ProductRegister(StackPointer), ProductRegister(ProgramCounter)}
}
func retExecute(ins Instruction, ctx ExecContext) {
	ops := ctx.Operands()
	ctx.SetProgramCounter(ops[0].Value)
	ctx.SetStackPointer(ops[1].Value + 1)
}
func retRetire(_ Instruction, ctx ExecContext) { ctx.ProcessJump(true) }

// --- stack -----------------------------------------------------------------

func pushOperands(ins Instruction) []Operand { return []Operand{ins.A, Reg(StackPointer)} }
func pushProduces(Instruction) []Product {
	return []Product{ProductMemoryRegister(), ProductRegister(StackPointer)}
}
func pushExecute(ins Instruction, ctx ExecContext) {
	ops := ctx.Operands()
	wid := ctx.MemoryWriteIDs()[0]
	ctx.SpecifyWriteAddress(wid, ops[1].Value-1)
	ctx.SetWriteValue(wid, ops[0].Value)
	ctx.SetStackPointer(ops[1].Value - 1)
}
func pushRetire(_ Instruction, ctx ExecContext) { ctx.WriteMemory(ctx.MemoryWriteIDs()[0]) }

func fpushExecute(ins Instruction, ctx ExecContext) {
	ops := ctx.Operands()
	wid := ctx.MemoryWriteIDs()[0]
	ctx.SpecifyWriteAddress(wid, ops[1].Value-1)
	ctx.SetWriteValue(wid, alu.PunInt(ops[0].FValue))
	ctx.SetStackPointer(ops[1].Value - 1)
}

func popOperands(Instruction) []Operand { return []Operand{MemReg(StackPointer), Reg(StackPointer)} }
func popProduces(ins Instruction) []Product {
	return []Product{ProductRegister(ins.A.Reg1), ProductRegister(StackPointer)}
}
func popExecute(ins Instruction, ctx ExecContext) {
	ops := ctx.Operands()
	ctx.SetRegister(ins.A.Reg1, ops[0].Value)
	ctx.SetStackPointer(ops[1].Value + 1)
}

func fpopProduces(ins Instruction) []Product {
	return []Product{ProductFloatRegister(ins.A.FReg), ProductRegister(StackPointer)}
}
func fpopExecute(ins Instruction, ctx ExecContext) {
	ops := ctx.Operands()
	ctx.SetFloatRegister(ins.A.FReg, alu.PunFloat(ops[0].Value))
	ctx.SetStackPointer(ops[1].Value + 1)
}

// --- I/O, EXT/NRW, control instructions --------------------------------

func putcharOperands(ins Instruction) []Operand { return []Operand{ins.A} }
func putcharRetire(_ Instruction, ctx ExecContext) {
	ctx.PutChar(ctx.Operands()[0].Value)
}

func putnumRetire(_ Instruction, ctx ExecContext) {
	ctx.PutNum(ctx.Operands()[0].Value)
}

func getcharProduces(ins Instruction) []Product { return []Product{ProductRegister(ins.A.Reg1)} }
func getcharRetire(ins Instruction, ctx ExecContext) {
	ctx.SetRegister(ins.A.Reg1, ctx.GetChar())
}

func extOperands(ins Instruction) []Operand { return []Operand{ins.B} } // B = reg_
func extProduces(ins Instruction) []Product { return []Product{ProductFloatRegister(ins.A.FReg)} }
func extExecute(ins Instruction, ctx ExecContext) {
	ctx.SetFloatRegister(ins.A.FReg, float64(ctx.Operands()[0].Value))
}

func nrwOperands(ins Instruction) []Operand { return []Operand{ins.B} } // B = fReg_
func nrwProduces(ins Instruction) []Product { return []Product{ProductRegister(ins.A.Reg1)} }
func nrwExecute(ins Instruction, ctx ExecContext) {
	ctx.SetRegister(ins.A.Reg1, int64(ctx.Operands()[0].FValue))
}

func noOperands(Instruction) []Operand { return nil }
func noProducts(Instruction) []Product { return nil }

func dbgRetire(_ Instruction, ctx ExecContext) { ctx.UnrollSpeculation() }
func breakRetire(_ Instruction, ctx ExecContext) {
	ctx.UnrollSpeculation()
	ctx.DoBreak()
}
func haltRetire(_ Instruction, ctx ExecContext) {
	ctx.UnrollSpeculation()
	ctx.Halt()
}

var catalogue map[Type]catalogueEntry

func init() {
	catalogue = map[Type]catalogueEntry{
		MOV: {needsALU: false, operands: movOperands, produces: movProduces, execute: movExecute, retire: movRetire},
		LEA: {needsALU: false, operands: leaOperands, produces: leaProduces, execute: leaExecute, retire: noRetire},
		NOP: {needsALU: false, operands: noOperands, produces: noProducts, execute: noExecute, retire: noRetire},
		HALT: {needsALU: false, operands: noOperands, produces: noProducts, execute: noExecute, retire: haltRetire},
		DBG:  {needsALU: false, operands: noOperands, produces: noProducts, execute: noExecute, retire: dbgRetire},
		BREAK: {needsALU: false, operands: noOperands, produces: noProducts, execute: noExecute, retire: breakRetire},
		CLF:  {needsALU: false, operands: noOperands, produces: clfProduces, execute: noExecute, retire: clfRetire},

		ADD:  {needsALU: true, operands: binaryArithOperands, produces: binaryArithProduces, execute: binaryArithExecute(alu.Add), retire: noRetire},
		SUB:  {needsALU: true, operands: binaryArithOperands, produces: binaryArithProduces, execute: binaryArithExecute(alu.Sub), retire: noRetire},
		MUL:  {needsALU: true, operands: binaryArithOperands, produces: binaryArithProduces, execute: binaryArithExecute(alu.Mul), retire: noRetire},
		DIV:  {needsALU: true, operands: binaryArithOperands, produces: binaryArithProduces, execute: divArithExecute(alu.Div), retire: noRetire},
		IMUL: {needsALU: true, operands: binaryArithOperands, produces: binaryArithProduces, execute: binaryArithExecute(alu.SignedMul), retire: noRetire},
		IDIV: {needsALU: true, operands: binaryArithOperands, produces: binaryArithProduces, execute: divArithExecute(alu.SignedDiv), retire: noRetire},
		MOD:  {needsALU: true, operands: binaryArithOperands, produces: binaryArithProduces, execute: divArithExecute(alu.Mod), retire: noRetire},
		AND:  {needsALU: true, operands: binaryArithOperands, produces: binaryArithProduces, execute: binaryArithExecute(alu.And), retire: noRetire},
		OR:   {needsALU: true, operands: binaryArithOperands, produces: binaryArithProduces, execute: binaryArithExecute(alu.Or), retire: noRetire},
		XOR:  {needsALU: true, operands: binaryArithOperands, produces: binaryArithProduces, execute: binaryArithExecute(alu.Xor), retire: noRetire},
		LSH:  {needsALU: true, operands: binaryArithOperands, produces: binaryArithProduces, execute: binaryArithExecute(alu.Lsh), retire: noRetire},
		RSH:  {needsALU: true, operands: binaryArithOperands, produces: binaryArithProduces, execute: binaryArithExecute(alu.Rsh), retire: noRetire},

		INC: {needsALU: true, operands: unaryArithOperands, produces: unaryArithProduces, execute: unaryArithExecute(func(x int64) alu.Result { return alu.Add(x, 1) }), retire: noRetire},
		DEC: {needsALU: true, operands: unaryArithOperands, produces: unaryArithProduces, execute: unaryArithExecute(func(x int64) alu.Result { return alu.Sub(x, 1) }), retire: noRetire},
		NEG: {needsALU: true, operands: unaryArithOperands, produces: unaryArithProduces, execute: unaryArithExecute(alu.Neg), retire: noRetire},
		NOT: {needsALU: true, operands: unaryArithOperands, produces: unaryArithProduces, execute: unaryArithExecute(alu.Not), retire: noRetire},

		FADD: {needsALU: true, operands: floatArithOperands, produces: floatArithProduces, execute: floatArithExecute(alu.Fadd), retire: noRetire},
		FSUB: {needsALU: true, operands: floatArithOperands, produces: floatArithProduces, execute: floatArithExecute(alu.Fsub), retire: noRetire},
		FMUL: {needsALU: true, operands: floatArithOperands, produces: floatArithProduces, execute: floatArithExecute(alu.Fmul), retire: noRetire},
		FDIV: {needsALU: true, operands: floatArithOperands, produces: floatArithProduces, execute: floatArithExecute(alu.Fdiv), retire: noRetire},

		CMP:  {needsALU: true, operands: cmpOperands, produces: cmpProduces, execute: cmpExecute, retire: noRetire},
		FCMP: {needsALU: true, operands: cmpOperands, produces: cmpProduces, execute: fcmpExecute, retire: noRetire},

		JMP:  {needsALU: false, operands: jmpOperands, produces: jmpProduces, execute: jmpExecute, retire: jmpRetire},
		JZ:   condJmpEntry, JE: condJmpEntry, JNZ: condJmpEntry, JNE: condJmpEntry,
		JG: condJmpEntry, JGE: condJmpEntry, JL: condJmpEntry, JLE: condJmpEntry,
		JA: condJmpEntry, JAE: condJmpEntry, JB: condJmpEntry, JBE: condJmpEntry,
		JO: condJmpEntry, JNO: condJmpEntry, JS: condJmpEntry, JNS: condJmpEntry,
		LOOP: {needsALU: true, operands: loopOperands, produces: loopProduces, execute: loopExecute, retire: loopRetire},
		CALL: {needsALU: false, operands: callOperands, produces: callProduces, execute: callExecute, retire: callRetire},
		RET:  {needsALU: false, operands: retOperands, produces: retProduces, execute: retExecute, retire: retRetire},

		PUSH:  {needsALU: false, operands: pushOperands, produces: pushProduces, execute: pushExecute, retire: pushRetire},
		FPUSH: {needsALU: false, operands: pushOperands, produces: pushProduces, execute: fpushExecute, retire: pushRetire},
		POP:   {needsALU: false, operands: popOperands, produces: popProduces, execute: popExecute, retire: noRetire},
		FPOP:  {needsALU: false, operands: popOperands, produces: fpopProduces, execute: fpopExecute, retire: noRetire},

		PUTCHAR: {needsALU: false, operands: putcharOperands, produces: noProducts, execute: noExecute, retire: putcharRetire},
		PUTNUM:  {needsALU: false, operands: putcharOperands, produces: noProducts, execute: noExecute, retire: putnumRetire},
		GETCHAR: {needsALU: false, operands: noOperands, produces: getcharProduces, execute: noExecute, retire: getcharRetire},

		EXT: {needsALU: true, operands: extOperands, produces: extProduces, execute: extExecute, retire: noRetire},
		NRW: {needsALU: true, operands: nrwOperands, produces: nrwProduces, execute: nrwExecute, retire: noRetire},
	}
}

// condJmpEntry is shared by all sixteen Jcc opcodes — they differ only in
// the Cond predicate carried on the Instruction value, never in dispatch
// behavior.
var condJmpEntry = catalogueEntry{
	needsALU: false,
	operands: condJmpOperands,
	produces: jmpProduces,
	execute:  condJmpExecute,
	retire:   condJmpRetire,
}
