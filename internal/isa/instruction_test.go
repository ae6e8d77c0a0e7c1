package isa

import (
	"testing"

	"github.com/t86sim/t86/internal/alu"
)

type writeSlot struct {
	addr      int64
	value     int64
	specified bool
	written   bool
}

// fakeContext is a minimal ExecContext stand-in — just enough to drive
// execute()/retire() without the reservation station around it.
type fakeContext struct {
	ops         []Operand
	regs        map[Register]int64
	fregs       map[FloatRegister]float64
	flags       alu.Flags
	pc          int64
	sp          int64
	bp          int64
	writes      map[int]writeSlot
	jumpTaken   *bool
	unrolled    bool
	halted      bool
	broke       bool
	putChars    []int64
	putNums     []int64
	getCharNext int64
}

func newFakeContext(ops ...Operand) *fakeContext {
	return &fakeContext{
		ops:    ops,
		regs:   map[Register]int64{},
		fregs:  map[FloatRegister]float64{},
		writes: map[int]writeSlot{0: {}},
	}
}

func (f *fakeContext) Operands() []Operand          { return f.ops }
func (f *fakeContext) PushOperand(o Operand)        { f.ops = append(f.ops, o) }
func (f *fakeContext) MemoryWriteIDs() []int { return []int{0} }
func (f *fakeContext) SpecifyWriteAddress(id int, addr int64) {
	w := f.writes[id]
	w.addr = addr
	w.specified = true
	f.writes[id] = w
}
func (f *fakeContext) SetWriteValue(id int, value int64) {
	w := f.writes[id]
	w.value = value
	f.writes[id] = w
}
func (f *fakeContext) WriteMemory(id int) {
	w := f.writes[id]
	w.written = true
	f.writes[id] = w
}
func (f *fakeContext) SetRegister(r Register, v int64)           { f.regs[r] = v }
func (f *fakeContext) SetFloatRegister(r FloatRegister, v float64) { f.fregs[r] = v }
func (f *fakeContext) SetFlags(fl alu.Flags)                     { f.flags = fl }
func (f *fakeContext) SetProgramCounter(addr int64)              { f.pc = addr }
func (f *fakeContext) SetStackPointer(addr int64)                { f.sp = addr }
func (f *fakeContext) SetStackBasePointer(addr int64)            { f.bp = addr }
func (f *fakeContext) ProcessJump(taken bool)                    { f.jumpTaken = &taken }
func (f *fakeContext) UnrollSpeculation()                        { f.unrolled = true }
func (f *fakeContext) PutChar(v int64)                           { f.putChars = append(f.putChars, v) }
func (f *fakeContext) PutNum(v int64)                            { f.putNums = append(f.putNums, v) }
func (f *fakeContext) GetChar() int64                            { return f.getCharNext }
func (f *fakeContext) DoBreak()                                  { f.broke = true }
func (f *fakeContext) Halt()                                     { f.halted = true }

func TestAddTwoOperandForm(t *testing.T) {
	ins := Instruction{Op: ADD, A: Reg(0), B: Imm(5)}
	ctx := newFakeContext(Imm(10), Imm(5))
	ins.Execute(ctx)
	if ctx.regs[0] != 15 {
		t.Fatalf("ADD R0, 5 with R0=10: regs[0] = %d, want 15", ctx.regs[0])
	}
}

func TestAddThreeOperandRiscForm(t *testing.T) {
	ins := Instruction{Op: ADD, RiscLike: true, A: Reg(1), B: Reg(2), RiscDest: 0}
	ctx := newFakeContext(Imm(4), Imm(6))
	ins.Execute(ctx)
	if ctx.regs[0] != 10 {
		t.Fatalf("ADD R0, R1, R2 with R1=4,R2=6: regs[0] = %d, want 10; dest must not be read", ctx.regs[0])
	}
	if _, touched := ctx.regs[1]; touched {
		t.Fatalf("3-operand ADD must not write its read-only source registers")
	}
}

func TestMovToMemoryRegisterOffset(t *testing.T) {
	// MOV [R0 + 4], R1
	ins := Instruction{Op: MOV, A: MemRegImm(0, 4), B: Reg(1)}
	ctx := newFakeContext(Imm(99), Imm(1000)) // value_, then R0
	ins.Execute(ctx)
	ins.Retire(ctx)
	w := ctx.writes[0]
	if !w.specified || w.addr != 1004 || w.value != 99 || !w.written {
		t.Fatalf("MOV [R0+4], R1 with R0=1000: write = %+v, want addr 1004 value 99", w)
	}
}

func TestConditionalJumpTakenMatchesPrediction(t *testing.T) {
	ins := Instruction{Op: JE, A: Imm(200), Cond: func(f alu.Flags) bool { return f.Zero }}
	flags := alu.Flags{Zero: true}
	ctx := newFakeContext(Imm(200), Imm(int64(flags.Pack())))
	ins.Execute(ctx)
	if ctx.pc != 200 {
		t.Fatalf("JE taken should set pc = 200, got %d", ctx.pc)
	}
	ins.Retire(ctx)
	if ctx.jumpTaken == nil || !*ctx.jumpTaken {
		t.Fatalf("JE with zero flag set should report jump taken")
	}
}

func TestLoopDecrementsAndPushesCounterOperand(t *testing.T) {
	ins := Instruction{Op: LOOP, A: Reg(0), B: Imm(50)}
	ctx := newFakeContext(Imm(3), Imm(50))
	ins.Execute(ctx)
	if ctx.regs[0] != 2 {
		t.Fatalf("LOOP should decrement R0 to 2, got %d", ctx.regs[0])
	}
	if ctx.pc != 50 {
		t.Fatalf("LOOP with nonzero counter should jump, pc = %d, want 50", ctx.pc)
	}
	if len(ctx.ops) != 3 || ctx.ops[2].Value != 2 {
		t.Fatalf("LOOP execute() should push the decremented value as a third operand for retire")
	}
	ins.Retire(ctx)
	if ctx.jumpTaken == nil || !*ctx.jumpTaken {
		t.Fatalf("LOOP retire should report jump taken when counter != 0")
	}
}

func TestHaltUnrollsSpeculationAndHalts(t *testing.T) {
	ins := Instruction{Op: HALT}
	ctx := newFakeContext()
	ins.Retire(ctx)
	if !ctx.unrolled || !ctx.halted {
		t.Fatalf("HALT retire must unroll speculation and halt")
	}
}

func TestExtNrwRoundTrip(t *testing.T) {
	ext := Instruction{Op: EXT, A: FReg(0), B: Reg(1)}
	ctx := newFakeContext(Imm(7))
	ext.Execute(ctx)
	if ctx.fregs[0] != 7.0 {
		t.Fatalf("EXT should widen R1=7 into FR0=7.0, got %v", ctx.fregs[0])
	}

	nrw := Instruction{Op: NRW, A: Reg(2), B: FReg(0)}
	ctx2 := newFakeContext(FloatImm(3.9))
	nrw.Execute(ctx2)
	if ctx2.regs[2] != 3 {
		t.Fatalf("NRW should narrow FR0=3.9 into R2=3, got %d", ctx2.regs[2])
	}
}
