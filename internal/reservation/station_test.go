package reservation

import (
	"testing"

	"github.com/t86sim/t86/internal/isa"
	"github.com/t86sim/t86/internal/ram"
	"github.com/t86sim/t86/internal/rat"
	"github.com/t86sim/t86/internal/writes"
)

// fakeCPU is a minimal CPUPort (and rat subscriber) stand-in: physical
// registers are "ready" once written, renaming always hands out a fresh
// physical slot, and memory goes through a real writes.Manager backed by
// real RAM so store-to-load forwarding is exercised for real.
type fakeCPU struct {
	rat      *rat.Table
	values   map[rat.Physical]int64
	readyMap map[rat.Physical]bool
	nextPhys rat.Physical

	ram *ram.RAM
	w   *writes.Manager

	jumps      []bool
	unrollArgs []*rat.Table
	putChars   []int64
	putNums    []int64
	getCharVal int64
	broke      bool
	halted     bool
}

func newFakeCPU(registerCnt, floatRegisterCnt int) *fakeCPU {
	f := &fakeCPU{
		values:   map[rat.Physical]int64{},
		readyMap: map[rat.Physical]bool{},
		ram:      ram.New(1024, 2, 1),
	}
	f.w = writes.New(f.ram)
	f.rat = rat.New(f, registerCnt, floatRegisterCnt)
	f.nextPhys = rat.Physical(registerCnt + floatRegisterCnt + 4)
	// identity-mapped registers start ready.
	for i := 0; i < registerCnt; i++ {
		f.readyMap[rat.Physical(i)] = true
	}
	for i := 0; i < floatRegisterCnt; i++ {
		f.readyMap[rat.Physical(registerCnt+i)] = true
	}
	f.readyMap[f.rat.Translate(isa.ProgramCounter)] = true
	f.readyMap[f.rat.Translate(isa.StackPointer)] = true
	f.readyMap[f.rat.Translate(isa.StackBasePointer)] = true
	f.readyMap[f.rat.Translate(isa.Flags)] = true
	return f
}

func (f *fakeCPU) SubscribeRegisterRead(rat.Physical)   {}
func (f *fakeCPU) UnsubscribeRegisterRead(rat.Physical) {}

func (f *fakeCPU) GetRAT() *rat.Table { return f.rat }

func (f *fakeCPU) RenameRegister(reg isa.Register) {
	p := f.nextPhys
	f.nextPhys++
	f.readyMap[p] = false
	f.rat.Rename(reg, p)
}

func (f *fakeCPU) RenameFloatRegister(reg isa.FloatRegister) {
	p := f.nextPhys
	f.nextPhys++
	f.readyMap[p] = false
	f.rat.RenameFloat(reg, p)
}

func (f *fakeCPU) SetRegisterLogical(reg isa.Register, val int64) {
	p := f.rat.Translate(reg)
	f.values[p] = val
	f.readyMap[p] = true
}

func (f *fakeCPU) PhysicalRegisterReady(p rat.Physical) bool { return f.readyMap[p] }
func (f *fakeCPU) GetPhysicalRegister(p rat.Physical) int64  { return f.values[p] }
func (f *fakeCPU) SetPhysicalRegister(p rat.Physical, val int64) {
	f.values[p] = val
	f.readyMap[p] = true
}

func (f *fakeCPU) RegisterPendingWrite() writes.ID { return f.w.RegisterPending() }
func (f *fakeCPU) RegisterPendingWriteWithAddress(addr int64) writes.ID {
	return f.w.RegisterSpecified(addr)
}
func (f *fakeCPU) CurrentMaxWriteID() writes.ID { return f.w.CurrentMaxID() }
func (f *fakeCPU) SpecifyWriteAddress(id writes.ID, addr int64) { f.w.SpecifyAddress(id, addr) }
func (f *fakeCPU) SetWriteValue(id writes.ID, val int64)        { f.w.SetValue(id, val) }
func (f *fakeCPU) WriteMemory(id writes.ID)                     { f.w.StartWriting(id) }
func (f *fakeCPU) ReadMemory(addr int64, maxID writes.ID) (int64, bool) {
	if f.w.HasUnspecifiedWrites(maxID) {
		return 0, false
	}
	v, ok, found := f.w.PreviousWrite(addr, maxID)
	if found {
		return v, ok
	}
	raw, err := f.ram.Get(uint64(addr))
	if err != nil {
		return 0, false
	}
	return int64(raw), true
}

func (f *fakeCPU) Jump(entry *Entry, taken bool)            { f.jumps = append(f.jumps, taken) }
func (f *fakeCPU) UnrollSpeculation(writeRat *rat.Table)     { f.unrollArgs = append(f.unrollArgs, writeRat) }
func (f *fakeCPU) PutChar(v int64)                           { f.putChars = append(f.putChars, v) }
func (f *fakeCPU) PutNum(v int64)                            { f.putNums = append(f.putNums, v) }
func (f *fakeCPU) GetChar() int64                            { return f.getCharVal }
func (f *fakeCPU) DoBreak()                                  { f.broke = true }
func (f *fakeCPU) Halt()                                     { f.halted = true }

// runUntilEmpty ticks fetch/execute/retire until the station drains, with
// a generous bound so a stuck test fails instead of hanging.
func runUntilEmpty(t *testing.T, s *Station) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		if len(s.Entries()) == 0 {
			return
		}
		s.FetchAndStartExecution()
		s.ExecuteAndRetire()
	}
	t.Fatalf("station did not drain within bound")
}

func TestAddInstructionIssuesExecutesRetires(t *testing.T) {
	cpu := newFakeCPU(4, 0)
	cpu.values[cpu.rat.Translate(isa.Register(0))] = 10

	s := New(cpu, 1, 4)
	ins := isa.Instruction{Op: isa.ADD, A: isa.Reg(0), B: isa.Imm(5)}
	s.Add(ins, 1, 0)

	runUntilEmpty(t, s)

	finalPhys := cpu.rat.Translate(isa.Register(0))
	if got := cpu.values[finalPhys]; got != 15 {
		t.Fatalf("R0 after ADD R0, 5 (R0=10) = %d, want 15", got)
	}
}

func TestTwoIndependentAddsBothRetireInOrder(t *testing.T) {
	cpu := newFakeCPU(4, 0)
	cpu.values[cpu.rat.Translate(isa.Register(0))] = 1
	cpu.values[cpu.rat.Translate(isa.Register(1))] = 2

	s := New(cpu, 2, 4)
	s.Add(isa.Instruction{Op: isa.ADD, A: isa.Reg(0), B: isa.Imm(100)}, 1, 0)
	s.Add(isa.Instruction{Op: isa.ADD, A: isa.Reg(1), B: isa.Imm(200)}, 2, 0)

	runUntilEmpty(t, s)

	if got := cpu.values[cpu.rat.Translate(isa.Register(0))]; got != 101 {
		t.Fatalf("R0 = %d, want 101", got)
	}
	if got := cpu.values[cpu.rat.Translate(isa.Register(1))]; got != 202 {
		t.Fatalf("R1 = %d, want 202", got)
	}
}

func TestMovToMemoryThenLoadForwardsThroughWritesManager(t *testing.T) {
	cpu := newFakeCPU(2, 0)
	cpu.values[cpu.rat.Translate(isa.Register(0))] = 500 // base address
	cpu.values[cpu.rat.Translate(isa.Register(1))] = 77  // value to store

	s := New(cpu, 1, 4)
	// MOV [R0], R1
	s.Add(isa.Instruction{Op: isa.MOV, A: isa.MemReg(0), B: isa.Reg(1)}, 1, 0)
	runUntilEmpty(t, s)

	got, err := cpu.ram.Get(500)
	if err != nil || int64(got) != 77 {
		t.Fatalf("RAM[500] = %d, %v; want 77, nil", got, err)
	}
}

func TestHasFreeEntryReflectsCapacity(t *testing.T) {
	cpu := newFakeCPU(2, 0)
	s := New(cpu, 1, 1)
	if !s.HasFreeEntry() {
		t.Fatalf("fresh station should have a free entry")
	}
	s.Add(isa.Instruction{Op: isa.NOP}, 1, 0)
	if s.HasFreeEntry() {
		t.Fatalf("station at capacity should report no free entry")
	}
}

func TestClearReleasesALUsAndDropsEntries(t *testing.T) {
	cpu := newFakeCPU(2, 0)
	s := New(cpu, 1, 4)
	s.Add(isa.Instruction{Op: isa.ADD, A: isa.Reg(0), B: isa.Imm(1)}, 1, 5)
	s.FetchAndStartExecution() // resolves R0's value, entry becomes ready
	s.FetchAndStartExecution() // claims the one ALU, enters executing

	s.Clear()

	if len(s.Entries()) != 0 {
		t.Fatalf("Clear should empty the station")
	}
	if s.freeALUs != 1 {
		t.Fatalf("Clear should release the ALU the executing entry held, freeALUs = %d", s.freeALUs)
	}
}
