// Package cpu ties the ALU, RAT, RAM, pending-write manager, branch
// predictor, and reservation station into the cycle-accurate superscalar
// core: a two-slot fetch/decode pipeline feeding the reservation station,
// speculative execution with misprediction rollback, and the debug
// registers/interrupt register a remote debugger drives.
package cpu

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/t86sim/t86/internal/branch"
	"github.com/t86sim/t86/internal/isa"
	"github.com/t86sim/t86/internal/ram"
	"github.com/t86sim/t86/internal/rat"
	"github.com/t86sim/t86/internal/reservation"
	"github.com/t86sim/t86/internal/writes"
)

// Config holds every tunable the teacher's Cpu::Config singleton exposed as
// a command-line flag with a default. Here it is a plain value passed to
// New rather than process-global state threaded through a config-file
// lookup — there is nothing in this module that benefits from the extra
// indirection a singleton buys the original.
type Config struct {
	RegisterCnt               int
	FloatRegisterCnt          int
	ALUCnt                    int
	ReservationStationEntries int
	RAMSize                   int
	RAMGates                  int
	RAMLatency                int
}

// DefaultConfig mirrors Cpu::Config's defaults.
func DefaultConfig() Config {
	return Config{
		RegisterCnt:               10,
		FloatRegisterCnt:          5,
		ALUCnt:                    1,
		ReservationStationEntries: 2,
		RAMSize:                   1024,
		RAMGates:                  4,
		RAMLatency:                1,
	}
}

// ExecutionLength returns how many ticks an instruction spends executing
// before it retires. MOV Reg,Imm is the one documented override; every
// other instruction takes the default length.
func (Config) ExecutionLength(ins isa.Instruction) int {
	if ins.Op == isa.MOV && ins.A.Kind == isa.KindReg && ins.B.Kind == isa.KindImm {
		return 2
	}
	return 3
}

// maxInstructionOperands and specialRegistersCnt size the physical register
// file generously enough that no in-flight entry ever runs out of fresh
// physical registers to rename into.
const (
	maxInstructionOperands     = 3
	specialRegistersCnt        = 4
	possibleRenamedRegisterCnt = maxInstructionOperands + specialRegistersCnt
)

type physReg struct {
	value           int64
	ready           bool
	subscribedReads int
}

// latch is a single in-flight (instruction, pc) pair sitting in the fetch
// or decode slot, where pc is the successor address this instruction will
// rename the program counter to once issued.
type latch struct {
	instruction isa.Instruction
	pc          int64
}

// CPU is the core: a physical register file addressed through a RAT, the
// pending-write manager and reservation station built on top of it, and
// the fetch/decode latches and speculative PC driving instruction supply.
type CPU struct {
	config Config

	program []isa.Instruction

	speculativePC int64
	fetch         *latch
	decode        *latch

	station   *reservation.Station
	predictor branch.Predictor

	registerCnt, floatRegisterCnt int
	registers                     []physReg
	rat                           *rat.Table

	ram    *ram.RAM
	writes *writes.Manager

	predictions []int64

	breakHandler func(*CPU)
	halted       bool

	interrupt     int
	trapFlag      bool
	singleStepped bool
	dr            [4]int64
	dr7           uint64

	stdout io.Writer
	stdin  *bufio.Reader
}

// New builds a CPU and its whole register/memory/pipeline apparatus from
// cfg, with every general-purpose register, PC, SP, BP, and Flags zeroed
// except SP/BP, which start at the top of RAM.
func New(cfg Config) *CPU {
	physCnt := specialRegistersCnt + cfg.RegisterCnt + cfg.FloatRegisterCnt +
		cfg.ReservationStationEntries*possibleRenamedRegisterCnt

	c := &CPU{
		config:           cfg,
		registerCnt:      cfg.RegisterCnt,
		floatRegisterCnt: cfg.FloatRegisterCnt,
		registers:        make([]physReg, physCnt),
		ram:              ram.New(cfg.RAMSize, cfg.RAMGates, cfg.RAMLatency),
		predictor:        branch.Naive{},
		stdout:           os.Stdout,
		stdin:            bufio.NewReader(os.Stdin),
	}
	c.writes = writes.New(c.ram)
	c.rat = rat.New(c, cfg.RegisterCnt, cfg.FloatRegisterCnt)
	c.station = reservation.New(c, cfg.ALUCnt, cfg.ReservationStationEntries)

	for i := 0; i < cfg.RegisterCnt; i++ {
		c.SetRegisterLogical(isa.Register(i), 0)
	}
	c.SetRegisterLogical(isa.ProgramCounter, 0)
	c.SetRegisterLogical(isa.Flags, 0)
	c.SetRegisterLogical(isa.StackPointer, int64(c.ram.Size()))
	c.SetRegisterLogical(isa.StackBasePointer, int64(c.ram.Size()))
	return c
}

// SetPredictor swaps the branch predictor. Call before Start; changing it
// mid-run would desynchronize the predictions queue from whichever
// predictor actually produced each guess.
func (c *CPU) SetPredictor(p branch.Predictor) { c.predictor = p }

// SetBreakHandler installs a callback invoked synchronously whenever a
// BREAK instruction retires, mirroring the original's connectBreakHandler
// — used by the debug server to notice a software breakpoint without
// polling the interrupt register itself.
func (c *CPU) SetBreakHandler(fn func(*CPU)) { c.breakHandler = fn }

// SetIO redirects PUTCHAR/PUTNUM/GETCHAR to stdout/stdin other than the
// process's own, for tests and for the debug server's own console.
func (c *CPU) SetIO(stdout io.Writer, stdin io.Reader) {
	c.stdout = stdout
	c.stdin = bufio.NewReader(stdin)
}

// Start loads the program (Harvard-style: a separate instruction store
// from data RAM) and the initial contents of data RAM, then resets the
// speculative PC to the program's entry point.
func (c *CPU) Start(program []isa.Instruction, data []int64) {
	c.program = program
	for i, v := range data {
		if err := c.ram.Set(uint64(i), uint64(v)); err != nil {
			panic(err)
		}
	}
	c.speculativePC = 0
}

// Tick runs one clock cycle: clear the interrupt register, advance RAM and
// the pending-write log, execute and retire, check halted/single-step,
// then — if nothing stopped it — drive the reservation station and the
// fetch/decode latches forward by one stage.
func (c *CPU) Tick() {
	c.interrupt = 0

	c.ram.Tick()
	c.writes.RemoveFinished()

	c.station.ExecuteAndRetire()

	if c.halted {
		return
	}
	if c.trapFlag {
		c.singleStepped = true
		if c.interrupt == 0 {
			c.interrupt = 1
		}
	}
	if c.interrupt != 0 {
		return
	}

	c.station.FetchAndStartExecution()

	if c.decode != nil {
		if c.station.HasFreeEntry() {
			c.station.Add(c.decode.instruction, c.decode.pc, c.config.ExecutionLength(c.decode.instruction))
			c.decode = nil
		}
	}

	if c.decode == nil {
		c.decode, c.fetch = c.fetch, nil
	}

	if c.fetch == nil {
		c.fetch = c.fetchInstruction()
	}
}

// fetchInstruction reads the instruction at the speculative PC, consulting
// the branch predictor and pushing a prediction for every jump, else just
// advancing the speculative PC by one. A speculative PC outside the program
// fetches nothing and returns nil: fetch runs ahead of retirement, so it
// reaches past a final HALT before that HALT retires.
func (c *CPU) fetchInstruction() *latch {
	if c.speculativePC < 0 || int(c.speculativePC) >= len(c.program) {
		return nil
	}
	oldPC := c.speculativePC
	instr := c.program[oldPC]
	if instr.IsJump() {
		c.speculativePC = c.predictor.NextGuess(oldPC, instr, oldPC+1)
		c.predictions = append(c.predictions, c.speculativePC)
	} else {
		c.speculativePC++
	}
	return &latch{instruction: instr, pc: oldPC + 1}
}

// --- reservation.CPUPort -------------------------------------------------

func (c *CPU) GetRAT() *rat.Table { return c.rat }

func (c *CPU) nextFreeRegister() rat.Physical {
	for i := range c.registers {
		p := rat.Physical(i)
		if c.rat.IsUnmapped(p) && c.registers[i].subscribedReads == 0 {
			return p
		}
	}
	panic("cpu: no free physical register — increase ReservationStationEntries or RegisterCnt")
}

func (c *CPU) RenameRegister(reg isa.Register) {
	p := c.nextFreeRegister()
	c.rat.Rename(reg, p)
	c.registers[p].ready = false
}

func (c *CPU) RenameFloatRegister(reg isa.FloatRegister) {
	p := c.nextFreeRegister()
	c.rat.RenameFloat(reg, p)
	c.registers[p].ready = false
}

func (c *CPU) SetRegisterLogical(reg isa.Register, val int64) {
	c.SetPhysicalRegister(c.rat.Translate(reg), val)
}

func (c *CPU) PhysicalRegisterReady(p rat.Physical) bool { return c.registers[p].ready }
func (c *CPU) GetPhysicalRegister(p rat.Physical) int64  { return c.registers[p].value }
func (c *CPU) SetPhysicalRegister(p rat.Physical, val int64) {
	c.registers[p].value = val
	c.registers[p].ready = true
}

func (c *CPU) RegisterPendingWrite() writes.ID { return c.writes.RegisterPending() }
func (c *CPU) RegisterPendingWriteWithAddress(addr int64) writes.ID {
	return c.writes.RegisterSpecified(addr)
}
func (c *CPU) CurrentMaxWriteID() writes.ID                     { return c.writes.CurrentMaxID() }
func (c *CPU) SpecifyWriteAddress(id writes.ID, addr int64)     { c.writes.SpecifyAddress(id, addr) }
func (c *CPU) SetWriteValue(id writes.ID, val int64)            { c.writes.SetValue(id, val) }

// WriteMemory commits a write to RAM and runs the watchpoint check the
// commit must trigger.
func (c *CPU) WriteMemory(id writes.ID) {
	addr := c.writes.Address(id)
	c.writes.StartWriting(id)
	c.checkWatchpoints(addr)
}

// checkWatchpoints sets interrupt = 2 and records the hit slot in DR7's
// high byte if addr matches an enabled debug register.
func (c *CPU) checkWatchpoints(addr int64) {
	for i := 0; i < 4; i++ {
		if c.dr7&(1<<uint(i)) == 0 {
			continue
		}
		if c.dr[i] == addr {
			c.dr7 = (c.dr7 &^ (0xFF << 8)) | (uint64(i) << 8)
			c.interrupt = 2
		}
	}
}

func (c *CPU) ReadMemory(addr int64, maxID writes.ID) (int64, bool) {
	if c.writes.HasUnspecifiedWrites(maxID) {
		return 0, false
	}
	v, ok, found := c.writes.PreviousWrite(addr, maxID)
	if found {
		// Either forward the known value or stall: either way an
		// in-flight write to addr exists, so RAM must not be read.
		return v, ok
	}
	raw, err := c.ram.Get(uint64(addr))
	if err != nil {
		return 0, false
	}
	return int64(raw), true
}

func (c *CPU) Jump(entry *reservation.Entry, taken bool) {
	destination := entry.UpdatedProgramCounter()
	source := entry.SourceProgramCounter()
	if taken {
		c.predictor.RegisterBranchTaken(source, destination)
	} else {
		c.predictor.RegisterBranchNotTaken(source)
	}
	c.checkBranchPrediction(entry, destination)
}

func (c *CPU) checkBranchPrediction(entry *reservation.Entry, destination int64) {
	predicted := c.predictions[0]
	c.predictions = c.predictions[1:]
	if predicted != destination {
		c.UnrollSpeculation(entry.RAT())
	}
}

// UnrollSpeculation discards everything younger than entry's branch: the
// reservation station, the fetch/decode latches, the predictions queue,
// and every not-yet-committed memory write, then restores the RAT from an
// independent clone of writeRat so that entry's own later Close() (which
// drops writeRat's subscriptions) cannot disturb the CPU's adopted copy.
func (c *CPU) UnrollSpeculation(writeRat *rat.Table) {
	c.flushPipeline()
	c.rat.Drop()
	c.rat = writeRat.Clone()
	c.speculativePC = c.GetPhysicalRegister(c.rat.Translate(isa.ProgramCounter))
	c.writes.RemovePending()
}

func (c *CPU) flushPipeline() {
	c.station.Clear()
	c.predictions = nil
	c.fetch = nil
	c.decode = nil
}

func (c *CPU) PutChar(v int64) { fmt.Fprintf(c.stdout, "%c", rune(v)) }
func (c *CPU) PutNum(v int64)  { fmt.Fprintf(c.stdout, "%d", v) }

// GetChar reads one byte from stdin, returning 0 on EOF or error rather
// than blocking the pipeline's retire stage forever.
func (c *CPU) GetChar() int64 {
	b, err := c.stdin.ReadByte()
	if err != nil {
		return 0
	}
	return int64(b)
}

func (c *CPU) DoBreak() {
	c.interrupt = 3
	if c.breakHandler != nil {
		c.breakHandler(c)
	}
}

func (c *CPU) Halt() { c.halted = true }

// --- rat subscriber -------------------------------------------------------

func (c *CPU) SubscribeRegisterRead(p rat.Physical) { c.registers[p].subscribedReads++ }

func (c *CPU) UnsubscribeRegisterRead(p rat.Physical) {
	if c.registers[p].subscribedReads == 0 {
		panic("cpu: unsubscribe of register with zero subscribers")
	}
	c.registers[p].subscribedReads--
}

// --- debug-plane accessors (bypass the pipeline entirely) ----------------

func (c *CPU) Halted() bool         { return c.halted }
func (c *CPU) Interrupt() int       { return c.interrupt }
func (c *CPU) SingleStepped() bool  { return c.singleStepped }
func (c *CPU) ClearSingleStepped()  { c.singleStepped = false }
func (c *CPU) SetTrapFlag(on bool)  { c.trapFlag = on }
func (c *CPU) TrapFlag() bool       { return c.trapFlag }

func (c *CPU) DR(i int) int64      { return c.dr[i] }
func (c *CPU) SetDR(i int, v int64) { c.dr[i] = v }
func (c *CPU) DR7() uint64         { return c.dr7 }
func (c *CPU) SetDR7(v uint64)     { c.dr7 = v }

// ProgramCounter returns the architectural (non-speculative) PC, the
// address the last retired instruction actually committed.
func (c *CPU) ProgramCounter() int64 { return c.GetRegister(isa.ProgramCounter) }

// SpeculativePC returns the fetch stage's current guess, which may be
// ahead of ProgramCounter() while jumps are still in flight.
func (c *CPU) SpeculativePC() int64 { return c.speculativePC }

func (c *CPU) GetRegister(reg isa.Register) int64 {
	return c.GetPhysicalRegister(c.rat.Translate(reg))
}

func (c *CPU) SetRegister(reg isa.Register, v int64) { c.SetRegisterLogical(reg, v) }

func (c *CPU) GetFloatRegister(reg isa.FloatRegister) float64 {
	return math.Float64frombits(uint64(c.GetPhysicalRegister(c.rat.TranslateFloat(reg))))
}

func (c *CPU) SetFloatRegister(reg isa.FloatRegister, v float64) {
	c.SetPhysicalRegister(c.rat.TranslateFloat(reg), int64(math.Float64bits(v)))
}

// GetMemory and SetMemory are the synchronous debug-only RAM accessors
// (PEEKDATA/POKEDATA) that bypass the gating model entirely.
func (c *CPU) GetMemory(addr int64) int64 {
	v, err := c.ram.Get(uint64(addr))
	if err != nil {
		panic(err)
	}
	return int64(v)
}

func (c *CPU) SetMemory(addr int64, v int64) {
	if err := c.ram.Set(uint64(addr), uint64(v)); err != nil {
		panic(err)
	}
}

// RegisterCount and FloatRegisterCount report the logical register counts
// this CPU was configured with, for the debugger's PEEKREGS/POKEREGS range
// and the expression evaluator's register-name resolution.
func (c *CPU) RegisterCount() int      { return c.registerCnt }
func (c *CPU) FloatRegisterCount() int { return c.floatRegisterCnt }

// ProgramLen, GetInstruction, and SetInstruction are the debug server's
// PEEKTEXT/POKETEXT/TEXTSIZE window onto the instruction store. SetInstruction
// is how a software breakpoint is planted: the debugger swaps the target
// slot for a BKPT and remembers the original to restore on removal.
func (c *CPU) ProgramLen() int { return len(c.program) }

func (c *CPU) GetInstruction(i int) isa.Instruction {
	if i < 0 || i >= len(c.program) {
		panic(fmt.Sprintf("cpu: instruction index %d out of range [0,%d)", i, len(c.program)))
	}
	return c.program[i]
}

func (c *CPU) SetInstruction(i int, ins isa.Instruction) {
	if i < 0 || i >= len(c.program) {
		panic(fmt.Sprintf("cpu: instruction index %d out of range [0,%d)", i, len(c.program)))
	}
	c.program[i] = ins
}
