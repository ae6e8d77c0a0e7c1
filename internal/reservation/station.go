// Package reservation implements the out-of-order reservation station: a
// bounded pool of in-flight instructions, each progressing independently
// through preparing -> ready -> executing -> retiring while the station
// keeps retirement strictly in program (issue) order.
package reservation

import (
	"math"

	"github.com/t86sim/t86/internal/alu"
	"github.com/t86sim/t86/internal/isa"
	"github.com/t86sim/t86/internal/rat"
	"github.com/t86sim/t86/internal/writes"
)

// CPUPort is everything an Entry or the Station needs from the owning CPU.
// Defining it here (rather than importing the cpu package) keeps the
// dependency one-directional: cpu imports reservation and implements this
// interface, reservation never imports cpu.
type CPUPort interface {
	GetRAT() *rat.Table
	RenameRegister(reg isa.Register)
	RenameFloatRegister(reg isa.FloatRegister)
	// SetRegisterLogical sets a register through the CPU's current RAT,
	// used only at issue time to bump the speculative program counter.
	SetRegisterLogical(reg isa.Register, val int64)

	PhysicalRegisterReady(p rat.Physical) bool
	GetPhysicalRegister(p rat.Physical) int64
	SetPhysicalRegister(p rat.Physical, val int64)

	RegisterPendingWrite() writes.ID
	RegisterPendingWriteWithAddress(addr int64) writes.ID
	CurrentMaxWriteID() writes.ID
	SpecifyWriteAddress(id writes.ID, addr int64)
	SetWriteValue(id writes.ID, val int64)
	WriteMemory(id writes.ID)
	ReadMemory(addr int64, maxID writes.ID) (int64, bool)

	Jump(entry *Entry, taken bool)
	UnrollSpeculation(writeRat *rat.Table)

	PutChar(v int64)
	PutNum(v int64)
	GetChar() int64
	DoBreak()
	Halt()
}

// State is where an Entry sits in the issue/execute/retire pipeline.
type State int

const (
	Preparing State = iota
	Ready
	Executing
	Retiring
)

// Entry is one in-flight instruction, holding its own snapshot of the
// register allocation table (read and write sides) so that renaming other
// instructions never disturbs an entry already in flight.
type Entry struct {
	instruction       isa.Instruction
	operands          []isa.Operand
	readRat, writeRat *rat.Table
	memWriteIDs       []writes.ID
	maxWriteID        writes.ID
	cpu               CPUPort
	state             State
	remainingExecTime int
}

func newEntry(instr isa.Instruction, cpu CPUPort, readRat, writeRat *rat.Table, memWriteIDs []writes.ID, maxWriteID writes.ID, execLen int) *Entry {
	return &Entry{
		instruction:       instr,
		operands:          append([]isa.Operand(nil), instr.Operands()...),
		readRat:           readRat,
		writeRat:          writeRat,
		memWriteIDs:       memWriteIDs,
		maxWriteID:        maxWriteID,
		cpu:               cpu,
		state:             Preparing,
		remainingExecTime: execLen,
	}
}

// Close releases the entry's private RAT snapshots. Call exactly once,
// when the entry leaves the station (retired, or discarded by Clear).
func (e *Entry) Close() {
	e.readRat.Drop()
	e.writeRat.Drop()
}

func (e *Entry) State() State               { return e.state }
func (e *Entry) Instruction() isa.Instruction { return e.instruction }

// RAT returns the entry's write-side RAT snapshot — the one a branch
// misprediction restores from, since it reflects every rename this entry
// (and everything before it) performed.
func (e *Entry) RAT() *rat.Table { return e.writeRat }

// UpdatedProgramCounter reads the destination this entry's jump resolved
// to, through the entry's own writeRat — the renamed program counter this
// entry itself produced.
func (e *Entry) UpdatedProgramCounter() int64 {
	return e.cpu.GetPhysicalRegister(e.writeRat.Translate(isa.ProgramCounter))
}

// SourceProgramCounter reads the program counter this entry's jump
// instruction itself was fetched at, through readRat — the value the
// predictor needs to index its history, as opposed to the destination.
func (e *Entry) SourceProgramCounter() int64 {
	return e.cpu.GetPhysicalRegister(e.readRat.Translate(isa.ProgramCounter))
}

func (e *Entry) allOperandsFetched() bool {
	for _, o := range e.operands {
		if !o.IsFetched() {
			return false
		}
	}
	return true
}

// checkReady transitions preparing -> ready once every operand is fetched.
func (e *Entry) checkReady() {
	if e.allOperandsFetched() {
		e.state = Ready
	}
}

// startExecution transitions ready -> executing.
func (e *Entry) startExecution() {
	e.state = Executing
}

// executionTick counts down the instruction's remaining latency; once it
// hits zero it runs Execute and transitions to retiring, returning true.
func (e *Entry) executionTick() bool {
	if e.remainingExecTime != 0 {
		e.remainingExecTime--
	}
	if e.remainingExecTime == 0 {
		e.instruction.Execute(e)
		e.state = Retiring
		return true
	}
	return false
}

func (e *Entry) retire() {
	e.instruction.Retire(e)
}

func (e *Entry) registerAvailable(reg isa.Register) bool {
	return e.cpu.PhysicalRegisterReady(e.readRat.Translate(reg))
}

func (e *Entry) floatRegisterAvailable(reg isa.FloatRegister) bool {
	return e.cpu.PhysicalRegisterReady(e.readRat.TranslateFloat(reg))
}

func (e *Entry) getRegister(reg isa.Register) int64 {
	return e.cpu.GetPhysicalRegister(e.readRat.Translate(reg))
}

func (e *Entry) getFloatRegister(reg isa.FloatRegister) float64 {
	return math.Float64frombits(uint64(e.cpu.GetPhysicalRegister(e.readRat.TranslateFloat(reg))))
}

func (e *Entry) readMemory(addr int64) (int64, bool) {
	return e.cpu.ReadMemory(addr, e.maxWriteID)
}

// --- isa.ExecContext ---

func (e *Entry) Operands() []isa.Operand  { return e.operands }
func (e *Entry) PushOperand(o isa.Operand) { e.operands = append(e.operands, o) }

func (e *Entry) MemoryWriteIDs() []int {
	ids := make([]int, len(e.memWriteIDs))
	for i, id := range e.memWriteIDs {
		ids[i] = int(id)
	}
	return ids
}

func (e *Entry) SpecifyWriteAddress(id int, addr int64) { e.cpu.SpecifyWriteAddress(writes.ID(id), addr) }
func (e *Entry) SetWriteValue(id int, value int64)      { e.cpu.SetWriteValue(writes.ID(id), value) }
func (e *Entry) WriteMemory(id int)                     { e.cpu.WriteMemory(writes.ID(id)) }

func (e *Entry) SetRegister(reg isa.Register, val int64) {
	e.cpu.SetPhysicalRegister(e.writeRat.Translate(reg), val)
}

func (e *Entry) SetFloatRegister(reg isa.FloatRegister, val float64) {
	e.cpu.SetPhysicalRegister(e.writeRat.TranslateFloat(reg), int64(math.Float64bits(val)))
}

func (e *Entry) SetFlags(fl alu.Flags) { e.SetRegister(isa.Flags, int64(fl.Pack())) }

func (e *Entry) SetProgramCounter(addr int64)     { e.SetRegister(isa.ProgramCounter, addr) }
func (e *Entry) SetStackPointer(addr int64)       { e.SetRegister(isa.StackPointer, addr) }
func (e *Entry) SetStackBasePointer(addr int64)   { e.SetRegister(isa.StackBasePointer, addr) }

func (e *Entry) ProcessJump(taken bool)     { e.cpu.Jump(e, taken) }
func (e *Entry) UnrollSpeculation()         { e.cpu.UnrollSpeculation(e.writeRat) }

func (e *Entry) PutChar(v int64) { e.cpu.PutChar(v) }
func (e *Entry) PutNum(v int64)  { e.cpu.PutNum(v) }
func (e *Entry) GetChar() int64  { return e.cpu.GetChar() }
func (e *Entry) DoBreak()        { e.cpu.DoBreak() }
func (e *Entry) Halt()           { e.cpu.Halt() }

// Station is the bounded pool of in-flight Entries plus the shared ALU
// accounting they contend over.
type Station struct {
	cpu        CPUPort
	entries    []*Entry
	maxEntries int
	freeALUs   int
}

// New builds an empty station with aluCount ALUs and room for maxEntries
// concurrent in-flight instructions.
func New(cpu CPUPort, aluCount, maxEntries int) *Station {
	return &Station{cpu: cpu, maxEntries: maxEntries, freeALUs: aluCount}
}

// HasFreeEntry reports whether the station has room to issue another
// instruction.
func (s *Station) HasFreeEntry() bool {
	return len(s.entries) < s.maxEntries
}

// Entries exposes the in-flight entries in issue order, oldest first —
// used by the CPU's fetch stage to find the youngest entry when
// discarding speculation, and by tests.
func (s *Station) Entries() []*Entry { return s.entries }

// Add issues a new instruction. nextPC is the fetch-time successor
// address (pc+1, or the predicted branch target) that becomes this
// entry's renamed program counter.
func (s *Station) Add(instr isa.Instruction, nextPC int64, execLen int) {
	readRat := s.cpu.GetRAT().Clone()

	s.cpu.RenameRegister(isa.ProgramCounter)
	s.cpu.SetRegisterLogical(isa.ProgramCounter, nextPC)

	var memWriteIDs []writes.ID
	for _, p := range instr.Produces() {
		switch p.Kind {
		case isa.KindReg:
			if p.Reg != isa.ProgramCounter {
				s.cpu.RenameRegister(p.Reg)
			}
		case isa.KindFReg:
			s.cpu.RenameFloatRegister(p.FReg)
		case isa.KindMemImm:
			memWriteIDs = append(memWriteIDs, s.cpu.RegisterPendingWriteWithAddress(p.Addr))
		case isa.KindMemReg:
			memWriteIDs = append(memWriteIDs, s.cpu.RegisterPendingWrite())
		}
	}

	writeRat := s.cpu.GetRAT().Clone()
	maxWriteID := s.cpu.CurrentMaxWriteID()

	entry := newEntry(instr, s.cpu, readRat, writeRat, memWriteIDs, maxWriteID, execLen)
	entry.checkReady()
	s.entries = append(s.entries, entry)
}

// Clear discards every in-flight entry, releasing any ALU an executing
// one held. Used when a misprediction rolls back everything younger than
// the mispredicted branch.
func (s *Station) Clear() {
	for _, e := range s.entries {
		if e.state == Executing && e.instruction.NeedsALU() {
			s.freeALUs++
		}
		e.Close()
	}
	s.entries = nil
}

// FetchAndStartExecution sweeps every preparing entry's operands for
// resources that are ready right now, advances preparing entries that
// become fully fetched to ready, and starts execution for ready entries
// that can claim an ALU (or need none).
func (s *Station) FetchAndStartExecution() {
	for _, e := range s.entries {
		switch e.state {
		case Preparing:
			for i := range e.operands {
				for !e.operands[i].IsFetched() {
					req := e.operands[i].Requirement()
					stalled := false
					switch req.Kind {
					case isa.ReqRegister:
						if e.registerAvailable(req.Reg) {
							e.operands[i] = e.operands[i].Supply(e.getRegister(req.Reg))
						} else {
							stalled = true
						}
					case isa.ReqFloatRegister:
						if e.floatRegisterAvailable(req.FReg) {
							e.operands[i] = e.operands[i].SupplyFloat(e.getFloatRegister(req.FReg))
						} else {
							stalled = true
						}
					case isa.ReqMemory:
						if v, ok := e.readMemory(req.Addr); ok {
							e.operands[i] = e.operands[i].Supply(v)
						} else {
							stalled = true
						}
					}
					if stalled {
						break
					}
				}
			}
			e.checkReady()
		case Ready:
			if e.instruction.NeedsALU() {
				if s.freeALUs == 0 {
					continue
				}
				s.freeALUs--
			}
			e.startExecution()
		case Executing, Retiring:
			// Executing is driven by ExecuteAndRetire; retiring entries
			// simply wait for every older entry to retire first.
		}
	}
}

// ExecuteAndRetire advances every executing entry's countdown (running
// Execute and moving to retiring once it hits zero), then retires every
// contiguous run of retiring entries from the front of the station in
// program order.
func (s *Station) ExecuteAndRetire() {
	for _, e := range s.entries {
		if e.state == Executing {
			if e.executionTick() && e.instruction.NeedsALU() {
				s.freeALUs++
			}
		}
	}

	for len(s.entries) > 0 && s.entries[0].state == Retiring {
		e := s.entries[0]
		s.entries = s.entries[1:]
		e.retire()
		e.Close()
	}
}
