package ostick

import (
	"testing"

	"github.com/t86sim/t86/internal/cpu"
	"github.com/t86sim/t86/internal/isa"
)

type recordingDebugInterface struct {
	reasons   []BreakReason
	stopAfter int // Work returns false (stop) once len(reasons) reaches this; 0 means never stop
}

func (d *recordingDebugInterface) Work(reason BreakReason) bool {
	d.reasons = append(d.reasons, reason)
	if d.stopAfter > 0 && len(d.reasons) >= d.stopAfter {
		return false
	}
	return true
}

func TestRunHaltsCleanlyAndReportsBeginThenHalt(t *testing.T) {
	c := cpu.New(cpu.DefaultConfig())
	o := New(c)
	dbg := &recordingDebugInterface{}
	o.SetDebugInterface(dbg)

	ok, err := o.Run([]isa.Instruction{{Op: isa.HALT}}, nil)
	if err != nil {
		t.Fatalf("Run returned error %v, want nil", err)
	}
	if !ok {
		t.Fatalf("Run returned ok=false for a clean halt")
	}
	if len(dbg.reasons) != 2 || dbg.reasons[0] != Begin || dbg.reasons[1] != Halt {
		t.Fatalf("reasons = %v, want [Begin Halt]", dbg.reasons)
	}
}

func TestRunSurfacesDivisionByZeroAsCpuError(t *testing.T) {
	c := cpu.New(cpu.DefaultConfig())
	o := New(c)
	dbg := &recordingDebugInterface{}
	o.SetDebugInterface(dbg)

	ok, err := o.Run([]isa.Instruction{
		{Op: isa.DIV, A: isa.Reg(0), B: isa.Imm(0)},
		{Op: isa.HALT},
	}, nil)
	if err == nil {
		t.Fatalf("Run returned nil error for a division by zero")
	}
	if ok {
		t.Fatalf("Run returned ok=true for a fatal execution error")
	}
	if len(dbg.reasons) == 0 || dbg.reasons[len(dbg.reasons)-1] != CpuError {
		t.Fatalf("last reason = %v, want CpuError", dbg.reasons)
	}
}

func TestRunDispatchesSingleStepInterrupt(t *testing.T) {
	c := cpu.New(cpu.DefaultConfig())
	c.SetTrapFlag(true)
	o := New(c)
	// The recording interface never unsets the trap flag, so every tick
	// raises another single-step break; stop after Begin and the first one.
	dbg := &recordingDebugInterface{stopAfter: 2}
	o.SetDebugInterface(dbg)

	ok, err := o.Run([]isa.Instruction{{Op: isa.NOP}, {Op: isa.HALT}}, nil)
	if err != nil {
		t.Fatalf("Run returned error %v, want nil", err)
	}
	if !ok {
		t.Fatalf("Run returned ok=false")
	}
	found := false
	for _, r := range dbg.reasons {
		if r == SingleStep {
			found = true
		}
	}
	if !found {
		t.Fatalf("reasons = %v, want SingleStep present", dbg.reasons)
	}
}

func TestRunStopsWhenDebugInterfaceSignalsStop(t *testing.T) {
	c := cpu.New(cpu.DefaultConfig())
	o := New(c)
	dbg := &recordingDebugInterface{stopAfter: 1} // stop right after Begin
	o.SetDebugInterface(dbg)

	ok, err := o.Run([]isa.Instruction{{Op: isa.NOP}, {Op: isa.HALT}}, nil)
	if err != nil {
		t.Fatalf("Run returned error %v, want nil", err)
	}
	if !ok {
		t.Fatalf("Run returned ok=false after the debug interface signalled stop; want true (a clean stop is not a failure)")
	}
}

func TestRunWithoutDebugInterfaceRunsToHalt(t *testing.T) {
	c := cpu.New(cpu.DefaultConfig())
	o := New(c)

	ok, err := o.Run([]isa.Instruction{{Op: isa.HALT}}, nil)
	if err != nil || !ok {
		t.Fatalf("Run() = %v, %v; want true, nil", ok, err)
	}
}
