// Package ostick implements the run loop that owns a CPU and an optional
// debug interface: tick until halted or faulted, translate the interrupt
// register into a break reason, and hand control to the debugger on every
// one.
package ostick

import (
	"fmt"
	"log/slog"

	"github.com/t86sim/t86/internal/cpu"
	"github.com/t86sim/t86/internal/isa"
)

// BreakReason is why control passed to the debug interface.
type BreakReason int

const (
	Begin BreakReason = iota
	SoftwareBreakpoint
	HardwareBreakpoint
	SingleStep
	Halt
	// CpuError is a fatal execution fault (division by zero) surfaced as a
	// break instead of a silent wrong answer or a crashed process.
	CpuError
)

var breakReasonNames = map[BreakReason]string{
	Begin:               "START",
	SoftwareBreakpoint:  "SW_BKPT",
	HardwareBreakpoint:  "HW_BKPT",
	SingleStep:          "SINGLE_STEP",
	Halt:                "HALT",
	CpuError:            "CPU_ERROR",
}

func (r BreakReason) String() string {
	if n, ok := breakReasonNames[r]; ok {
		return n
	}
	return fmt.Sprintf("BreakReason(%d)", int(r))
}

// DebugInterface is handed control on every break. Work returns whether the
// OS should keep running (true) or stop (false) — false models the
// debugger's channel hitting EOF.
type DebugInterface interface {
	Work(reason BreakReason) bool
}

// OS ties a CPU to an optional debug interface and drives the tick loop.
type OS struct {
	cpu    *cpu.CPU
	debug  DebugInterface
	stop   bool
	logger *slog.Logger
}

// New builds an OS around c. Logging defaults to slog's current default
// handler; install a logging.LogHandler as the process default before
// calling New to route these through it.
func New(c *cpu.CPU) *OS {
	return &OS{cpu: c, logger: slog.Default()}
}

// SetDebugInterface attaches (or detaches, with nil) the debug interface
// every break is reported to.
func (o *OS) SetDebugInterface(d DebugInterface) { o.debug = d }

// Run loads program and data, announces Begin, then ticks the CPU until it
// halts (ok=true), a fatal execution error occurs (ok=false, err set), or
// the debug interface signals stop (ok=true, err=nil).
func (o *OS) Run(program []isa.Instruction, data []int64) (ok bool, err error) {
	o.cpu.Start(program, data)
	o.debuggerMessage(Begin)
	o.logger.Info("starting execution")

	for {
		if execErr := o.tick(); execErr != nil {
			o.logger.Error("fatal execution error", "err", execErr)
			o.debuggerMessage(CpuError)
			return false, execErr
		}

		if o.cpu.Halted() {
			o.logger.Info("halt")
			o.debuggerMessage(Halt)
			return true, nil
		}

		if n := o.cpu.Interrupt(); n > 0 {
			o.logger.Debug("interrupt occurred", "n", n)
			if err := o.dispatchInterrupt(n); err != nil {
				return false, err
			}
		}

		if o.stop {
			o.logger.Info("stop is set, ending")
			return true, nil
		}
	}
}

// tick runs exactly one CPU cycle, recovering a fatal *isa.ExecutionError
// into a plain error return. Any other panic (a programmer/config fault
// such as running out of physical registers) is not a CpuError and is
// allowed to keep propagating.
func (o *OS) tick() (execErr error) {
	defer func() {
		if r := recover(); r != nil {
			if ee, isExecErr := r.(*isa.ExecutionError); isExecErr {
				execErr = ee
				return
			}
			panic(r)
		}
	}()
	o.cpu.Tick()
	return nil
}

func (o *OS) dispatchInterrupt(n int) error {
	switch n {
	case 3:
		o.debuggerMessage(SoftwareBreakpoint)
	case 2:
		o.debuggerMessage(HardwareBreakpoint)
	case 1:
		o.debuggerMessage(SingleStep)
	default:
		return fmt.Errorf("ostick: no interrupt handler for interrupt %d", n)
	}
	return nil
}

// debuggerMessage forwards reason to the attached debug interface and
// records whether it asked to stop. With no debug interface attached, the
// break is logged and otherwise ignored — matching the original's
// "debugger not connected" warning rather than a fatal error, since running
// headless (no debugger attached) is a supported mode.
func (o *OS) debuggerMessage(reason BreakReason) {
	if o.debug == nil {
		o.logger.Warn("break occurred but no debugger is connected", "reason", reason)
		return
	}
	o.stop = !o.debug.Work(reason)
}
