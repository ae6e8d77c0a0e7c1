// Package debugclient implements Native, the stateful client side of the
// debug wire protocol: breakpoint/watchpoint bookkeeping, step operations,
// and the register/memory/text accessors a debugger front-end drives.
package debugclient

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/t86sim/t86/internal/isa"
	"github.com/t86sim/t86/internal/protocol"
)

// Reason is why the simulator stopped, mirroring internal/ostick's
// BreakReason on the wire but kept as this package's own type: a debugger
// front-end has no business importing the simulator's internals.
type Reason int

const (
	ExecutionBegin Reason = iota
	SoftwareBreakpoint
	HardwareBreakpoint
	SingleStep
	Halt
	CpuError
)

var reasonByName = map[string]Reason{
	"START":       ExecutionBegin,
	"SW_BKPT":     SoftwareBreakpoint,
	"HW_BKPT":     HardwareBreakpoint,
	"SINGLE_STEP": SingleStep,
	"HALT":        Halt,
	"CPU_ERROR":   CpuError,
}

var reasonNames = map[Reason]string{
	ExecutionBegin:     "START",
	SoftwareBreakpoint: "SW_BKPT",
	HardwareBreakpoint: "HW_BKPT",
	SingleStep:         "SINGLE_STEP",
	Halt:               "HALT",
	CpuError:           "CPU_ERROR",
}

func (r Reason) String() string {
	if n, ok := reasonNames[r]; ok {
		return n
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

func parseReason(s string) (Reason, error) {
	if r, ok := reasonByName[s]; ok {
		return r, nil
	}
	return 0, fmt.Errorf("debugclient: unrecognised break reason %q", s)
}

// Event is what WaitForDebugEvent returns: the break reason, plus which
// hardware watchpoint slot fired when Reason is HardwareBreakpoint.
type Event struct {
	Reason Reason
	Index  int
}

type breakpointState int

const (
	bpEnabled breakpointState = iota
	bpDisabled
)

type breakpoint struct {
	original        isa.Instruction
	state           breakpointState
	pendingReenable bool
}

// Native owns the channel to a running simulation plus every piece of
// state needed to make the wire protocol feel like a normal debugger API:
// software breakpoint bookkeeping (original instruction + enabled state),
// the four hardware watchpoint slots mirroring DR0..DR3/DR7, and the last
// reported PC for cheap GetIP calls.
type Native struct {
	ch     *protocol.Channel
	logger *slog.Logger

	breakpoints map[int64]*breakpoint

	watchUsed [4]bool
	watchAddr [4]int64

	lastIP int64
}

// New wraps an already-connected channel to a running simulation.
func New(ch *protocol.Channel) *Native {
	return &Native{
		ch:          ch,
		logger:      slog.Default(),
		breakpoints: make(map[int64]*breakpoint),
	}
}

func (n *Native) sendExpectOK(cmd string) error {
	if err := n.ch.Send(cmd); err != nil {
		return fmt.Errorf("debugclient: send %q: %w", cmd, err)
	}
	reply, err := n.ch.Receive()
	if err != nil {
		return fmt.Errorf("debugclient: reply to %q: %w", cmd, err)
	}
	if reply != "OK" {
		if strings.HasPrefix(reply, "Error:") {
			return fmt.Errorf("debugclient: %s: %s", cmd, reply)
		}
		return fmt.Errorf("debugclient: %s: unexpected reply %q", cmd, reply)
	}
	return nil
}

func (n *Native) query(cmd string) (string, error) {
	if err := n.ch.Send(cmd); err != nil {
		return "", fmt.Errorf("debugclient: send %q: %w", cmd, err)
	}
	reply, err := n.ch.Receive()
	if err != nil {
		return "", fmt.Errorf("debugclient: reply to %q: %w", cmd, err)
	}
	if strings.HasPrefix(reply, "Error:") {
		return "", fmt.Errorf("debugclient: %s: %s", cmd, reply)
	}
	return reply, nil
}

// --- WaitForDebugEvent / step / continue ----------------------------------

// WaitForDebugEvent blocks until the simulator reports a break, then
// queries and returns its reason. The server sends an unsolicited stop
// notification for every break, single-steps included, so this always
// reads one first — the resolved reason, not the command that was sent,
// decides what happens next. A software breakpoint is handled here: the
// PC is rewound by one, the original instruction restored in text, and
// the breakpoint marked pending-re-enable so ContinueExecution knows to
// re-plant BKPT after stepping past it.
func (n *Native) WaitForDebugEvent() (Event, error) {
	if _, err := n.ch.Receive(); err != nil {
		return Event{}, fmt.Errorf("debugclient: waiting for stop notification: %w", err)
	}

	replyText, err := n.query("REASON")
	if err != nil {
		return Event{}, err
	}
	reason, err := parseReason(replyText)
	if err != nil {
		return Event{}, err
	}
	ev := Event{Reason: reason}

	if ip, err := n.getNamedRegister("IP"); err == nil {
		n.lastIP = ip
	}

	switch reason {
	case SoftwareBreakpoint:
		if err := n.handleSoftwareBreakpointStop(); err != nil {
			return ev, err
		}
	case HardwareBreakpoint:
		dr7, err := n.getNamedRegister("DR7")
		if err != nil {
			return ev, err
		}
		ev.Index = int((uint64(dr7) >> 8) & 0xFF)
	}
	return ev, nil
}

func (n *Native) handleSoftwareBreakpointStop() error {
	addr := n.lastIP - 1
	bp, ok := n.breakpoints[addr]
	if !ok {
		n.logger.Warn("software breakpoint stop at untracked address", "addr", addr)
		return nil
	}
	if err := n.setNamedRegister("IP", addr); err != nil {
		return err
	}
	n.lastIP = addr
	if err := n.writeOneInstruction(addr, bp.original); err != nil {
		return err
	}
	bp.pendingReenable = true
	return nil
}

// stepOnce issues one trap-flag step and waits out the resulting break.
// The break that lands isn't necessarily a SingleStep: the stepped
// instruction can itself be a software breakpoint, a watchpoint hit, or
// HALT, so the caller must check the returned reason rather than assume it.
func (n *Native) stepOnce() (Event, error) {
	if err := n.sendExpectOK("SINGLESTEP"); err != nil {
		return Event{}, err
	}
	return n.WaitForDebugEvent()
}

// PerformSingleStep executes one instruction and waits for it to retire.
func (n *Native) PerformSingleStep() error {
	_, err := n.stepOnce()
	return err
}

// ContinueExecution re-plants BKPT at every breakpoint pending re-enable
// (atomically single-stepping past the restored original instruction
// first, so the step itself can't land back on the just-removed BKPT),
// then resumes the simulator. It does not itself wait for the next break —
// call WaitForDebugEvent for that, matching the original CLI's two
// separate calls.
func (n *Native) ContinueExecution() error {
	for addr, bp := range n.breakpoints {
		if !bp.pendingReenable {
			continue
		}
		if err := n.PerformSingleStep(); err != nil {
			return fmt.Errorf("debugclient: re-enabling breakpoint at %d: %w", addr, err)
		}
		if err := n.writeOneInstruction(addr, isa.Instruction{Op: isa.BREAK}); err != nil {
			return err
		}
		bp.pendingReenable = false
	}
	return n.sendExpectOK("CONTINUE")
}

// PerformStepOver single-steps until the PC leaves sameLine's region,
// skipping straight over CALL instructions by watching for the stack
// pointer to return to its pre-call depth rather than single-stepping
// through the callee instruction by instruction.
func (n *Native) PerformStepOver(sameLine func(ip int64) bool) (Event, error) {
	startIP := n.lastIP
	inCall := false
	var callSP int64

	for {
		if !inCall {
			atCall, err := n.currentInstructionIsCall()
			if err != nil {
				return Event{}, err
			}
			if atCall {
				if callSP, err = n.getNamedRegister("SP"); err != nil {
					return Event{}, err
				}
				inCall = true
			}
		}
		ev, err := n.stepOnce()
		if err != nil {
			return ev, err
		}
		if ev.Reason != SingleStep {
			return ev, nil
		}
		if inCall {
			sp, err := n.getNamedRegister("SP")
			if err != nil {
				return ev, err
			}
			if sp < callSP {
				continue // still inside the call
			}
			inCall = false
		}
		if n.lastIP == startIP {
			continue
		}
		if !sameLine(n.lastIP) {
			return ev, nil
		}
	}
}

// PerformStepOut single-steps until SP increases past its entry value —
// the callee's RET has executed and control is back in the caller.
func (n *Native) PerformStepOut() (Event, error) {
	startSP, err := n.getNamedRegister("SP")
	if err != nil {
		return Event{}, err
	}
	for {
		ev, err := n.stepOnce()
		if err != nil {
			return ev, err
		}
		if ev.Reason != SingleStep {
			return ev, nil
		}
		sp, err := n.getNamedRegister("SP")
		if err != nil {
			return ev, err
		}
		if sp > startSP {
			return ev, nil
		}
	}
}

func (n *Native) currentInstructionIsCall() (bool, error) {
	ins, err := n.ReadText(int(n.lastIP), 1)
	if err != nil {
		return false, err
	}
	return ins[0].Op == isa.CALL, nil
}

// --- breakpoint state machine ---------------------------------------------

// SetBreakpoint plants a software breakpoint at addr: absent -> enabled.
func (n *Native) SetBreakpoint(addr int64) error {
	if _, exists := n.breakpoints[addr]; exists {
		return fmt.Errorf("debugclient: breakpoint already set at %d", addr)
	}
	orig, err := n.ReadText(int(addr), 1)
	if err != nil {
		return err
	}
	if err := n.writeOneInstruction(addr, isa.Instruction{Op: isa.BREAK}); err != nil {
		return err
	}
	n.breakpoints[addr] = &breakpoint{original: orig[0], state: bpEnabled}
	return nil
}

// UnsetBreakpoint removes a breakpoint entirely, restoring the original
// instruction first if it was currently enabled: {enabled,disabled} -> absent.
func (n *Native) UnsetBreakpoint(addr int64) error {
	bp, ok := n.breakpoints[addr]
	if !ok {
		return fmt.Errorf("debugclient: no breakpoint at %d", addr)
	}
	if bp.state == bpEnabled && !bp.pendingReenable {
		if err := n.writeOneInstruction(addr, bp.original); err != nil {
			return err
		}
	}
	delete(n.breakpoints, addr)
	return nil
}

// DisableSoftwareBreakpoint restores the original instruction but keeps
// remembering the address: enabled -> disabled.
func (n *Native) DisableSoftwareBreakpoint(addr int64) error {
	bp, ok := n.breakpoints[addr]
	if !ok {
		return fmt.Errorf("debugclient: no breakpoint at %d", addr)
	}
	if bp.state != bpEnabled {
		return fmt.Errorf("debugclient: breakpoint at %d is not enabled", addr)
	}
	if err := n.writeOneInstruction(addr, bp.original); err != nil {
		return err
	}
	bp.state = bpDisabled
	return nil
}

// EnableSoftwareBreakpoint re-plants BKPT at a remembered address:
// disabled -> enabled.
func (n *Native) EnableSoftwareBreakpoint(addr int64) error {
	bp, ok := n.breakpoints[addr]
	if !ok {
		return fmt.Errorf("debugclient: no breakpoint at %d", addr)
	}
	if bp.state != bpDisabled {
		return fmt.Errorf("debugclient: breakpoint at %d is not disabled", addr)
	}
	if err := n.writeOneInstruction(addr, isa.Instruction{Op: isa.BREAK}); err != nil {
		return err
	}
	bp.state = bpEnabled
	return nil
}

// --- watchpoints -----------------------------------------------------------

// SetWatchpoint allocates a free DR slot for addr and enables it in DR7.
func (n *Native) SetWatchpoint(addr int64) error {
	slot := -1
	for i, used := range n.watchUsed {
		if !used {
			slot = i
			break
		}
	}
	if slot == -1 {
		return fmt.Errorf("debugclient: no free watchpoint slot")
	}
	if err := n.setNamedRegister(fmt.Sprintf("DR%d", slot), addr); err != nil {
		return err
	}
	dr7, err := n.getNamedRegister("DR7")
	if err != nil {
		return err
	}
	if err := n.setNamedRegister("DR7", dr7|(1<<uint(slot))); err != nil {
		return err
	}
	n.watchUsed[slot] = true
	n.watchAddr[slot] = addr
	return nil
}

// UnsetWatchpoint clears the DR7 bit for whichever slot is watching addr.
func (n *Native) UnsetWatchpoint(addr int64) error {
	for i, used := range n.watchUsed {
		if !used || n.watchAddr[i] != addr {
			continue
		}
		dr7, err := n.getNamedRegister("DR7")
		if err != nil {
			return err
		}
		if err := n.setNamedRegister("DR7", dr7&^(1<<uint(i))); err != nil {
			return err
		}
		n.watchUsed[i] = false
		return nil
	}
	return fmt.Errorf("debugclient: no watchpoint set at address %d", addr)
}

// --- register/memory/text accessors ---------------------------------------

func (n *Native) getNamedRegister(name string) (int64, error) {
	v, err := n.query("PEEKREGS " + name)
	if err != nil {
		return 0, err
	}
	iv, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("debugclient: PEEKREGS %s reply %q: %w", name, v, err)
	}
	return iv, nil
}

func (n *Native) setNamedRegister(name string, v int64) error {
	return n.sendExpectOK(fmt.Sprintf("POKEREGS %s %d", name, v))
}

// GetIP returns the last reported program counter without a round trip —
// it is refreshed on every WaitForDebugEvent.
func (n *Native) GetIP() int64 { return n.lastIP }

// SetIP writes the program counter and refreshes the cache.
func (n *Native) SetIP(v int64) error {
	if err := n.setNamedRegister("IP", v); err != nil {
		return err
	}
	n.lastIP = v
	return nil
}

// GetRegister and SetRegister access general-purpose register i.
func (n *Native) GetRegister(i int) (int64, error) {
	return n.getNamedRegister(fmt.Sprintf("R%d", i))
}

// GetBasePointer returns the current frame base register (BP), the anchor
// a FrameBaseRegisterOffset location resolves against.
func (n *Native) GetBasePointer() (int64, error) {
	return n.getNamedRegister("BP")
}

// GetStackPointer returns the current stack pointer register (SP).
func (n *Native) GetStackPointer() (int64, error) {
	return n.getNamedRegister("SP")
}

// GetNamedRegister exposes an arbitrary named register (e.g. "BP", "DR7")
// for callers, such as a location expression evaluator, that address
// registers by name rather than by general-purpose index.
func (n *Native) GetNamedRegister(name string) (int64, error) {
	return n.getNamedRegister(name)
}

// SetNamedRegister writes an arbitrary named register, the write-back half
// of GetNamedRegister.
func (n *Native) SetNamedRegister(name string, v int64) error {
	return n.setNamedRegister(name, v)
}

func (n *Native) SetRegister(i int, v int64) error {
	return n.setNamedRegister(fmt.Sprintf("R%d", i), v)
}

// GetFloatRegister and SetFloatRegister access float register i.
func (n *Native) GetFloatRegister(i int) (float64, error) {
	v, err := n.query(fmt.Sprintf("PEEKREGS FR%d", i))
	if err != nil {
		return 0, err
	}
	fv, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("debugclient: PEEKREGS FR%d reply %q: %w", i, v, err)
	}
	return fv, nil
}

func (n *Native) SetFloatRegister(i int, v float64) error {
	return n.sendExpectOK(fmt.Sprintf("POKEREGS FR%d %s", i, strconv.FormatFloat(v, 'g', -1, 64)))
}

// ReadMemory reads count values starting at addr through PEEKDATA.
func (n *Native) ReadMemory(addr int64, count int) ([]int64, error) {
	reply, err := n.query(fmt.Sprintf("PEEKDATA %d %d", addr, count))
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	fields := strings.Fields(reply)
	if len(fields) != count {
		return nil, fmt.Errorf("debugclient: PEEKDATA reply has %d values, want %d", len(fields), count)
	}
	vals := make([]int64, count)
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("debugclient: PEEKDATA reply %q: %w", reply, err)
		}
		vals[i] = v
	}
	return vals, nil
}

// SetMemory writes vals starting at addr through POKEDATA.
func (n *Native) SetMemory(addr int64, vals []int64) error {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return n.sendExpectOK(fmt.Sprintf("POKEDATA %d %s", addr, strings.Join(parts, " ")))
}

// ReadText reads count instructions starting at addr through PEEKTEXT.
func (n *Native) ReadText(addr, count int) ([]isa.Instruction, error) {
	reply, err := n.query(fmt.Sprintf("PEEKTEXT %d %d", addr, count))
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	lines := strings.Split(reply, "\n")
	if len(lines) != count {
		return nil, fmt.Errorf("debugclient: PEEKTEXT reply has %d lines, want %d", len(lines), count)
	}
	out := make([]isa.Instruction, count)
	for i, line := range lines {
		ins, err := isa.ParseInstruction(line)
		if err != nil {
			return nil, fmt.Errorf("debugclient: PEEKTEXT reply line %q: %w", line, err)
		}
		out[i] = ins
	}
	return out, nil
}

// WriteText replaces the instructions starting at addr, one POKETEXT per
// instruction.
func (n *Native) WriteText(addr int, instrs []isa.Instruction) error {
	for i, ins := range instrs {
		if err := n.writeOneInstruction(int64(addr+i), ins); err != nil {
			return err
		}
	}
	return nil
}

func (n *Native) writeOneInstruction(addr int64, ins isa.Instruction) error {
	return n.sendExpectOK(fmt.Sprintf("POKETEXT %d %s", addr, ins.String()))
}

// TextSize reports the program's instruction count.
func (n *Native) TextSize() (int, error) {
	reply, err := n.query("TEXTSIZE")
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(reply)
	if err != nil {
		return 0, fmt.Errorf("debugclient: TEXTSIZE reply %q: %w", reply, err)
	}
	return v, nil
}
