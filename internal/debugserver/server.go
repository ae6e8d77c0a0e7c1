// Package debugserver is the in-simulation half of the wire protocol: a
// command loop invoked on every break that serves PEEKREGS/POKEREGS,
// PEEKDATA/POKEDATA, PEEKTEXT/POKETEXT, REASON, TEXTSIZE, CONTINUE, and
// SINGLESTEP over an internal/protocol.Channel.
package debugserver

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/t86sim/t86/internal/cpu"
	"github.com/t86sim/t86/internal/isa"
	"github.com/t86sim/t86/internal/ostick"
	"github.com/t86sim/t86/internal/protocol"
)

// stoppedMessage is sent unsolicited on every break, single-steps
// included. A step can land on a software breakpoint, a watchpoint, or
// HALT instead of completing as a plain SingleStep, and the client can't
// tell which happened until it queries REASON — sending the notification
// unconditionally keeps the channel in sync no matter which reason comes
// back.
const stoppedMessage = "Program stopped"

// Server implements ostick.DebugInterface: on every break it talks to the
// far end of ch until CONTINUE or SINGLESTEP hands control back to the
// CPU, or the channel reaches EOF.
type Server struct {
	ch     *protocol.Channel
	cpu    *cpu.CPU
	logger *slog.Logger
}

// New builds a Server around an already-connected channel and the CPU it
// inspects and pokes.
func New(ch *protocol.Channel, c *cpu.CPU) *Server {
	return &Server{ch: ch, cpu: c, logger: slog.Default()}
}

// Work implements ostick.DebugInterface.
func (s *Server) Work(reason ostick.BreakReason) bool {
	if reason == ostick.SingleStep {
		s.logger.Debug("single-step break, unsetting trap flag")
		s.cpu.SetTrapFlag(false)
	} else {
		s.logger.Info("break occurred, notifying debugger", "reason", reason)
	}
	if err := s.ch.Send(stoppedMessage); err != nil {
		s.logger.Warn("stop notification failed, stopping", "err", err)
		return false
	}

	for {
		msg, err := s.ch.Receive()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("debugger disconnected")
				return false
			}
			s.logger.Warn("channel error, stopping", "err", err)
			return false
		}

		reply, cont, exit := s.dispatch(reason, msg)
		if reply != "" {
			if err := s.ch.Send(reply); err != nil {
				s.logger.Warn("reply failed, stopping", "err", err)
				return false
			}
		}
		if exit {
			return cont
		}
	}
}

// dispatch handles one command line, recovering a panic from an
// out-of-range register/memory/instruction access into an Error reply
// rather than taking the whole run loop down with it.
func (s *Server) dispatch(reason ostick.BreakReason, msg string) (reply string, cont, exit bool) {
	defer func() {
		if r := recover(); r != nil {
			reply = fmt.Sprintf("Error: %v", r)
		}
	}()

	fields := strings.Fields(msg)
	if len(fields) == 0 {
		return "Error: empty command", false, false
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "REASON":
		return reason.String(), false, false
	case "CONTINUE":
		return "OK", true, true
	case "SINGLESTEP":
		s.cpu.SetTrapFlag(true)
		return "OK", true, true
	case "PEEKREGS":
		return s.peekRegs(args)
	case "POKEREGS":
		return s.pokeRegs(args)
	case "PEEKDATA":
		return s.peekData(args)
	case "POKEDATA":
		return s.pokeData(args)
	case "PEEKTEXT":
		return s.peekText(args)
	case "POKETEXT":
		return s.pokeText(args)
	case "TEXTSIZE":
		return strconv.Itoa(s.cpu.ProgramLen()), false, false
	default:
		return fmt.Sprintf("Error: unknown command %q", cmd), false, false
	}
}

func (s *Server) peekRegs(args []string) (string, bool, bool) {
	if len(args) != 1 {
		return "Error: PEEKREGS takes one argument", false, false
	}
	v, err := s.getRegisterValue(args[0])
	if err != nil {
		return "Error: " + err.Error(), false, false
	}
	return v, false, false
}

func (s *Server) pokeRegs(args []string) (string, bool, bool) {
	if len(args) != 2 {
		return "Error: POKEREGS takes two arguments", false, false
	}
	if err := s.setRegisterValue(args[0], args[1]); err != nil {
		return "Error: " + err.Error(), false, false
	}
	return "OK", false, false
}

func (s *Server) getRegisterValue(name string) (string, error) {
	switch {
	case name == "IP":
		return strconv.FormatInt(s.cpu.GetRegister(isa.ProgramCounter), 10), nil
	case name == "SP":
		return strconv.FormatInt(s.cpu.GetRegister(isa.StackPointer), 10), nil
	case name == "BP":
		return strconv.FormatInt(s.cpu.GetRegister(isa.StackBasePointer), 10), nil
	case name == "FLAGS":
		return strconv.FormatInt(s.cpu.GetRegister(isa.Flags), 10), nil
	case name == "DR7":
		return strconv.FormatUint(s.cpu.DR7(), 10), nil
	case strings.HasPrefix(name, "DR"):
		i, err := strconv.Atoi(name[2:])
		if err != nil || i < 0 || i > 3 {
			return "", fmt.Errorf("bad debug register %q", name)
		}
		return strconv.FormatInt(s.cpu.DR(i), 10), nil
	case strings.HasPrefix(name, "FR"):
		i, err := strconv.Atoi(name[2:])
		if err != nil {
			return "", fmt.Errorf("bad float register %q", name)
		}
		return strconv.FormatFloat(s.cpu.GetFloatRegister(isa.FloatRegister(i)), 'g', -1, 64), nil
	case strings.HasPrefix(name, "R"):
		i, err := strconv.Atoi(name[1:])
		if err != nil {
			return "", fmt.Errorf("bad register %q", name)
		}
		return strconv.FormatInt(s.cpu.GetRegister(isa.Register(i)), 10), nil
	default:
		return "", fmt.Errorf("unrecognised register %q", name)
	}
}

func (s *Server) setRegisterValue(name, valText string) error {
	switch {
	case name == "IP":
		v, err := strconv.ParseInt(valText, 10, 64)
		if err != nil {
			return err
		}
		s.cpu.SetRegister(isa.ProgramCounter, v)
		return nil
	case name == "SP":
		v, err := strconv.ParseInt(valText, 10, 64)
		if err != nil {
			return err
		}
		s.cpu.SetRegister(isa.StackPointer, v)
		return nil
	case name == "BP":
		v, err := strconv.ParseInt(valText, 10, 64)
		if err != nil {
			return err
		}
		s.cpu.SetRegister(isa.StackBasePointer, v)
		return nil
	case name == "FLAGS":
		v, err := strconv.ParseInt(valText, 10, 64)
		if err != nil {
			return err
		}
		s.cpu.SetRegister(isa.Flags, v)
		return nil
	case name == "DR7":
		v, err := strconv.ParseUint(valText, 10, 64)
		if err != nil {
			return err
		}
		s.cpu.SetDR7(v)
		return nil
	case strings.HasPrefix(name, "DR"):
		i, err := strconv.Atoi(name[2:])
		if err != nil || i < 0 || i > 3 {
			return fmt.Errorf("bad debug register %q", name)
		}
		v, err := strconv.ParseInt(valText, 10, 64)
		if err != nil {
			return err
		}
		s.cpu.SetDR(i, v)
		return nil
	case strings.HasPrefix(name, "FR"):
		i, err := strconv.Atoi(name[2:])
		if err != nil {
			return fmt.Errorf("bad float register %q", name)
		}
		v, err := strconv.ParseFloat(valText, 64)
		if err != nil {
			return err
		}
		s.cpu.SetFloatRegister(isa.FloatRegister(i), v)
		return nil
	case strings.HasPrefix(name, "R"):
		i, err := strconv.Atoi(name[1:])
		if err != nil {
			return fmt.Errorf("bad register %q", name)
		}
		v, err := strconv.ParseInt(valText, 10, 64)
		if err != nil {
			return err
		}
		s.cpu.SetRegister(isa.Register(i), v)
		return nil
	default:
		return fmt.Errorf("unrecognised register %q", name)
	}
}

func (s *Server) peekData(args []string) (string, bool, bool) {
	if len(args) != 2 {
		return "Error: PEEKDATA takes address and count", false, false
	}
	addr, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return "Error: " + err.Error(), false, false
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 0 {
		return "Error: bad count", false, false
	}
	vals := make([]string, n)
	for i := 0; i < n; i++ {
		vals[i] = strconv.FormatInt(s.cpu.GetMemory(addr+int64(i)), 10)
	}
	return strings.Join(vals, " "), false, false
}

func (s *Server) pokeData(args []string) (string, bool, bool) {
	if len(args) < 1 {
		return "Error: POKEDATA takes address and values", false, false
	}
	addr, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return "Error: " + err.Error(), false, false
	}
	for i, a := range args[1:] {
		v, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return "Error: " + err.Error(), false, false
		}
		s.cpu.SetMemory(addr+int64(i), v)
	}
	return "OK", false, false
}

func (s *Server) peekText(args []string) (string, bool, bool) {
	if len(args) != 2 {
		return "Error: PEEKTEXT takes address and count", false, false
	}
	addr, err := strconv.Atoi(args[0])
	if err != nil {
		return "Error: " + err.Error(), false, false
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 0 {
		return "Error: bad count", false, false
	}
	lines := make([]string, n)
	for i := 0; i < n; i++ {
		lines[i] = s.cpu.GetInstruction(addr + i).String()
	}
	return strings.Join(lines, "\n"), false, false
}

func (s *Server) pokeText(args []string) (string, bool, bool) {
	if len(args) < 2 {
		return "Error: POKETEXT takes address and an instruction", false, false
	}
	addr, err := strconv.Atoi(args[0])
	if err != nil {
		return "Error: " + err.Error(), false, false
	}
	ins, err := isa.ParseInstruction(strings.Join(args[1:], " "))
	if err != nil {
		return "Error: " + err.Error(), false, false
	}
	s.cpu.SetInstruction(addr, ins)
	return "OK", false, false
}
