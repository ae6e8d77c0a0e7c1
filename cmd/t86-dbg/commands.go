// T86 - Debugger command dispatch.
//
// Copyright 2024, Richard Cornwell
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/t86sim/t86/internal/dbginfo"
	"github.com/t86sim/t86/internal/debugclient"
	"github.com/t86sim/t86/internal/sourceexpr"
)

// session holds everything a command needs: the wire connection, the
// optional debug info (nil when the user started t86-dbg without
// --debuginfo, in which case source-level commands fall back to raw
// addresses or fail with "no debug info loaded"), and the running list of
// evaluated expressions $0, $1, ... that a later expression can reference.
type session struct {
	native    *debugclient.Native
	info      *dbginfo.Info
	evaluated []sourceexpr.TypedValue
}

func newSession(n *debugclient.Native, info *dbginfo.Info) *session {
	return &session{native: n, info: info}
}

func (s *session) reportStop(ev debugclient.Event) {
	fmt.Printf("stopped: %s", ev.Reason)
	if ev.Reason == debugclient.HardwareBreakpoint {
		fmt.Printf(" (watchpoint %d)", ev.Index)
	}
	fmt.Println()
	if s.info != nil {
		if line, ok := s.info.AddrToLine(uint64(s.native.GetIP())); ok {
			if text, ok := s.info.Source.Line(line); ok {
				fmt.Printf("%5d\t%s\n", line, text)
			}
		}
	}
}

// cmdSpec is one entry in the command table: a name, the minimum prefix
// length that still uniquely identifies it (the teacher's
// command/parser.go abbreviation scheme), and the handler.
type cmdSpec struct {
	name    string
	min     int
	process func(*session, []string) (bool, error)
}

var cmdTable = []cmdSpec{
	{name: "break", min: 1, process: cmdBreak},
	{name: "delete", min: 1, process: cmdDelete},
	{name: "watch", min: 1, process: cmdWatch},
	{name: "unwatch", min: 3, process: cmdUnwatch},
	{name: "continue", min: 1, process: cmdContinue},
	{name: "step", min: 2, process: cmdStep},
	{name: "next", min: 1, process: cmdNext},
	{name: "finish", min: 1, process: cmdFinish},
	{name: "print", min: 1, process: cmdPrint},
	{name: "registers", min: 3, process: cmdRegisters},
	{name: "list", min: 1, process: cmdList},
	{name: "quit", min: 1, process: cmdQuit},
	{name: "help", min: 1, process: cmdHelp},
}

func matchCommand(spec cmdSpec, name string) bool {
	if len(name) < spec.min || len(name) > len(spec.name) {
		return false
	}
	return spec.name[:len(name)] == name
}

func matchCommands(name string) []cmdSpec {
	var matches []cmdSpec
	for _, c := range cmdTable {
		if matchCommand(c, name) {
			matches = append(matches, c)
		}
	}
	return matches
}

func completeCommand(line string) []string {
	fields := strings.Fields(line)
	if len(fields) > 1 || (len(fields) == 1 && strings.HasSuffix(line, " ")) {
		return nil
	}
	prefix := ""
	if len(fields) == 1 {
		prefix = fields[0]
	}
	var out []string
	for _, c := range cmdTable {
		if strings.HasPrefix(c.name, prefix) {
			out = append(out, c.name)
		}
	}
	return out
}

// dispatch resolves one input line to a single command and runs it,
// mirroring command/parser.ProcessCommand's ambiguous/not-found handling.
func dispatch(s *session, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	name, args := fields[0], fields[1:]

	matches := matchCommands(name)
	switch len(matches) {
	case 0:
		return false, fmt.Errorf("command not found: %s", name)
	case 1:
		return matches[0].process(s, args)
	default:
		return false, fmt.Errorf("ambiguous command: %s", name)
	}
}

// resolveAddr turns a command argument into an address: a plain integer is
// used as-is, and any other argument is rejected with an error. No source
// line lookup takes place.
func (s *session) resolveAddr(arg string) (int64, error) {
	if n, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return n, nil
	}
	if s.info == nil {
		return 0, fmt.Errorf("no debug info loaded, and %q is not a number", arg)
	}
	line, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad line number %q", arg)
	}
	addr, ok := s.info.LineToAddr(line)
	if !ok {
		return 0, fmt.Errorf("no code at line %d", line)
	}
	return int64(addr), nil
}

func cmdBreak(s *session, args []string) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("break takes one address or line number")
	}
	if s.info != nil {
		if line, err := strconv.ParseInt(args[0], 10, 64); err == nil {
			addr, err := s.info.SetLineBreakpoint(s.native, line)
			if err != nil {
				return false, err
			}
			fmt.Printf("breakpoint set at line %s (address %d)\n", args[0], addr)
			return false, nil
		}
	}
	addr, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return false, fmt.Errorf("bad address %q", args[0])
	}
	if err := s.native.SetBreakpoint(addr); err != nil {
		return false, err
	}
	fmt.Printf("breakpoint set at address %d\n", addr)
	return false, nil
}

func cmdDelete(s *session, args []string) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("delete takes one address or line number")
	}
	addr, err := s.resolveAddr(args[0])
	if err != nil {
		return false, err
	}
	if err := s.native.UnsetBreakpoint(addr); err != nil {
		return false, err
	}
	fmt.Printf("breakpoint at address %d removed\n", addr)
	return false, nil
}

func cmdWatch(s *session, args []string) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("watch takes one address")
	}
	addr, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return false, fmt.Errorf("bad address %q", args[0])
	}
	if err := s.native.SetWatchpoint(addr); err != nil {
		return false, err
	}
	fmt.Printf("watchpoint set at address %d\n", addr)
	return false, nil
}

func cmdUnwatch(s *session, args []string) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("unwatch takes one address")
	}
	addr, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return false, fmt.Errorf("bad address %q", args[0])
	}
	return false, s.native.UnsetWatchpoint(addr)
}

func cmdContinue(s *session, _ []string) (bool, error) {
	if err := s.native.ContinueExecution(); err != nil {
		return false, err
	}
	ev, err := s.native.WaitForDebugEvent()
	if err != nil {
		return false, err
	}
	s.reportStop(ev)
	return false, nil
}

func cmdStep(s *session, _ []string) (bool, error) {
	if err := s.native.PerformSingleStep(); err != nil {
		return false, err
	}
	s.reportStop(debugclient.Event{Reason: debugclient.SingleStep})
	return false, nil
}

// sameLine reports whether ip maps to the same source line the step
// started on, the predicate PerformStepOver needs to know when to stop.
func (s *session) sameLine(startLine int64) func(int64) bool {
	return func(ip int64) bool {
		if s.info == nil {
			return false
		}
		line, ok := s.info.AddrToLine(uint64(ip))
		return ok && line == startLine
	}
}

func cmdNext(s *session, _ []string) (bool, error) {
	var startLine int64
	if s.info != nil {
		startLine, _ = s.info.AddrToLine(uint64(s.native.GetIP()))
	}
	ev, err := s.native.PerformStepOver(s.sameLine(startLine))
	if err != nil {
		return false, err
	}
	s.reportStop(ev)
	return false, nil
}

func cmdFinish(s *session, _ []string) (bool, error) {
	ev, err := s.native.PerformStepOut()
	if err != nil {
		return false, err
	}
	s.reportStop(ev)
	return false, nil
}

func cmdPrint(s *session, args []string) (bool, error) {
	if len(args) == 0 {
		return false, fmt.Errorf("print takes an expression")
	}
	if s.info == nil {
		return false, fmt.Errorf("no debug info loaded, expressions are unavailable")
	}
	expr, err := sourceexpr.Parse(strings.NewReader(strings.Join(args, " ")))
	if err != nil {
		return false, err
	}
	ev := sourceexpr.NewEvaluator(s.info, s.native, s.evaluated)
	v, err := ev.Eval(expr)
	if err != nil {
		return false, err
	}
	idx := len(s.evaluated)
	s.evaluated = append(s.evaluated, v)
	fmt.Printf("$%d = %s\n", idx, v.String())
	return false, nil
}

func cmdRegisters(s *session, _ []string) (bool, error) {
	for i := 0; i < 16; i++ {
		v, err := s.native.GetRegister(i)
		if err != nil {
			break
		}
		fmt.Printf("R%d = %d\n", i, v)
	}
	ip, err := s.native.GetNamedRegister("IP")
	if err == nil {
		fmt.Printf("IP = %d\n", ip)
	}
	return false, nil
}

func cmdList(s *session, args []string) (bool, error) {
	if s.info == nil {
		return false, fmt.Errorf("no debug info loaded")
	}
	line, ok := s.info.AddrToLine(uint64(s.native.GetIP()))
	if !ok {
		return false, fmt.Errorf("current address has no line mapping")
	}
	if len(args) == 1 {
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return false, fmt.Errorf("bad line number %q", args[0])
		}
		line = n
	}
	for _, text := range s.info.Source.Lines(line-2, 5) {
		fmt.Println(text)
	}
	return false, nil
}

func cmdQuit(_ *session, _ []string) (bool, error) {
	return true, nil
}

func cmdHelp(_ *session, _ []string) (bool, error) {
	for _, c := range cmdTable {
		fmt.Println(c.name)
	}
	return false, nil
}
