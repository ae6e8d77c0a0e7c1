package dbginfo

import "fmt"

// BreakpointSetter is the subset of a remote debug client a line-based
// breakpoint operation needs.
type BreakpointSetter interface {
	SetBreakpoint(addr int64) error
	UnsetBreakpoint(addr int64) error
	EnableSoftwareBreakpoint(addr int64) error
	DisableSoftwareBreakpoint(addr int64) error
}

// SetLineBreakpoint resolves line to an address via the line mapping and
// sets a breakpoint there, returning the resolved address.
func (info *Info) SetLineBreakpoint(bp BreakpointSetter, line int64) (uint64, error) {
	addr, ok := info.LineToAddr(line)
	if !ok {
		return 0, fmt.Errorf("dbginfo: no address maps to source line %d", line)
	}
	if err := bp.SetBreakpoint(int64(addr)); err != nil {
		return 0, err
	}
	return addr, nil
}

// UnsetLineBreakpoint clears the breakpoint at the address mapped to line.
func (info *Info) UnsetLineBreakpoint(bp BreakpointSetter, line int64) (uint64, error) {
	addr, ok := info.LineToAddr(line)
	if !ok {
		return 0, fmt.Errorf("dbginfo: no address maps to source line %d", line)
	}
	if err := bp.UnsetBreakpoint(int64(addr)); err != nil {
		return 0, err
	}
	return addr, nil
}

// EnableLineBreakpoint re-enables a previously set breakpoint at line.
func (info *Info) EnableLineBreakpoint(bp BreakpointSetter, line int64) (uint64, error) {
	addr, ok := info.LineToAddr(line)
	if !ok {
		return 0, fmt.Errorf("dbginfo: no address maps to source line %d", line)
	}
	if err := bp.EnableSoftwareBreakpoint(int64(addr)); err != nil {
		return 0, err
	}
	return addr, nil
}

// DisableLineBreakpoint disables the breakpoint at line without removing it.
func (info *Info) DisableLineBreakpoint(bp BreakpointSetter, line int64) (uint64, error) {
	addr, ok := info.LineToAddr(line)
	if !ok {
		return 0, fmt.Errorf("dbginfo: no address maps to source line %d", line)
	}
	if err := bp.DisableSoftwareBreakpoint(int64(addr)); err != nil {
		return 0, err
	}
	return addr, nil
}
