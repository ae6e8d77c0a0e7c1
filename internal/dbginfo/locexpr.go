package dbginfo

import "fmt"

// LocKind distinguishes the two things a location can name.
type LocKind int

const (
	LocRegister LocKind = iota
	LocOffset
)

// Location is either a named register or a bare numeric offset, pushed onto
// the location stack VM by a Push instruction.
type Location struct {
	Kind     LocKind
	Register string
	Offset   int64
}

// LocOpKind names one opcode of the location-expression stack VM.
type LocOpKind int

const (
	LocOpPush LocOpKind = iota
	LocOpAdd
	LocOpFrameBaseOffset
)

// LocOp is one instruction of a variable's location expression: push a
// location, add the top two, or compute an address relative to the current
// frame base register.
type LocOp struct {
	Kind        LocOpKind
	PushValue   Location
	FrameOffset int64
}

// Machine is anything that can resolve a named register and the current
// frame base, the live-state surface a location expression evaluates
// against. *debugclient.Native satisfies this structurally.
type Machine interface {
	GetNamedRegister(name string) (int64, error)
	GetBasePointer() (int64, error)
}

// Eval runs a location expression on a tiny stack VM and returns the
// resulting address. Push places a register's value or a bare offset on
// the stack; Add pops two and pushes their sum; FrameBaseRegisterOffset
// pushes the current frame base plus a constant offset. The final stack
// must hold exactly one value, the resolved address.
func Eval(prog []LocOp, m Machine) (int64, error) {
	var stack []int64
	pop2 := func() (int64, int64, error) {
		if len(stack) < 2 {
			return 0, 0, fmt.Errorf("dbginfo: Add needs two values on the stack, have %d", len(stack))
		}
		b := stack[len(stack)-1]
		a := stack[len(stack)-2]
		stack = stack[:len(stack)-2]
		return a, b, nil
	}

	for _, op := range prog {
		switch op.Kind {
		case LocOpPush:
			switch op.PushValue.Kind {
			case LocRegister:
				v, err := m.GetNamedRegister(op.PushValue.Register)
				if err != nil {
					return 0, fmt.Errorf("dbginfo: resolving register %q: %w", op.PushValue.Register, err)
				}
				stack = append(stack, v)
			case LocOffset:
				stack = append(stack, op.PushValue.Offset)
			}
		case LocOpAdd:
			a, b, err := pop2()
			if err != nil {
				return 0, err
			}
			stack = append(stack, a+b)
		case LocOpFrameBaseOffset:
			bp, err := m.GetBasePointer()
			if err != nil {
				return 0, fmt.Errorf("dbginfo: resolving frame base: %w", err)
			}
			stack = append(stack, bp+op.FrameOffset)
		}
	}

	if len(stack) != 1 {
		return 0, fmt.Errorf("dbginfo: location expression left %d values on the stack, want 1", len(stack))
	}
	return stack[0], nil
}

// Resolve distinguishes a location naming a register's own content from
// one naming a memory address. A program that is exactly a single "push
// this register" means the value lives in the register itself; anything
// else — even a single FrameBaseRegisterOffset — is a computed address.
func Resolve(prog []LocOp, m Machine) (inRegister bool, register string, addr int64, err error) {
	if len(prog) == 1 && prog[0].Kind == LocOpPush && prog[0].PushValue.Kind == LocRegister {
		return true, prog[0].PushValue.Register, 0, nil
	}
	a, err := Eval(prog, m)
	if err != nil {
		return false, "", 0, err
	}
	return false, "", a, nil
}
