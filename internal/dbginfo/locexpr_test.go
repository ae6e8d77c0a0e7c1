package dbginfo

import "testing"

type fakeMachine struct {
	regs map[string]int64
	bp   int64
}

func (f *fakeMachine) GetNamedRegister(name string) (int64, error) {
	return f.regs[name], nil
}

func (f *fakeMachine) GetBasePointer() (int64, error) {
	return f.bp, nil
}

func TestEvalFrameBaseOffset(t *testing.T) {
	m := &fakeMachine{bp: 100}
	addr, err := Eval([]LocOp{{Kind: LocOpFrameBaseOffset, FrameOffset: -8}}, m)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if addr != 92 {
		t.Fatalf("addr = %d, want 92", addr)
	}
}

func TestEvalPushRegisterPlusOffset(t *testing.T) {
	m := &fakeMachine{regs: map[string]int64{"R0": 1000}}
	prog := []LocOp{
		{Kind: LocOpPush, PushValue: Location{Kind: LocRegister, Register: "R0"}},
		{Kind: LocOpPush, PushValue: Location{Kind: LocOffset, Offset: 24}},
		{Kind: LocOpAdd},
	}
	addr, err := Eval(prog, m)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if addr != 1024 {
		t.Fatalf("addr = %d, want 1024", addr)
	}
}

func TestEvalUnbalancedStackErrors(t *testing.T) {
	m := &fakeMachine{}
	_, err := Eval([]LocOp{{Kind: LocOpAdd}}, m)
	if err == nil {
		t.Fatalf("expected an error for Add with an empty stack")
	}
	_, err = Eval([]LocOp{
		{Kind: LocOpPush, PushValue: Location{Kind: LocOffset, Offset: 1}},
		{Kind: LocOpPush, PushValue: Location{Kind: LocOffset, Offset: 2}},
	}, m)
	if err == nil {
		t.Fatalf("expected an error when two values are left on the stack")
	}
}
