package branch

import (
	"testing"

	"github.com/t86sim/t86/internal/isa"
)

func TestNaiveFollowsStaticDestination(t *testing.T) {
	jump := isa.Instruction{Op: isa.JMP, A: isa.Imm(42)}
	if got := (Naive{}).NextGuess(10, jump, 11); got != 42 {
		t.Fatalf("NextGuess = %d, want 42", got)
	}
}

func TestNaiveFallsThroughWithoutStaticDestination(t *testing.T) {
	jump := isa.Instruction{Op: isa.JMP, A: isa.Reg(0)}
	if got := (Naive{}).NextGuess(10, jump, 11); got != 11 {
		t.Fatalf("NextGuess = %d, want fallthrough 11", got)
	}
}

func TestSaturatingDefersToNaiveWithoutHistory(t *testing.T) {
	p := NewSaturating()
	jump := isa.Instruction{Op: isa.JMP, A: isa.Imm(99)}
	if got := p.NextGuess(5, jump, 6); got != 99 {
		t.Fatalf("NextGuess with no history = %d, want static destination 99", got)
	}
}

func TestSaturatingFollowsMajorityHistory(t *testing.T) {
	p := NewSaturating()
	jump := isa.Instruction{Op: isa.JMP, A: isa.Imm(99)}
	p.RegisterBranchTaken(5, 99)
	p.RegisterBranchTaken(5, 99)
	p.RegisterBranchNotTaken(5)

	if got := p.NextGuess(5, jump, 6); got != 99 {
		t.Fatalf("majority taken history should predict taken, got %d", got)
	}
}

func TestSaturatingFollowsMajorityNotTaken(t *testing.T) {
	p := NewSaturating()
	jump := isa.Instruction{Op: isa.JMP, A: isa.Imm(99)}
	p.RegisterBranchNotTaken(7)
	p.RegisterBranchNotTaken(7)
	p.RegisterBranchTaken(7, 99)

	if got := p.NextGuess(7, jump, 8); got != 8 {
		t.Fatalf("majority not-taken history should predict fallthrough, got %d", got)
	}
}

func TestSaturatingWindowForgetsOldHistory(t *testing.T) {
	p := NewSaturating()
	jump := isa.Instruction{Op: isa.JMP, A: isa.Imm(99)}
	for i := 0; i < historyDepth; i++ {
		p.RegisterBranchNotTaken(1)
	}
	for i := 0; i < historyDepth; i++ {
		p.RegisterBranchTaken(1, 99)
	}
	if got := p.NextGuess(1, jump, 2); got != 99 {
		t.Fatalf("after the not-taken history ages out, recent taken history should win, got %d", got)
	}
}
