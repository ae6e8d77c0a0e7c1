package alu

import (
	"math"
	"testing"
)

func TestAdd(t *testing.T) {
	tests := []struct {
		x, y  int64
		want  int64
		flags Flags
	}{
		{1, 2, 3, Flags{false, false, false, false}},
		{0, 0, 0, Flags{false, true, false, false}},
		{-1, -1, -2, Flags{true, false, true, false}},
		{math.MaxInt64, 1, math.MinInt64, Flags{true, false, false, true}},
	}
	for _, tt := range tests {
		got := Add(tt.x, tt.y)
		if got.Value != tt.want || got.Flags != tt.flags {
			t.Errorf("Add(%d,%d) = %d,%+v, want %d,%+v", tt.x, tt.y, got.Value, got.Flags, tt.want, tt.flags)
		}
	}
}

func TestSubOverflow(t *testing.T) {
	got := Sub(math.MinInt64, 1)
	if !got.Flags.Overflow {
		t.Errorf("Sub(MinInt64,1) overflow = false, want true")
	}
}

func TestMulCarry(t *testing.T) {
	got := Mul(1<<40, 1<<40)
	if !got.Flags.Carry {
		t.Errorf("Mul overflowing unsigned product did not set carry")
	}
}

func TestDivZeroIsCallerResponsibility(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Skip("Div(x,0) panics via Go's native integer division; caller must guard against zero")
		}
	}()
	Div(10, 0)
}

func TestShiftCarry(t *testing.T) {
	got := Lsh(math.MinInt64, 1)
	if got.Value != 0 {
		t.Errorf("Lsh(1<<63,1) = %d, want 0", got.Value)
	}
	if !got.Flags.Carry {
		t.Errorf("Lsh(1<<63,1) carry = false, want true (top bit shifted out)")
	}
}

func TestFdivOverflowIsInf(t *testing.T) {
	got := Fdiv(1, 0)
	if !got.Flags.Overflow {
		t.Errorf("Fdiv(1,0) overflow = false, want true (result is +Inf)")
	}
}

func TestPunRoundTrip(t *testing.T) {
	f := 3.5
	if got := PunFloat(PunInt(f)); got != f {
		t.Errorf("PunFloat(PunInt(%v)) = %v, want %v", f, got, f)
	}
}
