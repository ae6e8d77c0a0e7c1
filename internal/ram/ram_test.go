package ram

import "testing"

func TestReadWriteRoundTrip(t *testing.T) {
	r := New(16, 2, 3)
	if err := r.Set(4, 42); err != nil {
		t.Fatalf("Set: %v", err)
	}
	tok := r.Read(4)
	if tok == nil {
		t.Fatalf("Read returned nil, gate should have been free")
	}
	for i := 0; i < 3; i++ {
		if tok.Ready() {
			t.Fatalf("token ready too early, after %d ticks", i)
		}
		r.Tick()
	}
	if !tok.Ready() {
		t.Fatalf("token not ready after latency elapsed")
	}
	if got := tok.Value(); got != 42 {
		t.Errorf("Value() = %d, want 42", got)
	}
}

func TestGatesSaturate(t *testing.T) {
	r := New(16, 1, 5)
	if tok := r.Read(0); tok == nil {
		t.Fatalf("first read should acquire the only gate")
	}
	if tok := r.Read(1); tok != nil {
		t.Fatalf("second read should stall: no free gate")
	}
}

func TestReapFreesGate(t *testing.T) {
	r := New(16, 1, 1)
	tok := r.Read(0)
	r.Tick()
	if !tok.Ready() {
		t.Fatalf("expected token ready after one tick at latency 1")
	}
	r.Reap(tok)
	if tok2 := r.Read(1); tok2 == nil {
		t.Fatalf("gate should be free again after Reap")
	}
}

func TestOutOfRange(t *testing.T) {
	r := New(4, 1, 1)
	if err := r.Set(10, 1); err == nil {
		t.Errorf("Set out of range should error")
	}
	if _, err := r.Get(10); err == nil {
		t.Errorf("Get out of range should error")
	}
}
