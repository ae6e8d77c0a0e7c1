package writes

import (
	"testing"

	"github.com/t86sim/t86/internal/ram"
)

func TestRegisterPendingThenSpecifyThenValue(t *testing.T) {
	m := New(ram.New(64, 2, 1))
	id := m.RegisterPending()
	if m.State(id) != Pending {
		t.Fatalf("fresh write should be Pending")
	}
	m.SpecifyAddress(id, 10)
	if m.State(id) != Specified {
		t.Fatalf("after SpecifyAddress want Specified")
	}
	m.SetValue(id, 99)
	if m.State(id) != Ready {
		t.Fatalf("after SetValue want Ready")
	}
	m.StartWriting(id)
	if m.State(id) != Finished {
		t.Fatalf("after StartWriting want Finished")
	}
}

func TestStartWritingCommitsToRAM(t *testing.T) {
	r := ram.New(64, 2, 1)
	m := New(r)
	id := m.RegisterSpecified(5)
	m.SetValue(id, 123)
	m.StartWriting(id)
	got, err := r.Get(5)
	if err != nil || got != 123 {
		t.Fatalf("RAM[5] = %d, %v; want 123, nil", got, err)
	}
}

func TestPreviousWriteForwardsMostRecentMatchingAddress(t *testing.T) {
	m := New(ram.New(64, 2, 1))
	a := m.RegisterSpecified(8)
	m.SetValue(a, 1)
	b := m.RegisterSpecified(8)
	m.SetValue(b, 2)

	v, ok, found := m.PreviousWrite(8, m.CurrentMaxID())
	if !found || !ok || v != 2 {
		t.Fatalf("PreviousWrite = %d, %v, %v; want 2, true, true (most recent write wins)", v, ok, found)
	}
}

func TestPreviousWriteRespectsVisibilityHorizon(t *testing.T) {
	m := New(ram.New(64, 2, 1))
	a := m.RegisterSpecified(8)
	m.SetValue(a, 1)
	horizon := m.CurrentMaxID()
	b := m.RegisterSpecified(8)
	m.SetValue(b, 2)

	v, ok, found := m.PreviousWrite(8, horizon)
	if !found || !ok || v != 1 {
		t.Fatalf("PreviousWrite at horizon = %d, %v, %v; want 1, true, true (later write must not be visible)", v, ok, found)
	}
}

func TestPreviousWriteStallsOnUnspecifiedEarlierWrite(t *testing.T) {
	m := New(ram.New(64, 2, 1))
	m.RegisterPending() // address unknown

	_, ok, found := m.PreviousWrite(8, m.CurrentMaxID())
	if ok {
		t.Fatalf("an earlier write with unknown address must block forwarding, not be skipped")
	}
	if !found {
		t.Fatalf("an earlier write with unknown address must report found so the caller stalls")
	}
	if !m.HasUnspecifiedWrites(m.CurrentMaxID()) {
		t.Fatalf("HasUnspecifiedWrites should report the pending write")
	}
}

func TestPreviousWriteMissFallsThroughToRAM(t *testing.T) {
	m := New(ram.New(64, 2, 1))
	a := m.RegisterSpecified(1)
	m.SetValue(a, 7)

	_, ok, found := m.PreviousWrite(2, m.CurrentMaxID())
	if ok || found {
		t.Fatalf("no write to address 2 exists, PreviousWrite should report a miss")
	}
}

func TestPreviousWriteStallsOnSpecifiedButUnvaluedWrite(t *testing.T) {
	m := New(ram.New(64, 2, 1))
	r := m.ram
	if err := r.Set(8, 111); err != nil {
		t.Fatalf("seeding RAM: %v", err)
	}
	m.RegisterSpecified(8) // address known, value not set yet

	v, ok, found := m.PreviousWrite(8, m.CurrentMaxID())
	if ok {
		t.Fatalf("a write with a known address but no value yet must not forward a value, got %d", v)
	}
	if !found {
		t.Fatalf("a write matching the address must report found so ReadMemory stalls instead of reading stale RAM")
	}
}

func TestRemovePendingDropsEverythingNotYetWriting(t *testing.T) {
	m := New(ram.New(64, 2, 1))

	committed := m.RegisterSpecified(1)
	m.SetValue(committed, 10)
	m.StartWriting(committed) // Finished, must survive

	ready := m.RegisterSpecified(2)
	m.SetValue(ready, 99) // Ready, must be dropped

	specified := m.RegisterSpecified(3) // Specified, must be dropped

	pending := m.RegisterPending() // Pending, must be dropped

	m.RemovePending()

	if m.find(committed) == nil {
		t.Fatalf("a finished write must survive RemovePending")
	}
	if m.find(ready) != nil || m.find(specified) != nil || m.find(pending) != nil {
		t.Fatalf("RemovePending must drop every write not yet writing or finished")
	}
	v, ok, found := m.PreviousWrite(1, m.CurrentMaxID())
	if !found || !ok || v != 10 {
		t.Fatalf("after RemovePending, PreviousWrite(1) = %d, %v, %v; want 10, true, true", v, ok, found)
	}
}

func TestRemoveFinishedDropsOnlyLeadingFinishedEntries(t *testing.T) {
	m := New(ram.New(64, 2, 1))
	a := m.RegisterSpecified(1)
	m.SetValue(a, 1)
	m.StartWriting(a)
	b := m.RegisterPending()

	m.RemoveFinished()

	if m.find(a) != nil {
		t.Fatalf("finished entry a should have been removed")
	}
	if m.find(b) == nil {
		t.Fatalf("unfinished entry b should survive")
	}
}
