package debugserver

import (
	"net"
	"testing"

	"github.com/t86sim/t86/internal/cpu"
	"github.com/t86sim/t86/internal/isa"
	"github.com/t86sim/t86/internal/ostick"
	"github.com/t86sim/t86/internal/protocol"
)

func newPipe(t *testing.T) (server, client *protocol.Channel) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return protocol.New(a), protocol.New(b)
}

func TestWorkSendsStopThenReasonThenContinue(t *testing.T) {
	c := cpu.New(cpu.DefaultConfig())
	srvCh, cliCh := newPipe(t)
	s := New(srvCh, c)

	done := make(chan bool, 1)
	go func() { done <- s.Work(ostick.Begin) }()

	got, err := cliCh.Receive()
	if err != nil || got != stoppedMessage {
		t.Fatalf("stop notification = %q, %v; want %q", got, err, stoppedMessage)
	}

	if err := cliCh.Send("REASON"); err != nil {
		t.Fatalf("Send REASON: %v", err)
	}
	reason, err := cliCh.Receive()
	if err != nil || reason != "START" {
		t.Fatalf("REASON reply = %q, %v; want START", reason, err)
	}

	if err := cliCh.Send("CONTINUE"); err != nil {
		t.Fatalf("Send CONTINUE: %v", err)
	}
	ok, err := cliCh.Receive()
	if err != nil || ok != "OK" {
		t.Fatalf("CONTINUE reply = %q, %v; want OK", ok, err)
	}

	if cont := <-done; !cont {
		t.Fatalf("Work returned false, want true (continue)")
	}
}

func TestWorkSingleStepUnsetsTrapFlagAndStillSendsStopMessage(t *testing.T) {
	c := cpu.New(cpu.DefaultConfig())
	c.SetTrapFlag(true)
	srvCh, cliCh := newPipe(t)
	s := New(srvCh, c)

	done := make(chan bool, 1)
	go func() { done <- s.Work(ostick.SingleStep) }()

	// The stop notification is sent for every break reason, single-step
	// included, so a client that single-stepped and lands on a breakpoint
	// or watchpoint instead still sees the notification it expects.
	got, err := cliCh.Receive()
	if err != nil || got != stoppedMessage {
		t.Fatalf("stop notification = %q, %v; want %q", got, err, stoppedMessage)
	}

	if err := cliCh.Send("CONTINUE"); err != nil {
		t.Fatalf("Send CONTINUE: %v", err)
	}
	reply, err := cliCh.Receive()
	if err != nil || reply != "OK" {
		t.Fatalf("CONTINUE reply = %q, %v; want OK", reply, err)
	}
	if c.TrapFlag() {
		t.Fatalf("trap flag still set after a single-step break")
	}
	<-done
}

func TestWorkPeekAndPokeRegs(t *testing.T) {
	c := cpu.New(cpu.DefaultConfig())
	c.SetRegister(isa.Register(2), 42)
	srvCh, cliCh := newPipe(t)
	s := New(srvCh, c)

	done := make(chan bool, 1)
	go func() { done <- s.Work(ostick.Begin) }()
	cliCh.Receive() // stop notification

	cliCh.Send("PEEKREGS R2")
	v, _ := cliCh.Receive()
	if v != "42" {
		t.Fatalf("PEEKREGS R2 = %q, want 42", v)
	}

	cliCh.Send("POKEREGS R2 99")
	ok, _ := cliCh.Receive()
	if ok != "OK" {
		t.Fatalf("POKEREGS reply = %q, want OK", ok)
	}

	cliCh.Send("PEEKREGS R2")
	v, _ = cliCh.Receive()
	if v != "99" {
		t.Fatalf("PEEKREGS R2 after poke = %q, want 99", v)
	}

	cliCh.Send("PEEKREGS IP")
	ip, _ := cliCh.Receive()
	if ip != "0" {
		t.Fatalf("PEEKREGS IP = %q, want 0", ip)
	}

	cliCh.Send("CONTINUE")
	cliCh.Receive()
	<-done
}

func TestWorkPeekAndPokeData(t *testing.T) {
	c := cpu.New(cpu.DefaultConfig())
	srvCh, cliCh := newPipe(t)
	s := New(srvCh, c)

	done := make(chan bool, 1)
	go func() { done <- s.Work(ostick.Begin) }()
	cliCh.Receive()

	cliCh.Send("POKEDATA 10 1 2 3")
	ok, _ := cliCh.Receive()
	if ok != "OK" {
		t.Fatalf("POKEDATA reply = %q, want OK", ok)
	}

	cliCh.Send("PEEKDATA 10 3")
	vals, _ := cliCh.Receive()
	if vals != "1 2 3" {
		t.Fatalf("PEEKDATA = %q, want \"1 2 3\"", vals)
	}

	cliCh.Send("CONTINUE")
	cliCh.Receive()
	<-done
}

func TestWorkPeekAndPokeText(t *testing.T) {
	c := cpu.New(cpu.DefaultConfig())
	c.Start([]isa.Instruction{
		{Op: isa.ADD, A: isa.Reg(0), B: isa.Imm(5)},
		{Op: isa.HALT},
	}, nil)
	srvCh, cliCh := newPipe(t)
	s := New(srvCh, c)

	done := make(chan bool, 1)
	go func() { done <- s.Work(ostick.Begin) }()
	cliCh.Receive()

	cliCh.Send("TEXTSIZE")
	n, _ := cliCh.Receive()
	if n != "2" {
		t.Fatalf("TEXTSIZE = %q, want 2", n)
	}

	cliCh.Send("PEEKTEXT 0 1")
	text, _ := cliCh.Receive()
	if text != "ADD Reg0, 5" {
		t.Fatalf("PEEKTEXT 0 1 = %q, want %q", text, "ADD Reg0, 5")
	}

	cliCh.Send("POKETEXT 1 NOP")
	ok, _ := cliCh.Receive()
	if ok != "OK" {
		t.Fatalf("POKETEXT reply = %q, want OK", ok)
	}
	if got := c.GetInstruction(1).Op; got != isa.NOP {
		t.Fatalf("instruction 1 after POKETEXT = %v, want NOP", got)
	}

	cliCh.Send("CONTINUE")
	cliCh.Receive()
	<-done
}

func TestWorkReturnsFalseOnChannelEOF(t *testing.T) {
	c := cpu.New(cpu.DefaultConfig())
	a, b := net.Pipe()
	s := New(protocol.New(a), c)

	done := make(chan bool, 1)
	go func() { done <- s.Work(ostick.Begin) }()

	cc := protocol.New(b)
	cc.Receive() // stop notification
	b.Close()

	if cont := <-done; cont {
		t.Fatalf("Work returned true after channel EOF, want false")
	}
}

func TestWorkUnknownCommandRepliesErrorAndKeepsLooping(t *testing.T) {
	c := cpu.New(cpu.DefaultConfig())
	srvCh, cliCh := newPipe(t)
	s := New(srvCh, c)

	done := make(chan bool, 1)
	go func() { done <- s.Work(ostick.Begin) }()
	cliCh.Receive()

	cliCh.Send("BOGUS")
	reply, _ := cliCh.Receive()
	if reply != `Error: unknown command "BOGUS"` {
		t.Fatalf("reply = %q, want an unknown-command error", reply)
	}

	cliCh.Send("CONTINUE")
	ok, _ := cliCh.Receive()
	if ok != "OK" {
		t.Fatalf("CONTINUE reply after bad command = %q, want OK", ok)
	}
	<-done
}
