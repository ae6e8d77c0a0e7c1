package protocol

import (
	"bytes"
	"io"
	"net"
	"testing"
)

func TestSendThenReceiveRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	if err := c.Send("REASON"); err != nil {
		t.Fatalf("Send returned %v", err)
	}
	got, err := c.Receive()
	if err != nil {
		t.Fatalf("Receive returned %v", err)
	}
	if got != "REASON" {
		t.Fatalf("Receive = %q, want %q", got, "REASON")
	}
}

func TestMultipleMessagesPreserveBoundaries(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	for _, msg := range []string{"PEEKREGS R0", "OK", ""} {
		if err := c.Send(msg); err != nil {
			t.Fatalf("Send(%q) returned %v", msg, err)
		}
	}
	for _, want := range []string{"PEEKREGS R0", "OK", ""} {
		got, err := c.Receive()
		if err != nil {
			t.Fatalf("Receive returned %v", err)
		}
		if got != want {
			t.Fatalf("Receive = %q, want %q", got, want)
		}
	}
}

func TestReceiveOnClosedConnectionReturnsEOF(t *testing.T) {
	r, w := net.Pipe()
	go w.Close()
	c := New(r)

	_, err := c.Receive()
	if err != io.EOF {
		t.Fatalf("Receive error = %v, want io.EOF", err)
	}
}

func TestChannelOverNetPipeConcurrently(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	server := New(serverConn)
	client := New(clientConn)

	done := make(chan error, 1)
	go func() {
		done <- server.Send("CONTINUE")
	}()
	got, err := client.Receive()
	if err != nil {
		t.Fatalf("client Receive returned %v", err)
	}
	if got != "CONTINUE" {
		t.Fatalf("client Receive = %q, want %q", got, "CONTINUE")
	}
	if err := <-done; err != nil {
		t.Fatalf("server Send returned %v", err)
	}
}
