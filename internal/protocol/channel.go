// Package protocol implements the wire framing the debug server and debug
// client speak over a TCP connection (or any io.ReadWriter in tests): each
// message is an 8-byte little-endian length prefix followed by that many
// bytes of UTF-8 text, one command or reply per message.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxMessageSize bounds a single frame so a corrupt or hostile length
// prefix can't make Receive allocate an unbounded buffer.
const maxMessageSize = 16 << 20

// Channel is a length-prefixed message stream over an underlying
// io.ReadWriter — a net.Conn in production, an in-memory pipe in tests.
type Channel struct {
	rw io.ReadWriter
}

// New wraps rw as a message channel.
func New(rw io.ReadWriter) *Channel {
	return &Channel{rw: rw}
}

// Send writes one message: its length, then its bytes. A partial
// underlying write is retried until the whole frame is out or a write
// fails.
func (c *Channel) Send(s string) error {
	var header [8]byte
	binary.LittleEndian.PutUint64(header[:], uint64(len(s)))
	if _, err := writeFull(c.rw, header[:]); err != nil {
		return fmt.Errorf("protocol: send length prefix: %w", err)
	}
	if _, err := writeFull(c.rw, []byte(s)); err != nil {
		return fmt.Errorf("protocol: send payload: %w", err)
	}
	return nil
}

// Receive reads one message. It returns io.EOF, unwrapped, when the peer
// closed the connection before sending a new frame — callers (the debug
// server's command loop) treat that as a clean stop signal rather than an
// error to log.
func (c *Channel) Receive() (string, error) {
	var header [8]byte
	if _, err := io.ReadFull(c.rw, header[:]); err != nil {
		if err == io.EOF {
			return "", io.EOF
		}
		return "", fmt.Errorf("protocol: receive length prefix: %w", err)
	}
	size := binary.LittleEndian.Uint64(header[:])
	if size > maxMessageSize {
		return "", fmt.Errorf("protocol: message size %d exceeds limit %d", size, maxMessageSize)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(c.rw, data); err != nil {
		return "", fmt.Errorf("protocol: receive payload: %w", err)
	}
	return string(data), nil
}

func writeFull(w io.Writer, data []byte) (int, error) {
	total := 0
	for total < len(data) {
		n, err := w.Write(data[total:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
