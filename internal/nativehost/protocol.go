// Package nativehost implements the native messaging host protocol for browser extensions.
// It provides stdin/stdout communication using Chrome/Firefox native messaging format:
// 4-byte little-endian length prefix followed by JSON payload. The payloads are
// JSON-RPC 2.0 messages in both directions.
package nativehost

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/restcue/restcue/common"
)

// MaxMessageSize limits native messaging payloads.
const MaxMessageSize = common.MaxMessageSize

// ReadMessage reads a native messaging format message from the reader.
// Format: 4-byte little-endian length prefix followed by the message bytes.
func ReadMessage(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	if length > uint32(MaxMessageSize) {
		return nil, fmt.Errorf("message too large: %d bytes (max %d)", length, MaxMessageSize)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteMessage writes a message in native messaging format to the writer.
// Format: 4-byte little-endian length prefix followed by the message bytes.
func WriteMessage(w io.Writer, msg []byte) error {
	if len(msg) > MaxMessageSize {
		return fmt.Errorf("message too large: %d bytes (max %d)", len(msg), MaxMessageSize)
	}
	length := uint32(len(msg))
	if err := binary.Write(w, binary.LittleEndian, length); err != nil {
		return err
	}
	_, err := w.Write(msg)
	return err
}

// Channel carries JSON-RPC messages over native messaging framing. It
// satisfies the jrpc2 channel.Channel interface.
type Channel struct {
	r io.Reader
	w io.Writer

	wmu    sync.Mutex
	closed bool
}

// NewChannel frames messages over r and w. Close closes whichever of them
// implements io.Closer.
func NewChannel(r io.Reader, w io.Writer) *Channel {
	return &Channel{r: r, w: w}
}

// Send writes one framed message. Concurrent sends are serialized so
// frames never interleave.
func (c *Channel) Send(msg []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.closed {
		return io.ErrClosedPipe
	}
	return WriteMessage(c.w, msg)
}

// Recv reads one framed message.
func (c *Channel) Recv() ([]byte, error) {
	return ReadMessage(c.r)
}

func (c *Channel) Close() error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	var first error
	if rc, ok := c.r.(io.Closer); ok {
		first = rc.Close()
	}
	if wc, ok := c.w.(io.Closer); ok && any(wc) != any(c.r) {
		if err := wc.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
