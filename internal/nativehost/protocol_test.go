package nativehost

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"
)

func TestReadMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		want    []byte
		wantErr bool
	}{
		{"simple message", append([]byte{5, 0, 0, 0}, "hello"...), []byte("hello"), false},
		{"empty message", []byte{0, 0, 0, 0}, []byte{}, false},
		{"json message", append([]byte{8, 0, 0, 0}, `{"id":1}`...), []byte(`{"id":1}`), false},
		{"incomplete header", []byte{5, 0}, nil, true},
		{"incomplete body", append([]byte{10, 0, 0, 0}, "short"...), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadMessage(bytes.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !bytes.Equal(got, tt.want) {
				t.Errorf("ReadMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadMessageTooLarge(t *testing.T) {
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(MaxMessageSize)+1)
	if _, err := ReadMessage(bytes.NewReader(hdr[:])); err == nil {
		t.Fatal("expected error for oversized frame")
	}
}

func TestReadMessageEOF(t *testing.T) {
	_, err := ReadMessage(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestWriteMessage(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, []byte("hello")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	want := append([]byte{5, 0, 0, 0}, "hello"...)
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("WriteMessage() wrote %v, want %v", buf.Bytes(), want)
	}

	if err := WriteMessage(&buf, make([]byte, MaxMessageSize+1)); err == nil {
		t.Error("expected error for oversized message")
	}
}

func TestChannelRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	ch := NewChannel(&buf, &buf)

	msgs := []string{`{"jsonrpc":"2.0","id":1,"method":"get-stats"}`, `{}`}
	for _, m := range msgs {
		if err := ch.Send([]byte(m)); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	for _, m := range msgs {
		got, err := ch.Recv()
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if string(got) != m {
			t.Errorf("Recv() = %s, want %s", got, m)
		}
	}
}

// TestChannelConcurrentSend checks that frames from concurrent senders
// never interleave.
func TestChannelConcurrentSend(t *testing.T) {
	var buf bytes.Buffer
	ch := NewChannel(&buf, &buf)

	const n = 50
	payload := bytes.Repeat([]byte("x"), 1024)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ch.Send(payload); err != nil {
				t.Errorf("Send: %v", err)
			}
		}()
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		got, err := ch.Recv()
		if err != nil {
			t.Fatalf("Recv %d: %v", i, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("frame %d corrupted", i)
		}
	}
}

type closeCounter struct {
	bytes.Buffer
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func TestChannelClose(t *testing.T) {
	r, w := &closeCounter{}, &closeCounter{}
	ch := NewChannel(r, w)

	if err := ch.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if r.closed != 1 || w.closed != 1 {
		t.Errorf("closed reader %d times, writer %d times, want 1 each", r.closed, w.closed)
	}
	if err := ch.Send([]byte("late")); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("Send after Close = %v, want io.ErrClosedPipe", err)
	}
}

func TestChannelCloseSharedStream(t *testing.T) {
	rw := &closeCounter{}
	ch := NewChannel(rw, rw)
	if err := ch.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if rw.closed != 1 {
		t.Errorf("shared stream closed %d times, want 1", rw.closed)
	}
}
