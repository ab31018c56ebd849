package nativehost

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/creachadair/jrpc2"
	"github.com/restcue/restcue/internal/server"
	"github.com/restcue/restcue/pkg/logger"
)

// Host is the native messaging host. It runs the session API on stdio and
// registers the connection with the extension registry, so the delivery
// engine can drive the browser through the same pipe.
type Host struct {
	assigner jrpc2.Assigner
	ext      *server.Extensions
	log      logger.Logger
	stdin    io.Reader
	stdout   io.Writer
}

// NewHost creates a new native messaging host over os.Stdin and os.Stdout.
func NewHost(assigner jrpc2.Assigner, ext *server.Extensions, l logger.Logger) *Host {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Host{
		assigner: assigner,
		ext:      ext,
		log:      l,
		stdin:    os.Stdin,
		stdout:   os.Stdout,
	}
}

// Run serves until the browser closes stdin or ctx is cancelled.
// A clean EOF from the browser is not an error.
func (h *Host) Run(ctx context.Context) error {
	ch := NewChannel(h.stdin, h.stdout)
	srv := jrpc2.NewServer(h.assigner, &jrpc2.ServerOptions{AllowPush: true}).Start(ch)
	if h.ext != nil {
		h.ext.Register(srv)
		defer h.ext.Unregister(srv)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			srv.Stop()
		case <-stop:
		}
	}()

	err := srv.Wait()
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || ctx.Err() != nil {
		h.log.Info("browser closed the native messaging connection")
		return nil
	}
	return err
}
