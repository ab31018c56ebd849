// Package server exposes the session API over HTTP: a JSON-RPC bridge for
// the popup and CLI, and a bidirectional JSON-RPC WebSocket for the browser
// extension, through which the daemon also drives the tabs.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/restcue/restcue/common"
	"github.com/restcue/restcue/pkg/logger"
)

// ExtensionOrigins are the origins allowed to open the WebSocket.
var ExtensionOrigins = []string{"chrome-extension://*", "moz-extension://*"}

// Config holds configuration for the HTTP endpoints.
type Config struct {
	Addr   string // Listen address, loopback by default
	Secret string // Auth token (required, empty rejects every request)
}

type WebServer struct {
	cfg      Config
	log      logger.Logger
	assigner jrpc2.Assigner
	ext      *Extensions
	bridge   jhttp.Bridge

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	// conns cancels the WebSocket sessions on shutdown; hijacked
	// connections are not tracked by http.Server.
	conns  context.Context
	cancel context.CancelFunc
}

func NewWebServer(l logger.Logger, cfg Config, assigner jrpc2.Assigner, ext *Extensions) *WebServer {
	if l == nil {
		l = logger.NewNopLogger()
	}
	if cfg.Addr == "" {
		cfg.Addr = common.DefaultListenAddr
	}
	conns, cancel := context.WithCancel(context.Background())
	return &WebServer{
		cfg:      cfg,
		log:      l,
		assigner: assigner,
		ext:      ext,
		bridge:   jhttp.NewBridge(assigner, nil),
		conns:    conns,
		cancel:   cancel,
	}
}

func (s *WebServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/jsonrpc", requireToken(s.cfg.Secret, false, http.MaxBytesHandler(s.bridge, common.MaxMessageSize)))
	mux.Handle("/jsonrpc/ws", requireToken(s.cfg.Secret, true, http.HandlerFunc(s.handleWebSocket)))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// handleWebSocket serves one extension connection until it closes. The
// connection's jrpc2 server is registered with the extension registry so
// the delivery engine can call back into the browser.
func (s *WebServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := cws.Accept(w, r, &cws.AcceptOptions{OriginPatterns: ExtensionOrigins})
	if err != nil {
		s.log.Warning("websocket accept: %v", err)
		return
	}
	conn.SetReadLimit(common.MaxMessageSize)

	ctx, cancel := context.WithCancel(s.conns)
	defer cancel()
	srv := jrpc2.NewServer(s.assigner, &jrpc2.ServerOptions{AllowPush: true}).Start(&wsChannel{conn: conn, ctx: ctx})
	if s.ext != nil {
		s.ext.Register(srv)
		defer s.ext.Unregister(srv)
	}
	go func() {
		<-ctx.Done()
		srv.Stop()
	}()
	if err := srv.Wait(); err != nil && ctx.Err() == nil {
		s.log.Debug("websocket session ended: %v", err)
	}
}

// Listen binds the listen address. Start calls it when needed.
func (s *WebServer) Listen() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr(), nil
	}
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return nil, err
	}
	s.listener = l
	s.server = &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return l.Addr(), nil
}

// Start serves until ctx is cancelled or Shutdown is called.
func (s *WebServer) Start(ctx context.Context) error {
	addr, err := s.Listen()
	if err != nil {
		return err
	}
	s.log.Info("listening on http://%s", addr)

	s.mu.Lock()
	srv, l := s.server, s.listener
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	err = srv.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil // Expected during shutdown
	}
	return err
}

// Shutdown gracefully stops the web server and closes extension sessions.
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancel()
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	s.bridge.Close()
	s.server = nil
	return err
}
