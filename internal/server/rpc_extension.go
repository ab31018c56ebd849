package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/restcue/restcue/common"
	"github.com/restcue/restcue/internal/delivery"
	"github.com/restcue/restcue/pkg/logger"
)

// ErrNoExtension is returned when no browser extension is connected.
var ErrNoExtension = errors.New("server: no extension connected")

// DefaultCallTimeout bounds a single callback into the extension.
const DefaultCallTimeout = 5 * time.Second

// Extensions tracks the jrpc2 servers of connected browser extensions
// and implements delivery.Host by calling back into the most recently
// connected one.
type Extensions struct {
	mu      sync.RWMutex
	servers []*jrpc2.Server
	log     logger.Logger
	timeout time.Duration
}

// NewExtensions creates an empty registry.
func NewExtensions(l logger.Logger) *Extensions {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Extensions{log: l, timeout: DefaultCallTimeout}
}

// Register adds a server; it becomes the callback target.
func (x *Extensions) Register(srv *jrpc2.Server) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.servers = append(x.servers, srv)
	x.log.Info("extension connected (%d active)", len(x.servers))
}

// Unregister removes a server.
func (x *Extensions) Unregister(srv *jrpc2.Server) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for i, s := range x.servers {
		if s == srv {
			x.servers = append(x.servers[:i], x.servers[i+1:]...)
			x.log.Info("extension disconnected (%d active)", len(x.servers))
			return
		}
	}
}

// Count returns the number of registered servers.
func (x *Extensions) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.servers)
}

func (x *Extensions) current() (*jrpc2.Server, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if len(x.servers) == 0 {
		return nil, ErrNoExtension
	}
	return x.servers[len(x.servers)-1], nil
}

func (x *Extensions) call(ctx context.Context, method string, params, result any) error {
	srv, err := x.current()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()
	rsp, err := srv.Callback(ctx, method, params)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if result == nil {
		return nil
	}
	if err := rsp.UnmarshalResult(result); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

func (x *Extensions) QueryTabs(ctx context.Context, q common.TabQuery) ([]common.Tab, error) {
	var tabs []common.Tab
	if err := x.call(ctx, common.METHOD_TABS_QUERY, q, &tabs); err != nil {
		return nil, err
	}
	return tabs, nil
}

// SendMessage maps delivered=false, the browser's "last error", to
// delivery.ErrNoReceiver.
func (x *Extensions) SendMessage(ctx context.Context, tabID int, msg any) error {
	var res common.SendMessageResult
	err := x.call(ctx, common.METHOD_TABS_SEND_MESSAGE, common.SendMessageParams{TabID: tabID, Message: msg}, &res)
	if err != nil {
		return err
	}
	if !res.Delivered {
		if res.Error != "" {
			return fmt.Errorf("tab %d: %s: %w", tabID, res.Error, delivery.ErrNoReceiver)
		}
		return fmt.Errorf("tab %d: %w", tabID, delivery.ErrNoReceiver)
	}
	return nil
}

func (x *Extensions) InsertCSS(ctx context.Context, tabID int, files []string) error {
	var ignored json.RawMessage
	return x.call(ctx, common.METHOD_INSERT_CSS, common.InjectParams{TabID: tabID, Files: files}, &ignored)
}

func (x *Extensions) ExecuteScript(ctx context.Context, tabID int, files []string) error {
	var ignored json.RawMessage
	return x.call(ctx, common.METHOD_EXECUTE_SCRIPT, common.InjectParams{TabID: tabID, Files: files}, &ignored)
}

var _ delivery.Host = (*Extensions)(nil)
