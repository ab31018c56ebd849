// Package api maps the extension message actions onto the session engine
// as JSON-RPC methods. The same method table serves the HTTP bridge, the
// extension WebSocket and the native messaging host.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/restcue/restcue/common"
	"github.com/restcue/restcue/internal/settings"
	"github.com/restcue/restcue/pkg/logger"
	"golang.org/x/time/rate"
)

// JSON-RPC error codes.
const (
	codeInvalidParams = jrpc2.Code(-32602)
	codeInternal      = jrpc2.Code(-32603)
)

// Session is the state machine the handlers drive.
type Session interface {
	StartFocus(ctx context.Context, override settings.Patch) error
	PauseNow(ctx context.Context, fromPopup bool, override settings.Patch) error
	ResumeFocus(ctx context.Context) error
	Stats(ctx context.Context) (common.StatsResponse, error)
	Settings(ctx context.Context) (settings.Settings, error)
	UpdateSettings(ctx context.Context, patch settings.Patch) (settings.Settings, error)
	Reset(ctx context.Context) error
	TriggerNow(ctx context.Context, durationSeconds float64) ([]bool, error)
}

// VersionInfo identifies the running build.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildType string
}

type Api struct {
	log     logger.Logger
	session Session
	version VersionInfo
	// trigger limits trigger-now, which bypasses the session timers.
	trigger *rate.Limiter
}

func NewApi(l logger.Logger, s Session, v VersionInfo) *Api {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Api{
		log:     l,
		session: s,
		version: v,
		trigger: rate.NewLimiter(rate.Every(10*time.Second), 3),
	}
}

// Methods returns the handler table keyed by action name.
func (s *Api) Methods() handler.Map {
	return handler.Map{
		string(common.ACTION_START_FOCUS):     handler.New(s.startFocus),
		string(common.ACTION_PAUSE_NOW):       handler.New(s.pauseNow),
		string(common.ACTION_RESUME_FOCUS):    handler.New(s.resumeFocus),
		string(common.ACTION_GET_STATS):       handler.New(s.getStats),
		string(common.ACTION_GET_SETTINGS):    handler.New(s.getSettings),
		string(common.ACTION_UPDATE_SETTINGS): handler.New(s.updateSettings),
		string(common.ACTION_RESET_STATS):     handler.New(s.resetStats),
		string(common.ACTION_TRIGGER_NOW):     handler.New(s.triggerNow),
		string(common.ACTION_VERSION):         handler.New(s.getVersion),
	}
}

// Assigner returns the method table wrapped so that unknown actions get an
// explicit not-ok result and a panicking handler cannot take down the
// connection.
func (s *Api) Assigner() jrpc2.Assigner {
	return router{methods: s.Methods(), log: s.log}
}

type router struct {
	methods handler.Map
	log     logger.Logger
}

func (r router) Assign(ctx context.Context, method string) jrpc2.Handler {
	h, ok := r.methods[method]
	if !ok {
		return func(context.Context, *jrpc2.Request) (any, error) {
			r.log.Debug("unknown action %q", method)
			return common.OkResponse{Error: "unknown action: " + method}, nil
		}
	}
	return func(ctx context.Context, req *jrpc2.Request) (res any, err error) {
		defer func() {
			if p := recover(); p != nil {
				r.log.Error("%s handler panicked: %v", method, p)
				res, err = nil, &jrpc2.Error{Code: codeInternal, Message: fmt.Sprintf("internal error in %s", method)}
			}
		}()
		return h(ctx, req)
	}
}

// ack converts a session error into the acknowledgement body. Failures are
// logged and reported in the body, never as transport errors.
func (s *Api) ack(action common.Action, err error) common.OkResponse {
	if err != nil {
		s.log.Error("%s: %v", action, err)
		return common.OkResponse{Error: err.Error()}
	}
	return common.OkResponse{Ok: true}
}
