// Package session implements the Idle/Focusing/Resting state machine that
// decides when focus and rest periods start and end. Fire times are
// persisted so the machine survives a restart, and every transition clears
// the opposing phase before arming its own alarm.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/restcue/restcue/common"
	"github.com/restcue/restcue/internal/delivery"
	"github.com/restcue/restcue/internal/scheduler"
	"github.com/restcue/restcue/internal/settings"
	"github.com/restcue/restcue/internal/stats"
	"github.com/restcue/restcue/internal/storage"
	"github.com/restcue/restcue/pkg/logger"
)

// Storage keys of the persisted fire times, in the local area. Values are
// Unix milliseconds; 0 means unset.
const (
	KeyNextFocusEnd = "nextFocusEnd"
	KeyNextRestEnd  = "nextRestEnd"
)

// staleTolerance is how far in the future a persisted fire time may be
// while its alarm is still considered due.
const staleTolerance = time.Second

// Deliverer is the subset of the delivery engine the state machine uses.
type Deliverer interface {
	BroadcastAll(ctx context.Context, msg any) ([]delivery.Result, error)
	DeliverActiveFirst(ctx context.Context, msg any) ([]delivery.Result, error)
}

// Options wires an Engine.
type Options struct {
	Settings *settings.Store
	Stats    *stats.Tracker
	// Local holds the persisted fire times.
	Local    storage.Store
	Alarms   scheduler.Alarms
	Delivery Deliverer
	Logger   logger.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Engine serializes every session operation behind one mutex; delivery
// runs inside the critical section so transitions never interleave.
type Engine struct {
	mu       sync.Mutex
	settings *settings.Store
	stats    *stats.Tracker
	local    storage.Store
	alarms   scheduler.Alarms
	delivery Deliverer
	log      logger.Logger
	now      func() time.Time
}

func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		settings: opts.Settings,
		stats:    opts.Stats,
		local:    opts.Local,
		alarms:   opts.Alarms,
		delivery: opts.Delivery,
		log:      opts.Logger,
		now:      opts.Now,
	}
}

// Timers is the persisted pair of fire times.
type Timers struct {
	NextFocusEnd int64
	NextRestEnd  int64
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms) }

func (e *Engine) readTimer(ctx context.Context, key string) (int64, error) {
	var v int64
	ok, err := storage.GetJSON(ctx, e.local, key, &v)
	if err != nil {
		if !ok {
			return 0, fmt.Errorf("read %s: %w", key, err)
		}
		e.log.Warning("ignoring unreadable %s: %v", key, err)
		return 0, nil
	}
	if v < 0 {
		v = 0
	}
	return v, nil
}

// Timers returns the persisted fire times.
func (e *Engine) Timers(ctx context.Context) (Timers, error) {
	focus, err := e.readTimer(ctx, KeyNextFocusEnd)
	if err != nil {
		return Timers{}, err
	}
	rest, err := e.readTimer(ctx, KeyNextRestEnd)
	if err != nil {
		return Timers{}, err
	}
	return Timers{NextFocusEnd: focus, NextRestEnd: rest}, nil
}

// writeTimers persists t. The key being zeroed is written first so the two
// keys are never both non-zero, even between the writes.
func (e *Engine) writeTimers(ctx context.Context, t Timers) error {
	type kv struct {
		key string
		val int64
	}
	order := []kv{{KeyNextFocusEnd, t.NextFocusEnd}, {KeyNextRestEnd, t.NextRestEnd}}
	if t.NextRestEnd == 0 {
		order[0], order[1] = order[1], order[0]
	}
	for _, w := range order {
		if err := storage.SetJSON(ctx, e.local, w.key, w.val); err != nil {
			return fmt.Errorf("persist %s: %w", w.key, err)
		}
	}
	return nil
}

// Stats answers get-stats.
func (e *Engine) Stats(ctx context.Context) (common.StatsResponse, error) {
	st, err := e.stats.Get(ctx)
	if err != nil {
		return common.StatsResponse{}, err
	}
	t, err := e.Timers(ctx)
	if err != nil {
		return common.StatsResponse{}, err
	}
	return common.StatsResponse{
		FocusMinutes: st.FocusMinutes,
		RestMinutes:  st.RestMinutes,
		Status:       string(st.Status),
		NextFocusEnd: t.NextFocusEnd,
		NextRestEnd:  t.NextRestEnd,
	}, nil
}

// Settings returns the effective settings.
func (e *Engine) Settings(ctx context.Context) (settings.Settings, error) {
	return e.settings.Load(ctx)
}

func (e *Engine) effective(ctx context.Context, override settings.Patch) settings.Settings {
	s, err := e.settings.Effective(ctx, override)
	if err != nil {
		e.log.Warning("settings unavailable, using defaults: %v", err)
	}
	return s
}

// logResults records the delivery outcome of one transition.
func (e *Engine) logResults(what string, results []delivery.Result, err error) {
	if err != nil {
		e.log.Warning("%s: %v", what, err)
	}
	if delivery.Delivered(results) {
		e.log.Debug("%s delivered to %d of %d tab(s)", what, countDelivered(results), len(results))
		return
	}
	e.log.Info("%s was not delivered to any tab", what)
}

func countDelivered(results []delivery.Result) int {
	n := 0
	for _, r := range results {
		if r.Delivered {
			n++
		}
	}
	return n
}
