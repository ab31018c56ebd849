package session

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/restcue/restcue/common"
	"github.com/restcue/restcue/internal/scheduler"
	"github.com/restcue/restcue/internal/settings"
	"github.com/restcue/restcue/internal/stats"
)

// StartFocus begins a focus period, restarting it when one is running.
func (e *Engine) StartFocus(ctx context.Context, override settings.Patch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startFocusLocked(ctx, e.effective(ctx, override))
}

func (e *Engine) startFocusLocked(ctx context.Context, s settings.Settings) error {
	end := e.now().Add(s.Interval())
	e.alarms.Clear(common.ALARM_REST_END)
	if err := e.writeTimers(ctx, Timers{NextFocusEnd: toMillis(end)}); err != nil {
		return err
	}
	if _, err := e.stats.SetStatus(ctx, stats.Focusing); err != nil {
		return err
	}
	e.alarms.Create(common.ALARM_FOCUS_END, end)
	e.log.Info("focus session started, ends at %s", end.Format("15:04:05"))
	return nil
}

// beginRestLocked records a rest period: credits the rest minutes up
// front, persists the fire time and arms rest-end. It delivers nothing.
func (e *Engine) beginRestLocked(ctx context.Context, s settings.Settings) error {
	end := e.now().Add(s.Rest())
	e.alarms.Clear(common.ALARM_FOCUS_END)
	if err := e.writeTimers(ctx, Timers{NextRestEnd: toMillis(end)}); err != nil {
		return err
	}
	if _, err := e.stats.Begin(ctx, stats.Resting, s.RestCreditMinutes()); err != nil {
		return err
	}
	e.alarms.Create(common.ALARM_REST_END, end)
	e.log.Info("rest session started, ends at %s", end.Format("15:04:05"))
	return nil
}

// StartRest begins a rest period and broadcasts the overlay to every
// eligible tab.
func (e *Engine) StartRest(ctx context.Context, override settings.Patch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startRestLocked(ctx, e.effective(ctx, override))
}

func (e *Engine) startRestLocked(ctx context.Context, s settings.Settings) error {
	if err := e.beginRestLocked(ctx, s); err != nil {
		return err
	}
	results, err := e.delivery.BroadcastAll(ctx, TriggerPause(s))
	e.logResults("trigger-pause", results, err)
	return nil
}

// restActiveFirstLocked begins a rest period and shows the overlay on the
// active tab, broadcasting only when that fails.
func (e *Engine) restActiveFirstLocked(ctx context.Context, s settings.Settings) error {
	if err := e.beginRestLocked(ctx, s); err != nil {
		return err
	}
	results, err := e.delivery.DeliverActiveFirst(ctx, TriggerPause(s))
	e.logResults("trigger-pause", results, err)
	return nil
}

// PauseNow starts a rest period immediately. From the popup the overlay
// goes to the page the user is looking at; otherwise it is broadcast.
func (e *Engine) PauseNow(ctx context.Context, fromPopup bool, override settings.Patch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.effective(ctx, override)
	if fromPopup {
		return e.restActiveFirstLocked(ctx, s)
	}
	return e.startRestLocked(ctx, s)
}

// ResumeFocus ends the rest period early on user request and starts focus.
func (e *Engine) ResumeFocus(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sendEndRestLocked(ctx)
	return e.startFocusLocked(ctx, e.effective(ctx, nil))
}

func (e *Engine) sendEndRestLocked(ctx context.Context) {
	results, err := e.delivery.DeliverActiveFirst(ctx, EndRest())
	e.logResults("end-rest", results, err)
}

// stopLocked returns the machine to Idle, keeping the counters.
func (e *Engine) stopLocked(ctx context.Context) error {
	e.alarms.ClearAll()
	if err := e.writeTimers(ctx, Timers{}); err != nil {
		return err
	}
	if _, err := e.stats.SetStatus(ctx, stats.Idle); err != nil {
		return err
	}
	e.log.Info("session stopped")
	return nil
}

// Stop cancels the running session without touching the counters.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked(ctx)
}

// Reset zeroes the daily counters, clears both fire times and cancels all
// alarms. The machine is Idle afterwards.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alarms.ClearAll()
	if err := e.writeTimers(ctx, Timers{}); err != nil {
		return err
	}
	if _, err := e.stats.Reset(ctx); err != nil {
		return err
	}
	e.log.Info("daily stats reset")
	return nil
}

// UpdateSettings merges patch into the stored settings and re-plans the
// running session: disabling stops it, and a running focus period is
// restarted with the new interval.
func (e *Engine) UpdateSettings(ctx context.Context, patch settings.Patch) (settings.Settings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.settings.Update(ctx, patch)
	if err != nil {
		return s, err
	}
	if !s.Enabled {
		return s, e.stopLocked(ctx)
	}
	st, err := e.stats.Get(ctx)
	if err != nil {
		return s, err
	}
	if st.Status == stats.Focusing {
		return s, e.startFocusLocked(ctx, s)
	}
	return s, nil
}

// TriggerNow broadcasts a one-off overlay without changing any state.
// A positive durationSeconds overrides the configured rest length.
func (e *Engine) TriggerNow(ctx context.Context, durationSeconds float64) ([]bool, error) {
	var override settings.Patch
	if durationSeconds > 0 {
		override = settings.Patch{
			settings.FieldDurationSeconds: json.RawMessage(strconv.FormatFloat(durationSeconds, 'f', -1, 64)),
		}
	}
	s := e.effective(ctx, override)
	results, err := e.delivery.BroadcastAll(ctx, TriggerPause(s))
	e.logResults("trigger-now", results, err)
	out := make([]bool, len(results))
	for i, r := range results {
		out[i] = r.Delivered
	}
	return out, err
}

// HandleAlarm runs the transition for a fired alarm. A fire is ignored when
// the persisted fire time for its phase was cleared or moved later after
// the alarm was armed.
func (e *Engine) HandleAlarm(ctx context.Context, a scheduler.Alarm) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var key string
	switch a.Name {
	case common.ALARM_FOCUS_END:
		key = KeyNextFocusEnd
	case common.ALARM_REST_END:
		key = KeyNextRestEnd
	default:
		e.log.Warning("unknown alarm %q", a.Name)
		return
	}
	due, err := e.readTimer(ctx, key)
	if err != nil {
		e.log.Error("alarm %s: %v", a.Name, err)
		return
	}
	if due == 0 || fromMillis(due).After(e.now().Add(staleTolerance)) {
		e.log.Debug("ignoring stale %s alarm", a.Name)
		return
	}

	switch a.Name {
	case common.ALARM_FOCUS_END:
		err = e.focusEndLocked(ctx)
	case common.ALARM_REST_END:
		err = e.restEndLocked(ctx)
	}
	if err != nil {
		e.log.Error("alarm %s: %v", a.Name, err)
	}
}

func (e *Engine) focusEndLocked(ctx context.Context) error {
	return e.restActiveFirstLocked(ctx, e.effective(ctx, nil))
}

// restEndLocked removes the overlay and starts the next focus period, or
// goes Idle when reminders were disabled meanwhile.
func (e *Engine) restEndLocked(ctx context.Context) error {
	e.sendEndRestLocked(ctx)
	s := e.effective(ctx, nil)
	if !s.Enabled {
		return e.stopLocked(ctx)
	}
	return e.startFocusLocked(ctx, s)
}
