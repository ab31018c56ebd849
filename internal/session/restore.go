package session

import (
	"context"

	"github.com/restcue/restcue/common"
	"github.com/restcue/restcue/internal/stats"
)

// Restore reconciles the persisted fire times with a fresh process that
// has no alarms armed. A fire time already in the past runs its end
// transition now; a future one is re-armed. When autostart is set and the
// machine ends up Idle with reminders enabled, a focus period starts.
func (e *Engine) Restore(ctx context.Context, autostart bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.Timers(ctx)
	if err != nil {
		return err
	}
	st, err := e.stats.Get(ctx)
	if err != nil {
		return err
	}

	if t.NextFocusEnd != 0 && t.NextRestEnd != 0 {
		switch st.Status {
		case stats.Focusing:
			t.NextRestEnd = 0
		case stats.Resting:
			t.NextFocusEnd = 0
		default:
			t = Timers{}
		}
		e.log.Warning("both fire times were set, keeping %+v", t)
		if err := e.writeTimers(ctx, t); err != nil {
			return err
		}
	}

	now := e.now()
	switch {
	case t.NextFocusEnd != 0:
		due := fromMillis(t.NextFocusEnd)
		if !due.After(now) {
			e.log.Info("focus period ended while stopped, starting rest")
			return e.focusEndLocked(ctx)
		}
		if st.Status != stats.Focusing {
			if _, err := e.stats.SetStatus(ctx, stats.Focusing); err != nil {
				return err
			}
		}
		e.alarms.Create(common.ALARM_FOCUS_END, due)
		e.log.Info("restored focus session ending at %s", due.Format("15:04:05"))
		return nil

	case t.NextRestEnd != 0:
		due := fromMillis(t.NextRestEnd)
		if !due.After(now) {
			e.log.Info("rest period ended while stopped")
			return e.restEndLocked(ctx)
		}
		if st.Status != stats.Resting {
			if _, err := e.stats.SetStatus(ctx, stats.Resting); err != nil {
				return err
			}
		}
		e.alarms.Create(common.ALARM_REST_END, due)
		e.log.Info("restored rest session ending at %s", due.Format("15:04:05"))
		return nil
	}

	if st.Status != stats.Idle {
		if _, err := e.stats.SetStatus(ctx, stats.Idle); err != nil {
			return err
		}
	}
	if !autostart {
		return nil
	}
	s := e.effective(ctx, nil)
	if !s.Enabled {
		return nil
	}
	return e.startFocusLocked(ctx, s)
}
