// Package stats keeps the day-scoped focus and rest counters together with
// the current session status.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/restcue/restcue/internal/storage"
)

// Key is the storage key of the record in the local area.
const Key = "dailyStats"

// DateLayout is the calendar-day stamp format.
const DateLayout = "2006-01-02"

// Status is the session state.
type Status string

const (
	Idle     Status = "Idle"
	Focusing Status = "Focusing"
	Resting  Status = "Resting"
)

func (s Status) Valid() bool {
	switch s {
	case Idle, Focusing, Resting:
		return true
	}
	return false
}

// DailyStats is the persisted record.
type DailyStats struct {
	Date         string `json:"date"`
	FocusMinutes int    `json:"focusMinutes"`
	RestMinutes  int    `json:"restMinutes"`
	Status       Status `json:"status"`
}

// Tracker owns the DailyStats record. Every mutation is a single atomic
// storage update, so a tick can never overwrite a concurrent transition.
type Tracker struct {
	area storage.Store
	now  func() time.Time
}

// NewTracker returns a tracker over area. A nil now uses time.Now.
func NewTracker(area storage.Store, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{area: area, now: now}
}

func (t *Tracker) today() string {
	return t.now().Format(DateLayout)
}

// normalize rolls a record over to today. The status is carried across the
// boundary so a session spanning midnight keeps its phase.
func (t *Tracker) normalize(s *DailyStats, ok bool) bool {
	changed := false
	today := t.today()
	if !ok || s.Date != today {
		status := s.Status
		*s = DailyStats{Date: today, Status: status}
		changed = true
	}
	if s.FocusMinutes < 0 {
		s.FocusMinutes = 0
		changed = true
	}
	if s.RestMinutes < 0 {
		s.RestMinutes = 0
		changed = true
	}
	if !s.Status.Valid() {
		s.Status = Idle
		changed = true
	}
	return changed
}

// Update applies fn to today's record atomically and returns the result.
func (t *Tracker) Update(ctx context.Context, fn func(s *DailyStats)) (DailyStats, error) {
	out, err := storage.UpdateJSON(ctx, t.area, Key, func(s *DailyStats, ok bool) error {
		t.normalize(s, ok)
		if fn != nil {
			fn(s)
		}
		return nil
	})
	if err != nil {
		return DailyStats{}, fmt.Errorf("update daily stats: %w", err)
	}
	return out, nil
}

// Get returns today's record, persisting a fresh one when the stored record
// is missing or from another day.
func (t *Tracker) Get(ctx context.Context) (DailyStats, error) {
	var s DailyStats
	ok, err := storage.GetJSON(ctx, t.area, Key, &s)
	if err != nil && !ok {
		return DailyStats{}, fmt.Errorf("read daily stats: %w", err)
	}
	if err == nil && !t.normalize(&s, ok) {
		return s, nil
	}
	return t.Update(ctx, nil)
}

// SetStatus records the session status.
func (t *Tracker) SetStatus(ctx context.Context, status Status) (DailyStats, error) {
	return t.Update(ctx, func(s *DailyStats) {
		s.Status = status
	})
}

// Begin records a phase start, crediting restCredit minutes up front.
func (t *Tracker) Begin(ctx context.Context, status Status, restCredit int) (DailyStats, error) {
	return t.Update(ctx, func(s *DailyStats) {
		s.Status = status
		if restCredit > 0 {
			s.RestMinutes += restCredit
		}
	})
}

// AddRest credits rest minutes without touching the status.
func (t *Tracker) AddRest(ctx context.Context, minutes int) (DailyStats, error) {
	return t.Update(ctx, func(s *DailyStats) {
		if minutes > 0 {
			s.RestMinutes += minutes
		}
	})
}

// Tick credits one focus minute when the stored status is Focusing. It
// reports whether a minute was credited.
func (t *Tracker) Tick(ctx context.Context) (bool, error) {
	credited := false
	_, err := t.Update(ctx, func(s *DailyStats) {
		if s.Status == Focusing {
			s.FocusMinutes++
			credited = true
		}
	})
	return credited, err
}

// Reset replaces the record with a zeroed Idle record for today.
func (t *Tracker) Reset(ctx context.Context) (DailyStats, error) {
	return t.Update(ctx, func(s *DailyStats) {
		*s = DailyStats{Date: t.today(), Status: Idle}
	})
}
