package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Manual is an Alarms implementation driven by a virtual clock. Alarms fire
// synchronously inside Advance, in fire-time order, with the clock set to
// each alarm's fire time while its callback runs.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	armed  map[string]entry
	onFire FireFunc
}

func NewManual(start time.Time, onFire FireFunc) *Manual {
	return &Manual{now: start, armed: make(map[string]entry), onFire: onFire}
}

func (m *Manual) SetOnFire(fn FireFunc) {
	m.mu.Lock()
	m.onFire = fn
	m.mu.Unlock()
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Create(name string, when time.Time) {
	m.mu.Lock()
	m.seq++
	m.armed[name] = entry{Alarm: Alarm{Name: name, When: when}, seq: m.seq}
	m.mu.Unlock()
}

func (m *Manual) Clear(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.armed[name]
	delete(m.armed, name)
	return ok
}

func (m *Manual) ClearAll() {
	m.mu.Lock()
	m.armed = make(map[string]entry)
	m.mu.Unlock()
}

func (m *Manual) Next(name string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.armed[name]
	return e.When, ok
}

// Pending returns the armed alarms ordered by fire time.
func (m *Manual) Pending() []Alarm {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingLocked()
}

func (m *Manual) pendingLocked() []Alarm {
	out := make([]Alarm, 0, len(m.armed))
	for _, e := range m.armed {
		out = append(out, e.Alarm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].When.Before(out[j].When) })
	return out
}

// Advance moves the clock forward by d, firing every alarm that comes due,
// including alarms created by callbacks during the advance.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()
	for {
		m.mu.Lock()
		pending := m.pendingLocked()
		if len(pending) == 0 || pending[0].When.After(target) {
			m.now = target
			m.mu.Unlock()
			return
		}
		a := pending[0]
		delete(m.armed, a.Name)
		if a.When.After(m.now) {
			m.now = a.When
		}
		fn := m.onFire
		m.mu.Unlock()
		if fn != nil {
			fn(a)
		}
	}
}

// Fire runs the callback for name immediately, as if its alarm had come
// due, without moving the clock. It reports whether the alarm was pending.
func (m *Manual) Fire(name string) bool {
	m.mu.Lock()
	e, ok := m.armed[name]
	delete(m.armed, name)
	fn := m.onFire
	m.mu.Unlock()
	if ok && fn != nil {
		fn(e.Alarm)
	}
	return ok
}

var _ Alarms = (*Manual)(nil)
