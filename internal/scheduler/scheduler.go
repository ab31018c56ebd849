package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

const maxSleepCap = 60 * time.Second

type opKind int

const (
	opCreate opKind = iota
	opClear
	opClearAll
)

type op struct {
	kind opKind
	e    entry
}

// Scheduler manages named alarms using a min-heap.
// It runs a background goroutine that sleeps until the next alarm's
// fire time, then calls the fire callback on a fresh goroutine so that
// the callback may create or clear alarms itself.
type Scheduler struct {
	// ops is the single mailbox of the loop goroutine; one channel keeps
	// a create followed by a clear in submission order.
	ops chan op
	ctx context.Context

	mu     sync.Mutex
	seq    uint64
	armed  map[string]entry
	onFire FireFunc
	now    func() time.Time
}

// New creates and starts a new Scheduler.
// The onFire callback is invoked when an alarm fires.
// The scheduler goroutine exits when ctx is cancelled.
func New(ctx context.Context, onFire FireFunc) *Scheduler {
	s := &Scheduler{
		ops:    make(chan op, 64),
		ctx:    ctx,
		armed:  make(map[string]entry),
		onFire: onFire,
		now:    time.Now,
	}
	go s.run()
	return s
}

// SetOnFire replaces the fire callback.
func (s *Scheduler) SetOnFire(fn FireFunc) {
	s.mu.Lock()
	s.onFire = fn
	s.mu.Unlock()
}

func (s *Scheduler) send(o op) {
	select {
	case s.ops <- o:
	case <-s.ctx.Done():
	}
}

// Create arms name at when, replacing any pending alarm with that name.
func (s *Scheduler) Create(name string, when time.Time) {
	s.mu.Lock()
	s.seq++
	e := entry{Alarm: Alarm{Name: name, When: when}, seq: s.seq}
	s.armed[name] = e
	s.mu.Unlock()
	s.send(op{kind: opCreate, e: e})
}

// Clear cancels a pending alarm by name.
func (s *Scheduler) Clear(name string) bool {
	s.mu.Lock()
	_, ok := s.armed[name]
	delete(s.armed, name)
	s.mu.Unlock()
	s.send(op{kind: opClear, e: entry{Alarm: Alarm{Name: name}}})
	return ok
}

// ClearAll cancels every pending alarm.
func (s *Scheduler) ClearAll() {
	s.mu.Lock()
	s.armed = make(map[string]entry)
	s.mu.Unlock()
	s.send(op{kind: opClearAll})
}

// Next returns the fire time of a pending alarm.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.armed[name]
	return e.When, ok
}

// claim removes e from the armed set if it is still the current alarm for
// its name. A replaced or cleared alarm is not fired.
func (s *Scheduler) claim(e entry) (FireFunc, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.armed[e.Name]
	if !ok || cur.seq != e.seq {
		return nil, false
	}
	delete(s.armed, e.Name)
	return s.onFire, true
}

// run is the core scheduler goroutine implementing the active-object pattern.
// It maintains a min-heap of alarms and sleeps with a 60s max-sleep-cap.
func (s *Scheduler) run() {
	h := &alarmHeap{}
	heap.Init(h)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		if h.Len() == 0 {
			// No alarms, block on the mailbox only
			return nil
		}
		dur := (*h)[0].When.Sub(s.now())
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	timerCh := resetTimer()

	for {
		select {
		case <-s.ctx.Done():
			return

		case o := <-s.ops:
			switch o.kind {
			case opCreate:
				heapRemoveByName(h, o.e.Name)
				heapPush(h, o.e)
			case opClear:
				heapRemoveByName(h, o.e.Name)
			case opClearAll:
				*h = (*h)[:0]
			}
			timerCh = resetTimer()

		case <-timerCh:
			now := s.now()
			for h.Len() > 0 && !(*h)[0].When.After(now) {
				e := heapPop(h)
				if fn, ok := s.claim(e); ok && fn != nil {
					go fn(e.Alarm)
				}
			}
			timerCh = resetTimer()
		}
	}
}

var _ Alarms = (*Scheduler)(nil)
