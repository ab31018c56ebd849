package scheduler

import "time"

// Alarm is a pending named wake-up.
type Alarm struct {
	// Name identifies the alarm; creating an alarm with a pending name
	// replaces it.
	Name string
	// When is the wall-clock time the alarm fires.
	When time.Time
}

// FireFunc is invoked when an alarm fires.
type FireFunc func(Alarm)

// Alarms is the delayed-wake capability the session engine depends on.
type Alarms interface {
	// Create arms name to fire at when, replacing a pending alarm of the
	// same name.
	Create(name string, when time.Time)
	// Clear cancels name and reports whether it was pending.
	Clear(name string) bool
	// ClearAll cancels every pending alarm.
	ClearAll()
	// Next returns the fire time of name if it is pending.
	Next(name string) (time.Time, bool)
}

// entry is a heap element. seq distinguishes an alarm from a later
// replacement with the same name.
type entry struct {
	Alarm
	seq uint64
}
