// Package scheduler provides named delayed-wake alarms for the session state
// machine. The real Scheduler runs a single goroutine owning a min-heap of
// alarms sorted by fire time, with a 60-second max-sleep-cap so that NTP
// steps, DST transitions and system suspend are noticed promptly.
//
// At most one alarm exists per name; creating an alarm replaces any pending
// alarm of the same name. Nothing is persisted here: callers store the fire
// times themselves and re-create alarms after a restart.
//
// Manual implements the same Alarms interface over a virtual clock for tests.
package scheduler
