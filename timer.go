package main

import (
	"sync"
	"time"
)

type alarmKind int

const (
	alarmPhase alarmKind = iota
	alarmCleanup
)

type alarmEvent struct {
	gen  uint64
	kind alarmKind
}

// alarmClock holds at most one pending deadline per room. Arming a new
// deadline replaces any previous one; a replaced alarm that still fires
// carries a stale generation and is dropped by the consumer. The
// session additionally re-checks the current phase, since a deadline
// that outlived its phase proves nothing about the state it fires into.
type alarmClock struct {
	mu    sync.Mutex
	gen   uint64
	kind  alarmKind
	timer *time.Timer
	fire  func(alarmEvent)
}

func newAlarmClock(fire func(alarmEvent)) *alarmClock {
	return &alarmClock{fire: fire}
}

func (a *alarmClock) arm(d time.Duration, kind alarmKind) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Stop()
	}

	a.gen++
	a.kind = kind

	ev := alarmEvent{gen: a.gen, kind: kind}
	a.timer = time.AfterFunc(d, func() {
		a.fire(ev)
	})
}

func (a *alarmClock) stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
}

// cancelCleanup stops a pending cleanup deadline without touching a
// phase deadline.
func (a *alarmClock) cancelCleanup() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer == nil || a.kind != alarmCleanup {
		return
	}

	a.timer.Stop()
	a.timer = nil
	a.gen++
}

// armed reports whether a deadline is pending. It is consulted on
// reconnection: a room resuming from suspension has lost its alarm and
// needs one re-armed from persisted state.
func (a *alarmClock) armed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.timer != nil
}

// current is the generation an event must carry to be acted on.
func (a *alarmClock) current() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.gen
}
