package calendar

import "time"

// Timer is a pending scheduled task.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d. Implementations must run f on the same
// goroutine that owns the Page.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// LoopScheduler fires real timers and hands the callback to Post, which
// queues it onto the owner's loop.
type LoopScheduler struct {
	Post func(func())
}

func (s LoopScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, func() { s.Post(f) })
}
