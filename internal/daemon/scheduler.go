package daemon

import "time"

// Timer is a pending deferred job.
type Timer interface {
	// Stop cancels the job. Returns false if it already fired.
	Stop() bool
}

// Scheduler runs one-shot deferred jobs.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler schedules with the runtime timer heap.
type RealScheduler struct{}

// AfterFunc calls f on its own goroutine after d.
func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
