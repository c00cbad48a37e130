// Package clock abstracts wall time so services can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// System reads the host clock in UTC
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Fake is a monotonic clock for tests. Every Now call advances by Step.
type Fake struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

// NewFake starts a fake clock at start
func NewFake(start time.Time) *Fake {
	return &Fake{now: start.UTC()}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.now
	f.now = f.now.Add(f.Step)
	return t
}

// Advance moves the clock forward; negative durations are ignored
func (f *Fake) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
