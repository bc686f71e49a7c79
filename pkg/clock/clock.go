package clock

import "time"

// Clock abstracts time.Now so lock expiry can be tested deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Fixed is a clock that returns a settable instant, for tests.
type Fixed struct {
	now time.Time
}

// NewFixed returns a clock pinned to t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t.UTC()}
}

func (f *Fixed) Now() time.Time {
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}
