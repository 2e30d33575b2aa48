package modules

import "time"

// RealClock is the Clock backed by the wall clock and the runtime timer
// wheel. Production wiring uses this; tests inject a fake that advances
// deterministically.
type RealClock struct{}

// Now returns time.Now().
func (RealClock) Now() time.Time { return time.Now() }

// After returns time.After(d).
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
