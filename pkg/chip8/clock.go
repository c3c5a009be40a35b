package chip8

import "time"

// Clock is the monotonic time source the Runner paces itself with. Tests
// substitute a fake so elapsed time can be simulated without real sleeps.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
