package scheduler

import "time"

// Clock supplies a scheduler's notion of time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock. All real-thread schedulers use it.
var SystemClock Clock = systemClock{}
