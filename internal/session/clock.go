package session

import "time"

// Clock supplies the current time. Readings must be monotonic.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}
