package datamodule

import "time"

// Clock supplies the wall time stamped into LastUpdated and used by the
// staleness gate. Tests inject a manual clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}
