package vesting

import "time"

// Clock is the source of the current time. It is asked afresh on every call.
type Clock interface {
	Now() Timestamp
}

// SystemClock reads the wall clock in milliseconds.
type SystemClock struct{}

// Now returns milliseconds since the Unix epoch.
func (SystemClock) Now() Timestamp {
	ms := time.Now().UnixMilli()
	if ms < 0 {
		return 0
	}
	return Timestamp(ms)
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() Timestamp

// Now calls f.
func (f ClockFunc) Now() Timestamp {
	return f()
}
