package review

import "time"

// Clock supplies the instant a recall is recorded.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC, truncated to the millisecond
// precision the store keeps.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }
