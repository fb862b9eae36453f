package leitner

import (
	"fmt"
	"math"
	"time"
)

// Day is the unit the ladder is expressed in.
const Day = 24 * time.Hour

// MaxIntervalDays is the longest interval whose duration fits in a
// time.Duration.
const MaxIntervalDays = int(math.MaxInt64 / int64(Day))

// defaultDays is the classic six-box ladder.
var defaultDays = []int{1, 3, 7, 14, 30, 90}

// Ladder is an ordered, non-decreasing sequence of review intervals in days.
// The zero value is not usable; build one with NewLadder or DefaultLadder.
// A Ladder never changes after construction.
type Ladder struct {
	days []int
}

// NewLadder validates days and returns a Ladder holding its own copy of them.
func NewLadder(days ...int) (Ladder, error) {
	if len(days) == 0 {
		return Ladder{}, ErrEmptyLadder
	}
	for i, d := range days {
		if d < 0 {
			return Ladder{}, fmt.Errorf("%w: position %d is %d", ErrNegativeInterval, i, d)
		}
		if d > MaxIntervalDays {
			return Ladder{}, fmt.Errorf("%w: position %d is %d, limit %d", ErrIntervalTooLarge, i, d, MaxIntervalDays)
		}
		if i > 0 && d < days[i-1] {
			return Ladder{}, fmt.Errorf("%w: position %d (%d) is below position %d (%d)",
				ErrDecreasingLadder, i, d, i-1, days[i-1])
		}
	}
	cp := make([]int, len(days))
	copy(cp, days)
	return Ladder{days: cp}, nil
}

// DefaultLadder returns the 1, 3, 7, 14, 30, 90 day ladder.
func DefaultLadder() Ladder {
	l, _ := NewLadder(defaultDays...)
	return l
}

// Len returns the number of boxes on the ladder.
func (l Ladder) Len() int { return len(l.days) }

// MaxIndex returns the index of the longest interval.
func (l Ladder) MaxIndex() int { return len(l.days) - 1 }

// Contains reports whether i is a valid interval index.
func (l Ladder) Contains(i int) bool { return i >= 0 && i < len(l.days) }

// Days returns the interval at index i in days. It panics if i is out of range.
func (l Ladder) Days(i int) int { return l.days[i] }

// Interval returns the interval at index i as a duration.
func (l Ladder) Interval(i int) time.Duration {
	return time.Duration(l.days[i]) * Day
}

// Values returns a copy of the intervals.
func (l Ladder) Values() []int {
	cp := make([]int, len(l.days))
	copy(cp, l.days)
	return cp
}

func (l Ladder) String() string {
	return fmt.Sprint(l.days)
}
