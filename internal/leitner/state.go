package leitner

import "time"

// State is the part of a card the scheduler reads and writes.
type State struct {
	// IntervalIndex is the card's position on the ladder.
	IntervalIndex int
	// LastRecallAt is nil until the first recall is recorded.
	LastRecallAt *time.Time
	// NextRecallAt is when the card becomes due.
	NextRecallAt time.Time
}

// NewState returns the state of a freshly created card: first box, never
// recalled, due immediately.
func NewState(createdAt time.Time) State {
	return State{NextRecallAt: createdAt}
}

// IsDue reports whether the card is due at now. The boundary is inclusive.
func IsDue(s State, now time.Time) bool {
	return !s.NextRecallAt.After(now)
}

// FilterDue returns the items whose next recall time, as reported by next,
// is at or before now. Order is preserved.
func FilterDue[T any](items []T, now time.Time, next func(T) time.Time) []T {
	var due []T
	for _, it := range items {
		if !next(it).After(now) {
			due = append(due, it)
		}
	}
	return due
}
