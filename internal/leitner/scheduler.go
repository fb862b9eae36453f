// Package leitner implements Leitner-box recall scheduling: a fixed ladder
// of review intervals where a remembered card climbs one box and a forgotten
// card falls back to the first.
package leitner

import (
	"fmt"
	"time"
)

// Scheduler computes recall transitions over a fixed ladder. It holds no
// mutable state and is safe for concurrent use.
type Scheduler struct {
	ladder Ladder
}

// NewScheduler returns a scheduler over ladder.
func NewScheduler(ladder Ladder) *Scheduler {
	if ladder.Len() == 0 {
		panic("leitner: NewScheduler called with an empty ladder")
	}
	return &Scheduler{ladder: ladder}
}

// Ladder returns the scheduler's ladder.
func (s *Scheduler) Ladder() Ladder { return s.ladder }

// Check returns ErrIndexOutOfRange if st cannot be passed to RecordRecall.
func (s *Scheduler) Check(st State) error {
	if !s.ladder.Contains(st.IntervalIndex) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrIndexOutOfRange, st.IntervalIndex, s.ladder.MaxIndex())
	}
	return nil
}

// RecordRecall returns the state that follows st after a review at now.
// Remembering moves the card up one box, saturating at the last one;
// forgetting sends it back to the first. The next recall is scheduled from
// now using the post-transition box.
//
// st must satisfy Check; an out-of-range index is a caller bug and panics.
func (s *Scheduler) RecordRecall(st State, remembered bool, now time.Time) State {
	if err := s.Check(st); err != nil {
		panic(err)
	}

	next := 0
	if remembered {
		next = min(st.IntervalIndex+1, s.ladder.MaxIndex())
	}

	at := now
	return State{
		IntervalIndex: next,
		LastRecallAt:  &at,
		NextRecallAt:  now.Add(s.ladder.Interval(next)),
	}
}
