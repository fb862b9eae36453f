package domain

import (
	"time"

	"github.com/conorfennell/memobox/internal/leitner"
)

// Language is a language cards are written in.
type Language struct {
	ID        int64
	Name      string
	Code      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Box is a named collection of cards for one language pair.
type Box struct {
	ID          int64
	Name        string
	Description string
	// Language references are nil for boxes created by an import.
	SourceLanguageID *int64
	TargetLanguageID *int64
	// SourceLanguage and TargetLanguage are filled in on reads.
	SourceLanguage *Language
	TargetLanguage *Language
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Card is a single source/target text pair and its recall schedule.
type Card struct {
	ID         int64
	BoxID      int64
	SourceText string
	TargetText string
	// Hash is the content hash of imported cards; empty for cards created by hand.
	Hash string

	IntervalIndex int
	LastRecallAt  *time.Time
	NextRecallAt  time.Time

	// Version is bumped on every recall and guards concurrent updates.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecallState returns the scheduling fields of the card.
func (c Card) RecallState() leitner.State {
	return leitner.State{
		IntervalIndex: c.IntervalIndex,
		LastRecallAt:  c.LastRecallAt,
		NextRecallAt:  c.NextRecallAt,
	}
}

// ApplyRecallState overwrites the scheduling fields of the card with s.
func (c *Card) ApplyRecallState(s leitner.State) {
	c.IntervalIndex = s.IntervalIndex
	c.LastRecallAt = s.LastRecallAt
	c.NextRecallAt = s.NextRecallAt
}

// RecallEvent records a single review outcome against a card.
type RecallEvent struct {
	ID         int64
	CardID     int64
	Remembered bool
	FromIndex  int
	ToIndex    int
	RecordedAt time.Time
}
