package leitner

import "errors"

// Sentinel errors for the leitner package. Check with errors.Is.
var (
	ErrEmptyLadder      = errors.New("leitner: ladder has no intervals")
	ErrNegativeInterval = errors.New("leitner: interval must not be negative")
	ErrIntervalTooLarge = errors.New("leitner: interval too large")
	ErrDecreasingLadder = errors.New("leitner: intervals must not decrease")
	ErrIndexOutOfRange  = errors.New("leitner: interval index out of range")
)
