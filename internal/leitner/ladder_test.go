package leitner

import (
	"errors"
	"testing"
	"time"
)

func TestNewLadder(t *testing.T) {
	testCases := []struct {
		name    string
		days    []int
		wantErr error
	}{
		{name: "default shape", days: []int{1, 3, 7, 14, 30, 90}},
		{name: "single box", days: []int{5}},
		{name: "zero day interval", days: []int{0, 1, 2}},
		{name: "repeated interval", days: []int{1, 1, 3}},
		{name: "empty", days: nil, wantErr: ErrEmptyLadder},
		{name: "negative", days: []int{1, -3}, wantErr: ErrNegativeInterval},
		{name: "decreasing", days: []int{1, 7, 3}, wantErr: ErrDecreasingLadder},
		{name: "longest representable interval", days: []int{1, MaxIntervalDays}},
		{name: "interval overflows duration", days: []int{1, 200000}, wantErr: ErrIntervalTooLarge},
		{name: "one day past the limit", days: []int{MaxIntervalDays + 1}, wantErr: ErrIntervalTooLarge},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l, err := NewLadder(tc.days...)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("NewLadder(%v) error = %v, want %v", tc.days, err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewLadder(%v) returned an unexpected error: %v", tc.days, err)
			}
			if l.Len() != len(tc.days) {
				t.Errorf("Len() = %d, want %d", l.Len(), len(tc.days))
			}
		})
	}
}

func TestLadderIsImmutable(t *testing.T) {
	days := []int{1, 2, 4}
	l, err := NewLadder(days...)
	if err != nil {
		t.Fatalf("NewLadder: %v", err)
	}

	days[0] = 100
	if l.Days(0) != 1 {
		t.Errorf("ladder changed with its input slice: Days(0) = %d", l.Days(0))
	}

	vals := l.Values()
	vals[1] = 100
	if l.Days(1) != 2 {
		t.Errorf("ladder changed through Values(): Days(1) = %d", l.Days(1))
	}
}

func TestDefaultLadder(t *testing.T) {
	l := DefaultLadder()
	expected := []int{1, 3, 7, 14, 30, 90}
	if l.Len() != len(expected) {
		t.Fatalf("Len() = %d, want %d", l.Len(), len(expected))
	}
	for i, d := range expected {
		if l.Days(i) != d {
			t.Errorf("Days(%d) = %d, want %d", i, l.Days(i), d)
		}
		if l.Interval(i) != time.Duration(d)*24*time.Hour {
			t.Errorf("Interval(%d) = %v, want %d days", i, l.Interval(i), d)
		}
	}
	if l.MaxIndex() != 5 {
		t.Errorf("MaxIndex() = %d, want 5", l.MaxIndex())
	}
}

func TestLadderContains(t *testing.T) {
	l := DefaultLadder()
	for i, want := range map[int]bool{-1: false, 0: true, 5: true, 6: false} {
		if got := l.Contains(i); got != want {
			t.Errorf("Contains(%d) = %v, want %v", i, got, want)
		}
	}
}
