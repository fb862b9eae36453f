package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/conorfennell/memobox/internal/domain"
	"github.com/conorfennell/memobox/internal/leitner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertCard(t *testing.T, db *DB, boxID int64, src string, at time.Time) *domain.Card {
	t.Helper()
	c := &domain.Card{BoxID: boxID, SourceText: src, TargetText: src + "-t"}
	require.NoError(t, db.InsertCard(context.Background(), c, at))
	return c
}

func TestInsertCardStartsDue(t *testing.T) {
	db := testDB(t)
	box := testBox(t, db, "b")
	c := insertCard(t, db, box.ID, "apple", testNow)

	got, err := db.GetCard(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.IntervalIndex)
	assert.Nil(t, got.LastRecallAt)
	assert.True(t, got.NextRecallAt.Equal(testNow))
	assert.Equal(t, int64(0), got.Version)
	assert.Empty(t, got.Hash)
}

func TestInsertCardUnknownBox(t *testing.T) {
	db := testDB(t)
	c := &domain.Card{BoxID: 999, SourceText: "x", TargetText: "y"}
	assert.Error(t, db.InsertCard(context.Background(), c, testNow))
}

func TestUpdateRecallState(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	box := testBox(t, db, "b")
	c := insertCard(t, db, box.ID, "apple", testNow)

	s := leitner.NewScheduler(leitner.DefaultLadder())
	at := testNow.Add(time.Hour)
	next := s.RecordRecall(c.RecallState(), true, at)
	ev := domain.RecallEvent{CardID: c.ID, Remembered: true, FromIndex: 0, ToIndex: next.IntervalIndex, RecordedAt: at}

	require.NoError(t, db.UpdateRecallState(ctx, c, next, ev))
	assert.Equal(t, int64(1), c.Version)

	got, err := db.GetCard(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.IntervalIndex)
	require.NotNil(t, got.LastRecallAt)
	assert.True(t, got.LastRecallAt.Equal(at))
	assert.True(t, got.NextRecallAt.Equal(at.Add(3*24*time.Hour)))
	assert.Equal(t, int64(1), got.Version)

	history, err := db.RecallHistory(ctx, c.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Remembered)
	assert.Equal(t, 0, history[0].FromIndex)
	assert.Equal(t, 1, history[0].ToIndex)
	assert.True(t, history[0].RecordedAt.Equal(at))
}

func TestUpdateRecallStateConflict(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	box := testBox(t, db, "b")
	c := insertCard(t, db, box.ID, "apple", testNow)

	s := leitner.NewScheduler(leitner.DefaultLadder())
	first, err := db.GetCard(ctx, c.ID)
	require.NoError(t, err)
	stale, err := db.GetCard(ctx, c.ID)
	require.NoError(t, err)

	at := testNow.Add(time.Minute)
	next := s.RecordRecall(first.RecallState(), true, at)
	require.NoError(t, db.UpdateRecallState(ctx, first, next, domain.RecallEvent{CardID: c.ID, Remembered: true, ToIndex: 1, RecordedAt: at}))

	lost := s.RecordRecall(stale.RecallState(), false, at)
	err = db.UpdateRecallState(ctx, stale, lost, domain.RecallEvent{CardID: c.ID, RecordedAt: at})
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, int64(0), stale.Version, "failed update must not touch the caller's card")

	got, err := db.GetCard(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.IntervalIndex, "the losing write must not clobber the winner")

	history, err := db.RecallHistory(ctx, c.ID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestUpdateRecallStateMissingCard(t *testing.T) {
	db := testDB(t)
	c := &domain.Card{ID: 42}
	err := db.UpdateRecallState(context.Background(), c, leitner.NewState(testNow), domain.RecallEvent{RecordedAt: testNow})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDueCards(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	a := testBox(t, db, "a")
	b := testBox(t, db, "b")

	now := testNow
	past := insertCard(t, db, a.ID, "past", now.Add(-time.Second))
	insertCard(t, db, a.ID, "future", now.Add(time.Second))
	exact := insertCard(t, db, a.ID, "exact", now)
	other := insertCard(t, db, b.ID, "other", now.Add(-time.Hour))

	due, err := db.DueCards(ctx, a.ID, now, 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, past.ID, due[0].ID)
	assert.Equal(t, exact.ID, due[1].ID)

	all, err := db.DueCards(ctx, 0, now, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, other.ID, all[0].ID, "most overdue first")

	limited, err := db.DueCards(ctx, 0, now, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestUpdateCardTextKeepsSchedule(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	box := testBox(t, db, "b")
	c := insertCard(t, db, box.ID, "apple", testNow)

	require.NoError(t, db.UpdateCardText(ctx, c.ID, "pear", "Birne", testNow.Add(time.Hour)))
	got, err := db.GetCard(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "pear", got.SourceText)
	assert.Equal(t, "Birne", got.TargetText)
	assert.True(t, got.NextRecallAt.Equal(testNow))
	assert.Equal(t, int64(0), got.Version)

	assert.ErrorIs(t, db.UpdateCardText(ctx, 999, "a", "b", testNow), ErrNotFound)
}

func TestFindAndDeleteByHash(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	box := testBox(t, db, "b")
	c := &domain.Card{BoxID: box.ID, SourceText: "q", TargetText: "a", Hash: "abc"}
	require.NoError(t, db.InsertCard(ctx, c, testNow))

	got, err := db.FindCardByHash(ctx, box.ID, "abc")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	dup := &domain.Card{BoxID: box.ID, SourceText: "q", TargetText: "a", Hash: "abc"}
	assert.Error(t, db.InsertCard(ctx, dup, testNow), "hash is unique per box")

	require.NoError(t, db.DeleteCardByHash(ctx, box.ID, "abc"))
	_, err = db.FindCardByHash(ctx, box.ID, "abc")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeleteCard(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	box := testBox(t, db, "b")
	c := insertCard(t, db, box.ID, "apple", testNow)

	require.NoError(t, db.DeleteCard(ctx, c.ID))
	assert.ErrorIs(t, db.DeleteCard(ctx, c.ID), ErrNotFound)
}
