package sync

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/conorfennell/memobox/internal/domain"
	"github.com/conorfennell/memobox/internal/knol"
	"github.com/conorfennell/memobox/internal/leitner"
	"github.com/conorfennell/memobox/internal/parser"
	"github.com/conorfennell/memobox/internal/review"
	"github.com/conorfennell/memobox/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var syncNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newSyncer(t *testing.T) (*Syncer, *storage.DB) {
	t.Helper()
	db, err := storage.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(db, logger, review.FixedClock(syncNow), t.TempDir()), db
}

func writeDeck(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestRunSyncLocalSource(t *testing.T) {
	ctx := context.Background()
	s, db := newSyncer(t)

	deckDir := filepath.Join(t.TempDir(), "german")
	require.NoError(t, os.MkdirAll(filepath.Join(deckDir, "sub"), 0o755))
	writeDeck(t, deckDir, "a.md", "Q: apple\nA: Apfel\n---\nQ: pear\nA: Birne\n")
	writeDeck(t, filepath.Join(deckDir, "sub"), "b.md", "Q: plum\nA: Pflaume\n")
	writeDeck(t, deckDir, "notes.txt", "Q: ignored\nA: ignored\n")

	_, err := s.AddSource(ctx, deckDir)
	require.NoError(t, err)

	reports, err := s.RunSync(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	rep := reports[0]
	assert.Equal(t, 3, rep.Parsed)
	assert.Equal(t, 3, rep.Inserted)
	assert.Empty(t, rep.Errors)

	box, err := db.GetBox(ctx, rep.BoxID)
	require.NoError(t, err)
	assert.Equal(t, "german", box.Name)

	cards, err := db.ListCards(ctx, rep.BoxID)
	require.NoError(t, err)
	require.Len(t, cards, 3)
	for _, c := range cards {
		assert.Equal(t, 0, c.IntervalIndex)
		assert.True(t, c.NextRecallAt.Equal(syncNow), "imported cards are due at once")
	}

	// Advance the apple card, then change the deck.
	apple, err := db.FindCardByHash(ctx, rep.BoxID, knol.Hash("apple", "Apfel"))
	require.NoError(t, err)
	sched := leitner.NewScheduler(leitner.DefaultLadder())
	next := sched.RecordRecall(apple.RecallState(), true, syncNow)
	require.NoError(t, db.UpdateRecallState(ctx, apple, next, domain.RecallEvent{CardID: apple.ID, Remembered: true, ToIndex: 1, RecordedAt: syncNow}))

	writeDeck(t, deckDir, "a.md", "Q: apple\nA: Apfel\n---\nQ: cherry\nA: Kirsche\n")

	reports, err = s.RunSync(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, rep.BoxID, reports[0].BoxID, "source keeps its box")
	assert.Equal(t, 1, reports[0].Inserted)
	assert.Equal(t, 1, reports[0].Deleted)

	kept, err := db.FindCardByHash(ctx, rep.BoxID, knol.Hash("apple", "Apfel"))
	require.NoError(t, err)
	assert.Equal(t, 1, kept.IntervalIndex, "re-import keeps the schedule")

	_, err = db.FindCardByHash(ctx, rep.BoxID, knol.Hash("pear", "Birne"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunSyncKeepsCardsOfUnparsableFile(t *testing.T) {
	ctx := context.Background()
	s, db := newSyncer(t)

	deckDir := t.TempDir()
	writeDeck(t, deckDir, "a.md", "Q: apple\nA: Apfel\n")
	writeDeck(t, deckDir, "b.md", "Q: pear\nA: Birne\n")
	_, err := s.AddSource(ctx, deckDir)
	require.NoError(t, err)
	reports, err := s.RunSync(ctx)
	require.NoError(t, err)
	boxID := reports[0].BoxID

	apple, err := db.FindCardByHash(ctx, boxID, knol.Hash("apple", "Apfel"))
	require.NoError(t, err)
	sched := leitner.NewScheduler(leitner.DefaultLadder())
	next := sched.RecordRecall(apple.RecallState(), true, syncNow)
	require.NoError(t, db.UpdateRecallState(ctx, apple, next, domain.RecallEvent{CardID: apple.ID, Remembered: true, ToIndex: 1, RecordedAt: syncNow}))

	// A line past the parser's limit makes a.md unreadable, and b.md loses its card.
	huge := strings.Repeat("x", parser.MaxLineSize+1)
	writeDeck(t, deckDir, "a.md", "Q: apple\nA: Apfel\n"+huge+"\n")
	writeDeck(t, deckDir, "b.md", "Q: plum\nA: Pflaume\n")

	reports, err = s.RunSync(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	rep := reports[0]
	assert.Equal(t, 1, rep.Inserted, "readable files are still imported")
	assert.Equal(t, 0, rep.Deleted)
	require.Len(t, rep.Errors, 2)
	assert.ErrorIs(t, rep.Errors[0], bufio.ErrTooLong)
	assert.ErrorIs(t, rep.Errors[1], ErrIncompleteScan)

	kept, err := db.GetCard(ctx, apple.ID)
	require.NoError(t, err, "card of the unreadable file must survive")
	assert.Equal(t, 1, kept.IntervalIndex)
	history, err := db.RecallHistory(ctx, apple.ID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	// Pear is only removed once the whole source scans cleanly.
	_, err = db.FindCardByHash(ctx, boxID, knol.Hash("pear", "Birne"))
	require.NoError(t, err)

	writeDeck(t, deckDir, "a.md", "Q: apple\nA: Apfel\n")
	reports, err = s.RunSync(ctx)
	require.NoError(t, err)
	assert.Empty(t, reports[0].Errors)
	assert.Equal(t, 1, reports[0].Deleted)
	_, err = db.FindCardByHash(ctx, boxID, knol.Hash("pear", "Birne"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = db.GetCard(ctx, apple.ID)
	assert.NoError(t, err)
}

func TestRunSyncImportsCardsDifferingOnlyInSideBoundary(t *testing.T) {
	ctx := context.Background()
	s, db := newSyncer(t)

	deckDir := t.TempDir()
	writeDeck(t, deckDir, "a.md", "Q: a\nb\nA: c\n---\nQ: a\nA: b\nc\n")
	_, err := s.AddSource(ctx, deckDir)
	require.NoError(t, err)

	reports, err := s.RunSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, reports[0].Inserted)
	cards, err := db.ListCards(ctx, reports[0].BoxID)
	require.NoError(t, err)
	assert.Len(t, cards, 2)
}

func TestRunSyncLeavesManualCards(t *testing.T) {
	ctx := context.Background()
	s, db := newSyncer(t)

	deckDir := t.TempDir()
	writeDeck(t, deckDir, "a.md", "Q: one\nA: eins\n")
	_, err := s.AddSource(ctx, deckDir)
	require.NoError(t, err)
	reports, err := s.RunSync(ctx)
	require.NoError(t, err)

	manual := &domain.Card{BoxID: reports[0].BoxID, SourceText: "two", TargetText: "zwei"}
	require.NoError(t, db.InsertCard(ctx, manual, syncNow))

	_, err = s.RunSync(ctx)
	require.NoError(t, err)
	_, err = db.GetCard(ctx, manual.ID)
	assert.NoError(t, err)
}

func TestRunSyncNoSources(t *testing.T) {
	s, _ := newSyncer(t)
	reports, err := s.RunSync(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, reports)
}

func TestRunSyncSkipsMissingDirectory(t *testing.T) {
	ctx := context.Background()
	s, db := newSyncer(t)
	_, err := db.InsertSource(ctx, filepath.Join(t.TempDir(), "gone"), storage.SourceLocal)
	require.NoError(t, err)

	reports, err := s.RunSync(ctx)
	assert.NoError(t, err)
	assert.Empty(t, reports)
}

func TestSourceType(t *testing.T) {
	testCases := map[string]string{
		"https://github.com/x/decks.git": storage.SourceGit,
		"git@github.com:x/decks.git":     storage.SourceGit,
		"/home/me/decks":                 storage.SourceLocal,
		"./decks":                        storage.SourceLocal,
	}
	for path, want := range testCases {
		assert.Equal(t, want, SourceType(path), path)
	}
}

func TestGitURLToLocalPath(t *testing.T) {
	testCases := []struct {
		url  string
		want string
	}{
		{"https://github.com/x/decks.git", filepath.Join("repos", "github.com", "x", "decks")},
		{"git@github.com:x/decks.git", filepath.Join("repos", "github.com", "x", "decks")},
	}
	for _, tc := range testCases {
		got, err := gitURLToLocalPath("repos", tc.url)
		require.NoError(t, err, tc.url)
		assert.Equal(t, tc.want, got)
	}

	_, err := gitURLToLocalPath("repos", "not a url")
	assert.Error(t, err)

	for _, escaping := range []string{
		"https://host/../../x.git",
		"https://host/../../../etc/decks.git",
		"git@host:../../x.git",
		"https://../",
	} {
		_, err := gitURLToLocalPath("repos", escaping)
		assert.Error(t, err, escaping)
	}
	got, err := gitURLToLocalPath("repos", "https://host/team/../decks.git")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("repos", "host", "decks"), got)
}
