package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/conorfennell/memobox/internal/domain"
)

func TestSources(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)

	id, err := db.InsertSource(ctx, "/decks/german", SourceLocal)
	if err != nil {
		t.Fatalf("InsertSource: %v", err)
	}
	if _, err := db.InsertSource(ctx, "/decks/german", SourceLocal); err == nil {
		t.Error("expected duplicate source path to fail")
	}
	if _, err := db.InsertSource(ctx, "/decks/x", "ftp"); err == nil {
		t.Error("expected unknown source type to fail")
	}

	s, err := db.FindSourceByPath(ctx, "/decks/german")
	if err != nil {
		t.Fatalf("FindSourceByPath: %v", err)
	}
	if s.ID != id || s.Type != SourceLocal || s.BoxID.Valid || s.LastScanned != nil {
		t.Errorf("FindSourceByPath = %+v", s)
	}

	box := testBox(t, db, "german")
	if err := db.AttachSourceBox(ctx, id, box.ID); err != nil {
		t.Fatalf("AttachSourceBox: %v", err)
	}
	if err := db.UpdateSourceLastScanned(ctx, id, testNow); err != nil {
		t.Fatalf("UpdateSourceLastScanned: %v", err)
	}

	imported := &domain.Card{BoxID: box.ID, SourceText: "q", TargetText: "a", Hash: "h1"}
	manual := &domain.Card{BoxID: box.ID, SourceText: "m", TargetText: "n"}
	for _, c := range []*domain.Card{imported, manual} {
		if err := db.InsertCard(ctx, c, testNow); err != nil {
			t.Fatalf("InsertCard: %v", err)
		}
	}

	cards, err := db.GetCardsBySourceID(ctx, id)
	if err != nil {
		t.Fatalf("GetCardsBySourceID: %v", err)
	}
	if len(cards) != 1 || cards[0].Hash != "h1" {
		t.Errorf("GetCardsBySourceID = %+v, want only the imported card", cards)
	}

	all, err := db.GetAllSources(ctx)
	if err != nil {
		t.Fatalf("GetAllSources: %v", err)
	}
	if len(all) != 1 || !all[0].BoxID.Valid || all[0].BoxID.Int64 != box.ID || all[0].LastScanned == nil {
		t.Errorf("GetAllSources = %+v", all)
	}

	if err := db.DeleteSource(ctx, id); err != nil {
		t.Fatalf("DeleteSource: %v", err)
	}
	if _, err := db.FindSourceByPath(ctx, "/decks/german"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindSourceByPath after delete: err = %v, want ErrNotFound", err)
	}
	if _, err := db.GetBox(ctx, box.ID); err != nil {
		t.Errorf("box should survive source deletion: %v", err)
	}
}
