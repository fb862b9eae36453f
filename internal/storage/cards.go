package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/memobox/internal/domain"
	"github.com/conorfennell/memobox/internal/leitner"
)

const cardColumns = `id, box_id, source_text, target_text, hash, interval_index,
	last_recall_at, next_recall_at, version, created_at, updated_at`

// InsertCard stores a new card in the first box of the ladder, due at now.
// The card's ID, schedule, version and timestamps are filled in.
func (db *DB) InsertCard(ctx context.Context, card *domain.Card, now time.Time) error {
	created := fromMillis(toMillis(now))
	state := leitner.NewState(created)
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO cards (box_id, source_text, target_text, hash, interval_index, last_recall_at, next_recall_at, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, NULL, ?, 0, ?, ?)
	`,
		card.BoxID,
		card.SourceText,
		card.TargetText,
		nullString(card.Hash),
		state.IntervalIndex,
		toMillis(state.NextRecallAt),
		toMillis(created),
		toMillis(created),
	)
	if err != nil {
		return fmt.Errorf("failed to insert card into box %d: %w", card.BoxID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID for card: %w", err)
	}

	card.ID = id
	card.ApplyRecallState(state)
	card.Version = 0
	card.CreatedAt = created
	card.UpdatedAt = created
	return nil
}

// GetCard retrieves a card by ID.
func (db *DB) GetCard(ctx context.Context, id int64) (*domain.Card, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("card %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card %d: %w", id, err)
	}
	return c, nil
}

// FindCardByHash retrieves an imported card of a box by its content hash.
func (db *DB) FindCardByHash(ctx context.Context, boxID int64, hash string) (*domain.Card, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE box_id = ? AND hash = ?`, boxID, hash)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("card %s in box %d: %w", hash, boxID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find card by hash %s: %w", hash, err)
	}
	return c, nil
}

// ListCards returns the cards of a box ordered by ID.
func (db *DB) ListCards(ctx context.Context, boxID int64) ([]domain.Card, error) {
	return db.queryCards(ctx, `SELECT `+cardColumns+` FROM cards WHERE box_id = ? ORDER BY id`, boxID)
}

// DueCards returns cards whose next recall is at or before now, most overdue
// first. A zero boxID selects all boxes; a non-positive limit means no limit.
func (db *DB) DueCards(ctx context.Context, boxID int64, now time.Time, limit int) ([]domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE next_recall_at <= ?`
	args := []any{toMillis(now)}
	if boxID != 0 {
		query += ` AND box_id = ?`
		args = append(args, boxID)
	}
	query += ` ORDER BY next_recall_at, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return db.queryCards(ctx, query, args...)
}

// UpdateCardText changes the texts of a card without touching its schedule.
func (db *DB) UpdateCardText(ctx context.Context, id int64, sourceText, targetText string, now time.Time) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE cards SET source_text = ?, target_text = ?, updated_at = ?
		WHERE id = ?
	`, sourceText, targetText, toMillis(now), id)
	if err != nil {
		return fmt.Errorf("failed to update card %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("card %d: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateRecallState persists a recall transition of card. The three
// scheduling fields are written together with the event in one transaction,
// and only if the stored version still equals card.Version. On success the
// card carries the new state and version.
func (db *DB) UpdateRecallState(ctx context.Context, card *domain.Card, next leitner.State, event domain.RecallEvent) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin recall update for card %d: %w", card.ID, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE cards
		SET interval_index = ?, last_recall_at = ?, next_recall_at = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`,
		next.IntervalIndex,
		toNullMillis(next.LastRecallAt),
		toMillis(next.NextRecallAt),
		toMillis(event.RecordedAt),
		card.ID,
		card.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update recall state for card %d: %w", card.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards WHERE id = ?`, card.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check card %d: %w", card.ID, err)
		}
		if exists == 0 {
			return fmt.Errorf("card %d: %w", card.ID, ErrNotFound)
		}
		return fmt.Errorf("card %d at version %d: %w", card.ID, card.Version, ErrConflict)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO recall_events (card_id, remembered, from_index, to_index, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`, card.ID, event.Remembered, event.FromIndex, event.ToIndex, toMillis(event.RecordedAt)); err != nil {
		return fmt.Errorf("failed to record recall event for card %d: %w", card.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recall update for card %d: %w", card.ID, err)
	}

	card.ApplyRecallState(next)
	card.Version++
	card.UpdatedAt = fromMillis(toMillis(event.RecordedAt))
	return nil
}

// RecallHistory returns the most recent recall events of a card, newest first.
func (db *DB) RecallHistory(ctx context.Context, cardID int64, limit int) ([]domain.RecallEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, card_id, remembered, from_index, to_index, recorded_at
		FROM recall_events WHERE card_id = ?
		ORDER BY recorded_at DESC, id DESC LIMIT ?
	`, cardID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recall history for card %d: %w", cardID, err)
	}
	defer rows.Close()

	var events []domain.RecallEvent
	for rows.Next() {
		var (
			e  domain.RecallEvent
			at int64
		)
		if err := rows.Scan(&e.ID, &e.CardID, &e.Remembered, &e.FromIndex, &e.ToIndex, &at); err != nil {
			return nil, fmt.Errorf("failed to scan recall event row: %w", err)
		}
		e.RecordedAt = fromMillis(at)
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteCard removes a card by ID.
func (db *DB) DeleteCard(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("card %d: %w", id, ErrNotFound)
	}
	return nil
}

func (db *DB) queryCards(ctx context.Context, query string, args ...any) ([]domain.Card, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, *c)
	}
	return cards, rows.Err()
}

func scanCard(r rowScanner) (*domain.Card, error) {
	var (
		c                        domain.Card
		hash                     sql.NullString
		lastRecall               sql.NullInt64
		nextRecall, created, upd int64
	)
	err := r.Scan(
		&c.ID,
		&c.BoxID,
		&c.SourceText,
		&c.TargetText,
		&hash,
		&c.IntervalIndex,
		&lastRecall,
		&nextRecall,
		&c.Version,
		&created,
		&upd,
	)
	if err != nil {
		return nil, err
	}
	c.Hash = hash.String
	c.LastRecallAt = fromNullMillis(lastRecall)
	c.NextRecallAt = fromMillis(nextRecall)
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(upd)
	return &c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
