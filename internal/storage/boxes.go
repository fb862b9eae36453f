package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/memobox/internal/domain"
)

const boxSelect = `
	SELECT b.id, b.name, b.description, b.source_language_id, b.target_language_id, b.created_at, b.updated_at,
		sl.name, sl.code, tl.name, tl.code
	FROM boxes b
	LEFT JOIN languages sl ON sl.id = b.source_language_id
	LEFT JOIN languages tl ON tl.id = b.target_language_id`

// InsertBox stores a new box and fills in its ID and timestamps. A language
// reference that does not exist gives ErrNotFound.
func (db *DB) InsertBox(ctx context.Context, box *domain.Box, now time.Time) error {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO boxes (name, description, source_language_id, target_language_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, box.Name, box.Description, nullID(box.SourceLanguageID), nullID(box.TargetLanguageID), toMillis(now), toMillis(now))
	if isForeignKeyViolation(err) {
		return fmt.Errorf("language of box %q: %w", box.Name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to insert box %q: %w", box.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID for box %q: %w", box.Name, err)
	}
	box.ID = id
	box.CreatedAt = fromMillis(toMillis(now))
	box.UpdatedAt = box.CreatedAt
	return nil
}

// GetBox retrieves a box by ID together with its languages.
func (db *DB) GetBox(ctx context.Context, id int64) (*domain.Box, error) {
	row := db.conn.QueryRowContext(ctx, boxSelect+` WHERE b.id = ?`, id)
	b, err := scanBox(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("box %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get box %d: %w", id, err)
	}
	return b, nil
}

// ListBoxes returns all boxes ordered by ID.
func (db *DB) ListBoxes(ctx context.Context) ([]domain.Box, error) {
	rows, err := db.conn.QueryContext(ctx, boxSelect+` ORDER BY b.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list boxes: %w", err)
	}
	defer rows.Close()

	var boxes []domain.Box
	for rows.Next() {
		b, err := scanBox(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan box row: %w", err)
		}
		boxes = append(boxes, *b)
	}
	return boxes, rows.Err()
}

// UpdateBox writes the name, description and language references of box.
// Its cards and their schedules are untouched.
func (db *DB) UpdateBox(ctx context.Context, box *domain.Box, now time.Time) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE boxes
		SET name = ?, description = ?, source_language_id = ?, target_language_id = ?, updated_at = ?
		WHERE id = ?
	`, box.Name, box.Description, nullID(box.SourceLanguageID), nullID(box.TargetLanguageID), toMillis(now), box.ID)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("language of box %d: %w", box.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update box %d: %w", box.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("box %d: %w", box.ID, ErrNotFound)
	}
	box.UpdatedAt = fromMillis(toMillis(now))
	return nil
}

// DeleteBox removes a box together with its cards.
func (db *DB) DeleteBox(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM boxes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete box %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("box %d: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBox(r rowScanner) (*domain.Box, error) {
	var (
		b                domain.Box
		srcID, tgtID     sql.NullInt64
		created, updated int64
		srcName, srcCode sql.NullString
		tgtName, tgtCode sql.NullString
	)
	err := r.Scan(&b.ID, &b.Name, &b.Description, &srcID, &tgtID, &created, &updated,
		&srcName, &srcCode, &tgtName, &tgtCode)
	if err != nil {
		return nil, err
	}
	if srcID.Valid {
		b.SourceLanguageID = &srcID.Int64
		b.SourceLanguage = &domain.Language{ID: srcID.Int64, Name: srcName.String, Code: srcCode.String}
	}
	if tgtID.Valid {
		b.TargetLanguageID = &tgtID.Int64
		b.TargetLanguage = &domain.Language{ID: tgtID.Int64, Name: tgtName.String, Code: tgtCode.String}
	}
	b.CreatedAt = fromMillis(created)
	b.UpdatedAt = fromMillis(updated)
	return &b, nil
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
