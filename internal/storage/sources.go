package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/memobox/internal/domain"
)

// Source types.
const (
	SourceLocal = "local"
	SourceGit   = "git"
)

// Source is a local directory or git repository that decks are imported from.
type Source struct {
	ID          int64
	Path        string
	Type        string
	BoxID       sql.NullInt64
	LastScanned *time.Time
}

// InsertSource inserts a new source path into the database and returns its ID.
func (db *DB) InsertSource(ctx context.Context, path, sourceType string) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (path, type) VALUES (?, ?)
	`, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source from the database by its path.
func (db *DB) FindSourceByPath(ctx context.Context, path string) (*Source, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, path, type, box_id, last_scanned FROM sources WHERE path = ?
	`, path)
	s, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("source %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return s, nil
}

// GetAllSources retrieves all stored sources from the database.
func (db *DB) GetAllSources(ctx context.Context) ([]Source, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, path, type, box_id, last_scanned FROM sources ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, *s)
	}
	return sources, rows.Err()
}

// AttachSourceBox records the box that a source imports into.
func (db *DB) AttachSourceBox(ctx context.Context, sourceID, boxID int64) error {
	_, err := db.conn.ExecContext(ctx, `UPDATE sources SET box_id = ? WHERE id = ?`, boxID, sourceID)
	if err != nil {
		return fmt.Errorf("failed to attach box %d to source %d: %w", boxID, sourceID, err)
	}
	return nil
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(ctx context.Context, sourceID int64, now time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE sources SET last_scanned = ? WHERE id = ?
	`, toMillis(now), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// GetCardsBySourceID retrieves the imported cards of the box a source feeds.
func (db *DB) GetCardsBySourceID(ctx context.Context, sourceID int64) ([]domain.Card, error) {
	return db.queryCards(ctx, `
		SELECT `+cardColumns+` FROM cards
		WHERE hash IS NOT NULL AND box_id = (SELECT box_id FROM sources WHERE id = ?)
		ORDER BY id
	`, sourceID)
}

// DeleteCardByHash removes an imported card from a box.
func (db *DB) DeleteCardByHash(ctx context.Context, boxID int64, hash string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM cards WHERE box_id = ? AND hash = ?`, boxID, hash)
	if err != nil {
		return fmt.Errorf("failed to delete card with hash %s: %w", hash, err)
	}
	return nil
}

// DeleteSource removes a source. Its box and cards are kept.
func (db *DB) DeleteSource(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("source %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanSource(r rowScanner) (*Source, error) {
	var (
		s       Source
		scanned sql.NullInt64
	)
	if err := r.Scan(&s.ID, &s.Path, &s.Type, &s.BoxID, &scanned); err != nil {
		return nil, err
	}
	s.LastScanned = fromNullMillis(scanned)
	return &s, nil
}
