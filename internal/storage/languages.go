package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/memobox/internal/domain"
)

const languageColumns = `id, name, code, created_at, updated_at`

// InsertLanguage stores a new language. A taken code gives ErrDuplicate.
func (db *DB) InsertLanguage(ctx context.Context, lang *domain.Language, now time.Time) error {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO languages (name, code, created_at, updated_at) VALUES (?, ?, ?, ?)
	`, lang.Name, lang.Code, toMillis(now), toMillis(now))
	if isUniqueViolation(err) {
		return fmt.Errorf("language code %q: %w", lang.Code, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert language %q: %w", lang.Code, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID for language %q: %w", lang.Code, err)
	}
	lang.ID = id
	lang.CreatedAt = fromMillis(toMillis(now))
	lang.UpdatedAt = lang.CreatedAt
	return nil
}

// GetLanguage retrieves a language by ID.
func (db *DB) GetLanguage(ctx context.Context, id int64) (*domain.Language, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+languageColumns+` FROM languages WHERE id = ?`, id)
	l, err := scanLanguage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("language %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get language %d: %w", id, err)
	}
	return l, nil
}

// FindLanguageByCode retrieves a language by its code.
func (db *DB) FindLanguageByCode(ctx context.Context, code string) (*domain.Language, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+languageColumns+` FROM languages WHERE code = ?`, code)
	l, err := scanLanguage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("language %q: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find language %q: %w", code, err)
	}
	return l, nil
}

// ListLanguages returns all languages ordered by name.
func (db *DB) ListLanguages(ctx context.Context) ([]domain.Language, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+languageColumns+` FROM languages ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}
	defer rows.Close()

	var langs []domain.Language
	for rows.Next() {
		l, err := scanLanguage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan language row: %w", err)
		}
		langs = append(langs, *l)
	}
	return langs, rows.Err()
}

// UpdateLanguage writes the name and code of lang.
func (db *DB) UpdateLanguage(ctx context.Context, lang *domain.Language, now time.Time) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE languages SET name = ?, code = ?, updated_at = ? WHERE id = ?
	`, lang.Name, lang.Code, toMillis(now), lang.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("language code %q: %w", lang.Code, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to update language %d: %w", lang.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("language %d: %w", lang.ID, ErrNotFound)
	}
	lang.UpdatedAt = fromMillis(toMillis(now))
	return nil
}

// DeleteLanguage removes a language. Boxes that used it keep their cards
// and lose the reference.
func (db *DB) DeleteLanguage(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM languages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete language %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("language %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanLanguage(r rowScanner) (*domain.Language, error) {
	var (
		l                domain.Language
		created, updated int64
	)
	if err := r.Scan(&l.ID, &l.Name, &l.Code, &created, &updated); err != nil {
		return nil, err
	}
	l.CreatedAt = fromMillis(created)
	l.UpdatedAt = fromMillis(updated)
	return &l, nil
}
