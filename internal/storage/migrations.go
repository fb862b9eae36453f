package storage

import (
	"context"
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "languages, boxes and cards",
		SQL: `
CREATE TABLE languages (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    code       TEXT NOT NULL UNIQUE,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

-- A box groups cards for one language pair.
CREATE TABLE boxes (
    id                 INTEGER PRIMARY KEY,
    name               TEXT NOT NULL,
    description        TEXT NOT NULL DEFAULT '',
    source_language_id INTEGER,
    target_language_id INTEGER,
    created_at         INTEGER NOT NULL,
    updated_at         INTEGER NOT NULL,

    FOREIGN KEY (source_language_id) REFERENCES languages(id) ON DELETE SET NULL,
    FOREIGN KEY (target_language_id) REFERENCES languages(id) ON DELETE SET NULL
);

-- interval_index, last_recall_at and next_recall_at only change together,
-- guarded by version.
CREATE TABLE cards (
    id             INTEGER PRIMARY KEY,
    box_id         INTEGER NOT NULL,
    source_text    TEXT NOT NULL,
    target_text    TEXT NOT NULL,
    hash           TEXT,
    interval_index INTEGER NOT NULL DEFAULT 0 CHECK (interval_index >= 0),
    last_recall_at INTEGER,
    next_recall_at INTEGER NOT NULL,
    version        INTEGER NOT NULL DEFAULT 0,
    created_at     INTEGER NOT NULL,
    updated_at     INTEGER NOT NULL,

    FOREIGN KEY (box_id) REFERENCES boxes(id) ON DELETE CASCADE
);

CREATE INDEX idx_cards_box ON cards(box_id);
CREATE INDEX idx_cards_next_recall ON cards(next_recall_at);
CREATE UNIQUE INDEX idx_cards_box_hash ON cards(box_id, hash) WHERE hash IS NOT NULL;
`,
	},
	{
		Version:     2,
		Description: "recall_events: review history per card",
		SQL: `
CREATE TABLE recall_events (
    id          INTEGER PRIMARY KEY,
    card_id     INTEGER NOT NULL,
    remembered  INTEGER NOT NULL,
    from_index  INTEGER NOT NULL,
    to_index    INTEGER NOT NULL,
    recorded_at INTEGER NOT NULL,

    FOREIGN KEY (card_id) REFERENCES cards(id) ON DELETE CASCADE
);

CREATE INDEX idx_recall_events_card ON recall_events(card_id, recorded_at DESC);
`,
	},
	{
		Version:     3,
		Description: "sources: local directories and git repositories to import decks from",
		SQL: `
CREATE TABLE sources (
    id           INTEGER PRIMARY KEY,
    path         TEXT NOT NULL UNIQUE,
    type         TEXT NOT NULL CHECK (type IN ('local', 'git')),
    box_id       INTEGER,
    last_scanned INTEGER,

    FOREIGN KEY (box_id) REFERENCES boxes(id) ON DELETE SET NULL
);
`,
	},
}

func (db *DB) migrate(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := db.conn.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
