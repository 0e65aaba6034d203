package lidstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/matheus3301/walink/internal/lidcache"
)

// Save replaces the stored snapshot with mappings. Order is preserved so
// that Load followed by lidcache.Import restores recency.
func (db *DB) Save(mappings []lidcache.Mapping) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM lid_map`); err != nil {
		return fmt.Errorf("clear lid_map: %w", err)
	}
	// Reset AUTOINCREMENT so seq keeps reflecting snapshot order only.
	if _, err := tx.Exec(`DELETE FROM sqlite_sequence WHERE name = 'lid_map'`); err != nil {
		return fmt.Errorf("reset lid_map sequence: %w", err)
	}

	now := time.Now().UnixMilli()
	stmt, err := tx.Prepare(`
		INSERT INTO lid_map (lid, pn, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(lid) DO UPDATE SET pn = excluded.pn, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, m := range mappings {
		if _, err := stmt.Exec(m.LID, m.PN, now); err != nil {
			return fmt.Errorf("insert lid_map %q: %w", m.LID, err)
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO snapshot_meta (key, value) VALUES ('saved_at', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.FormatInt(now, 10)); err != nil {
		return fmt.Errorf("update snapshot_meta: %w", err)
	}
	return tx.Commit()
}

// Load returns the stored snapshot in the order it was saved.
func (db *DB) Load() ([]lidcache.Mapping, error) {
	rows, err := db.Query(`SELECT lid, pn FROM lid_map ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []lidcache.Mapping
	for rows.Next() {
		var m lidcache.Mapping
		if err := rows.Scan(&m.LID, &m.PN); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SavedAt returns when the last snapshot was written, or the zero time if
// none was.
func (db *DB) SavedAt() (time.Time, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM snapshot_meta WHERE key = 'saved_at'`).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse saved_at: %w", err)
	}
	return time.UnixMilli(ms), nil
}
