package preset

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// Schema for the presets table. Adjustments and HSL mixes are stored as
// JSON so new sliders never require a migration.
const schema = `
CREATE TABLE IF NOT EXISTS presets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	adjustments TEXT NOT NULL,
	hsl TEXT NOT NULL
);
`

// SQLiteStore persists user presets in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a preset database at path. Use
// ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preset database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize preset schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// List implements Store.
func (s *SQLiteStore) List() ([]Preset, error) {
	rows, err := s.db.Query(`SELECT name, adjustments, hsl FROM presets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query presets: %w", err)
	}
	defer rows.Close()

	out := Builtins()
	for rows.Next() {
		var name, adjJSON, hslJSON string
		if err := rows.Scan(&name, &adjJSON, &hslJSON); err != nil {
			return nil, fmt.Errorf("failed to scan preset row: %w", err)
		}

		p := Preset{Name: name}
		if err := json.Unmarshal([]byte(adjJSON), &p.Adjustments); err != nil {
			return nil, fmt.Errorf("corrupt adjustments for preset %q: %w", name, err)
		}
		if err := json.Unmarshal([]byte(hslJSON), &p.HSL); err != nil {
			return nil, fmt.Errorf("corrupt hsl mix for preset %q: %w", name, err)
		}
		p.Adjustments = p.Adjustments.Clamp()
		for i := range p.HSL {
			p.HSL[i] = p.HSL[i].Clamp()
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read presets: %w", err)
	}
	return out, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(p Preset) error {
	if p.Name == "" {
		return ErrEmptyName
	}
	if isBuiltin(p.Name) {
		return ErrBuiltin
	}

	adjJSON, err := json.Marshal(p.Adjustments)
	if err != nil {
		return fmt.Errorf("failed to encode adjustments: %w", err)
	}
	hslJSON, err := json.Marshal(p.HSL)
	if err != nil {
		return fmt.Errorf("failed to encode hsl mix: %w", err)
	}

	_, err = s.db.Exec(`INSERT INTO presets (name, adjustments, hsl) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET adjustments = excluded.adjustments, hsl = excluded.hsl`,
		p.Name, string(adjJSON), string(hslJSON))
	if err != nil {
		return fmt.Errorf("failed to save preset %q: %w", p.Name, err)
	}
	return nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(name string) error {
	if isBuiltin(name) {
		return ErrBuiltin
	}

	res, err := s.db.Exec(`DELETE FROM presets WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete preset %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete preset %q: %w", name, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
