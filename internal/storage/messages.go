package storage

import (
	"database/sql"
	"fmt"
	"time"
)

func (s *Store) GetSystemMessage(typ string) (SystemMessage, error) {
	m := SystemMessage{Type: typ}
	var updatedAt string
	err := s.db.QueryRow(`SELECT content, updated_at FROM system_messages WHERE type = ?`, typ).
		Scan(&m.Content, &updatedAt)
	if err == sql.ErrNoRows {
		return SystemMessage{}, ErrNotFound
	}
	if err != nil {
		return SystemMessage{}, err
	}
	t, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return SystemMessage{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	m.UpdatedAt = t
	return m, nil
}

// UpsertSystemMessage replaces the content stored for typ, creating the row if needed.
func (s *Store) UpsertSystemMessage(typ, content string) error {
	_, err := s.db.Exec(`
		INSERT INTO system_messages (type, content, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(type) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		typ, content, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// SeedSystemMessage stores content for typ only if nothing is stored yet.
func (s *Store) SeedSystemMessage(typ, content string) error {
	_, err := s.db.Exec(`
		INSERT INTO system_messages (type, content, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(type) DO NOTHING`,
		typ, content, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}
