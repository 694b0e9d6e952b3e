package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// FoldTitle is the case-folded form titles and queries are matched on.
func FoldTitle(s string) string {
	return strings.ToLower(s)
}

const entryColumns = `id, title, chat_id, message_id, file_id, added_at`

// latestPerTitle keeps only the newest row of each title; ties on added_at
// go to the higher row id.
const latestPerTitle = `NOT EXISTS (
		SELECT 1 FROM items j
		WHERE j.title = i.title
		  AND (j.added_at > i.added_at OR (j.added_at = i.added_at AND j.id > i.id))
	)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	var addedAt int64
	if err := row.Scan(&e.ID, &e.Title, &e.Source.ChatID, &e.Source.MessageID, &e.FileID, &addedAt); err != nil {
		return Entry{}, err
	}
	e.AddedAt = time.Unix(0, addedAt).UTC()
	return e, nil
}

// InsertEntry records e and returns it with ID and AddedAt populated.
// A zero AddedAt is set to the current time.
func (s *Store) InsertEntry(e Entry) (Entry, error) {
	if e.AddedAt.IsZero() {
		e.AddedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(`
		INSERT INTO items (title, title_fold, chat_id, message_id, file_id, added_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Title, FoldTitle(e.Title), e.Source.ChatID, e.Source.MessageID, e.FileID, e.AddedAt.UnixNano(),
	)
	if err != nil {
		return Entry{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("reading inserted id: %w", err)
	}
	e.ID = id
	return e, nil
}

// LatestEntryByTitle returns the most recently added entry with exactly this title.
func (s *Store) LatestEntryByTitle(title string) (Entry, error) {
	e, err := scanEntry(s.db.QueryRow(`
		SELECT `+entryColumns+` FROM items
		WHERE title = ?
		ORDER BY added_at DESC, id DESC
		LIMIT 1`, title))
	if err == sql.ErrNoRows {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// EntriesByTitle returns every stored row with exactly this title, newest first.
func (s *Store) EntriesByTitle(title string) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT `+entryColumns+` FROM items
		WHERE title = ?
		ORDER BY added_at DESC, id DESC`, title)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// SearchLatest returns one page of the newest entry per title whose folded
// title contains the folded query, newest first, together with the total
// number of such titles. Both reads happen in one transaction.
func (s *Store) SearchLatest(query string, limit, offset int) ([]Entry, int, error) {
	needle := FoldTitle(query)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, 0, fmt.Errorf("beginning search transaction: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRow(`
		SELECT COUNT(*) FROM items i
		WHERE instr(i.title_fold, ?) > 0 AND `+latestPerTitle, needle,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting matches: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	rows, err := tx.Query(`
		SELECT i.id, i.title, i.chat_id, i.message_id, i.file_id, i.added_at FROM items i
		WHERE instr(i.title_fold, ?) > 0 AND `+latestPerTitle+`
		ORDER BY i.added_at DESC, i.id DESC
		LIMIT ? OFFSET ?`, needle, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("selecting matches: %w", err)
	}
	defer rows.Close()

	var results []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

// DeleteEntriesBySource removes every entry pointing at ref and reports how many went.
func (s *Store) DeleteEntriesBySource(ref SourceRef) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM items WHERE chat_id = ? AND message_id = ?`, ref.ChatID, ref.MessageID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountEntries returns the number of stored rows, duplicates included.
func (s *Store) CountEntries() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n)
	return n, err
}
