package storage

import (
	"database/sql"
	"fmt"
	"time"
)

func scanAdvertisement(row rowScanner) (Advertisement, error) {
	var a Advertisement
	var createdAt string
	if err := row.Scan(&a.ID, &a.Text, &a.URL, &a.Active, &createdAt); err != nil {
		return Advertisement{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Advertisement{}, fmt.Errorf("parsing created_at: %w", err)
	}
	a.CreatedAt = t
	return a, nil
}

func (s *Store) InsertAdvertisement(text, url string) (Advertisement, error) {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := s.db.Exec(`
		INSERT INTO advertisements (text, url, is_active, created_at)
		VALUES (?, ?, 1, ?)`,
		text, url, now.Format(time.RFC3339),
	)
	if err != nil {
		return Advertisement{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Advertisement{}, fmt.Errorf("reading inserted id: %w", err)
	}
	return Advertisement{ID: id, Text: text, URL: url, Active: true, CreatedAt: now}, nil
}

// GetActiveAdvertisement returns ErrNotFound for unknown and deactivated ids alike.
func (s *Store) GetActiveAdvertisement(id int64) (Advertisement, error) {
	a, err := scanAdvertisement(s.db.QueryRow(`
		SELECT id, text, url, is_active, created_at
		FROM advertisements WHERE id = ? AND is_active = 1`, id))
	if err == sql.ErrNoRows {
		return Advertisement{}, ErrNotFound
	}
	if err != nil {
		return Advertisement{}, err
	}
	return a, nil
}

func (s *Store) ListActiveAdvertisements() ([]Advertisement, error) {
	return s.queryAdvertisements(`
		SELECT id, text, url, is_active, created_at
		FROM advertisements WHERE is_active = 1
		ORDER BY id`)
}

// SampleActiveAdvertisements returns up to limit distinct active ads in random order.
func (s *Store) SampleActiveAdvertisements(limit int) ([]Advertisement, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.queryAdvertisements(`
		SELECT id, text, url, is_active, created_at
		FROM advertisements WHERE is_active = 1
		ORDER BY RANDOM()
		LIMIT ?`, limit)
}

func (s *Store) queryAdvertisements(query string, args ...any) ([]Advertisement, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Advertisement
	for rows.Next() {
		a, err := scanAdvertisement(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

// DeactivateAdvertisement soft-deletes an active ad. It returns ErrNotFound
// when the id is unknown or already inactive.
func (s *Store) DeactivateAdvertisement(id int64) error {
	return s.execOne(`UPDATE advertisements SET is_active = 0 WHERE id = ? AND is_active = 1`, id)
}

// UpdateAdvertisement rewrites text and url of an active ad.
func (s *Store) UpdateAdvertisement(id int64, text, url string) error {
	return s.execOne(`UPDATE advertisements SET text = ?, url = ? WHERE id = ? AND is_active = 1`, text, url, id)
}

func (s *Store) execOne(query string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
