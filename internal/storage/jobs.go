package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const jobColumns = `id, type, payload_json, status, attempts, run_after, created_at, updated_at, last_error`

func ts(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// EnqueueJob stores a pending job due at job.RunAfter, or now if unset.
func (s *Store) EnqueueJob(job Job) error {
	now := time.Now()
	due := job.RunAfter
	if due.IsZero() {
		due = now
	}
	_, err := s.db.Exec(`INSERT INTO jobs (id, type, payload_json, status, attempts, run_after, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', 0, ?, ?, ?)`,
		job.ID, job.Type, job.PayloadJSON, ts(due), ts(now), ts(now))
	if err != nil {
		return fmt.Errorf("enqueueing job %s: %w", job.ID, err)
	}
	return nil
}

// ClaimNextJob moves the oldest due pending job of one of types to running
// and returns it. Claiming counts as an attempt. It returns nil, nil when
// nothing is due.
func (s *Store) ClaimNextJob(types []string) (*Job, error) {
	if len(types) == 0 {
		return nil, nil
	}
	now := ts(time.Now())
	args := []any{now, now}
	for _, t := range types {
		args = append(args, t)
	}

	// A single UPDATE ... RETURNING is atomic, so two workers never get the
	// same row.
	row := s.db.QueryRow(`UPDATE jobs SET status = 'running', attempts = attempts + 1, updated_at = ?
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = 'pending' AND run_after <= ? AND type IN (?`+strings.Repeat(",?", len(types)-1)+`)
			ORDER BY run_after, created_at
			LIMIT 1
		)
		RETURNING `+jobColumns, args...)
	j, err := scanJob(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claiming job: %w", err)
	}
	return &j, nil
}

func (s *Store) CompleteJob(id string) error {
	return s.execOne(`UPDATE jobs SET status = 'completed', updated_at = ? WHERE id = ?`, ts(time.Now()), id)
}

// FailJob marks a job failed and keeps errMsg. Failed jobs stay failed.
func (s *Store) FailJob(id string, errMsg string) error {
	return s.execOne(`UPDATE jobs SET status = 'failed', last_error = ?, updated_at = ? WHERE id = ?`,
		errMsg, ts(time.Now()), id)
}

// CancelJob deletes a job that has not been claimed yet.
func (s *Store) CancelJob(id string) error {
	return s.execOne(`DELETE FROM jobs WHERE id = ? AND status = 'pending'`, id)
}

// GetJob returns a job by id regardless of status.
func (s *Store) GetJob(id string) (Job, error) {
	return scanJob(s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
}

// PurgeFinishedJobs deletes completed and failed jobs last touched before cutoff.
func (s *Store) PurgeFinishedJobs(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM jobs WHERE status IN ('completed', 'failed') AND updated_at < ?`, ts(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RequeueRunningJobs returns jobs left running by an interrupted process to
// pending so they are claimed again.
func (s *Store) RequeueRunningJobs() (int64, error) {
	res, err := s.db.Exec(`UPDATE jobs SET status = 'pending', updated_at = ? WHERE status = 'running'`, ts(time.Now()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanJob(row *sql.Row) (Job, error) {
	var j Job
	var runAfter, createdAt, updatedAt string
	var lastError sql.NullString
	err := row.Scan(&j.ID, &j.Type, &j.PayloadJSON, &j.Status, &j.Attempts, &runAfter, &createdAt, &updatedAt, &lastError)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, err
	}
	j.LastError = lastError.String
	for _, f := range []struct {
		dst *time.Time
		src string
	}{{&j.RunAfter, runAfter}, {&j.CreatedAt, createdAt}, {&j.UpdatedAt, updatedAt}} {
		if *f.dst, err = time.Parse(time.RFC3339, f.src); err != nil {
			return Job{}, fmt.Errorf("parsing timestamps of job %s: %w", j.ID, err)
		}
	}
	return j, nil
}
