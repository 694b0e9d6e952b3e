// Package cleanup deletes transient bot replies after a delay. Deletions are
// durable jobs in the store so a restart does not leave replies behind.
package cleanup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/shelfbot/internal/logger"
	"github.com/kalambet/shelfbot/internal/storage"
)

// JobTypeDeleteMessage is the job type handled by Worker.
const JobTypeDeleteMessage = "delete_message"

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultRetention    = 24 * time.Hour
	purgeEvery          = time.Hour
)

// JobStore abstracts the job queue operations.
type JobStore interface {
	EnqueueJob(job storage.Job) error
	CancelJob(id string) error
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	PurgeFinishedJobs(cutoff time.Time) (int64, error)
	RequeueRunningJobs() (int64, error)
}

// Deleter removes a message from the chat transport.
type Deleter interface {
	DeleteMessage(ctx context.Context, ref storage.SourceRef) error
}

type deletePayload struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// Scheduler enqueues delayed deletions. It never blocks on the deletion itself.
type Scheduler struct {
	store JobStore
	log   logger.Logger
}

func NewScheduler(store JobStore, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{store: store, log: log}
}

// ScheduleDelete queues deletion of ref after delay and returns the job id, or
// "" if the job could not be stored. The deletion is attempted once.
func (s *Scheduler) ScheduleDelete(ref storage.SourceRef, delay time.Duration) string {
	payload, err := json.Marshal(deletePayload{ChatID: ref.ChatID, MessageID: ref.MessageID})
	if err != nil {
		s.log.Error("encoding cleanup payload", logger.Error(err))
		return ""
	}
	job := storage.Job{
		ID:          uuid.New().String(),
		Type:        JobTypeDeleteMessage,
		PayloadJSON: string(payload),
		RunAfter:    time.Now().Add(delay),
	}
	if err := s.store.EnqueueJob(job); err != nil {
		s.log.Error("scheduling message cleanup",
			logger.Int64("chat_id", ref.ChatID),
			logger.Int("message_id", ref.MessageID),
			logger.Error(err),
		)
		return ""
	}
	return job.ID
}

// Cancel drops a scheduled deletion that has not started yet. It reports
// whether a pending job was removed.
func (s *Scheduler) Cancel(id string) bool {
	if id == "" {
		return false
	}
	if err := s.store.CancelJob(id); err != nil {
		s.log.Debug("cancelling cleanup", logger.String("job_id", id), logger.Error(err))
		return false
	}
	return true
}

type Options struct {
	// PollInterval between empty queue checks. Defaults to 500ms.
	PollInterval time.Duration
	// Retention of finished jobs before purge. Defaults to 24h.
	Retention time.Duration
}

// Worker executes due delete_message jobs.
type Worker struct {
	store     JobStore
	deleter   Deleter
	poll      time.Duration
	retention time.Duration
	log       logger.Logger
	lastPurge time.Time
}

func NewWorker(store JobStore, deleter Deleter, log logger.Logger, opts Options) *Worker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Retention <= 0 {
		opts.Retention = defaultRetention
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Worker{
		store:     store,
		deleter:   deleter,
		poll:      opts.PollInterval,
		retention: opts.Retention,
		log:       log,
	}
}

// Run polls for jobs until ctx is cancelled. It always returns nil so it can
// sit in an errgroup next to the other services.
func (w *Worker) Run(ctx context.Context) error {
	if n, err := w.store.RequeueRunningJobs(); err != nil {
		w.log.Error("requeueing interrupted cleanup jobs", logger.Error(err))
	} else if n > 0 {
		w.log.Info("requeued interrupted cleanup jobs", logger.Int64("count", n))
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		w.maybePurge()

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.log.Error("cleanup iteration failed", logger.Error(err))
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and executes one due job. It returns true if a job was
// processed, whether or not the deletion succeeded.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobTypeDeleteMessage})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		// The target may already be gone; nothing to retry.
		w.log.Debug("cleanup delete failed", logger.String("job_id", job.ID), logger.Error(err))
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.log.Error("failed to mark job as failed", logger.String("job_id", job.ID), logger.Error(failErr))
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var p deletePayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &p); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}
	return w.deleter.DeleteMessage(ctx, storage.SourceRef{ChatID: p.ChatID, MessageID: p.MessageID})
}

func (w *Worker) maybePurge() {
	now := time.Now()
	if now.Sub(w.lastPurge) < purgeEvery {
		return
	}
	w.lastPurge = now
	n, err := w.store.PurgeFinishedJobs(now.Add(-w.retention))
	if err != nil {
		w.log.Warn("purging finished cleanup jobs", logger.Error(err))
		return
	}
	if n > 0 {
		w.log.Debug("purged finished cleanup jobs", logger.Int64("count", n))
	}
}
