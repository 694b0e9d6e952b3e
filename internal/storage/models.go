package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// SourceRef locates the original message carrying a file in the chat transport.
type SourceRef struct {
	ChatID    int64
	MessageID int
}

// Entry is one indexed file. Entries are never updated in place.
type Entry struct {
	ID      int64
	Title   string
	Source  SourceRef
	FileID  string
	AddedAt time.Time
}

type Advertisement struct {
	ID        int64
	Text      string
	URL       string
	Active    bool
	CreatedAt time.Time
}

type SystemMessage struct {
	Type      string
	Content   string
	UpdatedAt time.Time
}

// HelpMessageType is the system message key of the help/welcome text.
const HelpMessageType = "help"

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
