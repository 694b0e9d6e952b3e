// Package ingest turns uploaded documents into catalog entries.
package ingest

import (
	"context"

	"github.com/kalambet/shelfbot/internal/catalog"
	"github.com/kalambet/shelfbot/internal/logger"
	"github.com/kalambet/shelfbot/internal/present"
	"github.com/kalambet/shelfbot/internal/storage"
	"github.com/kalambet/shelfbot/internal/title"
)

type Status int

const (
	StatusSuccess Status = iota
	StatusDuplicate
	StatusUnsupported
	StatusInvalidName
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusDuplicate:
		return "duplicate"
	case StatusUnsupported:
		return "unsupported"
	case StatusInvalidName:
		return "invalid_name"
	case StatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Upload describes one shared document.
type Upload struct {
	FileName string
	Source   storage.SourceRef
	FileID   string
}

// Outcome is what the uploader is told. Link points at the new entry on
// success and at the existing one on duplicate.
type Outcome struct {
	Status Status
	Title  string
	Link   string
}

// Inserter is the catalog write the pipeline depends on.
type Inserter interface {
	Insert(ctx context.Context, title string, ref storage.SourceRef, fileID string) (storage.Entry, catalog.AddResult)
}

type Pipeline struct {
	catalog Inserter
	log     logger.Logger
}

func NewPipeline(c Inserter, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{catalog: c, log: log}
}

// Ingest validates and records an upload. A live entry with the same title
// makes it a duplicate; a stale one is replaced.
func (p *Pipeline) Ingest(ctx context.Context, u Upload) Outcome {
	if !title.Supported(u.FileName) {
		return Outcome{Status: StatusUnsupported}
	}
	t := title.Normalize(u.FileName)
	if t == "" {
		return Outcome{Status: StatusInvalidName}
	}

	e, res := p.catalog.Insert(ctx, t, u.Source, u.FileID)
	switch res {
	case catalog.AddInserted:
		p.log.Info("indexed file",
			logger.String("title", t),
			logger.Int64("chat_id", u.Source.ChatID),
			logger.Int("message_id", u.Source.MessageID),
		)
		return Outcome{Status: StatusSuccess, Title: t, Link: present.DeepLink(e.Source)}
	case catalog.AddDuplicate:
		return Outcome{Status: StatusDuplicate, Title: t, Link: present.DeepLink(e.Source)}
	default:
		return Outcome{Status: StatusFailure, Title: t}
	}
}
