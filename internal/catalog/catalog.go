// Package catalog owns the indexed files, advertisements and the help text.
// Storage faults stop here: every operation logs them and returns a safe
// default instead of an error.
package catalog

import (
	"context"
	"errors"

	"github.com/kalambet/shelfbot/internal/logger"
	"github.com/kalambet/shelfbot/internal/storage"
)

// DefaultHelp is used when neither the store nor the configuration provides one.
const DefaultHelp = "👋 Welcome! Send me a book title to search the shelf, or share a PDF, EPUB, MOBI or TXT file to add it."

// maxStaleReclaim bounds how many stale rows of one title are removed during a
// single insert.
const maxStaleReclaim = 8

// Repository is the persistence surface the catalog needs. *storage.Store
// implements it.
type Repository interface {
	InsertEntry(e storage.Entry) (storage.Entry, error)
	LatestEntryByTitle(title string) (storage.Entry, error)
	SearchLatest(query string, limit, offset int) ([]storage.Entry, int, error)
	DeleteEntriesBySource(ref storage.SourceRef) (int64, error)

	InsertAdvertisement(text, url string) (storage.Advertisement, error)
	GetActiveAdvertisement(id int64) (storage.Advertisement, error)
	ListActiveAdvertisements() ([]storage.Advertisement, error)
	SampleActiveAdvertisements(limit int) ([]storage.Advertisement, error)
	DeactivateAdvertisement(id int64) error
	UpdateAdvertisement(id int64, text, url string) error

	GetSystemMessage(typ string) (storage.SystemMessage, error)
	UpsertSystemMessage(typ, content string) error
	SeedSystemMessage(typ, content string) error
}

// Resolver reports whether a source message still exists in the chat transport.
// An error means the answer is unknown.
type Resolver interface {
	Resolves(ctx context.Context, ref storage.SourceRef) (bool, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, ref storage.SourceRef) (bool, error)

func (f ResolverFunc) Resolves(ctx context.Context, ref storage.SourceRef) (bool, error) {
	return f(ctx, ref)
}

type Options struct {
	// DefaultHelp seeds the help message when the store has none and is the
	// fallback when it cannot be read.
	DefaultHelp string
}

type Catalog struct {
	repo        Repository
	resolver    Resolver
	log         logger.Logger
	defaultHelp string
}

// New builds a catalog and seeds the help message if the store has none yet.
// A nil resolver treats every reference as live.
func New(repo Repository, resolver Resolver, log logger.Logger, opts Options) *Catalog {
	if log == nil {
		log = logger.Nop()
	}
	c := &Catalog{
		repo:        repo,
		resolver:    resolver,
		log:         log,
		defaultHelp: opts.DefaultHelp,
	}
	if c.defaultHelp == "" {
		c.defaultHelp = DefaultHelp
	}
	if err := repo.SeedSystemMessage(storage.HelpMessageType, c.defaultHelp); err != nil {
		log.Warn("seeding help message", logger.Error(err))
	}
	return c
}

// AddResult classifies the outcome of Insert.
type AddResult int

const (
	AddInserted AddResult = iota
	AddDuplicate
	AddFailed
)

// EntryExists returns the most recently inserted entry with exactly this title.
func (c *Catalog) EntryExists(title string) (storage.Entry, bool) {
	e, err := c.repo.LatestEntryByTitle(title)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Entry{}, false
	}
	if err != nil {
		c.log.Error("looking up entry", logger.String("title", title), logger.Error(err))
		return storage.Entry{}, false
	}
	return e, true
}

// AddEntry inserts a new entry unless a live entry with the same title exists.
func (c *Catalog) AddEntry(ctx context.Context, title string, ref storage.SourceRef, fileID string) bool {
	_, res := c.Insert(ctx, title, ref, fileID)
	return res == AddInserted
}

// Insert is AddEntry that also returns the relevant entry: the new one on
// AddInserted, the existing live one on AddDuplicate.
//
// Stale entries with the same title are removed first. The existence check is
// advisory; two concurrent inserts of a new title can both succeed, and search
// then shows the later one.
func (c *Catalog) Insert(ctx context.Context, title string, ref storage.SourceRef, fileID string) (storage.Entry, AddResult) {
	for i := 0; i < maxStaleReclaim; i++ {
		existing, ok := c.EntryExists(title)
		if !ok {
			break
		}
		if c.MessageResolves(ctx, existing.Source) {
			return existing, AddDuplicate
		}
		c.log.Info("reclaiming stale entry",
			logger.String("title", title),
			logger.Int64("chat_id", existing.Source.ChatID),
			logger.Int("message_id", existing.Source.MessageID),
		)
		if !c.RemoveEntry(existing.Source) {
			// Removal failed; inserting leaves the new row canonical anyway.
			break
		}
	}

	e, err := c.repo.InsertEntry(storage.Entry{Title: title, Source: ref, FileID: fileID})
	if err != nil {
		c.log.Error("inserting entry", logger.String("title", title), logger.Error(err))
		return storage.Entry{}, AddFailed
	}
	return e, AddInserted
}

// Search returns one page of the latest entry per matching title, newest
// first, and the number of matches. Rows whose source message is gone are
// deleted and left out; total drops by one for each. The page is not refilled.
func (c *Catalog) Search(ctx context.Context, query string, page, pageSize int) ([]storage.Entry, int) {
	if pageSize < 1 {
		return nil, 0
	}
	if page < 1 {
		page = 1
	}

	rows, total, err := c.repo.SearchLatest(query, pageSize, (page-1)*pageSize)
	if err != nil {
		c.log.Error("searching catalog", logger.String("query", query), logger.Error(err))
		return nil, 0
	}

	live := rows[:0]
	for _, e := range rows {
		if c.MessageResolves(ctx, e.Source) {
			live = append(live, e)
			continue
		}
		c.log.Info("dropping stale entry",
			logger.String("title", e.Title),
			logger.Int64("chat_id", e.Source.ChatID),
			logger.Int("message_id", e.Source.MessageID),
		)
		c.RemoveEntry(e.Source)
		total--
	}
	if total < 0 {
		total = 0
	}
	return live, total
}

// MessageResolves asks the transport whether ref still exists. Unknown
// answers count as existing so a transport outage never deletes data.
func (c *Catalog) MessageResolves(ctx context.Context, ref storage.SourceRef) bool {
	if c.resolver == nil {
		return true
	}
	ok, err := c.resolver.Resolves(ctx, ref)
	if err != nil {
		c.log.Warn("resolving source message",
			logger.Int64("chat_id", ref.ChatID),
			logger.Int("message_id", ref.MessageID),
			logger.Error(err),
		)
		return true
	}
	return ok
}

// RemoveEntry deletes every entry pointing at ref.
func (c *Catalog) RemoveEntry(ref storage.SourceRef) bool {
	if _, err := c.repo.DeleteEntriesBySource(ref); err != nil {
		c.log.Error("removing entry",
			logger.Int64("chat_id", ref.ChatID),
			logger.Int("message_id", ref.MessageID),
			logger.Error(err),
		)
		return false
	}
	return true
}
