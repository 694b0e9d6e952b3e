// Package bot implements the chat command surface independently of the
// transport. Every call gets its conversation and actor explicitly; the
// handler holds no per-event state.
package bot

import (
	"context"
	"time"

	"github.com/kalambet/shelfbot/internal/ingest"
	"github.com/kalambet/shelfbot/internal/logger"
	"github.com/kalambet/shelfbot/internal/present"
	"github.com/kalambet/shelfbot/internal/search"
	"github.com/kalambet/shelfbot/internal/storage"
)

const DefaultCleanupDelay = 10 * time.Second

// Message is an outgoing HTML message with an optional button grid.
type Message struct {
	Text     string
	Keyboard [][]present.Button
}

// Conversation replies within the chat an event came from. Edit rewrites the
// message the event is attached to (a button press).
type Conversation interface {
	Reply(ctx context.Context, msg Message) (storage.SourceRef, error)
	Edit(ctx context.Context, msg Message) error
}

// Catalog is the catalog surface used by admin commands.
type Catalog interface {
	HelpMessage() string
	SetHelpMessage(raw string) bool
	AddAdvertisement(text, url string) (storage.Advertisement, bool)
	EditAdvertisement(id int64, text, url string) bool
	DeactivateAdvertisement(id int64) bool
	ListActiveAdvertisements() []storage.Advertisement
}

type Searcher interface {
	Search(ctx context.Context, query string, page int) search.Result
}

type Ingester interface {
	Ingest(ctx context.Context, u ingest.Upload) ingest.Outcome
}

// Scheduler queues delayed deletion of transient replies.
type Scheduler interface {
	ScheduleDelete(ref storage.SourceRef, delay time.Duration) string
}

type Deps struct {
	Catalog   Catalog
	Search    Searcher
	Ingest    Ingester
	Scheduler Scheduler
}

type Config struct {
	AdminIDs     []int64
	CleanupDelay time.Duration
	// SearchOnText makes plain non-command text a page-1 search.
	SearchOnText bool
}

type Handler struct {
	deps   Deps
	admins map[int64]struct{}
	delay  time.Duration
	onText bool
	log    logger.Logger
}

func New(deps Deps, cfg Config, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	admins := make(map[int64]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = struct{}{}
	}
	delay := cfg.CleanupDelay
	if delay <= 0 {
		delay = DefaultCleanupDelay
	}
	return &Handler{
		deps:   deps,
		admins: admins,
		delay:  delay,
		onText: cfg.SearchOnText,
		log:    log,
	}
}

// IsAdmin reports whether actor is on the admin allow-list.
func (h *Handler) IsAdmin(actor int64) bool {
	_, ok := h.admins[actor]
	return ok
}

func (h *Handler) reply(ctx context.Context, conv Conversation, msg Message) error {
	_, err := conv.Reply(ctx, msg)
	return err
}

// replyTransient sends msg and schedules its deletion.
func (h *Handler) replyTransient(ctx context.Context, conv Conversation, text string) error {
	ref, err := conv.Reply(ctx, Message{Text: text})
	if err != nil {
		return err
	}
	if h.deps.Scheduler != nil {
		h.deps.Scheduler.ScheduleDelete(ref, h.delay)
	}
	return nil
}

func fromPayload(p present.Payload) Message {
	return Message{Text: p.Text, Keyboard: p.Keyboard}
}
