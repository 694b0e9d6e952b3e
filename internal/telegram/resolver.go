package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/kalambet/shelfbot/internal/logger"
	"github.com/kalambet/shelfbot/internal/storage"
)

// API is the slice of *tele.Bot used to probe and delete messages.
type API interface {
	Forward(to tele.Recipient, msg tele.Editable, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
}

// goneMarkers are Bot API error descriptions meaning the message no longer exists.
var goneMarkers = []string{
	"message to forward not found",
	"message to delete not found",
	"message not found",
	"message_id_invalid",
}

func isGone(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, m := range goneMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func stored(ref storage.SourceRef) *tele.StoredMessage {
	return &tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: ref.ChatID}
}

// Resolver checks whether a source message still exists. The Bot API has no
// direct lookup, so the message is forwarded silently to a probe chat and the
// copy deleted right away. Without a probe chat every reference resolves.
type Resolver struct {
	api   API
	probe int64
	log   logger.Logger
}

func NewResolver(api API, probeChatID int64, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{api: api, probe: probeChatID, log: log}
}

func (r *Resolver) Resolves(_ context.Context, ref storage.SourceRef) (bool, error) {
	if r.probe == 0 {
		return true, nil
	}
	fwd, err := r.api.Forward(tele.ChatID(r.probe), stored(ref), tele.Silent)
	if err != nil {
		if isGone(err) {
			return false, nil
		}
		return false, fmt.Errorf("probing message %d in chat %d: %w", ref.MessageID, ref.ChatID, err)
	}
	if fwd != nil {
		if err := r.api.Delete(fwd); err != nil {
			r.log.Debug("deleting probe copy", logger.Error(err))
		}
	}
	return true, nil
}

// Deleter removes messages for the cleanup worker.
type Deleter struct {
	api API
}

func NewDeleter(api API) *Deleter {
	return &Deleter{api: api}
}

func (d *Deleter) DeleteMessage(_ context.Context, ref storage.SourceRef) error {
	if err := d.api.Delete(stored(ref)); err != nil {
		return fmt.Errorf("deleting message %d in chat %d: %w", ref.MessageID, ref.ChatID, err)
	}
	return nil
}
