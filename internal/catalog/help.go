package catalog

import (
	"errors"
	"regexp"

	"github.com/kalambet/shelfbot/internal/logger"
	"github.com/kalambet/shelfbot/internal/storage"
)

// mentionRe matches the "@:name" form some clients produce when a mention is
// pasted into a command argument.
var mentionRe = regexp.MustCompile(`@:([\p{L}\p{N}_]+)`)

// NormalizeMentions rewrites "@:name" to "@name".
func NormalizeMentions(s string) string {
	return mentionRe.ReplaceAllString(s, "@$1")
}

// HelpMessage returns the stored help text, or the default if there is none.
func (c *Catalog) HelpMessage() string {
	msg, err := c.repo.GetSystemMessage(storage.HelpMessageType)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.log.Error("reading help message", logger.Error(err))
		}
		return c.defaultHelp
	}
	if msg.Content == "" {
		return c.defaultHelp
	}
	return msg.Content
}

// SetHelpMessage stores raw as the help text after mention normalization.
func (c *Catalog) SetHelpMessage(raw string) bool {
	if err := c.repo.UpsertSystemMessage(storage.HelpMessageType, NormalizeMentions(raw)); err != nil {
		c.log.Error("saving help message", logger.Error(err))
		return false
	}
	return true
}
