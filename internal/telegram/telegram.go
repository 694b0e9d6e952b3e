// Package telegram connects bot.Handler to the Telegram Bot API via telebot.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	tele "gopkg.in/telebot.v3"

	"github.com/kalambet/shelfbot/internal/bot"
	"github.com/kalambet/shelfbot/internal/logger"
	"github.com/kalambet/shelfbot/internal/present"
	"github.com/kalambet/shelfbot/internal/storage"
)

const msgInternalError = "⚠️ Something went wrong. Please try again later."

// Commands is the menu published with setMyCommands.
var Commands = []tele.Command{
	{Text: "start", Description: "Show the welcome message"},
	{Text: "help", Description: "Show the welcome message"},
	{Text: "search", Description: "Search books by title"},
	{Text: "addad", Description: "Admin: add an advertisement"},
	{Text: "editad", Description: "Admin: edit an advertisement"},
	{Text: "removead", Description: "Admin: remove an advertisement"},
	{Text: "listad", Description: "Admin: list advertisements"},
	{Text: "sethelp", Description: "Admin: replace the welcome message"},
}

type Options struct {
	Token       string
	PollTimeout time.Duration
}

// NewBot creates a long-polling bot whose handler errors are logged and
// answered with a generic apology.
func NewBot(opts Options, log logger.Logger) (*tele.Bot, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("telegram token is not configured")
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:     opts.Token,
		Poller:    &tele.LongPoller{Timeout: opts.PollTimeout},
		ParseMode: tele.ModeHTML,
		OnError: func(err error, c tele.Context) {
			if c == nil || c.Chat() == nil {
				log.Error("handling update", logger.Error(err))
				return
			}
			log.Error("handling update", logger.Int64("chat_id", c.Chat().ID), logger.Error(err))
			if _, sendErr := c.Bot().Send(c.Chat(), msgInternalError); sendErr != nil {
				log.Debug("sending apology", logger.Error(sendErr))
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return b, nil
}

// Register maps telebot endpoints onto h. ctx is handed to every handler call.
func Register(ctx context.Context, b *tele.Bot, h *bot.Handler) {
	b.Handle("/start", func(c tele.Context) error { return h.Help(ctx, conv(c)) })
	b.Handle("/help", func(c tele.Context) error { return h.Help(ctx, conv(c)) })
	b.Handle("/search", func(c tele.Context) error {
		return h.Search(ctx, conv(c), c.Message().Payload)
	})
	b.Handle("/addad", func(c tele.Context) error {
		return h.AddAd(ctx, conv(c), senderID(c), c.Args())
	})
	b.Handle("/editad", func(c tele.Context) error {
		return h.EditAd(ctx, conv(c), senderID(c), c.Args())
	})
	b.Handle("/removead", func(c tele.Context) error {
		return h.RemoveAd(ctx, conv(c), senderID(c), c.Args())
	})
	b.Handle("/listad", func(c tele.Context) error {
		return h.ListAds(ctx, conv(c), senderID(c))
	})
	b.Handle("/sethelp", func(c tele.Context) error {
		return h.SetHelp(ctx, conv(c), senderID(c), commandText(c.Message().Text))
	})

	b.Handle(tele.OnText, func(c tele.Context) error {
		return h.Text(ctx, conv(c), c.Text())
	})
	b.Handle(tele.OnDocument, func(c tele.Context) error {
		m := c.Message()
		if m == nil || m.Document == nil {
			return nil
		}
		return h.Document(ctx, conv(c), bot.Document{
			FileName: m.Document.FileName,
			FileID:   m.Document.FileID,
			Source:   storage.SourceRef{ChatID: m.Chat.ID, MessageID: m.ID},
		})
	})
	b.Handle(tele.OnCallback, func(c tele.Context) error {
		defer func() { _ = c.Respond() }()
		return h.Callback(ctx, conv(c), strings.TrimSpace(c.Callback().Data))
	})
}

// Run publishes the command menu, drops updates queued while offline and
// polls until ctx is cancelled.
func Run(ctx context.Context, b *tele.Bot, log logger.Logger) error {
	if err := b.RemoveWebhook(true); err != nil {
		log.Warn("dropping pending updates", logger.Error(err))
	}
	if err := b.SetCommands(Commands); err != nil {
		log.Warn("publishing bot commands", logger.Error(err))
	}

	go func() {
		<-ctx.Done()
		b.Stop()
	}()

	log.Info("telegram bot polling", logger.String("username", b.Me.Username))
	b.Start()
	return nil
}

// commandText returns what follows the command token (including any
// @botname suffix) with line breaks kept. telebot's Payload stops at the
// first newline.
func commandText(text string) string {
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return ""
	}
	return strings.TrimLeftFunc(text[i:], unicode.IsSpace)
}

func senderID(c tele.Context) int64 {
	if s := c.Sender(); s != nil {
		return s.ID
	}
	return 0
}

// conversation implements bot.Conversation over one telebot update.
type conversation struct {
	c tele.Context
}

func conv(c tele.Context) bot.Conversation { return conversation{c: c} }

func (cv conversation) Reply(_ context.Context, msg bot.Message) (storage.SourceRef, error) {
	m, err := cv.c.Bot().Send(cv.c.Chat(), msg.Text, sendOptions(msg.Keyboard)...)
	if err != nil {
		return storage.SourceRef{}, fmt.Errorf("sending reply: %w", err)
	}
	return storage.SourceRef{ChatID: m.Chat.ID, MessageID: m.ID}, nil
}

func (cv conversation) Edit(_ context.Context, msg bot.Message) error {
	err := cv.c.Edit(msg.Text, sendOptions(msg.Keyboard)...)
	if err != nil && isNotModified(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("editing message: %w", err)
	}
	return nil
}

func sendOptions(keyboard [][]present.Button) []interface{} {
	opts := []interface{}{tele.ModeHTML, tele.NoPreview}
	if rm := Markup(keyboard); rm != nil {
		opts = append(opts, rm)
	}
	return opts
}

// Markup converts a button grid to an inline keyboard. It returns nil for an
// empty grid.
func Markup(keyboard [][]present.Button) *tele.ReplyMarkup {
	if len(keyboard) == 0 {
		return nil
	}
	rows := make([][]tele.InlineButton, 0, len(keyboard))
	for _, row := range keyboard {
		out := make([]tele.InlineButton, 0, len(row))
		for _, btn := range row {
			ib := tele.InlineButton{Text: btn.Text}
			if btn.URL != "" {
				ib.URL = btn.URL
			} else {
				ib.Data = btn.Data
			}
			out = append(out, ib)
		}
		rows = append(rows, out)
	}
	return &tele.ReplyMarkup{InlineKeyboard: rows}
}

func isNotModified(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "message is not modified")
}
