package bot

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/kalambet/shelfbot/internal/ingest"
	"github.com/kalambet/shelfbot/internal/logger"
	"github.com/kalambet/shelfbot/internal/present"
	"github.com/kalambet/shelfbot/internal/storage"
)

const (
	msgAdminOnly     = "⛔ This command is for admins only."
	msgUsageSearch   = "ℹ️ Usage: /search &lt;title&gt;"
	msgUsageAddAd    = "ℹ️ Usage: /addad &lt;text&gt; &lt;url&gt;"
	msgUsageEditAd   = "ℹ️ Usage: /editad &lt;id&gt; &lt;text&gt; &lt;url&gt;"
	msgUsageRemoveAd = "ℹ️ Usage: /removead &lt;id&gt;"
	msgUsageSetHelp  = "ℹ️ Usage: /sethelp &lt;text&gt;"
	msgInvalidID     = "⚠️ Advertisement id must be a positive number."
	msgInvalidURL    = "⚠️ The link must be an http, https or tg URL."
	msgSaveFailed    = "❌ Could not save that. Please try again later."
	msgNoAds         = "📭 No active advertisements."
	msgHelpUpdated   = "✅ Help message updated. Preview:"
	msgUnsupported   = "⚠️ Only PDF, EPUB, MOBI and TXT files are indexed."
	msgInvalidName   = "⚠️ Could not derive a title from this file name."
	msgIngestFailed  = "❌ Could not index this file. Please try again later."
)

var adURLSchemes = map[string]bool{"http": true, "https": true, "tg": true}

// Document is an uploaded file event.
type Document struct {
	FileName string
	FileID   string
	Source   storage.SourceRef
}

// Help answers /start and /help.
func (h *Handler) Help(ctx context.Context, conv Conversation) error {
	return h.reply(ctx, conv, Message{Text: h.deps.Catalog.HelpMessage()})
}

// Search shows page 1 for query.
func (h *Handler) Search(ctx context.Context, conv Conversation, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return h.replyTransient(ctx, conv, msgUsageSearch)
	}
	res := h.deps.Search.Search(ctx, query, 1)
	return h.reply(ctx, conv, fromPayload(present.Render(res)))
}

// Text treats plain messages as searches when enabled.
func (h *Handler) Text(ctx context.Context, conv Conversation, text string) error {
	text = strings.TrimSpace(text)
	if !h.onText || text == "" || strings.HasPrefix(text, "/") {
		return nil
	}
	return h.Search(ctx, conv, text)
}

// Callback handles a button press. Navigation payloads re-render the
// attached message in place; anything else is only acknowledged.
func (h *Handler) Callback(ctx context.Context, conv Conversation, data string) error {
	if data == present.NoopData || !present.IsPageData(data) {
		return nil
	}
	page, query, ok := present.DecodePage(data)
	if !ok {
		h.log.Debug("ignoring malformed page callback", logger.String("data", data))
		return nil
	}
	res := h.deps.Search.Search(ctx, query, page)
	return conv.Edit(ctx, fromPayload(present.Render(res)))
}

// Document indexes an uploaded file and reports the outcome in a reply that
// is deleted after the cleanup delay.
func (h *Handler) Document(ctx context.Context, conv Conversation, doc Document) error {
	out := h.deps.Ingest.Ingest(ctx, ingest.Upload{
		FileName: doc.FileName,
		Source:   doc.Source,
		FileID:   doc.FileID,
	})
	return h.replyTransient(ctx, conv, outcomeText(out))
}

func outcomeText(out ingest.Outcome) string {
	t := html.EscapeString(out.Title)
	switch out.Status {
	case ingest.StatusSuccess:
		return fmt.Sprintf("✅ Added <b>%s</b> to the shelf.\n<a href=\"%s\">Open</a>", t, out.Link)
	case ingest.StatusDuplicate:
		return fmt.Sprintf("📚 <b>%s</b> is already on the shelf.\n<a href=\"%s\">Open the existing copy</a>", t, out.Link)
	case ingest.StatusUnsupported:
		return msgUnsupported
	case ingest.StatusInvalidName:
		return msgInvalidName
	default:
		return msgIngestFailed
	}
}

// AddAd handles /addad <text...> <url>.
func (h *Handler) AddAd(ctx context.Context, conv Conversation, actor int64, args []string) error {
	if !h.IsAdmin(actor) {
		return h.replyTransient(ctx, conv, msgAdminOnly)
	}
	if len(args) < 2 {
		return h.replyTransient(ctx, conv, msgUsageAddAd)
	}
	text, link := splitTextURL(args)
	if !validAdURL(link) {
		return h.replyTransient(ctx, conv, msgInvalidURL)
	}
	ad, ok := h.deps.Catalog.AddAdvertisement(text, link)
	if !ok {
		return h.reply(ctx, conv, Message{Text: msgSaveFailed})
	}
	return h.reply(ctx, conv, Message{Text: adSaved(ad.ID, "added", text, link)})
}

// EditAd handles /editad <id> <text...> <url>.
func (h *Handler) EditAd(ctx context.Context, conv Conversation, actor int64, args []string) error {
	if !h.IsAdmin(actor) {
		return h.replyTransient(ctx, conv, msgAdminOnly)
	}
	if len(args) < 3 {
		return h.replyTransient(ctx, conv, msgUsageEditAd)
	}
	id, ok := parseID(args[0])
	if !ok {
		return h.replyTransient(ctx, conv, msgInvalidID)
	}
	text, link := splitTextURL(args[1:])
	if !validAdURL(link) {
		return h.replyTransient(ctx, conv, msgInvalidURL)
	}
	if !h.deps.Catalog.EditAdvertisement(id, text, link) {
		return h.reply(ctx, conv, Message{Text: fmt.Sprintf("❓ Advertisement #%d not found or inactive.", id)})
	}
	return h.reply(ctx, conv, Message{Text: adSaved(id, "updated", text, link)})
}

// RemoveAd handles /removead <id>.
func (h *Handler) RemoveAd(ctx context.Context, conv Conversation, actor int64, args []string) error {
	if !h.IsAdmin(actor) {
		return h.replyTransient(ctx, conv, msgAdminOnly)
	}
	if len(args) != 1 {
		return h.replyTransient(ctx, conv, msgUsageRemoveAd)
	}
	id, ok := parseID(args[0])
	if !ok {
		return h.replyTransient(ctx, conv, msgInvalidID)
	}
	if !h.deps.Catalog.DeactivateAdvertisement(id) {
		return h.reply(ctx, conv, Message{Text: fmt.Sprintf("❓ Advertisement #%d not found or already removed.", id)})
	}
	return h.reply(ctx, conv, Message{Text: fmt.Sprintf("🗑 Advertisement #%d removed.", id)})
}

// ListAds handles /listad.
func (h *Handler) ListAds(ctx context.Context, conv Conversation, actor int64) error {
	if !h.IsAdmin(actor) {
		return h.replyTransient(ctx, conv, msgAdminOnly)
	}
	ads := h.deps.Catalog.ListActiveAdvertisements()
	if len(ads) == 0 {
		return h.reply(ctx, conv, Message{Text: msgNoAds})
	}
	var b strings.Builder
	b.WriteString("📢 <b>Active advertisements</b>\n")
	for _, ad := range ads {
		fmt.Fprintf(&b, "\n#%d %s\n%s\n", ad.ID, html.EscapeString(ad.Text), html.EscapeString(ad.URL))
	}
	return h.reply(ctx, conv, Message{Text: strings.TrimRight(b.String(), "\n")})
}

// SetHelp handles /sethelp <text>. text is everything after the command,
// newlines included. The stored message is sent back as a preview.
func (h *Handler) SetHelp(ctx context.Context, conv Conversation, actor int64, text string) error {
	if !h.IsAdmin(actor) {
		return h.replyTransient(ctx, conv, msgAdminOnly)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return h.replyTransient(ctx, conv, msgUsageSetHelp)
	}
	if !h.deps.Catalog.SetHelpMessage(text) {
		return h.reply(ctx, conv, Message{Text: msgSaveFailed})
	}
	if err := h.reply(ctx, conv, Message{Text: msgHelpUpdated}); err != nil {
		return err
	}
	return h.reply(ctx, conv, Message{Text: h.deps.Catalog.HelpMessage()})
}

func adSaved(id int64, verb, text, link string) string {
	return fmt.Sprintf("✅ Advertisement #%d %s.\nText: %s\nLink: %s", id, verb, html.EscapeString(text), html.EscapeString(link))
}

// splitTextURL treats the last argument as the URL and joins the rest.
func splitTextURL(args []string) (text, link string) {
	return strings.Join(args[:len(args)-1], " "), args[len(args)-1]
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// validAdURL accepts links Telegram allows on URL buttons.
func validAdURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	if !adURLSchemes[scheme] {
		return false
	}
	if scheme == "tg" {
		return u.Host != "" || u.Opaque != ""
	}
	return u.Host != ""
}
