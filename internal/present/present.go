// Package present renders search results into chat-ready HTML and a button grid.
package present

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/kalambet/shelfbot/internal/search"
	"github.com/kalambet/shelfbot/internal/storage"
)

const (
	// NoopData marks the page indicator button; pressing it only acknowledges.
	NoopData = "noop"

	// MaxCallbackData is the transport limit on button payloads, in bytes.
	MaxCallbackData = 64

	NoResultsText = "😔 Nothing found. Try a shorter or different title."

	pagePrefix = "page"
	sep        = "_"
)

// Button is either a callback button (Data set) or a link button (URL set).
type Button struct {
	Text string
	Data string
	URL  string
}

type Payload struct {
	Text     string
	Keyboard [][]Button
}

// Render builds the message for one search page. An empty page yields
// NoResultsText and no keyboard.
func Render(r search.Result) Payload {
	if r.Empty() {
		return Payload{Text: NoResultsText}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔎 Found <b>%d</b> result(s) for <i>%s</i>:\n\n", r.TotalCount, html.EscapeString(r.Query))
	offset := (r.Page - 1) * r.PageSize
	for i, e := range r.Entries {
		fmt.Fprintf(&b, "%d. 📚 <a href=\"%s\">%s</a>\n",
			offset+i+1, DeepLink(e.Source), html.EscapeString(e.Title))
	}

	return Payload{
		Text:     strings.TrimRight(b.String(), "\n"),
		Keyboard: keyboard(r),
	}
}

func keyboard(r search.Result) [][]Button {
	totalPages := r.TotalPages
	if totalPages < r.Page {
		// Reconciliation can shrink the total below the page being shown.
		totalPages = r.Page
	}

	var nav []Button
	if r.Page > 1 {
		if data := EncodePage(r.Page-1, r.Query); len(data) <= MaxCallbackData {
			nav = append(nav, Button{Text: "⬅️ Prev", Data: data})
		}
	}
	nav = append(nav, Button{Text: fmt.Sprintf("📖 %d/%d", r.Page, totalPages), Data: NoopData})
	if r.Page < totalPages {
		if data := EncodePage(r.Page+1, r.Query); len(data) <= MaxCallbackData {
			nav = append(nav, Button{Text: "Next ➡️", Data: data})
		}
	}

	rows := [][]Button{nav}
	for _, ad := range r.Ads {
		rows = append(rows, []Button{{Text: ad.Text, URL: ad.URL}})
	}
	return rows
}

// EncodePage builds the callback payload for navigating to page of query.
func EncodePage(page int, query string) string {
	return pagePrefix + sep + strconv.Itoa(page) + sep + query
}

// DecodePage parses a payload built by EncodePage. Only the first two
// separators split; the rest is the query verbatim.
func DecodePage(data string) (page int, query string, ok bool) {
	parts := strings.SplitN(data, sep, 3)
	if len(parts) != 3 || parts[0] != pagePrefix {
		return 0, "", false
	}
	page, err := strconv.Atoi(parts[1])
	if err != nil || page < 1 {
		return 0, "", false
	}
	return page, parts[2], true
}

// IsPageData reports whether data looks like a navigation payload.
func IsPageData(data string) bool {
	return strings.HasPrefix(data, pagePrefix+sep)
}

// DeepLink returns the t.me link to a message in a supergroup or channel.
func DeepLink(ref storage.SourceRef) string {
	id := strconv.FormatInt(ref.ChatID, 10)
	id = strings.TrimPrefix(id, "-100")
	id = strings.TrimPrefix(id, "-")
	return fmt.Sprintf("https://t.me/c/%s/%d", id, ref.MessageID)
}
