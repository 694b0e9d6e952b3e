package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/kalambet/shelfbot/internal/catalog"
	"github.com/kalambet/shelfbot/internal/logger"
	"github.com/kalambet/shelfbot/internal/storage"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{23, 10, 3},
		{20, 10, 2},
		{1, 10, 1},
		{0, 10, 0},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.size); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.size, got, tt.want)
		}
	}
}

func newEngine(t *testing.T, opts Options) (*Engine, *storage.Store) {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	c := catalog.New(s, nil, logger.Nop(), catalog.Options{})
	return NewEngine(c, opts), s
}

func TestSearch_PaginationAndAds(t *testing.T) {
	e, s := newEngine(t, Options{})

	for i := 1; i <= 23; i++ {
		s.InsertEntry(storage.Entry{Title: fmt.Sprintf("Volume %02d", i), Source: storage.SourceRef{ChatID: -100, MessageID: i}})
	}
	for i := 0; i < 7; i++ {
		s.InsertAdvertisement(fmt.Sprintf("ad %d", i), "https://example.com")
	}

	res := e.Search(context.Background(), "  Volume ", 3)
	if res.Query != "Volume" {
		t.Errorf("Query = %q, want trimmed", res.Query)
	}
	if res.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", res.TotalPages)
	}
	if len(res.Entries) != 3 {
		t.Errorf("page 3 has %d entries, want 3", len(res.Entries))
	}
	if len(res.Ads) != DefaultAdLimit {
		t.Errorf("got %d ads, want %d", len(res.Ads), DefaultAdLimit)
	}
	if res.PageSize != DefaultPageSize {
		t.Errorf("PageSize = %d, want %d", res.PageSize, DefaultPageSize)
	}
}

func TestSearch_ClampsPage(t *testing.T) {
	e, s := newEngine(t, Options{PageSize: 2})
	s.InsertEntry(storage.Entry{Title: "Only", Source: storage.SourceRef{ChatID: -100, MessageID: 1}})

	res := e.Search(context.Background(), "Only", -4)
	if res.Page != 1 {
		t.Errorf("Page = %d, want 1", res.Page)
	}
	if res.Empty() {
		t.Error("clamped search returned no entries")
	}
}

func TestSearch_NoAdsWhenDisabled(t *testing.T) {
	e, s := newEngine(t, Options{AdLimit: -1})
	s.InsertAdvertisement("ad", "https://example.com")

	if res := e.Search(context.Background(), "x", 1); len(res.Ads) != 0 {
		t.Errorf("got %d ads with limit disabled", len(res.Ads))
	}
}
