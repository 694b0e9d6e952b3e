// Package search runs paginated title queries and attaches promoted entries.
package search

import (
	"context"
	"strings"

	"github.com/kalambet/shelfbot/internal/storage"
)

const (
	DefaultPageSize = 10
	DefaultAdLimit  = 5
)

// Catalog is the subset of *catalog.Catalog the engine reads from.
type Catalog interface {
	Search(ctx context.Context, query string, page, pageSize int) ([]storage.Entry, int)
	SampleActiveAdvertisements(limit int) []storage.Advertisement
}

type Options struct {
	PageSize int
	AdLimit  int
}

type Engine struct {
	catalog  Catalog
	pageSize int
	adLimit  int
}

// Result is one rendered-ready page.
type Result struct {
	Query      string
	Page       int
	PageSize   int
	TotalCount int
	TotalPages int
	Entries    []storage.Entry
	Ads        []storage.Advertisement
}

// Empty reports whether the page carries no entries.
func (r Result) Empty() bool { return len(r.Entries) == 0 }

func NewEngine(c Catalog, opts Options) *Engine {
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	switch {
	case opts.AdLimit == 0:
		opts.AdLimit = DefaultAdLimit
	case opts.AdLimit < 0:
		// Negative disables promoted entries.
		opts.AdLimit = 0
	}
	return &Engine{catalog: c, pageSize: opts.PageSize, adLimit: opts.AdLimit}
}

// Search returns the given 1-indexed page of matches for query. Pages below 1
// are treated as 1.
func (e *Engine) Search(ctx context.Context, query string, page int) Result {
	if page < 1 {
		page = 1
	}
	query = strings.TrimSpace(query)

	entries, total := e.catalog.Search(ctx, query, page, e.pageSize)
	res := Result{
		Query:      query,
		Page:       page,
		PageSize:   e.pageSize,
		TotalCount: total,
		TotalPages: TotalPages(total, e.pageSize),
		Entries:    entries,
	}
	if e.adLimit > 0 {
		res.Ads = e.catalog.SampleActiveAdvertisements(e.adLimit)
	}
	return res
}

// TotalPages is ceil(total / pageSize).
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
