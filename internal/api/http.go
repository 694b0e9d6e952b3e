// Package api exposes the shelf over HTTP and MCP for operators and tools.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/shelfbot/internal/present"
	"github.com/kalambet/shelfbot/internal/search"
	"github.com/kalambet/shelfbot/internal/storage"
)

// Searcher runs a paginated title search.
type Searcher interface {
	Search(ctx context.Context, query string, page int) search.Result
}

// Catalog is the read-only catalog surface the API exposes.
type Catalog interface {
	ListActiveAdvertisements() []storage.Advertisement
	HelpMessage() string
}

type Deps struct {
	Search  Searcher
	Catalog Catalog
	// Token protects every route except /health. Without it only /health is served.
	Token string
}

func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", handleHealth)

	if deps.Token != "" {
		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(deps.Token))
			r.Get("/search", handleSearch(deps))
			r.Get("/ads", handleListAds(deps))
			r.Get("/help", handleHelp(deps))
		})
	}
	return r
}

type entryResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	AddedAt string `json:"added_at"`
}

type adResult struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	URL  string `json:"url"`
}

type searchResponse struct {
	Query      string        `json:"query"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalCount int           `json:"total_count"`
	TotalPages int           `json:"total_pages"`
	Results    []entryResult `json:"results"`
	Ads        []adResult    `json:"ads"`
}

func toSearchResponse(res search.Result) searchResponse {
	out := searchResponse{
		Query:      res.Query,
		Page:       res.Page,
		PageSize:   res.PageSize,
		TotalCount: res.TotalCount,
		TotalPages: res.TotalPages,
		Results:    make([]entryResult, 0, len(res.Entries)),
		Ads:        toAdResults(res.Ads),
	}
	for _, e := range res.Entries {
		out.Results = append(out.Results, entryResult{
			Title:   e.Title,
			Link:    present.DeepLink(e.Source),
			AddedAt: e.AddedAt.Format(time.RFC3339),
		})
	}
	return out
}

func toAdResults(ads []storage.Advertisement) []adResult {
	out := make([]adResult, 0, len(ads))
	for _, ad := range ads {
		out = append(out, adResult{ID: ad.ID, Text: ad.Text, URL: ad.URL})
	}
	return out
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleSearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "q is required")
			return
		}
		page := 1
		if raw := r.URL.Query().Get("page"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "page must be a positive integer")
				return
			}
			page = n
		}
		writeJSON(w, toSearchResponse(deps.Search.Search(r.Context(), q, page)))
	}
}

func handleListAds(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"ads": toAdResults(deps.Catalog.ListActiveAdvertisements())})
	}
}

func handleHelp(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"content": deps.Catalog.HelpMessage()})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}
