package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ryosukesatoh/arxiv-digest/internal/config"
)

// Paper is one fetched publication.
type Paper struct {
	Title        string
	Summary      string
	Authors      []string
	Institutions []string
	Link         string
	Published    time.Time
	Categories   []string
}

// Query selects papers from a feed.
type Query struct {
	Categories []string
	Keywords   []string
	MaxResults int
	// DateRange asks the feed itself to restrict results to [cutoff, Until].
	DateRange bool
	Until     time.Time
}

// Fetcher returns the papers published on or after cutoff, in feed order.
type Fetcher interface {
	Fetch(ctx context.Context, q Query, cutoff time.Time) ([]Paper, error)
}

// ErrUnsupportedFetcherType is returned when an unsupported fetcher type is specified
var ErrUnsupportedFetcherType = errors.New("unsupported fetcher type")

// New creates a new fetcher based on the configuration
func New(cfg *config.Config) (Fetcher, error) {
	switch cfg.Fetcher.Type {
	case "arxiv":
		f := NewArxivFetcher()
		if cfg.Fetcher.BaseURL != "" {
			f.baseURL = cfg.Fetcher.BaseURL
		}
		return f, nil
	case "rss":
		f := NewRSSFetcher()
		if cfg.Fetcher.BaseURL != "" {
			f.baseURL = cfg.Fetcher.BaseURL
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFetcherType, cfg.Fetcher.Type)
	}
}

// scanRecent walks items in feed order and extracts papers until the first
// item published before cutoff. The feed must be sorted newest first; nothing
// after the first older item is looked at.
func scanRecent[T any](items []T, cutoff time.Time, published func(T) time.Time, extract func(T) Paper) []Paper {
	papers := make([]Paper, 0, len(items))
	for _, item := range items {
		if published(item).Before(cutoff) {
			break
		}
		papers = append(papers, extract(item))
	}
	return papers
}

// BuildQuery renders q in arXiv search syntax.
func BuildQuery(q Query, cutoff time.Time) string {
	var parts []string

	cats := make([]string, 0, len(q.Categories))
	for _, c := range q.Categories {
		if c = strings.TrimSpace(c); c != "" {
			cats = append(cats, "cat:"+c)
		}
	}
	switch len(cats) {
	case 0:
	case 1:
		parts = append(parts, cats[0])
	default:
		parts = append(parts, "("+strings.Join(cats, " OR ")+")")
	}

	for _, kw := range q.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if strings.ContainsAny(kw, " \t") {
			kw = `"` + kw + `"`
		}
		parts = append(parts, "all:"+kw)
	}

	if q.DateRange && !q.Until.IsZero() {
		const layout = "200601021504"
		parts = append(parts, fmt.Sprintf("submittedDate:[%s TO %s]",
			cutoff.UTC().Format(layout), q.Until.UTC().Format(layout)))
	}

	return strings.Join(parts, " AND ")
}

// cleanText trims s and collapses internal whitespace runs to single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
