package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// RSSFetcher reads the arXiv daily announcement feed. It only understands
// categories; keywords and date ranges are ignored.
type RSSFetcher struct {
	client  *http.Client
	baseURL string
}

func NewRSSFetcher() *RSSFetcher {
	return &RSSFetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://rss.arxiv.org/rss/",
	}
}

func (f *RSSFetcher) Fetch(ctx context.Context, q Query, cutoff time.Time) ([]Paper, error) {
	if len(q.Categories) == 0 {
		return nil, fmt.Errorf("rss: at least one category is required")
	}
	reqURL := strings.TrimSuffix(f.baseURL, "/") + "/" + strings.Join(q.Categories, "+")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("rss: failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rss: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss: unexpected status %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rss: failed to parse feed: %w", err)
	}

	items := feed.Items
	if q.MaxResults > 0 && len(items) > q.MaxResults {
		items = items[:q.MaxResults]
	}

	return scanRecent(items, cutoff, itemPublished, itemPaper), nil
}

func itemPublished(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

func itemPaper(item *gofeed.Item) Paper {
	var names []string
	for _, p := range item.Authors {
		if p != nil {
			names = append(names, p.Name)
		}
	}
	if len(names) == 0 && item.DublinCoreExt != nil {
		names = item.DublinCoreExt.Creator
	}

	var authors []string
	for _, n := range names {
		// dc:creator carries every author in one comma separated string.
		for _, name := range strings.Split(n, ",") {
			if name = cleanText(name); name != "" {
				authors = append(authors, name)
			}
		}
	}

	link := item.Link
	if link == "" {
		link = item.GUID
	}

	return Paper{
		Title:      cleanText(item.Title),
		Summary:    rssAbstract(item.Description),
		Authors:    authors,
		Link:       link,
		Published:  itemPublished(item),
		Categories: item.Categories,
	}
}

// rssAbstract strips markup and the "arXiv:... Announce Type: ..." preamble.
func rssAbstract(description string) string {
	text := htmlText(description)
	if i := strings.Index(text, "Abstract:"); i >= 0 {
		text = text[i+len("Abstract:"):]
	}
	return cleanText(text)
}

func htmlText(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}
