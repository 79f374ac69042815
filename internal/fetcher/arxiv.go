package fetcher

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// arXiv Atom feed XML structures

type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string          `xml:"id"`
	Title     string          `xml:"title"`
	Summary   string          `xml:"summary"`
	Authors   []arxivAuthor   `xml:"author"`
	Links     []arxivLink     `xml:"link"`
	Published string          `xml:"published"`
	Category  []arxivCategory `xml:"category"`
}

type arxivAuthor struct {
	Name         string   `xml:"name"`
	Affiliations []string `xml:"http://arxiv.org/schemas/atom affiliation"`
}

type arxivLink struct {
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
	Rel  string `xml:"rel,attr"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

// ArxivFetcher fetches papers from the arXiv export API.
type ArxivFetcher struct {
	client  *http.Client
	baseURL string
}

func NewArxivFetcher() *ArxivFetcher {
	return &ArxivFetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://export.arxiv.org/api/query",
	}
}

func (f *ArxivFetcher) Fetch(ctx context.Context, q Query, cutoff time.Time) ([]Paper, error) {
	query := url.Values{}
	query.Set("search_query", BuildQuery(q, cutoff))
	query.Set("start", "0")
	query.Set("max_results", strconv.Itoa(q.MaxResults))
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")

	reqURL := fmt.Sprintf("%s?%s", f.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to read response: %w", err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("arxiv: failed to parse XML: %w", err)
	}

	return scanRecent(feed.Entries, cutoff, entryPublished, entryPaper), nil
}

// entryPublished returns the zero time for a malformed timestamp, which ends
// the scan.
func entryPublished(e arxivEntry) time.Time {
	published, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published))
	if err != nil {
		return time.Time{}
	}
	return published
}

func entryPaper(e arxivEntry) Paper {
	authors := make([]string, 0, len(e.Authors))
	var institutions []string
	for _, a := range e.Authors {
		authors = append(authors, cleanText(a.Name))
		for _, aff := range a.Affiliations {
			if aff = cleanText(aff); aff != "" {
				institutions = append(institutions, aff)
			}
		}
	}

	link := strings.TrimSpace(e.ID)
	if link == "" {
		for _, l := range e.Links {
			if l.Rel == "alternate" {
				link = l.Href
				break
			}
		}
	}

	categories := make([]string, 0, len(e.Category))
	for _, c := range e.Category {
		categories = append(categories, c.Term)
	}

	return Paper{
		Title:        cleanText(e.Title),
		Summary:      cleanText(e.Summary),
		Authors:      authors,
		Institutions: institutions,
		Link:         link,
		Published:    entryPublished(e),
		Categories:   categories,
	}
}
