package fetcher

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryosukesatoh/arxiv-digest/internal/config"
)

type stamped struct {
	title string
	at    time.Time
}

func TestScanRecentReturnsPrefixAndStops(t *testing.T) {
	T := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	items := []stamped{
		{"a", T},
		{"b", T.Add(-time.Hour)},
		{"c", T.Add(-48 * time.Hour)},
		{"d", T},
		{"e", T.Add(-time.Minute)},
	}

	var inspected []string
	published := func(s stamped) time.Time {
		inspected = append(inspected, s.title)
		return s.at
	}
	extract := func(s stamped) Paper { return Paper{Title: s.title, Published: s.at} }

	papers := scanRecent(items, T.Add(-24*time.Hour), published, extract)

	require.Len(t, papers, 2)
	assert.Equal(t, "a", papers[0].Title)
	assert.Equal(t, "b", papers[1].Title)
	assert.Equal(t, []string{"a", "b", "c"}, inspected, "items after the first out-of-window item must not be inspected")
}

func TestScanRecentCutoffIsInclusive(t *testing.T) {
	cutoff := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	items := []stamped{{"edge", cutoff}, {"older", cutoff.Add(-time.Nanosecond)}}

	papers := scanRecent(items, cutoff, func(s stamped) time.Time { return s.at }, func(s stamped) Paper { return Paper{Title: s.title} })

	require.Len(t, papers, 1)
	assert.Equal(t, "edge", papers[0].Title)
}

func TestScanRecentScansEverythingWhenAllRecent(t *testing.T) {
	now := time.Now()
	items := []stamped{{"a", now}, {"b", now}, {"c", now}}

	papers := scanRecent(items, now.Add(-time.Hour), func(s stamped) time.Time { return s.at }, func(s stamped) Paper { return Paper{Title: s.title} })
	assert.Len(t, papers, 3)
}

func TestScanRecentEmpty(t *testing.T) {
	papers := scanRecent(nil, time.Now(), func(s stamped) time.Time { return s.at }, func(s stamped) Paper { return Paper{} })
	assert.NotNil(t, papers)
	assert.Empty(t, papers)
}

func TestBuildQuery(t *testing.T) {
	cutoff := time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC)
	until := time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		q    Query
		want string
	}{
		{
			name: "single category",
			q:    Query{Categories: []string{"cs.LG"}},
			want: "cat:cs.LG",
		},
		{
			name: "several categories",
			q:    Query{Categories: []string{"cs.LG", "stat.ML"}},
			want: "(cat:cs.LG OR cat:stat.ML)",
		},
		{
			name: "keywords",
			q:    Query{Categories: []string{"cs.CL"}, Keywords: []string{"retrieval", "large language model", " "}},
			want: `cat:cs.CL AND all:retrieval AND all:"large language model"`,
		},
		{
			name: "date range",
			q:    Query{Categories: []string{"cs.LG"}, DateRange: true, Until: until},
			want: "cat:cs.LG AND submittedDate:[202501140900 TO 202501150930]",
		},
		{
			name: "date range without until is ignored",
			q:    Query{Categories: []string{"cs.LG"}, DateRange: true},
			want: "cat:cs.LG",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQuery(tt.q, cutoff))
		})
	}
}

func TestNew(t *testing.T) {
	f, err := New(&config.Config{Fetcher: config.FetcherConfig{Type: "arxiv", BaseURL: "http://localhost/api"}})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/api", f.(*ArxivFetcher).baseURL)

	f, err = New(&config.Config{Fetcher: config.FetcherConfig{Type: "rss"}})
	require.NoError(t, err)
	assert.IsType(t, &RSSFetcher{}, f)

	_, err = New(&config.Config{Fetcher: config.FetcherConfig{Type: "pubmed"}})
	assert.True(t, errors.Is(err, ErrUnsupportedFetcherType))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", cleanText("  a\n  b\tc  "))
	assert.Equal(t, "", cleanText(" \n "))
}
