// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/scholar-harvest/internal/httputil"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

const arxivPageSize = 50

// Arxiv queries the arXiv Atom API. arXiv has no citation counts, so
// NumCitations is always zero.
type Arxiv struct {
	UserAgent string
	// BaseURL replaces the public endpoint when set.
	BaseURL string
	// PageSize overrides the number of results requested per page.
	PageSize int
}

// Name returns the provider identifier.
func (b *Arxiv) Name() string { return "arxiv" }

func (b *Arxiv) endpoint() string {
	if b.BaseURL != "" {
		return b.BaseURL
	}
	return arxivAPIBase
}

// Open returns a pager over the results for q starting at start.
func (b *Arxiv) Open(client *http.Client, q Query, start int) Pager {
	return newPagedCursor(start, func(ctx context.Context, offset int) ([]Item, bool, error) {
		return b.fetch(ctx, client, q, offset)
	})
}

func (b *Arxiv) fetch(ctx context.Context, client *http.Client, q Query, offset int) ([]Item, bool, error) {
	sq := buildArxivQuery(q)
	if sq == "" {
		return nil, false, fmt.Errorf("empty arXiv query")
	}
	limit := b.PageSize
	if limit <= 0 {
		limit = arxivPageSize
	}

	params := url.Values{
		"search_query": {sq},
		"start":        {strconv.Itoa(offset)},
		"max_results":  {strconv.Itoa(limit)},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint()+"?"+params.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, -1)
	if err != nil {
		return nil, false, requestError(ctx, "arXiv API", err)
	}
	defer resp.Body.Close()

	if httputil.IsThrottled(resp.StatusCode) {
		return nil, false, fmt.Errorf("%w: arXiv API returned HTTP %d", ErrThrottled, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, false, fmt.Errorf("parsing arXiv response: %w", err)
	}

	items := make([]Item, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		items = append(items, e.item())
	}
	return items, offset+len(items) < feed.TotalResults, nil
}

func (e arxivEntry) item() Item {
	it := Item{
		Bib: Bib{
			Title:    cleanText(e.Title),
			DOI:      strings.TrimSpace(e.DOI),
			Abstract: cleanText(e.Summary),
			Journal:  cleanText(e.JournalRef),
		},
	}
	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			it.Bib.Authors = append(it.Bib.Authors, name)
		}
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
		it.Bib.PubYear = strconv.Itoa(t.Year())
		it.Bib.PubMonth = strconv.Itoa(int(t.Month()))
	}
	return it
}

// buildArxivQuery constructs the search_query parameter: every keyword must
// match, and the year range becomes a submittedDate window.
func buildArxivQuery(q Query) string {
	var parts []string
	for _, term := range strings.Fields(q.Keywords) {
		parts = append(parts, "all:"+term)
	}
	if len(parts) == 0 {
		return ""
	}
	if q.YearLow > 0 || q.YearHigh > 0 {
		from, to := "000001010000", "999912312359"
		if q.YearLow > 0 {
			from = fmt.Sprintf("%04d01010000", q.YearLow)
		}
		if q.YearHigh > 0 {
			to = fmt.Sprintf("%04d12312359", q.YearHigh)
		}
		parts = append(parts, fmt.Sprintf("submittedDate:[%s TO %s]", from, to))
	}
	return strings.Join(parts, " AND ")
}

// arXiv Atom feed XML structures. Namespaced elements (opensearch, arxiv)
// are matched by local name.
type arxivFeed struct {
	TotalResults int          `xml:"totalResults"`
	Entries      []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	Title      string        `xml:"title"`
	Summary    string        `xml:"summary"`
	Published  string        `xml:"published"`
	DOI        string        `xml:"doi"`
	JournalRef string        `xml:"journal_ref"`
	Authors    []arxivAuthor `xml:"author"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}
