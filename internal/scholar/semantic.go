// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/scholar-harvest/internal/httputil"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const (
	semanticFields   = "title,abstract,authors,externalIds,year,publicationDate,venue,journal,citationCount"
	semanticPageSize = 100
	// semanticRetries bounds in-request 429 backoff before the pager
	// reports the provider as throttled.
	semanticRetries = 2
)

// SemanticScholar queries the Semantic Scholar Graph API.
type SemanticScholar struct {
	UserAgent string
	// BaseURL replaces the public endpoint when set.
	BaseURL string
	APIKey    string
	// PageSize overrides the number of results requested per page.
	PageSize int
}

// Name returns the provider identifier.
func (b *SemanticScholar) Name() string { return "semantic_scholar" }

func (b *SemanticScholar) endpoint() string {
	if b.BaseURL != "" {
		return b.BaseURL
	}
	return semanticAPIBase
}

// Open returns a pager over the results for q starting at start.
func (b *SemanticScholar) Open(client *http.Client, q Query, start int) Pager {
	return newPagedCursor(start, func(ctx context.Context, offset int) ([]Item, bool, error) {
		return b.fetch(ctx, client, q, offset)
	})
}

func (b *SemanticScholar) fetch(ctx context.Context, client *http.Client, q Query, offset int) ([]Item, bool, error) {
	if strings.TrimSpace(q.Keywords) == "" {
		return nil, false, fmt.Errorf("empty Semantic Scholar query")
	}
	limit := b.PageSize
	if limit <= 0 {
		limit = semanticPageSize
	}

	params := url.Values{
		"query":  {q.Keywords},
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(limit)},
		"fields": {semanticFields},
	}
	if yr := buildYearRange(q.YearLow, q.YearHigh); yr != "" {
		params.Set("year", yr)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint()+"?"+params.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}
	if b.APIKey != "" {
		req.Header.Set("x-api-key", b.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, semanticRetries)
	if err != nil {
		return nil, false, requestError(ctx, "Semantic Scholar API", err)
	}
	defer resp.Body.Close()

	if httputil.IsThrottled(resp.StatusCode) {
		return nil, false, fmt.Errorf("%w: Semantic Scholar API returned HTTP %d", ErrThrottled, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, false, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	items := make([]Item, 0, len(sr.Data))
	for _, paper := range sr.Data {
		items = append(items, paper.item())
	}
	// The API omits "next" on the last page.
	return items, sr.Next != nil, nil
}

func (p semanticPaper) item() Item {
	it := Item{
		Bib: Bib{
			Title:    p.Title,
			DOI:      p.ExternalIDs.DOI,
			Abstract: p.Abstract,
			Journal:  p.Venue,
		},
		NumCitations: p.CitationCount,
	}
	if p.Journal != nil && p.Journal.Name != "" {
		it.Bib.Journal = p.Journal.Name
	}
	for _, a := range p.Authors {
		it.Bib.Authors = append(it.Bib.Authors, a.Name)
	}
	if p.Year != nil {
		it.Bib.PubYear = strconv.Itoa(*p.Year)
	}
	it.Bib.PubMonth = monthOf(p.PublicationDate)
	return it
}

// buildYearRange returns a Semantic Scholar year filter string (e.g. "2020-2023").
func buildYearRange(from, to int) string {
	switch {
	case from > 0 && to > 0:
		return fmt.Sprintf("%d-%d", from, to)
	case from > 0:
		return fmt.Sprintf("%d-", from)
	case to > 0:
		return fmt.Sprintf("-%d", to)
	default:
		return ""
	}
}

// monthOf returns the month number of a YYYY-MM-DD date without a leading
// zero, or "" when the date has no month.
func monthOf(date string) string {
	parts := strings.Split(date, "-")
	if len(parts) < 2 {
		return ""
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return ""
	}
	return strconv.Itoa(m)
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Next   *int            `json:"next"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID         string              `json:"paperId"`
	Title           string              `json:"title"`
	Abstract        string              `json:"abstract"`
	Year            *int                `json:"year"`
	PublicationDate string              `json:"publicationDate"`
	Venue           string              `json:"venue"`
	Journal         *semanticJournal    `json:"journal"`
	CitationCount   int                 `json:"citationCount"`
	Authors         []semanticAuthor    `json:"authors"`
	ExternalIDs     semanticExternalIDs `json:"externalIds"`
}

type semanticJournal struct {
	Name string `json:"name"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}
