// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/scholar-harvest/internal/httputil"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

const openAlexPageSize = 50

// OpenAlex queries the OpenAlex Works API.
type OpenAlex struct {
	UserAgent string
	// BaseURL replaces the public endpoint when set.
	BaseURL string
	// Email is sent as mailto parameter for polite pool access.
	Email string
	// PageSize overrides the number of results requested per page (max 200).
	PageSize int
}

// Name returns the provider identifier.
func (b *OpenAlex) Name() string { return "openalex" }

func (b *OpenAlex) endpoint() string {
	if b.BaseURL != "" {
		return b.BaseURL
	}
	return openAlexSearchBase
}

// Open returns a pager over the results for q starting at start.
func (b *OpenAlex) Open(client *http.Client, q Query, start int) Pager {
	return newPagedCursor(start, func(ctx context.Context, offset int) ([]Item, bool, error) {
		return b.fetch(ctx, client, q, offset)
	})
}

// fetch maps the item offset onto OpenAlex's page numbering and drops the
// leading results of the page that precede offset.
func (b *OpenAlex) fetch(ctx context.Context, client *http.Client, q Query, offset int) ([]Item, bool, error) {
	if strings.TrimSpace(q.Keywords) == "" {
		return nil, false, fmt.Errorf("empty OpenAlex query")
	}
	perPage := b.PageSize
	if perPage <= 0 {
		perPage = openAlexPageSize
	}
	perPage = min(perPage, 200)

	page := offset/perPage + 1
	skip := offset % perPage

	params := url.Values{
		"search":   {q.Keywords},
		"per_page": {strconv.Itoa(perPage)},
		"page":     {strconv.Itoa(page)},
	}
	if f := buildOpenAlexFilter(q.YearLow, q.YearHigh); f != "" {
		params.Set("filter", f)
	}
	if b.Email != "" {
		params.Set("mailto", b.Email)
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
		return nil, false, requestError(ctx, "OpenAlex API", err)
	}
	defer resp.Body.Close()

	if httputil.IsThrottled(resp.StatusCode) {
		return nil, false, fmt.Errorf("%w: OpenAlex API returned HTTP %d", ErrThrottled, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, false, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	results := oar.Results
	if skip >= len(results) {
		return nil, false, nil
	}
	results = results[skip:]

	items := make([]Item, 0, len(results))
	for _, w := range results {
		items = append(items, w.item())
	}
	more := page*perPage < oar.Meta.Count
	return items, more, nil
}

func (w openAlexWork) item() Item {
	it := Item{
		Bib: Bib{
			Title:    w.Title,
			DOI:      strings.TrimPrefix(w.DOI, "https://doi.org/"),
			Abstract: reconstructAbstract(w.AbstractInvertedIndex),
			PubMonth: monthOf(w.PublicationDate),
		},
		NumCitations: w.CitedByCount,
	}
	if w.PublicationYear > 0 {
		it.Bib.PubYear = strconv.Itoa(w.PublicationYear)
	}
	if w.PrimaryLocation != nil && w.PrimaryLocation.Source != nil {
		it.Bib.Journal = w.PrimaryLocation.Source.DisplayName
	}
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			it.Bib.Authors = append(it.Bib.Authors, a.Author.DisplayName)
		}
	}
	return it
}

// buildOpenAlexFilter returns a publication_year filter for the range.
func buildOpenAlexFilter(from, to int) string {
	switch {
	case from > 0 && to > 0:
		return fmt.Sprintf("publication_year:%d-%d", from, to)
	case from > 0:
		return fmt.Sprintf("publication_year:>%d", from-1)
	case to > 0:
		return fmt.Sprintf("publication_year:<%d", to+1)
	default:
		return ""
	}
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].pos < pairs[j].pos })

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationYear       int                  `json:"publication_year"`
	PublicationDate       string               `json:"publication_date"`
	CitedByCount          int                  `json:"cited_by_count"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	PrimaryLocation       *openAlexLocation    `json:"primary_location"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	DisplayName string `json:"display_name"`
}

type openAlexLocation struct {
	Source *openAlexSource `json:"source"`
}

type openAlexSource struct {
	DisplayName string `json:"display_name"`
}
