// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// googleScholarBase is the Google Scholar results page. Declared as a var
// so tests can substitute an httptest server.
var googleScholarBase = "https://scholar.google.com/scholar"

// googlePageSize is the number of results Google Scholar serves per page.
const googlePageSize = 10

var (
	yearSuffix = regexp.MustCompile(`(?:^|[,\s])((?:19|20)\d{2})\s*$`)
	doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s?#&"]+`)
	citedBy    = regexp.MustCompile(`^Cited by (\d+)`)
)

// blockMarkers appear on the interstitial pages Google serves to clients it
// considers automated.
var blockMarkers = [][]byte{
	[]byte(`id="gs_captcha_ccl"`),
	[]byte(`id="recaptcha"`),
	[]byte("unusual traffic from your computer network"),
}

// GoogleScholar scrapes the Google Scholar results page.
type GoogleScholar struct {
	UserAgent string
	// BaseURL replaces the public endpoint when set.
	BaseURL string
}

// Name returns the provider identifier.
func (g *GoogleScholar) Name() string { return "google_scholar" }

func (g *GoogleScholar) endpoint() string {
	if g.BaseURL != "" {
		return g.BaseURL
	}
	return googleScholarBase
}

// Open returns a pager over the results for q starting at start.
func (g *GoogleScholar) Open(client *http.Client, q Query, start int) Pager {
	return newPagedCursor(start, func(ctx context.Context, offset int) ([]Item, bool, error) {
		items, err := g.fetch(ctx, client, q, offset)
		if err != nil {
			return nil, false, err
		}
		return items, len(items) >= googlePageSize, nil
	})
}

func (g *GoogleScholar) fetch(ctx context.Context, client *http.Client, q Query, offset int) ([]Item, error) {
	params := url.Values{
		"q":  {q.Keywords},
		"hl": {"en"},
	}
	if q.YearLow > 0 {
		params.Set("as_ylo", strconv.Itoa(q.YearLow))
	}
	if q.YearHigh > 0 {
		params.Set("as_yhi", strconv.Itoa(q.YearHigh))
	}
	if offset > 0 {
		params.Set("start", strconv.Itoa(offset))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint()+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if g.UserAgent != "" {
		req.Header.Set("User-Agent", g.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, requestError(ctx, "Google Scholar", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests, http.StatusForbidden, http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: Google Scholar returned HTTP %d", ErrThrottled, resp.StatusCode)
	default:
		return nil, fmt.Errorf("Google Scholar returned HTTP %d", resp.StatusCode)
	}
	if strings.Contains(resp.Request.URL.Path, "/sorry/") {
		return nil, fmt.Errorf("%w: redirected to %s", ErrThrottled, resp.Request.URL.Path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading Google Scholar response: %w", err)
	}
	for _, m := range blockMarkers {
		if bytes.Contains(body, m) {
			return nil, fmt.Errorf("%w: captcha page", ErrThrottled)
		}
	}
	return parseGoogleResults(body)
}

// parseGoogleResults extracts the result entries of one results page.
func parseGoogleResults(body []byte) ([]Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing Google Scholar page: %w", err)
	}

	var items []Item
	doc.Find("div.gs_r.gs_or.gs_scl").Each(func(_ int, s *goquery.Selection) {
		items = append(items, parseGoogleEntry(s))
	})
	return items, nil
}

func parseGoogleEntry(s *goquery.Selection) Item {
	var it Item

	heading := s.Find("h3.gs_rt").First()
	link, _ := heading.Find("a").First().Attr("href")
	// Drop the [PDF] / [CITATION] badges before reading the title.
	heading.Find("span.gs_ctc, span.gs_ctu, span.gs_ct1, span.gs_ct2").Remove()
	it.Bib.Title = cleanText(heading.Text())
	it.Bib.DOI = doiPattern.FindString(link)

	authors, venue := splitAuthorLine(cleanText(s.Find("div.gs_a").First().Text()))
	it.Bib.Authors = authors
	it.Bib.Journal, it.Bib.PubYear = splitVenueYear(venue)

	it.Bib.Abstract = cleanText(s.Find("div.gs_rs").First().Text())

	s.Find("div.gs_fl a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		m := citedBy.FindStringSubmatch(strings.TrimSpace(a.Text()))
		if m == nil {
			return true
		}
		it.NumCitations, _ = strconv.Atoi(m[1])
		return false
	})
	return it
}

// splitAuthorLine splits "A Author, B Author - Venue, 2021 - host" into the
// author list and the venue part.
func splitAuthorLine(line string) ([]string, string) {
	if line == "" {
		return nil, ""
	}
	parts := strings.Split(line, " - ")

	var authors []string
	for _, a := range strings.Split(parts[0], ",") {
		a = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(a), "…"))
		if a != "" {
			authors = append(authors, a)
		}
	}

	venue := ""
	if len(parts) > 1 {
		venue = strings.TrimSpace(parts[1])
	}
	return authors, venue
}

// splitVenueYear separates a trailing year from the venue. When no year is
// present the year is "NA".
func splitVenueYear(venue string) (journal, year string) {
	m := yearSuffix.FindStringSubmatchIndex(venue)
	if m == nil {
		return strings.TrimSuffix(venue, "…"), "NA"
	}
	year = venue[m[2]:m[3]]
	journal = strings.TrimSpace(strings.TrimRight(venue[:m[2]], ", "))
	return strings.TrimSpace(strings.TrimSuffix(journal, "…")), year
}

// cleanText collapses whitespace, including the non-breaking spaces Google
// uses around separators.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
