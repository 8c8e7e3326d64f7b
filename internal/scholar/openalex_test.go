// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withOpenAlexServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	old := openAlexSearchBase
	openAlexSearchBase = ts.URL
	t.Cleanup(func() {
		openAlexSearchBase = old
		ts.Close()
	})
	return ts
}

// openAlexPage serves works numbered from (page-1)*perPage out of count total.
func openAlexPage(page, perPage, count int) string {
	var works []string
	for i := (page - 1) * perPage; i < min(page*perPage, count); i++ {
		works = append(works, fmt.Sprintf(`{"id":"W%d","title":"Work %d","publication_year":2021,"cited_by_count":%d,"authorships":[]}`, i, i, i))
	}
	return fmt.Sprintf(`{"meta":{"count":%d,"per_page":%d,"page":%d},"results":[%s]}`,
		count, perPage, page, strings.Join(works, ","))
}

func TestBuildOpenAlexFilter(t *testing.T) {
	assert.Equal(t, "publication_year:2020-2022", buildOpenAlexFilter(2020, 2022))
	assert.Equal(t, "publication_year:>2019", buildOpenAlexFilter(2020, 0))
	assert.Equal(t, "publication_year:<2023", buildOpenAlexFilter(0, 2022))
	assert.Equal(t, "", buildOpenAlexFilter(0, 0))
}

func TestReconstructAbstract(t *testing.T) {
	got := reconstructAbstract(map[string][]int{
		"bugs":    {1},
		"Kissing": {0},
		"bite":    {2},
	})
	assert.Equal(t, "Kissing bugs bite", got)
	assert.Equal(t, "", reconstructAbstract(nil))
}

func TestOpenAlexMapsWork(t *testing.T) {
	ts := withOpenAlexServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "triatomine", q.Get("search"))
		assert.Equal(t, "publication_year:2022-2024", q.Get("filter"))
		assert.Equal(t, "me@example.org", q.Get("mailto"))
		fmt.Fprint(w, `{"meta":{"count":1},"results":[{
			"id":"https://openalex.org/W1","title":"Vector ecology","doi":"https://doi.org/10.5/xyz",
			"publication_year":2023,"publication_date":"2023-09-01","cited_by_count":4,
			"abstract_inverted_index":{"Short":[0],"abstract":[1]},
			"authorships":[{"author":{"display_name":"R. Gomez"}},{"author":{"display_name":""}}],
			"primary_location":{"source":{"display_name":"Insects"}}}]}`)
	})

	b := &OpenAlex{Email: "me@example.org"}
	items, last := drain(t, b.Open(ts.Client(), Query{Keywords: "triatomine", YearLow: 2022, YearHigh: 2024}, 0))
	require.Len(t, items, 1)
	assert.Equal(t, StepExhausted, last.Kind)

	it := items[0]
	assert.Equal(t, "Vector ecology", it.Bib.Title)
	assert.Equal(t, "10.5/xyz", it.Bib.DOI)
	assert.Equal(t, []string{"R. Gomez"}, it.Bib.Authors)
	assert.Equal(t, "2023", it.Bib.PubYear)
	assert.Equal(t, "9", it.Bib.PubMonth)
	assert.Equal(t, "Short abstract", it.Bib.Abstract)
	assert.Equal(t, "Insects", it.Bib.Journal)
	assert.Equal(t, 4, it.NumCitations)
}

func TestOpenAlexResumesMidPage(t *testing.T) {
	const perPage, count = 5, 12
	var pages []string
	ts := withOpenAlexServer(t, func(w http.ResponseWriter, r *http.Request) {
		pg := r.URL.Query().Get("page")
		pages = append(pages, pg)
		n, _ := strconv.Atoi(pg)
		fmt.Fprint(w, openAlexPage(n, perPage, count))
	})

	b := &OpenAlex{PageSize: perPage}
	items, last := drain(t, b.Open(ts.Client(), Query{Keywords: "x"}, 7))
	assert.Equal(t, StepExhausted, last.Kind)
	require.Len(t, items, count-7)
	assert.Equal(t, "Work 7", items[0].Bib.Title)
	assert.Equal(t, "Work 11", items[len(items)-1].Bib.Title)
	assert.Equal(t, []string{"2", "3"}, pages)
}

func TestOpenAlexThrottled(t *testing.T) {
	ts := withOpenAlexServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	s := (&OpenAlex{}).Open(ts.Client(), Query{Keywords: "x"}, 0).Next(context.Background())
	assert.Equal(t, StepThrottled, s.Kind)
}
