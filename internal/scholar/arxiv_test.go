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

func withArxivServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	old := arxivAPIBase
	arxivAPIBase = ts.URL
	t.Cleanup(func() {
		arxivAPIBase = old
		ts.Close()
	})
	return ts
}

// arxivFeedXML renders entries numbered from start, n of them, out of total.
func arxivFeedXML(start, n, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <title>arXiv Query</title>
  <opensearch:totalResults>%d</opensearch:totalResults>`, total)
	for i := start; i < start+n; i++ {
		fmt.Fprintf(&b, `
  <entry>
    <id>http://arxiv.org/abs/2301.0%04dv1</id>
    <published>2023-02-14T00:00:00Z</published>
    <title>Paper %d</title>
    <summary>Abstract %d</summary>
    <author><name>A. Author</name></author>
  </entry>`, i, i, i)
	}
	b.WriteString("\n</feed>")
	return b.String()
}

func TestBuildArxivQuery(t *testing.T) {
	assert.Equal(t, "all:triatomine AND all:Texas", buildArxivQuery(Query{Keywords: "triatomine  Texas"}))
	assert.Equal(t, "all:x AND submittedDate:[202201010000 TO 202412312359]",
		buildArxivQuery(Query{Keywords: "x", YearLow: 2022, YearHigh: 2024}))
	assert.Equal(t, "all:x AND submittedDate:[202201010000 TO 999912312359]",
		buildArxivQuery(Query{Keywords: "x", YearLow: 2022}))
	assert.Equal(t, "", buildArxivQuery(Query{Keywords: "  "}))
}

func TestArxivMapsEntry(t *testing.T) {
	ts := withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all:chagas AND submittedDate:[202201010000 TO 202412312359]", r.URL.Query().Get("search_query"))
		assert.Equal(t, "0", r.URL.Query().Get("start"))
		fmt.Fprint(w, `<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <opensearch:totalResults>1</opensearch:totalResults>
  <entry>
    <id>http://arxiv.org/abs/2305.01234v2</id>
    <published>2023-05-02T17:59:59Z</published>
    <title>Modelling  Chagas
      transmission</title>
    <summary>  We model vectors.  </summary>
    <author><name>M. Silva</name></author>
    <author><name> J. Doe </name></author>
    <arxiv:doi>10.9/chagas</arxiv:doi>
    <arxiv:journal_ref>Epidemics 42 (2023)</arxiv:journal_ref>
  </entry>
</feed>`)
	})

	items, last := drain(t, (&Arxiv{}).Open(ts.Client(), Query{Keywords: "chagas", YearLow: 2022, YearHigh: 2024}, 0))
	assert.Equal(t, StepExhausted, last.Kind)
	require.Len(t, items, 1)

	it := items[0]
	assert.Equal(t, "Modelling Chagas transmission", it.Bib.Title)
	assert.Equal(t, "We model vectors.", it.Bib.Abstract)
	assert.Equal(t, []string{"M. Silva", "J. Doe"}, it.Bib.Authors)
	assert.Equal(t, "10.9/chagas", it.Bib.DOI)
	assert.Equal(t, "Epidemics 42 (2023)", it.Bib.Journal)
	assert.Equal(t, "2023", it.Bib.PubYear)
	assert.Equal(t, "5", it.Bib.PubMonth)
	assert.Zero(t, it.NumCitations)
}

func TestArxivPagesFromStart(t *testing.T) {
	const pageSize, total = 4, 10
	var starts []string
	ts := withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		st := r.URL.Query().Get("start")
		starts = append(starts, st)
		n, _ := strconv.Atoi(st)
		fmt.Fprint(w, arxivFeedXML(n, min(pageSize, total-n), total))
	})

	items, last := drain(t, (&Arxiv{PageSize: pageSize}).Open(ts.Client(), Query{Keywords: "x"}, 3))
	assert.Equal(t, StepExhausted, last.Kind)
	require.Len(t, items, total-3)
	assert.Equal(t, "Paper 3", items[0].Bib.Title)
	assert.Equal(t, "Paper 9", items[len(items)-1].Bib.Title)
	assert.Equal(t, []string{"3", "7"}, starts)
}

func TestArxivStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   StepKind
	}{
		{http.StatusTooManyRequests, StepThrottled},
		{http.StatusServiceUnavailable, StepThrottled},
		{http.StatusBadRequest, StepFatal},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.status), func(t *testing.T) {
			ts := withArxivServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})
			s := (&Arxiv{}).Open(ts.Client(), Query{Keywords: "x"}, 0).Next(context.Background())
			assert.Equal(t, tt.want, s.Kind)
		})
	}
}
