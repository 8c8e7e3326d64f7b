// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scholar

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deadProxyClient routes requests through a proxy address nothing listens on.
func deadProxyClient(t *testing.T) *http.Client {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = http.ProxyURL(&url.URL{Scheme: "http", Host: addr})
	return &http.Client{Transport: tr}
}

func allProviders(base string) []Provider {
	return []Provider{
		&GoogleScholar{BaseURL: base},
		&SemanticScholar{BaseURL: base},
		&OpenAlex{BaseURL: base},
		&Arxiv{BaseURL: base},
	}
}

func TestDeadProxyIsThrottled(t *testing.T) {
	client := deadProxyClient(t)
	for _, p := range allProviders("http://provider.test/search") {
		t.Run(p.Name(), func(t *testing.T) {
			s := p.Open(client, Query{Keywords: "triatomine"}, 0).Next(context.Background())
			assert.Equal(t, StepThrottled, s.Kind)
			assert.ErrorIs(t, s.Err, ErrThrottled)
			assert.ErrorContains(t, s.Err, "proxyconnect")
		})
	}
}

func TestCancelledRequestIsFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancel()
		<-r.Context().Done()
	}))
	t.Cleanup(ts.Close)

	for _, p := range allProviders(ts.URL) {
		t.Run(p.Name(), func(t *testing.T) {
			s := p.Open(ts.Client(), Query{Keywords: "triatomine"}, 0).Next(ctx)
			assert.Equal(t, StepFatal, s.Kind)
			assert.NotErrorIs(t, s.Err, ErrThrottled)
		})
	}
}

func TestBaseURLOverridesEndpoint(t *testing.T) {
	var hits int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(ts.Close)

	for _, name := range Names() {
		p, err := New(name, Options{BaseURL: ts.URL})
		require.NoError(t, err)
		p.Open(ts.Client(), Query{Keywords: "x"}, 0).Next(context.Background())
	}
	assert.Equal(t, len(Names()), hits)
}
