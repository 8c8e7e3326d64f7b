// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scholar pages through academic search providers. A Provider opens
// a Pager at a result offset; each call to Next yields one tagged Step so the
// caller can drive retries from an explicit signal instead of from errors
// surfacing mid-iteration.
package scholar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// ErrThrottled marks a provider response that signals rate limiting or
// anti-bot blocking. Pagers surface it as a StepThrottled step.
var ErrThrottled = errors.New("provider throttled the request")

// Query holds the search parameters shared by every provider.
type Query struct {
	Keywords string
	YearLow  int
	YearHigh int
}

// Bib is the bibliographic part of an upstream result. Fields a provider
// does not expose stay empty.
type Bib struct {
	Title   string
	DOI     string
	Authors []string
	// PubYear is kept as delivered; it may be empty or non-numeric.
	PubYear  string
	PubMonth string
	Abstract string
	Journal  string
}

// Item is one upstream search result.
type Item struct {
	Bib          Bib
	NumCitations int
}

// StepKind tags the outcome of Pager.Next.
type StepKind int

const (
	StepItem StepKind = iota
	StepExhausted
	StepThrottled
	StepFatal
)

func (k StepKind) String() string {
	switch k {
	case StepItem:
		return "item"
	case StepExhausted:
		return "exhausted"
	case StepThrottled:
		return "throttled"
	case StepFatal:
		return "fatal"
	default:
		return fmt.Sprintf("StepKind(%d)", int(k))
	}
}

// Step is one tagged result of Pager.Next. Item is set for StepItem; Err is
// set for StepThrottled and StepFatal.
type Step struct {
	Kind StepKind
	Item Item
	Err  error
}

// Pager yields results one at a time. After a non-item step every further
// call returns the same step.
type Pager interface {
	Next(ctx context.Context) Step
}

// Provider opens pagers over a search provider. The client carries the
// egress path (proxy session) requests must use.
type Provider interface {
	Name() string
	Open(client *http.Client, q Query, start int) Pager
}

// Options configures providers built by New.
type Options struct {
	UserAgent string
	// BaseURL points the provider at a mirror or test server instead of
	// its public endpoint.
	BaseURL string
	// APIKey is sent to Semantic Scholar when set.
	APIKey string
	// Email is sent to OpenAlex for polite pool access.
	Email string
}

// constructors maps provider names to their constructors.
var constructors = map[string]func(Options) Provider{
	"google_scholar": func(o Options) Provider {
		return &GoogleScholar{UserAgent: o.UserAgent, BaseURL: o.BaseURL}
	},
	"semantic_scholar": func(o Options) Provider {
		return &SemanticScholar{UserAgent: o.UserAgent, BaseURL: o.BaseURL, APIKey: o.APIKey}
	},
	"openalex": func(o Options) Provider {
		return &OpenAlex{UserAgent: o.UserAgent, BaseURL: o.BaseURL, Email: o.Email}
	},
	"arxiv": func(o Options) Provider {
		return &Arxiv{UserAgent: o.UserAgent, BaseURL: o.BaseURL}
	},
}

// New returns the provider registered under name.
func New(name string, opts Options) (Provider, error) {
	c, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %v)", name, Names())
	}
	return c(opts), nil
}

// Names lists the registered provider names in sorted order.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
