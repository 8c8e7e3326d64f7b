// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"fmt"
	"strings"

	"github.com/pdiddy/scholar-harvest/internal/scholar"
)

// Request holds the parameters of one harvest run.
type Request struct {
	Keywords  string `yaml:"keywords"`
	StartYear int    `yaml:"start_year"`
	EndYear   int    `yaml:"end_year"`
	// MaxRetries is the number of proxy re-acquisitions allowed after throttling.
	MaxRetries int `yaml:"max_retries"`
	// MaxResults caps collected records; 0 means unbounded.
	MaxResults int `yaml:"max_results,omitempty"`
}

// Validate rejects requests the search loop cannot run. A reversed year
// range is valid; it matches nothing.
func (r Request) Validate() error {
	switch {
	case strings.TrimSpace(r.Keywords) == "":
		return fmt.Errorf("keywords are empty")
	case r.MaxRetries < 0:
		return fmt.Errorf("max retries must not be negative, got %d", r.MaxRetries)
	case r.MaxResults < 0:
		return fmt.Errorf("max results must not be negative, got %d", r.MaxResults)
	}
	return nil
}

// EmptyRange reports whether no year satisfies StartYear <= year <= EndYear.
func (r Request) EmptyRange() bool {
	return r.StartYear > r.EndYear
}

func (r Request) query() scholar.Query {
	return scholar.Query{Keywords: r.Keywords, YearLow: r.StartYear, YearHigh: r.EndYear}
}
