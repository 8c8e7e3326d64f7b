// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/scholar-harvest/internal/scholar"
	"github.com/pdiddy/scholar-harvest/pkg/types"
)

// ErrBadYear reports a publication year that is not an integer.
var ErrBadYear = errors.New("invalid publication year")

// MapRecord converts an upstream item into a PublicationRecord. Missing
// fields become empty strings or zero; a missing year is zero. Only a
// present but non-integer year is an error, and the caller skips the item.
func MapRecord(it scholar.Item) (types.PublicationRecord, error) {
	year := 0
	if y := strings.TrimSpace(it.Bib.PubYear); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil {
			return types.PublicationRecord{}, fmt.Errorf("%w: %q", ErrBadYear, it.Bib.PubYear)
		}
		year = n
	}

	return types.PublicationRecord{
		Title:       it.Bib.Title,
		DOI:         it.Bib.DOI,
		Authors:     strings.Join(it.Bib.Authors, ", "),
		Year:        year,
		Month:       it.Bib.PubMonth,
		Abstract:    it.Bib.Abstract,
		Citation:    it.NumCitations,
		Publication: it.Bib.Journal,
	}, nil
}

// InRange reports whether rec falls inside the request's year range, bounds included.
func InRange(rec types.PublicationRecord, req Request) bool {
	return req.StartYear <= rec.Year && rec.Year <= req.EndYear
}
