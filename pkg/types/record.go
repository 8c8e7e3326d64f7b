// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the scholar-harvest pipeline.
package types

import "strconv"

// CSVHeader is the fixed column order of the harvest output file.
var CSVHeader = []string{"title", "doi", "authors", "year", "month", "abstract", "citation", "publication"}

// PublicationRecord is one search result that matched the requested year range.
type PublicationRecord struct {
	// Title is the publication title as returned by the provider.
	Title string `json:"title" yaml:"title"`

	// DOI is the bare DOI, empty when the provider does not expose one.
	DOI string `json:"doi" yaml:"doi"`

	// Authors is the author list joined with ", ".
	Authors string `json:"authors" yaml:"authors"`

	// Year is the publication year.
	Year int `json:"year" yaml:"year"`

	// Month is the publication month as delivered upstream (often empty).
	Month string `json:"month" yaml:"month"`

	// Abstract is the abstract or result snippet.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Citation is the number of citing works known to the provider.
	Citation int `json:"citation" yaml:"citation"`

	// Publication is the journal or venue name.
	Publication string `json:"publication" yaml:"publication"`
}

// Row returns the record as CSV cells in CSVHeader order.
func (r PublicationRecord) Row() []string {
	return []string{
		r.Title,
		r.DOI,
		r.Authors,
		strconv.Itoa(r.Year),
		r.Month,
		r.Abstract,
		strconv.Itoa(r.Citation),
		r.Publication,
	}
}
