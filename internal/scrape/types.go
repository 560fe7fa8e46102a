// Package scrape discovers project detail pages on the municipal portal and
// extracts labelled fields from them using an ordered chain of structural
// heuristics.
package scrape

import (
	"context"

	"github.com/budzetlodz/budzetmapa/internal/fetch"
)

// Fetcher retrieves one page. Satisfied by fetch.Client; tests substitute
// httptest-backed stubs.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (fetch.Page, error)
}

// ProjectLink is one detail-page candidate found on a listing page, with
// best-effort hints scraped from the listing entry itself.
type ProjectLink struct {
	URL   string
	ID    string
	Title string
}

// RawFields holds the unnormalized strings pulled from a detail page. Empty
// string means the field was not found; strategies only fill fields still
// unset by earlier strategies.
type RawFields struct {
	ID          string
	Nazwa       string
	Typ         string
	Kategoria   string
	Osiedle     string
	Lokalizacja string
	Koszt       string
	Opis        string

	// Coordinates lifted directly from an embedded map widget, when present.
	Lat *float64
	Lng *float64
}

// merge copies every non-empty field of other into f where f is still unset.
func (f *RawFields) merge(other RawFields) {
	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
		}
	}
	fill(&f.ID, other.ID)
	fill(&f.Nazwa, other.Nazwa)
	fill(&f.Typ, other.Typ)
	fill(&f.Kategoria, other.Kategoria)
	fill(&f.Osiedle, other.Osiedle)
	fill(&f.Lokalizacja, other.Lokalizacja)
	fill(&f.Koszt, other.Koszt)
	fill(&f.Opis, other.Opis)
	if f.Lat == nil && f.Lng == nil && other.Lat != nil && other.Lng != nil {
		f.Lat = other.Lat
		f.Lng = other.Lng
	}
}
