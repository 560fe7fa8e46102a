// Package budget defines the core types shared across the pipeline: the
// project record scraped from the municipal portal, the geocoding result,
// and the canonical dataset/GeoJSON shapes consumed by the static site.
package budget

import (
	"fmt"
	"time"
)

// GeocodeStatus describes how a project's coordinates were obtained.
type GeocodeStatus string

// Geocode status values persisted in the canonical dataset.
const (
	GeocodeSuccess   GeocodeStatus = "success"
	GeocodeFailed    GeocodeStatus = "failed"
	GeocodeNoAddress GeocodeStatus = "no_address"
)

// Project type values produced by the normalizer. An unmatched raw value
// passes through uppercased; empty string means the type is unknown.
const (
	TypeOsiedlowe      = "OSIEDLOWE"
	TypePonadosiedlowe = "PONADOSIEDLOWE"
	TypeOgolnomiejskie = "OGÓLNOMIEJSKIE"
)

// StreetView holds the default photographic viewpoint parameters attached to
// successfully geocoded projects.
type StreetView struct {
	Heading int `json:"heading"`
	Pitch   int `json:"pitch"`
	FOV     int `json:"fov"`
}

// ProjectRecord is one civic-budget proposal. Field names follow the JSON
// contract of the consuming site, hence the Polish keys.
type ProjectRecord struct {
	ID               string        `json:"id"`
	Nazwa            string        `json:"nazwa"`
	Typ              string        `json:"typ"`
	Kategoria        string        `json:"kategoria"`
	Osiedle          string        `json:"osiedle"`
	LokalizacjaTekst string        `json:"lokalizacjaTekst"`
	Koszt            int64         `json:"koszt"`
	Opis             string        `json:"opis"`
	Lat              *float64      `json:"lat"`
	Lng              *float64      `json:"lng"`
	StatusGeo        GeocodeStatus `json:"statusGeokodowania"`
	Confidence       *float64      `json:"geocodeConfidence,omitempty"`
	LinkZrodlowy     string        `json:"linkZrodlowy"`
	LinkGoogleMaps   string        `json:"linkGoogleMaps,omitempty"`
	StreetView       *StreetView   `json:"streetView,omitempty"`
	DataPobrania     string        `json:"dataPobrania"`
}

// HasCoordinates reports whether both coordinates are present.
func (p ProjectRecord) HasCoordinates() bool {
	return p.Lat != nil && p.Lng != nil
}

// Validate enforces the record invariants: coordinates present exactly when
// geocoding succeeded, and a non-negative cost.
func (p ProjectRecord) Validate() error {
	if p.Koszt < 0 {
		return fmt.Errorf("project %s: negative cost %d", p.ID, p.Koszt)
	}
	if (p.StatusGeo == GeocodeSuccess) != p.HasCoordinates() {
		return fmt.Errorf("project %s: status %q inconsistent with coordinates", p.ID, p.StatusGeo)
	}
	if p.Confidence != nil && p.StatusGeo != GeocodeSuccess {
		return fmt.Errorf("project %s: confidence set on status %q", p.ID, p.StatusGeo)
	}
	return nil
}

// GeocodeResult is the outcome of a single address query, persisted into the
// geocode cache keyed by the normalized "address, city, country" string.
type GeocodeResult struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"display_name"`
	Confidence  float64 `json:"confidence"`
	Timestamp   string  `json:"timestamp"`
}

// Metadata describes one pipeline run in the canonical dataset.
type Metadata struct {
	Version       string `json:"version"`
	GeneratedAt   string `json:"generatedAt"`
	TotalProjects int    `json:"totalProjects"`
	Source        string `json:"source"`
	Geocoded      int    `json:"geocoded"`
	Failed        int    `json:"failed"`
	RunID         string `json:"runId,omitempty"`
}

// Dataset is the canonical JSON file, the sole durable store of a run.
type Dataset struct {
	Metadata Metadata        `json:"metadata"`
	Projects []ProjectRecord `json:"projects"`
}

// FeatureProperties is the trimmed property bag carried by each map pin.
type FeatureProperties struct {
	ID           string `json:"id"`
	Nazwa        string `json:"nazwa"`
	Typ          string `json:"typ"`
	Kategoria    string `json:"kategoria"`
	Osiedle      string `json:"osiedle"`
	Koszt        int64  `json:"koszt"`
	Opis         string `json:"opis"`
	LinkZrodlowy string `json:"linkZrodlowy"`
}

// Geometry is a GeoJSON point. Coordinates are [lng, lat] per the GeoJSON
// longitude-first mandate.
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// Feature is one GeoJSON feature.
type Feature struct {
	Type       string            `json:"type"`
	Properties FeatureProperties `json:"properties"`
	Geometry   Geometry          `json:"geometry"`
}

// FeatureCollection is the GeoJSON artifact consumed by the map view.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Timestamp formats t the way every dataset timestamp is stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
