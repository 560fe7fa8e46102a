// Package output assembles the canonical dataset and GeoJSON artifacts and
// writes them to the data directory consumed by the static site.
package output

import (
	"sort"
	"time"

	"github.com/budzetlodz/budzetmapa/internal/budget"
)

// datasetVersion is the schema version stamped into every dataset.
const datasetVersion = "1.0.0"

// datasetSource identifies how the dataset was produced.
const datasetSource = "web-scraping"

// descriptionLimit caps the description carried by a map pin; the full text
// stays in the dataset.
const descriptionLimit = 200

// BuildDataset wraps the records in run metadata, sorted by project id for
// stable diffs between runs. The failed count covers only records whose
// geocoding genuinely failed; no_address records are excluded from both
// tallies.
func BuildDataset(records []budget.ProjectRecord, runID string, generatedAt time.Time) budget.Dataset {
	sorted := make([]budget.ProjectRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	geocoded, failed := 0, 0
	for _, record := range sorted {
		switch record.StatusGeo {
		case budget.GeocodeSuccess:
			geocoded++
		case budget.GeocodeFailed:
			failed++
		}
	}

	return budget.Dataset{
		Metadata: budget.Metadata{
			Version:       datasetVersion,
			GeneratedAt:   budget.Timestamp(generatedAt),
			TotalProjects: len(sorted),
			Source:        datasetSource,
			Geocoded:      geocoded,
			Failed:        failed,
			RunID:         runID,
		},
		Projects: sorted,
	}
}

// BuildGeoJSON converts the dataset into a FeatureCollection holding one
// point per project with coordinates. Descriptions are trimmed to keep the
// map payload small.
func BuildGeoJSON(ds budget.Dataset) budget.FeatureCollection {
	features := make([]budget.Feature, 0, len(ds.Projects))
	for _, record := range ds.Projects {
		if !record.HasCoordinates() {
			continue
		}
		features = append(features, budget.Feature{
			Type: "Feature",
			Properties: budget.FeatureProperties{
				ID:           record.ID,
				Nazwa:        record.Nazwa,
				Typ:          record.Typ,
				Kategoria:    record.Kategoria,
				Osiedle:      record.Osiedle,
				Koszt:        record.Koszt,
				Opis:         trimDescription(record.Opis),
				LinkZrodlowy: record.LinkZrodlowy,
			},
			Geometry: budget.Geometry{
				Type:        "Point",
				Coordinates: [2]float64{*record.Lng, *record.Lat},
			},
		})
	}
	return budget.FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

func trimDescription(opis string) string {
	runes := []rune(opis)
	if len(runes) <= descriptionLimit {
		return opis
	}
	return string(runes[:descriptionLimit]) + "…"
}
