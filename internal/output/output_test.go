package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/budzetlodz/budzetmapa/internal/budget"
)

func ptr(v float64) *float64 { return &v }

func sampleRecords() []budget.ProjectRecord {
	return []budget.ProjectRecord{
		{
			ID:        "P2-20",
			Nazwa:     "Boisko na Widzewie",
			StatusGeo: budget.GeocodeFailed,
			Koszt:     50000,
		},
		{
			ID:           "P1-10",
			Nazwa:        "Skwer na Bałutach",
			Typ:          budget.TypeOsiedlowe,
			Kategoria:    "Zieleń",
			Osiedle:      "Bałuty",
			Koszt:        150000,
			Opis:         "Nasadzenia i ławki.",
			Lat:          ptr(51.79),
			Lng:          ptr(19.45),
			StatusGeo:    budget.GeocodeSuccess,
			LinkZrodlowy: "https://example.pl/szczegoly-projektu-2026-1-10-aa",
		},
		{
			ID:        "P3-30",
			Nazwa:     "Projekt bez adresu",
			StatusGeo: budget.GeocodeNoAddress,
		},
	}
}

func TestBuildDatasetSortsAndCounts(t *testing.T) {
	generatedAt := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ds := BuildDataset(sampleRecords(), "run-1", generatedAt)

	require.Equal(t, "1.0.0", ds.Metadata.Version)
	require.Equal(t, "2026-03-14T12:00:00Z", ds.Metadata.GeneratedAt)
	require.Equal(t, "web-scraping", ds.Metadata.Source)
	require.Equal(t, "run-1", ds.Metadata.RunID)
	require.Equal(t, 3, ds.Metadata.TotalProjects)
	require.Equal(t, 1, ds.Metadata.Geocoded)
	require.Equal(t, 1, ds.Metadata.Failed, "no_address records do not count as failures")

	require.Equal(t, []string{"P1-10", "P2-20", "P3-30"}, []string{
		ds.Projects[0].ID, ds.Projects[1].ID, ds.Projects[2].ID,
	})
}

func TestBuildDatasetDoesNotMutateInput(t *testing.T) {
	records := sampleRecords()
	BuildDataset(records, "", time.Now())
	require.Equal(t, "P2-20", records[0].ID)
}

func TestBuildGeoJSONSkipsUnpinnedProjects(t *testing.T) {
	ds := BuildDataset(sampleRecords(), "", time.Now())
	fc := BuildGeoJSON(ds)

	require.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)

	feature := fc.Features[0]
	require.Equal(t, "Feature", feature.Type)
	require.Equal(t, "P1-10", feature.Properties.ID)
	require.Equal(t, "Point", feature.Geometry.Type)
	require.Equal(t, [2]float64{19.45, 51.79}, feature.Geometry.Coordinates, "GeoJSON is longitude first")
}

func TestBuildGeoJSONTrimsLongDescriptions(t *testing.T) {
	long := strings.Repeat("ą", 300)
	records := []budget.ProjectRecord{{
		ID:        "P1-1",
		Opis:      long,
		Lat:       ptr(51.76),
		Lng:       ptr(19.46),
		StatusGeo: budget.GeocodeSuccess,
	}}
	fc := BuildGeoJSON(BuildDataset(records, "", time.Now()))

	opis := fc.Features[0].Properties.Opis
	require.Equal(t, 201, len([]rune(opis)))
	require.True(t, strings.HasSuffix(opis, "…"))
}

func TestWriterWritesArtifactsAtomically(t *testing.T) {
	dir := t.TempDir()
	writer := NewWriter(dir, zap.NewNop())

	ds := BuildDataset(sampleRecords(), "run-1", time.Now())
	require.NoError(t, writer.WriteDataset(ds))
	require.NoError(t, writer.WriteRaw(sampleRecords()))

	var decoded budget.Dataset
	raw, err := os.ReadFile(filepath.Join(dir, DatasetFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, ds.Metadata.TotalProjects, decoded.Metadata.TotalProjects)

	var fc budget.FeatureCollection
	raw, err = os.ReadFile(filepath.Join(dir, GeoJSONFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &fc))
	require.Len(t, fc.Features, 1)

	require.FileExists(t, filepath.Join(dir, RawFile))
	require.NoFileExists(t, filepath.Join(dir, DatasetFile+".tmp"))
}
