package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "https://budzetobywatelski.uml.lodz.pl", cfg.Portal.BaseURL)
	require.Equal(t, "/zlozone-projekty-2026", cfg.Portal.ListingPath)
	require.Equal(t, 50, cfg.Portal.MaxListingPages)
	require.Equal(t, 10, cfg.Portal.CheckpointInterval)
	require.Equal(t, 500*time.Millisecond, cfg.PortalDelay())
	require.Equal(t, time.Second, cfg.GeocoderDelay())
	require.Equal(t, "Łódź", cfg.Geocoder.City)
	require.Equal(t, "pl", cfg.Geocoder.CountryCode)
	require.InDelta(t, 51.7592, cfg.Geocoder.CenterLat, 1e-9)
	require.InDelta(t, 19.4560, cfg.Geocoder.CenterLng, 1e-9)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("portal:\n  delay_ms: 750\noutput:\n  data_dir: out\n")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 750*time.Millisecond, cfg.PortalDelay())
	require.Equal(t, "out", cfg.Output.DataDir)
	// Untouched sections keep their defaults.
	require.Equal(t, "https://nominatim.openstreetmap.org", cfg.Geocoder.BaseURL)
}

func TestValidateRejectsEmptyBoundingBox(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Geocoder.MinLat = cfg.Geocoder.MaxLat
	require.ErrorContains(t, cfg.Validate(), "bounding box")
}

func TestValidateRejectsMissingBaseURL(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Portal.BaseURL = ""
	require.Error(t, cfg.Validate())
}
