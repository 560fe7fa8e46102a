package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/budzetlodz/budzetmapa/internal/budget"
)

// Artifact file names under the data directory.
const (
	DatasetFile = "projekty.json"
	GeoJSONFile = "projekty.geo.json"
	RawFile     = "projekty-raw.json"
)

// Writer persists run artifacts into one data directory.
type Writer struct {
	dir    string
	logger *zap.Logger
}

// NewWriter constructs a Writer rooted at dir.
func NewWriter(dir string, logger *zap.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

// WriteDataset writes the canonical dataset and its GeoJSON projection.
func (w *Writer) WriteDataset(ds budget.Dataset) error {
	if err := w.writeJSON(DatasetFile, ds); err != nil {
		return err
	}
	if err := w.writeJSON(GeoJSONFile, BuildGeoJSON(ds)); err != nil {
		return err
	}
	w.logger.Info("dataset written",
		zap.String("dir", w.dir),
		zap.Int("projects", ds.Metadata.TotalProjects),
		zap.Int("geocoded", ds.Metadata.Geocoded),
		zap.Int("failed", ds.Metadata.Failed),
	)
	return nil
}

// WriteRaw snapshots the pre-geocoding records, useful when re-running the
// geocoding stage without re-scraping.
func (w *Writer) WriteRaw(records []budget.ProjectRecord) error {
	return w.writeJSON(RawFile, records)
}

// writeJSON writes v indented, via temp file and rename so a crash never
// leaves a truncated artifact where the site build expects a whole one.
func (w *Writer) writeJSON(name string, v any) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	path := filepath.Join(w.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("committing %s: %w", name, err)
	}
	return nil
}
