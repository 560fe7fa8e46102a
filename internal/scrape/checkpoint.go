package scrape

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/budzetlodz/budzetmapa/internal/budget"
)

// Checkpoint is the periodic progress snapshot written during a long detail
// crawl, so an interrupted run leaves usable partial output behind.
type Checkpoint struct {
	RunID     string                 `json:"runId"`
	Completed int                    `json:"completed"`
	Total     int                    `json:"total"`
	Projects  []budget.ProjectRecord `json:"projects"`
}

// WriteCheckpoint persists the snapshot atomically via a temp file and
// rename, so readers never observe a half-written checkpoint.
func WriteCheckpoint(path string, cp Checkpoint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating checkpoint dir: %w", err)
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("committing checkpoint: %w", err)
	}
	return nil
}
