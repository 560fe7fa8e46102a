package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/budzetlodz/budzetmapa/internal/budget"
	"github.com/budzetlodz/budzetmapa/internal/geocode"
	"github.com/budzetlodz/budzetmapa/internal/output"
)

func newCheckCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the generated dataset and report geocoding quality.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := filepath.Join(cfg.Output.DataDir, output.DatasetFile)
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read dataset: %w", err)
			}
			var ds budget.Dataset
			if err := json.Unmarshal(raw, &ds); err != nil {
				return fmt.Errorf("parse dataset: %w", err)
			}

			report := geocode.BuildReport(ds, geocodeConfig(false))
			fmt.Fprint(cmd.OutOrStdout(), report.Summary())

			if len(report.Invalid) > 0 {
				return fmt.Errorf("%d records violate dataset invariants", len(report.Invalid))
			}
			if strict && len(report.OutOfBounds) > 0 {
				return fmt.Errorf("%d records fall outside the city bounding box", len(report.OutOfBounds))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "also fail on out-of-bounds coordinates")

	return cmd
}
