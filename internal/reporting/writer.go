package reporting

import (
	"fmt"
	"os"
	"path/filepath"
)

// Output file names.
const (
	MetricsFile  = "DAILY_METRICS.csv"
	FeaturesFile = "FEATURES.csv"
	SummaryFile  = "RUN_SUMMARY.md"
)

// WriteFiles renders r into dir, creating it if needed.
// Returns the written paths in a fixed order.
func WriteFiles(dir string, r *Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	featureCSV, err := RenderFeaturesCSV(r.Features, r.Columns, r.Targets)
	if err != nil {
		return nil, err
	}

	outputs := []struct {
		name    string
		content string
	}{
		{MetricsFile, RenderMetricsCSV(r.Metrics)},
		{FeaturesFile, featureCSV},
		{SummaryFile, RenderMarkdown(r)},
	}

	paths := make([]string, 0, len(outputs))
	for _, o := range outputs {
		path := filepath.Join(dir, o.name)
		if err := os.WriteFile(path, []byte(o.content), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", o.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
