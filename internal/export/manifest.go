// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/scholar-harvest/internal/harvest"
)

// Manifest is the on-disk summary of one harvest run. It records what was
// asked, how the run ended, and where the records went.
type Manifest struct {
	RunID    string          `yaml:"run_id"`
	Provider string          `yaml:"provider"`
	Request  harvest.Request `yaml:"request"`
	Summary  RunSummary      `yaml:"summary"`
	// Output is the CSV path, empty when nothing was written.
	Output string `yaml:"output,omitempty"`
}

// RunSummary stores how a run ended.
type RunSummary struct {
	Outcome    harvest.Outcome `yaml:"outcome"`
	Error      string          `yaml:"error,omitempty"`
	Collected  int             `yaml:"collected"`
	Visited    int             `yaml:"visited"`
	Skipped    int             `yaml:"skipped"`
	Attempts   int             `yaml:"attempts"`
	Proxy      string          `yaml:"proxy"`
	StartedAt  time.Time       `yaml:"started_at"`
	FinishedAt time.Time       `yaml:"finished_at"`
}

// NewManifest builds a manifest from a finished run.
func NewManifest(runID, provider string, req harvest.Request, res harvest.Result, output string, started, finished time.Time) Manifest {
	m := Manifest{
		RunID:    runID,
		Provider: provider,
		Request:  req,
		Output:   output,
		Summary: RunSummary{
			Outcome:    res.Outcome,
			Collected:  len(res.Records),
			Visited:    res.Visited,
			Skipped:    res.Skipped,
			Attempts:   res.Attempts,
			Proxy:      res.Session.String(),
			StartedAt:  started.UTC(),
			FinishedAt: finished.UTC(),
		},
	}
	if res.Err != nil {
		m.Summary.Error = res.Err.Error()
	}
	return m
}

// WriteManifest saves m as YAML at path.
func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}
