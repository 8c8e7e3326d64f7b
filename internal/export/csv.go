// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes harvest results to disk: the CSV of collected
// records and an optional YAML manifest describing the run.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdiddy/scholar-harvest/pkg/types"
)

// WriteCSV writes records to path with a header row, replacing any existing
// file and creating missing parent directories. With no records it logs a
// notice, leaves the file system untouched, and returns false.
func WriteCSV(path string, records []types.PublicationRecord, logger *slog.Logger) (bool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(records) == 0 {
		logger.Warn("no data to save, skipping CSV output", "path", path)
		return false, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return false, fmt.Errorf("creating %s: %w", path, err)
	}
	if err := EncodeCSV(f, records); err != nil {
		f.Close()
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("closing %s: %w", path, err)
	}

	logger.Info("data saved", "path", path, "records", len(records))
	return true, nil
}

// EncodeCSV writes the header and one row per record to w.
func EncodeCSV(w io.Writer, records []types.PublicationRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(types.CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
