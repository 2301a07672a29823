// Package output places enriched documents in versioned run directories.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chronicle/internal/fileutil"
	"chronicle/internal/textutil"
)

// FileName is the enriched document written into every run directory.
const FileName = "enriched_metadata.json"

const dirTimeLayout = "2006-01-02_150405"

// Dir returns the run directory for inputName started at started:
// <outputDir>/<sanitized stem>_YYYY-MM-DD_HHMMSS.
func Dir(outputDir, inputName string, started time.Time) string {
	return filepath.Join(outputDir, Stem(inputName)+"_"+started.Format(dirTimeLayout))
}

// Stem strips the directory and extension from an archive name and makes
// the rest safe for use as a path segment.
func Stem(inputName string) string {
	base := filepath.Base(strings.TrimSpace(inputName))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	stem := textutil.SanitizeFileName(base)
	if stem == "" || stem == "." {
		return "trip"
	}
	return stem
}

// Write stores data as the run's enriched document and returns its path.
// An existing document for the same run is replaced atomically.
func Write(outputDir, inputName string, started time.Time, data []byte) (string, error) {
	dir := Dir(outputDir, inputName, started)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", FileName, err)
	}
	return path, nil
}
