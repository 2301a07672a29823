package trip

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"chronicle/internal/services"
)

// Extract unpacks the archive into dest (replacing previous contents) and
// returns the trip root: the single top-level directory when the archive
// has exactly one, dest otherwise.
func Extract(archivePath, dest string) (string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", services.Wrap(services.ErrNotFound, "trip", "open archive", archivePath, err)
		}
		return "", services.Wrap(services.ErrValidation, "trip", "open archive", archivePath, err)
	}
	defer reader.Close()

	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("clear extraction dir: %w", err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("create extraction dir: %w", err)
	}

	for _, file := range reader.File {
		if ignoredEntry(file.Name) {
			continue
		}
		target, err := entryPath(dest, file.Name)
		if err != nil {
			return "", err
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", fmt.Errorf("create %s: %w", target, err)
			}
			continue
		}
		if err := extractFile(file, target); err != nil {
			return "", err
		}
	}

	return tripRoot(dest)
}

func ignoredEntry(name string) bool {
	first := strings.SplitN(strings.TrimPrefix(name, "/"), "/", 2)[0]
	return first == "__MACOSX" || filepath.Base(name) == ".DS_Store"
}

func entryPath(dest, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", services.Wrap(services.ErrValidation, "trip", "extract", fmt.Sprintf("entry %q escapes the destination", name), nil)
	}
	return filepath.Join(dest, cleaned), nil
}

func extractFile(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
	}
	src, err := file.Open()
	if err != nil {
		return services.Wrap(services.ErrValidation, "trip", "extract", file.Name, err)
	}
	defer src.Close()
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return services.Wrap(services.ErrValidation, "trip", "extract", file.Name, err)
	}
	return dst.Close()
}

func tripRoot(dest string) (string, error) {
	entries, err := os.ReadDir(dest)
	if err != nil {
		return "", fmt.Errorf("list extraction dir: %w", err)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dest, entries[0].Name()), nil
	}
	return dest, nil
}
