package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

var zipSignature = []byte("PK\x03\x04")

// WritePartialArchive stands in for a trip export still being copied into
// the inbox: a zip local-file signature padded with zeros to size bytes.
// Calling it again with a larger size simulates the copy making progress.
func WritePartialArchive(t testing.TB, path string, size int) {
	t.Helper()
	size = max(size, len(zipSignature))
	data := make([]byte, size)
	copy(data, zipSignature)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
