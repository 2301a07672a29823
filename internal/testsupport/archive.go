package testsupport

import (
	"archive/zip"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// WriteArchive writes a zip at path holding files (slash-separated names).
func WriteArchive(t testing.TB, path string, files map[string][]byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(f)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write(files[name]); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
}

// webmHeader is enough of an EBML header for files to look like audio.
var webmHeader = []byte{0x1a, 0x45, 0xdf, 0xa3, 0xa3, 0x42, 0x86, 0x81, 0x01, 0x42, 0xf7, 0x81, 0x01, 0x42, 0xf2, 0x81, 0x04}

// SampleMetadata returns a three-clip manifest: clip_001 links story beat
// beat_1, clip_002 has only a place name, clip_003 references an unknown
// story beat. Alice and Bob have voice references, Mom and Dad do not.
func SampleMetadata() map[string]any {
	return map[string]any{
		"trip": map[string]any{
			"id":        "trip_test123",
			"name":      "Test Trip",
			"createdAt": "2025-12-22T10:00:00.000Z",
			"talent": []any{
				map[string]any{"name": "Alice", "age": 9, "voiceReferenceFile": "voice_references/alice.webm"},
				map[string]any{"name": "Bob", "age": 7, "voiceReferenceFile": "voice_references/bob.webm"},
				map[string]any{"name": "Mom"},
				map[string]any{"name": "Dad"},
			},
			"status":     "active",
			"exportedAt": "2025-12-22T12:00:00.000Z",
		},
		"storyBeats": []any{
			map[string]any{
				"id":        "beat_1",
				"location":  "Golden Gate Bridge",
				"text":      "The bridge was the longest suspension bridge in the world when it opened in 1937.",
				"starred":   true,
				"createdAt": "2025-12-22T10:55:00.000Z",
			},
		},
		"clips": []any{
			map[string]any{
				"id":              "clip_001",
				"filename":        "audio/clip_001.webm",
				"recordedAt":      "2025-12-22T10:30:00.000Z",
				"durationSeconds": 15,
				"mimeType":        "audio/webm; codecs=opus",
				"location": map[string]any{
					"lat": 37.8080, "lng": -122.4177, "placeName": "Golden Gate Bridge", "accuracy": 15.0,
				},
				"highlights":  []any{},
				"storyBeatId": "beat_1",
			},
			map[string]any{
				"id":              "clip_002",
				"filename":        "audio/clip_002.webm",
				"recordedAt":      "2025-12-22T11:00:00.000Z",
				"durationSeconds": 30,
				"mimeType":        "audio/webm; codecs=opus",
				"location": map[string]any{
					"lat": 37.7749, "lng": -122.4194, "placeName": "San Francisco, CA", "accuracy": 10.5,
				},
				"highlights":  []any{},
				"storyBeatId": nil,
			},
			map[string]any{
				"id":              "clip_003",
				"filename":        "audio/clip_003.webm",
				"recordedAt":      "2025-12-22T11:30:00.000Z",
				"durationSeconds": 12,
				"highlights":      []any{},
				"storyBeatId":     "beat_missing",
			},
		},
	}
}

// SampleArchiveFiles renders metadata plus placeholder audio for every clip
// and voice reference it names, all under a single top-level folder.
func SampleArchiveFiles(t testing.TB, metadata map[string]any) map[string][]byte {
	t.Helper()
	encoded, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		t.Fatalf("encode metadata: %v", err)
	}
	files := map[string][]byte{"trip_export/metadata.json": encoded}
	if clips, ok := metadata["clips"].([]any); ok {
		for _, raw := range clips {
			if clip, ok := raw.(map[string]any); ok {
				if name, ok := clip["filename"].(string); ok {
					files["trip_export/"+name] = webmHeader
				}
			}
		}
	}
	if header, ok := metadata["trip"].(map[string]any); ok {
		if talent, ok := header["talent"].([]any); ok {
			for _, raw := range talent {
				if traveler, ok := raw.(map[string]any); ok {
					if ref, ok := traveler["voiceReferenceFile"].(string); ok {
						files["trip_export/"+ref] = webmHeader
					}
				}
			}
		}
	}
	return files
}

// WriteSampleArchive writes SampleMetadata as a zip under dir and returns its path.
func WriteSampleArchive(t testing.TB, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "trip_export.zip")
	WriteArchive(t, path, SampleArchiveFiles(t, SampleMetadata()))
	return path
}

// WriteTripDir writes files (as returned by SampleArchiveFiles) below dir
// and returns the trip root, i.e. dir/trip_export.
func WriteTripDir(t testing.TB, dir string, files map[string][]byte) string {
	t.Helper()
	for name, data := range files {
		target := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", target, err)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			t.Fatalf("write %s: %v", target, err)
		}
	}
	return filepath.Join(dir, "trip_export")
}
