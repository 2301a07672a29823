package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"chronicle/internal/testsupport"
)

func TestProcessDryRunMakesNoCalls(t *testing.T) {
	env := setupCLITestEnv(t)
	archive := testsupport.WriteSampleArchive(t, env.baseDir)

	out, err := runCLI(t, []string{"process", "--dry-run", archive}, env.configPath)
	if err != nil {
		t.Fatalf("process --dry-run: %v", err)
	}
	mustContain(t, out,
		"Dry run: Test Trip (3 clips, 4 travelers)",
		"Voice references: Alice, Bob",
		"clip_001",
		"audio/clip_002.webm",
		"missing: beat_missing",
		"No analyzer calls made",
	)
	if env.speechCalls.Load() != 0 || env.sceneCalls.Load() != 0 {
		t.Fatalf("dry run called analyzers: speech=%d scene=%d", env.speechCalls.Load(), env.sceneCalls.Load())
	}
	if _, err := os.Stat(env.outputDir); err == nil {
		entries, _ := os.ReadDir(env.outputDir)
		if len(entries) != 0 {
			t.Fatalf("dry run wrote output: %v", entries)
		}
	}
}

func TestProcessWritesVersionedOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	archive := testsupport.WriteSampleArchive(t, env.baseDir)

	out, err := runCLI(t, []string{"process", "--verbose", archive}, env.configPath)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	mustContain(t, out,
		"Fully enriched",
		"Story beat misses",
		"[00:01] Alice: We made it to the bridge",
		"Done! Processed 3/3 clips successfully",
	)
	if got := env.speechCalls.Load(); got != 3 {
		t.Fatalf("expected 3 speech calls, got %d", got)
	}
	if got := env.sceneCalls.Load(); got != 3 {
		t.Fatalf("expected 3 scene calls, got %d", got)
	}

	matches, err := filepath.Glob(filepath.Join(env.outputDir, "trip_export_*", "enriched_metadata.json"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one output file, got %v (err=%v)", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var doc struct {
		Clips []struct {
			ID             string          `json:"id"`
			AnalysisStatus string          `json:"analysisStatus"`
			StoryBeat      json.RawMessage `json:"storyBeat"`
			Analysis       struct {
				AudioType  string `json:"audioType"`
				Transcript []struct {
					Speaker string `json:"speaker"`
				} `json:"transcript"`
			} `json:"analysis"`
		} `json:"clips"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(doc.Clips) != 3 {
		t.Fatalf("expected 3 clips, got %d", len(doc.Clips))
	}
	first := doc.Clips[0]
	if first.AnalysisStatus != "enriched" || first.Analysis.AudioType != "speech" {
		t.Fatalf("unexpected first clip: %+v", first)
	}
	if string(first.StoryBeat) == "null" || len(first.StoryBeat) == 0 {
		t.Fatalf("expected resolved story beat on clip_001")
	}
	if string(doc.Clips[2].StoryBeat) != "null" {
		t.Fatalf("expected null story beat for unknown id, got %s", doc.Clips[2].StoryBeat)
	}

	metrics, err := os.ReadFile(env.metrics)
	if err != nil {
		t.Fatalf("read metrics textfile: %v", err)
	}
	mustContain(t, string(metrics), "chronicle_clips_total", "chronicle_analyzer_calls_total")

	status, err := runCLI(t, []string{"status", "--remote=false"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	mustContain(t, status, "trip_export.zip", "archived", "3/3", "Output directory")
}

func TestProcessRerunStartsFreshAfterArchive(t *testing.T) {
	env := setupCLITestEnv(t)
	archive := testsupport.WriteSampleArchive(t, env.baseDir)

	if _, err := runCLI(t, []string{"process", archive}, env.configPath); err != nil {
		t.Fatalf("first process: %v", err)
	}
	if _, err := runCLI(t, []string{"process", archive}, env.configPath); err != nil {
		t.Fatalf("second process: %v", err)
	}
	if got := env.sceneCalls.Load(); got != 6 {
		t.Fatalf("expected archived run to be redone, got %d scene calls", got)
	}
}

func TestProcessMissingArchive(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := runCLI(t, []string{"process", filepath.Join(env.baseDir, "nope.zip")}, env.configPath); err == nil {
		t.Fatal("expected error for missing archive")
	}
}
