package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	outputDir  string
	stateDir   string
	metrics    string
	speech     *httptest.Server
	scene      *httptest.Server

	speechCalls atomic.Int32
	sceneCalls  atomic.Int32
}

func runCLI(t *testing.T, args []string, configPath string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

const sceneContent = `{"audioType":"speech","audioEvents":[{"timestamp":"00:03","event":"seagulls"}],` +
	`"sceneDescription":"Family chatting on a windy bridge","emotionalTone":"excited"}`

// setupCLITestEnv starts stub speech and scene endpoints and writes a
// config file pointing at them.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	env := &cliTestEnv{baseDir: t.TempDir()}
	env.outputDir = filepath.Join(env.baseDir, "output")
	env.stateDir = filepath.Join(env.baseDir, "state")
	env.metrics = filepath.Join(env.baseDir, "metrics", "chronicle.prom")

	env.speech = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		env.speechCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"text": "We made it to the bridge",
			"segments": []any{
				map[string]any{"id": "seg_0", "start": 1.2, "end": 3.0, "speaker": "Alice", "text": "We made it to the bridge"},
			},
		})
	}))
	t.Cleanup(env.speech.Close)

	env.scene = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.sceneCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": sceneContent}},
			},
		})
	}))
	t.Cleanup(env.scene.Close)

	env.configPath = filepath.Join(env.baseDir, "config.toml")
	content := fmt.Sprintf(`[paths]
output_dir = %q
work_dir = %q
state_dir = %q
log_dir = %q

[analysis]
mode = "hybrid"
retry_attempts = 1
retry_base_delay_ms = 0
retry_max_delay_ms = 1
call_timeout_seconds = 10

[speech]
api_key = "test-speech"
base_url = %q

[scene]
api_key = "test-scene"
base_url = %q

[logging]
level = "error"

[metrics]
textfile = %q
`,
		env.outputDir,
		filepath.Join(env.baseDir, "work"),
		env.stateDir,
		filepath.Join(env.baseDir, "logs"),
		env.speech.URL,
		env.scene.URL,
		env.metrics,
	)
	if err := os.MkdirAll(filepath.Dir(env.metrics), 0o755); err != nil {
		t.Fatalf("mkdir metrics dir: %v", err)
	}
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func mustContain(t *testing.T, haystack string, needles ...string) {
	t.Helper()
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
		}
	}
}
