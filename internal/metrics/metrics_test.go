package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCall(t *testing.T) {
	r := NewRecorder()
	r.ObserveCall("speech", "success", 1, 2*time.Second)
	r.ObserveCall("speech", "success", 3, time.Second)
	r.ObserveCall("scene", "timeout", 2, 30*time.Second)

	if got := testutil.ToFloat64(r.calls.WithLabelValues("speech", "success")); got != 2 {
		t.Fatalf("speech successes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.attempts.WithLabelValues("speech")); got != 4 {
		t.Fatalf("speech attempts = %v, want 4", got)
	}
	if got := testutil.ToFloat64(r.calls.WithLabelValues("scene", "timeout")); got != 1 {
		t.Fatalf("scene timeouts = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(r.callDuration); got != 2 {
		t.Fatalf("expected 2 histogram series, got %d", got)
	}
}

func TestObserveClip(t *testing.T) {
	r := NewRecorder()
	r.ObserveClip("enriched", time.Second)
	r.ObserveClip("degraded", time.Second)
	r.ObserveClip("enriched", time.Second)

	expected := `
# HELP chronicle_clips_total Checkpointed clips by analysis status
# TYPE chronicle_clips_total counter
chronicle_clips_total{status="degraded"} 1
chronicle_clips_total{status="enriched"} 2
`
	if err := testutil.CollectAndCompare(r.clips, strings.NewReader(expected)); err != nil {
		t.Fatalf("unexpected clip metrics: %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveClip("skipped", time.Second)
	r.MarkBatchComplete(time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "chronicle.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, `chronicle_clips_total{status="skipped"} 1`) {
		t.Fatalf("missing clip counter in:\n%s", text)
	}
	if !strings.Contains(text, "chronicle_last_batch_completed_timestamp_seconds 1.7e+09") {
		t.Fatalf("missing completion gauge in:\n%s", text)
	}
}
