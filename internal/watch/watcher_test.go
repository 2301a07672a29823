package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"chronicle/internal/testsupport"
)

func writeArchive(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newTestWatcher(t *testing.T, inbox string, settle time.Duration) (*Watcher, *time.Time) {
	t.Helper()
	w, err := New(Options{InboxDir: inbox, Settle: settle}, func(context.Context, string) error { return nil })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }
	return w, &now
}

func TestIsArchive(t *testing.T) {
	cases := map[string]bool{
		"/in/trip.zip":      true,
		"/in/TRIP.ZIP":      true,
		"/in/.partial.zip":  false,
		"/in/trip.zip.part": false,
		"/in/notes.txt":     false,
	}
	for path, want := range cases {
		if got := IsArchive(path); got != want {
			t.Fatalf("IsArchive(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(Options{}, func(context.Context, string) error { return nil }); err == nil {
		t.Fatal("expected error for missing inbox")
	}
	if _, err := New(Options{InboxDir: t.TempDir()}, nil); err == nil {
		t.Fatal("expected error for missing processor")
	}
}

func TestReadyWaitsForSettle(t *testing.T) {
	inbox := t.TempDir()
	w, now := newTestWatcher(t, inbox, 5*time.Second)
	path := filepath.Join(inbox, "trip.zip")
	testsupport.WritePartialArchive(t, path, 1024)
	writeArchive(t, inbox, "notes.txt", "ignored")

	if err := w.Backfill(); err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if len(w.pending) != 1 {
		t.Fatalf("expected one pending archive, got %d", len(w.pending))
	}

	*now = now.Add(3 * time.Second)
	if ready := w.Ready(); len(ready) != 0 {
		t.Fatalf("archive ready before settle: %v", ready)
	}

	// Growth restarts the settle clock.
	testsupport.WritePartialArchive(t, path, 4096)
	*now = now.Add(3 * time.Second)
	if ready := w.Ready(); len(ready) != 0 {
		t.Fatalf("changed archive reported ready: %v", ready)
	}
	*now = now.Add(3 * time.Second)
	if ready := w.Ready(); len(ready) != 1 || ready[0] != path {
		t.Fatalf("expected %s ready, got %v", path, ready)
	}

	// An unchanged archive is not queued again.
	w.observe(path)
	if len(w.pending) != 0 {
		t.Fatalf("processed archive queued again")
	}
}

func TestReadyRequeuesModifiedArchive(t *testing.T) {
	inbox := t.TempDir()
	w, now := newTestWatcher(t, inbox, 0)
	path := writeArchive(t, inbox, "trip.zip", "v1")
	w.observe(path)
	if ready := w.Ready(); len(ready) != 1 {
		t.Fatalf("expected archive ready, got %v", ready)
	}

	writeArchive(t, inbox, "trip.zip", "version two")
	*now = now.Add(time.Second)
	w.observe(path)
	if ready := w.Ready(); len(ready) != 1 {
		t.Fatalf("expected replaced archive ready, got %v", ready)
	}
}

func TestReadyDropsRemovedArchive(t *testing.T) {
	inbox := t.TempDir()
	w, _ := newTestWatcher(t, inbox, 0)
	path := writeArchive(t, inbox, "trip.zip", "data")
	w.observe(path)
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ready := w.Ready(); len(ready) != 0 {
		t.Fatalf("removed archive reported ready: %v", ready)
	}
	if len(w.pending) != 0 {
		t.Fatalf("removed archive still pending")
	}
}

func TestRunProcessesExistingArchives(t *testing.T) {
	inbox := t.TempDir()
	writeArchive(t, inbox, "b.zip", "second")
	writeArchive(t, inbox, "a.zip", "first")

	var (
		mu   sync.Mutex
		seen []string
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	process := func(_ context.Context, path string) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, filepath.Base(path))
		if len(seen) == 2 {
			cancel()
		}
		if filepath.Base(path) == "a.zip" {
			return errors.New("corrupt archive")
		}
		return nil
	}
	w, err := New(Options{
		InboxDir:        inbox,
		LockPath:        filepath.Join(t.TempDir(), "watch.lock"),
		ProcessExisting: true,
	}, process)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("watcher did not finish")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != "a.zip" || seen[1] != "b.zip" {
		t.Fatalf("unexpected processing order: %v", seen)
	}
}

func TestRunRejectsSecondInstance(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "watch.lock")
	held := flock.New(lockPath)
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("take lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	w, err := New(Options{InboxDir: t.TempDir(), LockPath: lockPath}, func(context.Context, string) error { return nil })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}
