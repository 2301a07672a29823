// Package watch processes trip archives dropped into an inbox directory.
//
// A new or changed archive is handed to the processor once its size and
// modification time have been stable for the settle period, so archives still
// being copied are never opened. Archives are processed one at a time and a
// single-instance lock keeps two watchers off the same state directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	"chronicle/internal/logging"
)

// ErrAlreadyRunning reports that another watcher holds the lock.
var ErrAlreadyRunning = errors.New("another chronicle watcher is already running")

// Processor enriches one archive. Errors are logged and the watcher moves
// on; only a cancelled context stops it.
type Processor func(ctx context.Context, archivePath string) error

// Options configures a Watcher.
type Options struct {
	InboxDir string
	LockPath string
	Settle   time.Duration
	// ProcessExisting queues archives already in the inbox at start.
	ProcessExisting bool
	Logger          *slog.Logger
}

type candidate struct {
	size    int64
	modTime time.Time
	changed time.Time
}

type fingerprint struct {
	size    int64
	modTime time.Time
}

// Watcher monitors the inbox for archives.
type Watcher struct {
	opts    Options
	process Processor
	logger  *slog.Logger
	now     func() time.Time

	pending map[string]candidate
	done    map[string]fingerprint
}

// New validates opts and builds a Watcher.
func New(opts Options, process Processor) (*Watcher, error) {
	if strings.TrimSpace(opts.InboxDir) == "" {
		return nil, errors.New("watch: inbox directory is not configured (set paths.inbox_dir)")
	}
	if process == nil {
		return nil, errors.New("watch: processor is required")
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}
	return &Watcher{
		opts:    opts,
		process: process,
		logger:  logging.NewComponentLogger(opts.Logger, "watch"),
		now:     time.Now,
		pending: map[string]candidate{},
		done:    map[string]fingerprint{},
	}, nil
}

// Run watches until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	if w.opts.LockPath != "" {
		if err := os.MkdirAll(filepath.Dir(w.opts.LockPath), 0o755); err != nil {
			return fmt.Errorf("ensure lock dir: %w", err)
		}
		lock := flock.New(w.opts.LockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return ErrAlreadyRunning
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				w.logger.Warn("failed to release watch lock", logging.Error(err))
			}
		}()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(w.opts.InboxDir); err != nil {
		return fmt.Errorf("watch %s: %w", w.opts.InboxDir, err)
	}
	w.logger.Info("watching inbox",
		logging.String("inbox", w.opts.InboxDir),
		logging.Duration("settle", w.opts.Settle),
	)

	if w.opts.ProcessExisting {
		if err := w.Backfill(); err != nil {
			logging.WarnWithContext(w.logger, "inbox scan failed", "watch_backfill_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check inbox permissions"),
				logging.String(logging.FieldImpact, "existing archives wait for a filesystem event"),
			)
		}
	}

	ticker := time.NewTicker(w.tickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				w.observe(evt.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some inbox events may be missed"),
			)
		case <-ticker.C:
			for _, path := range w.Ready() {
				if ctx.Err() != nil {
					return nil
				}
				w.handle(ctx, path)
			}
		}
	}
}

// Backfill queues every archive already present in the inbox.
func (w *Watcher) Backfill() error {
	entries, err := filepath.Glob(filepath.Join(w.opts.InboxDir, "*"))
	if err != nil {
		return err
	}
	for _, path := range entries {
		w.observe(path)
	}
	return nil
}

// observe (re)starts the settle clock for path when it is an archive.
func (w *Watcher) observe(path string) {
	if !IsArchive(path) {
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		delete(w.pending, path)
		return
	}
	if seen, ok := w.done[path]; ok && seen.size == info.Size() && seen.modTime.Equal(info.ModTime()) {
		return
	}
	w.pending[path] = candidate{size: info.Size(), modTime: info.ModTime(), changed: w.now()}
}

// Ready returns, in name order, the archives whose size and modification
// time have not changed for the settle period, and forgets them.
func (w *Watcher) Ready() []string {
	now := w.now()
	var ready []string
	for path, c := range w.pending {
		info, err := os.Stat(path)
		if err != nil {
			delete(w.pending, path)
			continue
		}
		if info.Size() != c.size || !info.ModTime().Equal(c.modTime) {
			w.pending[path] = candidate{size: info.Size(), modTime: info.ModTime(), changed: now}
			continue
		}
		if now.Sub(c.changed) >= w.opts.Settle {
			ready = append(ready, path)
		}
	}
	sort.Strings(ready)
	for _, path := range ready {
		c := w.pending[path]
		w.done[path] = fingerprint{size: c.size, modTime: c.modTime}
		delete(w.pending, path)
	}
	return ready
}

func (w *Watcher) handle(ctx context.Context, path string) {
	started := w.now()
	w.logger.Info("processing archive", logging.String("archive", path))
	if err := w.process(ctx, path); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logging.WarnWithContext(w.logger, "archive processing failed", "watch_process_failed",
			logging.String("archive", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run chronicle process on the archive to retry"),
			logging.String(logging.FieldImpact, "archive left in the inbox"),
		)
		return
	}
	w.logger.Info("archive processed",
		logging.String("archive", path),
		logging.Duration("elapsed", w.now().Sub(started)),
	)
}

func (w *Watcher) tickInterval() time.Duration {
	interval := w.opts.Settle / 2
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	if interval > 2*time.Second {
		interval = 2 * time.Second
	}
	return interval
}

// IsArchive reports whether path looks like a trip export archive.
func IsArchive(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".zip")
}
