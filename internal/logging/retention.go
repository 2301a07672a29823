package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// backupTimeLayout is the timestamp lumberjack embeds in rotated file names,
// e.g. chronicle-2025-12-22T14-05-00.000.log.gz.
const backupTimeLayout = "2006-01-02T15-04-05.000"

// PruneRotatedLogs deletes rotated backups of LogFileName in dir that are
// older than retentionDays and returns how many were removed. The active log
// and unrelated files are never touched. retentionDays <= 0 disables pruning.
func PruneRotatedLogs(logger *slog.Logger, dir string, retentionDays int) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		rotated, ok := backupTime(entry.Name())
		if !ok {
			continue
		}
		if rotated.IsZero() {
			info, err := entry.Info()
			if err != nil {
				continue
			}
			rotated = info.ModTime()
		}
		if !rotated.Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "rotated log not pruned", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check permissions on logging.log_dir"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
	}
	if removed > 0 && logger != nil {
		logger.Info("rotated logs pruned",
			String("dir", dir),
			Int("removed", removed),
			Int("retention_days", retentionDays),
			String(FieldEventType, "log_pruned"),
		)
	}
	return removed
}

// backupTime reports whether name is a rotated backup of LogFileName and,
// when the embedded timestamp parses, when it was rotated. A backup with an
// unreadable stamp returns the zero time so the caller falls back to mtime.
func backupTime(name string) (time.Time, bool) {
	ext := filepath.Ext(LogFileName)
	prefix := strings.TrimSuffix(LogFileName, ext) + "-"
	if !strings.HasPrefix(name, prefix) {
		return time.Time{}, false
	}
	stamp := strings.TrimPrefix(name, prefix)
	stamp = strings.TrimSuffix(stamp, ".gz")
	if !strings.HasSuffix(stamp, ext) {
		return time.Time{}, false
	}
	stamp = strings.TrimSuffix(stamp, ext)
	rotated, err := time.Parse(backupTimeLayout, stamp)
	if err != nil {
		return time.Time{}, true
	}
	return rotated, true
}
