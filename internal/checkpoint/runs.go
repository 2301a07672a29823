package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Run states.
const (
	RunActive     = "active"
	RunArchived   = "archived"
	RunSuperseded = "superseded"
)

// Record is the persisted result of one clip. Analysis and StoryBeat hold the
// exact JSON written to the output document.
type Record struct {
	ClipID    string
	Status    string
	Analysis  json.RawMessage
	StoryBeat json.RawMessage
	Warnings  []string
	Error     string
	UpdatedAt time.Time
}

// BeginOptions identifies the input a run processes.
type BeginOptions struct {
	InputKey   string
	InputName  string
	RunID      string
	ClipsTotal int
	// Resume continues the active run for InputKey when one exists. When
	// false, an active run is superseded and a fresh one starts.
	Resume bool
}

// Run is the Progress State of one batch. It is safe for concurrent use.
type Run struct {
	store *Store
	pk    int64

	RunID     string
	InputKey  string
	InputName string
	StartedAt time.Time
	Resumed   bool

	mu      sync.Mutex
	records map[string]Record
}

// Begin loads or creates the run for an input.
func (s *Store) Begin(ctx context.Context, opts BeginOptions) (*Run, error) {
	if strings.TrimSpace(opts.InputKey) == "" {
		return nil, errors.New("checkpoint: input key is required")
	}
	if strings.TrimSpace(opts.RunID) == "" {
		return nil, errors.New("checkpoint: run id is required")
	}
	now := time.Now().UTC()

	if opts.Resume {
		run, err := s.activeRun(ctx, opts.InputKey)
		if err != nil {
			return nil, err
		}
		if run != nil {
			if _, err := s.exec(ctx,
				`UPDATE runs SET clips_total = ?, updated_at = ? WHERE id = ?`,
				opts.ClipsTotal, formatTime(now), run.pk,
			); err != nil {
				return nil, fmt.Errorf("touch run: %w", err)
			}
			if err := run.load(ctx); err != nil {
				return nil, err
			}
			run.Resumed = true
			return run, nil
		}
	} else {
		if _, err := s.exec(ctx,
			`UPDATE runs SET status = ?, updated_at = ? WHERE input_key = ? AND status = ?`,
			RunSuperseded, formatTime(now), opts.InputKey, RunActive,
		); err != nil {
			return nil, fmt.Errorf("supersede runs: %w", err)
		}
	}

	res, err := s.exec(ctx,
		`INSERT INTO runs (input_key, input_name, run_id, status, clips_total, started_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		opts.InputKey, opts.InputName, opts.RunID, RunActive, opts.ClipsTotal, formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	pk, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &Run{
		store:     s,
		pk:        pk,
		RunID:     opts.RunID,
		InputKey:  opts.InputKey,
		InputName: opts.InputName,
		StartedAt: now,
		records:   map[string]Record{},
	}, nil
}

func (s *Store) activeRun(ctx context.Context, inputKey string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, run_id, input_name, started_at FROM runs
         WHERE input_key = ? AND status = ? ORDER BY id DESC LIMIT 1`,
		inputKey, RunActive,
	)
	var (
		pk        int64
		runID     string
		inputName string
		started   sql.NullString
	)
	if err := row.Scan(&pk, &runID, &inputName, &started); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active run: %w", err)
	}
	return &Run{
		store:     s,
		pk:        pk,
		RunID:     runID,
		InputKey:  inputKey,
		InputName: inputName,
		StartedAt: parseTime(started),
		records:   map[string]Record{},
	}, nil
}

func (r *Run) load(ctx context.Context) error {
	rows, err := r.store.db.QueryContext(ctx,
		`SELECT clip_id, status, analysis_json, story_beat_json, warnings_json, error_message, updated_at
         FROM clip_results WHERE run_pk = ?`,
		r.pk,
	)
	if err != nil {
		return fmt.Errorf("load clip results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec       Record
			analysis  sql.NullString
			storyBeat sql.NullString
			warnings  sql.NullString
			errMsg    sql.NullString
			updated   sql.NullString
		)
		if err := rows.Scan(&rec.ClipID, &rec.Status, &analysis, &storyBeat, &warnings, &errMsg, &updated); err != nil {
			return fmt.Errorf("scan clip result: %w", err)
		}
		if analysis.Valid {
			rec.Analysis = json.RawMessage(analysis.String)
		}
		if storyBeat.Valid {
			rec.StoryBeat = json.RawMessage(storyBeat.String)
		}
		if warnings.Valid && warnings.String != "" {
			if err := json.Unmarshal([]byte(warnings.String), &rec.Warnings); err != nil {
				return fmt.Errorf("decode warnings for %s: %w", rec.ClipID, err)
			}
		}
		rec.Error = errMsg.String
		rec.UpdatedAt = parseTime(updated)
		r.records[rec.ClipID] = rec
	}
	return rows.Err()
}

// Completed returns a copy of the clips already checkpointed in this run.
func (r *Run) Completed() map[string]Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Record, len(r.records))
	for id, rec := range r.records {
		out[id] = rec
	}
	return out
}

// Append durably records one clip's result, replacing an earlier record for
// the same clip.
func (r *Run) Append(ctx context.Context, rec Record) error {
	if strings.TrimSpace(rec.ClipID) == "" {
		return errors.New("checkpoint: clip id is required")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	var warnings any
	if len(rec.Warnings) > 0 {
		encoded, err := json.Marshal(rec.Warnings)
		if err != nil {
			return fmt.Errorf("encode warnings: %w", err)
		}
		warnings = string(encoded)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkpoint tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := retryOnBusy(ctx, func() error {
		_, execErr := tx.ExecContext(ctx,
			`INSERT INTO clip_results (run_pk, clip_id, status, analysis_json, story_beat_json, warnings_json, error_message, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(run_pk, clip_id) DO UPDATE SET
                 status = excluded.status,
                 analysis_json = excluded.analysis_json,
                 story_beat_json = excluded.story_beat_json,
                 warnings_json = excluded.warnings_json,
                 error_message = excluded.error_message,
                 updated_at = excluded.updated_at`,
			r.pk, rec.ClipID, rec.Status, rawOrNil(rec.Analysis), rawOrNil(rec.StoryBeat), warnings,
			nullableString(rec.Error), formatTime(rec.UpdatedAt),
		)
		return execErr
	}); err != nil {
		return fmt.Errorf("write clip result %s: %w", rec.ClipID, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE runs SET updated_at = ? WHERE id = ?`, formatTime(rec.UpdatedAt), r.pk); err != nil {
		return fmt.Errorf("touch run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clip result %s: %w", rec.ClipID, err)
	}
	r.records[rec.ClipID] = rec
	return nil
}

// Archive marks the run finished. An archived run is never resumed.
func (r *Run) Archive(ctx context.Context, outputPath string) error {
	now := formatTime(time.Now())
	_, err := r.store.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, updated_at = ?, output_path = ? WHERE id = ?`,
		RunArchived, now, now, nullableString(outputPath), r.pk,
	)
	if err != nil {
		return fmt.Errorf("archive run: %w", err)
	}
	return nil
}

func rawOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// RunSummary describes one run for reporting.
type RunSummary struct {
	RunID      string
	InputKey   string
	InputName  string
	Status     string
	ClipsTotal int
	ClipsDone  int
	StartedAt  time.Time
	UpdatedAt  time.Time
	FinishedAt time.Time
	OutputPath string
}

// ListRuns returns the most recent runs first. A limit of zero lists all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `SELECT r.run_id, r.input_key, r.input_name, r.status, r.clips_total,
                     (SELECT COUNT(1) FROM clip_results c WHERE c.run_pk = r.id),
                     r.started_at, r.updated_at, r.finished_at, r.output_path
              FROM runs r ORDER BY r.id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			summary  RunSummary
			started  sql.NullString
			updated  sql.NullString
			finished sql.NullString
			output   sql.NullString
		)
		if err := rows.Scan(&summary.RunID, &summary.InputKey, &summary.InputName, &summary.Status,
			&summary.ClipsTotal, &summary.ClipsDone, &started, &updated, &finished, &output); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		summary.StartedAt = parseTime(started)
		summary.UpdatedAt = parseTime(updated)
		summary.FinishedAt = parseTime(finished)
		summary.OutputPath = output.String
		runs = append(runs, summary)
	}
	return runs, rows.Err()
}
