package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"chronicle/internal/checkpoint"
	"chronicle/internal/config"
	"chronicle/internal/enrich"
	"chronicle/internal/logging"
	"chronicle/internal/metrics"
	"chronicle/internal/output"
	"chronicle/internal/preflight"
	"chronicle/internal/services"
	"chronicle/internal/trip"
	"chronicle/internal/voiceref"
)

type runOptions struct {
	DryRun  bool
	Verbose bool
	Resume  bool
}

// pipeline runs one archive through extraction, enrichment and output. The
// process and watch commands share it.
type pipeline struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
	color  bool

	// newDependencies is swapped in tests.
	newDependencies func(*config.Config, *slog.Logger) enrich.Dependencies
}

func newPipeline(cfg *config.Config, logger *slog.Logger, out io.Writer) *pipeline {
	return &pipeline{
		cfg:             cfg,
		logger:          logging.NewComponentLogger(logger, "cli"),
		out:             out,
		color:           shouldColorize(out),
		newDependencies: buildDependencies,
	}
}

// checkLocal fails when a directory the batch writes to is unusable.
func (p *pipeline) checkLocal() error {
	failed := preflight.Failed(preflight.RunLocal(p.cfg))
	if len(failed) == 0 {
		return nil
	}
	for _, result := range failed {
		logging.ErrorWithContext(p.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "fix the directory settings in the [paths] config section"),
		)
	}
	return services.Wrap(services.ErrConfiguration, "cli", "preflight",
		fmt.Sprintf("%s: %s", failed[0].Name, failed[0].Detail), nil)
}

func (p *pipeline) process(ctx context.Context, archivePath string, opts runOptions) error {
	archivePath, err := filepath.Abs(archivePath)
	if err != nil {
		return fmt.Errorf("resolve archive path: %w", err)
	}
	if _, err := os.Stat(archivePath); err != nil {
		return services.Wrap(services.ErrNotFound, "cli", "open archive", archivePath, err)
	}
	inputName := filepath.Base(archivePath)

	inputKey, err := checkpoint.InputKey(archivePath)
	if err != nil {
		return err
	}
	if !opts.DryRun {
		lock, err := checkpoint.LockInput(p.cfg.Paths.StateDir, inputKey)
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				p.logger.Warn("failed to release input lock", logging.Error(err))
			}
		}()
	}

	workDir := filepath.Join(p.cfg.Paths.WorkDir, output.Stem(inputName)+"_"+inputKey[:12])
	root, err := trip.Extract(archivePath, workDir)
	if err != nil {
		return err
	}
	doc, err := trip.Load(root)
	if err != nil {
		return err
	}
	p.logger.Info("trip loaded",
		logging.String("archive", inputName),
		logging.String("trip", doc.Trip.Name),
		logging.Int("clips", len(doc.Clips)),
		logging.Int("travelers", len(doc.Trip.Travelers)),
	)

	if opts.DryRun {
		refs := voiceref.Resolve(doc)
		fmt.Fprint(p.out, renderPlan(doc, enrich.Plan(doc, refs), refs))
		return nil
	}
	return p.enrich(ctx, doc, inputKey, inputName, opts)
}

func (p *pipeline) enrich(ctx context.Context, doc *trip.Document, inputKey, inputName string, opts runOptions) error {
	store, err := checkpoint.Open(p.cfg.CheckpointPath())
	if err != nil {
		return services.Wrap(services.ErrFatal, "cli", "open checkpoint", p.cfg.CheckpointPath(), err)
	}
	defer store.Close()

	run, err := store.Begin(ctx, checkpoint.BeginOptions{
		InputKey:   inputKey,
		InputName:  inputName,
		RunID:      uuid.NewString(),
		ClipsTotal: len(doc.Clips),
		Resume:     opts.Resume,
	})
	if err != nil {
		return services.Wrap(services.ErrFatal, "cli", "begin run", inputName, err)
	}
	ctx = services.WithRunID(ctx, run.RunID)
	logger := logging.WithContext(ctx, p.logger)
	if run.Resumed {
		fmt.Fprintf(p.out, "Resuming run %s: %d/%d clips already processed\n", run.RunID, len(run.Completed()), len(doc.Clips))
	}

	recorder := metrics.NewRecorder()
	deps := p.newDependencies(p.cfg, logger)
	deps.Observer = recorder
	deps.Logger = logger
	orch, err := enrich.New(enrich.OptionsFromConfig(p.cfg), deps)
	if err != nil {
		return err
	}

	result, runErr := orch.Run(ctx, doc, run)
	defer p.writeMetrics(recorder)
	if result == nil {
		return runErr
	}

	if runErr != nil && ctx.Err() != nil {
		fmt.Fprintf(p.out, "Interrupted after %d/%d clips; progress saved, run the same command again to resume\n",
			len(result.Annotations), len(doc.Clips))
		return runErr
	}

	data, err := doc.Render(result.Annotations)
	if err != nil {
		return errors.Join(runErr, services.Wrap(services.ErrFatal, "cli", "render output", inputName, err))
	}
	outputPath, err := output.Write(p.cfg.Paths.OutputDir, inputName, run.StartedAt.Local(), data)
	if err != nil {
		return errors.Join(runErr, services.Wrap(services.ErrFatal, "cli", "write output", inputName, err))
	}
	if runErr != nil {
		logging.ErrorWithContext(logger, "batch aborted; partial output written", "batch_aborted",
			logging.String("output", outputPath),
			logging.Error(runErr),
			logging.String(logging.FieldImpact, "remaining clips were not processed"),
		)
		fmt.Fprintf(p.out, "Partial output: %s\n", outputPath)
		return runErr
	}

	if err := run.Archive(context.WithoutCancel(ctx), outputPath); err != nil {
		logging.WarnWithContext(logger, "failed to archive checkpoint run", "checkpoint_archive_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the next run on this archive resumes instead of starting fresh"),
		)
	}
	recorder.MarkBatchComplete(time.Now())

	fmt.Fprint(p.out, renderSummary(result.Summary, p.color))
	if opts.Verbose {
		fmt.Fprint(p.out, renderTranscripts(doc, result.Annotations))
	}
	fmt.Fprintf(p.out, "Output: %s\n", outputPath)
	fmt.Fprintf(p.out, "Done! Processed %d/%d clips successfully\n", result.Summary.Enriched, result.Summary.Clips)
	logger.Info("batch complete",
		logging.String("output", outputPath),
		logging.Int("enriched", result.Summary.Enriched),
		logging.Int("degraded", result.Summary.Degraded),
		logging.Int("skipped", result.Summary.Skipped),
		logging.Int("resumed", result.Resumed),
	)
	return nil
}

func (p *pipeline) writeMetrics(recorder *metrics.Recorder) {
	path := p.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	if err := recorder.WriteTextfile(path); err != nil {
		logging.WarnWithContext(p.logger, "failed to write metrics textfile", "metrics_write_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "metrics for this batch are not exported"),
		)
	}
}
