package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"chronicle/internal/checkpoint"
	"chronicle/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		remote bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show checkpointed runs and preflight results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(false)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			store, err := checkpoint.Open(cfg.CheckpointPath())
			if err != nil {
				return fmt.Errorf("open checkpoint: %w", err)
			}
			defer store.Close()
			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			for _, line := range renderSectionHeader("Runs", colorize) {
				fmt.Fprintln(out, line)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
			} else {
				fmt.Fprintln(out, renderRuns(runs, colorize))
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			var results []preflight.Result
			if remote {
				results = preflight.RunAll(cmd.Context(), cfg)
			} else {
				results = preflight.RunLocal(cfg)
			}
			for _, result := range results {
				verdict := toneGood
				if !result.Passed {
					verdict = toneBad
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, verdict, result.Detail, colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Analysis mode", toneInfo, cfg.Analysis.Mode, colorize))
			fmt.Fprintln(out, renderStatusLine("Parallel calls", toneInfo, yesNo(cfg.Analysis.ParallelCalls), colorize))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of recent runs to show (0 for all)")
	cmd.Flags().BoolVar(&remote, "remote", true, "Check that the configured analyzer endpoints answer")
	return cmd
}

func renderRuns(runs []checkpoint.RunSummary, colorize bool) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.RunID),
			run.InputName,
			formatStamp(run.StartedAt),
			fmt.Sprintf("%s/%s", strconv.Itoa(run.ClipsDone), strconv.Itoa(run.ClipsTotal)),
			paint(run.Status, runStateTone(run.Status), colorize),
			dash(run.OutputPath),
		})
	}
	return renderTable([]column{
		{Title: "Run"},
		{Title: "Input", MaxWidth: 40},
		{Title: "Started"},
		{Title: "Clips", Numeric: true},
		{Title: "State"},
		{Title: "Output", MaxWidth: 60},
	}, rows)
}

func shortID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatStamp(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04")
}
