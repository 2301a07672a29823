package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun   bool
		verbose  bool
		noResume bool
	)

	cmd := &cobra.Command{
		Use:   "process <archive.zip>",
		Short: "Enrich one trip export archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(dryRun)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}

			runCtx, stop := signalContext(cmd.Context())
			defer stop()

			p := newPipeline(cfg, logger, cmd.OutOrStdout())
			if !dryRun {
				if err := p.checkLocal(); err != nil {
					return err
				}
			}
			return p.process(runCtx, args[0], runOptions{
				DryRun:  dryRun,
				Verbose: verbose,
				Resume:  !noResume,
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the archive and show what would be analyzed without calling any analyzer")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print each clip's transcript")
	cmd.Flags().BoolVar(&noResume, "no-resume", false, "Ignore saved progress and start a fresh run")
	return cmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
