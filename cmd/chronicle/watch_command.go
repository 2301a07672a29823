package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"chronicle/internal/logging"
	"chronicle/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Enrich archives dropped into the inbox directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(false)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}

			p := newPipeline(cfg, logger, cmd.OutOrStdout())
			if err := p.checkLocal(); err != nil {
				return err
			}

			watcher, err := watch.New(watch.Options{
				InboxDir:        cfg.Paths.InboxDir,
				LockPath:        cfg.LockPath(),
				Settle:          time.Duration(cfg.Watch.SettleSeconds) * time.Second,
				ProcessExisting: cfg.Watch.PollArchivesOnStart,
				Logger:          logger,
			}, func(runCtx context.Context, archivePath string) error {
				return p.process(runCtx, archivePath, runOptions{Verbose: verbose, Resume: true})
			})
			if err != nil {
				return err
			}

			runCtx, stop := signalContext(cmd.Context())
			defer stop()
			logger.Info("chronicle watch started", logging.String("inbox", cfg.Paths.InboxDir))
			return watcher.Run(runCtx)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print each clip's transcript")
	return cmd
}
